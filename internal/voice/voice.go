// Package voice turns speech transcripts into search actions.
package voice

import (
	"bufio"
	"cmp"
	"context"
	"io"
	"slices"
	"strings"

	"smartshop/internal/session"
)

// Keywords maps a spoken keyword to a catalog category.
var Keywords = map[string]string{
	"phone":       "Electronics",
	"smartphone":  "Electronics",
	"mobile":      "Electronics",
	"laptop":      "Electronics",
	"headphones":  "Electronics",
	"earbuds":     "Electronics",
	"watch":       "Electronics",
	"camera":      "Electronics",
	"tv":          "Electronics",
	"shoes":       "Fashion",
	"sneakers":    "Fashion",
	"shirt":       "Fashion",
	"jeans":       "Fashion",
	"dress":       "Fashion",
	"jacket":      "Fashion",
	"umbrella":    "Fashion",
	"lamp":        "Home",
	"sofa":        "Home",
	"kitchen":     "Home",
	"bedsheet":    "Home",
	"book":        "Books",
	"novel":       "Books",
	"football":    "Sports",
	"cricket bat": "Sports",
	"yoga mat":    "Sports",
	"dumbbell":    "Sports",
	"lipstick":    "Beauty",
	"perfume":     "Beauty",
}

// Match is a transcript keyword and the category it maps to.
type Match struct {
	Keyword  string
	Category string
}

// Interpreter resolves transcripts against a keyword table. Longer keywords
// are tried first; ties are broken alphabetically.
type Interpreter struct {
	keywords []Match
}

// NewInterpreter builds an interpreter over table.
func NewInterpreter(table map[string]string) *Interpreter {
	keywords := make([]Match, 0, len(table))
	for k, c := range table {
		k = strings.ToLower(strings.TrimSpace(k))
		if k == "" {
			continue
		}
		keywords = append(keywords, Match{Keyword: k, Category: c})
	}
	slices.SortFunc(keywords, func(a, b Match) int {
		if n := cmp.Compare(len(b.Keyword), len(a.Keyword)); n != 0 {
			return n
		}
		return cmp.Compare(a.Keyword, b.Keyword)
	})
	return &Interpreter{keywords: keywords}
}

var defaultInterpreter = NewInterpreter(Keywords)

// Interpret finds the keyword contained in the transcript.
func (in *Interpreter) Interpret(transcript string) (Match, bool) {
	lower := strings.ToLower(transcript)
	for _, m := range in.keywords {
		if strings.Contains(lower, m.Keyword) {
			return m, true
		}
	}
	return Match{}, false
}

// Actions returns the actions a transcript dispatches. A recognised keyword
// sets the category filter and searches for the keyword; anything else is
// searched verbatim.
func (in *Interpreter) Actions(transcript string) []session.Action {
	transcript = strings.TrimSpace(transcript)
	if transcript == "" {
		return nil
	}
	if m, ok := in.Interpret(transcript); ok {
		return []session.Action{
			session.SetCategoryFilter{Category: m.Category},
			session.SetSearchQuery{Text: m.Keyword},
		}
	}
	return []session.Action{session.SetSearchQuery{Text: transcript}}
}

// Interpret uses the default keyword table.
func Interpret(transcript string) (Match, bool) {
	return defaultInterpreter.Interpret(transcript)
}

// Actions uses the default keyword table.
func Actions(transcript string) []session.Action {
	return defaultInterpreter.Actions(transcript)
}

// Locale is the recognition locale for a session language.
func Locale(language string) string {
	if language == "hi" {
		return "hi-IN"
	}
	return "en-US"
}

// Recognizer produces final transcripts until ctx ends or input runs out.
type Recognizer interface {
	Listen(ctx context.Context, language string) (<-chan string, error)
}

// LineRecognizer treats each non-empty line of r as one transcript. It stands
// in for a speech engine in the terminal.
type LineRecognizer struct {
	r io.Reader
}

// NewLineRecognizer reads transcripts from r.
func NewLineRecognizer(r io.Reader) *LineRecognizer {
	return &LineRecognizer{r: r}
}

// Listen implements Recognizer. The channel closes at EOF or cancellation.
func (l *LineRecognizer) Listen(ctx context.Context, _ string) (<-chan string, error) {
	out := make(chan string)
	go func() {
		defer close(out)
		sc := bufio.NewScanner(l.r)
		for sc.Scan() {
			line := strings.TrimSpace(sc.Text())
			if line == "" {
				continue
			}
			select {
			case out <- line:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}
