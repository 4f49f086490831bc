package assistant

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
)

type cannedRule struct {
	keywords []string
	reply    func(weather string) string
}

func fixed(s string) func(string) string {
	return func(string) string { return s }
}

var cannedRules = []cannedRule{
	{[]string{"phone", "smartphone"}, fixed("I'd recommend the Samsung Galaxy S24 Ultra for its excellent camera and performance. " +
		"It's currently on sale for ₹89,999. Would you like me to show you similar phones or add this to your cart?")},
	{[]string{"laptop", "computer"}, fixed("The Apple MacBook Air M2 is very popular right now! It offers great performance and " +
		"battery life for ₹1,19,900. Would you like to see the specifications?")},
	{[]string{"shoes", "sneakers"}, fixed("For shoes, I'd suggest the Nike Air Force 1 classics at ₹8,995. We also have Adidas " +
		"Ultraboost 22 for running. What type of activities do you need them for?")},
	{[]string{"weather", "rain"}, func(weather string) string {
		return fmt.Sprintf("I see it's %s weather in your area. Would you like me to show you umbrellas, raincoats, "+
			"or seasonal clothing?", weather)
	}},
	{[]string{"price", "cost", "budget"}, fixed("I can help you find products within your budget! What's your price range, " +
		"and what type of product are you looking for?")},
	{[]string{"delivery", "shipping"}, fixed("We offer free shipping on orders over ₹499! Most items are delivered within " +
		"2-3 business days. What would you like to order?")},
}

var cannedDefaults = []string{
	"I understand you're looking for something specific. Could you tell me more about what you need?",
	"That's a great question! Could you provide more details about your preferences?",
	"I'd be happy to assist you with that! What specific features or price range are you considering?",
	"Based on your query, I can suggest several options. Would you like to see our top-rated products in that category?",
	"Let me help you find the best deals! What type of product interests you the most today?",
}

// Canned answers from a fixed keyword table and works offline. Unmatched
// input cycles through a set of generic replies.
type Canned struct {
	weather func() string
	next    atomic.Uint64
}

// NewCanned creates a canned responder. weather reports the session's
// current weather and may be nil.
func NewCanned(weather func() string) *Canned {
	if weather == nil {
		weather = func() string { return "sunny" }
	}
	return &Canned{weather: weather}
}

// Complete implements Completer.
func (c *Canned) Complete(ctx context.Context, _ []Message, input string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	lower := strings.ToLower(input)
	for _, rule := range cannedRules {
		for _, kw := range rule.keywords {
			if strings.Contains(lower, kw) {
				return rule.reply(c.weather()), nil
			}
		}
	}
	i := c.next.Add(1) - 1
	return cannedDefaults[i%uint64(len(cannedDefaults))], nil
}
