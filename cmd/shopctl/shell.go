package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"strings"

	"smartshop/internal/config"
)

// shell runs commands read line by line against one open session. The
// config file is watched; pricing, log level and assistant settings apply
// on the next command after a change.
func (a *app) shell(ctx context.Context, loader *config.Loader) error {
	a.interactive = true
	defer func() { a.interactive = false }()

	loader.OnChange(a.applyConfig)
	if err := loader.Watch(); err != nil {
		a.log.Warn("config watch disabled", "path", loader.Path(), "error", err)
	}
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case err := <-loader.Errors():
				a.log.Warn("config reload rejected", "error", err)
			}
		}
	}()

	lines := make(chan string)
	scanErr := make(chan error, 1)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(a.in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
		scanErr <- sc.Err()
	}()

	fmt.Fprintln(a.out, "shopctl shell. Type 'help' for commands, 'exit' to quit.")
	for {
		fmt.Fprint(a.out, "> ")
		var line string
		select {
		case <-ctx.Done():
			fmt.Fprintln(a.out)
			return nil
		case l, ok := <-lines:
			if !ok {
				fmt.Fprintln(a.out)
				select {
				case err := <-scanErr:
					return err
				default:
					return nil
				}
			}
			line = l
		}

		args, err := splitArgs(line)
		if err != nil {
			fmt.Fprintf(a.errOut, "Error: %v\n", err)
			continue
		}
		if len(args) == 0 {
			continue
		}
		switch args[0] {
		case "exit", "quit":
			return nil
		case "help":
			usage(a.out)
			continue
		case "shell", "init":
			fmt.Fprintf(a.errOut, "Error: %s is not available inside the shell\n", args[0])
			continue
		}

		if err := a.exec(ctx, args[0], args[1:]); err != nil {
			fmt.Fprintf(a.errOut, "Error: %v\n", err)
		}
		a.flushToast()
	}
}

// splitArgs splits a shell line on spaces. Single or double quotes group
// words; a backslash escapes the next character outside single quotes.
func splitArgs(line string) ([]string, error) {
	var args []string
	var cur strings.Builder
	inArg := false
	var quote rune
	escaped := false

	for _, r := range line {
		switch {
		case escaped:
			cur.WriteRune(r)
			escaped = false
		case r == '\\' && quote != '\'':
			escaped = true
			inArg = true
		case quote != 0:
			if r == quote {
				quote = 0
			} else {
				cur.WriteRune(r)
			}
		case r == '"' || r == '\'':
			quote = r
			inArg = true
		case r == ' ' || r == '\t':
			if inArg {
				args = append(args, cur.String())
				cur.Reset()
				inArg = false
			}
		default:
			cur.WriteRune(r)
			inArg = true
		}
	}
	if quote != 0 {
		return nil, fmt.Errorf("unterminated %c quote", quote)
	}
	if escaped {
		return nil, errors.New("trailing backslash")
	}
	if inArg {
		args = append(args, cur.String())
	}
	return args, nil
}
