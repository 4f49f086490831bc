// shopctl is the terminal storefront: it browses the catalog and keeps the
// shopper's session (cart, wishlist, orders, activity) in a local store
// that survives restarts.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"smartshop/internal/config"
)

// usageError is reported with exit status 2.
type usageError struct{ msg string }

func (e usageError) Error() string { return e.msg }

func usagef(format string, args ...any) error {
	return usageError{msg: fmt.Sprintf(format, args...)}
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("shopctl", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "path to config file")
	dataDir := fs.String("data", "", "data directory (overrides the config file)")
	jsonOut := fs.Bool("json", false, "print JSON instead of text")
	fs.Usage = func() { usage(stderr) }

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() < 1 {
		usage(stderr)
		return 2
	}

	name, rest := fs.Arg(0), fs.Args()[1:]
	switch name {
	case "help":
		usage(stdout)
		return 0
	case "init":
		return cmdInit(*configPath, stdout, stderr)
	case "shell":
	default:
		if _, ok := commands[name]; !ok {
			fmt.Fprintf(stderr, "Unknown command: %s\n", name)
			usage(stderr)
			return 2
		}
	}

	path := *configPath
	if path == "" {
		path = config.FindConfigFile()
	}
	loader := config.NewLoader(path)
	defer loader.Close()

	cfg, err := loader.Load()
	if err != nil {
		fmt.Fprintf(stderr, "Error loading config: %v\n", err)
		return 1
	}
	if *dataDir != "" {
		cfg.Storage.DataDir = *dataDir
	}
	if err := cfg.EnsureDirectories(); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	std := stdio{in: stdin, out: stdout, errOut: stderr}
	log, err := newLogger(cfg.Logging, std)
	if err != nil {
		fmt.Fprintf(stderr, "Error configuring logging: %v\n", err)
		return 1
	}
	defer log.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := openApp(ctx, cfg, log, std, *jsonOut)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	defer a.Close()

	if name == "shell" {
		err = a.shell(ctx, loader)
	} else {
		err = a.exec(ctx, name, rest)
	}
	a.flushToast()
	return exitCode(err, stderr)
}

func exitCode(err error, stderr io.Writer) int {
	if err == nil {
		return 0
	}
	fmt.Fprintf(stderr, "Error: %v\n", err)
	var ue usageError
	if errors.As(err, &ue) {
		return 2
	}
	return 1
}

func cmdInit(path string, stdout, stderr io.Writer) int {
	if path == "" {
		path = config.ConfigPath()
	}
	_, created, err := config.LoadOrCreate(path)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	if created {
		fmt.Fprintf(stdout, "Wrote default configuration to %s\n", path)
	} else {
		fmt.Fprintf(stdout, "Configuration already present at %s\n", path)
	}
	return 0
}

func usage(w io.Writer) {
	fmt.Fprintln(w, `shopctl - terminal storefront

Usage: shopctl [options] <command> [args]

Browsing:
  products [-category c] [-sort s] [-min n] [-max n] [query]
                      List products (sort: price-low, price-high, rating, name)
  view <id>           Show a product and record the visit
  search <text>       Search the catalog and record the query
  voice [transcript]  Interpret a spoken query (reads lines from stdin if none given)

Cart and wishlist:
  cart                Show the cart with shipping and tax
  add [-qty n] [-size s] [-color c] <id>
                      Add a product to the cart
  remove <id>         Remove a product from the cart
  qty <id> <n>        Set a product's quantity (0 removes it)
  clear               Empty the cart
  wishlist            Show the wishlist
  wish <id>           Add a product to the wishlist
  unwish <id>         Remove a product from the wishlist

Account and orders:
  signup -name n -email e -password p
  login -email e -password p
  logout
  lang [code]         Show or set the display language
  checkout [form flags]
                      Place an order for the cart
  orders [-remote]    List placed orders

Other:
  chat <message>      Ask the shopping assistant
  weather [condition|random]
                      Show or set the weather used by the assistant
  status              Show store and session statistics
  health              Check the store, data directory and backend
  metrics [-o file]   Print session metrics in Prometheus text format
  show                Print the full session snapshot as JSON
  shell               Run commands interactively; the config file is watched
  init                Write a default config file
  help                Show this help message

Options:
  -config <path>  Path to config file (default: config.toml in the data directory)
  -data <dir>     Data directory (default: $SHOPCTL_DATA_DIR or the platform data dir)
  -json           Print JSON instead of text`)
}
