package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"math/rand/v2"
	"strconv"
	"strings"

	"smartshop/internal/assistant"
	"smartshop/internal/catalog"
	"smartshop/internal/checkout"
	"smartshop/internal/kv"
	"smartshop/internal/logging"
	"smartshop/internal/mirror"
	"smartshop/internal/session"
	"smartshop/internal/voice"
)

type command func(ctx context.Context, a *app, args []string) error

var commands = map[string]command{
	"status":   cmdStatus,
	"show":     cmdShow,
	"products": cmdProducts,
	"view":     cmdView,
	"search":   cmdSearch,
	"voice":    cmdVoice,
	"cart":     cmdCart,
	"add":      cmdAdd,
	"remove":   cmdRemove,
	"qty":      cmdQty,
	"clear":    cmdClear,
	"wishlist": cmdWishlist,
	"wish":     cmdWish,
	"unwish":   cmdUnwish,
	"signup":   cmdSignup,
	"login":    cmdLogin,
	"logout":   cmdLogout,
	"lang":     cmdLang,
	"weather":  cmdWeather,
	"checkout": cmdCheckout,
	"orders":   cmdOrders,
	"chat":     cmdChat,
	"health":   cmdHealth,
	"metrics":  cmdMetrics,
}

// weatherConditions are the values the storefront's weather widget reports.
var weatherConditions = []string{"sunny", "rainy", "cloudy", "hot"}

func (a *app) exec(ctx context.Context, name string, args []string) error {
	cmd, ok := commands[name]
	if !ok {
		return usagef("unknown command %q", name)
	}
	return cmd(ctx, a, args)
}

func (a *app) flags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.errOut)
	return fs
}

func parse(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		return usageError{msg: err.Error()}
	}
	return nil
}

// emit prints v as JSON in -json mode and calls text otherwise.
func (a *app) emit(v any, text func(w io.Writer)) error {
	if a.json {
		return writeJSON(a.out, v)
	}
	text(a.out)
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func rupees(n int64) string {
	return "₹" + strconv.FormatInt(n, 10)
}

// product looks up id in the catalog within the backend timeout.
func (a *app) product(ctx context.Context, id string) (*catalog.Product, error) {
	ctx, cancel := a.backendCtx(ctx)
	defer cancel()
	p, err := a.catalog.Product(ctx, catalog.ID(id))
	if errors.Is(err, catalog.ErrNotFound) {
		return nil, fmt.Errorf("product %s not found", id)
	}
	if err != nil {
		return nil, a.fail(fmt.Errorf("load product %s: %w", id, err))
	}
	return p, nil
}

func (a *app) listProducts(ctx context.Context, f catalog.Filter, order catalog.SortOrder) error {
	qctx, cancel := a.backendCtx(ctx)
	defer cancel()
	products, err := a.catalog.Products(qctx, f)
	if err != nil {
		return a.fail(fmt.Errorf("load products: %w", err))
	}
	products = catalog.Sort(products, order)

	snap := a.store.Snapshot()
	return a.emit(products, func(w io.Writer) {
		if len(products) == 0 {
			fmt.Fprintln(w, "No products found")
			return
		}
		for _, p := range products {
			fmt.Fprintf(w, "%-4s %-34s %9s", p.ID, p.Name, rupees(p.Price))
			if d := p.Discount(); d > 0 {
				fmt.Fprintf(w, " (-%d%%)", d)
			}
			fmt.Fprintf(w, "  %-12s %.1f", p.Category, p.Rating)
			if !p.InStock {
				fmt.Fprint(w, "  out of stock")
			}
			if snap.InCart(p.ID) {
				fmt.Fprint(w, "  [in cart]")
			}
			if snap.InWishlist(p.ID) {
				fmt.Fprint(w, "  [wishlist]")
			}
			fmt.Fprintln(w)
		}
	})
}

type statusReport struct {
	DataDir  string           `json:"data_dir"`
	Store    string           `json:"store"`
	Path     string           `json:"path"`
	Version  uint64           `json:"version"`
	User     *session.User    `json:"user"`
	Language string           `json:"language"`
	Cart     int              `json:"cart_items"`
	Total    int64            `json:"cart_total"`
	Wishlist int              `json:"wishlist"`
	Orders   int              `json:"orders"`
	Mirror   mirror.Stats     `json:"mirror"`
	Log      *kv.LogStats     `json:"log,omitempty"`
	Backend  string           `json:"backend"`
	Products int              `json:"catalog_products,omitempty"`
	Pricing  checkout.Pricing `json:"pricing"`
	LogLevel string           `json:"log_level"`
}

func cmdStatus(ctx context.Context, a *app, args []string) error {
	snap := a.store.Snapshot()
	r := statusReport{
		DataDir:  a.cfg.Storage.DataDir,
		Store:    a.cfg.Storage.Type,
		Path:     a.cfg.StoragePath(),
		Version:  a.store.Version(),
		User:     snap.User,
		Language: snap.Language,
		Cart:     snap.CartCount(),
		Total:    snap.CartTotal(),
		Wishlist: len(snap.Wishlist),
		Orders:   len(snap.Orders),
		Mirror:   a.mirror.Stats(),
		Backend:  "not configured",
		Pricing:  a.currentPricing(),
		LogLevel: logging.LevelString(a.log.Level()),
	}
	if a.cfg.Storage.Type == kv.KindMemory {
		r.Path = ""
	}
	if l, ok := a.kv.(*kv.Log); ok {
		st := l.Stats()
		r.Log = &st
	}
	if s, ok := a.catalog.(*catalog.Static); ok {
		r.Products = s.Len()
	}
	if a.db != nil {
		rctx, cancel := a.backendCtx(ctx)
		err := a.db.Ready(rctx)
		cancel()
		if err != nil {
			r.Backend = "unreachable: " + err.Error()
		} else {
			r.Backend = "ready"
		}
	}

	return a.emit(r, func(w io.Writer) {
		fmt.Fprintln(w, "=== shopctl Status ===")
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Storage:")
		fmt.Fprintf(w, "  Type:      %s\n", r.Store)
		if r.Path != "" {
			fmt.Fprintf(w, "  Path:      %s\n", r.Path)
		}
		if r.Log != nil {
			fmt.Fprintf(w, "  Records:   %d (%d live, %d bytes, %d compactions)\n",
				r.Log.Records, r.Log.Live, r.Log.Bytes, r.Log.Compactions)
			if r.Log.TruncatedBytes > 0 {
				fmt.Fprintf(w, "  Recovered: dropped %d bytes of torn tail\n", r.Log.TruncatedBytes)
			}
		}
		fmt.Fprintln(w)

		fmt.Fprintln(w, "Session:")
		if r.User != nil {
			fmt.Fprintf(w, "  User:      %s <%s>\n", r.User.Name, r.User.Email)
		} else {
			fmt.Fprintln(w, "  User:      anonymous")
		}
		fmt.Fprintf(w, "  Language:  %s\n", r.Language)
		fmt.Fprintf(w, "  Cart:      %d items, %s\n", r.Cart, rupees(r.Total))
		fmt.Fprintf(w, "  Wishlist:  %d\n", r.Wishlist)
		fmt.Fprintf(w, "  Orders:    %d\n", r.Orders)
		fmt.Fprintln(w)

		fmt.Fprintln(w, "Mirror:")
		fmt.Fprintf(w, "  Persisted: %d (%d failed)\n", r.Mirror.Persisted, r.Mirror.PersistFailures)
		fmt.Fprintf(w, "  Loaded:    %d (%d missing, %d rejected)\n", r.Mirror.Loaded, r.Mirror.LoadMisses, r.Mirror.LoadFailures)
		fmt.Fprintf(w, "  Removed:   %d (%d failed)\n", r.Mirror.Removed, r.Mirror.RemoveFailures)
		fmt.Fprintln(w)

		fmt.Fprintf(w, "Backend:     %s\n", r.Backend)
		if r.Products > 0 {
			fmt.Fprintf(w, "Catalog:     %d products\n", r.Products)
		}
		fmt.Fprintf(w, "Pricing:     free shipping above %s, else %s; tax %d%%\n",
			rupees(r.Pricing.FreeShippingAbove), rupees(r.Pricing.ShippingFee), r.Pricing.TaxPercent)
		fmt.Fprintf(w, "Log level:   %s\n", r.LogLevel)
	})
}

func cmdShow(ctx context.Context, a *app, args []string) error {
	return writeJSON(a.out, a.store.Snapshot())
}

func cmdProducts(ctx context.Context, a *app, args []string) error {
	fs := a.flags("products")
	category := fs.String("category", "", "only products in this category")
	order := fs.String("sort", "", "price-low, price-high, rating or name")
	minPrice := fs.Int64("min", 0, "minimum price")
	maxPrice := fs.Int64("max", 0, "maximum price")
	if err := parse(fs, args); err != nil {
		return err
	}
	sortOrder, err := catalog.ParseSortOrder(*order)
	if err != nil {
		return usageError{msg: err.Error()}
	}

	if *category != "" {
		cat := *category
		if _, err := a.dispatch(
			session.AddUserInterest{Category: cat},
			session.AddClickedCategory{Category: cat},
			session.SetCategory{Category: &cat},
		); err != nil {
			return err
		}
	}

	return a.listProducts(ctx, catalog.Filter{
		Category: *category,
		Query:    strings.Join(fs.Args(), " "),
		MinPrice: *minPrice,
		MaxPrice: *maxPrice,
	}, sortOrder)
}

func cmdView(ctx context.Context, a *app, args []string) error {
	if len(args) != 1 {
		return usagef("usage: shopctl view <id>")
	}
	p, err := a.product(ctx, args[0])
	if err != nil {
		return err
	}
	snap, err := a.dispatch(
		session.AddRecentlyViewed{Product: *p},
		session.AddUserInterest{Category: p.Category},
		session.AddViewedProduct{Product: *p},
	)
	if err != nil {
		return err
	}

	return a.emit(p, func(w io.Writer) {
		fmt.Fprintf(w, "%s  (%s)\n", p.Name, p.ID)
		fmt.Fprintf(w, "  Price:    %s", rupees(p.Price))
		if d := p.Discount(); d > 0 {
			fmt.Fprintf(w, "  was %s, %d%% off", rupees(*p.OriginalPrice), d)
		}
		fmt.Fprintln(w)
		fmt.Fprintf(w, "  Category: %s", p.Category)
		if p.Subcategory != "" {
			fmt.Fprintf(w, " / %s", p.Subcategory)
		}
		fmt.Fprintln(w)
		fmt.Fprintf(w, "  Rating:   %.1f", p.Rating)
		if p.Reviews != nil {
			fmt.Fprintf(w, " (%d reviews)", *p.Reviews)
		}
		fmt.Fprintln(w)
		switch {
		case !p.InStock:
			fmt.Fprintln(w, "  Stock:    out of stock")
		case p.StockCount != nil:
			fmt.Fprintf(w, "  Stock:    %d left\n", *p.StockCount)
		}
		if p.Description != "" {
			fmt.Fprintf(w, "\n  %s\n", p.Description)
		}
		for _, f := range p.Features {
			fmt.Fprintf(w, "  - %s\n", f)
		}
		if snap.InCart(p.ID) {
			fmt.Fprintln(w, "\n  In your cart")
		}
	})
}

func cmdSearch(ctx context.Context, a *app, args []string) error {
	text := strings.TrimSpace(strings.Join(args, " "))
	if text == "" {
		recent := a.store.Snapshot().RecentSearches
		return a.emit(recent, func(w io.Writer) {
			if len(recent) == 0 {
				fmt.Fprintln(w, "No recent searches")
				return
			}
			fmt.Fprintln(w, "Recent searches:")
			for _, s := range recent {
				fmt.Fprintf(w, "  %s\n", s)
			}
		})
	}

	if _, err := a.dispatch(
		session.SetSearchQuery{Text: text},
		session.AddRecentSearch{Text: text},
		session.AddSearchQuery{Query: text},
	); err != nil {
		return err
	}
	return a.listProducts(ctx, catalog.Filter{Query: text}, catalog.SortNone)
}

func cmdVoice(ctx context.Context, a *app, args []string) error {
	var transcripts <-chan string
	if len(args) > 0 {
		ch := make(chan string, 1)
		ch <- strings.Join(args, " ")
		close(ch)
		transcripts = ch
	} else {
		if a.interactive {
			return usagef("usage: voice <transcript>")
		}
		var err error
		lang := a.store.Snapshot().Language
		transcripts, err = voice.NewLineRecognizer(a.in).Listen(ctx, voice.Locale(lang))
		if err != nil {
			return a.fail(fmt.Errorf("start voice search: %w", err))
		}
	}

	if _, err := a.dispatch(session.ToggleVoiceSearch{}); err != nil {
		return err
	}
	defer a.dispatch(session.ToggleVoiceSearch{})

	for t := range transcripts {
		if _, err := a.dispatch(voice.Actions(t)...); err != nil {
			return err
		}
		f := catalog.Filter{Query: a.store.Snapshot().SearchQuery}
		if m, ok := voice.Interpret(t); ok {
			f.Category = m.Category
		}
		if !a.json {
			fmt.Fprintf(a.out, "Heard: %q\n", t)
		}
		if err := a.listProducts(ctx, f, catalog.SortNone); err != nil {
			return err
		}
	}
	return nil
}

type cartView struct {
	Lines []session.CartLine `json:"lines"`
	Quote checkout.Quote     `json:"quote"`
}

func cmdCart(ctx context.Context, a *app, args []string) error {
	snap := a.store.Snapshot()
	v := cartView{Lines: snap.Cart, Quote: a.currentPricing().Quote(snap.Cart)}
	return a.emit(v, func(w io.Writer) {
		if len(v.Lines) == 0 {
			fmt.Fprintln(w, "Your cart is empty")
			return
		}
		for _, l := range v.Lines {
			variant := strings.Join(nonEmpty(l.SelectedSize, l.SelectedColor), ", ")
			if variant != "" {
				variant = " (" + variant + ")"
			}
			fmt.Fprintf(w, "%-4s %-34s x%-3d %9s\n", l.Product.ID, l.Product.Name+variant, l.Quantity, rupees(l.Subtotal()))
		}
		fmt.Fprintln(w)
		fmt.Fprintf(w, "  Subtotal: %9s\n", rupees(v.Quote.Subtotal))
		if v.Quote.Shipping == 0 {
			fmt.Fprintf(w, "  Shipping: %9s\n", "FREE")
		} else {
			fmt.Fprintf(w, "  Shipping: %9s\n", rupees(v.Quote.Shipping))
		}
		fmt.Fprintf(w, "  Tax:      %9s\n", rupees(v.Quote.Tax))
		fmt.Fprintf(w, "  Total:    %9s\n", rupees(v.Quote.Total))
	})
}

func nonEmpty(values ...string) []string {
	var out []string
	for _, v := range values {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}

func cmdAdd(ctx context.Context, a *app, args []string) error {
	fs := a.flags("add")
	qty := fs.Int("qty", 1, "quantity")
	size := fs.String("size", "", "selected size")
	color := fs.String("color", "", "selected color")
	if err := parse(fs, args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return usagef("usage: shopctl add [-qty n] [-size s] [-color c] <id>")
	}
	if *qty < 1 {
		return usagef("quantity must be at least 1")
	}

	p, err := a.product(ctx, fs.Arg(0))
	if err != nil {
		return err
	}
	if !p.InStock {
		return a.fail(fmt.Errorf("%s is out of stock", p.Name))
	}
	_, err = a.dispatch(session.AddToCart{Product: *p, Quantity: *qty, Size: *size, Color: *color})
	return err
}

func cartLine(snap session.Snapshot, id string) (session.CartLine, bool) {
	for _, l := range snap.Cart {
		if l.Product.ID == catalog.ID(id) {
			return l, true
		}
	}
	return session.CartLine{}, false
}

func cmdRemove(ctx context.Context, a *app, args []string) error {
	if len(args) != 1 {
		return usagef("usage: shopctl remove <id>")
	}
	line, ok := cartLine(a.store.Snapshot(), args[0])
	if !ok {
		return fmt.Errorf("product %s is not in the cart", args[0])
	}
	if _, err := a.dispatch(session.RemoveFromCart{ProductID: line.Product.ID}); err != nil {
		return err
	}
	a.toast(session.SeverityInfo, "%s removed from cart", line.Product.Name)
	return nil
}

func cmdQty(ctx context.Context, a *app, args []string) error {
	if len(args) != 2 {
		return usagef("usage: shopctl qty <id> <n>")
	}
	n, err := strconv.Atoi(args[1])
	if err != nil || n < 0 {
		return usagef("invalid quantity %q", args[1])
	}
	line, ok := cartLine(a.store.Snapshot(), args[0])
	if !ok {
		return fmt.Errorf("product %s is not in the cart", args[0])
	}
	if _, err := a.dispatch(session.UpdateQuantity{ProductID: line.Product.ID, Quantity: n}); err != nil {
		return err
	}
	if n == 0 {
		a.toast(session.SeverityInfo, "%s removed from cart", line.Product.Name)
	}
	return nil
}

func cmdClear(ctx context.Context, a *app, args []string) error {
	if _, err := a.dispatch(session.ClearCart{}); err != nil {
		return err
	}
	a.toast(session.SeverityInfo, "Cart cleared")
	return nil
}

func cmdWishlist(ctx context.Context, a *app, args []string) error {
	entries := a.store.Snapshot().Wishlist
	return a.emit(entries, func(w io.Writer) {
		if len(entries) == 0 {
			fmt.Fprintln(w, "Your wishlist is empty")
			return
		}
		for _, e := range entries {
			fmt.Fprintf(w, "%-4s %-34s %9s  added %s\n",
				e.Product.ID, e.Product.Name, rupees(e.Product.Price), e.AddedAt.Format("2006-01-02"))
		}
	})
}

func cmdWish(ctx context.Context, a *app, args []string) error {
	if len(args) != 1 {
		return usagef("usage: shopctl wish <id>")
	}
	p, err := a.product(ctx, args[0])
	if err != nil {
		return err
	}
	if a.store.Snapshot().InWishlist(p.ID) {
		a.toast(session.SeverityInfo, "%s is already in your wishlist", p.Name)
		return nil
	}
	_, err = a.dispatch(session.AddToWishlist{Product: *p})
	return err
}

func cmdUnwish(ctx context.Context, a *app, args []string) error {
	if len(args) != 1 {
		return usagef("usage: shopctl unwish <id>")
	}
	id := catalog.ID(args[0])
	if !a.store.Snapshot().InWishlist(id) {
		return fmt.Errorf("product %s is not in the wishlist", id)
	}
	if _, err := a.dispatch(session.RemoveFromWishlist{ProductID: id}); err != nil {
		return err
	}
	a.toast(session.SeverityInfo, "Removed from wishlist")
	return nil
}

func cmdSignup(ctx context.Context, a *app, args []string) error {
	fs := a.flags("signup")
	name := fs.String("name", "", "full name")
	email := fs.String("email", "", "email address")
	password := fs.String("password", "", "password")
	if err := parse(fs, args); err != nil {
		return err
	}

	actx, cancel := a.backendCtx(ctx)
	defer cancel()
	u, err := a.auth.Signup(actx, *name, *email, *password)
	if err != nil {
		return a.fail(fmt.Errorf("signup failed: %w", err))
	}
	if _, err := a.dispatch(session.Signup{User: *u}); err != nil {
		return err
	}
	a.continueRedirect()
	return nil
}

func cmdLogin(ctx context.Context, a *app, args []string) error {
	fs := a.flags("login")
	email := fs.String("email", "", "email address")
	password := fs.String("password", "", "password")
	if err := parse(fs, args); err != nil {
		return err
	}

	actx, cancel := a.backendCtx(ctx)
	defer cancel()
	u, err := a.auth.Login(actx, *email, *password)
	if err != nil {
		return a.fail(fmt.Errorf("login failed: %w", err))
	}
	if _, err := a.dispatch(session.Login{User: *u}); err != nil {
		return err
	}
	a.continueRedirect()
	return nil
}

// continueRedirect reports and clears the page a signed-out command asked
// the shopper to come back to.
func (a *app) continueRedirect() {
	path := a.store.Snapshot().RedirectPath
	if path == nil {
		return
	}
	if !a.json {
		fmt.Fprintf(a.out, "Continue with: shopctl %s\n", redirectCommand(*path))
	}
	a.dispatch(session.SetRedirectPath{Path: nil})
}

func redirectCommand(path string) string {
	switch path {
	case ordersPath:
		return "orders -remote"
	default:
		return strings.TrimPrefix(path, "/")
	}
}

func cmdLogout(ctx context.Context, a *app, args []string) error {
	if !a.store.Snapshot().IsAuthenticated {
		return errors.New("not logged in")
	}
	_, err := a.dispatch(session.Logout{})
	return err
}

func cmdLang(ctx context.Context, a *app, args []string) error {
	if len(args) == 0 {
		lang := a.store.Snapshot().Language
		return a.emit(map[string]any{"language": lang, "supported": a.cfg.Session.Languages}, func(w io.Writer) {
			fmt.Fprintf(w, "Language: %s (supported: %s)\n", lang, strings.Join(a.cfg.Session.Languages, ", "))
		})
	}
	code := strings.ToLower(strings.TrimSpace(args[0]))
	if !a.cfg.SupportsLanguage(code) {
		return usagef("unsupported language %q (supported: %s)", code, strings.Join(a.cfg.Session.Languages, ", "))
	}
	_, err := a.dispatch(session.SetLanguage{Code: code})
	return err
}

func cmdWeather(ctx context.Context, a *app, args []string) error {
	if len(args) == 0 {
		weather := a.store.Snapshot().CurrentWeather
		return a.emit(map[string]string{"weather": weather}, func(w io.Writer) {
			fmt.Fprintf(w, "Weather: %s\n", weather)
		})
	}
	weather := strings.ToLower(args[0])
	if weather == "random" {
		weather = weatherConditions[rand.IntN(len(weatherConditions))]
	}
	if _, err := a.dispatch(session.SetWeather{Weather: weather}); err != nil {
		return err
	}
	if !a.json {
		fmt.Fprintf(a.out, "Weather: %s\n", weather)
	}
	return nil
}

func cmdCheckout(ctx context.Context, a *app, args []string) error {
	fs := a.flags("checkout")
	var form checkout.Form
	fs.StringVar(&form.Name, "name", "", "full name (defaults to the signed-in user)")
	fs.StringVar(&form.Mobile, "mobile", "", "10-digit mobile number")
	fs.StringVar(&form.Email, "email", "", "email address (defaults to the signed-in user)")
	fs.StringVar(&form.Address, "address", "", "delivery address")
	fs.StringVar(&form.City, "city", "", "city")
	fs.StringVar(&form.Pincode, "pincode", "", "6-digit pincode")
	payment := fs.String("payment", string(session.PaymentCOD), "cod, card, upi or wallet")
	if err := parse(fs, args); err != nil {
		return err
	}
	form.PaymentMode = session.PaymentMode(strings.ToLower(*payment))

	snap := a.store.Snapshot()
	form = checkout.Prefill(form, snap.User)
	order, err := checkout.PlaceOrder(snap, form, a.currentPricing(), a.now())
	if errors.Is(err, checkout.ErrEmptyCart) {
		return a.fail(errors.New("your cart is empty"))
	}
	if err != nil {
		return a.fail(err)
	}

	if a.orders != nil {
		var userID string
		if snap.User != nil {
			userID = snap.User.ID
		}
		a.dispatch(session.SetLoading{Loading: true})
		octx, cancel := a.backendCtx(ctx)
		err = a.orders.Submit(octx, userID, order)
		cancel()
		a.dispatch(session.SetLoading{Loading: false})
		if err != nil {
			a.log.Error("order submission failed", "order", order.ID, "error", err)
			return a.fail(fmt.Errorf("failed to place order, please try again: %w", err))
		}
	}

	if _, err := a.dispatch(session.AddOrder{Order: order}, session.ClearCart{}); err != nil {
		return err
	}
	a.log.Info("order placed", "order", order.ID, "total", order.Total, "payment", order.CustomerInfo.PaymentMode)
	a.toast(session.SeveritySuccess, "Order %s placed successfully!", order.ID)

	return a.emit(order, func(w io.Writer) {
		fmt.Fprintf(w, "Order %s\n", order.ID)
		fmt.Fprintf(w, "  Items:   %d\n", len(order.Items))
		fmt.Fprintf(w, "  Total:   %s\n", rupees(order.Total))
		fmt.Fprintf(w, "  Payment: %s (%s)\n", order.CustomerInfo.PaymentMode, checkout.PaymentStatus(order.CustomerInfo.PaymentMode))
		fmt.Fprintf(w, "  Deliver: %s, %s %s\n", order.CustomerInfo.Address, order.CustomerInfo.City, order.CustomerInfo.Pincode)
	})
}

const ordersPath = "/orders"

func cmdOrders(ctx context.Context, a *app, args []string) error {
	fs := a.flags("orders")
	remote := fs.Bool("remote", false, "list the order history stored in the backend")
	if err := parse(fs, args); err != nil {
		return err
	}

	snap := a.store.Snapshot()
	if !*remote {
		return a.emit(snap.Orders, func(w io.Writer) {
			if len(snap.Orders) == 0 {
				fmt.Fprintln(w, "No orders yet")
				return
			}
			for _, o := range snap.Orders {
				fmt.Fprintf(w, "%-18s %s  %-9s %9s  %d items\n",
					o.ID, o.OrderDate.Format("2006-01-02 15:04"), o.Status, rupees(o.Total), len(o.Items))
			}
		})
	}

	if a.orders == nil {
		return errors.New("no backend configured")
	}
	if snap.User == nil {
		path := ordersPath
		a.dispatch(session.SetRedirectPath{Path: &path})
		return a.fail(errors.New("please login to view your order history"))
	}

	octx, cancel := a.backendCtx(ctx)
	defer cancel()
	rows, err := a.orders.History(octx, snap.User.ID)
	if err != nil {
		return a.fail(fmt.Errorf("load order history: %w", err))
	}
	return a.emit(rows, func(w io.Writer) {
		if len(rows) == 0 {
			fmt.Fprintln(w, "No orders yet")
			return
		}
		for _, r := range rows {
			fmt.Fprintf(w, "%-18s %s  %-9s %-30s x%-3d %9s\n",
				r.OrderID, r.OrderDate, r.Status, r.ProductName, r.Quantity, rupees(r.Total))
		}
	})
}

func cmdChat(ctx context.Context, a *app, args []string) error {
	conv := a.conversation()
	input := strings.TrimSpace(strings.Join(args, " "))
	if input == "" {
		msgs := conv.Messages()
		return a.emit(msgs, func(w io.Writer) {
			for _, m := range msgs {
				fmt.Fprintf(w, "%s: %s\n", speaker(m.Sender), m.Text)
			}
		})
	}

	if !a.store.Snapshot().IsChatOpen {
		if _, err := a.dispatch(session.ToggleChat{}); err != nil {
			return err
		}
	}
	reply, err := conv.Send(ctx, input)
	if err != nil && !errors.Is(err, assistant.ErrRetryLater) {
		return a.fail(err)
	}
	if perr := a.emit(reply, func(w io.Writer) {
		fmt.Fprintf(w, "%s: %s\n", speaker(reply.Sender), reply.Text)
	}); perr != nil {
		return perr
	}
	if err != nil {
		a.log.Warn("assistant reply failed", "error", err)
		a.toast(session.SeverityError, "%s", assistant.Fallback)
		return assistant.ErrRetryLater
	}
	return nil
}

func speaker(s assistant.Sender) string {
	if s == assistant.SenderUser {
		return "You"
	}
	return "AI"
}
