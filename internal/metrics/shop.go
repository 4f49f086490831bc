package metrics

import (
	"time"

	"smartshop/internal/kv"
	"smartshop/internal/mirror"
	"smartshop/internal/session"
)

// Shop records the session metrics shopctl exports.
type Shop struct {
	reg *Registry

	dispatchDuration *Histogram

	cartItems      *Gauge
	cartLines      *Gauge
	cartValue      *Gauge
	wishlistItems  *Gauge
	orders         *Gauge
	recentlyViewed *Gauge
	authenticated  *Gauge
}

// NewShop registers the session metrics in reg.
func NewShop(reg *Registry) *Shop {
	return &Shop{
		reg: reg,
		dispatchDuration: reg.Histogram("dispatch_duration_seconds",
			"Time to reduce an action and apply its persistence effects", nil, nil),
		cartItems:      reg.Gauge("cart_items", "Units in the cart", nil),
		cartLines:      reg.Gauge("cart_lines", "Distinct lines in the cart", nil),
		cartValue:      reg.Gauge("cart_value", "Cart subtotal in whole currency units", nil),
		wishlistItems:  reg.Gauge("wishlist_items", "Products in the wishlist", nil),
		orders:         reg.Gauge("orders", "Orders placed in this session", nil),
		recentlyViewed: reg.Gauge("recently_viewed", "Products in the recently viewed list", nil),
		authenticated:  reg.Gauge("authenticated", "1 when a shopper is signed in", nil),
	}
}

// Registry returns the underlying registry.
func (m *Shop) Registry() *Registry {
	return m.reg
}

// ObserveDispatch records one dispatched action of the given kind.
func (m *Shop) ObserveDispatch(kind session.Kind, d time.Duration, err error) {
	labels := Labels{"kind": kind.String()}
	m.reg.Counter("dispatch_total", "Actions dispatched to the session store", labels).Inc()
	if err != nil {
		m.reg.Counter("dispatch_rejected_total", "Actions rejected before reaching the reducer", labels).Inc()
	}
	m.dispatchDuration.ObserveDuration(d)
}

// ObserveSnapshot sets the session gauges from s.
func (m *Shop) ObserveSnapshot(s session.Snapshot) {
	m.cartItems.Set(int64(s.CartCount()))
	m.cartLines.Set(int64(len(s.Cart)))
	m.cartValue.Set(s.CartTotal())
	m.wishlistItems.Set(int64(len(s.Wishlist)))
	m.orders.Set(int64(len(s.Orders)))
	m.recentlyViewed.Set(int64(len(s.RecentlyViewed)))
	if s.IsAuthenticated {
		m.authenticated.Set(1)
	} else {
		m.authenticated.Set(0)
	}
}

// ObserveMirror copies the mirror's operation counters.
func (m *Shop) ObserveMirror(st mirror.Stats) {
	const help = "Durable mirror operations by outcome"
	set := func(op, result string, v uint64) {
		m.reg.Gauge("mirror_operations", help, Labels{"op": op, "result": result}).Set(int64(v))
	}
	set("persist", "ok", st.Persisted)
	set("persist", "error", st.PersistFailures)
	set("remove", "ok", st.Removed)
	set("remove", "error", st.RemoveFailures)
	set("load", "ok", st.Loaded)
	set("load", "missing", st.LoadMisses)
	set("load", "error", st.LoadFailures)
}

// ObserveLog copies the append-only log's file statistics.
func (m *Shop) ObserveLog(st kv.LogStats) {
	m.reg.Gauge("log_records", "Records in the append-only log", nil).Set(int64(st.Records))
	m.reg.Gauge("log_live_keys", "Keys live in the append-only log", nil).Set(int64(st.Live))
	m.reg.Gauge("log_bytes", "Size of the append-only log file", nil).Set(st.Bytes)
	m.reg.Gauge("log_compactions", "Compactions since the log was opened", nil).Set(int64(st.Compactions))
}
