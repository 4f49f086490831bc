package session

import (
	"io"
	"log/slog"
	"sync"
	"time"
)

// Mirror is the durable side channel for persisted slices. Implementations
// are best-effort: failures are handled internally and never reported back.
type Mirror interface {
	Persist(key string, v any)
	Remove(key string)
	Load(key string, dst any) bool
}

type nopMirror struct{}

func (nopMirror) Persist(string, any)   {}
func (nopMirror) Remove(string)         {}
func (nopMirror) Load(string, any) bool { return false }

// Option configures a Store.
type Option func(*Store)

// WithMirror sets the durable mirror. Without one nothing is persisted.
func WithMirror(m Mirror) Option {
	return func(s *Store) {
		if m != nil {
			s.mirror = m
		}
	}
}

// WithClock sets the time source used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.log = l
		}
	}
}

// WithWishlistRestore makes Hydrate read the persisted wishlist back.
// It is off by default, which keeps the wishlist session-scoped.
func WithWishlistRestore(enabled bool) Option {
	return func(s *Store) {
		s.restoreWishlist = enabled
	}
}

// Store is a session handle. It owns one Snapshot and serializes every
// mutation through Dispatch. Multiple stores are fully independent.
type Store struct {
	mu      sync.Mutex
	snap    Snapshot
	mirror  Mirror
	now     func() time.Time
	log     *slog.Logger
	version uint64

	restoreWishlist bool
	hydrated        bool

	// notifyMu is taken before mu is released so subscribers observe
	// snapshots in dispatch order.
	notifyMu sync.Mutex
	subsMu   sync.Mutex
	subs     []subscriber
	nextSub  uint64
}

type subscriber struct {
	id uint64
	fn func(Snapshot)
}

// New creates a store holding the initial snapshot.
func New(opts ...Option) *Store {
	s := &Store{
		mirror: nopMirror{},
		now:    func() time.Time { return time.Now().UTC() },
		log:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.snap = Initial(s.now())
	return s
}

// Snapshot returns the current snapshot. The returned value must be treated
// as read-only.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap
}

// Version counts the dispatches applied so far.
func (s *Store) Version() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.version
}

// Dispatch validates a, reduces it into the next snapshot, applies the
// resulting mirror writes and notifies subscribers. The only error is
// ErrInvalidAction, in which case the snapshot is unchanged.
//
// Subscribers run on the dispatching goroutine and must not call Dispatch.
func (s *Store) Dispatch(a Action) (Snapshot, error) {
	if err := Validate(a); err != nil {
		s.log.Warn("rejected action", "error", err)
		return s.Snapshot(), err
	}

	s.mu.Lock()
	next, effects := Reduce(s.snap, a, s.now())
	for _, e := range effects {
		s.apply(e)
	}
	s.snap = next
	s.version++
	s.log.Debug("dispatch", "action", a.Kind().String(), "effects", len(effects), "version", s.version)

	s.notifyMu.Lock()
	s.mu.Unlock()
	defer s.notifyMu.Unlock()
	for _, fn := range s.subscribers() {
		fn(next)
	}
	return next, nil
}

func (s *Store) apply(e Effect) {
	switch e.Op {
	case OpPersist:
		s.mirror.Persist(e.Key, e.Value)
	case OpRemove:
		s.mirror.Remove(e.Key)
	}
}

// Subscribe registers fn to receive every snapshot after a dispatch.
// The returned function removes the subscription.
func (s *Store) Subscribe(fn func(Snapshot)) (cancel func()) {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	s.nextSub++
	id := s.nextSub
	s.subs = append(s.subs, subscriber{id: id, fn: fn})
	return func() {
		s.subsMu.Lock()
		defer s.subsMu.Unlock()
		for i, sub := range s.subs {
			if sub.id == id {
				s.subs = append(s.subs[:i:i], s.subs[i+1:]...)
				return
			}
		}
	}
}

func (s *Store) subscribers() []func(Snapshot) {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	fns := make([]func(Snapshot), len(s.subs))
	for i, sub := range s.subs {
		fns[i] = sub.fn
	}
	return fns
}

// Hydrate restores the persisted slices from the mirror. Only the first
// call has any effect. Missing or unreadable slices keep their defaults.
//
// The wishlist is read back only when WithWishlistRestore(true) was given.
func (s *Store) Hydrate() Snapshot {
	s.mu.Lock()
	if s.hydrated {
		snap := s.snap
		s.mu.Unlock()
		return snap
	}
	s.hydrated = true
	s.mu.Unlock()

	var restored []string

	var cart []CartLine
	if s.mirror.Load(KeyCart, &cart) {
		s.hydrate(LoadCartFromStorage{Cart: cart})
		restored = append(restored, KeyCart)
	}

	if s.restoreWishlist {
		var wishlist []WishlistEntry
		if s.mirror.Load(KeyWishlist, &wishlist) {
			s.hydrate(LoadWishlistFromStorage{Wishlist: wishlist})
			restored = append(restored, KeyWishlist)
		}
	}

	var lang string
	if s.mirror.Load(KeyLanguage, &lang) && lang != "" {
		s.hydrate(SetLanguage{Code: lang})
		restored = append(restored, KeyLanguage)
	}

	var orders []Order
	if s.mirror.Load(KeyOrders, &orders) {
		s.hydrate(SetOrders{Orders: orders})
		restored = append(restored, KeyOrders)
	}

	var user *User
	if s.mirror.Load(KeyUser, &user) && user != nil {
		s.hydrate(SetUser{User: user})
		restored = append(restored, KeyUser)
	}

	var activity ActivityLog
	if s.mirror.Load(KeyActivity, &activity) {
		patch := ActivityPatch{
			SearchQueries:     activity.SearchQueries,
			ClickedCategories: activity.ClickedCategories,
			ViewedProducts:    activity.ViewedProducts,
		}
		if !activity.LastActivity.IsZero() {
			patch.LastActivity = &activity.LastActivity
		}
		s.hydrate(LoadUserActivity{Patch: patch})
		restored = append(restored, KeyActivity)
	}

	s.log.Debug("hydrated session", "slices", restored)
	return s.Snapshot()
}

func (s *Store) hydrate(a Action) {
	if _, err := s.Dispatch(a); err != nil {
		s.log.Warn("discarded persisted slice", "action", a.Kind().String(), "error", err)
	}
}
