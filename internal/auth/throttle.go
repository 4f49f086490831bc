package auth

import (
	"context"
	"errors"
	"sync"
	"time"

	"smartshop/internal/session"
)

// ErrTooManyAttempts is returned by a Throttled service while an email's
// login budget is spent.
var ErrTooManyAttempts = errors.New("auth: too many login attempts, try again later")

// bucket is a token bucket refilled continuously at rate tokens per second.
type bucket struct {
	tokens     float64
	lastRefill time.Time
}

// Throttled limits login attempts per email address. Each attempt takes a
// token; a successful login refills the bucket. Signup is not limited.
type Throttled struct {
	next  Service
	rate  float64
	burst int
	now   func() time.Time

	mu      sync.Mutex
	buckets map[string]*bucket
}

// ThrottleOption configures a Throttled service.
type ThrottleOption func(*Throttled)

// WithThrottleClock overrides the clock used to refill buckets.
func WithThrottleClock(now func() time.Time) ThrottleOption {
	return func(t *Throttled) { t.now = now }
}

// NewThrottled allows burst attempts per email, refilled at perMinute.
// A burst of zero or less disables throttling and returns next unchanged.
func NewThrottled(next Service, burst int, perMinute float64, opts ...ThrottleOption) Service {
	if burst <= 0 {
		return next
	}
	t := &Throttled{
		next:    next,
		rate:    perMinute / 60,
		burst:   burst,
		now:     time.Now,
		buckets: make(map[string]*bucket),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Login forwards to the wrapped service when the email has budget left.
func (t *Throttled) Login(ctx context.Context, email, password string) (*session.User, error) {
	key := NormalizeEmail(email)
	if !t.allow(key) {
		return nil, ErrTooManyAttempts
	}
	u, err := t.next.Login(ctx, email, password)
	if err == nil {
		t.reset(key)
	}
	return u, err
}

// Signup forwards to the wrapped service.
func (t *Throttled) Signup(ctx context.Context, name, email, password string) (*session.User, error) {
	return t.next.Signup(ctx, name, email, password)
}

func (t *Throttled) allow(key string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	b, ok := t.buckets[key]
	if !ok {
		b = &bucket{tokens: float64(t.burst), lastRefill: now}
		t.buckets[key] = b
	}

	b.tokens += now.Sub(b.lastRefill).Seconds() * t.rate
	if b.tokens > float64(t.burst) {
		b.tokens = float64(t.burst)
	}
	b.lastRefill = now

	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}

func (t *Throttled) reset(key string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.buckets, key)
}
