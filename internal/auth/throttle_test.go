package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestThrottledLogin(t *testing.T) {
	ctx := context.Background()
	l, _ := newLocal(t)
	_, err := l.Signup(ctx, "Asha", "asha@example.com", "secret1")
	require.NoError(t, err)

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	svc := NewThrottled(l, 2, 6, WithThrottleClock(func() time.Time { return now }))

	for i := 0; i < 2; i++ {
		_, err = svc.Login(ctx, "asha@example.com", "wrong-pass")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	}
	_, err = svc.Login(ctx, " ASHA@example.com", "secret1")
	assert.ErrorIs(t, err, ErrTooManyAttempts)

	// Other addresses keep their own budget.
	_, err = svc.Login(ctx, "ravi@example.com", "secret1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	// Six per minute refills one token every ten seconds.
	now = now.Add(10 * time.Second)
	u, err := svc.Login(ctx, "asha@example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "Asha", u.Name)

	// Success refills the bucket.
	for i := 0; i < 2; i++ {
		_, err = svc.Login(ctx, "asha@example.com", "wrong-pass")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	}
}

func TestThrottledDisabled(t *testing.T) {
	l, _ := newLocal(t)
	assert.Same(t, Service(l), NewThrottled(l, 0, 6))
}
