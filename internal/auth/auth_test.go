package auth

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"smartshop/internal/kv"
)

func newLocal(t *testing.T) (*Local, *kv.Memory) {
	t.Helper()
	store := kv.NewMemory()
	return NewLocal(store, WithBcryptCost(bcrypt.MinCost)), store
}

func TestSignupAndLogin(t *testing.T) {
	ctx := context.Background()
	l, _ := newLocal(t)

	u, err := l.Signup(ctx, "  Asha ", " Asha@Example.COM ", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "Asha", u.Name)
	assert.Equal(t, "asha@example.com", u.Email)
	assert.Equal(t, "en", u.Language)
	_, err = uuid.Parse(u.ID)
	assert.NoError(t, err)

	got, err := l.Login(ctx, "ASHA@example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, u, got)
}

func TestSignupStoresHashNotPassword(t *testing.T) {
	l, store := newLocal(t)
	_, err := l.Signup(context.Background(), "Asha", "asha@example.com", "hunter22")
	require.NoError(t, err)

	raw, err := store.Get("account:asha@example.com")
	require.NoError(t, err)
	assert.False(t, strings.Contains(string(raw), "hunter22"))
	assert.Contains(t, string(raw), "$2a$")
}

func TestSignupRejectsDuplicates(t *testing.T) {
	ctx := context.Background()
	l, _ := newLocal(t)
	_, err := l.Signup(ctx, "Asha", "asha@example.com", "secret1")
	require.NoError(t, err)

	_, err = l.Signup(ctx, "Other", "ASHA@example.com", "secret2")
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestSignupValidation(t *testing.T) {
	tests := []struct {
		name, user, email, password string
	}{
		{"empty name", " ", "a@b.co", "secret1"},
		{"bad email", "Asha", "asha.example.com", "secret1"},
		{"short password", "Asha", "a@b.co", "12345"},
	}
	l, _ := newLocal(t)
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := l.Signup(context.Background(), tc.user, tc.email, tc.password)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}

func TestLoginFailures(t *testing.T) {
	ctx := context.Background()
	l, _ := newLocal(t)
	_, err := l.Signup(ctx, "Asha", "asha@example.com", "secret1")
	require.NoError(t, err)

	_, err = l.Login(ctx, "asha@example.com", "wrong-pass")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = l.Login(ctx, "nobody@example.com", "secret1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestChangePassword(t *testing.T) {
	ctx := context.Background()
	l, _ := newLocal(t)
	_, err := l.Signup(ctx, "Asha", "asha@example.com", "secret1")
	require.NoError(t, err)

	assert.ErrorIs(t, l.ChangePassword(ctx, "asha@example.com", "nope", "secret2"), ErrInvalidCredentials)
	assert.ErrorIs(t, l.ChangePassword(ctx, "asha@example.com", "secret1", "123"), ErrInvalidInput)
	require.NoError(t, l.ChangePassword(ctx, "asha@example.com", "secret1", "secret2"))

	_, err = l.Login(ctx, "asha@example.com", "secret1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = l.Login(ctx, "asha@example.com", "secret2")
	assert.NoError(t, err)
}

func TestCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	l, _ := newLocal(t)
	_, err := l.Signup(ctx, "Asha", "asha@example.com", "secret1")
	assert.ErrorIs(t, err, context.Canceled)
}
