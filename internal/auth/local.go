package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"smartshop/internal/kv"
	"smartshop/internal/session"
)

const accountPrefix = "account:"

// account is the stored form of a local user.
type account struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"password_hash"`
	Language     string    `json:"language"`
	CreatedAt    time.Time `json:"created_at"`
}

func (a account) user() *session.User {
	return &session.User{
		ID:       a.ID,
		Name:     a.Name,
		Email:    a.Email,
		Language: a.Language,
	}
}

// Local keeps accounts in a kv.Store under "account:<email>". Passwords are
// stored as bcrypt hashes.
type Local struct {
	mu    sync.Mutex
	store kv.Store
	cost  int
	now   func() time.Time
}

// LocalOption configures a Local directory.
type LocalOption func(*Local)

// WithBcryptCost overrides the bcrypt work factor.
func WithBcryptCost(cost int) LocalOption {
	return func(l *Local) {
		l.cost = cost
	}
}

// NewLocal creates an account directory over store.
func NewLocal(store kv.Store, opts ...LocalOption) *Local {
	l := &Local{
		store: store,
		cost:  bcrypt.DefaultCost,
		now:   func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Signup implements Service.
func (l *Local) Signup(ctx context.Context, name, email, password string) (*session.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	email = NormalizeEmail(email)
	name = strings.TrimSpace(name)
	if err := ValidateSignup(name, email, password); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), l.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, err := l.store.Get(accountPrefix + email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, kv.ErrNotFound) {
		return nil, fmt.Errorf("look up account: %w", err)
	}

	acct := account{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
		Language:     session.DefaultLanguage,
		CreatedAt:    l.now(),
	}
	if err := l.put(acct); err != nil {
		return nil, err
	}
	return acct.user(), nil
}

// Login implements Service.
func (l *Local) Login(ctx context.Context, email, password string) (*session.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	acct, err := l.get(NormalizeEmail(email))
	if err != nil {
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(acct.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return acct.user(), nil
}

// ChangePassword replaces the password of an account after checking the
// current one.
func (l *Local) ChangePassword(ctx context.Context, email, current, next string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := ValidatePassword(next); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	acct, err := l.get(NormalizeEmail(email))
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(acct.PasswordHash), []byte(current)); err != nil {
		return ErrInvalidCredentials
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(next), l.cost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	acct.PasswordHash = string(hash)
	return l.put(acct)
}

func (l *Local) get(email string) (account, error) {
	data, err := l.store.Get(accountPrefix + email)
	if errors.Is(err, kv.ErrNotFound) {
		return account{}, ErrInvalidCredentials
	}
	if err != nil {
		return account{}, fmt.Errorf("look up account: %w", err)
	}
	var acct account
	if err := json.Unmarshal(data, &acct); err != nil {
		return account{}, fmt.Errorf("decode account: %w", err)
	}
	return acct, nil
}

func (l *Local) put(acct account) error {
	data, err := json.Marshal(acct)
	if err != nil {
		return fmt.Errorf("encode account: %w", err)
	}
	if err := l.store.Put(accountPrefix+acct.Email, data); err != nil {
		return fmt.Errorf("save account: %w", err)
	}
	return nil
}
