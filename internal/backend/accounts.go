package backend

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"golang.org/x/crypto/bcrypt"

	"smartshop/internal/auth"
	"smartshop/internal/session"
)

// uniqueViolation is the Postgres SQLSTATE for a unique constraint failure.
const uniqueViolation = "23505"

// Accounts implements auth.Service against the users table.
type Accounts struct {
	q    Querier
	cost int
}

var _ auth.Service = (*Accounts)(nil)

// NewAccounts creates an account directory over q. cost <= 0 uses the
// bcrypt default.
func NewAccounts(q Querier, cost int) *Accounts {
	if cost <= 0 {
		cost = bcrypt.DefaultCost
	}
	return &Accounts{q: q, cost: cost}
}

// Signup implements auth.Service.
func (a *Accounts) Signup(ctx context.Context, name, email, password string) (*session.User, error) {
	email = auth.NormalizeEmail(email)
	name = strings.TrimSpace(name)
	if err := auth.ValidateSignup(name, email, password); err != nil {
		return nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), a.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	u := &session.User{
		ID:       uuid.NewString(),
		Name:     name,
		Email:    email,
		Language: session.DefaultLanguage,
	}
	_, err = a.q.Exec(ctx,
		"INSERT INTO users (id, name, email, password_hash, language) VALUES ($1, $2, $3, $4, $5)",
		u.ID, u.Name, u.Email, string(hash), u.Language,
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return nil, auth.ErrEmailTaken
	}
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return u, nil
}

// Login implements auth.Service.
func (a *Accounts) Login(ctx context.Context, email, password string) (*session.User, error) {
	var (
		u    session.User
		hash string
	)
	err := a.q.QueryRow(ctx,
		"SELECT id, name, email, password_hash, language FROM users WHERE email = $1",
		auth.NormalizeEmail(email),
	).Scan(&u.ID, &u.Name, &u.Email, &hash, &u.Language)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, auth.ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("query user: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return nil, auth.ErrInvalidCredentials
	}
	return &u, nil
}
