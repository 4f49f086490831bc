// Package auth defines the authentication collaborator consumed by the CLI
// and a local account directory kept in the session's key-value store.
package auth

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"smartshop/internal/session"
)

var (
	// ErrInvalidCredentials is returned when the email or password is wrong.
	ErrInvalidCredentials = errors.New("auth: invalid email or password")

	// ErrEmailTaken is returned by Signup when an account already exists.
	ErrEmailTaken = errors.New("auth: email already registered")

	// ErrInvalidInput is returned for malformed names, emails or passwords.
	ErrInvalidInput = errors.New("auth: invalid input")
)

// MinPasswordLength is the shortest accepted password.
const MinPasswordLength = 6

var emailPattern = regexp.MustCompile(`^\S+@\S+\.\S+$`)

// Service authenticates shoppers.
type Service interface {
	Login(ctx context.Context, email, password string) (*session.User, error)
	Signup(ctx context.Context, name, email, password string) (*session.User, error)
}

// NormalizeEmail trims and lower-cases an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateSignup checks the signup form. The email must already be normalized.
func ValidateSignup(name, email, password string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if err := validateEmail(email); err != nil {
		return err
	}
	return ValidatePassword(password)
}

// ValidatePassword enforces the minimum password length.
func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return fmt.Errorf("%w: password must be at least %d characters", ErrInvalidInput, MinPasswordLength)
	}
	return nil
}

func validateEmail(email string) error {
	if !emailPattern.MatchString(email) {
		return fmt.Errorf("%w: email %q is not valid", ErrInvalidInput, email)
	}
	return nil
}
