package config

import (
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strings"

	"smartshop/internal/kv"
)

// ErrInvalidConfig is returned when validation fails.
var ErrInvalidConfig = errors.New("invalid configuration")

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	msgs := make([]string, len(e))
	for i := range e {
		msgs[i] = e[i].Error()
	}
	return strings.Join(msgs, "; ")
}

// Is makes errors.Is(err, ErrInvalidConfig) hold for any ValidationErrors.
func (e ValidationErrors) Is(target error) bool {
	return target == ErrInvalidConfig
}

// Fields lists the offending field names in order.
func (e ValidationErrors) Fields() []string {
	fields := make([]string, len(e))
	for i := range e {
		fields[i] = e[i].Field
	}
	return fields
}

// ValidateConfig reports every problem in c, or nil.
func ValidateConfig(c *Config) error {
	var errs ValidationErrors

	if c.Version < 1 || c.Version > Version {
		errs = append(errs, ValidationError{
			Field:   "version",
			Message: fmt.Sprintf("unsupported version %d (current: %d)", c.Version, Version),
		})
	}

	errs = append(errs, validateStorage(&c.Storage)...)
	errs = append(errs, validateLogging(&c.Logging)...)
	errs = append(errs, validateSources(c)...)
	errs = append(errs, validateBackend(&c.Backend)...)
	errs = append(errs, validateAssistant(&c.Assistant)...)
	errs = append(errs, validateSession(&c.Session)...)
	errs = append(errs, validateCheckout(&c.Checkout)...)

	if len(errs) == 0 {
		return nil
	}
	return errs
}

func validateStorage(s *StorageConfig) ValidationErrors {
	var errs ValidationErrors

	switch s.Type {
	case kv.KindSQLite, kv.KindLog:
		if s.DataDir == "" {
			errs = append(errs, *RequiredFieldError("storage.data_dir"))
		}
	case kv.KindMemory:
	default:
		errs = append(errs, ValidationError{
			Field:   "storage.type",
			Message: fmt.Sprintf("invalid storage type: %s (valid: sqlite, log, memory)", s.Type),
		})
	}

	if s.CompactThreshold < 0 {
		errs = append(errs, ValidationError{
			Field:   "storage.compact_threshold",
			Message: "compact threshold cannot be negative",
		})
	}
	return errs
}

func validateLogging(l *LoggingConfig) ValidationErrors {
	var errs ValidationErrors

	switch l.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, ValidationError{
			Field:   "logging.level",
			Message: fmt.Sprintf("invalid log level: %s (valid: debug, info, warn, error)", l.Level),
		})
	}

	switch l.Format {
	case "text", "json":
	default:
		errs = append(errs, ValidationError{
			Field:   "logging.format",
			Message: fmt.Sprintf("invalid log format: %s (valid: text, json)", l.Format),
		})
	}

	switch l.Output {
	case "stdout", "stderr":
	case "file", "both":
		if l.FilePath == "" {
			errs = append(errs, ValidationError{
				Field:   "logging.file_path",
				Message: fmt.Sprintf("file path is required when output is '%s'", l.Output),
			})
		}
	default:
		errs = append(errs, ValidationError{
			Field:   "logging.output",
			Message: fmt.Sprintf("invalid log output: %s (valid: stdout, stderr, file, both)", l.Output),
		})
	}

	if l.MaxSizeMB < 1 {
		errs = append(errs, ValidationError{
			Field:   "logging.max_size_mb",
			Message: "max size must be at least 1 MB",
		})
	}
	if l.MaxBackups < 0 {
		errs = append(errs, ValidationError{
			Field:   "logging.max_backups",
			Message: "max backups cannot be negative",
		})
	}
	return errs
}

// validateSources checks the provider switches and that the backend is
// configured when any of them selects it.
func validateSources(c *Config) ValidationErrors {
	var errs ValidationErrors
	needsBackend := false

	switch c.Catalog.Source {
	case "static":
	case "backend":
		needsBackend = true
	default:
		errs = append(errs, ValidationError{
			Field:   "catalog.source",
			Message: fmt.Sprintf("invalid catalog source: %s (valid: static, backend)", c.Catalog.Source),
		})
	}

	switch c.Auth.Provider {
	case "local":
	case "backend":
		needsBackend = true
	default:
		errs = append(errs, ValidationError{
			Field:   "auth.provider",
			Message: fmt.Sprintf("invalid auth provider: %s (valid: local, backend)", c.Auth.Provider),
		})
	}
	if c.Auth.BcryptCost != 0 && (c.Auth.BcryptCost < 4 || c.Auth.BcryptCost > 31) {
		errs = append(errs, *RangeError("auth.bcrypt_cost", 4, 31))
	}
	if c.Auth.LoginBurst < 0 {
		errs = append(errs, ValidationError{Field: "auth.login_burst", Message: "login_burst must not be negative"})
	}
	if c.Auth.LoginBurst > 0 && c.Auth.LoginPerMinute <= 0 {
		errs = append(errs, ValidationError{Field: "auth.login_per_minute", Message: "login_per_minute must be positive when throttling is enabled"})
	}

	if needsBackend && c.Backend.DSN == "" {
		errs = append(errs, ValidationError{
			Field:   "backend.dsn",
			Message: "dsn is required when the catalog or auth uses the backend",
		})
	}
	return errs
}

func validateBackend(b *BackendConfig) ValidationErrors {
	var errs ValidationErrors

	// Keyword/value DSNs ("host=... dbname=...") are left to the driver.
	if strings.Contains(b.DSN, "://") {
		u, err := url.Parse(b.DSN)
		if err != nil || (u.Scheme != "postgres" && u.Scheme != "postgresql") {
			errs = append(errs, ValidationError{
				Field:   "backend.dsn",
				Message: "dsn must be a postgres:// or postgresql:// URL",
			})
		}
	}
	if b.MaxConns < 0 {
		errs = append(errs, ValidationError{
			Field:   "backend.max_conns",
			Message: "max connections cannot be negative",
		})
	}
	if b.TimeoutSec < 1 {
		errs = append(errs, ValidationError{
			Field:   "backend.timeout_sec",
			Message: "timeout must be at least 1 second",
		})
	}
	return errs
}

func validateAssistant(a *AssistantConfig) ValidationErrors {
	var errs ValidationErrors

	switch a.Provider {
	case "canned":
	case "hosted":
		if a.APIKey == "" {
			errs = append(errs, ValidationError{
				Field:   "assistant.api_key",
				Message: "api key is required for the hosted assistant (set SHOPCTL_ASSISTANT_API_KEY or GROQ_API_KEY)",
			})
		}
		if !isValidURL(a.BaseURL) {
			errs = append(errs, ValidationError{
				Field:   "assistant.base_url",
				Message: fmt.Sprintf("invalid URL: %s", a.BaseURL),
			})
		}
		if a.Model == "" {
			errs = append(errs, *RequiredFieldError("assistant.model"))
		}
	default:
		errs = append(errs, ValidationError{
			Field:   "assistant.provider",
			Message: fmt.Sprintf("invalid assistant provider: %s (valid: canned, hosted)", a.Provider),
		})
	}

	if a.Temperature < 0 || a.Temperature > 2 {
		errs = append(errs, *RangeError("assistant.temperature", 0, 2))
	}
	if a.MaxTokens < 1 {
		errs = append(errs, ValidationError{
			Field:   "assistant.max_tokens",
			Message: "max tokens must be at least 1",
		})
	}
	if a.TimeoutSec < 1 {
		errs = append(errs, ValidationError{
			Field:   "assistant.timeout_sec",
			Message: "timeout must be at least 1 second",
		})
	}
	return errs
}

func validateSession(s *SessionConfig) ValidationErrors {
	var errs ValidationErrors

	if len(s.Languages) == 0 {
		errs = append(errs, *RequiredFieldError("session.languages"))
	}
	for i, code := range s.Languages {
		if strings.TrimSpace(code) == "" {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("session.languages[%d]", i),
				Message: "language code is empty",
			})
		} else if slices.Index(s.Languages, code) != i {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("session.languages[%d]", i),
				Message: fmt.Sprintf("duplicate language %q", code),
			})
		}
	}
	return errs
}

func validateCheckout(c *CheckoutConfig) ValidationErrors {
	var errs ValidationErrors

	if c.FreeShippingAbove < 0 {
		errs = append(errs, ValidationError{
			Field:   "checkout.free_shipping_above",
			Message: "threshold cannot be negative",
		})
	}
	if c.ShippingFee < 0 {
		errs = append(errs, ValidationError{
			Field:   "checkout.shipping_fee",
			Message: "shipping fee cannot be negative",
		})
	}
	if c.TaxPercent < 0 || c.TaxPercent > 100 {
		errs = append(errs, *RangeError("checkout.tax_percent", 0, 100))
	}
	return errs
}

func isValidURL(rawURL string) bool {
	if rawURL == "" {
		return false
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// RequiredFieldError creates a validation error for a required field.
func RequiredFieldError(field string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: "required field is missing",
	}
}

// RangeError creates a validation error for an out-of-range value.
func RangeError(field string, min, max any) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: fmt.Sprintf("value must be between %v and %v", min, max),
	}
}
