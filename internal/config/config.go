// Package config handles configuration loading, validation, and management for shopctl.
package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"slices"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"smartshop/internal/assistant"
	"smartshop/internal/checkout"
	"smartshop/internal/fsutil"
	"smartshop/internal/kv"
)

// Version is the current configuration schema version.
const Version = 1

// Config holds the complete shopctl configuration.
type Config struct {
	// Version is the configuration schema version.
	Version int `toml:"version" json:"version" yaml:"version"`

	// Storage configures the durable mirror's key-value store.
	Storage StorageConfig `toml:"storage" json:"storage" yaml:"storage"`

	// Logging configuration.
	Logging LoggingConfig `toml:"logging" json:"logging" yaml:"logging"`

	// Catalog selects where products come from.
	Catalog CatalogConfig `toml:"catalog" json:"catalog" yaml:"catalog"`

	// Backend configures the hosted Postgres database.
	Backend BackendConfig `toml:"backend" json:"backend" yaml:"backend"`

	// Auth selects the account directory.
	Auth AuthConfig `toml:"auth" json:"auth" yaml:"auth"`

	// Assistant configures the chat assistant.
	Assistant AssistantConfig `toml:"assistant" json:"assistant" yaml:"assistant"`

	// Session tunes rehydration and the accepted languages.
	Session SessionConfig `toml:"session" json:"session" yaml:"session"`

	// Checkout holds the pricing rules.
	Checkout CheckoutConfig `toml:"checkout" json:"checkout" yaml:"checkout"`
}

// StorageConfig holds persistence configuration.
type StorageConfig struct {
	// Type is the store backend: "sqlite", "log" or "memory".
	Type string `toml:"type" json:"type" yaml:"type"`

	// DataDir holds the store file and the directory lock.
	DataDir string `toml:"data_dir" json:"data_dir" yaml:"data_dir"`

	// Path overrides the store file location inside DataDir.
	Path string `toml:"path" json:"path" yaml:"path"`

	// CompactThreshold is the dead-record count that triggers log compaction.
	CompactThreshold int `toml:"compact_threshold" json:"compact_threshold" yaml:"compact_threshold"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the log level: "debug", "info", "warn", "error".
	Level string `toml:"level" json:"level" yaml:"level"`

	// Format is the log format: "text" or "json".
	Format string `toml:"format" json:"format" yaml:"format"`

	// Output is "stdout", "stderr", "file" or "both" (stderr and file).
	Output string `toml:"output" json:"output" yaml:"output"`

	// FilePath is the log file for the "file" and "both" outputs.
	FilePath string `toml:"file_path" json:"file_path" yaml:"file_path"`

	// MaxSizeMB is the maximum log file size before rotation.
	MaxSizeMB int `toml:"max_size_mb" json:"max_size_mb" yaml:"max_size_mb"`

	// MaxBackups is the number of old log files to keep.
	MaxBackups int `toml:"max_backups" json:"max_backups" yaml:"max_backups"`

	// Compress gzips rotated logs.
	Compress bool `toml:"compress" json:"compress" yaml:"compress"`
}

// CatalogConfig selects the product source.
type CatalogConfig struct {
	// Source is "static" (JSON file or the built-in sample) or "backend".
	Source string `toml:"source" json:"source" yaml:"source"`

	// Path is a JSON product list for the static source. Empty uses the sample.
	Path string `toml:"path" json:"path" yaml:"path"`
}

// BackendConfig holds the hosted database connection.
type BackendConfig struct {
	// DSN is a pgx connection string.
	DSN string `toml:"dsn" json:"dsn" yaml:"dsn"`

	// MaxConns caps the pool. Zero keeps the driver default.
	MaxConns int `toml:"max_conns" json:"max_conns" yaml:"max_conns"`

	// TimeoutSec bounds each backend call.
	TimeoutSec int `toml:"timeout_sec" json:"timeout_sec" yaml:"timeout_sec"`

	// EnsureSchema creates missing tables on connect.
	EnsureSchema bool `toml:"ensure_schema" json:"ensure_schema" yaml:"ensure_schema"`
}

// AuthConfig selects the account directory.
type AuthConfig struct {
	// Provider is "local" (accounts in the session store) or "backend".
	Provider string `toml:"provider" json:"provider" yaml:"provider"`

	// BcryptCost is the password hashing cost. Zero uses the library default.
	BcryptCost int `toml:"bcrypt_cost" json:"bcrypt_cost" yaml:"bcrypt_cost"`

	// LoginBurst is the number of login attempts allowed per email before
	// throttling. Zero disables throttling.
	LoginBurst int `toml:"login_burst" json:"login_burst" yaml:"login_burst"`

	// LoginPerMinute is the rate at which login attempts are replenished.
	LoginPerMinute float64 `toml:"login_per_minute" json:"login_per_minute" yaml:"login_per_minute"`
}

// AssistantConfig configures the chat assistant.
type AssistantConfig struct {
	// Provider is "canned" (offline keyword replies) or "hosted".
	Provider string `toml:"provider" json:"provider" yaml:"provider"`

	// APIKey authenticates against the hosted endpoint. Prefer the environment.
	APIKey string `toml:"api_key" json:"api_key" yaml:"api_key"`

	// BaseURL is the OpenAI-compatible API root.
	BaseURL string `toml:"base_url" json:"base_url" yaml:"base_url"`

	Model       string  `toml:"model" json:"model" yaml:"model"`
	Temperature float64 `toml:"temperature" json:"temperature" yaml:"temperature"`
	MaxTokens   int     `toml:"max_tokens" json:"max_tokens" yaml:"max_tokens"`
	TimeoutSec  int     `toml:"timeout_sec" json:"timeout_sec" yaml:"timeout_sec"`
}

// SessionConfig tunes the session store.
type SessionConfig struct {
	// RestoreWishlist reloads the persisted wishlist at start.
	RestoreWishlist bool `toml:"restore_wishlist" json:"restore_wishlist" yaml:"restore_wishlist"`

	// Languages are the accepted language codes.
	Languages []string `toml:"languages" json:"languages" yaml:"languages"`
}

// CheckoutConfig holds the pricing rules in whole currency units.
type CheckoutConfig struct {
	FreeShippingAbove int64 `toml:"free_shipping_above" json:"free_shipping_above" yaml:"free_shipping_above"`
	ShippingFee       int64 `toml:"shipping_fee" json:"shipping_fee" yaml:"shipping_fee"`
	TaxPercent        int64 `toml:"tax_percent" json:"tax_percent" yaml:"tax_percent"`
}

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() *Config {
	dataDir := DataDir()
	pricing := checkout.DefaultPricing()

	return &Config{
		Version: Version,
		Storage: StorageConfig{
			Type:             kv.KindSQLite,
			DataDir:          dataDir,
			CompactThreshold: kv.DefaultCompactThreshold,
		},
		Logging: LoggingConfig{
			Level:      "warn",
			Format:     "text",
			Output:     "stderr",
			FilePath:   filepath.Join(dataDir, "logs", "shopctl.log"),
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
		Catalog: CatalogConfig{
			Source: "static",
		},
		Backend: BackendConfig{
			MaxConns:   4,
			TimeoutSec: 10,
		},
		Auth: AuthConfig{
			Provider:       "local",
			LoginBurst:     5,
			LoginPerMinute: 5,
		},
		Assistant: AssistantConfig{
			Provider:    "canned",
			BaseURL:     assistant.DefaultBaseURL,
			Model:       assistant.DefaultModel,
			Temperature: assistant.DefaultTemperature,
			MaxTokens:   assistant.DefaultMaxTokens,
			TimeoutSec:  int(assistant.DefaultTimeout / time.Second),
		},
		Session: SessionConfig{
			Languages: []string{"en", "hi", "ta", "te", "bn", "mr"},
		},
		Checkout: CheckoutConfig{
			FreeShippingAbove: pricing.FreeShippingAbove,
			ShippingFee:       pricing.ShippingFee,
			TaxPercent:        pricing.TaxPercent,
		},
	}
}

// DataDir returns the base shopctl directory.
// Uses platform-specific paths or the SHOPCTL_DATA_DIR environment override.
func DataDir() string {
	if envDir := os.Getenv("SHOPCTL_DATA_DIR"); envDir != "" {
		return envDir
	}
	return PlatformDataDir()
}

// ConfigPath returns the default configuration file path.
func ConfigPath() string {
	return filepath.Join(DataDir(), "config.toml")
}

// Load reads configuration from the specified path.
// If the file doesn't exist, returns default configuration.
// Supports TOML, JSON, and YAML formats based on file extension.
func Load(path string) (*Config, error) {
	if path == "" {
		path = ConfigPath()
	}
	cfg, err := loadConfigFromFile(path)
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnvOverrides()
	return cfg, nil
}

// loadConfigFromFile reads and parses a config file based on its extension.
func loadConfigFromFile(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config file: %w", err)
	}

	switch filepath.Ext(path) {
	case ".toml":
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return nil, fmt.Errorf("decode TOML: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("decode JSON: %w", err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("decode YAML: %w", err)
		}
	default:
		if err := autoDetectAndParse(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}
	return cfg, nil
}

// autoDetectAndParse tries TOML, then JSON, then YAML. Each attempt decodes
// into a fresh default config so a failed attempt leaves nothing behind.
func autoDetectAndParse(data []byte, cfg *Config) error {
	decoders := []func(*Config) error{
		func(c *Config) error { _, err := toml.Decode(string(data), c); return err },
		func(c *Config) error { return json.Unmarshal(data, c) },
		func(c *Config) error { return yaml.Unmarshal(data, c) },
	}
	for _, decode := range decoders {
		candidate := DefaultConfig()
		if err := decode(candidate); err == nil {
			*cfg = *candidate
			return nil
		}
	}
	return fmt.Errorf("unable to parse config file (tried TOML, JSON, YAML)")
}

// ApplyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables are prefixed with SHOPCTL_. GROQ_API_KEY is honored
// when no assistant key is set.
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("SHOPCTL_DATA_DIR"); v != "" {
		c.Storage.DataDir = v
	}
	if v := os.Getenv("SHOPCTL_STORAGE_TYPE"); v != "" {
		c.Storage.Type = strings.ToLower(v)
	}
	if v := os.Getenv("SHOPCTL_LOG_LEVEL"); v != "" {
		c.Logging.Level = strings.ToLower(v)
	}
	if v := os.Getenv("SHOPCTL_BACKEND_DSN"); v != "" {
		c.Backend.DSN = v
	}
	if v := os.Getenv("SHOPCTL_ASSISTANT_API_KEY"); v != "" {
		c.Assistant.APIKey = v
	} else if v := os.Getenv("GROQ_API_KEY"); v != "" && c.Assistant.APIKey == "" {
		c.Assistant.APIKey = v
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	return ValidateConfig(c)
}

// EnsureDirectories creates the data directory and the log directory.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Storage.DataDir}
	if c.Logging.Output == "file" || c.Logging.Output == "both" {
		dirs = append(dirs, filepath.Dir(c.Logging.FilePath))
	}
	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, fsutil.PermPrivateDir); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}

// Clone returns a deep copy of the configuration.
func (c *Config) Clone() *Config {
	clone := *c
	clone.Session.Languages = slices.Clone(c.Session.Languages)
	return &clone
}

// liveSections are applied by a running shell without a restart.
var liveSections = []string{"logging", "assistant", "checkout"}

// Changed lists the top-level sections that differ between old and next,
// in file order.
func Changed(old, next *Config) []string {
	sections := []struct {
		name string
		a, b any
	}{
		{"version", old.Version, next.Version},
		{"storage", old.Storage, next.Storage},
		{"logging", old.Logging, next.Logging},
		{"catalog", old.Catalog, next.Catalog},
		{"backend", old.Backend, next.Backend},
		{"auth", old.Auth, next.Auth},
		{"assistant", old.Assistant, next.Assistant},
		{"session", old.Session, next.Session},
		{"checkout", old.Checkout, next.Checkout},
	}
	var changed []string
	for _, s := range sections {
		if !reflect.DeepEqual(s.a, s.b) {
			changed = append(changed, s.name)
		}
	}
	return changed
}

// NeedsRestart drops the sections a running shell applies live.
func NeedsRestart(sections []string) []string {
	var out []string
	for _, s := range sections {
		if !slices.Contains(liveSections, s) {
			out = append(out, s)
		}
	}
	return out
}

// StoragePath returns the key-value store file.
func (c *Config) StoragePath() string {
	if c.Storage.Path != "" {
		return c.Storage.Path
	}
	return filepath.Join(c.Storage.DataDir, kv.FileName(c.Storage.Type))
}

// Pricing returns the checkout pricing rules.
func (c *Config) Pricing() checkout.Pricing {
	return checkout.Pricing{
		FreeShippingAbove: c.Checkout.FreeShippingAbove,
		ShippingFee:       c.Checkout.ShippingFee,
		TaxPercent:        c.Checkout.TaxPercent,
	}
}

// Hosted returns the hosted assistant settings.
func (c *Config) Hosted() assistant.HostedConfig {
	return assistant.HostedConfig{
		APIKey:      c.Assistant.APIKey,
		BaseURL:     c.Assistant.BaseURL,
		Model:       c.Assistant.Model,
		Temperature: c.Assistant.Temperature,
		MaxTokens:   c.Assistant.MaxTokens,
		Timeout:     time.Duration(c.Assistant.TimeoutSec) * time.Second,
	}
}

// BackendTimeout bounds a single backend call.
func (c *Config) BackendTimeout() time.Duration {
	return time.Duration(c.Backend.TimeoutSec) * time.Second
}

// SupportsLanguage reports whether code is an accepted language.
func (c *Config) SupportsLanguage(code string) bool {
	return slices.Contains(c.Session.Languages, code)
}

// Save writes cfg to path. The format follows the extension; anything
// other than .json or .yaml/.yml is written as TOML.
func Save(cfg *Config, path string) error {
	var data []byte
	var err error

	switch filepath.Ext(path) {
	case ".json":
		data, err = json.MarshalIndent(cfg, "", "  ")
	case ".yaml", ".yml":
		data, err = yaml.Marshal(cfg)
	default:
		var buf bytes.Buffer
		err = toml.NewEncoder(&buf).Encode(cfg)
		data = buf.Bytes()
	}
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	if err := fsutil.WriteFile(path, data, fsutil.PermPrivateFile); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
