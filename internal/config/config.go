// Package config handles resolving configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"

	"github.com/castellan/castellan/internal/sec"
)

// Defaults for optional settings.
const (
	// DefaultTokenTTLMinutes is five hours, the conventional lifetime for
	// the service's access tokens.
	DefaultTokenTTLMinutes = 300
	defaultListenAddress   = "localhost:9990"
	defaultLogLevel        = "info"
)

// Config holds all service configuration. It is loaded once at startup and
// treated as read-only thereafter; there is no hot-reload path.
type Config struct {
	ListenAddress    string     `yaml:"listen_address"`
	DBFilepath       string     `yaml:"db_filepath"`
	LogLevel         string     `yaml:"log_level"` // debug, info, warn or error
	DevMode          bool       `yaml:"dev_mode"`
	SecretKey        string     `yaml:"secret_key"` // must be set by the user
	TokenTTLMinutes  int        `yaml:"token_ttl_minutes"`
	PasswordHashCost int        `yaml:"password_hash_cost"`
	AccessRules      []sec.Rule `yaml:"access_rules"`
}

// Default returns a config with all default values populated. Note that this
// configuration is _not_ valid, as the user must set secret_key.
func Default() *Config {
	return &Config{
		ListenAddress:    defaultListenAddress,
		DBFilepath:       filepath.Join(xdg.DataHome, "castellan", "db.sqlite"),
		LogLevel:         defaultLogLevel,
		TokenTTLMinutes:  DefaultTokenTTLMinutes,
		PasswordHashCost: bcrypt.DefaultCost,
	}
}

// Load loads a YAML configuration file from a path, merges it with defaults,
// and validates it for completeness.
func Load(path string) (*Config, error) {
	bytes, err := os.ReadFile(path) //nolint:gosec // allow the config file to be loaded from anywhere
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	cfg := Default()
	if err = yaml.Unmarshal(bytes, cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config file at %s: %w", path, err)
	}
	if err = cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// Secret returns the token signing key as bytes.
func (c *Config) Secret() []byte { return []byte(c.SecretKey) }

// TokenTTL returns the token lifetime as a [time.Duration].
func (c *Config) TokenTTL() time.Duration {
	return time.Duration(c.TokenTTLMinutes) * time.Minute
}

// Rules returns the configured access rules, or [DefaultRules] when none are
// configured.
func (c *Config) Rules() []sec.Rule {
	if len(c.AccessRules) == 0 {
		return DefaultRules()
	}
	return c.AccessRules
}

// DefaultRules returns the access rules applied when the config lists none.
// Order matters: the gate takes the first match, so the catch-all must stay
// last.
func DefaultRules() []sec.Rule {
	return []sec.Rule{
		{Path: "/", Public: true},
		{Path: "/token", Public: true},
		{Path: "/register", Public: true},
		{Path: "/contact", Public: true},
		{Path: "/admin", Roles: []string{"ADMIN"}},
		{Path: "/user", Roles: []string{"ADMIN", "USER"}},
		{Path: "/**"},
	}
}

const minSecretKeyLen = 32

func (c *Config) validate() error {
	if c.SecretKey == "" {
		return fmt.Errorf("secret_key must be set")
	}
	if len(c.SecretKey) < minSecretKeyLen {
		return fmt.Errorf("secret_key must be at least %d bytes", minSecretKeyLen)
	}
	if c.TokenTTLMinutes <= 0 {
		return fmt.Errorf("token_ttl_minutes must be positive")
	}
	if c.PasswordHashCost < bcrypt.MinCost || c.PasswordHashCost > bcrypt.MaxCost {
		return fmt.Errorf("password_hash_cost must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level must be one of debug, info, warn, error")
	}
	for _, rule := range c.AccessRules {
		if rule.Path == "" {
			return fmt.Errorf("access_rules entries must set path")
		}
		if rule.Public && len(rule.Roles) > 0 {
			return fmt.Errorf("access rule for %s cannot be public and role-scoped", rule.Path)
		}
	}
	return nil
}
