// ABOUTME: Configuration loading and parsing for mingle-client
// ABOUTME: Supports YAML or TOML files with environment variable expansion and duration parsing

package config

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Storage drivers.
const (
	DriverSQLite = "sqlite"
	DriverMemory = "memory"
)

// Config represents the complete mingle-client configuration
type Config struct {
	Storage StorageConfig `yaml:"storage" toml:"storage"`
	Router  RouterConfig  `yaml:"router" toml:"router"`
	Cache   CacheConfig   `yaml:"cache" toml:"cache"`
	Mute    MuteConfig    `yaml:"mute" toml:"mute"`
	Session SessionConfig `yaml:"session" toml:"session"`
	Logging LoggingConfig `yaml:"logging" toml:"logging"`
}

// StorageConfig selects where the always-on cache snapshot is kept
type StorageConfig struct {
	Driver string `yaml:"driver" toml:"driver"`
	Path   string `yaml:"path" toml:"path"`
}

// RouterConfig holds event routing timing configuration
type RouterConfig struct {
	MatchCooldown   time.Duration `yaml:"-" toml:"-"`
	MessageCooldown time.Duration `yaml:"-" toml:"-"`
	MuteTimeout     time.Duration `yaml:"-" toml:"-"`
	SweepInterval   time.Duration `yaml:"-" toml:"-"`

	// Raw string values for unmarshaling
	MatchCooldownRaw   string `yaml:"match_cooldown" toml:"match_cooldown"`
	MessageCooldownRaw string `yaml:"message_cooldown" toml:"message_cooldown"`
	MuteTimeoutRaw     string `yaml:"mute_timeout" toml:"mute_timeout"`
	SweepIntervalRaw   string `yaml:"sweep_interval" toml:"sweep_interval"`

	// PreviewLength is the toast preview length in characters; 0 disables truncation
	PreviewLength int `yaml:"preview_length" toml:"preview_length"`
}

// CacheConfig holds bounded tier capacities
type CacheConfig struct {
	MaxActiveChats    int `yaml:"max_active_chats" toml:"max_active_chats"`
	MaxRecentProfiles int `yaml:"max_recent_profiles" toml:"max_recent_profiles"`
}

// MuteConfig points at the mute lookup service. An empty BaseURL disables lookups.
type MuteConfig struct {
	BaseURL string `yaml:"base_url" toml:"base_url"`
	Token   string `yaml:"token" toml:"token"`
}

// SessionConfig holds the client's session token
type SessionConfig struct {
	Token string `yaml:"token" toml:"token"`

	// VerifySecret, when set, enables HS256 verification of Token
	VerifySecret string `yaml:"verify_secret" toml:"verify_secret"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"`
}

// SlogLevel maps Level to a slog.Level. Unknown values map to info.
func (l LoggingConfig) SlogLevel() slog.Level {
	switch strings.ToLower(l.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Default returns a valid configuration with the built-in defaults.
func Default() Config {
	cfg := Config{
		Storage: StorageConfig{
			Driver: DriverSQLite,
			Path:   DefaultDatabasePath(),
		},
		Router: RouterConfig{
			MatchCooldownRaw:   "5s",
			MessageCooldownRaw: "3s",
			MuteTimeoutRaw:     "3s",
			SweepIntervalRaw:   "1m",
			PreviewLength:      80,
		},
		Cache: CacheConfig{
			MaxActiveChats:    5,
			MaxRecentProfiles: 20,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
	// The defaults above are known-good
	_ = parseDurations(&cfg)
	return cfg
}

// Load reads a configuration file from the given path and returns a parsed Config.
// Files ending in .toml are decoded as TOML, everything else as YAML.
// Environment variables in the format ${VAR_NAME} are expanded.
// Keys missing from the file keep their default values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables in the raw content
	expanded := expandEnvVars(string(data))

	cfg := Default()
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		if _, err := toml.Decode(expanded, &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	} else {
		if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	// Parse duration fields
	if err := parseDurations(&cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	// Validate required fields
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

// Validate checks that all configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case DriverSQLite:
		if c.Storage.Path == "" {
			return fmt.Errorf("storage.path is required for the sqlite driver")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("storage.driver must be %q or %q, got %q", DriverSQLite, DriverMemory, c.Storage.Driver)
	}

	if c.Router.MatchCooldown <= 0 {
		return fmt.Errorf("router.match_cooldown must be positive")
	}
	if c.Router.MessageCooldown <= 0 {
		return fmt.Errorf("router.message_cooldown must be positive")
	}
	if c.Router.MuteTimeout <= 0 {
		return fmt.Errorf("router.mute_timeout must be positive")
	}
	if c.Router.SweepInterval < 0 {
		return fmt.Errorf("router.sweep_interval must not be negative")
	}
	if c.Router.PreviewLength < 0 {
		return fmt.Errorf("router.preview_length must not be negative")
	}

	if c.Cache.MaxActiveChats < 1 {
		return fmt.Errorf("cache.max_active_chats must be at least 1")
	}
	if c.Cache.MaxRecentProfiles < 1 {
		return fmt.Errorf("cache.max_recent_profiles must be at least 1")
	}

	if c.Mute.BaseURL != "" {
		u, err := url.Parse(c.Mute.BaseURL)
		if err != nil {
			return fmt.Errorf("mute.base_url is not a valid URL: %w", err)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return fmt.Errorf("mute.base_url must use http or https scheme")
		}
	}

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error, got %q", c.Logging.Level)
	}

	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format must be \"text\" or \"json\", got %q", c.Logging.Format)
	}

	return nil
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	fields := []struct {
		name string
		raw  string
		dst  *time.Duration
	}{
		{"match_cooldown", cfg.Router.MatchCooldownRaw, &cfg.Router.MatchCooldown},
		{"message_cooldown", cfg.Router.MessageCooldownRaw, &cfg.Router.MessageCooldown},
		{"mute_timeout", cfg.Router.MuteTimeoutRaw, &cfg.Router.MuteTimeout},
		{"sweep_interval", cfg.Router.SweepIntervalRaw, &cfg.Router.SweepInterval},
	}

	for _, f := range fields {
		if f.raw == "" {
			continue
		}
		d, err := time.ParseDuration(f.raw)
		if err != nil {
			return fmt.Errorf("parsing %s %q: %w", f.name, f.raw, err)
		}
		*f.dst = d
	}
	return nil
}

// DefaultConfigPath returns the config file location: $MINGLE_CONFIG when set,
// otherwise ~/.config/mingle/client.yaml.
func DefaultConfigPath() string {
	if p := os.Getenv("MINGLE_CONFIG"); p != "" {
		return p
	}
	return filepath.Join(xdgDir("XDG_CONFIG_HOME", ".config"), "mingle", "client.yaml")
}

// DefaultDatabasePath returns ~/.local/share/mingle/client.db (XDG data dir).
func DefaultDatabasePath() string {
	return filepath.Join(xdgDir("XDG_DATA_HOME", filepath.Join(".local", "share")), "mingle", "client.db")
}

func xdgDir(env, fallback string) string {
	if dir := os.Getenv(env); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return fallback
	}
	return filepath.Join(home, fallback)
}

// Marshal encodes cfg as YAML, or TOML when asTOML is set.
func Marshal(cfg Config, asTOML bool) ([]byte, error) {
	if asTOML {
		var buf bytes.Buffer
		if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
			return nil, fmt.Errorf("encoding toml: %w", err)
		}
		return buf.Bytes(), nil
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("encoding yaml: %w", err)
	}
	return data, nil
}

// WriteDefault writes the default configuration to path, creating parent
// directories. The format follows the file extension. It refuses to
// overwrite an existing file.
func WriteDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists: %s", path)
	}

	cfg := Default()
	cfg.Session.Token = "${MINGLE_SESSION_TOKEN}"

	data, err := Marshal(cfg, strings.EqualFold(filepath.Ext(path), ".toml"))
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
