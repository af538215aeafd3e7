// ABOUTME: Tests for configuration loading and parsing
// ABOUTME: Covers YAML and TOML loading, env var expansion, defaults, duration parsing, and validation

package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return path
}

func TestLoad_ValidConfig(t *testing.T) {
	configPath := writeConfig(t, "client.yaml", `
storage:
  driver: "sqlite"
  path: "./client.db"

router:
  match_cooldown: "10s"
  message_cooldown: "1500ms"
  mute_timeout: "2s"
  sweep_interval: "30s"
  preview_length: 40

cache:
  max_active_chats: 8
  max_recent_profiles: 50

mute:
  base_url: "https://api.example.com"
  token: "mute-token"

session:
  token: "header.payload.sig"

logging:
  level: "debug"
  format: "json"
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Storage.Driver != DriverSQLite {
		t.Errorf("Storage.Driver = %q, want %q", cfg.Storage.Driver, DriverSQLite)
	}
	if cfg.Storage.Path != "./client.db" {
		t.Errorf("Storage.Path = %q, want %q", cfg.Storage.Path, "./client.db")
	}
	if cfg.Router.MatchCooldown != 10*time.Second {
		t.Errorf("Router.MatchCooldown = %v, want %v", cfg.Router.MatchCooldown, 10*time.Second)
	}
	if cfg.Router.MessageCooldown != 1500*time.Millisecond {
		t.Errorf("Router.MessageCooldown = %v, want %v", cfg.Router.MessageCooldown, 1500*time.Millisecond)
	}
	if cfg.Router.MuteTimeout != 2*time.Second {
		t.Errorf("Router.MuteTimeout = %v, want %v", cfg.Router.MuteTimeout, 2*time.Second)
	}
	if cfg.Router.SweepInterval != 30*time.Second {
		t.Errorf("Router.SweepInterval = %v, want %v", cfg.Router.SweepInterval, 30*time.Second)
	}
	if cfg.Router.PreviewLength != 40 {
		t.Errorf("Router.PreviewLength = %d, want 40", cfg.Router.PreviewLength)
	}
	if cfg.Cache.MaxActiveChats != 8 {
		t.Errorf("Cache.MaxActiveChats = %d, want 8", cfg.Cache.MaxActiveChats)
	}
	if cfg.Cache.MaxRecentProfiles != 50 {
		t.Errorf("Cache.MaxRecentProfiles = %d, want 50", cfg.Cache.MaxRecentProfiles)
	}
	if cfg.Mute.BaseURL != "https://api.example.com" {
		t.Errorf("Mute.BaseURL = %q", cfg.Mute.BaseURL)
	}
	if cfg.Mute.Token != "mute-token" {
		t.Errorf("Mute.Token = %q", cfg.Mute.Token)
	}
	if cfg.Session.Token != "header.payload.sig" {
		t.Errorf("Session.Token = %q", cfg.Session.Token)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want %q", cfg.Logging.Level, "debug")
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("Logging.Format = %q, want %q", cfg.Logging.Format, "json")
	}
}

func TestLoad_TOML(t *testing.T) {
	configPath := writeConfig(t, "client.toml", `
[storage]
driver = "memory"

[router]
message_cooldown = "4s"
preview_length = 0

[logging]
level = "warn"
format = "text"
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Storage.Driver != DriverMemory {
		t.Errorf("Storage.Driver = %q, want %q", cfg.Storage.Driver, DriverMemory)
	}
	if cfg.Router.MessageCooldown != 4*time.Second {
		t.Errorf("Router.MessageCooldown = %v, want 4s", cfg.Router.MessageCooldown)
	}
	if cfg.Router.MatchCooldown != 5*time.Second {
		t.Errorf("Router.MatchCooldown = %v, want default 5s", cfg.Router.MatchCooldown)
	}
	if cfg.Router.PreviewLength != 0 {
		t.Errorf("Router.PreviewLength = %d, want 0", cfg.Router.PreviewLength)
	}
	if cfg.Logging.SlogLevel() != slog.LevelWarn {
		t.Errorf("Logging.SlogLevel() = %v, want %v", cfg.Logging.SlogLevel(), slog.LevelWarn)
	}
}

func TestLoad_DefaultsForMissingKeys(t *testing.T) {
	configPath := writeConfig(t, "client.yaml", `
storage:
  driver: "memory"
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	def := Default()
	if cfg.Router.MatchCooldown != def.Router.MatchCooldown {
		t.Errorf("Router.MatchCooldown = %v, want %v", cfg.Router.MatchCooldown, def.Router.MatchCooldown)
	}
	if cfg.Router.MessageCooldown != def.Router.MessageCooldown {
		t.Errorf("Router.MessageCooldown = %v, want %v", cfg.Router.MessageCooldown, def.Router.MessageCooldown)
	}
	if cfg.Router.PreviewLength != 80 {
		t.Errorf("Router.PreviewLength = %d, want 80", cfg.Router.PreviewLength)
	}
	if cfg.Cache.MaxActiveChats != 5 || cfg.Cache.MaxRecentProfiles != 20 {
		t.Errorf("Cache = %+v, want 5/20", cfg.Cache)
	}
	if cfg.Logging.Format != "text" {
		t.Errorf("Logging.Format = %q, want %q", cfg.Logging.Format, "text")
	}
}

func TestLoad_EnvVarExpansion(t *testing.T) {
	t.Setenv("TEST_SESSION_TOKEN", "token-from-env")
	t.Setenv("TEST_MUTE_URL", "http://localhost:9000")

	configPath := writeConfig(t, "client.yaml", `
storage:
  driver: "memory"
mute:
  base_url: "${TEST_MUTE_URL}"
session:
  token: "${TEST_SESSION_TOKEN}"
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Session.Token != "token-from-env" {
		t.Errorf("Session.Token = %q, want %q", cfg.Session.Token, "token-from-env")
	}
	if cfg.Mute.BaseURL != "http://localhost:9000" {
		t.Errorf("Mute.BaseURL = %q, want %q", cfg.Mute.BaseURL, "http://localhost:9000")
	}
}

func TestLoad_EnvVarExpansion_UnsetVar(t *testing.T) {
	os.Unsetenv("MINGLE_TEST_UNSET_VAR")

	configPath := writeConfig(t, "client.yaml", `
storage:
  driver: "memory"
session:
  token: "${MINGLE_TEST_UNSET_VAR}"
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Session.Token != "" {
		t.Errorf("Session.Token = %q, want empty string for unset var", cfg.Session.Token)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/client.yaml")
	if err == nil {
		t.Error("Load() should return error for missing file")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	configPath := writeConfig(t, "client.yaml", "storage:\n  driver: [unclosed\n")

	_, err := Load(configPath)
	if err == nil {
		t.Error("Load() should return error for invalid YAML")
	}
}

func TestLoad_InvalidTOML(t *testing.T) {
	configPath := writeConfig(t, "client.toml", "[storage\ndriver = \n")

	_, err := Load(configPath)
	if err == nil {
		t.Error("Load() should return error for invalid TOML")
	}
}

func TestLoad_InvalidDuration(t *testing.T) {
	tests := []struct {
		name  string
		field string
	}{
		{name: "invalid match_cooldown", field: "match_cooldown"},
		{name: "invalid message_cooldown", field: "message_cooldown"},
		{name: "invalid mute_timeout", field: "mute_timeout"},
		{name: "invalid sweep_interval", field: "sweep_interval"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			configPath := writeConfig(t, "client.yaml", "storage:\n  driver: memory\nrouter:\n  "+tt.field+": \"soon\"\n")

			_, err := Load(configPath)
			if err == nil {
				t.Fatal("Load() should return error for invalid duration")
			}
			if !strings.Contains(err.Error(), tt.field) {
				t.Errorf("error %q should mention %s", err, tt.field)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "defaults are valid", mutate: func(*Config) {}},
		{name: "memory needs no path", mutate: func(c *Config) {
			c.Storage.Driver = DriverMemory
			c.Storage.Path = ""
		}},
		{name: "unknown driver", mutate: func(c *Config) { c.Storage.Driver = "postgres" }, wantErr: "storage.driver"},
		{name: "sqlite without path", mutate: func(c *Config) { c.Storage.Path = "" }, wantErr: "storage.path"},
		{name: "zero match cooldown", mutate: func(c *Config) { c.Router.MatchCooldown = 0 }, wantErr: "router.match_cooldown"},
		{name: "zero message cooldown", mutate: func(c *Config) { c.Router.MessageCooldown = 0 }, wantErr: "router.message_cooldown"},
		{name: "zero mute timeout", mutate: func(c *Config) { c.Router.MuteTimeout = 0 }, wantErr: "router.mute_timeout"},
		{name: "zero sweep disables", mutate: func(c *Config) { c.Router.SweepInterval = 0 }},
		{name: "negative sweep", mutate: func(c *Config) { c.Router.SweepInterval = -time.Second }, wantErr: "router.sweep_interval"},
		{name: "negative preview", mutate: func(c *Config) { c.Router.PreviewLength = -1 }, wantErr: "router.preview_length"},
		{name: "no chats", mutate: func(c *Config) { c.Cache.MaxActiveChats = 0 }, wantErr: "cache.max_active_chats"},
		{name: "no profiles", mutate: func(c *Config) { c.Cache.MaxRecentProfiles = 0 }, wantErr: "cache.max_recent_profiles"},
		{name: "mute url scheme", mutate: func(c *Config) { c.Mute.BaseURL = "ftp://example.com" }, wantErr: "mute.base_url"},
		{name: "bad log level", mutate: func(c *Config) { c.Logging.Level = "loud" }, wantErr: "logging.level"},
		{name: "bad log format", mutate: func(c *Config) { c.Logging.Format = "xml" }, wantErr: "logging.format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v, want nil", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() = nil, want error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %q, want it to contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("TEST_VAR_1", "value1")
	t.Setenv("TEST_VAR_2", "value2")

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "no vars", input: "plain text", want: "plain text"},
		{name: "single var", input: "${TEST_VAR_1}", want: "value1"},
		{name: "multiple vars", input: "${TEST_VAR_1}-${TEST_VAR_2}", want: "value1-value2"},
		{name: "unset var", input: "a${MINGLE_TEST_NOT_SET}b", want: "ab"},
		{name: "bare dollar untouched", input: "$TEST_VAR_1", want: "$TEST_VAR_1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := expandEnvVars(tt.input); got != tt.want {
				t.Errorf("expandEnvVars(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestSlogLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
	}
	for level, want := range tests {
		if got := (LoggingConfig{Level: level}).SlogLevel(); got != want {
			t.Errorf("SlogLevel(%q) = %v, want %v", level, got, want)
		}
	}
}

func TestWriteDefault_RoundTrip(t *testing.T) {
	for _, name := range []string{"client.yaml", "client.toml"} {
		t.Run(name, func(t *testing.T) {
			t.Setenv("MINGLE_SESSION_TOKEN", "tok")
			path := filepath.Join(t.TempDir(), "nested", name)

			if err := WriteDefault(path); err != nil {
				t.Fatalf("WriteDefault() error = %v", err)
			}
			if err := WriteDefault(path); err == nil {
				t.Error("WriteDefault() should refuse to overwrite")
			}

			cfg, err := Load(path)
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			def := Default()
			if cfg.Router != def.Router {
				t.Errorf("Router = %+v, want %+v", cfg.Router, def.Router)
			}
			if cfg.Cache != def.Cache {
				t.Errorf("Cache = %+v, want %+v", cfg.Cache, def.Cache)
			}
			if cfg.Session.Token != "tok" {
				t.Errorf("Session.Token = %q, want env-expanded %q", cfg.Session.Token, "tok")
			}
		})
	}
}

func TestDefaultConfigPath(t *testing.T) {
	t.Setenv("MINGLE_CONFIG", "/etc/mingle.yaml")
	if got := DefaultConfigPath(); got != "/etc/mingle.yaml" {
		t.Errorf("DefaultConfigPath() = %q, want $MINGLE_CONFIG", got)
	}

	t.Setenv("MINGLE_CONFIG", "")
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg")
	if got := DefaultConfigPath(); got != filepath.Join("/tmp/xdg", "mingle", "client.yaml") {
		t.Errorf("DefaultConfigPath() = %q", got)
	}
}
