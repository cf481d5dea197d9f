package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"gopkg.in/yaml.v3"
)

// Helper to clear all config-related env vars
func clearEnv(t *testing.T) {
	t.Helper()
	envVars := []string{
		"TALLY_CONFIG_PATH",
		"TALLY_PORT",
		"TALLY_READ_TIMEOUT",
		"TALLY_WRITE_TIMEOUT",
		"TALLY_SHUTDOWN_TIMEOUT",
		"TALLY_DB_PATH",
		"TALLY_LOG_LEVEL",
		"TALLY_LOG_FORMAT",
		"TALLY_DEFAULT_TIMEZONE",
		"TALLY_DEMO_EMAIL",
	}
	for _, v := range envVars {
		os.Unsetenv(v)
	}
	// Keep a stray config/tally.yaml in the working directory out of the tests.
	os.Setenv("TALLY_CONFIG_PATH", filepath.Join(t.TempDir(), "absent.yaml"))
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tally.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}
	return path
}

// dur converts Duration to time.Duration for comparison
func dur(d Duration) time.Duration {
	return time.Duration(d)
}

// Test: Default values when no config file and no env vars
func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want 8080", cfg.Server.Port)
	}
	if dur(cfg.Server.ReadTimeout) != 30*time.Second {
		t.Errorf("Server.ReadTimeout = %v, want 30s", cfg.Server.ReadTimeout)
	}
	if dur(cfg.Server.WriteTimeout) != 30*time.Second {
		t.Errorf("Server.WriteTimeout = %v, want 30s", cfg.Server.WriteTimeout)
	}
	if dur(cfg.Server.ShutdownTimeout) != 15*time.Second {
		t.Errorf("Server.ShutdownTimeout = %v, want 15s", cfg.Server.ShutdownTimeout)
	}
	if cfg.Database.Path != "data/tally.db" {
		t.Errorf("Database.Path = %q, want %q", cfg.Database.Path, "data/tally.db")
	}
	if cfg.Log.Level != "info" {
		t.Errorf("Log.Level = %q, want %q", cfg.Log.Level, "info")
	}
	if cfg.Log.Format != "json" {
		t.Errorf("Log.Format = %q, want %q", cfg.Log.Format, "json")
	}
	if cfg.Accounts.DefaultTimezone != "UTC" {
		t.Errorf("Accounts.DefaultTimezone = %q, want UTC", cfg.Accounts.DefaultTimezone)
	}
	if cfg.Demo.Email != "" {
		t.Errorf("Demo.Email = %q, want empty (demo disabled)", cfg.Demo.Email)
	}
}

func TestLoad_EnvVarOverrides(t *testing.T) {
	clearEnv(t)

	os.Setenv("TALLY_PORT", "9090")
	os.Setenv("TALLY_DB_PATH", "/custom/path.db")
	os.Setenv("TALLY_LOG_LEVEL", "debug")
	os.Setenv("TALLY_LOG_FORMAT", "text")
	os.Setenv("TALLY_SHUTDOWN_TIMEOUT", "3s")
	os.Setenv("TALLY_DEFAULT_TIMEZONE", "America/New_York")
	os.Setenv("TALLY_DEMO_EMAIL", "demo@example.com")
	defer clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Database.Path != "/custom/path.db" {
		t.Errorf("Database.Path = %q, want %q", cfg.Database.Path, "/custom/path.db")
	}
	if cfg.Log.Level != "debug" || cfg.Log.Format != "text" {
		t.Errorf("Log = %+v, want debug/text", cfg.Log)
	}
	if dur(cfg.Server.ShutdownTimeout) != 3*time.Second {
		t.Errorf("Server.ShutdownTimeout = %v, want 3s", cfg.Server.ShutdownTimeout)
	}
	if cfg.Accounts.DefaultTimezone != "America/New_York" {
		t.Errorf("Accounts.DefaultTimezone = %q", cfg.Accounts.DefaultTimezone)
	}
	if cfg.Demo.Email != "demo@example.com" {
		t.Errorf("Demo.Email = %q", cfg.Demo.Email)
	}
}

// Test: Empty env var does NOT override (only non-empty values override)
func TestLoad_EmptyEnvVarDoesNotOverride(t *testing.T) {
	clearEnv(t)
	os.Setenv("TALLY_PORT", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want 8080 (default)", cfg.Server.Port)
	}
}

func TestLoadFromFile_ValidYAML(t *testing.T) {
	clearEnv(t)

	configPath := writeConfig(t, `
server:
  port: 9999
  read_timeout: 60s
database:
  path: /yaml/path.db
log:
  level: warn
accounts:
  default_timezone: Europe/Berlin
demo:
  email: demo@tally.local
`)

	cfg, err := LoadFromFile(configPath)
	if err != nil {
		t.Fatalf("LoadFromFile() error = %v", err)
	}

	if cfg.Server.Port != 9999 {
		t.Errorf("Server.Port = %d, want 9999", cfg.Server.Port)
	}
	if dur(cfg.Server.ReadTimeout) != 60*time.Second {
		t.Errorf("Server.ReadTimeout = %v, want 60s", cfg.Server.ReadTimeout)
	}
	if cfg.Database.Path != "/yaml/path.db" {
		t.Errorf("Database.Path = %q, want %q", cfg.Database.Path, "/yaml/path.db")
	}
	if cfg.Log.Level != "warn" {
		t.Errorf("Log.Level = %q, want %q", cfg.Log.Level, "warn")
	}
	if cfg.Accounts.DefaultTimezone != "Europe/Berlin" {
		t.Errorf("Accounts.DefaultTimezone = %q, want Europe/Berlin", cfg.Accounts.DefaultTimezone)
	}
	if cfg.Demo.Email != "demo@tally.local" {
		t.Errorf("Demo.Email = %q, want demo@tally.local", cfg.Demo.Email)
	}
}

// Test: Env vars override YAML values
func TestLoad_EnvOverridesYAML(t *testing.T) {
	clearEnv(t)

	configPath := writeConfig(t, `
server:
  port: 9000
log:
  level: warn
`)
	os.Setenv("TALLY_CONFIG_PATH", configPath)
	os.Setenv("TALLY_PORT", "8888")
	defer clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 8888 {
		t.Errorf("Server.Port = %d, want 8888 (env override)", cfg.Server.Port)
	}
	if cfg.Log.Level != "warn" {
		t.Errorf("Log.Level = %q, want %q (from YAML)", cfg.Log.Level, "warn")
	}
}

func TestLoadFromFile_InvalidYAML(t *testing.T) {
	clearEnv(t)

	configPath := writeConfig(t, `
server:
  port: not_a_number
  this is invalid yaml [
`)

	if _, err := LoadFromFile(configPath); err == nil {
		t.Error("LoadFromFile() expected error for invalid YAML, got nil")
	}
}

func TestLoadFromFile_MissingFile(t *testing.T) {
	clearEnv(t)
	if _, err := LoadFromFile(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("LoadFromFile() expected error for missing file, got nil")
	}
}

// Test: Missing config file is NOT an error for Load (uses defaults)
func TestLoad_MissingConfigFileUsesDefaults(t *testing.T) {
	clearEnv(t)
	os.Setenv("TALLY_CONFIG_PATH", "/nonexistent/path/config.yaml")
	defer clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() should not error on missing file, got: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want 8080 (default)", cfg.Server.Port)
	}
}

func TestLoadFromFile_DurationParsing(t *testing.T) {
	clearEnv(t)

	configPath := writeConfig(t, `
server:
  read_timeout: 5m30s
  write_timeout: 90s
  shutdown_timeout: 2s
`)

	cfg, err := LoadFromFile(configPath)
	if err != nil {
		t.Fatalf("LoadFromFile() error = %v", err)
	}

	if dur(cfg.Server.ReadTimeout) != 5*time.Minute+30*time.Second {
		t.Errorf("Server.ReadTimeout = %v, want 5m30s", cfg.Server.ReadTimeout)
	}
	if dur(cfg.Server.WriteTimeout) != 90*time.Second {
		t.Errorf("Server.WriteTimeout = %v, want 90s", cfg.Server.WriteTimeout)
	}
	if dur(cfg.Server.ShutdownTimeout) != 2*time.Second {
		t.Errorf("Server.ShutdownTimeout = %v, want 2s", cfg.Server.ShutdownTimeout)
	}
}

func TestLoadFromFile_InvalidDuration(t *testing.T) {
	clearEnv(t)

	configPath := writeConfig(t, `
server:
  read_timeout: not_a_duration
`)

	if _, err := LoadFromFile(configPath); err == nil {
		t.Error("LoadFromFile() expected error for invalid duration, got nil")
	}
}

func TestLoad_Validation(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{"port zero", map[string]string{"TALLY_PORT": "0"}, ""},
		{"port too high", map[string]string{"TALLY_PORT": "70000"}, "out of range"},
		{"unknown timezone", map[string]string{"TALLY_DEFAULT_TIMEZONE": "Mars/Olympus"}, "default timezone"},
		{"unknown log format", map[string]string{"TALLY_LOG_FORMAT": "xml"}, "log format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				os.Setenv(k, v)
			}
			defer clearEnv(t)

			_, err := Load()
			if err == nil {
				t.Fatal("Load() expected validation error, got nil")
			}
			if tt.wantErr != "" && !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %q, want it to contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_IsDemo(t *testing.T) {
	cfg := &Config{Demo: DemoConfig{Email: "Demo@Example.com"}}
	if !cfg.IsDemo("demo@example.com") {
		t.Error("IsDemo should match case-insensitively")
	}
	if cfg.IsDemo("someone@example.com") {
		t.Error("IsDemo matched a different email")
	}

	disabled := &Config{}
	if disabled.IsDemo("") {
		t.Error("IsDemo(\"\") with demo disabled = true")
	}
}

func TestDuration_MarshalYAML(t *testing.T) {
	cfg := newDefaults()
	data, err := yaml.Marshal(cfg)
	if err != nil {
		t.Fatalf("yaml.Marshal() error = %v", err)
	}
	if !strings.Contains(string(data), "shutdown_timeout: 15s") {
		t.Errorf("marshalled config missing duration string:\n%s", data)
	}
}
