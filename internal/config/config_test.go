package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/pflag"

	"taskzen/internal/auth"
)

func isolateEnv(t *testing.T) {
	t.Helper()
	t.Setenv(EnvPrefix+"_ENV_FILE", filepath.Join(t.TempDir(), "none.env"))
}

func TestDefaults(t *testing.T) {
	isolateEnv(t)
	cfg, err := Load(New(), "")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":8080" || cfg.DB.Path != "data/taskzen.db" || cfg.DB.Driver != "sqlite3" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.Auth.TokenTTL != 24*time.Hour || cfg.Redis.CacheTTL != 5*time.Minute || cfg.Avatars.MaxBytes != 2<<20 {
		t.Fatalf("unexpected durations or limits: %+v", cfg)
	}
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "auth.secret") {
		t.Fatalf("expected missing secret error, got %v", err)
	}
}

func TestEnvironmentOverrides(t *testing.T) {
	isolateEnv(t)
	t.Setenv("TASKZEN_DB_PATH", "/tmp/other.db")
	t.Setenv("TASKZEN_AUTH_SECRET", "s3cret")
	t.Setenv("TASKZEN_AUTH_TOKEN_TTL", "2h")
	t.Setenv("TASKZEN_LOG_FORMAT", "json")

	cfg, err := Load(New(), "")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DB.Path != "/tmp/other.db" || cfg.Auth.Secret != "s3cret" || cfg.Auth.TokenTTL != 2*time.Hour {
		t.Fatalf("env not applied: %+v", cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestEnvFileAndConfigFile(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, "taskzen.env")
	if err := os.WriteFile(envFile, []byte("TASKZEN_AUTH_SECRET=from-dotenv\n"), 0o600); err != nil {
		t.Fatalf("write env: %v", err)
	}
	t.Setenv(EnvPrefix+"_ENV_FILE", envFile)
	t.Setenv("TASKZEN_AUTH_SECRET", "")
	os.Unsetenv("TASKZEN_AUTH_SECRET")

	configFile := filepath.Join(dir, "taskzen.yaml")
	content := "addr: \":9090\"\ndb:\n  driver: sqlite\nredis:\n  url: redis://localhost:6379/0\n"
	if err := os.WriteFile(configFile, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(New(), configFile)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Auth.Secret != "from-dotenv" {
		t.Fatalf("expected secret from .env, got %q", cfg.Auth.Secret)
	}
	if cfg.Addr != ":9090" || cfg.DB.Driver != "sqlite" || cfg.Redis.URL != "redis://localhost:6379/0" {
		t.Fatalf("config file not applied: %+v", cfg)
	}

	if _, err := Load(New(), filepath.Join(dir, "missing.yaml")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestBindFlags(t *testing.T) {
	isolateEnv(t)
	v := New()
	flags := pflag.NewFlagSet("serve", pflag.ContinueOnError)
	flags.String("db", "", "database path")
	if err := flags.Parse([]string{"--db", "flag.db"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}
	if err := BindFlags(v, flags, map[string]string{"db": "db.path"}); err != nil {
		t.Fatalf("bind: %v", err)
	}
	cfg, _ := Load(v, "")
	if cfg.DB.Path != "flag.db" {
		t.Fatalf("expected flag value, got %q", cfg.DB.Path)
	}
	if err := BindFlags(v, flags, map[string]string{"nope": "x"}); err == nil {
		t.Fatal("expected unknown flag error")
	}
}

func TestValidateAndLogger(t *testing.T) {
	cfg := Config{
		Addr: ":8080",
		DB:   DBConfig{Path: "x.db"},
		Auth: authConfigWithSecret(),
		Avatars: AvatarsConfig{
			MaxBytes: 1,
		},
		Log: LogConfig{Level: "verbose", Format: "xml"},
	}
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "log.level") || !strings.Contains(err.Error(), "log.format") {
		t.Fatalf("expected log errors, got %v", err)
	}

	cfg.Log = LogConfig{Level: "debug", Format: "json"}
	var buf bytes.Buffer
	cfg.NewLogger(&buf).Debug("hello", "k", "v")
	if !strings.Contains(buf.String(), `"msg":"hello"`) {
		t.Fatalf("expected json debug output, got %q", buf.String())
	}
}

func authConfigWithSecret() auth.Config {
	return auth.Config{Secret: "s", TokenTTL: time.Hour}
}
