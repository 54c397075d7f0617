// Package config resolves the settings of the TaskZen binaries from flags,
// TASKZEN_* environment variables, .env files and an optional config file.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"taskzen/internal/auth"
	"taskzen/internal/util"
)

// EnvPrefix is the prefix of every environment variable.
const EnvPrefix = "TASKZEN"

// Config holds the resolved settings.
type Config struct {
	Addr      string
	StaticDir string
	DB        DBConfig
	Auth      auth.Config
	Redis     RedisConfig
	Avatars   AvatarsConfig
	Log       LogConfig
}

type DBConfig struct {
	Path   string
	Driver string
}

type RedisConfig struct {
	URL      string
	CacheTTL time.Duration
}

type AvatarsConfig struct {
	Dir      string
	MaxBytes int64
}

type LogConfig struct {
	Level  string
	Format string
}

// New returns a viper instance with defaults and environment binding set
// up. Keys use dots; the environment form replaces them with underscores,
// e.g. db.path is TASKZEN_DB_PATH.
func New() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("addr", ":8080")
	v.SetDefault("static.dir", "web/dist")
	v.SetDefault("db.path", "data/taskzen.db")
	v.SetDefault("db.driver", "sqlite3")
	v.SetDefault("auth.secret", "")
	v.SetDefault("auth.issuer", "taskzen")
	v.SetDefault("auth.audience", "")
	v.SetDefault("auth.token_ttl", 24*time.Hour)
	v.SetDefault("auth.jwks_url", "")
	v.SetDefault("redis.url", "")
	v.SetDefault("cache.ttl", 5*time.Minute)
	v.SetDefault("avatars.dir", "data/avatars")
	v.SetDefault("avatars.max_bytes", int64(2<<20))
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	return v
}

// BindFlags binds command flags to config keys. flagKeys maps a flag name
// to its key, e.g. "db" to "db.path".
func BindFlags(v *viper.Viper, flags *pflag.FlagSet, flagKeys map[string]string) error {
	for name, key := range flagKeys {
		f := flags.Lookup(name)
		if f == nil {
			return fmt.Errorf("unknown flag %q", name)
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("bind flag %s: %w", name, err)
		}
	}
	return nil
}

// Load reads the .env files and the config file, if any, and resolves the
// settings. The env file path can be overridden with TASKZEN_ENV_FILE.
func Load(v *viper.Viper, configFile string) (Config, error) {
	if err := util.LoadEnvFiles(util.EnvOrDefault(EnvPrefix+"_ENV_FILE", ".env")); err != nil {
		return Config{}, err
	}
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", configFile, err)
		}
	}

	cfg := Config{
		Addr:      v.GetString("addr"),
		StaticDir: v.GetString("static.dir"),
		DB: DBConfig{
			Path:   v.GetString("db.path"),
			Driver: v.GetString("db.driver"),
		},
		Auth: auth.Config{
			Secret:   v.GetString("auth.secret"),
			Issuer:   v.GetString("auth.issuer"),
			Audience: v.GetString("auth.audience"),
			TokenTTL: v.GetDuration("auth.token_ttl"),
			JWKSURL:  v.GetString("auth.jwks_url"),
		},
		Redis: RedisConfig{
			URL:      v.GetString("redis.url"),
			CacheTTL: v.GetDuration("cache.ttl"),
		},
		Avatars: AvatarsConfig{
			Dir:      v.GetString("avatars.dir"),
			MaxBytes: v.GetInt64("avatars.max_bytes"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
		},
	}
	return cfg, nil
}

// Validate checks the settings needed to serve HTTP.
func (c Config) Validate() error {
	var errs []error
	if c.Addr == "" {
		errs = append(errs, errors.New("addr is required"))
	}
	if c.DB.Path == "" {
		errs = append(errs, errors.New("db.path is required"))
	}
	if c.Auth.Secret == "" && c.Auth.JWKSURL == "" {
		errs = append(errs, errors.New("auth.secret is required unless auth.jwks_url is set"))
	}
	if c.Auth.TokenTTL <= 0 {
		errs = append(errs, errors.New("auth.token_ttl must be positive"))
	}
	if c.Avatars.MaxBytes <= 0 {
		errs = append(errs, errors.New("avatars.max_bytes must be positive"))
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format must be text or json, got %q", c.Log.Format))
	}
	return errors.Join(errs...)
}

// NewLogger builds the process logger from the log settings.
func (c Config) NewLogger(w io.Writer) *slog.Logger {
	level, err := parseLevel(c.Log.Level)
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if c.Log.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func parseLevel(raw string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(raw)); err != nil {
		return slog.LevelInfo, fmt.Errorf("log.level: %w", err)
	}
	return level, nil
}
