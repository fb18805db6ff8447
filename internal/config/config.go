// Package config loads runtime settings from the environment and pipeline
// option profiles from YAML files.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cast"
)

const (
	EnvDB          = "AWP4D_DB"
	EnvLogLevel    = "AWP4D_LOG_LEVEL"
	EnvLogFormat   = "AWP4D_LOG_FORMAT"
	EnvOptions     = "AWP4D_OPTIONS"
	EnvLogUseCases = "AWP4D_LOG_USE_CASES"

	// DefaultEnvFile is read from the working directory when present.
	DefaultEnvFile = ".env"
)

type LogFormat string

const (
	LogText LogFormat = "text"
	LogJSON LogFormat = "json"
)

// Config holds process-level settings. Pipeline behavior lives in
// app.PipelineOptions and is loaded separately.
type Config struct {
	DBPath      string
	LogLevel    slog.Level
	LogFormat   LogFormat
	OptionsPath string
	LogUseCases bool
}

// DefaultConfig stores the document under ~/.awp4d and logs warnings as text.
func DefaultConfig() Config {
	dbPath := "awp4d.db"
	if home, err := os.UserHomeDir(); err == nil {
		dbPath = filepath.Join(home, ".awp4d", "awp4d.db")
	}
	return Config{
		DBPath:    dbPath,
		LogLevel:  slog.LevelWarn,
		LogFormat: LogText,
	}
}

// LoadConfig reads settings from the environment after merging DefaultEnvFile.
func LoadConfig() (Config, error) {
	return Load(DefaultEnvFile)
}

// Load reads settings from the environment. Variables in envFile fill in
// what the process environment leaves unset; a missing file is ignored.
func Load(envFile string) (Config, error) {
	fileEnv, err := readEnvFile(envFile)
	if err != nil {
		return Config{}, err
	}
	lookup := func(key string) string {
		if v, ok := os.LookupEnv(key); ok {
			return strings.TrimSpace(v)
		}
		return strings.TrimSpace(fileEnv[key])
	}

	cfg := DefaultConfig()
	if v := lookup(EnvDB); v != "" {
		cfg.DBPath = v
	}
	if v := lookup(EnvLogLevel); v != "" {
		if err := cfg.LogLevel.UnmarshalText([]byte(v)); err != nil {
			return Config{}, fmt.Errorf("%s: invalid level %q", EnvLogLevel, v)
		}
	}
	if v := lookup(EnvLogFormat); v != "" {
		switch f := LogFormat(strings.ToLower(v)); f {
		case LogText, LogJSON:
			cfg.LogFormat = f
		default:
			return Config{}, fmt.Errorf("%s: expected text or json, got %q", EnvLogFormat, v)
		}
	}
	cfg.OptionsPath = lookup(EnvOptions)
	if v := lookup(EnvLogUseCases); v != "" {
		b, err := cast.ToBoolE(v)
		if err != nil {
			return Config{}, fmt.Errorf("%s: %w", EnvLogUseCases, err)
		}
		cfg.LogUseCases = b
	}
	return cfg, nil
}

func readEnvFile(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}
	env, err := godotenv.Read(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading env file %s: %w", path, err)
	}
	return env, nil
}

// NewLogger builds the process logger for cfg.
func NewLogger(cfg Config, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.LogLevel}
	if cfg.LogFormat == LogJSON {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
