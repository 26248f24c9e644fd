// Package config loads the application configuration: defaults, then an
// optional YAML file, then CARDGENIE_* environment variables, then
// command-line flags, each layer overriding the last.
package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

const envPrefix = "CARDGENIE_"

// Config is the full application configuration.
type Config struct {
	DBPath   string `koanf:"db" validate:"required"`
	ReposDir string `koanf:"repos_dir" validate:"required"`
	Listen   string `koanf:"listen" validate:"required,hostname_port"`

	Session SessionConfig `koanf:"session"`
	Log     LogConfig     `koanf:"log"`
}

// SessionConfig caps how many cards one study session may contain.
type SessionConfig struct {
	MaxNew    int `koanf:"max_new" validate:"min=0"`
	MaxReview int `koanf:"max_review" validate:"min=0"`
}

// LogConfig controls slog output.
type LogConfig struct {
	Level  string `koanf:"level" validate:"oneof=debug info warn error"`
	Format string `koanf:"format" validate:"oneof=text json"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		DBPath:   "cardgenie.db",
		ReposDir: "repos",
		Listen:   "localhost:8494",
		Session: SessionConfig{
			MaxNew:    10,
			MaxReview: 50,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load builds the configuration from defaults, the YAML file at path (if
// non-empty), the environment, and the given parsed flag set. The result
// is validated before being returned.
func Load(path string, flags *pflag.FlagSet) (Config, error) {
	k := koanf.New(".")
	cfg := Default()

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	// Double underscore nests: CARDGENIE_SESSION__MAX_NEW=5 -> session.max_new.
	err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, envPrefix)), "__", ".")
	}), nil)
	if err != nil {
		return Config{}, fmt.Errorf("load environment: %w", err)
	}

	if flags != nil {
		if err := k.Load(posflag.Provider(flags, ".", k), nil); err != nil {
			return Config{}, fmt.Errorf("load flags: %w", err)
		}
	}

	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
