package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// Config holds all runtime settings. Values are layered: defaults,
// then the YAML config file, then REPCARD_* environment variables,
// then command-line flags.
type Config struct {
	DB       string `koanf:"db" validate:"required"`
	User     string `koanf:"user" validate:"required"`
	ReposDir string `koanf:"repos_dir" validate:"required"`
	Study    Study  `koanf:"study"`
}

// Study holds the knobs of a study session.
type Study struct {
	IdleTimeout            time.Duration `koanf:"idle_timeout" validate:"gt=0"`
	PollInterval           time.Duration `koanf:"poll_interval" validate:"gt=0"`
	FallbackAllWhenNoneDue bool          `koanf:"fallback_all_when_none_due"`
	MaxIntervalDays        int           `koanf:"max_interval_days" validate:"gte=1,lte=3650"`
	MinLoggedActive        time.Duration `koanf:"min_logged_active" validate:"gte=0"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		DB:       "repcard.db",
		User:     "default",
		ReposDir: "repos",
		Study: Study{
			IdleTimeout:            2 * time.Minute,
			PollInterval:           10 * time.Second,
			FallbackAllWhenNoneDue: true,
			MaxIntervalDays:        365,
			MinLoggedActive:        time.Second,
		},
	}
}

// Load builds the configuration from the optional YAML file at path,
// the environment, and the given flag set. An empty path skips the
// file layer unless the file exists at the default location.
func Load(path string, flags *pflag.FlagSet) (Config, error) {
	k := koanf.New(".")

	explicit := path != ""
	if !explicit {
		path = "repcard.yaml"
	}
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		if explicit || !os.IsNotExist(err) {
			return Config{}, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	// REPCARD_STUDY__IDLE_TIMEOUT maps to study.idle_timeout. A double
	// underscore separates nesting levels so key names keep theirs.
	if err := k.Load(env.Provider("REPCARD_", ".", func(s string) string {
		s = strings.ToLower(strings.TrimPrefix(s, "REPCARD_"))
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return Config{}, fmt.Errorf("failed to load environment: %w", err)
	}

	if flags != nil {
		if err := k.Load(posflag.Provider(flags, ".", k), nil); err != nil {
			return Config{}, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	cfg := Default()
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
