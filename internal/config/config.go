// Package config loads tada settings from flags, TADA_* environment
// variables and an optional .tada.yaml file.
package config

import (
	"errors"
	"fmt"
	"time"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/idilsaglam/tada/internal/store/liststore"
)

const (
	KeyRemovalDelay = "removal_delay"
	KeyTheme        = "theme"
	KeyLogLevel     = "log_level"
	KeyEnv          = "env"
	KeyNoColor      = "no_color"
)

// ErrInvalidDelay is returned when removal_delay is not positive.
var ErrInvalidDelay = errors.New("removal_delay must be positive")

// Config holds the resolved settings.
type Config struct {
	RemovalDelay time.Duration
	Theme        string
	LogLevel     string
	Env          string
	NoColor      bool
}

// Load resolves settings. dir, when set, is searched for .tada.yaml
// before the working directory and the home directory. flags may be nil;
// flags that were set explicitly win over every other source.
func Load(dir string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	v.SetDefault(KeyRemovalDelay, liststore.DefaultRemovalDelay)
	v.SetDefault(KeyTheme, "classic")
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyEnv, "development")
	v.SetDefault(KeyNoColor, false)

	v.SetConfigName(".tada") // .yaml is implicit
	v.SetConfigType("yaml")
	v.SetEnvPrefix("TADA")
	v.AutomaticEnv()

	if dir != "" {
		v.AddConfigPath(dir)
	}
	v.AddConfigPath(".")
	if home, err := homedir.Dir(); err == nil {
		v.AddConfigPath(home)
	}

	if flags != nil {
		for flag, key := range map[string]string{
			"log-level": KeyLogLevel,
			"env":       KeyEnv,
			"theme":     KeyTheme,
			"no-color":  KeyNoColor,
			"delay":     KeyRemovalDelay,
		} {
			if f := flags.Lookup(flag); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("bind flag %s: %w", flag, err)
				}
			}
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := &Config{
		RemovalDelay: v.GetDuration(KeyRemovalDelay),
		Theme:        v.GetString(KeyTheme),
		LogLevel:     v.GetString(KeyLogLevel),
		Env:          v.GetString(KeyEnv),
		NoColor:      v.GetBool(KeyNoColor),
	}
	if cfg.RemovalDelay <= 0 {
		return nil, fmt.Errorf("%w: got %s", ErrInvalidDelay, cfg.RemovalDelay)
	}
	return cfg, nil
}
