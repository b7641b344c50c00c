// Package config wraps viper with a nil-safe accessor and resolves the
// JudDesk configuration file and data directory.
package config

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/spf13/viper"
)

// Config is a nil-safe read accessor over a viper instance.
type Config struct {
	v *viper.Viper
}

// New wraps a viper instance. A nil viper yields a Config that returns
// zero values for every key.
func New(v *viper.Viper) *Config {
	return &Config{v: v}
}

// Load reads juddesk.yaml from the given directory (or the default app data
// directory when dir is empty) and applies defaults. A missing file is not
// an error; defaults apply.
func Load(dir string) (*Config, error) {
	v := viper.New()

	if dir == "" {
		var err error
		dir, err = DefaultDataDir()
		if err != nil {
			return nil, err
		}
	}

	v.SetDefault("data_dir", dir)
	v.SetDefault("database", "juddesk.db")
	v.SetDefault("log_level", "info")
	v.SetDefault("backup.max_backups", 10)
	v.SetDefault("backup.debounce", 5*time.Second)
	v.SetDefault("backup.min_interval", 10*time.Minute)

	v.SetConfigName("juddesk")
	v.SetConfigType("yaml")
	v.AddConfigPath(dir)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !os.IsNotExist(err) {
			return nil, err
		}
	}

	return New(v), nil
}

// DefaultDataDir returns the platform-specific application data directory.
//
// Linux:   $XDG_DATA_HOME/juddesk (fallback ~/.local/share/juddesk)
// macOS:   ~/Library/Application Support/juddesk
// Windows: %APPDATA%/juddesk
func DefaultDataDir() (string, error) {
	if runtime.GOOS == "linux" {
		if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
			return filepath.Join(xdg, "juddesk"), nil
		}
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, ".local", "share", "juddesk"), nil
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "juddesk"), nil
}

func (c *Config) GetString(key string) string {
	if c == nil || c.v == nil {
		return ""
	}
	return c.v.GetString(key)
}

func (c *Config) GetInt(key string) int {
	if c == nil || c.v == nil {
		return 0
	}
	return c.v.GetInt(key)
}

func (c *Config) GetBool(key string) bool {
	if c == nil || c.v == nil {
		return false
	}
	return c.v.GetBool(key)
}

func (c *Config) GetDuration(key string) time.Duration {
	if c == nil || c.v == nil {
		return 0
	}
	return c.v.GetDuration(key)
}

func (c *Config) IsSet(key string) bool {
	if c == nil || c.v == nil {
		return false
	}
	return c.v.IsSet(key)
}

// Sub returns the configuration subtree rooted at key. A missing subtree
// yields an empty (never nil) Config.
func (c *Config) Sub(key string) *Config {
	if c == nil || c.v == nil {
		return New(nil)
	}
	return New(c.v.Sub(key))
}

// Unmarshal decodes the configuration into target.
func (c *Config) Unmarshal(target any) error {
	if c == nil || c.v == nil {
		return nil
	}
	return c.v.Unmarshal(target)
}
