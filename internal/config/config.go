package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration.
type Config struct {
	Database DatabaseConfig `mapstructure:"database"`
	User     UserConfig     `mapstructure:"user"`
	Matching MatchingConfig `mapstructure:"matching"`
	UI       UIConfig       `mapstructure:"ui"`
	Log      LogConfig      `mapstructure:"log"`
}

// DatabaseConfig holds sqlite settings.
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// UserConfig identifies the owner of sessions and rules.
type UserConfig struct {
	ID string `mapstructure:"id"`
	// SplitwiseName selects the feed column holding the user's net balance.
	SplitwiseName string `mapstructure:"splitwise_name"`
}

// MatchingConfig tunes the settlement detector.
type MatchingConfig struct {
	SettlementWindowDays int      `mapstructure:"settlement_window_days"`
	KnownNames           []string `mapstructure:"known_names"`
}

// UIConfig holds presentation settings.
type UIConfig struct {
	DateFormat     string `mapstructure:"date_format"`
	CurrencySymbol string `mapstructure:"currency_symbol"`
	Timezone       string `mapstructure:"timezone"`
}

// LogConfig holds the slog level name (debug, info, warn, error).
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// Location resolves UI.Timezone, falling back to UTC.
func (c Config) Location() *time.Location {
	if c.UI.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(c.UI.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func defaultPath() string {
	return filepath.Join(os.Getenv("HOME"), ".config", "splitledger", "config.toml")
}

// Load reads configuration from file and env. Env var overrides use prefix
// SPLITLEDGER_. path overrides SPLITLEDGER_CONFIG; a missing file is not an
// error.
func Load(path string) (Config, error) {
	v := viper.New()

	// default values
	v.SetDefault("database.path", filepath.Join(os.Getenv("HOME"), ".local", "share", "splitledger", "splitledger.db"))
	v.SetDefault("user.id", "default")
	v.SetDefault("user.splitwise_name", "")
	v.SetDefault("matching.settlement_window_days", 2)
	v.SetDefault("matching.known_names", []string{})
	v.SetDefault("ui.date_format", "02 Jan")
	v.SetDefault("ui.currency_symbol", "₹")
	v.SetDefault("ui.timezone", "Asia/Kolkata")
	v.SetDefault("log.level", "info")

	v.SetConfigType("toml")

	if path == "" {
		path = os.Getenv("SPLITLEDGER_CONFIG")
	}
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(filepath.Dir(defaultPath()))
		v.SetConfigName("config")
	}

	v.SetEnvPrefix("SPLITLEDGER")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	return c, nil
}

// Save writes the provided config to disk, creating the config directory if needed.
func Save(path string, cfg Config) error {
	if path == "" {
		path = os.Getenv("SPLITLEDGER_CONFIG")
	}
	if path == "" {
		path = defaultPath()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir config dir: %w", err)
	}

	v := viper.New()
	v.SetConfigType("toml")
	v.Set("database.path", cfg.Database.Path)
	v.Set("user.id", cfg.User.ID)
	v.Set("user.splitwise_name", cfg.User.SplitwiseName)
	v.Set("matching.settlement_window_days", cfg.Matching.SettlementWindowDays)
	v.Set("matching.known_names", cfg.Matching.KnownNames)
	v.Set("ui.date_format", cfg.UI.DateFormat)
	v.Set("ui.currency_symbol", cfg.UI.CurrencySymbol)
	v.Set("ui.timezone", cfg.UI.Timezone)
	v.Set("log.level", cfg.Log.Level)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
