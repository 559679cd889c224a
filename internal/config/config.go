// Package config loads the application settings file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Norgate-AV/evelens/internal/logger"
	"github.com/Norgate-AV/evelens/internal/timeouts"
)

// DatabaseEnv overrides the database path when set.
const DatabaseEnv = "EVELENS_DATABASE"

// FileName is the settings file name inside the config directory.
const FileName = "config.yaml"

// LogConfig controls the log file.
type LogConfig struct {
	Dir        string `yaml:"dir,omitempty"`
	MaxSize    int    `yaml:"max_size"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAge     int    `yaml:"max_age"`
	Compress   bool   `yaml:"compress"`
	Verbose    bool   `yaml:"verbose"`
}

// Config is the contents of config.yaml.
type Config struct {
	Database          string        `yaml:"database"`
	ScanInterval      time.Duration `yaml:"scan_interval"`
	FocusInterval     time.Duration `yaml:"focus_interval"`
	StickyFocus       bool          `yaml:"sticky_focus"`
	HotkeyJoinTimeout time.Duration `yaml:"hotkey_join_timeout"`
	Log               LogConfig     `yaml:"log"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		Database:          filepath.Join(appDataDir(), logger.AppName, "evelens.db"),
		ScanInterval:      timeouts.ScanInterval,
		FocusInterval:     timeouts.FocusPollInterval,
		StickyFocus:       true,
		HotkeyJoinTimeout: timeouts.HotkeyThreadJoinTimeout,
		Log: LogConfig{
			MaxSize:    logger.DefaultLogMaxSize,
			MaxBackups: logger.DefaultLogMaxBackups,
			MaxAge:     logger.DefaultLogMaxAge,
			Compress:   true,
		},
	}
}

func appDataDir() string {
	if dir := os.Getenv("APPDATA"); dir != "" {
		return dir
	}

	if dir, err := os.UserConfigDir(); err == nil {
		return dir
	}

	return "."
}

// DefaultPath returns %APPDATA%\evelens\config.yaml.
func DefaultPath() string {
	return filepath.Join(appDataDir(), logger.AppName, FileName)
}

// Load reads path over the defaults. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("read config %s: %w", path, err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if env := os.Getenv(DatabaseEnv); env != "" {
		cfg.Database = env
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}

	return cfg, nil
}

// Validate rejects settings the service cannot run with.
func (c *Config) Validate() error {
	if c.Database == "" {
		return errors.New("database path is empty")
	}

	if c.ScanInterval <= 0 {
		return fmt.Errorf("scan_interval must be positive, got %s", c.ScanInterval)
	}

	if c.FocusInterval <= 0 {
		return fmt.Errorf("focus_interval must be positive, got %s", c.FocusInterval)
	}

	if c.HotkeyJoinTimeout <= 0 {
		return fmt.Errorf("hotkey_join_timeout must be positive, got %s", c.HotkeyJoinTimeout)
	}

	if c.Log.MaxSize < 0 || c.Log.MaxBackups < 0 || c.Log.MaxAge < 0 {
		return errors.New("log limits must not be negative")
	}

	return nil
}

// Save writes c to path, creating the directory.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	return os.WriteFile(path, data, 0o644)
}

// LoggerOptions maps the log section to logger options.
func (c *Config) LoggerOptions(verbose bool) logger.LoggerOptions {
	return logger.LoggerOptions{
		Verbose:    verbose || c.Log.Verbose,
		LogDir:     c.Log.Dir,
		MaxSize:    c.Log.MaxSize,
		MaxBackups: c.Log.MaxBackups,
		MaxAge:     c.Log.MaxAge,
		Compress:   c.Log.Compress,
	}
}
