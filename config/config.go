// Package config persists the application settings as a JSON file.
package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/fornellas/slogxt/log"
	"github.com/spf13/viper"

	"github.com/fornellas/vpm/params"
)

const (
	KeySetupcPath          = "setupc_path"
	KeyCommandTimeout      = "command_timeout"
	KeyAutoRefreshInterval = "auto_refresh_interval"
	KeyWindowGeometry      = "window_geometry"
	KeyLogLevel            = "log_level"
	KeyTheme               = "theme"
)

// Keys that can be changed with Set.
var Keys = []string{
	KeySetupcPath,
	KeyCommandTimeout,
	KeyAutoRefreshInterval,
	KeyLogLevel,
	KeyTheme,
}

const DefaultSetupcPath = `C:\Program Files (x86)\com0com\setupc.exe`

// SetupcPathCandidates are the standard com0com install locations, in probing order.
var SetupcPathCandidates = []string{
	`C:\Program Files\com0com\setupc.exe`,
	`C:\Program Files (x86)\com0com\setupc.exe`,
	`C:\com0com\setupc.exe`,
}

var LogLevels = []string{"DEBUG", "INFO", "WARNING", "ERROR", "CRITICAL"}

var Themes = []string{"system", "light", "dark"}

type WindowGeometry struct {
	X      int `mapstructure:"x" json:"x" yaml:"x"`
	Y      int `mapstructure:"y" json:"y" yaml:"y"`
	Width  int `mapstructure:"width" json:"width" yaml:"width"`
	Height int `mapstructure:"height" json:"height" yaml:"height"`
}

func (g WindowGeometry) toMap() map[string]any {
	return map[string]any{
		"x":      g.X,
		"y":      g.Y,
		"width":  g.Width,
		"height": g.Height,
	}
}

// ApplicationConfig is the persisted settings record.
type ApplicationConfig struct {
	SetupcPath string `mapstructure:"setupc_path" json:"setupc_path" yaml:"setupc_path"`
	// CommandTimeout in seconds.
	CommandTimeout int `mapstructure:"command_timeout" json:"command_timeout" yaml:"command_timeout"`
	// AutoRefreshInterval in seconds; 0 disables it.
	AutoRefreshInterval int            `mapstructure:"auto_refresh_interval" json:"auto_refresh_interval" yaml:"auto_refresh_interval"`
	WindowGeometry      WindowGeometry `mapstructure:"window_geometry" json:"window_geometry" yaml:"window_geometry"`
	LogLevel            string         `mapstructure:"log_level" json:"log_level" yaml:"log_level"`
	Theme               string         `mapstructure:"theme" json:"theme" yaml:"theme"`
}

func Default() ApplicationConfig {
	return ApplicationConfig{
		SetupcPath:          DefaultSetupcPath,
		CommandTimeout:      30,
		AutoRefreshInterval: 0,
		WindowGeometry: WindowGeometry{
			X:      100,
			Y:      100,
			Width:  1000,
			Height: 700,
		},
		LogLevel: "INFO",
		Theme:    "system",
	}
}

func (c ApplicationConfig) toMap() map[string]any {
	return map[string]any{
		KeySetupcPath:          c.SetupcPath,
		KeyCommandTimeout:      c.CommandTimeout,
		KeyAutoRefreshInterval: c.AutoRefreshInterval,
		KeyWindowGeometry:      c.WindowGeometry.toMap(),
		KeyLogLevel:            c.LogLevel,
		KeyTheme:               c.Theme,
	}
}

// validate checks the ranges of values loaded from file.
func (c ApplicationConfig) validate() error {
	if err := params.ValidateCommandTimeout(c.CommandTimeout); err != nil {
		return fmt.Errorf("%s: %w", KeyCommandTimeout, err)
	}
	if err := validateAutoRefreshInterval(c.AutoRefreshInterval); err != nil {
		return fmt.Errorf("%s: %w", KeyAutoRefreshInterval, err)
	}
	if err := validateEnum(c.LogLevel, LogLevels); err != nil {
		return fmt.Errorf("%s: %w", KeyLogLevel, err)
	}
	if err := validateEnum(c.Theme, Themes); err != nil {
		return fmt.Errorf("%s: %w", KeyTheme, err)
	}
	return nil
}

func validateAutoRefreshInterval(interval int) error {
	if interval < 0 {
		return &params.ValidationError{Reason: "Auto refresh interval must be 0 or greater"}
	}
	return nil
}

func validateEnum(value string, valid []string) error {
	if !slices.Contains(valid, value) {
		return &params.ValidationError{
			Reason: fmt.Sprintf("Must be one of: %s", strings.Join(valid, ", ")),
		}
	}
	return nil
}

// SlogLevel maps a LogLevels value to a slog.Level. Unknown values map to slog.LevelInfo.
func SlogLevel(level string) slog.Level {
	switch level {
	case "DEBUG":
		return slog.LevelDebug
	case "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	case "CRITICAL":
		return slog.LevelError + 4
	default:
		return slog.LevelInfo
	}
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

func detectSetupcPath(candidates []string) (string, bool) {
	for _, candidate := range candidates {
		if isFile(candidate) {
			return candidate, true
		}
	}
	return "", false
}

// DetectSetupcPath returns the first of SetupcPathCandidates that exists.
func DetectSetupcPath() (string, bool) {
	return detectSetupcPath(SetupcPathCandidates)
}

// DefaultPath is the config file location under the user configuration directory.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("config: failed to get user config directory: %w", err)
	}
	return filepath.Join(dir, "com0com_manager", "config.json"), nil
}

// Config is an ApplicationConfig bound to its file. It is safe for concurrent use.
type Config struct {
	path  string
	viper *viper.Viper

	mu     sync.Mutex
	config ApplicationConfig
}

func newViper(path string) *viper.Viper {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")
	for key, value := range Default().toMap() {
		v.SetDefault(key, value)
	}
	return v
}

// Load reads the config file at path. A missing file is created with the defaults; an
// unreadable or invalid one is reported and the defaults are used. A configured setupc path
// that does not exist is replaced by a detected or the default one, and saved.
//
//gocyclo:ignore
func Load(ctx context.Context, path string) *Config {
	ctx, logger := log.MustWithGroupAttrs(ctx, "Config", "path", path)
	c := &Config{
		path:   path,
		viper:  newViper(path),
		config: Default(),
	}

	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		logger.Info("Creating default config file")
		if err := c.Save(); err != nil {
			logger.Warn("Failed to save config", "err", err)
		}
		return c
	}

	if err := c.viper.ReadInConfig(); err != nil {
		logger.Warn("Failed to load config, using defaults", "err", err)
		c.viper = newViper(path)
		return c
	}

	var config ApplicationConfig
	if err := c.viper.Unmarshal(&config); err != nil {
		logger.Warn("Failed to decode config, using defaults", "err", err)
		c.viper = newViper(path)
		return c
	}
	if err := config.validate(); err != nil {
		logger.Warn("Invalid config, using defaults", "err", err)
		c.viper = newViper(path)
		return c
	}
	c.config = config

	if !isFile(c.config.SetupcPath) {
		setupcPath, ok := DetectSetupcPath()
		if !ok {
			setupcPath = DefaultSetupcPath
		}
		if setupcPath != c.config.SetupcPath {
			logger.Warn("Configured setupc not found", "configured", c.config.SetupcPath, "using", setupcPath)
			c.config.SetupcPath = setupcPath
			if err := c.Save(); err != nil {
				logger.Warn("Failed to save config", "err", err)
			}
		}
	}

	return c
}

func (c *Config) Path() string {
	return c.path
}

// Get returns a copy of the current settings.
func (c *Config) Get() ApplicationConfig {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.config
}

func (c *Config) SetupcPath() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.config.SetupcPath
}

func (c *Config) CommandTimeout() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return time.Duration(c.config.CommandTimeout) * time.Second
}

// AutoRefreshInterval returns 0 when auto refresh is disabled.
func (c *Config) AutoRefreshInterval() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return time.Duration(c.config.AutoRefreshInterval) * time.Second
}

func (c *Config) saveLocked() error {
	if err := os.MkdirAll(filepath.Dir(c.path), 0755); err != nil {
		return fmt.Errorf("config: failed to create directory: %w", err)
	}
	for key, value := range c.config.toMap() {
		c.viper.Set(key, value)
	}
	if err := c.viper.WriteConfigAs(c.path); err != nil {
		return fmt.Errorf("config: failed to write %s: %w", c.path, err)
	}
	return nil
}

// Save writes the current settings to the file.
func (c *Config) Save() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.saveLocked()
}

// update applies fn and saves, only if the settings changed.
func (c *Config) update(fn func(config *ApplicationConfig)) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	config := c.config
	fn(&config)
	if config == c.config {
		return nil
	}
	c.config = config
	return c.saveLocked()
}

// Set parses, validates and saves the value for one of Keys.
//
//gocyclo:ignore
func (c *Config) Set(key, value string) error {
	var fn func(config *ApplicationConfig)
	switch key {
	case KeySetupcPath:
		if value == "" {
			return fmt.Errorf("config: invalid %s: %w", key, &params.ValidationError{Reason: "Path cannot be empty"})
		}
		fn = func(config *ApplicationConfig) { config.SetupcPath = value }
	case KeyCommandTimeout:
		if err := params.ValidateCommandTimeout(value); err != nil {
			return fmt.Errorf("config: invalid %s: %w", key, err)
		}
		timeout, _ := strconv.Atoi(strings.TrimSpace(value))
		fn = func(config *ApplicationConfig) { config.CommandTimeout = timeout }
	case KeyAutoRefreshInterval:
		interval, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return fmt.Errorf("config: invalid %s: %w", key, &params.ValidationError{Reason: "Value must be a valid integer"})
		}
		if err := validateAutoRefreshInterval(interval); err != nil {
			return fmt.Errorf("config: invalid %s: %w", key, err)
		}
		fn = func(config *ApplicationConfig) { config.AutoRefreshInterval = interval }
	case KeyLogLevel:
		if err := validateEnum(value, LogLevels); err != nil {
			return fmt.Errorf("config: invalid %s: %w", key, err)
		}
		fn = func(config *ApplicationConfig) { config.LogLevel = value }
	case KeyTheme:
		if err := validateEnum(value, Themes); err != nil {
			return fmt.Errorf("config: invalid %s: %w", key, err)
		}
		fn = func(config *ApplicationConfig) { config.Theme = value }
	default:
		return fmt.Errorf("config: unknown key %#v, valid keys: %s", key, strings.Join(Keys, ", "))
	}
	return c.update(fn)
}

func (c *Config) SetWindowGeometry(geometry WindowGeometry) error {
	return c.update(func(config *ApplicationConfig) { config.WindowGeometry = geometry })
}

// Reset restores and saves the defaults.
func (c *Config) Reset() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.config = Default()
	return c.saveLocked()
}
