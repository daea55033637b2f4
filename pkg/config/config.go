package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Veraticus/presenced/pkg/logging"
	"github.com/Veraticus/presenced/pkg/presence"
)

// Surface names accepted by the surface setting.
const (
	SurfaceTerminal = "terminal"
	SurfaceTcell    = "tcell"
	SurfaceX11      = "x11"
)

// Config holds all configuration for presenced
type Config struct {
	// Detector timing
	ActivityTimeout     time.Duration `yaml:"activity_timeout" env:"PRESENCED_ACTIVITY_TIMEOUT"`
	BlurFocusThrottling time.Duration `yaml:"blur_focus_throttling" env:"PRESENCED_BLUR_FOCUS_THROTTLING"`

	// Which surface to monitor
	Surface       string `yaml:"surface" env:"PRESENCED_SURFACE"`
	AssumeFocused bool   `yaml:"assume_focused" env:"PRESENCED_ASSUME_FOCUSED"`

	// Terminal surface behaviour
	FocusReporting  bool `yaml:"focus_reporting" env:"PRESENCED_FOCUS_REPORTING"`
	StatusIndicator bool `yaml:"status_indicator" env:"PRESENCED_STATUS_INDICATOR"`

	// Recover from panicking subscribers instead of propagating
	IsolateSubscribers bool `yaml:"isolate_subscribers" env:"PRESENCED_ISOLATE_SUBSCRIBERS"`

	X11 X11Config `yaml:"x11"`
	Log LogConfig `yaml:"log"`
}

// X11Config selects the X display and window for the x11 surface.
type X11Config struct {
	Display string `yaml:"display" env:"DISPLAY"`
	// Window is the X window id; zero means the active window.
	Window uint32 `yaml:"window" env:"PRESENCED_X11_WINDOW"`
}

// LogConfig holds logger settings
type LogConfig struct {
	Level  string `yaml:"level" env:"PRESENCED_LOG_LEVEL"`
	Format string `yaml:"format" env:"PRESENCED_LOG_FORMAT"`
	File   string `yaml:"file" env:"PRESENCED_LOG_FILE"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		ActivityTimeout:     presence.DefaultActivityTimeout,
		BlurFocusThrottling: presence.DefaultBlurFocusThrottling,
		Surface:             SurfaceTerminal,
		AssumeFocused:       true,
		FocusReporting:      true,
		StatusIndicator:     true,
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load loads configuration from file and environment
func Load() (*Config, error) {
	return LoadFile(getConfigPath())
}

// LoadFile loads configuration from path, which may not exist, and then
// applies environment overrides.
func LoadFile(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		if err := loadFromFile(cfg, path); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	if err := loadFromEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to load from environment: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// getConfigPath returns the config file path
func getConfigPath() string {
	if path := os.Getenv("PRESENCED_CONFIG"); path != "" {
		return path
	}

	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "presenced", "config.yaml")
	}

	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".config", "presenced", "config.yaml")
	}

	return ""
}

// loadFromFile loads configuration from a YAML file
func loadFromFile(cfg *Config, path string) error {
	// #nosec G304 - The config file path comes from trusted sources (flag, env var or standard locations)
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	return yaml.Unmarshal(data, cfg)
}

// loadFromEnv loads configuration from environment variables
func loadFromEnv(cfg *Config) error {
	if err := envDuration("PRESENCED_ACTIVITY_TIMEOUT", &cfg.ActivityTimeout); err != nil {
		return err
	}
	if err := envDuration("PRESENCED_BLUR_FOCUS_THROTTLING", &cfg.BlurFocusThrottling); err != nil {
		return err
	}

	if surface := os.Getenv("PRESENCED_SURFACE"); surface != "" {
		cfg.Surface = surface
	}

	bools := []struct {
		name string
		dst  *bool
	}{
		{"PRESENCED_ASSUME_FOCUSED", &cfg.AssumeFocused},
		{"PRESENCED_FOCUS_REPORTING", &cfg.FocusReporting},
		{"PRESENCED_STATUS_INDICATOR", &cfg.StatusIndicator},
		{"PRESENCED_ISOLATE_SUBSCRIBERS", &cfg.IsolateSubscribers},
	}
	for _, b := range bools {
		if err := envBool(b.name, b.dst); err != nil {
			return err
		}
	}

	if cfg.X11.Display == "" {
		cfg.X11.Display = os.Getenv("DISPLAY")
	}
	if window := os.Getenv("PRESENCED_X11_WINDOW"); window != "" {
		id, err := strconv.ParseUint(window, 0, 32)
		if err != nil {
			return fmt.Errorf("invalid PRESENCED_X11_WINDOW: %w", err)
		}
		cfg.X11.Window = uint32(id)
	}

	if level := os.Getenv("PRESENCED_LOG_LEVEL"); level != "" {
		cfg.Log.Level = level
	}
	if format := os.Getenv("PRESENCED_LOG_FORMAT"); format != "" {
		cfg.Log.Format = format
	}
	if file := os.Getenv("PRESENCED_LOG_FILE"); file != "" {
		cfg.Log.File = file
	}

	return nil
}

func envDuration(name string, dst *time.Duration) error {
	value := os.Getenv(name)
	if value == "" {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", name, err)
	}
	*dst = d
	return nil
}

func envBool(name string, dst *bool) error {
	value := os.Getenv(name)
	if value == "" {
		return nil
	}
	switch value {
	case "true", "1", "yes":
		*dst = true
	case "false", "0", "no":
		*dst = false
	default:
		return fmt.Errorf("invalid %s value: %q (use true/false)", name, value)
	}
	return nil
}

// Validate checks the configuration
func Validate(cfg *Config) error {
	if cfg.ActivityTimeout <= 0 {
		return fmt.Errorf("activity_timeout must be positive")
	}

	if cfg.BlurFocusThrottling <= 0 {
		return fmt.Errorf("blur_focus_throttling must be positive")
	}

	switch cfg.Surface {
	case SurfaceTerminal, SurfaceTcell, SurfaceX11:
	default:
		return fmt.Errorf("unknown surface %q (use terminal, tcell or x11)", cfg.Surface)
	}

	if _, err := logging.ParseLevel(cfg.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}

	switch cfg.Log.Format {
	case "", "text", "console", "json":
	default:
		return fmt.Errorf("log.format must be text or json, got %q", cfg.Log.Format)
	}

	return nil
}

// DetectorOptions converts the timing settings into detector options.
func (c *Config) DetectorOptions() []presence.Option {
	opts := []presence.Option{
		presence.WithActivityTimeout(c.ActivityTimeout),
		presence.WithBlurFocusThrottling(c.BlurFocusThrottling),
	}
	if c.IsolateSubscribers {
		opts = append(opts, presence.WithPanicIsolation())
	}
	return opts
}

// LoggingOptions converts the log settings into logging options.
func (c *Config) LoggingOptions() logging.Options {
	return logging.Options{
		Level:  c.Log.Level,
		Format: c.Log.Format,
		File:   c.Log.File,
	}
}
