package config

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/gluonch/carrot2/errors"
)

// EnvPrefix prefixes environment overrides, e.g. CARROT2_POOL_MAX_IDLE
const EnvPrefix = "CARROT2"

// Config is the controller configuration
type Config struct {
	Version    string            `mapstructure:"version" json:"version"`
	Log        LogConfig         `mapstructure:"log" json:"log"`
	Pool       PoolConfig        `mapstructure:"pool" json:"pool"`
	Autoload   AutoloadConfig    `mapstructure:"autoload" json:"autoload"`
	NATS       NATSConfig        `mapstructure:"nats" json:"nats"`
	Metrics    MetricsConfig     `mapstructure:"metrics" json:"metrics"`
	Components []ComponentConfig `mapstructure:"components" json:"components,omitempty"`
	Processes  []ProcessConfig   `mapstructure:"processes" json:"processes,omitempty"`
}

// LogConfig selects the slog handler
type LogConfig struct {
	Level  string `mapstructure:"level" json:"level"`   // debug, info, warn, error
	Format string `mapstructure:"format" json:"format"` // json, text
}

// PoolConfig configures the component pool
type PoolConfig struct {
	MaxIdle int `mapstructure:"max_idle" json:"max_idle"`
}

// AutoloadConfig configures descriptor resolution for missing components
type AutoloadConfig struct {
	Enabled bool `mapstructure:"enabled" json:"enabled"`
	// Paths are descriptor directories, searched in order
	Paths []string `mapstructure:"paths" json:"paths"`
	// Extensions are descriptor formats in priority order
	Extensions []string `mapstructure:"extensions" json:"extensions"`
}

// NATSConfig configures the optional JetStream key-value descriptor store.
// An empty URL disables it.
type NATSConfig struct {
	URL     string        `mapstructure:"url" json:"url,omitempty"`
	Bucket  string        `mapstructure:"bucket" json:"bucket"`
	Timeout time.Duration `mapstructure:"timeout" json:"timeout"`
}

// MetricsConfig toggles Prometheus metrics collection
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled" json:"enabled"`
}

// ComponentConfig registers a factory for id built from a catalog kind
type ComponentConfig struct {
	ID     string         `mapstructure:"id" json:"id"`
	Kind   string         `mapstructure:"kind" json:"kind"`
	Config map[string]any `mapstructure:"config" json:"config,omitempty"`
}

// ProcessConfig declares a pipeline process
type ProcessConfig struct {
	ID          string   `mapstructure:"id" json:"id"`
	Name        string   `mapstructure:"name" json:"name"`
	Description string   `mapstructure:"description" json:"description,omitempty"`
	Stages      []string `mapstructure:"stages" json:"stages"`
}

var (
	logLevels  = []string{"debug", "info", "warn", "error"}
	logFormats = []string{"json", "text"}
	extensions = []string{"json", "yaml", "yml", "toml"}
)

// Default returns the configuration used when nothing overrides it
func Default() *Config {
	return &Config{
		Version: "1.0.0",
		Log:     LogConfig{Level: "info", Format: "text"},
		Pool:    PoolConfig{MaxIdle: 3},
		Autoload: AutoloadConfig{
			Enabled:    false,
			Paths:      []string{"descriptors"},
			Extensions: slices.Clone(extensions),
		},
		NATS: NATSConfig{
			Bucket:  "carrot2-descriptors",
			Timeout: 5 * time.Second,
		},
	}
}

// Validate checks the configuration for consistency
func (c *Config) Validate() error {
	if c.Pool.MaxIdle < 0 {
		return invalid("pool capacity check", "pool.max_idle must not be negative, got %d", c.Pool.MaxIdle)
	}
	if !slices.Contains(logLevels, strings.ToLower(c.Log.Level)) {
		return invalid("log level check", "log.level %q is not one of %v", c.Log.Level, logLevels)
	}
	if !slices.Contains(logFormats, strings.ToLower(c.Log.Format)) {
		return invalid("log format check", "log.format %q is not one of %v", c.Log.Format, logFormats)
	}

	if len(c.Autoload.Extensions) == 0 {
		return invalid("extension check", "autoload.extensions must not be empty")
	}
	seen := make(map[string]bool)
	for _, ext := range c.Autoload.Extensions {
		if !slices.Contains(extensions, ext) {
			return invalid("extension check", "unsupported descriptor extension %q", ext)
		}
		if seen[ext] {
			return invalid("extension check", "descriptor extension %q listed twice", ext)
		}
		seen[ext] = true
	}

	if c.NATS.URL != "" && c.NATS.Bucket == "" {
		return invalid("nats check", "nats.bucket is required when nats.url is set")
	}

	ids := make(map[string]bool)
	for i, comp := range c.Components {
		if comp.ID == "" || comp.Kind == "" {
			return invalid("component check", "components[%d] requires id and kind", i)
		}
		if ids[comp.ID] {
			return invalid("component check", "component %q declared twice", comp.ID)
		}
		ids[comp.ID] = true
	}

	processes := make(map[string]bool)
	for i, p := range c.Processes {
		if p.ID == "" {
			return invalid("process check", "processes[%d] requires an id", i)
		}
		if len(p.Stages) == 0 {
			return invalid("process check", "process %q has no stages", p.ID)
		}
		if processes[p.ID] {
			return invalid("process check", "process %q declared twice", p.ID)
		}
		processes[p.ID] = true
	}

	return nil
}

func invalid(action, format string, args ...any) error {
	return errors.WrapInvalid(errors.Errorf(errors.ErrInvalidConfig, format, args...), "Config", "Validate", action)
}

// String renders a short summary for logs
func (c *Config) String() string {
	return fmt.Sprintf("Config{version=%s pool.max_idle=%d autoload=%t components=%d processes=%d}",
		c.Version, c.Pool.MaxIdle, c.Autoload.Enabled, len(c.Components), len(c.Processes))
}

// Loader loads configuration layers with viper. Later layers override
// earlier ones; CARROT2_* environment variables override all files.
type Loader struct {
	layers   []string
	validate bool
}

// NewLoader creates a loader with validation enabled
func NewLoader() *Loader {
	return &Loader{validate: true}
}

// AddLayer adds a configuration file (JSON, YAML or TOML by extension)
func (l *Loader) AddLayer(path string) {
	if path != "" {
		l.layers = append(l.layers, path)
	}
}

// EnableValidation toggles validation of the loaded configuration
func (l *Loader) EnableValidation(enable bool) {
	l.validate = enable
}

// Load merges the defaults, every layer and the environment
func (l *Loader) Load() (*Config, error) {
	v := viper.New()
	setDefaults(v, Default())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for _, layer := range l.layers {
		v.SetConfigFile(layer)
		if err := v.MergeInConfig(); err != nil {
			return nil, errors.WrapInvalid(errors.Errorf(errors.ErrConfigNotFound, "%s: %v", layer, err),
				"Loader", "Load", "config layer read")
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.WrapInvalid(err, "Loader", "Load", "config decode")
	}

	if l.validate {
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// Load reads a single configuration file, or only defaults and the
// environment when path is empty.
func Load(path string) (*Config, error) {
	l := NewLoader()
	l.AddLayer(path)
	return l.Load()
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("version", d.Version)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("pool.max_idle", d.Pool.MaxIdle)
	v.SetDefault("autoload.enabled", d.Autoload.Enabled)
	v.SetDefault("autoload.paths", d.Autoload.Paths)
	v.SetDefault("autoload.extensions", d.Autoload.Extensions)
	v.SetDefault("nats.url", d.NATS.URL)
	v.SetDefault("nats.bucket", d.NATS.Bucket)
	v.SetDefault("nats.timeout", d.NATS.Timeout)
	v.SetDefault("metrics.enabled", d.Metrics.Enabled)
}
