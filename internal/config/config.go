// Package config loads the dispatch engine's configuration via Viper:
// defaults, then an optional YAML file, then environment variables
// (highest precedence), following the layering in the teacher's
// internal/config/config.go.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration for the distributor.
type Config struct {
	Targets        []TargetConfig `mapstructure:"targets"`
	Workers        int            `mapstructure:"workers"`
	Capacity       int            `mapstructure:"capacity"`
	Retries        int            `mapstructure:"retries"`
	BaseDelay      time.Duration  `mapstructure:"base_delay"`
	SendTimeout    time.Duration  `mapstructure:"send_timeout"`
	HealthInterval time.Duration  `mapstructure:"health_interval"`
	ProbeTimeout   time.Duration  `mapstructure:"probe_timeout"`

	Server  ServerConfig  `mapstructure:"server"`
	Log     LogConfig     `mapstructure:"log"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// TargetConfig is one downstream analyzer target (spec §2).
type TargetConfig struct {
	Name   string  `mapstructure:"name"`
	URL    string  `mapstructure:"url"`
	Weight float64 `mapstructure:"weight"`
}

// ServerConfig holds the ingestion HTTP surface's settings.
type ServerConfig struct {
	Port                    int           `mapstructure:"port"`
	Host                    string        `mapstructure:"host"`
	ReadTimeout             time.Duration `mapstructure:"read_timeout"`
	WriteTimeout            time.Duration `mapstructure:"write_timeout"`
	IdleTimeout             time.Duration `mapstructure:"idle_timeout"`
	GracefulShutdownTimeout time.Duration `mapstructure:"graceful_shutdown_timeout"`
}

// LogConfig holds logging configuration, including lumberjack rotation
// fields used when Output is a file path.
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Output     string `mapstructure:"output"`
	Filename   string `mapstructure:"filename"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
	Compress   bool   `mapstructure:"compress"`
}

// MetricsConfig holds Prometheus exposition settings.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// LoadConfig loads configuration from defaults, an optional YAML file
// at configPath, then environment variables (DISTRIBUTOR_* via
// AutomaticEnv, "." replaced with "_").
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("distributor")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")

		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("workers", 4)
	v.SetDefault("capacity", 1000)
	v.SetDefault("retries", 2)
	v.SetDefault("base_delay", "200ms")
	v.SetDefault("send_timeout", "5s")
	v.SetDefault("health_interval", "5s")
	v.SetDefault("probe_timeout", "2s")

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.read_timeout", "10s")
	v.SetDefault("server.write_timeout", "10s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.graceful_shutdown_timeout", "30s")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.output", "stdout")
	v.SetDefault("log.filename", "")
	v.SetDefault("log.max_size", 100)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age", 28)
	v.SetDefault("log.compress", true)

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
}

// Validate checks structural invariants the registry and dispatcher
// depend on (spec §9: config errors are terminal at startup).
func (c *Config) Validate() error {
	if len(c.Targets) == 0 {
		return fmt.Errorf("at least one target is required")
	}

	seen := make(map[string]struct{}, len(c.Targets))
	var totalWeight float64
	for _, target := range c.Targets {
		if target.Name == "" {
			return fmt.Errorf("target name cannot be empty")
		}
		if target.URL == "" {
			return fmt.Errorf("target %q: url cannot be empty", target.Name)
		}
		if _, dup := seen[target.Name]; dup {
			return fmt.Errorf("duplicate target name: %s", target.Name)
		}
		seen[target.Name] = struct{}{}

		if target.Weight < 0 {
			return fmt.Errorf("target %q: weight cannot be negative", target.Name)
		}
		totalWeight += target.Weight
	}
	if totalWeight <= 0 {
		return fmt.Errorf("sum of target weights must be positive")
	}

	if c.Workers <= 0 {
		return fmt.Errorf("workers must be positive")
	}
	if c.Capacity <= 0 {
		return fmt.Errorf("capacity must be positive")
	}
	if c.Retries < 0 {
		return fmt.Errorf("retries cannot be negative")
	}
	if c.BaseDelay <= 0 {
		return fmt.Errorf("base_delay must be positive")
	}
	if c.SendTimeout <= 0 {
		return fmt.Errorf("send_timeout must be positive")
	}
	if c.HealthInterval <= 0 {
		return fmt.Errorf("health_interval must be positive")
	}
	if c.ProbeTimeout <= 0 {
		return fmt.Errorf("probe_timeout must be positive")
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.Host == "" {
		return fmt.Errorf("server host cannot be empty")
	}
	if c.Log.Level == "" {
		return fmt.Errorf("log level cannot be empty")
	}

	return nil
}

// MaxAttempts is the total number of dispatch attempts per packet
// (retries + the initial attempt).
func (c *Config) MaxAttempts() int {
	return c.Retries + 1
}

// targetsFile is the on-disk shape of a standalone targets file, kept
// separate from Config so operators can rotate the target list (which
// changes often) without touching the rest of the engine config
// (which doesn't).
type targetsFile struct {
	Targets []TargetConfig `yaml:"targets"`
}

// LoadTargetsFile reads a standalone YAML file containing a top-level
// "targets" list and returns it decoded. Unlike LoadConfig's Viper
// layering, this path is for operators who manage the target set as
// its own file (e.g. templated by a deployment tool) and merge it into
// Config.Targets themselves before calling Validate.
func LoadTargetsFile(path string) ([]TargetConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read targets file %q: %w", path, err)
	}

	var tf targetsFile
	if err := yaml.Unmarshal(raw, &tf); err != nil {
		return nil, fmt.Errorf("failed to parse targets file %q: %w", path, err)
	}

	return tf.Targets, nil
}
