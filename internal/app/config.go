package app

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/wagiedev/cgsdk-relay/internal/config"
)

// Config holds the host configuration.
type Config struct {
	Worker   WorkerConfig   `mapstructure:"worker"`
	Timeouts TimeoutsConfig `mapstructure:"timeouts"`
	Restart  RestartConfig  `mapstructure:"restart"`
	Health   HealthConfig   `mapstructure:"health"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Log      LogConfig      `mapstructure:"log"`
}

// WorkerConfig selects the worker binary and its channel.
type WorkerConfig struct {
	Path    string            `mapstructure:"path"`
	Channel string            `mapstructure:"channel"`
	Env     map[string]string `mapstructure:"env"`
}

// TimeoutsConfig bounds worker connects and calls.
type TimeoutsConfig struct {
	Connect time.Duration `mapstructure:"connect"`
	Call    time.Duration `mapstructure:"call"`
}

// RestartConfig controls the backoff after failed worker starts.
type RestartConfig struct {
	Delay    time.Duration `mapstructure:"delay"`
	MaxDelay time.Duration `mapstructure:"max_delay"`
}

// HealthConfig enables the gRPC health endpoint.
type HealthConfig struct {
	Socket string `mapstructure:"socket"`
}

// MetricsConfig enables the Prometheus endpoint.
type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// LoadConfig reads configuration from file and env. Env var overrides use
// prefix CGRELAY_. A missing config file is not an error.
func LoadConfig(path string) (Config, error) {
	v := viper.New()

	// default values
	v.SetDefault("worker.path", "")
	v.SetDefault("worker.channel", "")
	v.SetDefault("worker.env", map[string]string{})
	v.SetDefault("timeouts.connect", config.DefaultConnectTimeout)
	v.SetDefault("timeouts.call", config.DefaultCallTimeout)
	v.SetDefault("restart.delay", config.DefaultRestartDelay)
	v.SetDefault("restart.max_delay", config.DefaultMaxRestartDelay)
	v.SetDefault("health.socket", "")
	v.SetDefault("metrics.addr", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetConfigType("toml")

	if path == "" {
		path = os.Getenv("CGRELAY_CONFIG")
	}

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(defaultConfigDir())
		v.SetConfigName("config")
	}

	v.SetEnvPrefix("CGRELAY")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		// An explicit file must exist; the default location is optional.
		if _, notFound := errors.AsType[viper.ConfigFileNotFoundError](err); path != "" || !notFound {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	return c, nil
}

// Apply overrides configured values with the flags that were given.
func (c *Config) Apply(p Parsed) {
	overrides := []struct {
		flag string
		dest *string
	}{
		{p.WorkerPath, &c.Worker.Path},
		{p.Channel, &c.Worker.Channel},
		{p.HealthSocket, &c.Health.Socket},
		{p.MetricsAddr, &c.Metrics.Addr},
		{p.LogLevel, &c.Log.Level},
		{p.LogFormat, &c.Log.Format},
	}

	for _, o := range overrides {
		if o.flag != "" {
			*o.dest = o.flag
		}
	}
}

func defaultConfigDir() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "cgrelay")
	}

	return filepath.Join(os.Getenv("HOME"), ".config", "cgrelay")
}
