// Package config provides configuration management for waha using Viper
// for loading from files, environment variables, and command-line flags.
//
// Defaults reproduce the server's fixed behavior: bind 0.0.0.0:8000, serve
// ./assets, JSON logs at debug level, and a stdout trace exporter. Values can
// be overridden with a .waha.yml file, WAHA_ prefixed environment variables
// (WAHA_SERVER_PORT, WAHA_LOGGING_LEVEL, ...), or flags.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Default values applied by Load when a key is unset.
const (
	DefaultHost            = "0.0.0.0"
	DefaultPort            = 8000
	DefaultAssetsDir       = "assets"
	DefaultShutdownTimeout = 10 * time.Second
	DefaultLogLevel        = "debug"
	DefaultLogFormat       = "json"
	DefaultTraceExporter   = "stdout"
	DefaultServiceName     = "waha"
)

// Keys lists every configuration key.
var Keys = []string{
	"server.host",
	"server.port",
	"server.assets_dir",
	"server.shutdown_timeout",
	"logging.level",
	"logging.format",
	"logging.add_source",
	"tracing.enabled",
	"tracing.exporter",
	"tracing.service_name",
	"development.hot_reload",
}

type Config struct {
	Server      ServerConfig      `mapstructure:"server"      yaml:"server"`
	Logging     LoggingConfig     `mapstructure:"logging"     yaml:"logging"`
	Tracing     TracingConfig     `mapstructure:"tracing"     yaml:"tracing"`
	Development DevelopmentConfig `mapstructure:"development" yaml:"development"`
}

type ServerConfig struct {
	Host            string        `mapstructure:"host"             yaml:"host"`
	Port            int           `mapstructure:"port"             yaml:"port"`
	AssetsDir       string        `mapstructure:"assets_dir"       yaml:"assets_dir"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
}

type LoggingConfig struct {
	Level     string `mapstructure:"level"      yaml:"level"`
	Format    string `mapstructure:"format"     yaml:"format"`
	AddSource bool   `mapstructure:"add_source" yaml:"add_source"`
}

type TracingConfig struct {
	Enabled     bool   `mapstructure:"enabled"      yaml:"enabled"`
	Exporter    string `mapstructure:"exporter"     yaml:"exporter"`
	ServiceName string `mapstructure:"service_name" yaml:"service_name"`
}

type DevelopmentConfig struct {
	HotReload bool `mapstructure:"hot_reload" yaml:"hot_reload"`
}

// Addr returns the host:port the server listens on.
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg, func(string) bool { return false })
	return cfg
}

// Load reads the global viper state into a Config, applies defaults and
// validates the result.
func Load() (*Config, error) {
	// AutomaticEnv only sees keys viper already knows about.
	for _, key := range Keys {
		if err := viper.BindEnv(key); err != nil {
			return nil, fmt.Errorf("bind env for %s: %w", key, err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	applyDefaults(&config, viper.IsSet)

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

func applyDefaults(config *Config, isSet func(key string) bool) {
	if config.Server.Host == "" {
		config.Server.Host = DefaultHost
	}
	if !isSet("server.port") && config.Server.Port == 0 {
		config.Server.Port = DefaultPort
	}
	if config.Server.AssetsDir == "" {
		config.Server.AssetsDir = DefaultAssetsDir
	}
	if config.Server.ShutdownTimeout == 0 {
		config.Server.ShutdownTimeout = DefaultShutdownTimeout
	}

	if config.Logging.Level == "" {
		config.Logging.Level = DefaultLogLevel
	}
	if config.Logging.Format == "" {
		config.Logging.Format = DefaultLogFormat
	}

	// Bools need IsSet: false is a valid explicit value.
	if !isSet("tracing.enabled") {
		config.Tracing.Enabled = true
	}
	if config.Tracing.Exporter == "" {
		config.Tracing.Exporter = DefaultTraceExporter
	}
	if config.Tracing.ServiceName == "" {
		config.Tracing.ServiceName = DefaultServiceName
	}
}
