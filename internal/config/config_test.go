package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name        string
		setup       func()
		expectError bool
		check       func(t *testing.T, cfg *Config)
	}{
		{
			name:  "defaults match the fixed server behavior",
			setup: func() {},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "0.0.0.0", cfg.Server.Host)
				assert.Equal(t, 8000, cfg.Server.Port)
				assert.Equal(t, "0.0.0.0:8000", cfg.Server.Addr())
				assert.Equal(t, "assets", cfg.Server.AssetsDir)
				assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)
				assert.Equal(t, "debug", cfg.Logging.Level)
				assert.Equal(t, "json", cfg.Logging.Format)
				assert.False(t, cfg.Logging.AddSource)
				assert.True(t, cfg.Tracing.Enabled)
				assert.Equal(t, "stdout", cfg.Tracing.Exporter)
				assert.Equal(t, "waha", cfg.Tracing.ServiceName)
				assert.False(t, cfg.Development.HotReload)
			},
		},
		{
			name: "overrides",
			setup: func() {
				viper.Set("server.port", 3000)
				viper.Set("server.host", "127.0.0.1")
				viper.Set("server.assets_dir", "public/static")
				viper.Set("server.shutdown_timeout", "2s")
				viper.Set("logging.format", "text")
				viper.Set("logging.add_source", true)
				viper.Set("tracing.enabled", false)
				viper.Set("tracing.exporter", "none")
				viper.Set("development.hot_reload", true)
			},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "127.0.0.1:3000", cfg.Server.Addr())
				assert.Equal(t, "public/static", cfg.Server.AssetsDir)
				assert.Equal(t, 2*time.Second, cfg.Server.ShutdownTimeout)
				assert.Equal(t, "text", cfg.Logging.Format)
				assert.True(t, cfg.Logging.AddSource)
				assert.False(t, cfg.Tracing.Enabled)
				assert.Equal(t, "none", cfg.Tracing.Exporter)
				assert.True(t, cfg.Development.HotReload)
			},
		},
		{
			name: "explicit port zero is kept",
			setup: func() {
				viper.Set("server.port", 0)
			},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 0, cfg.Server.Port)
			},
		},
		{
			name: "invalid port type",
			setup: func() {
				viper.Set("server.port", "invalid_port")
			},
			expectError: true,
		},
		{
			name: "port out of range",
			setup: func() {
				viper.Set("server.port", 70000)
			},
			expectError: true,
		},
		{
			name: "unknown log level",
			setup: func() {
				viper.Set("logging.level", "loud")
			},
			expectError: true,
		},
		{
			name: "unknown exporter",
			setup: func() {
				viper.Set("tracing.exporter", "jaeger")
			},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			viper.Reset()
			defer viper.Reset()
			tt.setup()

			cfg, err := Load()

			if tt.expectError {
				assert.Error(t, err)
				assert.Nil(t, cfg)
				return
			}

			require.NoError(t, err)
			require.NotNil(t, cfg)
			tt.check(t, cfg)
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	viper.Reset()
	defer viper.Reset()

	path := filepath.Join(t.TempDir(), ".waha.yml")
	content := []byte("server:\n  port: 9000\n  assets_dir: web\nlogging:\n  level: warn\n")
	require.NoError(t, os.WriteFile(path, content, 0600))

	viper.SetConfigFile(path)
	require.NoError(t, viper.ReadInConfig())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "web", cfg.Server.AssetsDir)
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
}

func TestValidateAssetsDir(t *testing.T) {
	tests := []struct {
		path    string
		wantErr bool
	}{
		{"assets", false},
		{"./assets", false},
		{"public/assets", false},
		{"..assets", false},
		{"", true},
		{"../assets", true},
		{"..", true},
		{"/etc", true},
		{"assets;rm", true},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			err := validateAssetsDir(tt.path)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateServerConfigHost(t *testing.T) {
	cfg := Default()
	cfg.Server.Host = "localhost`whoami`"

	err := validateConfig(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dangerous character")
}

func TestDefaultIsValid(t *testing.T) {
	assert.NoError(t, validateConfig(Default()))
}

func TestLoadFromEnv(t *testing.T) {
	viper.Reset()
	defer viper.Reset()

	viper.SetEnvPrefix("WAHA")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	t.Setenv("WAHA_TRACING_EXPORTER", "none")
	t.Setenv("WAHA_DEVELOPMENT_HOT_RELOAD", "true")
	t.Setenv("WAHA_SERVER_PORT", "9090")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "none", cfg.Tracing.Exporter)
	assert.True(t, cfg.Development.HotReload)
	assert.Equal(t, 9090, cfg.Server.Port)
}
