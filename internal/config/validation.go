package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/conneroisu/waha/internal/logging"
)

var dangerousChars = []string{";", "&", "|", "$", "`", "(", ")", "<", ">", "\"", "'", "\\"}

// validateConfig validates configuration values for security and correctness
func validateConfig(config *Config) error {
	if err := validateServerConfig(&config.Server); err != nil {
		return fmt.Errorf("server config: %w", err)
	}

	if err := validateLoggingConfig(&config.Logging); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}

	if err := validateTracingConfig(&config.Tracing); err != nil {
		return fmt.Errorf("tracing config: %w", err)
	}

	return nil
}

// validateServerConfig validates server configuration values
func validateServerConfig(config *ServerConfig) error {
	// 0 asks the OS for a free port, which tests rely on.
	if config.Port < 0 || config.Port > 65535 {
		return fmt.Errorf("port %d is not in valid range 0-65535", config.Port)
	}

	for _, char := range dangerousChars {
		if strings.Contains(config.Host, char) {
			return fmt.Errorf("host contains dangerous character: %s", char)
		}
	}

	if err := validateAssetsDir(config.AssetsDir); err != nil {
		return fmt.Errorf("assets_dir: %w", err)
	}

	if config.ShutdownTimeout < 0 {
		return fmt.Errorf("shutdown_timeout must not be negative, got %s", config.ShutdownTimeout)
	}

	return nil
}

// validateAssetsDir rejects paths that escape the working directory. The
// assets directory is always resolved relative to it.
func validateAssetsDir(path string) error {
	if path == "" {
		return fmt.Errorf("empty path")
	}

	cleanPath := filepath.Clean(path)

	if filepath.IsAbs(cleanPath) {
		return fmt.Errorf("must be relative to the working directory: %s", path)
	}

	if cleanPath == ".." || strings.HasPrefix(cleanPath, ".."+string(filepath.Separator)) {
		return fmt.Errorf("path contains traversal: %s", path)
	}

	for _, char := range dangerousChars {
		if strings.Contains(cleanPath, char) {
			return fmt.Errorf("path contains dangerous character: %s", char)
		}
	}

	return nil
}

func validateLoggingConfig(config *LoggingConfig) error {
	if _, err := logging.ParseLevel(config.Level); err != nil {
		return err
	}

	switch config.Format {
	case "json", "text":
		return nil
	default:
		return fmt.Errorf("unknown log format %q (supported: json, text)", config.Format)
	}
}

func validateTracingConfig(config *TracingConfig) error {
	switch config.Exporter {
	case "stdout", "none":
	default:
		return fmt.Errorf("unknown exporter %q (supported: stdout, none)", config.Exporter)
	}

	if config.Enabled && strings.TrimSpace(config.ServiceName) == "" {
		return fmt.Errorf("service_name is required when tracing is enabled")
	}

	return nil
}
