// Package cmd provides the command-line interface for waha.
//
// Configuration is resolved from these sources, highest priority first:
//  1. Command-line flags (--port, --log-level, ...)
//  2. WAHA_ prefixed environment variables (WAHA_SERVER_PORT, ...)
//  3. The config file: --config, else WAHA_CONFIG_FILE, else .waha.yml
//  4. Built-in defaults
package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "waha",
	Short: "A small htmx demo server with an in-memory todo list",
	Long: `waha serves two HTML pages, a plain-text hello endpoint and an
in-memory todo list that re-renders as an HTML fragment on every post.

Quick Start:
  waha serve                   Start the server on 0.0.0.0:8000
  waha serve --hot-reload      Reload browsers when ./assets changes
  waha config show             Print the effective configuration
  waha version                 Show build information`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .waha.yml, can also use WAHA_CONFIG_FILE env var)")
	rootCmd.PersistentFlags().StringP("log-level", "l", "", "log level (debug, info, warn, error)")
	_ = viper.BindPFlag("logging.level", rootCmd.PersistentFlags().Lookup("log-level"))
}

// initConfig points viper at the config file and enables WAHA_ environment
// overrides. A missing config file is not an error.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else if envConfigFile := os.Getenv("WAHA_CONFIG_FILE"); envConfigFile != "" {
		viper.SetConfigFile(envConfigFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".waha")
	}

	viper.SetEnvPrefix("WAHA")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}
