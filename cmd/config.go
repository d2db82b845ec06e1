package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/conneroisu/waha/internal/config"
	apperrors "github.com/conneroisu/waha/internal/errors"
)

var configFormat string

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect waha configuration",
	Long: `Inspect the configuration resolved from flags, WAHA_ environment
variables, the config file and defaults.

Examples:
  waha config show                 # Print the effective configuration as YAML
  waha config validate             # Check the configuration and exit`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	RunE:  runConfigShow,
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration",
	RunE:  runConfigValidate,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configValidateCmd)

	configShowCmd.Flags().StringVarP(&configFormat, "format", "f", "yaml", "Output format (yaml)")
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return apperrors.NewConfigError("failed to load configuration", err)
	}

	out := cmd.OutOrStdout()

	switch configFormat {
	case "yaml", "yml":
		encoder := yaml.NewEncoder(out)
		encoder.SetIndent(2)
		if err := encoder.Encode(cfg); err != nil {
			return fmt.Errorf("encode config: %w", err)
		}
		return encoder.Close()
	default:
		return fmt.Errorf("unsupported format: %s (supported: yaml)", configFormat)
	}
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	if _, err := config.Load(); err != nil {
		return apperrors.NewConfigError("configuration is invalid", err)
	}

	_, err := fmt.Fprintln(cmd.OutOrStdout(), "configuration is valid")
	return err
}
