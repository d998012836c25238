package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/example/migreview/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or initialize migreview configuration",
	Long: `Configuration is read from .migreview/config.json in the current directory,
then overridden by MIGREVIEW_* environment variables (for example
MIGREVIEW_SERVICE_URL).`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cwd, err := os.Getwd()
		if err != nil {
			return err
		}
		cfg, err := config.LoadConfig(cwd)
		if err != nil {
			return err
		}
		data, err := json.MarshalIndent(cfg, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write .migreview/config.json in the current directory",
	RunE: func(cmd *cobra.Command, args []string) error {
		cwd, err := os.Getwd()
		if err != nil {
			return err
		}
		cfg, err := config.LoadConfig(cwd)
		if err != nil {
			return err
		}
		if url, _ := cmd.Flags().GetString("service-url"); url != "" {
			cfg.ServiceURL = url
		}
		if err := config.SaveConfig(cwd, cfg); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Wrote .migreview/config.json (service: %s)\n", cfg.ServiceURL)
		return nil
	},
}

// ConfigCmd returns the config command
func ConfigCmd() *cobra.Command {
	configInitCmd.Flags().String("service-url", "", "Migration service base URL")

	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)

	return configCmd
}
