package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/atlashq/atlas-go/internal/config"
)

var configInitBaseURL string
var configInitForce bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter atlas.yaml in the current directory",
	RunE: func(cmd *cobra.Command, args []string) error {
		const path = "atlas.yaml"

		if _, err := os.Stat(path); err == nil && !configInitForce {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}

		out, err := config.DefaultYAML(configInitBaseURL)
		if err != nil {
			return err
		}
		if err := os.WriteFile(path, out, 0644); err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}

		fmt.Printf("Wrote %s\n", path)
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig()
		if err != nil {
			return err
		}

		if file := config.ConfigFileUsed(); file != "" {
			fmt.Printf("# loaded from %s\n", file)
		} else {
			fmt.Println("# no config file found, defaults and environment only")
		}
		fmt.Printf("api.base_url:     %s\n", cfg.API.BaseURL)
		fmt.Printf("api.timeout:      %s\n", cfg.API.Timeout)
		fmt.Printf("credentials.path: %s\n", cfg.Credentials.Path)
		fmt.Printf("cache.enabled:    %t\n", cfg.Cache.Enabled)
		fmt.Printf("request_log.path: %s\n", cfg.RequestLog.Path)
		fmt.Printf("log_level:        %s\n", cfg.LogLevel)
		return nil
	},
}

func init() {
	configInitCmd.Flags().StringVar(&configInitBaseURL, "base-url", "https://api.example.com", "API base URL to write into the config")
	configInitCmd.Flags().BoolVar(&configInitForce, "force", false, "overwrite an existing atlas.yaml")
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	rootCmd.AddCommand(configCmd)
}
