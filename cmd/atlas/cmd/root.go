// Package cmd provides the CLI commands for atlas.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/atlashq/atlas-go/internal/config"
)

var cfgFile string
var traceFlag bool

var rootCmd = &cobra.Command{
	Use:   "atlas",
	Short: "Atlas - authenticated API client",
	Long: `Atlas is a command-line client for the Atlas API.

It manages your session (sign in, sign out, credential storage) and
makes authenticated requests against the API.

Quick start:
  1. Create a config file: atlas config init --base-url https://api.example.com
  2. Sign in: atlas login -u you@example.com
  3. Make requests: atlas request GET /companies

Configuration:
  Config is loaded from atlas.yaml in the current directory,
  $HOME/.atlas/, or /etc/atlas/.

  Environment variables can override config values with the ATLAS_ prefix.
  Example: ATLAS_API_BASE_URL=https://staging.example.com

Commands:
  login       Sign in and store the session credential
  logout      Sign out and discard the stored credential
  whoami      Show the current session
  request     Make an authenticated API request
  config      Manage configuration
  version     Print version information`,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./atlas.yaml)")
	rootCmd.PersistentFlags().BoolVar(&traceFlag, "trace", false, "write request traces to stderr")
}

func initConfig() {
	config.InitViper(cfgFile)
}
