package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "1.0.0"

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "nixbot",
	Short: "NixBot chat backend",
	Long: `nixbot serves the NixBot chat API.

Examples:
  nixbot serve                      # start the HTTP API
  nixbot migrate                    # create database tables and exit
  nixbot serve --config prod.json`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var configPath string

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", os.Getenv("NIXBOT_CONFIG"), "Path to the JSON config file (default config.json)")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
}
