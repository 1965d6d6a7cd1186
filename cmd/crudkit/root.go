package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "crudkit",
	Short: "Declarative CRUD API server",
	Long: `crudkit serves list, create, retrieve, update and delete endpoints
for the models declared in its configuration, backed by SQLite.

Quick start:
  crudkit validate  # Check the configuration and print the routes
  crudkit serve     # Start the server`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "crudkit.yaml", "config file path")
}
