package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "unknown"
)

var configPath string

// rootCmd runs the server when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "posxchange",
	Short: "Multi-tenant POS exchange document ingestion",
	Long: `posxchange watches one directory per store for POS exchange documents,
validates and imports them, and archives each file to a processed or error directory.`,
	Version:      fmt.Sprintf("%s (commit: %s)", version, commit),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe()
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API and the configured store watchers",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe()
	},
}

var typeHint string

var importCmd = &cobra.Command{
	Use:   "import <store_id> <path>",
	Short: "Import one exchange document for a store and exit",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runImport(cmd.Context(), args[0], args[1], typeHint)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "Path to the configuration file")
	importCmd.Flags().StringVarP(&typeHint, "type", "t", "", "Document type to use when it cannot be detected")
	rootCmd.AddCommand(serveCmd, importCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
