package cmd

import (
	"fmt"
	"os"

	"eventboard/config"

	"github.com/spf13/cobra"
)

// Version is set at build time with -ldflags "-X eventboard/cmd/server/cmd.Version=...".
var Version = "dev"

var (
	// Global flags
	logLevel string

	rootCmd = &cobra.Command{
		Use:   "eventboard",
		Short: "Eventboard - event management backend",
		Long: `Eventboard serves an HTTP API for creating, listing, updating, deleting
and joining capacity-limited events, and pushes change notifications to
websocket listeners.

Configuration is read from environment variables (and a .env file outside
production).`,
		SilenceUsage: true,
		// Run the serve command by default if no subcommand is specified
		RunE: func(cmd *cobra.Command, args []string) error {
			return serveCmd.RunE(cmd, args)
		},
	}
)

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error) (default: LOG_LEVEL or info)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(tokenCmd)
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	return cfg, nil
}
