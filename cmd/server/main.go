package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"barangay/internal/platform/config"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "barangay",
		Short:         "Barangay citizen services backend",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.AddCommand(serveCmd(), renderCmd(), tokenCmd())
	return cmd
}

func serveCmd() *cobra.Command {
	var addr, logLevel string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, notification dispatcher and background jobs",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.FromEnv()
			if addr != "" {
				cfg.Addr = addr
			}
			if logLevel != "" {
				cfg.LogLevel = logLevel
			}
			return serve(cmd.Context(), cfg)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides BARANGAY_ADDR)")
	cmd.Flags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error (overrides LOG_LEVEL)")
	return cmd
}
