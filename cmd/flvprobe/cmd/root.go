// Package cmd implements the CLI commands for flvprobe.
package cmd

import (
	"fmt"
	"log/slog"

	"github.com/jmylchreest/flvdemux/internal/observability"
	"github.com/spf13/cobra"
)

var (
	logLevel  string
	logFormat string

	logger *slog.Logger
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "flvprobe",
	Short: "Inspect FLV streams with the flvdemux core",
	Long: `flvprobe drives the flvdemux core demuxer over a file or stdin,
printing a JSON summary of the video, audio, and metadata tracks it
produces.`,
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		logger = observability.NewLogger(observability.Config{
			Level:  logLevel,
			Format: logFormat,
		})
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		return fmt.Errorf("executing root command: %w", err)
	}
	return nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (trace, debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "log format (text, json)")
}
