package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"HipHopLab/config"
	"HipHopLab/logger"
)

var rootCmd = &cobra.Command{
	Use:   "hiphoplab",
	Short: "HipHopLab is a local music player daemon.",
	Long: `HipHopLab plays a local music library through a 10-band equalizer and a
spectrum analyser, syncs LRC lyrics by tapping along, and exposes the player
over HTTP and websockets.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
	SilenceUsage: true,
}

// Execute executes the root command.
func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// setup loads the configuration and starts the logger.
func setup() (*config.Config, error) {
	cfg := config.Load()
	err := logger.InitLogger(logger.Config{
		Level:      logger.LogLevel(cfg.LogLevel),
		OutputPath: cfg.LogPath,
		Console:    true,
		MaxSize:    50,
		MaxBackups: 5,
		MaxAge:     14,
		Compress:   true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return cfg, nil
}
