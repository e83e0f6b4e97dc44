package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"HipHopLab/core/library"
	"HipHopLab/core/persist"
	"HipHopLab/core/player"
	"HipHopLab/logger"
)

var importCmd = &cobra.Command{
	Use:   "import <file>...",
	Short: "Import audio files into the library",
	Long: `Import audio files into the configured library without starting the server.
Titles, artists and covers are read from embedded tags when present.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := setup()
		if err != nil {
			return err
		}
		defer logger.Sync()

		ctx := cmd.Context()
		be, err := openBackend(ctx, cfg)
		if err != nil {
			return err
		}
		defer be.Close()

		registry := library.NewRegistry()
		store := player.NewStore()
		bridge := persist.NewBridge(store, be.settings, be.tracks, be.blobs, registry, cfg.PersistDebounce)
		if err := bridge.Load(ctx); err != nil {
			return fmt.Errorf("failed to load library: %w", err)
		}

		importer := library.NewImporter(store, be.tracks, be.blobs, registry)
		failed := importFiles(ctx, cmd, importer, args)
		if err := bridge.Flush(ctx); err != nil {
			return fmt.Errorf("failed to save library: %w", err)
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d files failed to import", failed, len(args))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(importCmd)
}

func importFiles(ctx context.Context, cmd *cobra.Command, importer library.FileImporter, paths []string) int {
	failed := 0
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			cmd.PrintErrf("%s: %v\n", path, err)
			failed++
			continue
		}
		track, err := importer.Import(ctx, filepath.Base(path), data)
		if err != nil {
			cmd.PrintErrf("%s: %v\n", path, err)
			failed++
			continue
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s - %s (%s)\n", track.ID, track.Artist, track.Title, formatDuration(track.Duration))
	}
	return failed
}

func formatDuration(seconds float64) string {
	s := int(seconds)
	return fmt.Sprintf("%d:%02d", s/60, s%60)
}
