package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"HipHopLab/core/audio"
	"HipHopLab/core/library"
	"HipHopLab/core/persist"
	"HipHopLab/core/player"
	"HipHopLab/logger"
	"HipHopLab/server"
)

const flushTimeout = 5 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the player daemon",
	Long: `Start the audio engine, restore the library and settings, watch the import
folder and serve the HTTP and websocket API until interrupted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(parent context.Context) error {
	cfg, err := setup()
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	be, err := openBackend(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := be.Close(); err != nil {
			logger.Warn("failed to close backend", logger.ErrorField(err))
		}
	}()

	registry := library.NewRegistry()
	store := player.NewStore()

	engine := audio.Shared(audio.Options{
		SampleRate: beep.SampleRate(cfg.SampleRate),
		Resolver:   registry,
		CacheSize:  cfg.DecodeCacheSize,
	})
	defer engine.Close()
	engine.Bind(store)

	bridge := persist.NewBridge(store, be.settings, be.tracks, be.blobs, registry, cfg.PersistDebounce)
	if err := bridge.Load(ctx); err != nil {
		return fmt.Errorf("failed to restore library: %w", err)
	}
	bridge.Start()

	importer := library.NewImporter(store, be.tracks, be.blobs, registry)
	srv := server.New(server.Deps{
		Config:    cfg,
		Store:     store,
		Transport: engine,
		Analyser:  engine.Analyser(),
		Importer:  importer,
		Registry:  registry,
		Blobs:     be.blobs,
		Settings:  bridge,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.Run(gctx) })
	if cfg.ImportDir != "" {
		watcher := library.NewWatcher(cfg.ImportDir, cfg.ImportSettleTime, importer)
		g.Go(func() error {
			// the player keeps running without folder intake
			if err := watcher.Run(gctx); err != nil {
				logger.Error("import watcher stopped", logger.ErrorField(err))
			}
			return nil
		})
	}
	runErr := g.Wait()

	bridge.Stop()
	flushCtx, cancel := context.WithTimeout(context.Background(), flushTimeout)
	defer cancel()
	if err := bridge.Flush(flushCtx); err != nil {
		logger.Error("failed to flush library on shutdown", logger.ErrorField(err))
	}
	return runErr
}
