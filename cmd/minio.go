package cmd

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"HipHopLab/logger"
	"HipHopLab/storage"
)

var (
	minioPrefix string
	minioStats  bool
)

var minioCmd = &cobra.Command{
	Use:   "minio",
	Short: "Check the MinIO blob store",
	Long: `Connect to the configured MinIO bucket and run a probe round trip, or print
object statistics for a prefix.`,
	Example: `  # probe the bucket
  hiphoplab minio

  # statistics for stored audio
  hiphoplab minio -s -p audio/`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := setup()
		if err != nil {
			return err
		}
		defer logger.Sync()

		fmt.Fprintf(cmd.OutOrStdout(), "MinIO: %s, bucket: %s\n", cfg.MinioEndpoint, cfg.MinioBucket)
		ctx := cmd.Context()
		store, err := storage.NewMinioStore(ctx, cfg)
		if err != nil {
			return err
		}

		if minioStats {
			stats, err := store.Stats(ctx, minioPrefix)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "objects: %d\nsize: %s\n", stats.TotalObjects, humanize.IBytes(uint64(stats.TotalSize)))
			if stats.TotalObjects > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "last modified: %s\n", humanize.Time(stats.LastModified))
			}
			return nil
		}

		if err := store.Check(ctx); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "probe round trip ok")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(minioCmd)
	minioCmd.Flags().StringVarP(&minioPrefix, "prefix", "p", "", "object key prefix for statistics")
	minioCmd.Flags().BoolVarP(&minioStats, "stats", "s", false, "print object statistics instead of probing")
}
