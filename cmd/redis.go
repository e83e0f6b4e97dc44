package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"HipHopLab/cache"
	"HipHopLab/logger"
)

var redisCmd = &cobra.Command{
	Use:   "redis",
	Short: "Check the Redis cache connection",
	Long:  `Connect to the configured Redis server and run a write, read and delete round trip.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := setup()
		if err != nil {
			return err
		}
		defer logger.Sync()

		fmt.Fprintf(cmd.OutOrStdout(), "Redis: %s:%s, DB: %d\n", cfg.RedisHost, cfg.RedisPort, cfg.RedisDB)
		ctx := cmd.Context()
		if err := cache.ConnectRedis(ctx, cfg); err != nil {
			return err
		}
		defer func() {
			if err := cache.CloseRedis(); err != nil {
				logger.Warn("failed to close redis", logger.ErrorField(err))
			}
		}()
		fmt.Fprintln(cmd.OutOrStdout(), "connected")

		if err := cache.CheckRedis(ctx); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "round trip ok")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(redisCmd)
}
