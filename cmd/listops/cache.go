package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var olderThan time.Duration

// cacheCmd groups completion cache maintenance
var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and maintain the completion cache",
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show the number of cached responses and hits",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withCache(cmd, func(cache completionCache) error {
			st, err := cache.Stats(cmd.Context())
			if err != nil {
				return err
			}
			return json.NewEncoder(cmd.OutOrStdout()).Encode(st)
		})
	},
}

var cachePruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Remove responses older than --older-than",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withCache(cmd, func(cache completionCache) error {
			n, err := cache.Prune(cmd.Context(), time.Now().Add(-olderThan))
			if err != nil {
				return err
			}
			logger.Info("pruned completion cache", zap.Int64("removed", n), zap.Duration("older_than", olderThan))
			fmt.Fprintf(cmd.OutOrStdout(), "removed %d responses\n", n)
			return nil
		})
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every cached response",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withCache(cmd, func(cache completionCache) error {
			return cache.Clear(cmd.Context())
		})
	},
}

func init() {
	cachePruneCmd.Flags().DurationVar(&olderThan, "older-than", 30*24*time.Hour, "Age of the responses to remove")
	cacheCmd.AddCommand(cacheStatsCmd, cachePruneCmd, cacheClearCmd)
}

func withCache(cmd *cobra.Command, fn func(cache completionCache) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.Cache.Path == "" {
		return fmt.Errorf("no cache configured (set cache.path in %s)", configPath)
	}
	cache, err := openCache(cfg.Cache.Path)
	if err != nil {
		return err
	}
	defer closerOf(cache)()
	return fn(cache)
}
