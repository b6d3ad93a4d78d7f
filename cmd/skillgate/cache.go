package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/jingkaihe/skillgate/pkg/cache"
	"github.com/jingkaihe/skillgate/pkg/presenter"
	"github.com/spf13/cobra"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect the fingerprint cache",
}

var cacheListCmd = &cobra.Command{
	Use:   "list",
	Short: "List cached file fingerprints",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		cfg, err := loadConfig()
		if err != nil {
			presenter.Error(err, "Invalid configuration")
			os.Exit(1)
		}

		if err := listCache(cmd.Context(), cfg.Cache, os.Stdout); err != nil {
			presenter.Error(err, "Failed to list cache")
			os.Exit(1)
		}
	},
}

var cachePathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the fingerprint cache location",
	Args:  cobra.NoArgs,
	Run: func(_ *cobra.Command, _ []string) {
		cfg, err := loadConfig()
		if err != nil {
			presenter.Error(err, "Invalid configuration")
			os.Exit(1)
		}
		fmt.Println(cfg.Cache.ResolvedPath())
	},
}

func init() {
	cacheCmd.AddCommand(cacheListCmd)
	cacheCmd.AddCommand(cachePathCmd)
}

func listCache(ctx context.Context, cfg cache.Config, w io.Writer) error {
	store, err := cache.NewStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	entries, err := store.Load(ctx)
	if err != nil {
		return err
	}

	for _, path := range entries.Paths() {
		fmt.Fprintf(w, "%s  %s\n", entries[path], path)
	}
	return nil
}
