package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"instrupro-backend/internal/cache"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect or clear the local snapshot cache",
}

var cacheListCmd = &cobra.Command{
	Use:   "list",
	Short: "List cached keys",
	RunE: func(cmd *cobra.Command, args []string) error {
		files, err := openCache()
		if err != nil {
			return err
		}
		return listKeys(cmd.OutOrStdout(), files)
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear [key...]",
	Short: "Remove cached snapshots; every key when none is given",
	RunE: func(cmd *cobra.Command, args []string) error {
		files, err := openCache()
		if err != nil {
			return err
		}
		removed, err := clearKeys(files, args)
		if err != nil {
			return err
		}
		logger.Info("Cache cleared", zap.Strings("keys", removed))
		return nil
	},
}

func init() {
	cacheCmd.AddCommand(cacheListCmd, cacheClearCmd)
}

func openCache() (*cache.FileStore, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return cache.NewFileStore(cfg.Cache.Dir)
}

func listKeys(w io.Writer, files *cache.FileStore) error {
	keys, err := files.Keys()
	if err != nil {
		return err
	}
	for _, k := range keys {
		fmt.Fprintln(w, k)
	}
	return nil
}

// clearKeys removes keys from files, or every key when keys is empty. A
// running server sees the removal through its cache watcher.
func clearKeys(files *cache.FileStore, keys []string) ([]string, error) {
	if len(keys) == 0 {
		var err error
		if keys, err = files.Keys(); err != nil {
			return nil, err
		}
	}
	for _, k := range keys {
		if err := files.RemoveItem(k); err != nil {
			return nil, fmt.Errorf("failed to remove %q: %w", k, err)
		}
	}
	return keys, nil
}
