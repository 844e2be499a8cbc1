// Copyright (C) 2026 Gridbench Labs (dev@gridbench.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gridbench/tracelabel/services/labeler/metacache"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the puzzle metadata cache",
}

var cacheRebuildCmd = &cobra.Command{
	Use:   "rebuild",
	Short: "Force a full rescan of the analysis directory",
	Long: `Discards any cached metadata and rescans the traces directory,
persisting a fresh snapshot. Useful after bulk-copying new analysis
files into the tree.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cache := newCache()
		puzzles, err := cache.Rebuild(cmd.Context())
		if err != nil {
			return fmt.Errorf("rebuilding cache: %w", err)
		}
		files := 0
		for _, candidates := range puzzles {
			files += len(candidates)
		}
		fmt.Printf("cache rebuilt: %d puzzles, %d analysis files\n", len(puzzles), files)
		return nil
	},
}

var cacheInvalidateCmd = &cobra.Command{
	Use:   "invalidate",
	Short: "Drop the cached metadata snapshot",
	RunE: func(cmd *cobra.Command, args []string) error {
		newCache().Invalidate()
		fmt.Println("cache invalidated")
		return nil
	},
}

func newCache() *metacache.Cache {
	return metacache.New(metacache.Config{
		TracesDir:  cfg.TracesDir,
		CacheFile:  cfg.CacheFile,
		MemoryTTL:  cfg.MemoryTTL(),
		DiskMaxAge: cfg.DiskMaxAge(),
	})
}

func init() {
	cacheCmd.AddCommand(cacheRebuildCmd)
	cacheCmd.AddCommand(cacheInvalidateCmd)
	rootCmd.AddCommand(cacheCmd)
}
