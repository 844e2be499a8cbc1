// Copyright (C) 2026 Gridbench Labs (dev@gridbench.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gridbench/tracelabel/services/labeler/datatypes"
	"github.com/gridbench/tracelabel/services/labeler/metacache"
	"github.com/gridbench/tracelabel/services/labeler/store"
)

var statsJSON bool

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print labeling progress without starting the server",
	Long: `Computes labeling progress over the deduplicated puzzle set:
counts per verdict, completion and accuracy rates, and the failure-mode
tally over incorrect labels.

Examples:
  tracelabel stats
  tracelabel stats --json | jq .completion_rate`,
	RunE: runStats,
}

func init() {
	statsCmd.Flags().BoolVar(&statsJSON, "json", false, "Output as JSON")
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
	cache := newCache()
	labels := store.New(cfg.LabelsFile, cfg.Reviewer, nil)

	puzzles, err := cache.Get(cmd.Context())
	if err != nil {
		return fmt.Errorf("loading puzzle metadata: %w", err)
	}
	labelMap := labels.Load()

	stats := datatypes.Stats{FailureModes: make(map[string]int, len(datatypes.FailureModes))}
	for _, mode := range datatypes.FailureModes {
		stats.FailureModes[mode] = 0
	}

	for id, candidates := range puzzles {
		record, hasLabel := labelMap[id]
		labeledPath := ""
		if hasLabel {
			labeledPath = record.FilePath
		}
		if _, _, ok := metacache.SelectCanonical(candidates, labeledPath); !ok {
			continue
		}
		stats.TotalPuzzles++
		if !hasLabel {
			continue
		}
		stats.TotalLabeled++
		switch record.Label {
		case datatypes.LabelCorrect:
			stats.Correct++
		case datatypes.LabelIncorrect:
			stats.Incorrect++
			for _, mode := range record.FailureModes {
				stats.FailureModes[mode]++
			}
		case datatypes.LabelSkipped:
			stats.Skipped++
		}
	}
	stats.Unlabeled = stats.TotalPuzzles - stats.TotalLabeled
	if stats.TotalPuzzles > 0 {
		stats.CompletionRate = 100 * float64(stats.TotalLabeled) / float64(stats.TotalPuzzles)
	}
	if judged := stats.Correct + stats.Incorrect; judged > 0 {
		stats.AccuracyRate = 100 * float64(stats.Correct) / float64(judged)
	}

	if statsJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(stats)
	}

	fmt.Printf("puzzles:    %d\n", stats.TotalPuzzles)
	fmt.Printf("labeled:    %d (%.1f%%)\n", stats.TotalLabeled, stats.CompletionRate)
	fmt.Printf("unlabeled:  %d\n", stats.Unlabeled)
	fmt.Printf("correct:    %d\n", stats.Correct)
	fmt.Printf("incorrect:  %d\n", stats.Incorrect)
	fmt.Printf("skipped:    %d\n", stats.Skipped)
	fmt.Printf("accuracy:   %.1f%%\n", stats.AccuracyRate)
	fmt.Println("failure modes (incorrect only):")
	for _, mode := range datatypes.FailureModes {
		fmt.Printf("  %s: %d\n", mode, stats.FailureModes[mode])
	}
	return nil
}
