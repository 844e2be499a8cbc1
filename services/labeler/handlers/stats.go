// Copyright (C) 2026 Gridbench Labs (dev@gridbench.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gridbench/tracelabel/services/labeler/datatypes"
	"github.com/gridbench/tracelabel/services/labeler/metacache"
	"github.com/gridbench/tracelabel/services/labeler/store"
)

// GetStats serves GET /api/stats: labeling progress over the
// deduplicated puzzle population.
//
// Rates are percentages. completion_rate is labeled over total;
// accuracy_rate is correct over correct+incorrect, so skipped puzzles
// count toward completion but not accuracy. Failure modes are tallied
// over incorrect labels only, and every catalog code is present in the
// map even at zero.
func GetStats(cache *metacache.Cache, labels *store.LabelStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		list, err := buildPuzzleList(c.Request.Context(), cache, labels)
		if err != nil {
			writeError(c, err)
			return
		}

		stats := datatypes.Stats{
			TotalPuzzles: len(list),
			FailureModes: make(map[string]int, len(datatypes.FailureModes)),
		}
		for _, mode := range datatypes.FailureModes {
			stats.FailureModes[mode] = 0
		}

		labelMap := labels.Load()
		for _, p := range list {
			if p.Label == nil {
				continue
			}
			stats.TotalLabeled++
			switch *p.Label {
			case datatypes.LabelCorrect:
				stats.Correct++
			case datatypes.LabelIncorrect:
				stats.Incorrect++
				if record, ok := labelMap[p.PuzzleID]; ok {
					for _, mode := range record.FailureModes {
						stats.FailureModes[mode]++
					}
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

		c.JSON(http.StatusOK, stats)
	}
}
