// Copyright (C) 2026 Gridbench Labs (dev@gridbench.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package handlers implements the labeler HTTP API.
package handlers

import (
	"context"
	"net/http"
	"sort"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/gridbench/tracelabel/services/labeler/datatypes"
	"github.com/gridbench/tracelabel/services/labeler/metacache"
	"github.com/gridbench/tracelabel/services/labeler/store"
)

// defaultPageSize matches the review UI's batch size.
const defaultPageSize = 5

// buildPuzzleList assembles the deduplicated listing: for every puzzle
// id the canonical candidate is selected and merged with label state,
// then the whole list is sorted by puzzle id for stable ordering
// across requests.
func buildPuzzleList(ctx context.Context, cache *metacache.Cache, labels *store.LabelStore) ([]datatypes.PuzzleSummary, error) {
	puzzles, err := cache.Get(ctx)
	if err != nil {
		return nil, err
	}
	labelMap := labels.Load()

	list := make([]datatypes.PuzzleSummary, 0, len(puzzles))
	for id, candidates := range puzzles {
		record, hasLabel := labelMap[id]
		labeledPath := ""
		if hasLabel {
			labeledPath = record.FilePath
		}
		selected, numDuplicates, ok := metacache.SelectCanonical(candidates, labeledPath)
		if !ok {
			continue
		}

		summary := datatypes.PuzzleSummary{
			PuzzleID:      id,
			FilePath:      selected.RelPath,
			Reviewer:      store.DefaultReviewer,
			NumDuplicates: numDuplicates,
		}
		if hasLabel {
			label := record.Label
			summary.Label = &label
			summary.Reasoning = record.Reasoning
			summary.Timestamp = record.Timestamp
			summary.AutoDetected = record.AutoDetected
			summary.Reviewer = record.Reviewer
		}
		list = append(list, summary)
	}

	sort.Slice(list, func(i, j int) bool {
		return list[i].PuzzleID < list[j].PuzzleID
	})
	return list, nil
}

// ListPuzzles serves GET /api/puzzles: the full deduplicated puzzle
// list with label state.
func ListPuzzles(cache *metacache.Cache, labels *store.LabelStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		list, err := buildPuzzleList(c.Request.Context(), cache, labels)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, list)
	}
}

// ListUnlabeled serves GET /api/puzzles/unlabeled: the paginated
// unlabeled subset sorted by puzzle id. Any stored label, including
// "skipped", removes a puzzle from this listing.
func ListUnlabeled(cache *metacache.Cache, labels *store.LabelStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultPageSize)))
		if err != nil || limit < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a non-negative integer"})
			return
		}
		offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
		if err != nil || offset < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "offset must be a non-negative integer"})
			return
		}

		list, err := buildPuzzleList(c.Request.Context(), cache, labels)
		if err != nil {
			writeError(c, err)
			return
		}

		unlabeled := make([]datatypes.PuzzleSummary, 0, len(list))
		for _, p := range list {
			if p.Label == nil {
				unlabeled = append(unlabeled, p)
			}
		}

		total := len(unlabeled)
		start := offset
		if start > total {
			start = total
		}
		end := start + limit
		if end > total {
			end = total
		}

		c.JSON(http.StatusOK, gin.H{
			"puzzles":  unlabeled[start:end],
			"total":    total,
			"offset":   offset,
			"limit":    limit,
			"has_more": offset+limit < total,
		})
	}
}
