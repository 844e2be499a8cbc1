// Copyright (C) 2026 Gridbench Labs (dev@gridbench.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gridbench/tracelabel/services/labeler/datatypes"
	"github.com/gridbench/tracelabel/services/labeler/observability"
	"github.com/gridbench/tracelabel/services/labeler/store"
)

// SaveLabelRequest is the POST /api/label body. Binding validation
// rejects unknown label values and failure-mode codes before the store
// is touched.
type SaveLabelRequest struct {
	PuzzleID     string          `json:"puzzle_id" binding:"required"`
	Label        datatypes.Label `json:"label" binding:"required,oneof=correct incorrect skipped"`
	Reasoning    string          `json:"reasoning"`
	FilePath     string          `json:"file_path"`
	FailureModes []string        `json:"failure_modes" binding:"omitempty,dive,oneof=A1 A2 A3 B1 B2 C1 C2 C3"`
}

// SaveLabel serves POST /api/label: create or overwrite the label for
// a puzzle.
func SaveLabel(labels *store.LabelStore, metrics *observability.LabelerMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req SaveLabelRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			metrics.RecordMutation("upsert", "rejected")
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid label request: " + err.Error()})
			return
		}

		record, isEdit, err := labels.Upsert(req.PuzzleID, req.Label, req.Reasoning, req.FilePath, req.FailureModes)
		if err != nil {
			metrics.RecordMutation("upsert", mutationResult(err))
			writeError(c, err)
			return
		}
		metrics.RecordMutation("upsert", "success")

		c.JSON(http.StatusOK, gin.H{
			"success":       true,
			"puzzle_id":     req.PuzzleID,
			"label":         record.Label,
			"failure_modes": record.FailureModes,
			"is_edit":       isEdit,
		})
	}
}

// DeleteLabel serves DELETE /api/label/:puzzle_id.
func DeleteLabel(labels *store.LabelStore, metrics *observability.LabelerMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		puzzleID := c.Param("puzzle_id")
		if err := labels.Remove(puzzleID); err != nil {
			metrics.RecordMutation("delete", mutationResult(err))
			writeError(c, err)
			return
		}
		metrics.RecordMutation("delete", "success")

		slog.Info("label deleted via api", slog.String("puzzle_id", puzzleID))
		c.JSON(http.StatusOK, gin.H{
			"success":   true,
			"puzzle_id": puzzleID,
		})
	}
}
