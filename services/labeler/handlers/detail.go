// Copyright (C) 2026 Gridbench Labs (dev@gridbench.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/gridbench/tracelabel/services/labeler/detail"
)

// predictedInputSuffix marks the sub-resource under a puzzle path that
// serves the rendered input grid of one training booklet.
const predictedInputSuffix = "/training_predicted_input/"

// GetPuzzle serves GET /api/puzzle/*path.
//
// The wildcard carries a relative file path that may itself contain
// slashes, so the predicted-input sub-resource is dispatched here by
// suffix instead of by a separate route: a trailing
// /training_predicted_input/{index} segment selects the rendered input
// grid of that training booklet, anything else loads the full detail
// view.
func GetPuzzle(loader *detail.Loader) gin.HandlerFunc {
	return func(c *gin.Context) {
		relPath := strings.TrimPrefix(c.Param("path"), "/")

		if idx := strings.LastIndex(relPath, predictedInputSuffix); idx >= 0 {
			index, err := strconv.Atoi(relPath[idx+len(predictedInputSuffix):])
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "booklet index must be an integer"})
				return
			}
			grid, err := loader.TrainingPredictedInput(relPath[:idx], index)
			if err != nil {
				writeError(c, err)
				return
			}
			c.JSON(http.StatusOK, grid)
			return
		}

		puzzle, err := loader.Load(c.Request.Context(), relPath)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, puzzle)
	}
}
