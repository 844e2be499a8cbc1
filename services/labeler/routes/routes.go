// Copyright (C) 2026 Gridbench Labs (dev@gridbench.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package routes wires the labeler HTTP surface onto a gin engine.
package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gridbench/tracelabel/services/labeler/detail"
	"github.com/gridbench/tracelabel/services/labeler/handlers"
	"github.com/gridbench/tracelabel/services/labeler/metacache"
	"github.com/gridbench/tracelabel/services/labeler/observability"
	"github.com/gridbench/tracelabel/services/labeler/store"
)

// SetupRoutes registers every route of the labeler service. Middleware
// is attached by the caller so tests can mount routes bare.
//
// The puzzle detail route uses a wildcard because analysis files live
// in nested directories; the handler dispatches the
// training_predicted_input sub-resource by path suffix.
func SetupRoutes(router *gin.Engine, cache *metacache.Cache, labels *store.LabelStore, loader *detail.Loader, metrics *observability.LabelerMetrics) {
	router.GET("/", handlers.Index())
	router.GET("/health", handlers.HealthCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api")
	{
		api.GET("/puzzles", handlers.ListPuzzles(cache, labels))
		api.GET("/puzzles/unlabeled", handlers.ListUnlabeled(cache, labels))
		api.GET("/puzzle/*path", handlers.GetPuzzle(loader))
		api.POST("/label", handlers.SaveLabel(labels, metrics))
		api.DELETE("/label/:puzzle_id", handlers.DeleteLabel(labels, metrics))
		api.GET("/stats", handlers.GetStats(cache, labels))
	}
}
