// Copyright (C) 2026 Gridbench Labs (dev@gridbench.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	labeler "github.com/gridbench/tracelabel/services/labeler"
)

// writeError maps service errors to HTTP responses. Unclassified
// errors become a 500 and are logged here so handlers don't have to.
func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, labeler.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, labeler.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		slog.Error("request failed",
			slog.String("path", c.Request.URL.Path),
			slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

// mutationResult classifies a mutation error for metrics: client
// mistakes are "rejected", everything else "error".
func mutationResult(err error) string {
	if errors.Is(err, labeler.ErrValidation) || errors.Is(err, labeler.ErrNotFound) {
		return "rejected"
	}
	return "error"
}

// HealthCheck serves GET /health for load balancers and probes.
func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// indexPage is the minimal landing page. The labeling frontend is
// served separately; this page just confirms the API is up and lists
// the entry points.
const indexPage = `<!DOCTYPE html>
<html>
<head><title>tracelabel</title></head>
<body>
<h1>tracelabel</h1>
<p>Reasoning-trace labeling API.</p>
<ul>
<li><code>GET /api/puzzles</code> - all puzzles with label state</li>
<li><code>GET /api/puzzles/unlabeled</code> - paginated unlabeled queue</li>
<li><code>GET /api/puzzle/{path}</code> - full puzzle detail</li>
<li><code>POST /api/label</code> - save a label</li>
<li><code>DELETE /api/label/{puzzle_id}</code> - remove a label</li>
<li><code>GET /api/stats</code> - labeling progress</li>
<li><code>GET /metrics</code> - Prometheus metrics</li>
</ul>
</body>
</html>
`

// Index serves GET /.
func Index() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Content-Type", "text/html; charset=utf-8")
		c.String(http.StatusOK, indexPage)
	}
}
