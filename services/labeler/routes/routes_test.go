// Copyright (C) 2026 Gridbench Labs (dev@gridbench.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package routes

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/gridbench/tracelabel/services/labeler/detail"
	"github.com/gridbench/tracelabel/services/labeler/metacache"
	"github.com/gridbench/tracelabel/services/labeler/observability"
	"github.com/gridbench/tracelabel/services/labeler/store"
)

func newRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	tracesDir := t.TempDir()
	cache := metacache.New(metacache.Config{TracesDir: tracesDir})
	labels := store.New(filepath.Join(t.TempDir(), "labels.json"), "", cache.Invalidate)
	loader := detail.NewLoader(tracesDir, cache, labels)

	router := gin.New()
	SetupRoutes(router, cache, labels, loader, observability.InitMetrics())
	return router
}

func TestSetupRoutes(t *testing.T) {
	router := newRouter(t)

	t.Run("registers the full api surface", func(t *testing.T) {
		want := []string{
			"GET /",
			"GET /health",
			"GET /metrics",
			"GET /api/puzzles",
			"GET /api/puzzles/unlabeled",
			"GET /api/puzzle/*path",
			"POST /api/label",
			"DELETE /api/label/:puzzle_id",
			"GET /api/stats",
		}
		registered := make(map[string]bool)
		for _, route := range router.Routes() {
			registered[route.Method+" "+route.Path] = true
		}
		for _, w := range want {
			if !registered[w] {
				t.Errorf("route not registered: %s", w)
			}
		}
	})

	t.Run("health responds ok", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
		if w.Code != http.StatusOK {
			t.Errorf("status = %d, want 200", w.Code)
		}
		if !strings.Contains(w.Body.String(), "ok") {
			t.Errorf("body = %s, want ok status", w.Body.String())
		}
	})

	t.Run("metrics endpoint serves prometheus text", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
		if w.Code != http.StatusOK {
			t.Errorf("status = %d, want 200", w.Code)
		}
		if !strings.Contains(w.Body.String(), "tracelabel_") {
			t.Error("metrics output should include the service namespace")
		}
	})

	t.Run("index lists the api", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		if w.Code != http.StatusOK {
			t.Errorf("status = %d, want 200", w.Code)
		}
		if !strings.Contains(w.Body.String(), "/api/puzzles") {
			t.Error("index should mention the puzzle listing endpoint")
		}
	})
}
