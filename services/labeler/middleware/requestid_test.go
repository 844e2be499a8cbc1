// Copyright (C) 2026 Gridbench Labs (dev@gridbench.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func newRouter() (*gin.Engine, *string) {
	gin.SetMode(gin.TestMode)
	var seen string
	router := gin.New()
	router.Use(RequestID())
	router.GET("/ping", func(c *gin.Context) {
		seen = GetRequestID(c)
		c.Status(http.StatusOK)
	})
	return router, &seen
}

func TestRequestID(t *testing.T) {
	t.Run("generates an id when none is supplied", func(t *testing.T) {
		router, seen := newRouter()
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))

		header := w.Header().Get(RequestIDHeader)
		if header == "" {
			t.Fatal("response should carry a request id header")
		}
		if _, err := uuid.Parse(header); err != nil {
			t.Errorf("request id %q is not a uuid: %v", header, err)
		}
		if *seen != header {
			t.Errorf("handler saw %q, header carries %q", *seen, header)
		}
	})

	t.Run("reuses a client-supplied id", func(t *testing.T) {
		router, seen := newRouter()
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.Header.Set(RequestIDHeader, "client-id-123")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if got := w.Header().Get(RequestIDHeader); got != "client-id-123" {
			t.Errorf("header = %q, want the client id", got)
		}
		if *seen != "client-id-123" {
			t.Errorf("handler saw %q, want the client id", *seen)
		}
	})

	t.Run("ids differ across requests", func(t *testing.T) {
		router, _ := newRouter()
		ids := make(map[string]bool)
		for i := 0; i < 3; i++ {
			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
			ids[w.Header().Get(RequestIDHeader)] = true
		}
		if len(ids) != 3 {
			t.Errorf("got %d distinct ids across 3 requests, want 3", len(ids))
		}
	})
}
