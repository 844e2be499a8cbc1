// Copyright (C) 2026 Gridbench Labs (dev@gridbench.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"github.com/gridbench/tracelabel/services/labeler/detail"
	"github.com/gridbench/tracelabel/services/labeler/metacache"
	"github.com/gridbench/tracelabel/services/labeler/middleware"
	"github.com/gridbench/tracelabel/services/labeler/observability"
	"github.com/gridbench/tracelabel/services/labeler/routes"
	"github.com/gridbench/tracelabel/services/labeler/store"
)

var serveDebug bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the labeling API server",
	Long: `Starts the HTTP server.

The metadata cache is warmed on startup so the first request does not
pay the full directory scan. Labels are persisted to the configured
flat JSON file on every mutation.

Examples:
  tracelabel serve
  tracelabel serve --traces-dir /data/runs/v11 --debug`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&serveDebug, "debug", false, "Enable gin debug mode and request logging")
	rootCmd.AddCommand(serveCmd)
}

// initTracer installs a stdout span exporter. Spans go to stderr so
// they interleave with nothing on stdout; the returned cleanup flushes
// pending spans.
func initTracer() (func(context.Context), error) {
	exporter, err := stdouttrace.New(
		stdouttrace.WithWriter(os.Stderr),
		stdouttrace.WithPrettyPrint(),
	)
	if err != nil {
		return nil, err
	}
	res, err := resource.New(context.Background(),
		resource.WithAttributes(semconv.ServiceNameKey.String("tracelabel")))
	if err != nil {
		return nil, err
	}
	provider := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithResource(res),
		sdktrace.WithBatcher(exporter))
	otel.SetTracerProvider(provider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{}, propagation.Baggage{}))

	return func(ctx context.Context) {
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := provider.Shutdown(ctx); err != nil {
			slog.Error("failed to shut down tracer", slog.String("error", err.Error()))
		}
	}, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	if serveDebug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	if cfg.EnableTracing {
		cleanup, err := initTracer()
		if err != nil {
			return fmt.Errorf("setting up tracer: %w", err)
		}
		defer cleanup(context.Background())
	}

	cache := metacache.New(metacache.Config{
		TracesDir:  cfg.TracesDir,
		CacheFile:  cfg.CacheFile,
		MemoryTTL:  cfg.MemoryTTL(),
		DiskMaxAge: cfg.DiskMaxAge(),
	})
	labels := store.New(cfg.LabelsFile, cfg.Reviewer, cache.Invalidate)
	loader := detail.NewLoader(cfg.TracesDir, cache, labels)
	metrics := observability.InitMetrics()

	// Warm the cache so the first request is cheap.
	if puzzles, err := cache.Get(cmd.Context()); err != nil {
		slog.Warn("initial cache build failed, will retry on first request",
			slog.String("error", err.Error()))
	} else {
		slog.Info("metadata cache warmed", slog.Int("puzzles", len(puzzles)))
	}

	router := gin.New()
	router.Use(gin.Recovery())
	if serveDebug {
		router.Use(gin.Logger())
	}
	router.Use(middleware.RequestID())
	router.Use(observability.Middleware(metrics))
	if cfg.EnableTracing {
		router.Use(otelgin.Middleware("tracelabel"))
	}
	routes.SetupRoutes(router, cache, labels, loader, metrics)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-quit
		slog.Info("shutting down tracelabel server")
		os.Exit(0)
	}()

	addr := fmt.Sprintf(":%d", cfg.Port)
	slog.Info("starting tracelabel server",
		slog.String("address", addr),
		slog.String("traces_dir", cfg.TracesDir),
		slog.String("labels_file", cfg.LabelsFile))
	if err := router.Run(addr); err != nil {
		return fmt.Errorf("server exited: %w", err)
	}
	return nil
}
