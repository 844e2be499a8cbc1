// Copyright (C) 2026 Gridbench Labs (dev@gridbench.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package metacache maintains the two-tier (memory + disk) index of
// puzzle metadata over the traces directory, and the canonical-file
// selection order among duplicate analysis files.
//
// Description:
//
//	Scanning the full traces tree reads every analysis file, so the
//	result is memoized twice: an in-memory snapshot with a short TTL,
//	and a JSON cache file with a longer absolute age bound whose
//	entries are revalidated against each source file's modification
//	time on load. The disk tier survives process restarts; both tiers
//	are disposable derived artifacts, safe to delete at any time.
//
// Thread Safety:
//
//	All Cache methods are safe for concurrent use. A single mutex
//	serializes read-through, rebuild, and invalidation so concurrent
//	requests cannot race on the cache file.
package metacache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/gridbench/tracelabel/services/labeler/datatypes"
)

// Tracer for cache operations.
var cacheTracer = otel.Tracer("tracelabel.metacache")

// Prometheus metrics for cache behavior.
var (
	cacheGetsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tracelabel_metadata_cache_gets_total",
		Help: "Metadata cache reads by observed cache state",
	}, []string{"state"})

	cacheRebuildsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tracelabel_metadata_cache_rebuilds_total",
		Help: "Full metadata cache rebuilds",
	})

	cacheRebuildDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "tracelabel_metadata_cache_rebuild_duration_seconds",
		Help:    "Time spent rebuilding the metadata cache",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60},
	})

	cacheScannedFiles = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tracelabel_metadata_cache_scanned_files_total",
		Help: "Analysis files seen during rebuilds by outcome",
	}, []string{"result"})

	cacheInvalidations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tracelabel_metadata_cache_invalidations_total",
		Help: "Explicit cache invalidations (label mutations)",
	})

	cachePrunedEntries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tracelabel_metadata_cache_pruned_entries_total",
		Help: "Disk cache entries dropped by per-entry revalidation",
	})
)

// State describes which cache tier can currently serve a read.
type State string

const (
	// StateFresh means the in-memory snapshot is within its TTL.
	StateFresh State = "fresh"

	// StateStaleMemory means the memory tier expired but a disk
	// snapshot within the absolute age bound is available.
	StateStaleMemory State = "stale_memory"

	// StateStaleDisk means a disk snapshot exists but is past the
	// absolute age bound; a rebuild is required.
	StateStaleDisk State = "stale_disk"

	// StateInvalid means neither tier can serve; a rebuild is
	// required.
	StateInvalid State = "invalid"
)

// Defaults for the two staleness bounds.
const (
	DefaultMemoryTTL  = 5 * time.Minute
	DefaultDiskMaxAge = time.Hour
)

// diskSnapshotVersion guards against older cache file layouts; a
// mismatch forces a rebuild.
const diskSnapshotVersion = 1

// Config configures a Cache.
type Config struct {
	// TracesDir is the root of the analysis file tree.
	TracesDir string

	// CacheFile is the path of the persisted snapshot. Defaults to
	// ".puzzle_metadata_cache.json" inside TracesDir.
	CacheFile string

	// MemoryTTL bounds the in-memory snapshot age. Zero means
	// DefaultMemoryTTL.
	MemoryTTL time.Duration

	// DiskMaxAge bounds the persisted snapshot age. Zero means
	// DefaultDiskMaxAge.
	DiskMaxAge time.Duration
}

// Cache is the process-wide metadata index. Construct with New and
// share one instance; the zero value is not usable.
type Cache struct {
	mu         sync.Mutex
	tracesDir  string
	cacheFile  string
	memoryTTL  time.Duration
	diskMaxAge time.Duration

	snapshot   map[string][]datatypes.PuzzleMetadata
	snapshotAt time.Time

	// now is a test seam; defaults to time.Now.
	now func() time.Time
}

// New creates a Cache over the given traces directory.
func New(cfg Config) *Cache {
	if cfg.CacheFile == "" {
		cfg.CacheFile = filepath.Join(cfg.TracesDir, ".puzzle_metadata_cache.json")
	}
	if cfg.MemoryTTL <= 0 {
		cfg.MemoryTTL = DefaultMemoryTTL
	}
	if cfg.DiskMaxAge <= 0 {
		cfg.DiskMaxAge = DefaultDiskMaxAge
	}
	return &Cache{
		tracesDir:  cfg.TracesDir,
		cacheFile:  cfg.CacheFile,
		memoryTTL:  cfg.MemoryTTL,
		diskMaxAge: cfg.DiskMaxAge,
		now:        time.Now,
	}
}

// diskSnapshot is the persisted cache file layout. Paths are relative
// and timestamps numeric (unix millis) so the snapshot survives a
// relocated traces tree within the same directory.
type diskSnapshot struct {
	Version int                                    `json:"version"`
	BuiltAt int64                                  `json:"built_at"`
	Puzzles map[string][]datatypes.PuzzleMetadata `json:"puzzles"`
}

// Get returns the mapping puzzle id -> candidate files, serving from
// the freshest usable tier and rebuilding when necessary.
//
// The returned map is shared; callers must treat it as read-only.
func (c *Cache) Get(ctx context.Context) (map[string][]datatypes.PuzzleMetadata, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	state := c.stateLocked()
	cacheGetsTotal.WithLabelValues(string(state)).Inc()

	switch state {
	case StateFresh:
		return c.snapshot, nil
	case StateStaleMemory:
		if puzzles, ok := c.loadDiskLocked(); ok {
			c.snapshot = puzzles
			c.snapshotAt = c.now()
			return puzzles, nil
		}
		// Disk turned out unusable (unreadable, wrong version, or
		// empty after revalidation); fall through to a rebuild.
	}
	return c.rebuildLocked(ctx)
}

// Rebuild forces a full scan regardless of tier freshness.
func (c *Cache) Rebuild(ctx context.Context) (map[string][]datatypes.PuzzleMetadata, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rebuildLocked(ctx)
}

// Invalidate drops both tiers. Called on any label mutation, because
// label state participates in canonical selection.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.snapshot = nil
	c.snapshotAt = time.Time{}
	if err := os.Remove(c.cacheFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("failed to remove metadata cache file",
			slog.String("path", c.cacheFile),
			slog.String("error", err.Error()))
	}
	cacheInvalidations.Inc()
}

// State reports which tier would serve the next Get.
func (c *Cache) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stateLocked()
}

// stateLocked classifies the current tiers. Caller holds c.mu.
func (c *Cache) stateLocked() State {
	if c.snapshot != nil && c.now().Sub(c.snapshotAt) < c.memoryTTL {
		return StateFresh
	}
	info, err := os.Stat(c.cacheFile)
	if err != nil {
		return StateInvalid
	}
	if c.now().Sub(info.ModTime()) >= c.diskMaxAge {
		return StateStaleDisk
	}
	return StateStaleMemory
}

// loadDiskLocked reads the persisted snapshot and revalidates every
// entry: the source file must still exist and must not have been
// modified since the entry was recorded. Failing entries are dropped
// silently, pruning deleted or changed files without a full rescan.
// ok is false when nothing usable survives. Caller holds c.mu.
func (c *Cache) loadDiskLocked() (map[string][]datatypes.PuzzleMetadata, bool) {
	data, err := os.ReadFile(c.cacheFile)
	if err != nil {
		return nil, false
	}
	var snap diskSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		slog.Warn("metadata cache file is corrupted, rebuilding",
			slog.String("path", c.cacheFile),
			slog.String("error", err.Error()))
		return nil, false
	}
	if snap.Version != diskSnapshotVersion {
		slog.Info("metadata cache file has a different layout version, rebuilding",
			slog.Int("found", snap.Version),
			slog.Int("want", diskSnapshotVersion))
		return nil, false
	}

	puzzles := make(map[string][]datatypes.PuzzleMetadata, len(snap.Puzzles))
	pruned := 0
	for id, entries := range snap.Puzzles {
		var kept []datatypes.PuzzleMetadata
		for _, e := range entries {
			info, err := os.Stat(filepath.Join(c.tracesDir, filepath.FromSlash(e.RelPath)))
			if err != nil || info.ModTime().UnixMilli() > e.MTime {
				pruned++
				continue
			}
			kept = append(kept, e)
		}
		if len(kept) > 0 {
			puzzles[id] = kept
		}
	}
	if pruned > 0 {
		cachePrunedEntries.Add(float64(pruned))
		slog.Info("pruned stale metadata cache entries",
			slog.Int("pruned", pruned),
			slog.Int("puzzles_remaining", len(puzzles)))
	}
	if len(puzzles) == 0 {
		return nil, false
	}
	return puzzles, true
}

// rebuildLocked performs the full scan: enumerate analysis files,
// probe each for general steps and training accuracy, persist the
// result, and refresh the memory tier. Per-file failures are isolated
// and counted; they shrink the result but never abort the rebuild.
// Caller holds c.mu.
func (c *Cache) rebuildLocked(ctx context.Context) (map[string][]datatypes.PuzzleMetadata, error) {
	_, span := cacheTracer.Start(ctx, "metacache.Rebuild")
	defer span.End()

	start := time.Now()
	slog.Info("rebuilding puzzle metadata cache", slog.String("traces_dir", c.tracesDir))

	files, err := enumerateAnalysisFiles(c.tracesDir)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("enumerating analysis files in %s: %w", c.tracesDir, err)
	}

	puzzles := make(map[string][]datatypes.PuzzleMetadata)
	skippedNoSteps := 0
	skippedErrors := 0

	for _, f := range files {
		probe, hasSteps, err := probeFile(f)
		if err != nil {
			skippedErrors++
			cacheScannedFiles.WithLabelValues("error").Inc()
			if skippedErrors <= maxLoggedScanErrors {
				slog.Warn("skipping unreadable analysis file",
					slog.String("file", f.relPath),
					slog.String("error", err.Error()))
			}
			continue
		}
		if !hasSteps {
			skippedNoSteps++
			cacheScannedFiles.WithLabelValues("no_steps").Inc()
			continue
		}
		cacheScannedFiles.WithLabelValues("ok").Inc()

		id := puzzleIDFromFilename(f.relPath)
		puzzles[id] = append(puzzles[id], datatypes.PuzzleMetadata{
			RelPath:          f.relPath,
			MTime:            f.mtime,
			TrainingAccuracy: probe.Summary.TrainingAccuracy,
			IsV11:            isV11Path(f.relPath),
		})
	}

	c.persistLocked(puzzles)
	c.snapshot = puzzles
	c.snapshotAt = c.now()

	elapsed := time.Since(start)
	cacheRebuildsTotal.Inc()
	cacheRebuildDuration.Observe(elapsed.Seconds())
	span.SetAttributes(
		attribute.Int("files_seen", len(files)),
		attribute.Int("puzzles", len(puzzles)),
		attribute.Int("skipped_no_steps", skippedNoSteps),
		attribute.Int("skipped_errors", skippedErrors),
	)
	slog.Info("metadata cache rebuilt",
		slog.Int("files_seen", len(files)),
		slog.Int("puzzles", len(puzzles)),
		slog.Int("skipped_no_steps", skippedNoSteps),
		slog.Int("skipped_errors", skippedErrors),
		slog.Duration("elapsed", elapsed))

	return puzzles, nil
}

// persistLocked writes the snapshot via a temp file and rename so a
// crash mid-write cannot leave a half-written cache file. Persistence
// failures only cost the next process a rescan, so they are logged and
// swallowed. Caller holds c.mu.
func (c *Cache) persistLocked(puzzles map[string][]datatypes.PuzzleMetadata) {
	snap := diskSnapshot{
		Version: diskSnapshotVersion,
		BuiltAt: c.now().UnixMilli(),
		Puzzles: puzzles,
	}
	data, err := json.Marshal(snap)
	if err != nil {
		slog.Warn("failed to encode metadata cache", slog.String("error", err.Error()))
		return
	}
	tmp := c.cacheFile + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		slog.Warn("failed to write metadata cache",
			slog.String("path", tmp),
			slog.String("error", err.Error()))
		return
	}
	if err := os.Rename(tmp, c.cacheFile); err != nil {
		slog.Warn("failed to replace metadata cache",
			slog.String("path", c.cacheFile),
			slog.String("error", err.Error()))
	}
}
