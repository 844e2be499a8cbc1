// Copyright (C) 2026 Gridbench Labs (dev@gridbench.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package metacache

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"
)

// writeAnalysis drops a minimal analysis file with one general step.
func writeAnalysis(t *testing.T, dir, name string, accuracy float64) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	content := `{"general_steps": [{"instruction": "find the trick"}], "summary": {"training_accuracy": ` +
		strconv.FormatFloat(accuracy, 'f', -1, 64) + `}}`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestCacheGet(t *testing.T) {
	ctx := context.Background()

	t.Run("rebuild indexes puzzles by id", func(t *testing.T) {
		dir := t.TempDir()
		writeAnalysis(t, dir, "abc_v11_analysis.json", 0.5)
		writeAnalysis(t, dir, "run2/abc_v11_analysis.json", 1.0)
		writeAnalysis(t, dir, "def_v10_analysis.json", 0)

		cache := New(Config{TracesDir: dir})
		puzzles, err := cache.Get(ctx)
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if len(puzzles) != 2 {
			t.Fatalf("got %d puzzles, want 2", len(puzzles))
		}
		if len(puzzles["abc"]) != 2 {
			t.Errorf("abc has %d candidates, want 2", len(puzzles["abc"]))
		}
		if len(puzzles["def"]) != 1 {
			t.Errorf("def has %d candidates, want 1", len(puzzles["def"]))
		}
		if !puzzles["abc"][0].IsV11 {
			t.Error("abc candidates should be flagged v11")
		}
	})

	t.Run("files without general steps are invisible", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "empty_v11_analysis.json")
		if err := os.WriteFile(path, []byte(`{"general_steps": []}`), 0o644); err != nil {
			t.Fatal(err)
		}
		cache := New(Config{TracesDir: dir})
		puzzles, err := cache.Get(ctx)
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if len(puzzles) != 0 {
			t.Errorf("got %d puzzles, want 0", len(puzzles))
		}
	})

	t.Run("fresh memory tier serves without rescanning", func(t *testing.T) {
		dir := t.TempDir()
		writeAnalysis(t, dir, "abc_v11_analysis.json", 0.5)

		cache := New(Config{TracesDir: dir})
		if _, err := cache.Get(ctx); err != nil {
			t.Fatalf("first Get failed: %v", err)
		}
		// A file added after the snapshot must not appear while fresh.
		writeAnalysis(t, dir, "new_v11_analysis.json", 0.5)

		puzzles, err := cache.Get(ctx)
		if err != nil {
			t.Fatalf("second Get failed: %v", err)
		}
		if _, ok := puzzles["new"]; ok {
			t.Error("fresh snapshot should not see files added after the scan")
		}
		if cache.State() != StateFresh {
			t.Errorf("state = %s, want fresh", cache.State())
		}
	})

	t.Run("expired memory adopts the disk snapshot", func(t *testing.T) {
		dir := t.TempDir()
		writeAnalysis(t, dir, "abc_v11_analysis.json", 0.5)

		cache := New(Config{TracesDir: dir})
		if _, err := cache.Get(ctx); err != nil {
			t.Fatalf("warm Get failed: %v", err)
		}

		// Jump past the memory TTL but stay inside the disk age bound.
		cache.now = func() time.Time { return time.Now().Add(DefaultMemoryTTL + time.Minute) }
		if state := cache.State(); state != StateStaleMemory {
			t.Fatalf("state = %s, want stale_memory", state)
		}
		puzzles, err := cache.Get(ctx)
		if err != nil {
			t.Fatalf("stale Get failed: %v", err)
		}
		if len(puzzles) != 1 {
			t.Errorf("got %d puzzles from disk tier, want 1", len(puzzles))
		}
		// Adoption refreshes the memory tier.
		if state := cache.State(); state != StateFresh {
			t.Errorf("state after adoption = %s, want fresh", state)
		}
	})

	t.Run("disk snapshot past the age bound forces a rebuild", func(t *testing.T) {
		dir := t.TempDir()
		writeAnalysis(t, dir, "abc_v11_analysis.json", 0.5)

		cache := New(Config{TracesDir: dir})
		if _, err := cache.Get(ctx); err != nil {
			t.Fatalf("warm Get failed: %v", err)
		}

		cache.now = func() time.Time { return time.Now().Add(DefaultDiskMaxAge + time.Minute) }
		if state := cache.State(); state != StateStaleDisk {
			t.Errorf("state = %s, want stale_disk", state)
		}
		if _, err := cache.Get(ctx); err != nil {
			t.Fatalf("rebuilding Get failed: %v", err)
		}
	})

	t.Run("modified source files are pruned from the disk tier", func(t *testing.T) {
		dir := t.TempDir()
		stale := writeAnalysis(t, dir, "abc_v11_analysis.json", 0.5)
		writeAnalysis(t, dir, "def_v11_analysis.json", 0.5)

		warm := New(Config{TracesDir: dir})
		if _, err := warm.Get(ctx); err != nil {
			t.Fatalf("warm Get failed: %v", err)
		}

		// Touch one source file so its mtime passes the recorded one.
		future := time.Now().Add(time.Minute)
		if err := os.Chtimes(stale, future, future); err != nil {
			t.Fatal(err)
		}

		// A fresh process has no memory tier and must revalidate disk
		// entries.
		cold := New(Config{TracesDir: dir})
		puzzles, err := cold.Get(ctx)
		if err != nil {
			t.Fatalf("cold Get failed: %v", err)
		}
		if _, ok := puzzles["abc"]; ok {
			t.Error("modified file should be pruned on disk load")
		}
		if _, ok := puzzles["def"]; !ok {
			t.Error("unmodified file should survive revalidation")
		}
	})

	t.Run("corrupted cache file triggers a rebuild", func(t *testing.T) {
		dir := t.TempDir()
		writeAnalysis(t, dir, "abc_v11_analysis.json", 0.5)
		cacheFile := filepath.Join(dir, ".puzzle_metadata_cache.json")
		if err := os.WriteFile(cacheFile, []byte(`{broken`), 0o644); err != nil {
			t.Fatal(err)
		}

		cache := New(Config{TracesDir: dir})
		puzzles, err := cache.Get(ctx)
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if len(puzzles) != 1 {
			t.Errorf("got %d puzzles, want 1 from rebuild", len(puzzles))
		}
	})
}

func TestCacheInvalidate(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	writeAnalysis(t, dir, "abc_v11_analysis.json", 0.5)

	cache := New(Config{TracesDir: dir})
	if _, err := cache.Get(ctx); err != nil {
		t.Fatalf("Get failed: %v", err)
	}

	cache.Invalidate()

	if state := cache.State(); state != StateInvalid {
		t.Errorf("state after invalidate = %s, want invalid", state)
	}
	if _, err := os.Stat(filepath.Join(dir, ".puzzle_metadata_cache.json")); !os.IsNotExist(err) {
		t.Error("invalidate should remove the cache file")
	}

	// A label change right before a Get must yield a fresh view.
	writeAnalysis(t, dir, "new_v11_analysis.json", 0.5)
	puzzles, err := cache.Get(ctx)
	if err != nil {
		t.Fatalf("Get after invalidate failed: %v", err)
	}
	if len(puzzles) != 2 {
		t.Errorf("got %d puzzles after invalidate, want 2", len(puzzles))
	}
}

func TestCacheRebuildIdempotent(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	writeAnalysis(t, dir, "abc_v11_analysis.json", 0.5)
	writeAnalysis(t, dir, "sub/def_v11_analysis.json", 1.0)

	cache := New(Config{TracesDir: dir})
	first, err := cache.Rebuild(ctx)
	if err != nil {
		t.Fatalf("first Rebuild failed: %v", err)
	}
	second, err := cache.Rebuild(ctx)
	if err != nil {
		t.Fatalf("second Rebuild failed: %v", err)
	}
	if len(first) != len(second) {
		t.Fatalf("rebuilds disagree: %d vs %d puzzles", len(first), len(second))
	}
	for id, a := range first {
		b, ok := second[id]
		if !ok || len(a) != len(b) {
			t.Errorf("puzzle %s differs between rebuilds", id)
		}
	}
}
