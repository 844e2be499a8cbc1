// Copyright (C) 2026 Gridbench Labs (dev@gridbench.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	t.Run("missing file falls back to defaults", func(t *testing.T) {
		cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		if cfg.Port != DefaultPort {
			t.Errorf("port = %d, want default %d", cfg.Port, DefaultPort)
		}
		if cfg.TracesDir != DefaultTracesDir {
			t.Errorf("traces_dir = %s, want default", cfg.TracesDir)
		}
	})

	t.Run("reads yaml fields", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		content := "port: 9100\ntraces_dir: /data/runs\nreviewer: alice\nmemory_ttl_seconds: 120\n"
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
		cfg, err := Load(path)
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		if cfg.Port != 9100 {
			t.Errorf("port = %d, want 9100", cfg.Port)
		}
		if cfg.TracesDir != "/data/runs" {
			t.Errorf("traces_dir = %s, want /data/runs", cfg.TracesDir)
		}
		if cfg.Reviewer != "alice" {
			t.Errorf("reviewer = %s, want alice", cfg.Reviewer)
		}
		if cfg.MemoryTTL() != 2*time.Minute {
			t.Errorf("memory ttl = %s, want 2m", cfg.MemoryTTL())
		}
	})

	t.Run("malformed yaml is an error", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		if err := os.WriteFile(path, []byte("port: [broken"), 0o644); err != nil {
			t.Fatal(err)
		}
		if _, err := Load(path); err == nil {
			t.Error("expected an error for malformed yaml")
		}
	})

	t.Run("environment overrides the file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		if err := os.WriteFile(path, []byte("port: 9100\n"), 0o644); err != nil {
			t.Fatal(err)
		}
		t.Setenv("TRACELABEL_PORT", "9200")
		t.Setenv("TRACELABEL_REVIEWER", "bob")

		cfg, err := Load(path)
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		if cfg.Port != 9200 {
			t.Errorf("port = %d, want env override 9200", cfg.Port)
		}
		if cfg.Reviewer != "bob" {
			t.Errorf("reviewer = %s, want env override bob", cfg.Reviewer)
		}
	})

	t.Run("invalid port is rejected", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		if err := os.WriteFile(path, []byte("port: 700000\n"), 0o644); err != nil {
			t.Fatal(err)
		}
		if _, err := Load(path); err == nil {
			t.Error("expected an error for an out-of-range port")
		}
	})

	t.Run("zero durations mean package defaults", func(t *testing.T) {
		cfg := Default()
		if cfg.MemoryTTL() != 0 || cfg.DiskMaxAge() != 0 {
			t.Error("unset durations should report zero so the cache applies its defaults")
		}
	})
}
