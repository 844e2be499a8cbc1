// Copyright (C) 2026 Gridbench Labs (dev@gridbench.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package config loads labeler service configuration from a YAML file
// with environment overrides.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults used when a field is absent from both file and environment.
const (
	DefaultPort       = 5002
	DefaultTracesDir  = "data/analysis"
	DefaultLabelsFile = "human_labels.json"
)

// Config is the full service configuration.
type Config struct {
	// Port is the HTTP listen port.
	Port int `yaml:"port"`

	// TracesDir is the root directory scanned for analysis files.
	TracesDir string `yaml:"traces_dir"`

	// LabelsFile is the label store path. Relative paths resolve
	// against the working directory.
	LabelsFile string `yaml:"labels_file"`

	// CacheFile overrides the metadata cache location. Empty means the
	// default file inside TracesDir.
	CacheFile string `yaml:"cache_file"`

	// MemoryTTLSeconds and DiskMaxAgeSeconds tune cache staleness.
	// Zero means the package defaults.
	MemoryTTLSeconds  int `yaml:"memory_ttl_seconds"`
	DiskMaxAgeSeconds int `yaml:"disk_max_age_seconds"`

	// Reviewer stamps saved labels. Empty means "human".
	Reviewer string `yaml:"reviewer"`

	// LogLevel is the minimum log severity (debug, info, warn, error).
	LogLevel string `yaml:"log_level"`

	// LogDir, when set, mirrors logs into a per-day file there.
	LogDir string `yaml:"log_dir"`

	// EnableTracing turns on OpenTelemetry span export.
	EnableTracing bool `yaml:"enable_tracing"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Port:       DefaultPort,
		TracesDir:  DefaultTracesDir,
		LabelsFile: DefaultLabelsFile,
	}
}

// Load reads the config file at path, falling back to defaults when
// path is empty or the file is absent, then applies environment
// overrides. A present-but-unreadable file is an error: silently
// running with defaults against the wrong data directory is worse
// than failing.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return Config{}, fmt.Errorf("reading config %s: %w", path, err)
			}
			slog.Warn("config file not found, using defaults", slog.String("path", path))
		} else if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parsing config %s: %w", path, err)
		}
	}

	applyEnv(&cfg)

	if cfg.Port <= 0 || cfg.Port > 65535 {
		return Config{}, fmt.Errorf("invalid port %d", cfg.Port)
	}
	if cfg.TracesDir == "" {
		return Config{}, fmt.Errorf("traces_dir must not be empty")
	}
	cfg.TracesDir = filepath.Clean(cfg.TracesDir)
	return cfg, nil
}

// applyEnv overlays TRACELABEL_* environment variables.
func applyEnv(cfg *Config) {
	if v := os.Getenv("TRACELABEL_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Port = port
		} else {
			slog.Warn("ignoring non-numeric TRACELABEL_PORT", slog.String("value", v))
		}
	}
	if v := os.Getenv("TRACELABEL_TRACES_DIR"); v != "" {
		cfg.TracesDir = v
	}
	if v := os.Getenv("TRACELABEL_LABELS_FILE"); v != "" {
		cfg.LabelsFile = v
	}
	if v := os.Getenv("TRACELABEL_REVIEWER"); v != "" {
		cfg.Reviewer = v
	}
}

// MemoryTTL returns the configured memory TTL, or zero to accept the
// cache package default.
func (c Config) MemoryTTL() time.Duration {
	return time.Duration(c.MemoryTTLSeconds) * time.Second
}

// DiskMaxAge returns the configured disk cache max age, or zero to
// accept the cache package default.
func (c Config) DiskMaxAge() time.Duration {
	return time.Duration(c.DiskMaxAgeSeconds) * time.Second
}
