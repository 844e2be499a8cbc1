// Copyright (C) 2026 Gridbench Labs (dev@gridbench.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package logging builds the process-wide slog logger.
//
// The default is JSON on stdout, which is what the service normally
// runs with. An optional log directory adds a per-day file alongside,
// named {service}_{date}.log, so long labeling sessions keep a local
// record without external log shipping.
//
// This package does NOT redact sensitive data; callers must not log
// secrets.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Config configures Setup. The zero value logs Info+ JSON to stdout.
type Config struct {
	// Level is the minimum severity: debug, info, warn, or error.
	// Unknown values fall back to info.
	Level string

	// LogDir, when set, enables file logging alongside stdout. The
	// directory is created if missing.
	LogDir string

	// Service names the log file; defaults to "tracelabel".
	Service string
}

// parseLevel maps a config string to a slog level.
func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Setup builds the logger, installs it as the slog default, and
// returns a close function for the log file (a no-op without one).
func Setup(cfg Config) (func() error, error) {
	if cfg.Service == "" {
		cfg.Service = "tracelabel"
	}

	writers := []io.Writer{os.Stdout}
	closeFn := func() error { return nil }

	if cfg.LogDir != "" {
		if err := os.MkdirAll(cfg.LogDir, 0o750); err != nil {
			return nil, fmt.Errorf("creating log directory %s: %w", cfg.LogDir, err)
		}
		name := fmt.Sprintf("%s_%s.log", cfg.Service, time.Now().Format("2006-01-02"))
		file, err := os.OpenFile(filepath.Join(cfg.LogDir, name),
			os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o640)
		if err != nil {
			return nil, fmt.Errorf("opening log file: %w", err)
		}
		writers = append(writers, file)
		closeFn = file.Close
	}

	handler := slog.NewJSONHandler(io.MultiWriter(writers...), &slog.HandlerOptions{
		Level: parseLevel(cfg.Level),
	})
	slog.SetDefault(slog.New(handler).With(slog.String("service", cfg.Service)))
	return closeFn, nil
}
