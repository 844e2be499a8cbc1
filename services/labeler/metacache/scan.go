// Copyright (C) 2026 Gridbench Labs (dev@gridbench.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package metacache

import (
	"encoding/json"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Analysis file naming conventions, in preference order. The v11 and
// v10 suffixes mark the two coexisting schema generations; the bare
// "_analysis.json" pattern is the fallback used only when neither
// generation is present in the tree.
const (
	suffixV11      = "_v11_analysis"
	suffixV10      = "_v10_analysis"
	suffixFallback = "_analysis"
)

// maxLoggedScanErrors bounds warn-level noise during a rebuild; the
// total error count is always reported in the summary line.
const maxLoggedScanErrors = 5

// scanFile is one enumerated candidate before its content is read.
type scanFile struct {
	path    string // absolute
	relPath string // forward-slashed, relative to the traces dir
	mtime   int64  // unix millis
}

// metaProbe decodes only the fields the scanner needs. Parsing the
// full record here would multiply rebuild cost for no benefit.
type metaProbe struct {
	GeneralSteps []json.RawMessage `json:"general_steps"`
	Summary      struct {
		TrainingAccuracy float64 `json:"training_accuracy"`
	} `json:"summary"`
}

// enumerateAnalysisFiles walks the traces directory collecting files
// matching the v11/v10 naming conventions, falling back to the generic
// pattern when neither matched anything. Results are sorted
// newest-first. Unreadable subtrees are skipped, not fatal.
func enumerateAnalysisFiles(tracesDir string) ([]scanFile, error) {
	var primary, fallback []scanFile

	err := filepath.WalkDir(tracesDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			slog.Warn("skipping inaccessible path during scan",
				slog.String("path", path),
				slog.String("error", err.Error()))
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		name := d.Name()
		if !strings.HasSuffix(name, ".json") {
			return nil
		}

		isPrimary := strings.Contains(name, suffixV11) || strings.Contains(name, suffixV10)
		isFallback := strings.HasSuffix(name, suffixFallback+".json")
		if !isPrimary && !isFallback {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return nil
		}
		rel, err := filepath.Rel(tracesDir, path)
		if err != nil {
			return nil
		}
		f := scanFile{
			path:    path,
			relPath: filepath.ToSlash(rel),
			mtime:   info.ModTime().UnixMilli(),
		}
		if isPrimary {
			primary = append(primary, f)
		} else {
			fallback = append(fallback, f)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	files := primary
	if len(files) == 0 {
		files = fallback
	}
	sort.Slice(files, func(i, j int) bool {
		if files[i].mtime != files[j].mtime {
			return files[i].mtime > files[j].mtime
		}
		return files[i].relPath < files[j].relPath
	})
	return files, nil
}

// puzzleIDFromFilename derives the puzzle id from the filename
// convention: the analysis suffix is removed from the stem, so
// "1e32b0e9_v11_analysis.json" and "1e32b0e9_analysis.json" both yield
// "1e32b0e9". The suffix may appear mid-stem for re-run files like
// "1e32b0e9_v11_analysis_2.json".
func puzzleIDFromFilename(name string) string {
	stem := strings.TrimSuffix(filepath.Base(name), ".json")
	for _, suffix := range []string{suffixV11, suffixV10, suffixFallback} {
		if strings.Contains(stem, suffix) {
			return strings.Replace(stem, suffix, "", 1)
		}
	}
	return stem
}

// isV11Path reports whether the path belongs to the newer schema
// generation. The marker may appear in a parent directory name, so the
// whole relative path is checked.
func isV11Path(relPath string) bool {
	return strings.Contains(relPath, "_v11")
}

// probeFile reads one candidate and extracts its metadata fields.
// Returns ok=false when the record has no general steps (such files
// are invisible to the labeler by invariant).
func probeFile(f scanFile) (probe metaProbe, ok bool, err error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return metaProbe{}, false, err
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return metaProbe{}, false, err
	}
	return probe, len(probe.GeneralSteps) > 0, nil
}
