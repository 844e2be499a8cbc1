// Copyright (C) 2026 Gridbench Labs (dev@gridbench.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package store persists reviewer labels in a single flat JSON file
// keyed by puzzle id.
//
// The store is deliberately boring: load the whole map, mutate,
// write-then-rename. Corruption is never fatal - a broken file reads
// as empty and the next save replaces it. Every successful mutation
// notifies the configured invalidator, because label state
// participates in canonical file selection.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	labeler "github.com/gridbench/tracelabel/services/labeler"
	"github.com/gridbench/tracelabel/services/labeler/datatypes"
)

// DefaultReviewer stamps records when no reviewer identity is
// configured. Single-reviewer deployment is the norm.
const DefaultReviewer = "human"

// failureModeRule is the validator expression for the fixed
// eight-value catalog.
const failureModeRule = "oneof=A1 A2 A3 B1 B2 C1 C2 C3"

// LabelStore owns the label file. Construct with New; the zero value
// is not usable.
type LabelStore struct {
	mu       sync.Mutex
	path     string
	reviewer string
	validate *validator.Validate

	// onChange is called after every successful mutation, with the
	// store's own lock released. Wired to the metadata cache's
	// Invalidate.
	onChange func()

	// now is a test seam; defaults to time.Now.
	now func() time.Time
}

// New creates a store over the given file path. onChange may be nil.
func New(path, reviewer string, onChange func()) *LabelStore {
	if reviewer == "" {
		reviewer = DefaultReviewer
	}
	if onChange == nil {
		onChange = func() {}
	}
	return &LabelStore{
		path:     path,
		reviewer: reviewer,
		validate: validator.New(),
		onChange: onChange,
		now:      time.Now,
	}
}

// Load reads the persisted store. A missing or corrupted file yields
// an empty mapping, never an error.
func (s *LabelStore) Load() map[string]datatypes.LabelRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked()
}

func (s *LabelStore) loadLocked() map[string]datatypes.LabelRecord {
	labels := make(map[string]datatypes.LabelRecord)
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			slog.Warn("failed to read label store, treating as empty",
				slog.String("path", s.path),
				slog.String("error", err.Error()))
		}
		return labels
	}
	if err := json.Unmarshal(data, &labels); err != nil {
		slog.Warn("label store is corrupted, treating as empty",
			slog.String("path", s.path),
			slog.String("error", err.Error()))
		return make(map[string]datatypes.LabelRecord)
	}
	return labels
}

// Save overwrites the persisted store via a temp file and rename, so
// a crash mid-write cannot leave a truncated store behind.
func (s *LabelStore) Save(labels map[string]datatypes.LabelRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked(labels)
}

func (s *LabelStore) saveLocked(labels map[string]datatypes.LabelRecord) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o750); err != nil {
		return fmt.Errorf("creating label directory: %w", err)
	}
	data, err := json.MarshalIndent(labels, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding labels: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing labels: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replacing label store: %w", err)
	}
	return nil
}

// Upsert creates or overwrites the label for a puzzle id.
//
// Validation happens before any write: the label must be one of the
// three allowed values and every failure-mode code must be in the
// catalog, else ErrValidation and the store is untouched. A prior
// record's auto-detection provenance survives the edit, and
// manual_overrides records the new mode set whenever it differs from
// the auto-detected one. The record is stamped with the current time
// and the configured reviewer.
//
// Returns the stored record and whether an existing label was
// overwritten.
func (s *LabelStore) Upsert(puzzleID string, label datatypes.Label, reasoning, filePath string, failureModes []string) (datatypes.LabelRecord, bool, error) {
	if puzzleID == "" {
		return datatypes.LabelRecord{}, false, fmt.Errorf("%w: missing puzzle_id", labeler.ErrValidation)
	}
	if err := s.validate.Var(string(label), "required,oneof=correct incorrect skipped"); err != nil {
		return datatypes.LabelRecord{}, false, fmt.Errorf("%w: label must be one of correct, incorrect, skipped", labeler.ErrValidation)
	}
	for _, mode := range failureModes {
		if err := s.validate.Var(mode, failureModeRule); err != nil {
			return datatypes.LabelRecord{}, false, fmt.Errorf("%w: invalid failure mode %q", labeler.ErrValidation, mode)
		}
	}
	if failureModes == nil {
		failureModes = []string{}
	}

	s.mu.Lock()
	labels := s.loadLocked()
	prior, isEdit := labels[puzzleID]

	autoDetected := prior.AutoDetected
	autoModes := []string{}
	if autoDetected && prior.AutoDetectedModes != nil {
		autoModes = prior.AutoDetectedModes
	}

	overrides := []string{}
	if autoDetected && !sameModeSet(failureModes, autoModes) {
		overrides = failureModes
	}

	record := datatypes.LabelRecord{
		Label:             label,
		Reasoning:         reasoning,
		FilePath:          filePath,
		FailureModes:      failureModes,
		AutoDetected:      autoDetected,
		AutoDetectedModes: autoModes,
		ManualOverrides:   overrides,
		Timestamp:         s.now().Format(time.RFC3339),
		Reviewer:          s.reviewer,
		Edited:            isEdit,
	}
	labels[puzzleID] = record

	if err := s.saveLocked(labels); err != nil {
		s.mu.Unlock()
		return datatypes.LabelRecord{}, false, err
	}
	s.mu.Unlock()

	slog.Info("label saved",
		slog.String("puzzle_id", puzzleID),
		slog.String("label", string(label)),
		slog.Bool("is_edit", isEdit))
	s.onChange()
	return record, isEdit, nil
}

// Remove deletes the label for a puzzle id. Returns ErrNotFound when
// no label exists.
func (s *LabelStore) Remove(puzzleID string) error {
	s.mu.Lock()
	labels := s.loadLocked()
	if _, ok := labels[puzzleID]; !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: no label for puzzle %s", labeler.ErrNotFound, puzzleID)
	}
	delete(labels, puzzleID)
	if err := s.saveLocked(labels); err != nil {
		s.mu.Unlock()
		return err
	}
	s.mu.Unlock()

	slog.Info("label removed", slog.String("puzzle_id", puzzleID))
	s.onChange()
	return nil
}

// sameModeSet compares two failure-mode lists as sets.
func sameModeSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	set := make(map[string]struct{}, len(a))
	for _, m := range a {
		set[m] = struct{}{}
	}
	for _, m := range b {
		if _, ok := set[m]; !ok {
			return false
		}
	}
	return true
}
