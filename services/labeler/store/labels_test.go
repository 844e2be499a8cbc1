// Copyright (C) 2026 Gridbench Labs (dev@gridbench.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package store

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	labeler "github.com/gridbench/tracelabel/services/labeler"
	"github.com/gridbench/tracelabel/services/labeler/datatypes"
)

func newTestStore(t *testing.T) *LabelStore {
	t.Helper()
	return New(filepath.Join(t.TempDir(), "labels.json"), "", nil)
}

func TestUpsert(t *testing.T) {
	t.Run("creates a record and persists it", func(t *testing.T) {
		s := newTestStore(t)
		record, isEdit, err := s.Upsert("abc", datatypes.LabelCorrect, "clean trace", "run1/abc_v11_analysis.json", nil)
		if err != nil {
			t.Fatalf("Upsert failed: %v", err)
		}
		if isEdit {
			t.Error("first write should not be an edit")
		}
		if record.Reviewer != DefaultReviewer {
			t.Errorf("reviewer = %s, want %s", record.Reviewer, DefaultReviewer)
		}
		if record.FailureModes == nil {
			t.Error("failure modes should serialize as an empty list, not null")
		}
		if _, err := time.Parse(time.RFC3339, record.Timestamp); err != nil {
			t.Errorf("timestamp %q is not RFC3339: %v", record.Timestamp, err)
		}

		// Survives a reload from disk.
		loaded := s.Load()
		if got, ok := loaded["abc"]; !ok || got.Label != datatypes.LabelCorrect {
			t.Errorf("loaded record = %+v, want persisted correct label", got)
		}
	})

	t.Run("overwrite marks the record edited", func(t *testing.T) {
		s := newTestStore(t)
		if _, _, err := s.Upsert("abc", datatypes.LabelCorrect, "", "f.json", nil); err != nil {
			t.Fatal(err)
		}
		record, isEdit, err := s.Upsert("abc", datatypes.LabelIncorrect, "second look", "f.json", []string{"A1"})
		if err != nil {
			t.Fatalf("second Upsert failed: %v", err)
		}
		if !isEdit {
			t.Error("overwrite should report isEdit")
		}
		if !record.Edited {
			t.Error("record should carry the edited flag")
		}
		if record.Label != datatypes.LabelIncorrect {
			t.Errorf("label = %s, want incorrect", record.Label)
		}
	})

	t.Run("invalid label leaves the store untouched", func(t *testing.T) {
		s := newTestStore(t)
		_, _, err := s.Upsert("abc", datatypes.Label("maybe"), "", "f.json", nil)
		if !errors.Is(err, labeler.ErrValidation) {
			t.Fatalf("err = %v, want ErrValidation", err)
		}
		if len(s.Load()) != 0 {
			t.Error("failed upsert must not persist anything")
		}
	})

	t.Run("invalid failure mode leaves the store untouched", func(t *testing.T) {
		s := newTestStore(t)
		if _, _, err := s.Upsert("abc", datatypes.LabelCorrect, "", "f.json", nil); err != nil {
			t.Fatal(err)
		}
		_, _, err := s.Upsert("abc", datatypes.LabelIncorrect, "", "f.json", []string{"A1", "Z9"})
		if !errors.Is(err, labeler.ErrValidation) {
			t.Fatalf("err = %v, want ErrValidation", err)
		}
		if got := s.Load()["abc"]; got.Label != datatypes.LabelCorrect {
			t.Errorf("label = %s, original record should survive a rejected edit", got.Label)
		}
	})

	t.Run("missing puzzle id is rejected", func(t *testing.T) {
		s := newTestStore(t)
		if _, _, err := s.Upsert("", datatypes.LabelCorrect, "", "", nil); !errors.Is(err, labeler.ErrValidation) {
			t.Fatalf("err = %v, want ErrValidation", err)
		}
	})

	t.Run("auto-detection provenance survives a reviewer edit", func(t *testing.T) {
		s := newTestStore(t)
		// Seed a record the way an upstream auto-detector would.
		seed := map[string]datatypes.LabelRecord{
			"abc": {
				Label:             datatypes.LabelIncorrect,
				FilePath:          "f.json",
				FailureModes:      []string{"A1"},
				AutoDetected:      true,
				AutoDetectedModes: []string{"A1"},
				Timestamp:         time.Now().Format(time.RFC3339),
				Reviewer:          "detector",
			},
		}
		if err := s.Save(seed); err != nil {
			t.Fatal(err)
		}

		record, _, err := s.Upsert("abc", datatypes.LabelIncorrect, "actually B2", "f.json", []string{"B2"})
		if err != nil {
			t.Fatalf("Upsert failed: %v", err)
		}
		if !record.AutoDetected {
			t.Error("auto_detected flag should survive the edit")
		}
		if len(record.AutoDetectedModes) != 1 || record.AutoDetectedModes[0] != "A1" {
			t.Errorf("auto_detected_modes = %v, want [A1]", record.AutoDetectedModes)
		}
		if len(record.ManualOverrides) != 1 || record.ManualOverrides[0] != "B2" {
			t.Errorf("manual_overrides = %v, want [B2]", record.ManualOverrides)
		}
	})

	t.Run("matching mode set records no override", func(t *testing.T) {
		s := newTestStore(t)
		seed := map[string]datatypes.LabelRecord{
			"abc": {
				Label:             datatypes.LabelIncorrect,
				AutoDetected:      true,
				AutoDetectedModes: []string{"A1", "C2"},
			},
		}
		if err := s.Save(seed); err != nil {
			t.Fatal(err)
		}
		record, _, err := s.Upsert("abc", datatypes.LabelIncorrect, "", "f.json", []string{"C2", "A1"})
		if err != nil {
			t.Fatalf("Upsert failed: %v", err)
		}
		if len(record.ManualOverrides) != 0 {
			t.Errorf("manual_overrides = %v, want empty for identical set", record.ManualOverrides)
		}
	})

	t.Run("onChange fires after a successful mutation", func(t *testing.T) {
		fired := 0
		s := New(filepath.Join(t.TempDir(), "labels.json"), "", func() { fired++ })
		if _, _, err := s.Upsert("abc", datatypes.LabelSkipped, "", "f.json", nil); err != nil {
			t.Fatal(err)
		}
		if fired != 1 {
			t.Errorf("onChange fired %d times, want 1", fired)
		}
		// A rejected mutation must not fire it.
		_, _, _ = s.Upsert("abc", datatypes.Label("bogus"), "", "f.json", nil)
		if fired != 1 {
			t.Errorf("onChange fired %d times after rejection, want still 1", fired)
		}
	})
}

func TestRemove(t *testing.T) {
	t.Run("removes an existing label", func(t *testing.T) {
		s := newTestStore(t)
		if _, _, err := s.Upsert("abc", datatypes.LabelCorrect, "", "f.json", nil); err != nil {
			t.Fatal(err)
		}
		if err := s.Remove("abc"); err != nil {
			t.Fatalf("Remove failed: %v", err)
		}
		if len(s.Load()) != 0 {
			t.Error("label should be gone after Remove")
		}
	})

	t.Run("missing label yields ErrNotFound", func(t *testing.T) {
		s := newTestStore(t)
		if err := s.Remove("ghost"); !errors.Is(err, labeler.ErrNotFound) {
			t.Fatalf("err = %v, want ErrNotFound", err)
		}
	})
}

func TestLoad(t *testing.T) {
	t.Run("missing file reads as empty", func(t *testing.T) {
		s := newTestStore(t)
		if got := s.Load(); len(got) != 0 {
			t.Errorf("got %d records from missing file, want 0", len(got))
		}
	})

	t.Run("corrupted file reads as empty", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "labels.json")
		if err := os.WriteFile(path, []byte(`{"abc": [broken`), 0o644); err != nil {
			t.Fatal(err)
		}
		s := New(path, "", nil)
		if got := s.Load(); len(got) != 0 {
			t.Errorf("got %d records from corrupt file, want 0", len(got))
		}
	})
}
