// Copyright (C) 2026 Gridbench Labs (dev@gridbench.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package datatypes

// Label is the reviewer's verdict on a reasoning trace.
type Label string

const (
	// LabelCorrect means the generated steps are faithful to the
	// puzzle's trick.
	LabelCorrect Label = "correct"

	// LabelIncorrect means the trace diverged from the expected trick.
	LabelIncorrect Label = "incorrect"

	// LabelSkipped means the reviewer deferred judgement. Skipped
	// puzzles still count as labeled for completion purposes.
	LabelSkipped Label = "skipped"
)

// Valid reports whether l is one of the three allowed values.
func (l Label) Valid() bool {
	switch l {
	case LabelCorrect, LabelIncorrect, LabelSkipped:
		return true
	}
	return false
}

// FailureModes is the fixed catalog of failure-mode codes. The A group
// covers trick identification, B covers step grounding, C covers
// execution drift.
var FailureModes = []string{"A1", "A2", "A3", "B1", "B2", "C1", "C2", "C3"}

// ValidFailureMode reports whether code is in the catalog.
func ValidFailureMode(code string) bool {
	for _, m := range FailureModes {
		if m == code {
			return true
		}
	}
	return false
}

// LabelRecord is one reviewer verdict for one puzzle id. Created and
// updated only by reviewer action, deleted on explicit un-label, never
// auto-created.
type LabelRecord struct {
	Label     Label  `json:"label"`
	Reasoning string `json:"reasoning"`
	FilePath  string `json:"file_path"`

	// FailureModes applies to both correct and incorrect verdicts
	// (a correct trace can still exhibit a mode worth tagging).
	FailureModes []string `json:"failure_modes"`

	// AutoDetected and AutoDetectedModes record upstream automated
	// provenance and survive reviewer edits.
	AutoDetected      bool     `json:"auto_detected"`
	AutoDetectedModes []string `json:"auto_detected_modes"`

	// ManualOverrides holds the reviewer's failure-mode set whenever it
	// differs from the auto-detected set; empty otherwise.
	ManualOverrides []string `json:"manual_overrides"`

	Timestamp string `json:"timestamp"`
	Reviewer  string `json:"reviewer"`
	Edited    bool   `json:"edited"`
}
