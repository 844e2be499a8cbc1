// Copyright (C) 2026 Gridbench Labs (dev@gridbench.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package datatypes

import "encoding/json"

// PuzzleMetadata is the cached lightweight summary of one analysis
// file. Many entries may share one puzzle id when repeated solver runs
// produced duplicate files. An entry exists only if its source record
// has at least one general step.
type PuzzleMetadata struct {
	// RelPath is the file's path relative to the traces directory,
	// always forward-slashed. The cache file never stores absolute
	// paths so the traces tree stays relocatable.
	RelPath string `json:"rel_path"`

	// MTime is the source file's modification time in unix
	// milliseconds, recorded at scan time and used to detect stale
	// cache entries.
	MTime int64 `json:"mtime"`

	TrainingAccuracy float64 `json:"training_accuracy"`

	// IsV11 distinguishes the two coexisting schema generations.
	IsV11 bool `json:"is_v11"`
}

// PuzzleSummary is one row of the deduplicated puzzle listing: the
// canonical file for a puzzle id merged with its label state.
type PuzzleSummary struct {
	PuzzleID      string `json:"puzzle_id"`
	FilePath      string `json:"file_path"`
	Label         *Label `json:"label"`
	Reasoning     string `json:"reasoning"`
	Timestamp     string `json:"timestamp"`
	AutoDetected  bool   `json:"auto_detected"`
	Reviewer      string `json:"reviewer"`
	NumDuplicates int    `json:"num_duplicates"`
}

// DuplicateVersion describes one alternative file for a puzzle id in
// the detail view's version switcher.
type DuplicateVersion struct {
	FilePath         string  `json:"file_path"`
	TrainingAccuracy float64 `json:"training_accuracy"`
	IsV11            bool    `json:"is_v11"`
	MTime            int64   `json:"mtime"`
}

// TrainingExampleView is one training pair enriched with rendered
// images and the booklet's predicted result for the same example.
type TrainingExampleView struct {
	Index           int    `json:"index"`
	Input           Grid   `json:"input"`
	Output          Grid   `json:"output"`
	InputImage      string `json:"input_image"`
	OutputImage     string `json:"output_image"`
	PredictionGrid  Grid   `json:"prediction_grid,omitempty"`
	PredictionImage string `json:"prediction_image,omitempty"`
}

// TestExampleView is one test pair; expected and predicted grids are
// optional and rendered only when present.
type TestExampleView struct {
	Index           int    `json:"index"`
	Input           Grid   `json:"input"`
	Output          Grid   `json:"output,omitempty"`
	PredictedOutput Grid   `json:"predicted_output,omitempty"`
	InputImage      string `json:"input_image"`
	OutputImage     string `json:"output_image,omitempty"`
	PredictedImage  string `json:"predicted_image,omitempty"`
}

// BookletStepView is one sub-step with its snapshots rendered.
type BookletStepView struct {
	StepNumber       StepNumber      `json:"step_number"`
	GeneralStep      string          `json:"general_step,omitempty"`
	ObjectSubstep    string          `json:"object_substep,omitempty"`
	Instruction      string          `json:"instruction,omitempty"`
	SubstepReasoning string          `json:"substep_reasoning,omitempty"`
	ToolUsed         string          `json:"tool_used,omitempty"`
	ToolParams       map[string]any  `json:"tool_params,omitempty"`
	BBox             json.RawMessage `json:"bbox,omitempty"`
	ObjectNum        *int            `json:"object_num,omitempty"`
	GridBefore       Grid            `json:"grid_before,omitempty"`
	GridAfter        Grid            `json:"grid_after,omitempty"`
	GridBeforeImage  string          `json:"grid_before_image,omitempty"`
	GridAfterImage   string          `json:"grid_after_image,omitempty"`
	VisualCount      int             `json:"visual_count"`
}

// TrainingBookletView is one training booklet with rendered steps.
type TrainingBookletView struct {
	Index          int               `json:"index"`
	NumSteps       int               `json:"num_steps"`
	FinalGrid      Grid              `json:"final_grid,omitempty"`
	FinalGridImage string            `json:"final_grid_image,omitempty"`
	Steps          []BookletStepView `json:"steps"`
}

// TestBookletView is one test booklet with rendered steps and the
// derived predicted/expected grids.
type TestBookletView struct {
	Index             int               `json:"index"`
	NumSteps          int               `json:"num_steps"`
	FinalGrid         Grid              `json:"final_grid,omitempty"`
	ExpectedGrid      Grid              `json:"expected_grid,omitempty"`
	FinalGridImage    string            `json:"final_grid_image,omitempty"`
	ExpectedGridImage string            `json:"expected_grid_image,omitempty"`
	Steps             []BookletStepView `json:"steps"`
	IsCorrect         bool              `json:"is_correct"`
	Accuracy          float64           `json:"accuracy"`
}

// GeneralStepView is a general step annotated with the number of grid
// snapshots its sub-steps carry across all booklets.
type GeneralStepView struct {
	StepNumber  StepNumber `json:"step_number"`
	Instruction string     `json:"instruction,omitempty"`
	Reasoning   string     `json:"reasoning,omitempty"`
	VisualCount int        `json:"visual_count"`
}

// PuzzleDetail is the full assembled view of one analysis file.
type PuzzleDetail struct {
	PuzzleID         string                `json:"puzzle_id"`
	FilePath         string                `json:"file_path"`
	Analysis         AnalysisBlock         `json:"analysis"`
	GeneralSteps     []GeneralStepView     `json:"general_steps"`
	Summary          Summary               `json:"summary"`
	TrainingExamples []TrainingExampleView `json:"training_examples"`
	TestExamples     []TestExampleView     `json:"test_examples"`
	TrainingBooklets []TrainingBookletView `json:"training_booklets"`
	TestBooklets     []TestBookletView     `json:"test_booklets"`

	// Label state for this puzzle id, zero-valued when unlabeled.
	CurrentLabel      *Label   `json:"current_label"`
	CurrentReasoning  string   `json:"current_reasoning"`
	LabelTimestamp    string   `json:"label_timestamp"`
	FailureModes      []string `json:"failure_modes"`
	AutoDetected      bool     `json:"auto_detected"`
	AutoDetectedModes []string `json:"auto_detected_modes"`
	ManualOverrides   []string `json:"manual_overrides"`
	Reviewer          string   `json:"reviewer"`

	DuplicateVersions     []DuplicateVersion `json:"duplicate_versions"`
	CurrentDuplicateIndex int                `json:"current_duplicate_index"`
	NumDuplicates         int                `json:"num_duplicates"`
}

// PredictedInput is the lazily fetched initial grid of one training
// booklet.
type PredictedInput struct {
	PredictedInputGrid  Grid   `json:"predicted_input_grid"`
	PredictedInputImage string `json:"predicted_input_image"`
}

// Stats aggregates labeling progress across the corpus.
type Stats struct {
	TotalPuzzles   int            `json:"total_puzzles"`
	TotalLabeled   int            `json:"total_labeled"`
	Unlabeled      int            `json:"unlabeled"`
	Correct        int            `json:"correct"`
	Incorrect      int            `json:"incorrect"`
	Skipped        int            `json:"skipped"`
	CompletionRate float64        `json:"completion_rate"`
	AccuracyRate   float64        `json:"accuracy_rate"`
	FailureModes   map[string]int `json:"failure_modes"`
}
