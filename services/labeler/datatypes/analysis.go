// Copyright (C) 2026 Gridbench Labs (dev@gridbench.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package datatypes defines the data model for the reasoning trace
// labeler: analysis records written by the upstream solver, derived
// puzzle metadata, label records, and the assembled view types served
// over HTTP.
package datatypes

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Grid is a 2D array of small color indices (0-9). The upstream solver
// writes grids row-major; an empty or nil grid means "absent".
type Grid [][]int

// Empty reports whether the grid carries no cells.
func (g Grid) Empty() bool {
	return len(g) == 0 || len(g[0]) == 0
}

// StepNumber is a step identifier as written by the upstream process.
// General steps carry plain numbers ("3"); booklet sub-steps carry
// dotted compound numbers ("3.2"). The Python pipeline emits both JSON
// numbers and JSON strings for this field, so unmarshaling accepts
// either.
type StepNumber string

// UnmarshalJSON accepts a JSON string or a JSON number.
func (s *StepNumber) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		*s = StepNumber(str)
		return nil
	}
	var num json.Number
	if err := json.Unmarshal(data, &num); err != nil {
		return fmt.Errorf("step_number must be a string or number: %s", data)
	}
	*s = StepNumber(num.String())
	return nil
}

// General returns the leading component before the first dot separator.
// For "3.2" that is "3"; for "3" it is "3" unchanged. Sub-steps
// reference their general step through this component.
func (s StepNumber) General() string {
	head, _, _ := strings.Cut(string(s), ".")
	return head
}

// GeneralStep is one puzzle-level reasoning step, coarser than a
// booklet sub-step.
type GeneralStep struct {
	StepNumber  StepNumber `json:"step_number"`
	Instruction string     `json:"instruction,omitempty"`
	Reasoning   string     `json:"reasoning,omitempty"`
}

// BookletStep is one reasoning sub-step inside a booklet, optionally
// carrying grid snapshots before and after the transformation it
// describes. Some older records carry a single bare "grid" snapshot
// instead of the before/after pair.
type BookletStep struct {
	StepNumber       StepNumber      `json:"step_number"`
	GeneralStep      string          `json:"general_step,omitempty"`
	ObjectSubstep    string          `json:"object_substep,omitempty"`
	Instruction      string          `json:"instruction,omitempty"`
	SubstepReasoning string          `json:"substep_reasoning,omitempty"`
	ToolUsed         string          `json:"tool_used,omitempty"`
	ToolParams       map[string]any  `json:"tool_params,omitempty"`
	BBox             json.RawMessage `json:"bbox,omitempty"`
	ObjectNum        *int            `json:"object_num,omitempty"`
	Grid             Grid            `json:"grid,omitempty"`
	GridBefore       Grid            `json:"grid_before,omitempty"`
	GridAfter        Grid            `json:"grid_after,omitempty"`
}

// Before returns the pre-step snapshot, falling back to the bare grid.
func (s BookletStep) Before() Grid {
	if !s.GridBefore.Empty() {
		return s.GridBefore
	}
	return s.Grid
}

// After returns the post-step snapshot, falling back to the bare grid.
func (s BookletStep) After() Grid {
	if !s.GridAfter.Empty() {
		return s.GridAfter
	}
	return s.Grid
}

// VisualCount is the number of grid snapshots this sub-step carries,
// counting the before and after views (each falling back to the bare
// grid) plus the bare grid itself.
func (s BookletStep) VisualCount() int {
	n := 0
	if !s.Before().Empty() {
		n++
	}
	if !s.After().Empty() {
		n++
	}
	if !s.Grid.Empty() {
		n++
	}
	return n
}

// Booklet is the ordered sub-step sequence for one example. Test
// booklets additionally carry the example grids and outcome fields.
type Booklet struct {
	Steps []BookletStep `json:"steps"`

	// Test booklet fields.
	Input         Grid    `json:"input,omitempty"`
	CurrentGrid   Grid    `json:"current_grid,omitempty"`
	Output        Grid    `json:"output,omitempty"`
	ExpectedGrid  Grid    `json:"expected_grid,omitempty"`
	PredictedGrid Grid    `json:"predicted_grid,omitempty"`
	FinalGrid     Grid    `json:"final_grid,omitempty"`
	IsCorrect     bool    `json:"is_correct,omitempty"`
	Accuracy      float64 `json:"accuracy,omitempty"`
}

// LastGrid returns the post-step grid of the final sub-step, or nil
// when the booklet has no steps.
func (b Booklet) LastGrid() Grid {
	if len(b.Steps) == 0 {
		return nil
	}
	return b.Steps[len(b.Steps)-1].After()
}

// TestInput resolves the test example's input grid.
func (b Booklet) TestInput() Grid {
	if !b.Input.Empty() {
		return b.Input
	}
	return b.CurrentGrid
}

// TestExpected resolves the expected output grid, if recorded.
func (b Booklet) TestExpected() Grid {
	if !b.Output.Empty() {
		return b.Output
	}
	return b.ExpectedGrid
}

// TestPredicted resolves the predicted output grid: the explicit
// prediction, else the recorded final grid, else the last step's
// post-step snapshot.
func (b Booklet) TestPredicted() Grid {
	if !b.PredictedGrid.Empty() {
		return b.PredictedGrid
	}
	if !b.FinalGrid.Empty() {
		return b.FinalGrid
	}
	return b.LastGrid()
}

// Example is one input/output grid pair.
type Example struct {
	Input  Grid `json:"input"`
	Output Grid `json:"output,omitempty"`
}

// AnalysisBlock is the per-record analysis section holding the
// training and test example pairs.
type AnalysisBlock struct {
	TrainExamples []Example `json:"train_examples,omitempty"`
	TestExamples  []Example `json:"test_examples,omitempty"`
}

// Summary is the per-record summary block. Only the training accuracy
// participates in metadata extraction and canonical selection.
type Summary struct {
	TrainingAccuracy float64 `json:"training_accuracy"`
}

// AnalysisRecord is one analysis file on disk, written once by the
// upstream solver and only ever read here.
type AnalysisRecord struct {
	PuzzleID         string        `json:"puzzle_id"`
	GeneralSteps     []GeneralStep `json:"general_steps"`
	Analysis         AnalysisBlock `json:"analysis"`
	Summary          Summary       `json:"summary"`
	TrainingBooklets []Booklet     `json:"training_booklets,omitempty"`
	TestBooklets     []Booklet     `json:"test_booklets,omitempty"`

	// Top-level test examples, the last fallback when neither test
	// booklets nor analysis-level examples are present.
	TestExamples []Example `json:"test_examples,omitempty"`
}
