// Copyright (C) 2026 Gridbench Labs (dev@gridbench.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package detail assembles the full review view of one analysis file:
// examples and booklets reconciled step by step, grids rendered to
// inline images, duplicate versions resolved, and label state merged
// in.
package detail

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	labeler "github.com/gridbench/tracelabel/services/labeler"
	"github.com/gridbench/tracelabel/services/labeler/datatypes"
	"github.com/gridbench/tracelabel/services/labeler/metacache"
	"github.com/gridbench/tracelabel/services/labeler/render"
	"github.com/gridbench/tracelabel/services/labeler/store"
)

// Loader reads one analysis file in full and builds its detail view.
type Loader struct {
	tracesDir string
	cache     *metacache.Cache
	labels    *store.LabelStore
}

// NewLoader creates a Loader over the traces directory.
func NewLoader(tracesDir string, cache *metacache.Cache, labels *store.LabelStore) *Loader {
	return &Loader{tracesDir: tracesDir, cache: cache, labels: labels}
}

// readRecord opens and decodes one analysis file. The relative path is
// normalized and confined to the traces directory.
func (l *Loader) readRecord(relPath string) (*datatypes.AnalysisRecord, error) {
	relPath = filepath.ToSlash(relPath)
	clean := filepath.Clean(filepath.FromSlash(relPath))
	if strings.HasPrefix(clean, "..") || filepath.IsAbs(clean) {
		return nil, fmt.Errorf("%w: invalid file path %s", labeler.ErrValidation, relPath)
	}
	full := filepath.Join(l.tracesDir, clean)

	data, err := os.ReadFile(full)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: file not found: %s", labeler.ErrNotFound, relPath)
		}
		return nil, fmt.Errorf("%w: reading %s: %v", labeler.ErrProcessing, relPath, err)
	}
	var record datatypes.AnalysisRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("%w: decoding %s: %v", labeler.ErrParse, relPath, err)
	}
	return &record, nil
}

// Load builds the full detail view for the analysis file at relPath.
// Any read or parse failure surfaces as a single error; partial views
// are never returned.
func (l *Loader) Load(ctx context.Context, relPath string) (*datatypes.PuzzleDetail, error) {
	relPath = filepath.ToSlash(relPath)
	record, err := l.readRecord(relPath)
	if err != nil {
		return nil, err
	}

	view := &datatypes.PuzzleDetail{
		PuzzleID:         record.PuzzleID,
		FilePath:         relPath,
		Analysis:         record.Analysis,
		Summary:          record.Summary,
		TrainingExamples: []datatypes.TrainingExampleView{},
		TestExamples:     []datatypes.TestExampleView{},
		TrainingBooklets: []datatypes.TrainingBookletView{},
		TestBooklets:     []datatypes.TestBookletView{},
	}

	l.buildTrainingExamples(view, record)
	l.buildTestExamples(view, record)
	l.buildTrainingBooklets(view, record)
	l.buildTestBooklets(view, record)
	buildGeneralSteps(view, record)
	l.mergeLabelState(view, record.PuzzleID)
	if err := l.resolveDuplicates(ctx, view, record.PuzzleID, relPath); err != nil {
		return nil, err
	}
	return view, nil
}

// buildTrainingExamples pairs each training example with the final
// predicted grid from its booklet, when one exists.
func (l *Loader) buildTrainingExamples(view *datatypes.PuzzleDetail, record *datatypes.AnalysisRecord) {
	for i, ex := range record.Analysis.TrainExamples {
		item := datatypes.TrainingExampleView{
			Index:       i,
			Input:       ex.Input,
			Output:      ex.Output,
			InputImage:  render.Base64PNG(ex.Input, render.CellSizeExample),
			OutputImage: render.Base64PNG(ex.Output, render.CellSizeExample),
		}
		if i < len(record.TrainingBooklets) {
			if final := record.TrainingBooklets[i].LastGrid(); !final.Empty() {
				item.PredictionGrid = final
				item.PredictionImage = render.Base64PNG(final, render.CellSizeExample)
			}
		}
		view.TrainingExamples = append(view.TrainingExamples, item)
	}
}

// buildTestExamples extracts test pairs from the test booklets,
// falling back to the analysis-level and then top-level example lists
// when no booklet carries an input.
func (l *Loader) buildTestExamples(view *datatypes.PuzzleDetail, record *datatypes.AnalysisRecord) {
	for i, booklet := range record.TestBooklets {
		input := booklet.TestInput()
		if input.Empty() {
			continue
		}
		expected := booklet.TestExpected()
		predicted := booklet.TestPredicted()
		item := datatypes.TestExampleView{
			Index:           i,
			Input:           input,
			Output:          expected,
			PredictedOutput: predicted,
			InputImage:      render.Base64PNG(input, render.CellSizeExample),
			OutputImage:     render.Base64PNG(expected, render.CellSizeExample),
			PredictedImage:  render.Base64PNG(predicted, render.CellSizeExample),
		}
		view.TestExamples = append(view.TestExamples, item)
	}
	if len(view.TestExamples) > 0 {
		return
	}

	examples := record.Analysis.TestExamples
	if len(examples) == 0 {
		examples = record.TestExamples
	}
	for i, ex := range examples {
		if ex.Input.Empty() {
			continue
		}
		view.TestExamples = append(view.TestExamples, datatypes.TestExampleView{
			Index:       i,
			Input:       ex.Input,
			Output:      ex.Output,
			InputImage:  render.Base64PNG(ex.Input, render.CellSizeExample),
			OutputImage: render.Base64PNG(ex.Output, render.CellSizeExample),
		})
	}
}

// stepView renders one booklet sub-step.
func stepView(s datatypes.BookletStep) datatypes.BookletStepView {
	before := s.Before()
	after := s.After()
	return datatypes.BookletStepView{
		StepNumber:       s.StepNumber,
		GeneralStep:      s.GeneralStep,
		ObjectSubstep:    s.ObjectSubstep,
		Instruction:      s.Instruction,
		SubstepReasoning: s.SubstepReasoning,
		ToolUsed:         s.ToolUsed,
		ToolParams:       s.ToolParams,
		BBox:             s.BBox,
		ObjectNum:        s.ObjectNum,
		GridBefore:       before,
		GridAfter:        after,
		GridBeforeImage:  render.Base64PNG(before, render.CellSizeStep),
		GridAfterImage:   render.Base64PNG(after, render.CellSizeStep),
		VisualCount:      s.VisualCount(),
	}
}

func (l *Loader) buildTrainingBooklets(view *datatypes.PuzzleDetail, record *datatypes.AnalysisRecord) {
	for i, booklet := range record.TrainingBooklets {
		item := datatypes.TrainingBookletView{
			Index:    i,
			NumSteps: len(booklet.Steps),
			Steps:    []datatypes.BookletStepView{},
		}
		for _, s := range booklet.Steps {
			item.Steps = append(item.Steps, stepView(s))
		}
		if final := booklet.LastGrid(); !final.Empty() {
			item.FinalGrid = final
			item.FinalGridImage = render.Base64PNG(final, render.CellSizeFinal)
		}
		view.TrainingBooklets = append(view.TrainingBooklets, item)
	}
}

func (l *Loader) buildTestBooklets(view *datatypes.PuzzleDetail, record *datatypes.AnalysisRecord) {
	for i, booklet := range record.TestBooklets {
		item := datatypes.TestBookletView{
			Index:     i,
			NumSteps:  len(booklet.Steps),
			Steps:     []datatypes.BookletStepView{},
			IsCorrect: booklet.IsCorrect,
			Accuracy:  booklet.Accuracy,
		}
		for _, s := range booklet.Steps {
			item.Steps = append(item.Steps, stepView(s))
		}
		if predicted := booklet.TestPredicted(); !predicted.Empty() {
			item.FinalGrid = predicted
			item.FinalGridImage = render.Base64PNG(predicted, render.CellSizeFinal)
		}
		if expected := booklet.TestExpected(); !expected.Empty() {
			item.ExpectedGrid = expected
			item.ExpectedGridImage = render.Base64PNG(expected, render.CellSizeFinal)
		}
		view.TestBooklets = append(view.TestBooklets, item)
	}
}

// buildGeneralSteps computes each general step's visual count: the
// number of grid snapshots across all booklet sub-steps whose leading
// step-number component matches the general step's number.
func buildGeneralSteps(view *datatypes.PuzzleDetail, record *datatypes.AnalysisRecord) {
	view.GeneralSteps = make([]datatypes.GeneralStepView, 0, len(record.GeneralSteps))
	for _, gs := range record.GeneralSteps {
		count := 0
		want := gs.StepNumber.General()
		for _, booklet := range view.TrainingBooklets {
			for _, s := range booklet.Steps {
				if s.StepNumber.General() == want {
					count += s.VisualCount
				}
			}
		}
		for _, booklet := range view.TestBooklets {
			for _, s := range booklet.Steps {
				if s.StepNumber.General() == want {
					count += s.VisualCount
				}
			}
		}
		view.GeneralSteps = append(view.GeneralSteps, datatypes.GeneralStepView{
			StepNumber:  gs.StepNumber,
			Instruction: gs.Instruction,
			Reasoning:   gs.Reasoning,
			VisualCount: count,
		})
	}
}

// mergeLabelState fills the view's label block, zero-valued when the
// puzzle is unlabeled.
func (l *Loader) mergeLabelState(view *datatypes.PuzzleDetail, puzzleID string) {
	view.FailureModes = []string{}
	view.AutoDetectedModes = []string{}
	view.ManualOverrides = []string{}
	view.Reviewer = store.DefaultReviewer

	labels := l.labels.Load()
	record, ok := labels[puzzleID]
	if !ok {
		return
	}
	label := record.Label
	view.CurrentLabel = &label
	view.CurrentReasoning = record.Reasoning
	view.LabelTimestamp = record.Timestamp
	if record.FailureModes != nil {
		view.FailureModes = record.FailureModes
	}
	view.AutoDetected = record.AutoDetected
	if record.AutoDetectedModes != nil {
		view.AutoDetectedModes = record.AutoDetectedModes
	}
	if record.ManualOverrides != nil {
		view.ManualOverrides = record.ManualOverrides
	}
	view.Reviewer = record.Reviewer
}

// resolveDuplicates lists every known file for the puzzle id in
// canonical order and locates the requested file within it (-1 when
// the file is not indexed).
func (l *Loader) resolveDuplicates(ctx context.Context, view *datatypes.PuzzleDetail, puzzleID, relPath string) error {
	view.DuplicateVersions = []datatypes.DuplicateVersion{}
	view.CurrentDuplicateIndex = -1

	puzzles, err := l.cache.Get(ctx)
	if err != nil {
		return fmt.Errorf("%w: resolving duplicates: %v", labeler.ErrProcessing, err)
	}
	candidates, ok := puzzles[puzzleID]
	if !ok {
		return nil
	}

	labeledPath := ""
	if record, ok := l.labels.Load()[puzzleID]; ok {
		labeledPath = record.FilePath
	}

	sorted := make([]datatypes.PuzzleMetadata, len(candidates))
	copy(sorted, candidates)
	metacache.SortCandidates(sorted, labeledPath)

	for i, c := range sorted {
		view.DuplicateVersions = append(view.DuplicateVersions, datatypes.DuplicateVersion{
			FilePath:         c.RelPath,
			TrainingAccuracy: c.TrainingAccuracy,
			IsV11:            c.IsV11,
			MTime:            c.MTime,
		})
		if c.RelPath == relPath {
			view.CurrentDuplicateIndex = i
		}
	}
	if len(sorted) > 1 {
		view.NumDuplicates = len(sorted) - 1
	}
	return nil
}

// TrainingPredictedInput lazily fetches one training booklet's initial
// grid (the first step's pre-step snapshot) with its rendered image.
func (l *Loader) TrainingPredictedInput(relPath string, index int) (*datatypes.PredictedInput, error) {
	record, err := l.readRecord(relPath)
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= len(record.TrainingBooklets) {
		return nil, fmt.Errorf("%w: training example %d not found", labeler.ErrNotFound, index)
	}
	booklet := record.TrainingBooklets[index]
	if len(booklet.Steps) == 0 {
		return nil, fmt.Errorf("%w: no predicted input for training example %d", labeler.ErrNotFound, index)
	}

	first := booklet.Steps[0]
	grid := first.Grid
	if grid.Empty() {
		grid = first.GridBefore
	}
	if grid.Empty() {
		return nil, fmt.Errorf("%w: no predicted input for training example %d", labeler.ErrNotFound, index)
	}
	return &datatypes.PredictedInput{
		PredictedInputGrid:  grid,
		PredictedInputImage: render.Base64PNG(grid, render.CellSizeExample),
	}, nil
}
