// Copyright (C) 2026 Gridbench Labs (dev@gridbench.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package metacache

import (
	"sort"

	"github.com/gridbench/tracelabel/services/labeler/datatypes"
)

// SortCandidates orders candidate files sharing a puzzle id into the
// canonical preference order:
//
//  1. the candidate the existing label points at (labeledPath), first
//  2. higher training accuracy
//  3. more recent modification time
//  4. v11 schema before v10
//  5. relative path, ascending
//
// labeledPath is the rel_path recorded on the puzzle's label, or ""
// when the puzzle is unlabeled. The final path tie-break makes the
// order a pure function of the candidate set: same inputs always yield
// the same order regardless of input ordering, which the reviewer's
// session state depends on across requests.
func SortCandidates(candidates []datatypes.PuzzleMetadata, labeledPath string) {
	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		aLabeled := labeledPath != "" && a.RelPath == labeledPath
		bLabeled := labeledPath != "" && b.RelPath == labeledPath
		if aLabeled != bLabeled {
			return aLabeled
		}
		if a.TrainingAccuracy != b.TrainingAccuracy {
			return a.TrainingAccuracy > b.TrainingAccuracy
		}
		if a.MTime != b.MTime {
			return a.MTime > b.MTime
		}
		if a.IsV11 != b.IsV11 {
			return a.IsV11
		}
		return a.RelPath < b.RelPath
	})
}

// SelectCanonical picks the one file to show for a puzzle id and
// reports how many duplicates remain. The input slice is not modified.
// ok is false when candidates is empty.
func SelectCanonical(candidates []datatypes.PuzzleMetadata, labeledPath string) (selected datatypes.PuzzleMetadata, numDuplicates int, ok bool) {
	if len(candidates) == 0 {
		return datatypes.PuzzleMetadata{}, 0, false
	}
	sorted := make([]datatypes.PuzzleMetadata, len(candidates))
	copy(sorted, candidates)
	SortCandidates(sorted, labeledPath)
	return sorted[0], len(sorted) - 1, true
}
