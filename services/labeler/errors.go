// Copyright (C) 2026 Gridbench Labs (dev@gridbench.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package labeler defines the shared error taxonomy for the reasoning
// trace labeler service.
package labeler

import "errors"

// Sentinel errors for the labeler service.
//
// Handlers map these to HTTP status codes at the boundary:
// ErrNotFound -> 404, ErrValidation -> 400, everything else -> 500.
var (
	// ErrNotFound indicates a missing analysis file, label, or index.
	ErrNotFound = errors.New("not found")

	// ErrValidation indicates a bad label value, an unknown failure-mode
	// code, or a missing required field. The store is never mutated when
	// validation fails.
	ErrValidation = errors.New("validation failed")

	// ErrParse indicates malformed persisted JSON. Persisted stores
	// recover from this by treating the file as empty; analysis files
	// surface it to the caller.
	ErrParse = errors.New("parse error")

	// ErrProcessing indicates an unexpected failure while assembling a
	// detail view. Surfaced with its message, never swallowed.
	ErrProcessing = errors.New("processing error")
)
