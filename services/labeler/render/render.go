// Copyright (C) 2026 Gridbench Labs (dev@gridbench.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package render turns puzzle grids into color-coded raster images.
//
// The contract is fixed: given a 2D array of small integers, produce a
// PNG where each cell is a colored square with a 1px separator line.
// Cell values outside 0-9 fall back to the background color.
package render

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/draw"
	"image/png"

	"github.com/gridbench/tracelabel/services/labeler/datatypes"
)

// Palette maps cell values 0-9 to the standard puzzle colors.
var Palette = [10]color.RGBA{
	{0x00, 0x00, 0x00, 0xFF}, // 0 black
	{0x00, 0x74, 0xD9, 0xFF}, // 1 blue
	{0xFF, 0x41, 0x36, 0xFF}, // 2 red
	{0x2E, 0xCC, 0x40, 0xFF}, // 3 green
	{0xFF, 0xDC, 0x00, 0xFF}, // 4 yellow
	{0xAA, 0xAA, 0xAA, 0xFF}, // 5 grey
	{0xF0, 0x12, 0xBE, 0xFF}, // 6 magenta
	{0xFF, 0x85, 0x1B, 0xFF}, // 7 orange
	{0x7F, 0xDB, 0xFF, 0xFF}, // 8 sky
	{0x87, 0x0C, 0x25, 0xFF}, // 9 maroon
}

// gridLine separates adjacent cells.
var gridLine = color.RGBA{0x55, 0x55, 0x55, 0xFF}

// Cell sizes used by the detail view.
const (
	CellSizeExample = 50
	CellSizeFinal   = 40
	CellSizeStep    = 30
)

// Image renders the grid at the given cell size. Returns nil for an
// empty grid or a non-positive cell size.
func Image(grid datatypes.Grid, cellSize int) *image.RGBA {
	if grid.Empty() || cellSize <= 0 {
		return nil
	}
	rows := len(grid)
	cols := len(grid[0])
	img := image.NewRGBA(image.Rect(0, 0, cols*cellSize+1, rows*cellSize+1))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: gridLine}, image.Point{}, draw.Src)

	for r, row := range grid {
		for c := 0; c < cols; c++ {
			val := 0
			if c < len(row) {
				val = row[c]
			}
			cellColor := Palette[0]
			if val >= 0 && val < len(Palette) {
				cellColor = Palette[val]
			}
			cell := image.Rect(c*cellSize+1, r*cellSize+1, (c+1)*cellSize, (r+1)*cellSize)
			draw.Draw(img, cell, &image.Uniform{C: cellColor}, image.Point{}, draw.Src)
		}
	}
	return img
}

// Base64PNG renders the grid and returns the PNG bytes base64-encoded
// for inline embedding. Returns "" for an empty grid.
func Base64PNG(grid datatypes.Grid, cellSize int) string {
	img := Image(grid, cellSize)
	if img == nil {
		return ""
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		// Encoding an in-memory RGBA image only fails on writer errors,
		// which bytes.Buffer does not produce.
		return ""
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}
