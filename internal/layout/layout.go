// Package layout computes preview grid arrangements.
package layout

import (
	"math"

	"github.com/Norgate-AV/evelens/internal/native"
	"github.com/Norgate-AV/evelens/internal/thumbnail"
)

// GridOptions describes a grid of previews anchored at Origin.
type GridOptions struct {
	Origin native.Point

	// Columns fixes the column count. Zero picks the squarest grid.
	Columns int

	Width  int
	Height int
	Gap    int
}

// CalculateGrid returns rows and columns for n cells, using the ceiling of the square
// root for columns when columns is zero.
func CalculateGrid(n, columns int) (rows, cols int) {
	if n <= 0 {
		return 0, 0
	}

	cols = columns
	if cols <= 0 {
		cols = int(math.Ceil(math.Sqrt(float64(n))))
	}

	cols = min(cols, n)
	rows = int(math.Ceil(float64(n) / float64(cols)))
	return rows, cols
}

// Grid returns n preview rectangles laid out left to right, top to bottom. Cell sizes
// are clamped to the preview size limits.
func Grid(n int, opts GridOptions) []native.Rect {
	if n <= 0 {
		return nil
	}

	_, cols := CalculateGrid(n, opts.Columns)
	width, height := thumbnail.ClampSize(opts.Width, opts.Height)
	gap := max(opts.Gap, 0)

	out := make([]native.Rect, n)
	for i := range n {
		row, col := i/cols, i%cols

		pos := thumbnail.SanePosition(native.Point{
			X: opts.Origin.X + col*(width+gap),
			Y: opts.Origin.Y + row*(height+gap),
		})

		out[i] = native.Rect{X: pos.X, Y: pos.Y, Width: width, Height: height}
	}

	return out
}
