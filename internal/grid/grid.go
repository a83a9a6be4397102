// Package grid provides the shared spreadsheet grid model: a fixed-size
// two-dimensional matrix of text cells.
package grid

// Canonical grid dimensions. Fixed at session creation and never resized.
const (
	Rows = 50
	Cols = 50
)

// Grid is a row-major matrix of UTF-8 text cells. The empty string is the
// default/unset cell value. Cells are addressed by zero-based (row, col).
type Grid [][]string

// New creates a fully-initialized empty Rows×Cols grid.
//
// Postcondition: Every cell holds the empty string.
func New() Grid {
	g := make(Grid, Rows)
	for i := range g {
		g[i] = make([]string, Cols)
	}
	return g
}

// Clone deep-copies the grid so callers can mutate or transmit the copy
// without aliasing the original's backing arrays.
//
// Postcondition: Returns an independent grid of identical shape and content.
// A nil grid clones to nil.
func (g Grid) Clone() Grid {
	if g == nil {
		return nil
	}
	out := make(Grid, len(g))
	for i, row := range g {
		out[i] = make([]string, len(row))
		copy(out[i], row)
	}
	return out
}

// WellFormed reports whether the grid has exactly the canonical Rows×Cols
// shape. Persistence is intentionally permissive and accepts any shape;
// WellFormed exists for callers that want to check before submitting.
func (g Grid) WellFormed() bool {
	if len(g) != Rows {
		return false
	}
	for _, row := range g {
		if len(row) != Cols {
			return false
		}
	}
	return true
}

// Cell returns the value at (row, col), or the empty string when the
// coordinates fall outside the grid's actual shape.
func (g Grid) Cell(row, col int) string {
	if row < 0 || row >= len(g) {
		return ""
	}
	if col < 0 || col >= len(g[row]) {
		return ""
	}
	return g[row][col]
}

// Equal reports whether two grids have identical shape and cell contents.
func (g Grid) Equal(other Grid) bool {
	if len(g) != len(other) {
		return false
	}
	for i, row := range g {
		if len(row) != len(other[i]) {
			return false
		}
		for j, cell := range row {
			if cell != other[i][j] {
				return false
			}
		}
	}
	return true
}
