// Package alignment fits the mapping between timing-mark grid cells and
// template image pixels.
package alignment

import (
	"fmt"
	"math"
	"math/rand"

	"ballot-converter/internal/ballot"
	"ballot-converter/internal/timing"
	"ballot-converter/pkg/geometry"
)

const ransacIterations = 500

// Lattice maps grid cells to pixel centers and back.
type Lattice struct {
	Grid    ballot.GridSize
	ToPixel geometry.AffineTransform
	ToGrid  geometry.AffineTransform
	Inliers int
	Error   float64
}

// FitLattice fits the lattice described by a complete set of timing marks.
// Marks more than a quarter pitch from the consensus fit are ignored.
func FitLattice(m *timing.CompleteMarks, g ballot.GridSize) (*Lattice, error) {
	if m == nil {
		return nil, fmt.Errorf("no timing marks: %w", ErrDegenerate)
	}
	if len(m.Top) != g.Columns || len(m.Bottom) != g.Columns || len(m.Left) != g.Rows || len(m.Right) != g.Rows {
		return nil, fmt.Errorf("lattice %d/%d/%d/%d does not match grid %dx%d",
			len(m.Top), len(m.Bottom), len(m.Left), len(m.Right), g.Columns, g.Rows)
	}

	var cells, pixels []geometry.Point2D
	add := func(column, row int, r geometry.Rect) {
		cells = append(cells, geometry.Point2D{X: float64(column), Y: float64(row)})
		pixels = append(pixels, r.Center())
	}
	for c := 0; c < g.Columns; c++ {
		add(c, 0, m.Top[c])
		add(c, g.Rows-1, m.Bottom[c])
	}
	for r := 1; r < g.Rows-1; r++ {
		add(0, r, m.Left[r])
		add(g.Columns-1, r, m.Right[r])
	}

	pitch := m.TopLeft.Center().Distance(m.TopRight.Center()) / float64(g.Columns-1)
	rng := rand.New(rand.NewSource(int64(len(cells))))
	toPixel, inliers, err := ComputeAffineRANSAC(rng, cells, pixels, ransacIterations, pitch/4)
	if err != nil {
		return nil, fmt.Errorf("failed to fit lattice: %w", err)
	}
	toGrid, ok := toPixel.Inverse()
	if !ok {
		return nil, fmt.Errorf("lattice transform is singular: %w", ErrDegenerate)
	}

	return &Lattice{
		Grid:    g,
		ToPixel: toPixel,
		ToGrid:  toGrid,
		Inliers: len(inliers),
		Error:   CalculateAlignmentError(cells, pixels, toPixel),
	}, nil
}

// Center returns the pixel center of a grid cell.
func (l *Lattice) Center(column, row int) geometry.Point2D {
	return l.ToPixel.Apply(geometry.Point2D{X: float64(column), Y: float64(row)})
}

// Cell returns the grid cell nearest a pixel position.
func (l *Lattice) Cell(p geometry.Point2D) (column, row int) {
	g := l.ToGrid.Apply(p)
	return int(math.Round(g.X)), int(math.Round(g.Y))
}

// Pitch returns the pixel distance between neighbouring columns and rows.
func (l *Lattice) Pitch() geometry.Size {
	origin := l.Center(0, 0)
	return geometry.Size{
		Width:  l.Center(1, 0).Distance(origin),
		Height: l.Center(0, 1).Distance(origin),
	}
}
