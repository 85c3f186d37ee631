// Package timing models the printed timing-mark lattice of a ballot card
// and decodes the card metadata encoded in its bottom row.
package timing

import (
	"errors"
	"fmt"
	"math"

	"ballot-converter/internal/ballot"
	"ballot-converter/pkg/geometry"
)

var (
	// ErrIncompleteLattice is returned when too few corners were detected
	// to rebuild the lattice.
	ErrIncompleteLattice = errors.New("timing mark lattice cannot be completed")

	// ErrNoBits is returned when the bottom row cannot be read as bits.
	ErrNoBits = errors.New("bottom row timing marks cannot be read as bits")
)

// PartialMarks holds the timing marks a detector found on one side.
// Edge lists may be missing marks; corners are nil when not found.
type PartialMarks struct {
	Top    []geometry.Rect `json:"top"`
	Bottom []geometry.Rect `json:"bottom"`
	Left   []geometry.Rect `json:"left"`
	Right  []geometry.Rect `json:"right"`

	TopLeft     *geometry.Rect `json:"topLeft,omitempty"`
	TopRight    *geometry.Rect `json:"topRight,omitempty"`
	BottomLeft  *geometry.Rect `json:"bottomLeft,omitempty"`
	BottomRight *geometry.Rect `json:"bottomRight,omitempty"`
}

// Count returns the number of distinct edge marks found.
func (p *PartialMarks) Count() int {
	return len(p.Top) + len(p.Bottom) + len(p.Left) + len(p.Right)
}

// CompleteMarks is a fully populated lattice. Top and Bottom hold one mark
// per column and Left and Right one per row, corners included.
type CompleteMarks struct {
	Top    []geometry.Rect `json:"top"`
	Bottom []geometry.Rect `json:"bottom"`
	Left   []geometry.Rect `json:"left"`
	Right  []geometry.Rect `json:"right"`

	TopLeft     geometry.Rect `json:"topLeft"`
	TopRight    geometry.Rect `json:"topRight"`
	BottomLeft  geometry.Rect `json:"bottomLeft"`
	BottomRight geometry.Rect `json:"bottomRight"`
}

// Interpolate fills the gaps in a partial lattice. A single missing corner
// is inferred from the other three; each edge is rebuilt as evenly spaced
// slots between its corners, snapping to detected marks where present.
func Interpolate(p *PartialMarks, grid ballot.GridSize) (*CompleteMarks, error) {
	if p == nil {
		return nil, ErrIncompleteLattice
	}
	if grid.Columns < 2 || grid.Rows < 2 {
		return nil, fmt.Errorf("grid %dx%d: %w", grid.Columns, grid.Rows, ErrIncompleteLattice)
	}

	tl, tr, bl, br, err := completeCorners(p)
	if err != nil {
		return nil, err
	}

	return &CompleteMarks{
		Top:         snapEdge(tl, tr, grid.Columns, p.Top),
		Bottom:      snapEdge(bl, br, grid.Columns, p.Bottom),
		Left:        snapEdge(tl, bl, grid.Rows, p.Left),
		Right:       snapEdge(tr, br, grid.Rows, p.Right),
		TopLeft:     tl,
		TopRight:    tr,
		BottomLeft:  bl,
		BottomRight: br,
	}, nil
}

func completeCorners(p *PartialMarks) (tl, tr, bl, br geometry.Rect, err error) {
	corners := []*geometry.Rect{p.TopLeft, p.TopRight, p.BottomLeft, p.BottomRight}
	missing := -1
	for i, c := range corners {
		if c != nil {
			continue
		}
		if missing >= 0 {
			return tl, tr, bl, br, fmt.Errorf("two or more corners missing: %w", ErrIncompleteLattice)
		}
		missing = i
	}

	// The lattice is a parallelogram, so each corner is the sum of its two
	// neighbours minus the opposite corner.
	infer := func(a, b, opposite *geometry.Rect) *geometry.Rect {
		c := a.Center().Add(b.Center()).Sub(opposite.Center())
		r := geometry.RectAround(c, a.Size())
		return &r
	}
	switch missing {
	case 0:
		corners[0] = infer(p.TopRight, p.BottomLeft, p.BottomRight)
	case 1:
		corners[1] = infer(p.TopLeft, p.BottomRight, p.BottomLeft)
	case 2:
		corners[2] = infer(p.TopLeft, p.BottomRight, p.TopRight)
	case 3:
		corners[3] = infer(p.TopRight, p.BottomLeft, p.TopLeft)
	}
	return *corners[0], *corners[1], *corners[2], *corners[3], nil
}

// snapEdge lays out n slots from start to end inclusive.
func snapEdge(start, end geometry.Rect, n int, detected []geometry.Rect) []geometry.Rect {
	slots := make([]geometry.Rect, n)
	a, b := start.Center(), end.Center()
	pitch := a.Distance(b) / float64(n-1)

	for i := range slots {
		switch i {
		case 0:
			slots[i] = start
			continue
		case n - 1:
			slots[i] = end
			continue
		}
		expected := a.Lerp(b, float64(i)/float64(n-1))
		if m, ok := nearest(expected, detected, pitch/2); ok {
			slots[i] = m
		} else {
			slots[i] = geometry.RectAround(expected, start.Size())
		}
	}
	return slots
}

// nearest returns the detected mark closest to p within maxDist.
func nearest(p geometry.Point2D, marks []geometry.Rect, maxDist float64) (geometry.Rect, bool) {
	best := math.Inf(1)
	var found geometry.Rect
	for _, m := range marks {
		if d := m.Center().Distance(p); d < best {
			best = d
			found = m
		}
	}
	return found, best < maxDist
}
