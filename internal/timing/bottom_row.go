package timing

import (
	"fmt"

	"ballot-converter/internal/bits"
)

// DecodeBottomRow reads the inner bottom-row slots of a lattice as bits,
// right to left: a detected mark is 1 and an empty slot is 0. The corner
// marks carry no data. Presence is taken from the partial lattice; the
// complete lattice supplies the slot positions.
func DecodeBottomRow(p *PartialMarks, c *CompleteMarks) ([]bits.Bit, error) {
	if p == nil || c == nil {
		return nil, ErrNoBits
	}
	if p.BottomLeft == nil || p.BottomRight == nil {
		return nil, fmt.Errorf("bottom corners not detected: %w", ErrNoBits)
	}
	n := len(c.Bottom)
	if n < 3 {
		return nil, fmt.Errorf("bottom row has %d slots: %w", n, ErrNoBits)
	}
	if len(p.Bottom) > n {
		return nil, fmt.Errorf("found %d bottom marks for %d slots: %w", len(p.Bottom), n, ErrNoBits)
	}

	pitch := c.Bottom[0].Center().Distance(c.Bottom[n-1].Center()) / float64(n-1)
	out := make([]bits.Bit, 0, n-2)
	for i := n - 2; i >= 1; i-- {
		bit := bits.Bit(0)
		if _, ok := nearest(c.Bottom[i].Center(), p.Bottom, pitch/2); ok {
			bit = 1
		}
		out = append(out, bit)
	}
	return out, nil
}
