package header

import "math"

// Vector-space calibration for the AccuVote header. Candidate positions
// (OX, OY) sit on a lattice with these spacings; the origin is the lattice
// point of column 0, row 0.
const (
	TimingMarkSpacingX = 108.0 / 7
	TimingMarkSpacingY = 9.0
	OriginX            = 236.126 - TimingMarkSpacingX*12
	OriginY            = 245.768 - TimingMarkSpacingY*9
)

// GridTransform maps header vector coordinates onto timing-mark columns
// and rows.
type GridTransform struct {
	OriginX  float64 `yaml:"origin_x"`
	OriginY  float64 `yaml:"origin_y"`
	SpacingX float64 `yaml:"spacing_x"`
	SpacingY float64 `yaml:"spacing_y"`
}

// DefaultGridTransform returns the format's calibration.
func DefaultGridTransform() GridTransform {
	return GridTransform{
		OriginX:  OriginX,
		OriginY:  OriginY,
		SpacingX: TimingMarkSpacingX,
		SpacingY: TimingMarkSpacingY,
	}
}

// Apply converts (ox, oy) to the nearest (column, row).
func (t GridTransform) Apply(ox, oy float64) (column, row int) {
	column = int(math.Round((ox - t.OriginX) / t.SpacingX))
	row = int(math.Round((oy - t.OriginY) / t.SpacingY))
	return column, row
}
