// Package detect finds timing marks and printed ovals in template images
// with OpenCV.
package detect

// Params tune detection.
type Params struct {
	// MarkSizeTolerance is the accepted relative deviation of a timing
	// mark's width and height from the printed size.
	MarkSizeTolerance float64

	// OvalMatchThreshold is the minimum normalized correlation for a
	// template match to count as an oval.
	OvalMatchThreshold float64

	// OvalSearchMargin widens the search window around each grid cell,
	// as a fraction of the lattice pitch.
	OvalSearchMargin float64
}

// DefaultParams returns parameters suited to 72 DPI rendered templates.
func DefaultParams() Params {
	return Params{
		MarkSizeTolerance:  0.5,
		OvalMatchThreshold: 0.8,
		OvalSearchMargin:   0.5,
	}
}

// Detector is the OpenCV implementation of the converter's detector.
type Detector struct {
	Params Params
}

// New returns a detector using p.
func New(p Params) *Detector {
	return &Detector{Params: p}
}
