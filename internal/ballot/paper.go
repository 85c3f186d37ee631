// Package ballot describes the physical geometry of AccuVote ballot cards.
package ballot

import (
	"fmt"

	"ballot-converter/pkg/geometry"
)

// PaperSize identifies a supported ballot card stock.
type PaperSize string

const (
	PaperLetter PaperSize = "letter"
	PaperLegal  PaperSize = "legal"
)

// Vendor paper-size codes as written in the ballot header.
const (
	CodeLetter = "8.5X11"
	CodeLegal  = "8.5X14"
)

var paperSizeCodes = map[string]PaperSize{
	CodeLetter: PaperLetter,
	CodeLegal:  PaperLegal,
}

// ParsePaperSizeCode maps a vendor paper-size code to a PaperSize.
func ParsePaperSizeCode(code string) (PaperSize, bool) {
	size, ok := paperSizeCodes[code]
	return size, ok
}

// GridSize is the number of timing-mark columns and rows on a card side.
type GridSize struct {
	Columns int `json:"columns"`
	Rows    int `json:"rows"`
}

// CardGeometry describes one card stock and its timing-mark lattice.
//
// Physical characteristics shared by both stocks:
//   - 34 timing-mark columns at 1/4" pitch
//   - timing marks 3/16" x 1/16"
//   - the inner bottom-row marks encode card metadata
type CardGeometry struct {
	PaperSize        PaperSize     `json:"paper_size"`
	WidthInches      float64       `json:"width_inches"`
	HeightInches     float64       `json:"height_inches"`
	Grid             GridSize      `json:"grid"`
	TimingMarkInches geometry.Size `json:"timing_mark_inches"`
	OvalInches       geometry.Size `json:"oval_inches"`
}

const (
	timingMarkWidthInches  = 0.1875
	timingMarkHeightInches = 0.0625
	ovalWidthInches        = 0.2
	ovalHeightInches       = 0.12
)

// LetterGeometry returns the 8.5" x 11" card geometry.
func LetterGeometry() CardGeometry {
	return CardGeometry{
		PaperSize:        PaperLetter,
		WidthInches:      8.5,
		HeightInches:     11,
		Grid:             GridSize{Columns: 34, Rows: 41},
		TimingMarkInches: geometry.Size{Width: timingMarkWidthInches, Height: timingMarkHeightInches},
		OvalInches:       geometry.Size{Width: ovalWidthInches, Height: ovalHeightInches},
	}
}

// LegalGeometry returns the 8.5" x 14" card geometry.
func LegalGeometry() CardGeometry {
	return CardGeometry{
		PaperSize:        PaperLegal,
		WidthInches:      8.5,
		HeightInches:     14,
		Grid:             GridSize{Columns: 34, Rows: 53},
		TimingMarkInches: geometry.Size{Width: timingMarkWidthInches, Height: timingMarkHeightInches},
		OvalInches:       geometry.Size{Width: ovalWidthInches, Height: ovalHeightInches},
	}
}

// GeometryFor returns the card geometry for a paper size.
func GeometryFor(size PaperSize) (CardGeometry, error) {
	switch size {
	case PaperLetter:
		return LetterGeometry(), nil
	case PaperLegal:
		return LegalGeometry(), nil
	default:
		return CardGeometry{}, fmt.Errorf("unsupported paper size %q", size)
	}
}

// CanvasSize returns the expected template image size at the given DPI.
func (g CardGeometry) CanvasSize(dpi float64) geometry.Size {
	return geometry.Size{Width: g.WidthInches * dpi, Height: g.HeightInches * dpi}
}

// TimingMarkSize returns the nominal timing mark size in pixels.
func (g CardGeometry) TimingMarkSize(dpi float64) geometry.Size {
	return geometry.Size{Width: g.TimingMarkInches.Width * dpi, Height: g.TimingMarkInches.Height * dpi}
}

// OvalSize returns the nominal oval size in pixels.
func (g CardGeometry) OvalSize(dpi float64) geometry.Size {
	return geometry.Size{Width: g.OvalInches.Width * dpi, Height: g.OvalInches.Height * dpi}
}

// UsableArea returns the lattice cells in which ovals may be printed:
// everything inside the border marks, excluding the metadata row.
func (g CardGeometry) UsableArea() (minColumn, minRow, maxColumn, maxRow int) {
	return 1, 1, g.Grid.Columns - 2, g.Grid.Rows - 2
}

// Validate checks the geometry for internal consistency.
func (g CardGeometry) Validate() error {
	if g.WidthInches <= 0 || g.HeightInches <= 0 {
		return fmt.Errorf("card dimensions must be positive")
	}
	if g.Grid.Columns < 3 || g.Grid.Rows < 3 {
		return fmt.Errorf("timing mark grid %dx%d is too small", g.Grid.Columns, g.Grid.Rows)
	}
	return nil
}

// TemplatePaperSize returns the paper size whose canvas at dpi matches the
// given image dimensions, rounding the expected size to whole pixels.
func TemplatePaperSize(width, height int, dpi float64) (PaperSize, bool) {
	for _, g := range []CardGeometry{LetterGeometry(), LegalGeometry()} {
		canvas := g.CanvasSize(dpi)
		if width == roundInt(canvas.Width) && height == roundInt(canvas.Height) {
			return g.PaperSize, true
		}
	}
	return "", false
}

func roundInt(v float64) int {
	if v < 0 {
		return int(v - 0.5)
	}
	return int(v + 0.5)
}
