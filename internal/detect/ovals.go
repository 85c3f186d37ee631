package detect

import (
	"fmt"
	"image"

	"ballot-converter/internal/alignment"
	"ballot-converter/internal/ballot"
	"ballot-converter/internal/grid"
	"ballot-converter/internal/timing"
	"ballot-converter/pkg/geometry"

	"gocv.io/x/gocv"
	"golang.org/x/image/draw"
)

// FindTemplateOvals looks for the oval template around every cell of the
// usable area and returns the cells where it matches. A nil template is
// replaced by DefaultOvalTemplate.
func (d *Detector) FindTemplateOvals(img, ovalTemplate image.Image, marks *timing.CompleteMarks, geom ballot.CardGeometry) ([]grid.Oval, error) {
	if img == nil {
		return nil, fmt.Errorf("nil image")
	}
	lattice, err := alignment.FitLattice(marks, geom.Grid)
	if err != nil {
		return nil, err
	}

	dpi := float64(img.Bounds().Dx()) / geom.WidthInches
	size := geom.OvalSize(dpi)
	var tmpl *image.Gray
	if ovalTemplate == nil {
		tmpl = DefaultOvalTemplate(roundInt(size.Width), roundInt(size.Height))
	} else {
		tmpl = ScaleTemplate(ovalTemplate, image.Pt(roundInt(size.Width), roundInt(size.Height)))
	}

	gray, err := grayMat(img)
	if err != nil {
		return nil, fmt.Errorf("failed to convert image: %w", err)
	}
	defer gray.Close()

	tmplMat, err := grayMat(tmpl)
	if err != nil {
		return nil, fmt.Errorf("failed to convert oval template: %w", err)
	}
	defer tmplMat.Close()

	result := gocv.NewMat()
	defer result.Close()
	mask := gocv.NewMat()
	defer mask.Close()

	pitch := lattice.Pitch()
	window := geometry.Size{
		Width:  size.Width + pitch.Width*d.Params.OvalSearchMargin,
		Height: size.Height + pitch.Height*d.Params.OvalSearchMargin,
	}
	bounds := image.Rect(0, 0, gray.Cols(), gray.Rows())
	tb := tmpl.Bounds()

	var ovals []grid.Oval
	minColumn, minRow, maxColumn, maxRow := geom.UsableArea()
	for column := minColumn; column <= maxColumn; column++ {
		for row := minRow; row <= maxRow; row++ {
			search := toImageRect(geometry.RectAround(lattice.Center(column, row), window)).Intersect(bounds)
			if search.Dx() < tb.Dx() || search.Dy() < tb.Dy() {
				continue
			}

			roi := gray.Region(search)
			gocv.MatchTemplate(roi, tmplMat, &result, gocv.TmCcoeffNormed, mask)
			roi.Close()

			_, score, _, loc := gocv.MinMaxLoc(result)
			if float64(score) < d.Params.OvalMatchThreshold {
				continue
			}

			found := geometry.Rect{
				X:      float64(search.Min.X + loc.X),
				Y:      float64(search.Min.Y + loc.Y),
				Width:  float64(tb.Dx()),
				Height: float64(tb.Dy()),
			}
			if c, r := lattice.Cell(found.Center()); c != column || r != row {
				continue
			}
			ovals = append(ovals, grid.Oval{
				Column: column,
				Row:    row,
				Bounds: found,
				Score:  float64(score),
			})
		}
	}
	return ovals, nil
}

// ScaleTemplate resamples the oval template to the printed oval size.
func ScaleTemplate(src image.Image, size image.Point) *image.Gray {
	dst := image.NewGray(image.Rect(0, 0, max(size.X, 1), max(size.Y, 1)))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	return dst
}

func toImageRect(r geometry.Rect) image.Rectangle {
	return image.Rect(roundInt(r.X), roundInt(r.Y), roundInt(r.X+r.Width), roundInt(r.Y+r.Height))
}

func roundInt(v float64) int {
	if v < 0 {
		return int(v - 0.5)
	}
	return int(v + 0.5)
}
