package detect

import (
	"fmt"
	"image"
	"math"
	"sort"

	"ballot-converter/internal/ballot"
	"ballot-converter/internal/timing"
	"ballot-converter/pkg/geometry"

	"gocv.io/x/gocv"
)

// FindTimingMarks thresholds the image and keeps the dark blobs sized like
// timing marks, sorted onto the four edges of the card.
func (d *Detector) FindTimingMarks(img image.Image, geom ballot.CardGeometry) (*timing.PartialMarks, error) {
	if img == nil {
		return nil, fmt.Errorf("nil image")
	}
	gray, err := grayMat(img)
	if err != nil {
		return nil, fmt.Errorf("failed to convert image: %w", err)
	}
	defer gray.Close()

	binary := gocv.NewMat()
	defer binary.Close()
	gocv.Threshold(gray, &binary, 0, 255, gocv.ThresholdBinaryInv|gocv.ThresholdOtsu)

	contours := gocv.FindContours(binary, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer contours.Close()

	dpi := float64(img.Bounds().Dx()) / geom.WidthInches
	want := geom.TimingMarkSize(dpi)
	var rects []geometry.Rect
	for i := 0; i < contours.Size(); i++ {
		r := gocv.BoundingRect(contours.At(i))
		rect := geometry.Rect{
			X:      float64(r.Min.X),
			Y:      float64(r.Min.Y),
			Width:  float64(r.Dx()),
			Height: float64(r.Dy()),
		}
		if d.Params.matchesMarkSize(rect.Size(), want) {
			rects = append(rects, rect)
		}
	}

	pitch := geometry.Size{
		Width:  dpi * geom.WidthInches / float64(geom.Grid.Columns),
		Height: dpi * geom.HeightInches / float64(geom.Grid.Rows),
	}
	return ClassifyMarks(rects, pitch), nil
}

func (p Params) matchesMarkSize(got, want geometry.Size) bool {
	tol := p.MarkSizeTolerance
	return math.Abs(got.Width-want.Width) <= want.Width*tol &&
		math.Abs(got.Height-want.Height) <= want.Height*tol
}

// ClassifyMarks sorts candidate marks onto the edges of the lattice. A
// mark belongs to an edge when it lies within half a pitch of the outermost
// mark on that side; corners are the marks on two edges at once. It returns
// nil when there are no marks.
func ClassifyMarks(rects []geometry.Rect, pitch geometry.Size) *timing.PartialMarks {
	if len(rects) == 0 {
		return nil
	}

	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, r := range rects {
		c := r.Center()
		minX, maxX = math.Min(minX, c.X), math.Max(maxX, c.X)
		minY, maxY = math.Min(minY, c.Y), math.Max(maxY, c.Y)
	}

	p := &timing.PartialMarks{}
	for i := range rects {
		r := rects[i]
		c := r.Center()
		top := c.Y-minY < pitch.Height/2
		bottom := maxY-c.Y < pitch.Height/2
		left := c.X-minX < pitch.Width/2
		right := maxX-c.X < pitch.Width/2

		if top {
			p.Top = append(p.Top, r)
		}
		if bottom {
			p.Bottom = append(p.Bottom, r)
		}
		if left {
			p.Left = append(p.Left, r)
		}
		if right {
			p.Right = append(p.Right, r)
		}

		switch {
		case top && left:
			p.TopLeft = &rects[i]
		case top && right:
			p.TopRight = &rects[i]
		case bottom && left:
			p.BottomLeft = &rects[i]
		case bottom && right:
			p.BottomRight = &rects[i]
		}
	}

	byX := func(s []geometry.Rect) {
		sort.Slice(s, func(i, j int) bool { return s[i].X < s[j].X })
	}
	byY := func(s []geometry.Rect) {
		sort.Slice(s, func(i, j int) bool { return s[i].Y < s[j].Y })
	}
	byX(p.Top)
	byX(p.Bottom)
	byY(p.Left)
	byY(p.Right)
	return p
}
