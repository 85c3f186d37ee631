package detect

import (
	"image"
	"image/color"
	"testing"

	"ballot-converter/internal/ballot"
	"ballot-converter/internal/grid"
	"ballot-converter/internal/timing"
	"ballot-converter/pkg/colorutil"
	"ballot-converter/pkg/geometry"
)

func rectAt(x, y float64) geometry.Rect {
	return geometry.RectAround(geometry.Point2D{X: x, Y: y}, geometry.Size{Width: 12, Height: 4})
}

func TestClassifyMarks(t *testing.T) {
	pitch := geometry.Size{Width: 18, Height: 18}
	var rects []geometry.Rect
	for c := 0; c < 5; c++ {
		rects = append(rects, rectAt(10+float64(c)*18, 10))
	}
	for r := 1; r < 4; r++ {
		rects = append(rects, rectAt(10, 10+float64(r)*18), rectAt(82, 10+float64(r)*18))
	}
	// Bottom row with one slot empty.
	for _, c := range []int{0, 1, 3, 4} {
		rects = append(rects, rectAt(10+float64(c)*18, 82))
	}

	p := ClassifyMarks(rects, pitch)
	if len(p.Top) != 5 || len(p.Bottom) != 4 || len(p.Left) != 5 || len(p.Right) != 5 {
		t.Fatalf("edges %d/%d/%d/%d", len(p.Top), len(p.Bottom), len(p.Left), len(p.Right))
	}
	for i := 1; i < len(p.Top); i++ {
		if p.Top[i].X <= p.Top[i-1].X {
			t.Fatalf("top not sorted: %+v", p.Top)
		}
	}
	corners := map[string]*geometry.Rect{"TL": p.TopLeft, "TR": p.TopRight, "BL": p.BottomLeft, "BR": p.BottomRight}
	want := map[string]geometry.Point2D{"TL": {X: 10, Y: 10}, "TR": {X: 82, Y: 10}, "BL": {X: 10, Y: 82}, "BR": {X: 82, Y: 82}}
	for name, r := range corners {
		if r == nil {
			t.Errorf("%s missing", name)
			continue
		}
		if r.Center() != want[name] {
			t.Errorf("%s at %+v, want %+v", name, r.Center(), want[name])
		}
	}

	lattice, err := timing.Interpolate(p, ballot.GridSize{Columns: 5, Rows: 5})
	if err != nil {
		t.Fatalf("Interpolate: %v", err)
	}
	seq, err := timing.DecodeBottomRow(p, lattice)
	if err != nil {
		t.Fatalf("DecodeBottomRow: %v", err)
	}
	if len(seq) != 3 || seq[0] != 1 || seq[1] != 0 || seq[2] != 1 {
		t.Errorf("bits = %v, want [1 0 1]", seq)
	}
}

func TestClassifyMarksEmpty(t *testing.T) {
	if p := ClassifyMarks(nil, geometry.Size{Width: 1, Height: 1}); p != nil {
		t.Errorf("got %+v, want nil", p)
	}
}

func TestMatchesMarkSize(t *testing.T) {
	p := DefaultParams()
	want := geometry.Size{Width: 13.5, Height: 4.5}
	if !p.matchesMarkSize(geometry.Size{Width: 14, Height: 5}, want) {
		t.Error("mark of printed size rejected")
	}
	if p.matchesMarkSize(geometry.Size{Width: 14, Height: 14}, want) {
		t.Error("square blob accepted")
	}
}

func TestScaleTemplate(t *testing.T) {
	src := image.NewGray(image.Rect(0, 0, 40, 24))
	got := ScaleTemplate(src, image.Pt(14, 9))
	if got.Bounds().Dx() != 14 || got.Bounds().Dy() != 9 {
		t.Errorf("bounds = %v", got.Bounds())
	}
	if got := ScaleTemplate(src, image.Pt(0, 0)); got.Bounds().Dx() != 1 {
		t.Errorf("zero size bounds = %v", got.Bounds())
	}
}

func TestOverlay(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 100, 100))
	for i := range img.Pix {
		img.Pix[i] = 255
	}
	found := rectAt(20, 20)
	marks := &timing.PartialMarks{Top: []geometry.Rect{found}}
	lattice := &timing.CompleteMarks{Top: []geometry.Rect{found, rectAt(50, 20)}}
	ovals := []grid.Oval{{Bounds: geometry.Rect{X: 60, Y: 60, Width: 10, Height: 6}}}

	out := Overlay(img, marks, lattice, ovals)
	check := func(x, y int, want color.RGBA) {
		t.Helper()
		if got := out.RGBAAt(x, y); got != want {
			t.Errorf("pixel (%d, %d) = %v, want %v", x, y, got, want)
		}
	}
	check(14, 18, colorutil.Detected)
	check(44, 18, colorutil.Interpolated)
	check(60, 60, colorutil.Oval)
	check(90, 90, color.RGBA{255, 255, 255, 255})
}

func TestDefaultOvalTemplate(t *testing.T) {
	img := DefaultOvalTemplate(20, 12)
	if img.GrayAt(10, 6).Y != 255 {
		t.Error("center should be white")
	}
	if img.GrayAt(0, 0).Y != 255 {
		t.Error("corner should be white")
	}
	if img.GrayAt(10, 0).Y != 0 {
		t.Error("top of ring should be dark")
	}
	if img.GrayAt(0, 6).Y != 0 {
		t.Error("left of ring should be dark")
	}
}

func TestGrayMatRejectsEmptyImage(t *testing.T) {
	if _, err := grayMat(image.NewGray(image.Rect(0, 0, 0, 4))); err == nil {
		t.Error("expected an error for an empty image")
	}
}
