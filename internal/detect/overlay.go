package detect

import (
	"image"
	"image/color"

	"ballot-converter/internal/grid"
	"ballot-converter/internal/timing"
	"ballot-converter/pkg/colorutil"
	"ballot-converter/pkg/geometry"

	"golang.org/x/image/draw"
)

// Overlay draws what was found on a copy of img: detected timing marks in
// green, lattice slots with no detected mark in orange and ovals in blue.
// Any of marks, lattice and ovals may be nil.
func Overlay(img image.Image, marks *timing.PartialMarks, lattice *timing.CompleteMarks, ovals []grid.Oval) *image.RGBA {
	b := img.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Bounds(), img, b.Min, draw.Src)

	detected := make(map[geometry.Rect]bool)
	if marks != nil {
		for _, edge := range [][]geometry.Rect{marks.Top, marks.Bottom, marks.Left, marks.Right} {
			for _, r := range edge {
				detected[r] = true
				outline(out, r, colorutil.Detected)
			}
		}
	}
	if lattice != nil {
		for _, edge := range [][]geometry.Rect{lattice.Top, lattice.Bottom, lattice.Left, lattice.Right} {
			for _, r := range edge {
				if !detected[r] {
					outline(out, r, colorutil.Interpolated)
				}
			}
		}
	}
	for _, o := range ovals {
		outline(out, o.Bounds, colorutil.Oval)
	}
	return out
}

func outline(img *image.RGBA, r geometry.Rect, c color.Color) {
	rect := toImageRect(r)
	for x := rect.Min.X; x < rect.Max.X; x++ {
		img.Set(x, rect.Min.Y, c)
		img.Set(x, rect.Max.Y-1, c)
	}
	for y := rect.Min.Y; y < rect.Max.Y; y++ {
		img.Set(rect.Min.X, y, c)
		img.Set(rect.Max.X-1, y, c)
	}
}
