package image

import (
	"image"
	"image/draw"

	"ballot-converter/pkg/colorutil"
)

// Gutter is the space left between images by SideBySide.
const Gutter = 16

// SideBySide lays images out left to right on a dark background, top
// aligned. Nil images are skipped.
func SideBySide(images ...image.Image) *image.RGBA {
	width, height := 0, 0
	n := 0
	for _, img := range images {
		if img == nil {
			continue
		}
		b := img.Bounds()
		if n > 0 {
			width += Gutter
		}
		width += b.Dx()
		height = max(height, b.Dy())
		n++
	}

	out := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(out, out.Bounds(), image.NewUniform(colorutil.Background), image.Point{}, draw.Src)

	x := 0
	for _, img := range images {
		if img == nil {
			continue
		}
		b := img.Bounds()
		draw.Draw(out, image.Rect(x, 0, x+b.Dx(), b.Dy()), img, b.Min, draw.Src)
		x += b.Dx() + Gutter
	}
	return out
}
