package detect

import (
	"image"

	"ballot-converter/pkg/colorutil"
)

// DefaultOvalTemplate draws a printed oval outline of the given pixel
// size: a dark elliptical ring on white, stroke about a tenth of the
// smaller dimension.
func DefaultOvalTemplate(width, height int) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, width, height))
	a, b := float64(width)/2, float64(height)/2
	stroke := max(min(a, b)/5, 1)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			dx, dy := float64(x)+0.5-a, float64(y)+0.5-b
			outer := dx*dx/(a*a) + dy*dy/(b*b)
			ia, ib := a-stroke, b-stroke
			inner := 2.0
			if ia > 0 && ib > 0 {
				inner = dx*dx/(ia*ia) + dy*dy/(ib*ib)
			}
			if outer <= 1 && inner >= 1 {
				img.SetGray(x, y, colorutil.Ink)
			} else {
				img.SetGray(x, y, colorutil.Paper)
			}
		}
	}
	return img
}
