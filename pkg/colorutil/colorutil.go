// Package colorutil holds the colors shared by template rendering and the
// detection overlays.
package colorutil

import "image/color"

// Template colors.
var (
	Ink   = color.Gray{Y: 0}
	Paper = color.Gray{Y: 255}
)

// Overlay colors.
var (
	Detected     = color.RGBA{R: 0, G: 200, B: 0, A: 255}
	Interpolated = color.RGBA{R: 255, G: 140, B: 0, A: 255}
	Oval         = color.RGBA{R: 0, G: 90, B: 255, A: 255}
	Background   = color.RGBA{R: 40, G: 40, B: 40, A: 255}
)

