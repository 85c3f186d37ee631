package detect

import (
	"fmt"
	"image"
	"image/color"
	"runtime"
	"sync"

	"gocv.io/x/gocv"
)

// grayMat converts an image to a single-channel 8-bit Mat, one stripe of
// rows per worker.
func grayMat(img image.Image) (gocv.Mat, error) {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width == 0 || height == 0 {
		return gocv.Mat{}, fmt.Errorf("empty image")
	}

	mat := gocv.NewMatWithSize(height, width, gocv.MatTypeCV8U)

	numWorkers := runtime.NumCPU()
	rowsPerWorker := (height + numWorkers - 1) / numWorkers

	var wg sync.WaitGroup
	for w := 0; w < numWorkers; w++ {
		startY := w * rowsPerWorker
		endY := min(startY+rowsPerWorker, height)
		if startY >= height {
			break
		}

		wg.Add(1)
		go func(yStart, yEnd int) {
			defer wg.Done()
			for y := yStart; y < yEnd; y++ {
				for x := 0; x < width; x++ {
					g := color.GrayModel.Convert(img.At(x+bounds.Min.X, y+bounds.Min.Y)).(color.Gray)
					mat.SetUCharAt(y, x, g.Y)
				}
			}
		}(startY, endY)
	}
	wg.Wait()

	return mat, nil
}
