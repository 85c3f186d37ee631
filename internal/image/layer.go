// Package image loads template scans and lays out debug images.
package image

import (
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"ballot-converter/internal/election"
	"ballot-converter/pkg/geometry"

	_ "golang.org/x/image/tiff"
)

// ErrNoResolution is returned when a TIFF carries no resolution tags.
var ErrNoResolution = errors.New("no resolution tags found")

// Scan is a template image loaded from disk.
type Scan struct {
	Path  string
	Image image.Image
	Side  election.Side // guessed from the file name, empty when unknown
	DPI   float64       // from TIFF metadata, zero when unknown
}

// Load decodes a PNG, JPEG or TIFF template.
func Load(path string) (*Scan, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image %s: %w", path, err)
	}

	scan := &Scan{Path: path, Image: img, Side: GuessSide(path)}

	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".tiff" || ext == ".tif" {
		if _, err := file.Seek(0, io.SeekStart); err == nil {
			if dpi, err := ReadTIFFDPI(file); err == nil {
				scan.DPI = dpi
			}
		}
	}
	return scan, nil
}

// Size returns the image dimensions in pixels.
func (s *Scan) Size() geometry.Size {
	if s.Image == nil {
		return geometry.Size{}
	}
	b := s.Image.Bounds()
	return geometry.Size{Width: float64(b.Dx()), Height: float64(b.Dy())}
}

// GuessSide infers the card side from a file name.
func GuessSide(path string) election.Side {
	base := strings.ToLower(filepath.Base(path))
	for _, kw := range []string{"front", "recto"} {
		if strings.Contains(base, kw) {
			return election.SideFront
		}
	}
	for _, kw := range []string{"back", "verso"} {
		if strings.Contains(base, kw) {
			return election.SideBack
		}
	}
	return ""
}

// ReadTIFFDPI reads the horizontal resolution from the first IFD of a
// TIFF stream, falling back to the vertical one.
func ReadTIFFDPI(r io.ReadSeeker) (float64, error) {
	header := make([]byte, 8)
	if _, err := io.ReadFull(r, header); err != nil {
		return 0, err
	}

	var byteOrder binary.ByteOrder
	switch {
	case header[0] == 'I' && header[1] == 'I':
		byteOrder = binary.LittleEndian
	case header[0] == 'M' && header[1] == 'M':
		byteOrder = binary.BigEndian
	default:
		return 0, fmt.Errorf("not a valid TIFF file")
	}

	ifdOffset := byteOrder.Uint32(header[4:8])
	if _, err := r.Seek(int64(ifdOffset), io.SeekStart); err != nil {
		return 0, err
	}

	var numEntries uint16
	if err := binary.Read(r, byteOrder, &numEntries); err != nil {
		return 0, err
	}

	entries := make([]byte, 12*int(numEntries))
	if _, err := io.ReadFull(r, entries); err != nil {
		return 0, err
	}

	var xRes, yRes float64
	var resUnit uint16 = 2 // inches
	for i := 0; i < int(numEntries); i++ {
		entry := entries[i*12 : (i+1)*12]
		tag := byteOrder.Uint16(entry[0:2])
		fieldType := byteOrder.Uint16(entry[2:4])
		valueOffset := byteOrder.Uint32(entry[8:12])

		switch tag {
		case 282: // XResolution
			if fieldType == 5 {
				xRes = readTIFFRational(r, int64(valueOffset), byteOrder)
			}
		case 283: // YResolution
			if fieldType == 5 {
				yRes = readTIFFRational(r, int64(valueOffset), byteOrder)
			}
		case 296: // ResolutionUnit
			if fieldType == 3 {
				resUnit = byteOrder.Uint16(entry[8:10])
			}
		}
	}

	dpi := xRes
	if dpi == 0 {
		dpi = yRes
	}
	if dpi == 0 {
		return 0, ErrNoResolution
	}
	if resUnit == 3 {
		dpi *= 2.54
	}
	return dpi, nil
}

// readTIFFRational reads a RATIONAL (two uint32s) at offset.
func readTIFFRational(r io.ReadSeeker, offset int64, byteOrder binary.ByteOrder) float64 {
	if _, err := r.Seek(offset, io.SeekStart); err != nil {
		return 0
	}
	var num, denom uint32
	if binary.Read(r, byteOrder, &num) != nil || binary.Read(r, byteOrder, &denom) != nil || denom == 0 {
		return 0
	}
	return float64(num) / float64(denom)
}

// SupportedFormats returns the template file extensions Load accepts.
func SupportedFormats() []string {
	return []string{".tiff", ".tif", ".png", ".jpg", ".jpeg"}
}

// IsSupportedFormat checks the extension of path.
func IsSupportedFormat(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, format := range SupportedFormats() {
		if ext == format {
			return true
		}
	}
	return false
}
