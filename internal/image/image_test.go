package image

import (
	"bytes"
	"encoding/binary"
	"errors"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"ballot-converter/internal/election"

	"golang.org/x/image/tiff"
)

func TestLoadTIFF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "card-front.tif")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := tiff.Encode(f, image.NewGray(image.Rect(0, 0, 30, 20)), nil); err != nil {
		t.Fatal(err)
	}
	f.Close()

	scan, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if scan.Side != election.SideFront {
		t.Errorf("Side = %q", scan.Side)
	}
	if scan.DPI != 72 {
		t.Errorf("DPI = %g, want 72", scan.DPI)
	}
	if s := scan.Size(); s.Width != 30 || s.Height != 20 {
		t.Errorf("Size = %+v", s)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.png")); err == nil {
		t.Error("expected error")
	}
}

// bigEndianTIFF builds a minimal TIFF header holding only resolution tags.
func bigEndianTIFF(resolution uint32, unit uint16) []byte {
	var buf bytes.Buffer
	be := binary.BigEndian
	buf.WriteString("MM")
	binary.Write(&buf, be, uint16(42))
	binary.Write(&buf, be, uint32(8))

	binary.Write(&buf, be, uint16(2))
	// XResolution, RATIONAL, count 1, at offset 38.
	binary.Write(&buf, be, []uint16{282, 5})
	binary.Write(&buf, be, []uint32{1, 38})
	// ResolutionUnit, SHORT, count 1, value left-justified.
	binary.Write(&buf, be, []uint16{296, 3})
	binary.Write(&buf, be, uint32(1))
	binary.Write(&buf, be, []uint16{unit, 0})
	binary.Write(&buf, be, uint32(0))

	binary.Write(&buf, be, []uint32{resolution, 1})
	return buf.Bytes()
}

func TestReadTIFFDPI(t *testing.T) {
	dpi, err := ReadTIFFDPI(bytes.NewReader(bigEndianTIFF(100, 3)))
	if err != nil {
		t.Fatalf("ReadTIFFDPI: %v", err)
	}
	if dpi != 254 {
		t.Errorf("dpi = %g, want 254", dpi)
	}

	dpi, err = ReadTIFFDPI(bytes.NewReader(bigEndianTIFF(200, 2)))
	if err != nil || dpi != 200 {
		t.Errorf("dpi = %g, err = %v", dpi, err)
	}

	if _, err := ReadTIFFDPI(bytes.NewReader(bigEndianTIFF(0, 2))); !errors.Is(err, ErrNoResolution) {
		t.Errorf("err = %v, want ErrNoResolution", err)
	}
	if _, err := ReadTIFFDPI(bytes.NewReader([]byte("GIF89a.."))); err == nil {
		t.Error("expected error for non-TIFF")
	}
}

func TestGuessSide(t *testing.T) {
	tests := map[string]election.Side{
		"/tmp/Hooksett-FRONT.png": election.SideFront,
		"card_back.tif":           election.SideBack,
		"template.png":            "",
	}
	for path, want := range tests {
		if got := GuessSide(path); got != want {
			t.Errorf("GuessSide(%q) = %q, want %q", path, got, want)
		}
	}
}

func TestIsSupportedFormat(t *testing.T) {
	if !IsSupportedFormat("a.TIFF") || IsSupportedFormat("a.gif") {
		t.Error("unexpected format support")
	}
}

func TestSideBySide(t *testing.T) {
	a := image.NewGray(image.Rect(0, 0, 10, 20))
	b := image.NewGray(image.Rect(5, 5, 25, 15))
	for i := range b.Pix {
		b.Pix[i] = 255
	}
	out := SideBySide(a, nil, b)
	if out.Bounds().Dx() != 10+Gutter+20 || out.Bounds().Dy() != 20 {
		t.Fatalf("bounds = %v", out.Bounds())
	}
	if got := out.RGBAAt(10+Gutter, 0); got != (color.RGBA{255, 255, 255, 255}) {
		t.Errorf("second image pixel = %v", got)
	}
	if got := out.RGBAAt(10, 0); got != (color.RGBA{40, 40, 40, 255}) {
		t.Errorf("gutter pixel = %v", got)
	}
}
