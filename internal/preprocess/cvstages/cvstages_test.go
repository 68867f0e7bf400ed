package cvstages_test

import (
	"image"
	"image/color"
	"io"
	"log/slog"
	"testing"

	"github.com/BrandonDHaskell/sentinel/internal/preprocess"
	"github.com/BrandonDHaskell/sentinel/internal/preprocess/cvstages"
)

func grayNRGBA(w, h int, fill func(x, y int) uint8) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := fill(x, y)
			i := img.PixOffset(x, y)
			img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = v, v, v, 255
		}
	}
	return img
}

func apply(t *testing.T, s preprocess.Stage, in *image.NRGBA) *image.NRGBA {
	t.Helper()
	out, err := s.Apply(in)
	if err != nil {
		t.Fatalf("%s: %v", s.Name, err)
	}
	if out.Bounds().Size() != in.Bounds().Size() {
		t.Fatalf("%s: expected %v, got %v", s.Name, in.Bounds().Size(), out.Bounds().Size())
	}
	return out
}

func TestCLAHE_StretchesFlatContrast(t *testing.T) {
	// Low-contrast band between 100 and 110.
	in := grayNRGBA(256, 256, func(x, _ int) uint8 { return uint8(100 + x%11) })
	out := apply(t, cvstages.CLAHE(3.0, 8), in)

	lo, hi := uint8(255), uint8(0)
	for i := 0; i < len(out.Pix); i += 4 {
		lo, hi = min(lo, out.Pix[i]), max(hi, out.Pix[i])
	}
	if int(hi)-int(lo) <= 10 {
		t.Errorf("expected contrast to widen beyond 10, got range %d..%d", lo, hi)
	}
}

func TestCLAHE_UniformStaysUniform(t *testing.T) {
	out := apply(t, cvstages.CLAHE(3.0, 8), grayNRGBA(64, 64, func(int, int) uint8 { return 90 }))
	first := out.Pix[0]
	for i := 0; i < len(out.Pix); i += 4 {
		if out.Pix[i] != first {
			t.Fatalf("expected uniform output, got %d and %d", first, out.Pix[i])
		}
	}
}

func TestClose3x3_FillsSmallHole(t *testing.T) {
	in := grayNRGBA(5, 5, func(x, y int) uint8 {
		if x == 2 && y == 2 {
			return 0
		}
		return 200
	})
	out := apply(t, cvstages.Close3x3(), in)
	if v := out.Pix[out.PixOffset(2, 2)]; v != 200 {
		t.Errorf("expected the single dark pixel to be closed to 200, got %d", v)
	}
}

func TestPlate_EnhancePreservesDimensions(t *testing.T) {
	p := preprocess.New(slog.New(slog.NewTextHandler(io.Discard, nil)), cvstages.Plate()...)
	for _, sz := range []image.Point{{64, 48}, {101, 37}} {
		in := image.NewRGBA(image.Rect(0, 0, sz.X, sz.Y))
		for y := 0; y < sz.Y; y++ {
			for x := 0; x < sz.X; x++ {
				in.Set(x, y, color.Gray{Y: uint8(x * 255 / sz.X)})
			}
		}
		out := p.Enhance(in)
		if out == image.Image(in) {
			t.Fatalf("size %v: enhancement fell back to the input", sz)
		}
		if out.Bounds().Size() != sz {
			t.Errorf("size %v: got %v", sz, out.Bounds().Size())
		}
	}
}
