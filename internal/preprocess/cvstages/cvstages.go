// Package cvstages provides the OpenCV-backed plate enhancement stages:
// contrast-limited adaptive histogram equalisation and a 3x3 closing.
//
// Like cvface it needs cgo and an OpenCV install, so only the server binary
// imports it.
package cvstages

import (
	"fmt"
	"image"

	"github.com/disintegration/imaging"
	"gocv.io/x/gocv"

	"github.com/BrandonDHaskell/sentinel/internal/preprocess"
)

// CLAHE equalises local contrast over a grid x grid tiling. clipLimit is
// relative to the uniform bin height.
func CLAHE(clipLimit float64, grid int) preprocess.Stage {
	return preprocess.Stage{Name: "clahe", Apply: func(img *image.NRGBA) (*image.NRGBA, error) {
		return withGray(img, func(src gocv.Mat, dst *gocv.Mat) {
			clahe := gocv.NewCLAHEWithParams(clipLimit, image.Pt(grid, grid))
			defer clahe.Close()
			clahe.Apply(src, dst)
		})
	}}
}

// Close3x3 is a morphological closing with a 3x3 rectangular element. It
// joins broken character strokes.
func Close3x3() preprocess.Stage {
	return preprocess.Stage{Name: "close", Apply: func(img *image.NRGBA) (*image.NRGBA, error) {
		return withGray(img, func(src gocv.Mat, dst *gocv.Mat) {
			kernel := gocv.GetStructuringElement(gocv.MorphRect, image.Pt(3, 3))
			defer kernel.Close()
			gocv.MorphologyEx(src, dst, gocv.MorphClose, kernel)
		})
	}}
}

// Plate is the full plate enhancement chain: CLAHE, blur, sharpen, close.
func Plate() []preprocess.Stage {
	return []preprocess.Stage{
		CLAHE(3.0, 8),
		preprocess.Blur,
		preprocess.Sharpen,
		Close3x3(),
	}
}

// withGray runs op on a single-channel Mat built from img's red plane and
// converts the result back.
func withGray(img *image.NRGBA, op func(src gocv.Mat, dst *gocv.Mat)) (*image.NRGBA, error) {
	b := img.Bounds()
	gray := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			gray.Pix[gray.PixOffset(x, y)] = img.Pix[img.PixOffset(b.Min.X+x, b.Min.Y+y)]
		}
	}

	src, err := gocv.ImageGrayToMatGray(gray)
	if err != nil {
		return nil, fmt.Errorf("image to mat: %w", err)
	}
	defer src.Close()

	dst := gocv.NewMat()
	defer dst.Close()
	op(src, &dst)
	if dst.Empty() {
		return nil, fmt.Errorf("empty result")
	}

	out, err := dst.ToImage()
	if err != nil {
		return nil, fmt.Errorf("mat to image: %w", err)
	}
	return imaging.Clone(out), nil
}
