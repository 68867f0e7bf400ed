// Package preprocess enhances frames before plate OCR.
//
// Stages operate on grayscale images stored as *image.NRGBA with R=G=B,
// anchored at the origin. That is what imaging returns, so imaging filters
// compose without conversions. The OpenCV stages (CLAHE, closing) live in
// preprocess/cvstages.
package preprocess

import (
	"fmt"
	"image"
	"log/slog"

	"github.com/disintegration/imaging"
)

// Stage is one step of the enhancement pipeline.
type Stage struct {
	Name  string
	Apply func(*image.NRGBA) (*image.NRGBA, error)
}

var sharpenKernel = [9]float64{
	-1, -1, -1,
	-1, 9, -1,
	-1, -1, -1,
}

// Blur is a light gaussian blur that knocks down sensor noise.
var Blur = Stage{Name: "blur", Apply: func(img *image.NRGBA) (*image.NRGBA, error) {
	return imaging.Blur(img, 0.8), nil
}}

var Sharpen = Stage{Name: "sharpen", Apply: func(img *image.NRGBA) (*image.NRGBA, error) {
	return imaging.Convolve3x3(img, sharpenKernel, nil), nil
}}

// DefaultStages is the pure-Go part of the plate chain.
func DefaultStages() []Stage {
	return []Stage{Blur, Sharpen}
}

type Pipeline struct {
	stages []Stage
	logger *slog.Logger
}

func New(logger *slog.Logger, stages ...Stage) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	if len(stages) == 0 {
		stages = DefaultStages()
	}
	return &Pipeline{stages: stages, logger: logger}
}

// Enhance runs the pipeline on img. The result has the same dimensions as
// the input. If any stage fails the original image is returned.
func (p *Pipeline) Enhance(img image.Image) image.Image {
	if img == nil || img.Bounds().Empty() {
		return img
	}
	out, err := p.run(img)
	if err != nil {
		p.logger.Warn("preprocess failed, using original frame", "error", err)
		return img
	}
	return out
}

func (p *Pipeline) run(img image.Image) (out *image.NRGBA, err error) {
	stage := "grayscale"
	defer func() {
		if r := recover(); r != nil {
			out, err = nil, fmt.Errorf("stage %s: %v", stage, r)
		}
	}()

	want := img.Bounds().Size()
	cur := imaging.Grayscale(img)
	for _, s := range p.stages {
		stage = s.Name
		cur, err = s.Apply(cur)
		if err != nil {
			return nil, fmt.Errorf("stage %s: %w", s.Name, err)
		}
		if cur == nil || cur.Bounds().Size() != want {
			return nil, fmt.Errorf("stage %s: unexpected output", s.Name)
		}
	}
	return cur, nil
}

// FitWidth downscales img so it is at most maxWidth wide, keeping the
// aspect ratio. Narrower images are returned as is.
func FitWidth(img image.Image, maxWidth int) image.Image {
	if maxWidth <= 0 || img.Bounds().Dx() <= maxWidth {
		return img
	}
	return imaging.Resize(img, maxWidth, 0, imaging.Linear)
}
