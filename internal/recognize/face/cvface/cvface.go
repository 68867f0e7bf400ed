// Package cvface backs the face recognizer with OpenCV: a Haar cascade for
// detection and one LBPH model per known person.
//
// It needs cgo and an OpenCV install, so only the server binary imports it.
package cvface

import (
	"context"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gocv.io/x/gocv"
	"gocv.io/x/gocv/contrib"

	"github.com/BrandonDHaskell/sentinel/internal/recognize/face"
)

// ClassifierSuffix names per-person LBPH model files: <label>_classifier.xml.
const ClassifierSuffix = "_classifier.xml"

// Detector finds faces with a Haar cascade. CascadeClassifier is not safe
// for concurrent use, so calls are serialised.
type Detector struct {
	mu      sync.Mutex
	cascade gocv.CascadeClassifier
}

func OpenDetector(cascadePath string) (*Detector, error) {
	if _, err := os.Stat(cascadePath); err != nil {
		return nil, fmt.Errorf("face cascade: %w", err)
	}
	cascade := gocv.NewCascadeClassifier()
	if !cascade.Load(cascadePath) {
		cascade.Close()
		return nil, fmt.Errorf("face cascade: failed to load %s", cascadePath)
	}
	return &Detector{cascade: cascade}, nil
}

func (d *Detector) Detect(ctx context.Context, img image.Image) ([]image.Rectangle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	gray, err := grayMat(img)
	if err != nil {
		return nil, err
	}
	defer gray.Close()

	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cascade.DetectMultiScaleWithParams(gray, 1.3, 5, 0, image.Point{}, image.Point{}), nil
}

func (d *Detector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cascade.Close()
}

// lbph scores a face region against one person's trained model.
type lbph struct {
	mu  sync.Mutex
	rec *contrib.LBPHFaceRecognizer
}

func (c *lbph) Distance(ctx context.Context, img image.Image, region image.Rectangle) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	region = region.Intersect(img.Bounds())
	if region.Empty() {
		return 0, fmt.Errorf("face region outside frame")
	}
	sub, ok := img.(interface {
		SubImage(image.Rectangle) image.Image
	})
	if !ok {
		return 0, fmt.Errorf("image type %T does not support sub-images", img)
	}
	gray, err := grayMat(sub.SubImage(region))
	if err != nil {
		return 0, err
	}
	defer gray.Close()

	c.mu.Lock()
	defer c.mu.Unlock()
	resp := c.rec.PredictExtendedResponse(gray)
	return float64(resp.Confidence), nil
}

// LoadClassifiers reads every <label>_classifier.xml in dir. A missing
// directory yields no classifiers and no error.
func LoadClassifiers(dir string) (map[string]face.Classifier, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read classifier dir: %w", err)
	}

	out := make(map[string]face.Classifier)
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ClassifierSuffix) {
			continue
		}
		label := strings.TrimSuffix(name, ClassifierSuffix)
		rec := contrib.NewLBPHFaceRecognizer()
		rec.LoadFile(filepath.Join(dir, name))
		out[label] = &lbph{rec: rec}
	}
	return out, nil
}

func grayMat(img image.Image) (gocv.Mat, error) {
	src, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return gocv.Mat{}, fmt.Errorf("image to mat: %w", err)
	}
	defer src.Close()

	gray := gocv.NewMat()
	gocv.CvtColor(src, &gray, gocv.ColorBGRToGray)
	return gray, nil
}
