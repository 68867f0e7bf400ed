package face_test

import (
	"context"
	"errors"
	"image"
	"io"
	"log/slog"
	"testing"

	"github.com/BrandonDHaskell/sentinel/internal/recognize/face"
	"github.com/BrandonDHaskell/sentinel/internal/sentinel/types"
)

func silentLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fixedDetector []image.Rectangle

func (d fixedDetector) Detect(context.Context, image.Image) ([]image.Rectangle, error) {
	return d, nil
}

// distanceByRegion returns a per-region distance keyed on Min.X.
type distanceByRegion map[int]float64

func (c distanceByRegion) Distance(_ context.Context, _ image.Image, r image.Rectangle) (float64, error) {
	if d, ok := c[r.Min.X]; ok {
		return d, nil
	}
	return 500, nil
}

type failingClassifier struct{}

func (failingClassifier) Distance(context.Context, image.Image, image.Rectangle) (float64, error) {
	return 0, errors.New("boom")
}

func frame() types.Frame {
	return types.Frame{Image: image.NewGray(image.Rect(0, 0, 64, 64))}
}

func TestRecognize_PicksMostConfidentLabel(t *testing.T) {
	r := face.New(face.Config{
		Detector: fixedDetector{image.Rect(0, 0, 10, 10)},
		Classifiers: map[string]face.Classifier{
			"Asha": distanceByRegion{0: 30}, // confidence 70
			"ben":  distanceByRegion{0: 20}, // confidence 80
		},
		Logger: silentLogger(),
	})

	cands, err := r.Recognize(context.Background(), frame())
	if err != nil {
		t.Fatalf("Recognize: %v", err)
	}
	if len(cands) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(cands))
	}
	if cands[0].Value != "ben" || cands[0].Confidence != 80 || !cands[0].Eligible {
		t.Errorf("unexpected candidate: %+v", cands[0])
	}
}

func TestRecognize_ThresholdIsExclusive(t *testing.T) {
	r := face.New(face.Config{
		Detector:    fixedDetector{image.Rect(0, 0, 10, 10)},
		Classifiers: map[string]face.Classifier{"asha": distanceByRegion{0: 50}},
		Logger:      silentLogger(),
	})
	cands, _ := r.Recognize(context.Background(), frame())
	if len(cands) != 1 || cands[0].Value != "" || cands[0].Eligible {
		t.Errorf("expected confidence 50 to stay unrecognised, got %+v", cands)
	}
	if cands[0].Region == nil {
		t.Error("expected region to be kept for unrecognised face")
	}
}

func TestRecognize_ValuesComeFromClosedSet(t *testing.T) {
	r := face.New(face.Config{
		Detector: fixedDetector{image.Rect(0, 0, 10, 10), image.Rect(20, 0, 30, 10)},
		Classifiers: map[string]face.Classifier{
			"asha": distanceByRegion{0: 5},
			"ben":  failingClassifier{},
		},
		Logger: silentLogger(),
	})

	labels := map[string]bool{"": true}
	for _, l := range r.Labels() {
		labels[l] = true
	}
	cands, err := r.Recognize(context.Background(), frame())
	if err != nil {
		t.Fatalf("Recognize: %v", err)
	}
	if len(cands) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(cands))
	}
	for _, c := range cands {
		if !labels[c.Value] {
			t.Errorf("candidate value %q is outside the configured labels", c.Value)
		}
	}
	if face.Unknown(cands) != 1 {
		t.Errorf("expected 1 unknown face, got %d", face.Unknown(cands))
	}
}

func TestRecognize_NoDetector(t *testing.T) {
	r := face.New(face.Config{Logger: silentLogger()})
	cands, err := r.Recognize(context.Background(), frame())
	if err != nil || len(cands) != 0 {
		t.Errorf("expected (nil, nil), got (%v, %v)", cands, err)
	}
}

func TestRecognize_NoClassifiersReportsUnknown(t *testing.T) {
	r := face.New(face.Config{
		Detector: fixedDetector{image.Rect(0, 0, 10, 10)},
		Logger:   silentLogger(),
	})
	cands, err := r.Recognize(context.Background(), frame())
	if err != nil {
		t.Fatalf("Recognize: %v", err)
	}
	if len(cands) != 1 || cands[0].Value != "" {
		t.Errorf("expected a single unknown face, got %+v", cands)
	}
}

func TestLabels_Normalised(t *testing.T) {
	r := face.New(face.Config{
		Classifiers: map[string]face.Classifier{" Zed ": failingClassifier{}, "amy": failingClassifier{}},
		Logger:      silentLogger(),
	})
	got := r.Labels()
	if len(got) != 2 || got[0] != "amy" || got[1] != "zed" {
		t.Errorf("expected [amy zed], got %v", got)
	}
}
