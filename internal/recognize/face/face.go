// Package face recognizes people against a closed set of trained labels.
//
// Labels are fixed when the Recognizer is built. A classifier only scores a
// region; it never names one, so the recognizer cannot report a label that
// was not configured.
package face

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"sort"

	"github.com/BrandonDHaskell/sentinel/internal/recognize"
	"github.com/BrandonDHaskell/sentinel/internal/sentinel/types"
)

// DefaultMinConfidence is the confidence a match must exceed.
const DefaultMinConfidence = 50

// Detector locates faces in an image.
type Detector interface {
	Detect(ctx context.Context, img image.Image) ([]image.Rectangle, error)
}

// Classifier scores one face region against a single trained person.
// Lower distance is a closer match.
type Classifier interface {
	Distance(ctx context.Context, img image.Image, region image.Rectangle) (float64, error)
}

type Config struct {
	Detector Detector
	// Classifiers maps each known label to the classifier trained for it.
	Classifiers   map[string]Classifier
	MinConfidence float64
	Logger        *slog.Logger
}

type labelled struct {
	label      string
	classifier Classifier
}

type Recognizer struct {
	detector Detector
	classes  []labelled
	minConf  float64
	logger   *slog.Logger
}

// New builds the face recognizer. Without a detector it reports nothing.
// Without classifiers every detected face comes back unrecognised.
func New(cfg Config) *Recognizer {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.MinConfidence <= 0 {
		cfg.MinConfidence = DefaultMinConfidence
	}

	r := &Recognizer{detector: cfg.Detector, minConf: cfg.MinConfidence, logger: cfg.Logger}
	for label, c := range cfg.Classifiers {
		label = types.NormalizeFaceLabel(label)
		if label == "" || c == nil {
			continue
		}
		r.classes = append(r.classes, labelled{label: label, classifier: c})
	}
	sort.Slice(r.classes, func(i, j int) bool { return r.classes[i].label < r.classes[j].label })

	switch {
	case r.detector == nil:
		r.logger.Error("face recognizer disabled: no detector loaded")
	case len(r.classes) == 0:
		r.logger.Warn("face recognizer has no classifiers; faces will be reported as unknown")
	default:
		r.logger.Info("face recognizer ready", "labels", r.Labels())
	}
	return r
}

// Labels returns the closed set of labels this recognizer can report.
func (r *Recognizer) Labels() []string {
	out := make([]string, len(r.classes))
	for i, c := range r.classes {
		out[i] = c.label
	}
	return out
}

// Recognize returns one candidate per detected face. Recognised faces
// carry their label and are eligible; the rest have an empty value.
func (r *Recognizer) Recognize(ctx context.Context, frame types.Frame) ([]types.Candidate, error) {
	if r.detector == nil || frame.Image == nil {
		return nil, nil
	}

	regions, err := r.detector.Detect(ctx, frame.Image)
	if err != nil {
		return nil, fmt.Errorf("detect faces: %w", err)
	}

	cands := make([]types.Candidate, 0, len(regions))
	for _, region := range regions {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		label, conf := r.match(ctx, frame.Image, region)
		box := region
		c := types.Candidate{Channel: types.ChannelFace, Confidence: conf, Region: &box}
		if label != "" {
			c.Value = label
			c.Eligible = true
		}
		cands = append(cands, c)
	}
	return cands, nil
}

// match scores region against every classifier and keeps the most
// confident one. It returns an empty label when none exceeds the threshold.
func (r *Recognizer) match(ctx context.Context, img image.Image, region image.Rectangle) (string, float64) {
	var (
		bestLabel string
		bestConf  float64
	)
	for _, c := range r.classes {
		dist, err := c.classifier.Distance(ctx, img, region)
		if err != nil {
			r.logger.Warn("face classifier failed", "label", c.label, "error", err)
			continue
		}
		conf := recognize.ClampConfidence(100 - dist)
		if conf > bestConf {
			bestLabel, bestConf = c.label, conf
		}
	}
	if bestConf > r.minConf {
		return bestLabel, bestConf
	}
	return "", bestConf
}

// Unknown counts candidates for faces no classifier recognised.
func Unknown(cands []types.Candidate) int {
	n := 0
	for _, c := range cands {
		if c.Channel == types.ChannelFace && c.Value == "" {
			n++
		}
	}
	return n
}
