// Package recognize defines the recognizer contract shared by the plate
// and face pipelines.
package recognize

import (
	"context"
	"errors"

	"github.com/BrandonDHaskell/sentinel/internal/sentinel/types"
)

// ErrUnavailable is returned when a recognizer's backing engine or model
// artifacts are missing.
var ErrUnavailable = errors.New("recognizer unavailable")

// Recognizer turns a frame into zero or more candidates. Implementations
// must honour ctx cancellation and never return candidates with values
// outside their own closed set.
type Recognizer interface {
	Recognize(ctx context.Context, frame types.Frame) ([]types.Candidate, error)
}

// Func adapts a function to Recognizer.
type Func func(ctx context.Context, frame types.Frame) ([]types.Candidate, error)

func (f Func) Recognize(ctx context.Context, frame types.Frame) ([]types.Candidate, error) {
	return f(ctx, frame)
}

// Disabled never produces candidates.
type Disabled struct{}

func (Disabled) Recognize(context.Context, types.Frame) ([]types.Candidate, error) {
	return nil, nil
}

// Best returns the highest-confidence eligible candidate with a non-empty
// value. Ties keep the first one seen.
func Best(cands []types.Candidate) (types.Candidate, bool) {
	var (
		best  types.Candidate
		found bool
	)
	for _, c := range cands {
		if !c.Eligible || c.Value == "" {
			continue
		}
		if !found || c.Confidence > best.Confidence {
			best, found = c, true
		}
	}
	return best, found
}

// ClampConfidence bounds v to [0, 100].
func ClampConfidence(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 100:
		return 100
	}
	return v
}
