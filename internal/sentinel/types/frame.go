package types

import (
	"image"
	"time"
)

// Frame is a single decoded image from a frame source.
type Frame struct {
	Seq       uint64
	Timestamp time.Time
	Image     image.Image
	TraceID   string
}

// Candidate is one recognizer output for a frame.
//
// Eligible is set when the candidate cleared its channel's acceptance
// threshold. LowConfidence marks the single best candidate surfaced when
// nothing cleared the threshold; such candidates never drive decisions.
type Candidate struct {
	Channel       Channel
	Value         string
	Confidence    float64
	Eligible      bool
	LowConfidence bool
	Region        *image.Rectangle
}
