// Package stream supplies frames to the detection engine.
package stream

import (
	"context"
	"errors"
	"image"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/BrandonDHaskell/sentinel/internal/sentinel/types"
)

// ErrEndOfStream is returned by Next once a finite source is exhausted.
var ErrEndOfStream = errors.New("end of stream")

// Source yields frames in order. Next blocks until a frame is available,
// the source ends, or ctx is done.
type Source interface {
	Next(ctx context.Context) (types.Frame, error)
	Close() error
}

// Opener opens a fresh Source. The stream controller calls it on every
// start.
type Opener func(ctx context.Context) (Source, error)

// Sequencer stamps images into frames with a monotonically increasing
// sequence number starting at 1.
type Sequencer struct {
	seq atomic.Uint64
}

func (s *Sequencer) Stamp(img image.Image) types.Frame {
	return types.Frame{
		Seq:       s.seq.Add(1),
		Timestamp: time.Now().UTC(),
		Image:     img,
		TraceID:   uuid.NewString(),
	}
}

// SliceSource replays a fixed list of images, optionally paced.
type SliceSource struct {
	images   []image.Image
	interval time.Duration
	pos      int
	seq      Sequencer
	closed   atomic.Bool
}

func NewSliceSource(images []image.Image, interval time.Duration) *SliceSource {
	return &SliceSource{images: images, interval: interval}
}

func (s *SliceSource) Next(ctx context.Context) (types.Frame, error) {
	if err := ctx.Err(); err != nil {
		return types.Frame{}, err
	}
	if s.closed.Load() || s.pos >= len(s.images) {
		return types.Frame{}, ErrEndOfStream
	}
	if s.interval > 0 && s.pos > 0 {
		t := time.NewTimer(s.interval)
		select {
		case <-ctx.Done():
			t.Stop()
			return types.Frame{}, ctx.Err()
		case <-t.C:
		}
	}
	img := s.images[s.pos]
	s.pos++
	return s.seq.Stamp(img), nil
}

func (s *SliceSource) Close() error {
	s.closed.Store(true)
	return nil
}
