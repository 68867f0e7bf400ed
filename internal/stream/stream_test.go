package stream_test

import (
	"context"
	"errors"
	"image"
	"testing"
	"time"

	"github.com/BrandonDHaskell/sentinel/internal/stream"
)

func images(n int) []image.Image {
	out := make([]image.Image, n)
	for i := range out {
		out[i] = image.NewGray(image.Rect(0, 0, 4, 4))
	}
	return out
}

func TestSliceSource_SequenceAndEnd(t *testing.T) {
	src := stream.NewSliceSource(images(3), 0)
	ctx := context.Background()

	for want := uint64(1); want <= 3; want++ {
		f, err := src.Next(ctx)
		if err != nil {
			t.Fatalf("Next %d: %v", want, err)
		}
		if f.Seq != want {
			t.Errorf("expected seq %d, got %d", want, f.Seq)
		}
		if f.TraceID == "" || f.Timestamp.IsZero() {
			t.Errorf("expected trace id and timestamp on frame %d", want)
		}
	}
	if _, err := src.Next(ctx); !errors.Is(err, stream.ErrEndOfStream) {
		t.Errorf("expected ErrEndOfStream, got %v", err)
	}
}

func TestSliceSource_Close(t *testing.T) {
	src := stream.NewSliceSource(images(3), 0)
	_ = src.Close()
	if _, err := src.Next(context.Background()); !errors.Is(err, stream.ErrEndOfStream) {
		t.Errorf("expected ErrEndOfStream after Close, got %v", err)
	}
}

func TestSliceSource_CancelDuringPacing(t *testing.T) {
	src := stream.NewSliceSource(images(2), time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	if _, err := src.Next(ctx); err != nil {
		t.Fatalf("first Next: %v", err)
	}
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	if _, err := src.Next(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestSequencer_Monotonic(t *testing.T) {
	var s stream.Sequencer
	a := s.Stamp(nil)
	b := s.Stamp(nil)
	if b.Seq != a.Seq+1 {
		t.Errorf("expected consecutive sequence numbers, got %d then %d", a.Seq, b.Seq)
	}
	if a.TraceID == b.TraceID {
		t.Error("expected distinct trace ids")
	}
}
