// Package cvcapture reads frames from a local camera through OpenCV.
package cvcapture

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"gocv.io/x/gocv"

	"github.com/BrandonDHaskell/sentinel/internal/preprocess"
	"github.com/BrandonDHaskell/sentinel/internal/sentinel/types"
	"github.com/BrandonDHaskell/sentinel/internal/stream"
)

type Config struct {
	// Devices are tried in order; the first that opens and yields a frame
	// is used.
	Devices  []int
	MaxWidth int
	// MaxReadFailures is how many consecutive empty reads end the stream.
	MaxReadFailures int
	Logger          *slog.Logger
}

type Source struct {
	vc       *gocv.VideoCapture
	mat      gocv.Mat
	device   int
	maxWidth int
	maxFails int
	fails    int
	seq      stream.Sequencer
	logger   *slog.Logger
}

// Opener returns a stream.Opener bound to cfg.
func Opener(cfg Config) stream.Opener {
	return func(ctx context.Context) (stream.Source, error) {
		return Open(ctx, cfg)
	}
}

func Open(ctx context.Context, cfg Config) (*Source, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if len(cfg.Devices) == 0 {
		cfg.Devices = []int{0, 1, 2}
	}
	if cfg.MaxWidth <= 0 {
		cfg.MaxWidth = 640
	}
	if cfg.MaxReadFailures <= 0 {
		cfg.MaxReadFailures = 30
	}

	for _, dev := range cfg.Devices {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		vc, err := gocv.OpenVideoCapture(dev)
		if err != nil {
			cfg.Logger.Debug("camera open failed", "device", dev, "error", err)
			continue
		}
		vc.Set(gocv.VideoCaptureFrameWidth, float64(cfg.MaxWidth))
		vc.Set(gocv.VideoCaptureFPS, 30)

		mat := gocv.NewMat()
		if ok := vc.Read(&mat); !ok || mat.Empty() {
			mat.Close()
			vc.Close()
			cfg.Logger.Debug("camera yielded no frame", "device", dev)
			continue
		}
		cfg.Logger.Info("camera opened", "device", dev)
		return &Source{
			vc:       vc,
			mat:      mat,
			device:   dev,
			maxWidth: cfg.MaxWidth,
			maxFails: cfg.MaxReadFailures,
			logger:   cfg.Logger,
		}, nil
	}
	return nil, fmt.Errorf("no camera available on devices %v", cfg.Devices)
}

func (s *Source) Next(ctx context.Context) (types.Frame, error) {
	for {
		if err := ctx.Err(); err != nil {
			return types.Frame{}, err
		}
		if ok := s.vc.Read(&s.mat); !ok || s.mat.Empty() {
			s.fails++
			if s.fails >= s.maxFails {
				return types.Frame{}, fmt.Errorf("camera %d: %d consecutive failed reads: %w", s.device, s.fails, stream.ErrEndOfStream)
			}
			time.Sleep(33 * time.Millisecond)
			continue
		}
		s.fails = 0

		img, err := s.mat.ToImage()
		if err != nil {
			s.logger.Warn("frame conversion failed", "device", s.device, "error", err)
			continue
		}
		return s.seq.Stamp(preprocess.FitWidth(img, s.maxWidth)), nil
	}
}

func (s *Source) Close() error {
	s.mat.Close()
	return s.vc.Close()
}
