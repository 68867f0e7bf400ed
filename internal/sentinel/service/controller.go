package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/BrandonDHaskell/sentinel/internal/sentinel/types"
	"github.com/BrandonDHaskell/sentinel/internal/stream"
)

// StreamController owns the camera lifecycle and the detection switch.
// It is Stopped or Running, and independently has detection enabled or
// disabled. Detection starts enabled.
type StreamController struct {
	base   context.Context
	engine *Engine
	open   stream.Opener
	logger *slog.Logger

	detection atomic.Bool

	mu        sync.Mutex
	running   bool
	starting  bool
	startedAt time.Time
	cancel    context.CancelFunc
	done      chan struct{}
	lastErr   error
}

// NewStreamController returns a stopped controller. Runs started later are
// bound to base, not to the context passed to Start.
func NewStreamController(base context.Context, engine *Engine, open stream.Opener, logger *slog.Logger) *StreamController {
	if logger == nil {
		logger = slog.Default()
	}
	c := &StreamController{base: base, engine: engine, open: open, logger: logger}
	c.detection.Store(true)
	return c
}

// Start opens the frame source and runs the engine on it in the
// background. ctx bounds only the open, which happens outside the lock so
// Status stays responsive while camera devices are tried.
func (c *StreamController) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.running || c.starting {
		c.mu.Unlock()
		return ErrAlreadyRunning
	}
	c.starting = true
	c.mu.Unlock()

	src, err := c.open(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.starting = false
	if err != nil {
		c.logger.Error("camera open failed", "error", err)
		return fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}

	c.engine.ResetChannels()

	runCtx, cancel := context.WithCancel(c.base)
	done := make(chan struct{})
	c.running = true
	c.startedAt = time.Now().UTC()
	c.cancel = cancel
	c.done = done
	c.lastErr = nil

	go c.run(runCtx, cancel, src, done)

	c.logger.Info("camera started")
	return nil
}

func (c *StreamController) run(ctx context.Context, cancel context.CancelFunc, src stream.Source, done chan struct{}) {
	defer close(done)

	err := c.engine.Run(ctx, src, c)
	if cerr := src.Close(); cerr != nil {
		c.logger.Warn("camera close failed", "error", cerr)
	}
	cancel()

	c.mu.Lock()
	c.running = false
	c.lastErr = err
	c.mu.Unlock()

	if err != nil {
		c.logger.Error("camera stopped", "error", err)
		return
	}
	c.logger.Info("camera stopped")
}

// Stop cancels the running stream, waits for in-flight recognizer calls to
// drain and releases the source.
func (c *StreamController) Stop() error {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return ErrNotRunning
	}
	cancel, done := c.cancel, c.done
	c.mu.Unlock()

	cancel()
	<-done
	return nil
}

// Wait blocks until the current run, if any, has finished.
func (c *StreamController) Wait() {
	c.mu.Lock()
	done := c.done
	c.mu.Unlock()
	if done != nil {
		<-done
	}
}

func (c *StreamController) SetDetection(enabled bool) {
	if c.detection.Swap(enabled) != enabled {
		c.logger.Info("detection toggled", "enabled", enabled)
	}
}

// ToggleDetection flips the detection switch and returns the new state.
func (c *StreamController) ToggleDetection() bool {
	for {
		cur := c.detection.Load()
		if c.detection.CompareAndSwap(cur, !cur) {
			c.logger.Info("detection toggled", "enabled", !cur)
			return !cur
		}
	}
}

func (c *StreamController) DetectionEnabled() bool {
	return c.detection.Load()
}

func (c *StreamController) Status() types.CameraStatus {
	c.mu.Lock()
	running, starting, startedAt, lastErr := c.running, c.starting, c.startedAt, c.lastErr
	c.mu.Unlock()

	st := c.engine.Stats()
	out := types.CameraStatus{
		Running:          running,
		Starting:         starting,
		DetectionEnabled: c.DetectionEnabled(),
		FramesRead:       st.FramesRead,
		FramesSampled:    st.FramesSampled,
		SamplesSkipped:   st.SamplesSkipped,
	}
	if running {
		out.StartedAt = startedAt.Format(time.RFC3339)
	}
	if lastErr != nil {
		out.Message = lastErr.Error()
	}
	return out
}
