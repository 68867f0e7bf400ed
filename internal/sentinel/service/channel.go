package service

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/BrandonDHaskell/sentinel/internal/recognize"
	"github.com/BrandonDHaskell/sentinel/internal/sentinel/types"
)

// channel is one frame-sampled detection pipeline. busy is taken by the
// dispatcher and released only when the recognizer call itself returns, so
// an abandoned call still occupies the channel and at most one call is ever
// outstanding. It also makes the debouncer single-writer.
type channel struct {
	name       types.Channel
	recognizer recognize.Recognizer
	timeout    time.Duration
	debounce   *Debouncer
	busy       atomic.Bool

	// observe sees every frame's raw candidates before debouncing.
	observe func(ctx context.Context, frame types.Frame, cands []types.Candidate)
}

func newChannel(name types.Channel, cfg ChannelConfig) *channel {
	return &channel{
		name:       name,
		recognizer: cfg.Recognizer,
		timeout:    cfg.Timeout,
		debounce:   NewDebouncer(cfg.Debounce),
	}
}

type recognition struct {
	cands []types.Candidate
	err   error
}

// acquire claims the channel for one recognizer call.
func (c *channel) acquire() bool {
	return c.busy.CompareAndSwap(false, true)
}

// recognize calls the recognizer under the channel timeout. The caller must
// hold the channel via acquire; it is released when the recognizer returns,
// which for an abandoned call may be long after recognize has. A call that
// outlives the timeout has its result discarded.
func (c *channel) recognize(ctx context.Context, frame types.Frame) ([]types.Candidate, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	done := make(chan recognition, 1)
	go func() {
		cands, err := c.recognizer.Recognize(callCtx, frame)
		c.busy.Store(false)
		done <- recognition{cands: cands, err: err}
	}()

	select {
	case r := <-done:
		if r.err == nil && callCtx.Err() != nil {
			return nil, callCtx.Err()
		}
		return r.cands, r.err
	case <-callCtx.Done():
		return nil, callCtx.Err()
	}
}

// cadence fires on every n-th tick.
type cadence struct {
	every int
	n     int
}

func (c *cadence) tick() bool {
	c.n++
	if c.n >= c.every {
		c.n = 0
		return true
	}
	return false
}
