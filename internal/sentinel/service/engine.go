package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/BrandonDHaskell/sentinel/internal/recognize"
	"github.com/BrandonDHaskell/sentinel/internal/recognize/face"
	"github.com/BrandonDHaskell/sentinel/internal/sentinel/store"
	"github.com/BrandonDHaskell/sentinel/internal/sentinel/types"
	"github.com/BrandonDHaskell/sentinel/internal/stream"
)

const (
	DefaultSampleEvery           = 30
	DefaultCooldownFrames        = 2
	DefaultResetEvery            = 10
	DefaultUnknownFaceAlertEvery = 4
	DefaultFaceTimeout           = time.Second
)

// ChannelConfig wires one frame-sampled channel.
type ChannelConfig struct {
	Recognizer recognize.Recognizer // nil disables the channel
	Timeout    time.Duration
	Debounce   DebounceConfig
}

type EngineConfig struct {
	// SampleEvery dispatches one frame in every SampleEvery to the
	// recognizers.
	SampleEvery int
	Plate       ChannelConfig
	Face        ChannelConfig
	// UnknownFaceAlertEvery limits unknown-face alerts to one per this many
	// face observations.
	UnknownFaceAlertEvery int
}

type EngineDeps struct {
	Registry *Registry
	Recorder *Recorder
	// Detections receives every surfaced plate read. Optional.
	Detections store.PlateDetectionStore
	Logger     *slog.Logger
}

// DetectionGate reports whether sampled frames should be dispatched.
type DetectionGate interface {
	DetectionEnabled() bool
}

// EngineStats are cumulative frame counters.
type EngineStats struct {
	FramesRead     uint64
	FramesSampled  uint64
	SamplesSkipped uint64
}

// Engine is the frame loop: it samples frames, runs each channel's
// recognizer concurrently, debounces the results and records decisions.
type Engine struct {
	sampleEvery int
	plate       *channel
	face        *channel
	registry    *Registry
	recorder    *Recorder
	detections  store.PlateDetectionStore
	logger      *slog.Logger

	framesRead     atomic.Uint64
	framesSampled  atomic.Uint64
	samplesSkipped atomic.Uint64
}

func NewEngine(cfg EngineConfig, deps EngineDeps) *Engine {
	if cfg.SampleEvery <= 0 {
		cfg.SampleEvery = DefaultSampleEvery
	}
	if cfg.UnknownFaceAlertEvery <= 0 {
		cfg.UnknownFaceAlertEvery = DefaultUnknownFaceAlertEvery
	}
	if cfg.Plate.Timeout <= 0 {
		cfg.Plate.Timeout = 20 * time.Second
	}
	if cfg.Face.Timeout <= 0 {
		cfg.Face.Timeout = DefaultFaceTimeout
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	e := &Engine{
		sampleEvery: cfg.SampleEvery,
		registry:    deps.Registry,
		recorder:    deps.Recorder,
		detections:  deps.Detections,
		logger:      deps.Logger,
	}
	e.plate = newChannel(types.ChannelPlate, cfg.Plate)
	e.plate.observe = e.auditPlates
	e.face = newChannel(types.ChannelFace, cfg.Face)
	alerts := &cadence{every: cfg.UnknownFaceAlertEvery}
	e.face.observe = func(ctx context.Context, f types.Frame, cands []types.Candidate) {
		e.alertUnknownFaces(alerts, f, cands)
	}
	return e
}

// Run reads frames from src until it ends, fails or ctx is done. Outstanding
// recognizer calls are waited for before Run returns. End of stream and
// cancellation are not errors.
func (e *Engine) Run(ctx context.Context, src stream.Source, gate DetectionGate) error {
	var wg sync.WaitGroup
	defer wg.Wait()

	sampler := cadence{every: e.sampleEvery}
	for {
		frame, err := src.Next(ctx)
		switch {
		case err == nil:
		case errors.Is(err, stream.ErrEndOfStream):
			e.logger.Info("frame source ended", "reason", err)
			return nil
		case ctx.Err() != nil:
			return nil
		default:
			return fmt.Errorf("frame source: %w", err)
		}

		e.framesRead.Add(1)
		if !sampler.tick() {
			continue
		}
		if gate != nil && !gate.DetectionEnabled() {
			continue
		}
		e.dispatch(ctx, frame, &wg)
	}
}

// ProcessFrame treats frame as sampled, dispatches it to both channels and
// waits for them.
func (e *Engine) ProcessFrame(ctx context.Context, frame types.Frame) {
	var wg sync.WaitGroup
	e.dispatch(ctx, frame, &wg)
	wg.Wait()
}

// ResetChannels returns both debouncers to idle. The caller must ensure no
// frame is in flight.
func (e *Engine) ResetChannels() {
	e.plate.debounce.Reset()
	e.face.debounce.Reset()
}

func (e *Engine) Stats() EngineStats {
	return EngineStats{
		FramesRead:     e.framesRead.Load(),
		FramesSampled:  e.framesSampled.Load(),
		SamplesSkipped: e.samplesSkipped.Load(),
	}
}

func (e *Engine) dispatch(ctx context.Context, frame types.Frame, wg *sync.WaitGroup) {
	e.framesSampled.Add(1)
	e.logger.Debug("frame sampled", "seq", frame.Seq, "trace_id", frame.TraceID)

	for _, ch := range []*channel{e.plate, e.face} {
		if ch.recognizer == nil {
			continue
		}
		if !ch.acquire() {
			e.samplesSkipped.Add(1)
			e.logger.Debug("channel busy, sample skipped", "channel", ch.name, "seq", frame.Seq)
			continue
		}
		wg.Add(1)
		go func(ch *channel) {
			defer wg.Done()
			e.process(ctx, ch, frame)
		}(ch)
	}
}

func (e *Engine) process(ctx context.Context, ch *channel, frame types.Frame) {
	cands, err := ch.recognize(ctx, frame)
	if ctx.Err() != nil {
		return
	}
	if err != nil {
		e.logger.Warn("recognizer failed", "channel", ch.name, "seq", frame.Seq, "error", err)
		cands = nil
	}
	if ch.observe != nil {
		ch.observe(ctx, frame, cands)
	}

	// best is the zero candidate when nothing is eligible.
	best, _ := recognize.Best(cands)
	value, fired := ch.debounce.Observe(best.Value)
	if !fired {
		return
	}
	e.decide(ctx, ch.name, value, best.Confidence, frame)
}

func (e *Engine) decide(ctx context.Context, ch types.Channel, value string, confidence float64, frame types.Frame) {
	d := types.AccessDecision{
		Timestamp:     time.Now().UTC(),
		Channel:       ch,
		DetectedValue: value,
		Status:        types.StatusDenied,
		Confidence:    &confidence,
		FrameSeq:      frame.Seq,
		TraceID:       frame.TraceID,
	}

	ident, ok, err := e.registry.Resolve(ctx, ch, value)
	if err != nil {
		e.logger.Warn("registry lookup failed, denying", "channel", ch, "value", value, "error", err)
	}
	if ok {
		d.Status = types.StatusGranted
		d.IdentityID = ident.IdentityID
		d.IdentityName = ident.DisplayName
	}

	_, _ = e.recorder.Record(ctx, d)
}

func (e *Engine) auditPlates(ctx context.Context, frame types.Frame, cands []types.Candidate) {
	for _, c := range cands {
		e.logger.Debug("plate candidate", "seq", frame.Seq, "plate", c.Value,
			"confidence", c.Confidence, "eligible", c.Eligible, "low_confidence", c.LowConfidence)
		if e.detections == nil {
			continue
		}
		err := e.detections.RecordDetection(ctx, store.PlateDetectionRecord{
			DetectedAt:  frame.Timestamp,
			PlateNumber: c.Value,
			Confidence:  c.Confidence,
			Eligible:    c.Eligible,
			FrameSeq:    frame.Seq,
		})
		if err != nil {
			e.logger.Warn("plate audit write failed", "plate", c.Value, "error", err)
		}
	}
}

func (e *Engine) alertUnknownFaces(alerts *cadence, frame types.Frame, cands []types.Candidate) {
	due := alerts.tick()
	n := face.Unknown(cands)
	if n == 0 || !due {
		return
	}
	e.recorder.Alert(types.Alert{
		Timestamp: time.Now().UTC(),
		Channel:   types.ChannelFace,
		Kind:      types.AlertUnknownFace,
		Count:     n,
		FrameSeq:  frame.Seq,
		TraceID:   frame.TraceID,
	})
}
