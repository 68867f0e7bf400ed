package service_test

import (
	"context"
	"errors"
	"image"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/BrandonDHaskell/sentinel/internal/recognize"
	"github.com/BrandonDHaskell/sentinel/internal/sentinel/service"
	"github.com/BrandonDHaskell/sentinel/internal/sentinel/store"
	"github.com/BrandonDHaskell/sentinel/internal/sentinel/store/memory"
	"github.com/BrandonDHaskell/sentinel/internal/sentinel/types"
)

func silentLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// eventLog is a Publisher that keeps everything it is given and also
// forwards events to C for tests that need to wait on one.
type eventLog struct {
	mu     sync.Mutex
	events []types.Event
	C      chan types.Event
}

func newEventLog() *eventLog {
	return &eventLog{C: make(chan types.Event, 64)}
}

func (l *eventLog) Publish(ev types.Event) {
	l.mu.Lock()
	l.events = append(l.events, ev)
	l.mu.Unlock()
	select {
	case l.C <- ev:
	default:
	}
}

func (l *eventLog) Events() []types.Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]types.Event, len(l.events))
	copy(out, l.events)
	return out
}

func (l *eventLog) alerts() []types.Alert {
	var out []types.Alert
	for _, ev := range l.Events() {
		if ev.Kind == types.EventAlert {
			out = append(out, *ev.Alert)
		}
	}
	return out
}

func testIdentities() []store.IdentityRecord {
	return []store.IdentityRecord{
		{IdentityID: "S1", DisplayName: "Asha Patil", Active: true, Plates: []string{"MH12AB1234"}},
		{IdentityID: "S2", DisplayName: "Ben Ortiz", Active: true, FaceLabels: []string{"ben"}},
		{IdentityID: "S3", DisplayName: "Former Resident", Active: false, Plates: []string{"KA01XY9999"}, FaceLabels: []string{"former"}},
	}
}

// testFaceLabels is the closed classifier set used throughout the tests.
var testFaceLabels = []string{"ben", "former"}

type fixture struct {
	registry   *service.Registry
	log        *memory.AccessLogStore
	detections *memory.PlateDetectionStore
	events     *eventLog
	recorder   *service.Recorder
}

func newFixture() *fixture {
	f := &fixture{
		registry:   service.NewRegistry(memory.NewRegistryStore(testIdentities()...), testFaceLabels),
		log:        memory.NewAccessLogStore(),
		detections: memory.NewPlateDetectionStore(),
		events:     newEventLog(),
	}
	f.recorder = service.NewRecorder(f.log, f.events, silentLogger())
	return f
}

func (f *fixture) engine(cfg service.EngineConfig) *service.Engine {
	return service.NewEngine(cfg, service.EngineDeps{
		Registry:   f.registry,
		Recorder:   f.recorder,
		Detections: f.detections,
		Logger:     silentLogger(),
	})
}

func frame(seq uint64) types.Frame {
	return types.Frame{
		Seq:       seq,
		Timestamp: time.Now().UTC(),
		Image:     image.NewGray(image.Rect(0, 0, 4, 4)),
		TraceID:   "trace",
	}
}

func images(n int) []image.Image {
	out := make([]image.Image, n)
	for i := range out {
		out[i] = image.NewGray(image.Rect(0, 0, 4, 4))
	}
	return out
}

func plate(value string, conf float64) types.Candidate {
	return types.Candidate{Channel: types.ChannelPlate, Value: value, Confidence: conf, Eligible: true}
}

// scripted returns the candidates scripted for each frame sequence number.
func scripted(script map[uint64][]types.Candidate) recognize.Recognizer {
	return recognize.Func(func(_ context.Context, f types.Frame) ([]types.Candidate, error) {
		return script[f.Seq], nil
	})
}

// failingLog is an AccessLogStore whose appends always fail.
type failingLog struct{ memory.AccessLogStore }

func (*failingLog) Append(context.Context, types.AccessDecision) (int64, error) {
	return 0, errors.New("disk full")
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}
