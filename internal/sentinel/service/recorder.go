package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/BrandonDHaskell/sentinel/internal/sentinel/store"
	"github.com/BrandonDHaskell/sentinel/internal/sentinel/types"
)

// Publisher receives live events. Publish must not block.
type Publisher interface {
	Publish(ev types.Event)
}

type discardPublisher struct{}

func (discardPublisher) Publish(types.Event) {}

// Recorder is the decision sink: it appends each decision to the access
// log, then publishes it. Decisions are recorded and published in the
// order Record is called.
type Recorder struct {
	log    store.AccessLogStore
	pub    Publisher
	logger *slog.Logger

	mu sync.Mutex
}

func NewRecorder(log store.AccessLogStore, pub Publisher, logger *slog.Logger) *Recorder {
	if pub == nil {
		pub = discardPublisher{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{log: log, pub: pub, logger: logger}
}

// Record appends d and returns it with its assigned id. A decision that
// fails to persist is logged and not published.
func (r *Recorder) Record(ctx context.Context, d types.AccessDecision) (types.AccessDecision, error) {
	if d.Timestamp.IsZero() {
		d.Timestamp = time.Now().UTC()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	id, err := r.log.Append(ctx, d)
	if err != nil {
		r.logger.Error("access log append failed",
			"channel", d.Channel, "value", d.DetectedValue, "status", d.Status, "error", err)
		return d, err
	}
	d.ID = id

	r.pub.Publish(types.Event{Kind: types.EventDecision, Decision: &d})
	r.logger.Info("access decision",
		"id", id, "channel", d.Channel, "value", d.DetectedValue,
		"identity", d.IdentityID, "status", d.Status)
	return d, nil
}

// Alert publishes a non-decision event. Alerts are not persisted.
func (r *Recorder) Alert(a types.Alert) {
	r.pub.Publish(types.Event{Kind: types.EventAlert, Alert: &a})
}
