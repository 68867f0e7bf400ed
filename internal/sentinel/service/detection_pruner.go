package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/BrandonDHaskell/sentinel/internal/sentinel/store"
)

// DetectionPruner periodically deletes plate audit rows older than a
// retention period. A retention of 0 disables pruning.
type DetectionPruner struct {
	store     store.PlateDetectionStore
	retention time.Duration
	interval  time.Duration
	logger    *slog.Logger
	cancel    context.CancelFunc
	done      chan struct{}
}

type PrunerConfig struct {
	// RetentionDays of plate audit history to keep. 0 keeps everything.
	RetentionDays int

	// Interval between prunes. Defaults to 6h.
	Interval time.Duration
}

// NewDetectionPruner creates a pruner but does not start it.
func NewDetectionPruner(s store.PlateDetectionStore, cfg PrunerConfig, logger *slog.Logger) *DetectionPruner {
	if cfg.Interval <= 0 {
		cfg.Interval = 6 * time.Hour
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &DetectionPruner{
		store:     s,
		retention: time.Duration(cfg.RetentionDays) * 24 * time.Hour,
		interval:  cfg.Interval,
		logger:    logger,
		done:      make(chan struct{}),
	}
}

// Start prunes once immediately, then on every interval until ctx is
// cancelled or Stop is called.
func (p *DetectionPruner) Start(ctx context.Context) {
	if p.retention <= 0 {
		p.logger.Info("detection pruner disabled", "retention_days", 0)
		close(p.done)
		return
	}

	ctx, p.cancel = context.WithCancel(ctx)
	go p.loop(ctx)

	p.logger.Info("detection pruner started",
		"retention_days", int(p.retention.Hours()/24), "interval", p.interval)
}

// Stop signals the pruner to exit and waits for it.
func (p *DetectionPruner) Stop() {
	if p.cancel != nil {
		p.cancel()
	}
	<-p.done
}

func (p *DetectionPruner) loop(ctx context.Context) {
	defer close(p.done)

	p.prune(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.prune(ctx)
		}
	}
}

func (p *DetectionPruner) prune(ctx context.Context) {
	cutoff := time.Now().UTC().Add(-p.retention)
	deleted, err := p.store.PruneOlderThan(ctx, cutoff)
	if err != nil {
		p.logger.Error("detection prune failed", "error", err)
		return
	}
	if deleted > 0 {
		p.logger.Info("detection prune", "deleted", deleted, "cutoff", cutoff.Format(time.RFC3339))
	}
}
