package worker

import (
	"context"
	"time"

	"github.com/secmon-lab/briareus/pkg/domain/model"
	"github.com/secmon-lab/briareus/pkg/service/connector"
	"github.com/secmon-lab/briareus/pkg/utils/logging"
)

// SyncScheduler runs periodic incremental syncs for every registered
// workspace connector.
//
// Architecture assumptions:
// - Single server instance (no distributed locking)
// - Per-channel exclusion inside each connector makes overlapping ticks safe
type SyncScheduler struct {
	registry *connector.Registry
	interval time.Duration
	opts     model.SyncOptions
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// NewSyncScheduler creates a scheduler over the connector registry
func NewSyncScheduler(registry *connector.Registry, interval time.Duration, opts model.SyncOptions) *SyncScheduler {
	opts.Incremental = true
	return &SyncScheduler{
		registry: registry,
		interval: interval,
		opts:     opts,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start begins the periodic sync loop in a background goroutine.
// Does not block server startup.
func (w *SyncScheduler) Start(ctx context.Context) error {
	logging.Default().Info("sync scheduler starting", "interval", w.interval.String())
	go w.run(ctx)
	return nil
}

// Stop signals the scheduler to stop and waits for completion
func (w *SyncScheduler) Stop() {
	logging.Default().Info("sync scheduler stopping")
	close(w.stopCh)
	<-w.doneCh
	logging.Default().Info("sync scheduler stopped")
}

func (w *SyncScheduler) run(ctx context.Context) {
	defer close(w.doneCh)

	// First pass immediately so a fresh deployment does not wait a full
	// interval before ingesting anything
	w.syncAll(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.syncAll(ctx)

		case <-w.stopCh:
			return

		case <-ctx.Done():
			logging.Default().Info("sync scheduler context cancelled")
			return
		}
	}
}

// syncAll runs one incremental pass over every registered connector.
// Failures are logged and the scheduler keeps running.
func (w *SyncScheduler) syncAll(ctx context.Context) {
	for _, conn := range w.registry.List() {
		if conn.CurrentState() == connector.StateClosed {
			continue
		}

		outcomes, err := conn.StartSync(ctx, w.opts)
		if err != nil {
			logging.Default().Error("scheduled sync failed (will retry next interval)",
				"error", err.Error())
			continue
		}

		var failed int
		for _, o := range outcomes {
			if o.Status == model.OutcomeError {
				failed++
			}
		}
		logging.Default().Info("scheduled sync completed",
			"channels", len(outcomes), "failed", failed)
	}
}
