package background

import (
	"context"
	"log/slog"
	"time"
)

// DriftChecker compares the search index against the credential store and
// schedules a rebuild when they diverge.
type DriftChecker interface {
	CheckIndexDrift(ctx context.Context) (bool, error)
}

// DriftMonitor periodically checks the search index for drift
type DriftMonitor struct {
	checker  DriftChecker
	logger   *slog.Logger
	interval time.Duration
	stopCh   chan struct{}
}

// NewDriftMonitor creates a new drift monitor
func NewDriftMonitor(checker DriftChecker, logger *slog.Logger, interval time.Duration) *DriftMonitor {
	return &DriftMonitor{
		checker:  checker,
		logger:   logger,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the periodic drift check
func (dm *DriftMonitor) Start(ctx context.Context) {
	ticker := time.NewTicker(dm.interval)
	defer ticker.Stop()

	// Run immediately on startup so an empty index gets filled
	dm.runCheck(ctx)

	for {
		select {
		case <-ticker.C:
			dm.runCheck(ctx)
		case <-dm.stopCh:
			dm.logger.Info("drift monitor stopped")
			return
		case <-ctx.Done():
			dm.logger.Info("drift monitor context cancelled")
			return
		}
	}
}

func (dm *DriftMonitor) runCheck(ctx context.Context) {
	checkCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	drifted, err := dm.checker.CheckIndexDrift(checkCtx)
	if err != nil {
		dm.logger.Error("failed to check search index drift", slog.Any("error", err))
		return
	}

	if drifted {
		dm.logger.Warn("search index drift detected, rebuild scheduled")
	}
}

// Stop signals the drift monitor to stop
func (dm *DriftMonitor) Stop() {
	close(dm.stopCh)
}
