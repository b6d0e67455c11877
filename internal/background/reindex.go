package background

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Cantara/Whydah-UserIdentityBackend-sub000/internal/metrics"
	"github.com/Cantara/Whydah-UserIdentityBackend-sub000/internal/models"
)

// ReindexPageSize is the number of users read from the store per page.
const ReindexPageSize = 500

// UserLister pages through the credential store.
type UserLister interface {
	List(ctx context.Context, limit, offset int) ([]*models.User, error)
}

// IndexRebuilder replaces the full contents of the search index.
type IndexRebuilder interface {
	Rebuild(ctx context.Context, records []models.IndexRecord) error
}

// Reindexer rebuilds the search index from the credential store on a single
// background worker. At most one rebuild is queued or running at any time.
type Reindexer struct {
	store   UserLister
	index   IndexRebuilder
	metrics *metrics.Collector
	logger  *slog.Logger
	timeout time.Duration

	pending  atomic.Bool
	started  atomic.Bool
	tasks    chan struct{}
	errs     chan error
	stopCh   chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

// NewReindexer creates a reindexer. Call Start to run its worker.
func NewReindexer(store UserLister, index IndexRebuilder, m *metrics.Collector, logger *slog.Logger) *Reindexer {
	return &Reindexer{
		store:   store,
		index:   index,
		metrics: m,
		logger:  logger,
		timeout: 5 * time.Minute,
		tasks:   make(chan struct{}, 1),
		errs:    make(chan error, 8),
		stopCh:  make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// Trigger queues a rebuild. It never blocks and returns false when a rebuild
// is already queued or running, or once the reindexer has been stopped.
func (r *Reindexer) Trigger() bool {
	if r.stopped() || !r.pending.CompareAndSwap(false, true) {
		return false
	}

	select {
	case r.tasks <- struct{}{}:
	default:
		r.pending.Store(false)
		return false
	}

	// Lost a race with Stop: nobody will pick the task up
	if r.stopped() {
		r.discard()
		return false
	}
	return true
}

func (r *Reindexer) stopped() bool {
	select {
	case <-r.stopCh:
		return true
	default:
		return false
	}
}

// discard drops a queued task and clears the pending flag.
func (r *Reindexer) discard() {
	select {
	case <-r.tasks:
	default:
	}
	r.pending.Store(false)
}

// Running reports whether a rebuild is queued or in progress.
func (r *Reindexer) Running() bool {
	return r.pending.Load()
}

// Errors publishes rebuild failures. Failures are dropped when nobody reads.
func (r *Reindexer) Errors() <-chan error {
	return r.errs
}

// Start runs the worker until Stop is called or ctx is cancelled.
func (r *Reindexer) Start(ctx context.Context) {
	if !r.started.CompareAndSwap(false, true) {
		return
	}
	defer func() {
		r.stopOnce.Do(func() { close(r.stopCh) })
		r.discard()
		close(r.done)
	}()

	for {
		select {
		case <-r.tasks:
			r.run(ctx)
			r.pending.Store(false)
		case <-r.stopCh:
			r.logger.Info("reindexer stopped")
			return
		case <-ctx.Done():
			r.logger.Info("reindexer context cancelled")
			return
		}
	}
}

// Stop signals the worker to exit and waits for an in-flight rebuild.
// Later triggers are refused.
func (r *Reindexer) Stop() {
	r.stopOnce.Do(func() { close(r.stopCh) })
	if r.started.Load() {
		<-r.done
		return
	}
	r.discard()
}

func (r *Reindexer) run(ctx context.Context) {
	start := time.Now()
	r.logger.Info("starting search index rebuild")

	runCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	count, err := r.rebuild(runCtx)
	r.metrics.ReindexFinished(err == nil, count)
	if err != nil {
		r.logger.Error("search index rebuild failed", slog.Any("error", err))
		select {
		case r.errs <- err:
		default:
		}
		return
	}

	r.logger.Info("search index rebuild completed",
		slog.Int("users", count),
		slog.Duration("duration", time.Since(start)),
	)
}

func (r *Reindexer) rebuild(ctx context.Context) (count int, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("reindex panic: %v", p)
		}
	}()

	var records []models.IndexRecord
	for offset := 0; ; offset += ReindexPageSize {
		users, err := r.store.List(ctx, ReindexPageSize, offset)
		if err != nil {
			return 0, fmt.Errorf("list users at offset %d: %w", offset, err)
		}
		for _, u := range users {
			records = append(records, u.ToIndexRecord())
		}
		if len(users) < ReindexPageSize {
			break
		}
	}

	if err := r.index.Rebuild(ctx, records); err != nil {
		return 0, err
	}

	return len(records), nil
}
