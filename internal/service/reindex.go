package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/takezou621/sedori-platform-sub006/internal/catalog"
	"github.com/takezou621/sedori-platform-sub006/internal/domain"
	"github.com/takezou621/sedori-platform-sub006/internal/engine"
	"github.com/takezou621/sedori-platform-sub006/internal/metrics"
	apperrors "github.com/takezou621/sedori-platform-sub006/pkg/errors"
)

// Reindex run states.
const (
	ReindexIdle      = "idle"
	ReindexBuilding  = "building"
	ReindexSwapping  = "swapping"
	ReindexCompleted = "completed"
	ReindexFailed    = "failed"
)

// fillWorkers is the number of concurrent bulk writers filling the shadow
// generation.
const fillWorkers = 3

// ReindexStatus is a snapshot of the coordinator's state.
type ReindexStatus struct {
	State      string     `json:"state"`
	Generation string     `json:"generation,omitempty"`
	Documents  int64      `json:"documents"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	Error      string     `json:"error,omitempty"`
}

// Reindexer rebuilds the whole index in a shadow generation and swaps it live
// atomically. Readers keep hitting the old generation until the swap; a failed
// build never becomes visible.
type Reindexer struct {
	catalog catalog.Store
	engine  engine.Engine
	logger  *slog.Logger

	running atomic.Bool
	docs    atomic.Int64

	mu     sync.RWMutex
	status ReindexStatus
}

// NewReindexer creates the reindex coordinator.
func NewReindexer(store catalog.Store, eng engine.Engine, log *slog.Logger) *Reindexer {
	if log == nil {
		log = slog.Default()
	}
	return &Reindexer{
		catalog: store,
		engine:  eng,
		logger:  log,
		status:  ReindexStatus{State: ReindexIdle},
	}
}

// Status returns a snapshot of the current or most recent run.
func (r *Reindexer) Status() ReindexStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s := r.status
	s.Documents = r.docs.Load()
	return s
}

// Running reports whether a rebuild is in flight.
func (r *Reindexer) Running() bool {
	return r.running.Load()
}

// Trigger starts a rebuild in the background and returns immediately. It
// returns errors.ErrRebuildInProgress when a run is already in flight. The
// rebuild is detached from the caller's cancellation but keeps its values.
func (r *Reindexer) Trigger(ctx context.Context) error {
	if !r.running.CompareAndSwap(false, true) {
		metrics.ReindexRunsTotal.WithLabelValues("rejected").Inc()
		return apperrors.ErrRebuildInProgress
	}

	go func() {
		defer r.running.Store(false)
		if err := r.run(context.WithoutCancel(ctx)); err != nil {
			r.logger.Error("reindex run failed", "error", err)
		}
	}()

	return nil
}

// Run executes a rebuild synchronously. It returns
// errors.ErrRebuildInProgress when a run is already in flight.
func (r *Reindexer) Run(ctx context.Context) error {
	if !r.running.CompareAndSwap(false, true) {
		metrics.ReindexRunsTotal.WithLabelValues("rejected").Inc()
		return apperrors.ErrRebuildInProgress
	}
	defer r.running.Store(false)
	return r.run(ctx)
}

func (r *Reindexer) run(ctx context.Context) error {
	started := time.Now()
	r.docs.Store(0)
	metrics.ReindexDocuments.Set(0)
	r.setStatus(ReindexStatus{State: ReindexBuilding, StartedAt: &started})

	generation, err := r.engine.CreateGeneration(ctx)
	if err != nil {
		return r.fail(started, "", fmt.Errorf("create generation: %w", err))
	}
	r.setStatus(ReindexStatus{State: ReindexBuilding, Generation: generation, StartedAt: &started})
	r.logger.InfoContext(ctx, "reindex started", "generation", generation)

	if err := r.fill(ctx, generation); err != nil {
		// Abort: the live alias never moved, so dropping the shadow is the
		// whole cleanup.
		if dropErr := r.engine.DropGeneration(ctx, generation); dropErr != nil {
			r.logger.ErrorContext(ctx, "drop aborted generation failed",
				"generation", generation, "error", dropErr)
		}
		return r.fail(started, generation, fmt.Errorf("fill generation %s: %w", generation, err))
	}

	r.setStatus(ReindexStatus{State: ReindexSwapping, Generation: generation, StartedAt: &started})

	previous, err := r.engine.SwapAlias(ctx, generation)
	if err != nil {
		if dropErr := r.engine.DropGeneration(ctx, generation); dropErr != nil {
			r.logger.ErrorContext(ctx, "drop aborted generation failed",
				"generation", generation, "error", dropErr)
		}
		return r.fail(started, generation, fmt.Errorf("swap alias to %s: %w", generation, err))
	}

	if previous != "" {
		// The swap already happened; a retired generation left behind costs
		// disk, not correctness.
		if err := r.engine.DropGeneration(ctx, previous); err != nil {
			r.logger.WarnContext(ctx, "drop retired generation failed",
				"generation", previous, "error", err)
		}
	}

	finished := time.Now()
	r.setStatus(ReindexStatus{
		State:      ReindexCompleted,
		Generation: generation,
		StartedAt:  &started,
		FinishedAt: &finished,
	})
	metrics.ReindexRunsTotal.WithLabelValues("completed").Inc()
	r.logger.InfoContext(ctx, "reindex completed",
		"generation", generation,
		"documents", r.docs.Load(),
		"took", finished.Sub(started),
	)
	return nil
}

// fill streams the whole active catalog into the shadow generation. One
// producer walks the catalog pages; fillWorkers writers bulk-upsert them.
func (r *Reindexer) fill(ctx context.Context, generation string) error {
	g, ctx := errgroup.WithContext(ctx)
	pages := make(chan []domain.SearchDocument, fillWorkers)

	g.Go(func() error {
		defer close(pages)
		names := newCategoryNames(r.catalog)
		cursor := ""
		for {
			page, err := r.catalog.ListActiveProducts(ctx, cursor, bulkPageSize)
			if err != nil {
				return fmt.Errorf("list products: %w", err)
			}
			if len(page.Products) == 0 {
				return nil
			}

			docs := make([]domain.SearchDocument, 0, len(page.Products))
			for i := range page.Products {
				p := &page.Products[i]
				docs = append(docs, *domain.BuildSearchDocument(p, names.resolve(ctx, p.CategoryID)))
			}

			select {
			case pages <- docs:
			case <-ctx.Done():
				return ctx.Err()
			}

			if page.NextCursor == "" {
				return nil
			}
			cursor = page.NextCursor
		}
	})

	for i := 0; i < fillWorkers; i++ {
		g.Go(func() error {
			for docs := range pages {
				if err := r.engine.BulkUpsert(ctx, generation, docs); err != nil {
					return fmt.Errorf("bulk upsert: %w", err)
				}
				total := r.docs.Add(int64(len(docs)))
				metrics.ReindexDocuments.Set(float64(total))
			}
			return nil
		})
	}

	return g.Wait()
}

func (r *Reindexer) fail(started time.Time, generation string, err error) error {
	finished := time.Now()
	r.setStatus(ReindexStatus{
		State:      ReindexFailed,
		Generation: generation,
		StartedAt:  &started,
		FinishedAt: &finished,
		Error:      err.Error(),
	})
	metrics.ReindexRunsTotal.WithLabelValues("failed").Inc()
	return fmt.Errorf("%w: %v", apperrors.ErrRebuildFailed, err)
}

func (r *Reindexer) setStatus(s ReindexStatus) {
	r.mu.Lock()
	r.status = s
	r.mu.Unlock()
}
