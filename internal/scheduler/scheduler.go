// Package scheduler runs the periodic full reindex.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"

	"github.com/takezou621/sedori-platform-sub006/internal/service"
	apperrors "github.com/takezou621/sedori-platform-sub006/pkg/errors"
)

// Scheduler triggers full index rebuilds on a cron schedule. The rebuild
// replaces the whole live generation, which also prunes documents whose
// products disappeared without a delete event.
type Scheduler struct {
	cron      *cron.Cron
	reindexer *service.Reindexer
	logger    *slog.Logger
}

// New creates a scheduler with the given cron spec, e.g. "0 3 * * *" for
// 03:00 daily. An empty spec disables scheduling; Start becomes a no-op.
func New(spec string, reindexer *service.Reindexer, log *slog.Logger) (*Scheduler, error) {
	if log == nil {
		log = slog.Default()
	}

	s := &Scheduler{reindexer: reindexer, logger: log}
	if spec == "" {
		return s, nil
	}

	c := cron.New()
	if _, err := c.AddFunc(spec, s.runReindex); err != nil {
		return nil, fmt.Errorf("scheduler: invalid cron spec %q: %w", spec, err)
	}
	s.cron = c
	return s, nil
}

// Start begins the schedule.
func (s *Scheduler) Start() {
	if s.cron == nil {
		return
	}
	s.cron.Start()
	s.logger.Info("reindex schedule started")
}

// Stop halts the schedule and waits for a running trigger to return. A
// reindex already in flight keeps running to completion.
func (s *Scheduler) Stop() {
	if s.cron == nil {
		return
	}
	<-s.cron.Stop().Done()
	s.logger.Info("reindex schedule stopped")
}

func (s *Scheduler) runReindex() {
	s.logger.Info("scheduled reindex starting")
	if err := s.reindexer.Run(context.Background()); err != nil {
		if errors.Is(err, apperrors.ErrRebuildInProgress) {
			s.logger.Warn("scheduled reindex skipped, a run is already in flight")
			return
		}
		s.logger.Error("scheduled reindex failed", "error", err)
		return
	}
	s.logger.Info("scheduled reindex completed")
}
