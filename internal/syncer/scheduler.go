package syncer

import (
	"errors"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/verustcode/codesync/internal/model"
	"github.com/verustcode/codesync/internal/store"
	"github.com/verustcode/codesync/pkg/logger"
)

// Scheduler periodically enqueues a sync for every linked project
type Scheduler struct {
	syncer   *Syncer
	projects store.ProjectStore
	schedule string
	cron     *cron.Cron
	entryID  cron.EntryID
	mu       sync.Mutex
}

// NewScheduler creates a scheduler running on a standard 5-field cron
// schedule
func NewScheduler(s *Syncer, projects store.ProjectStore, schedule string) *Scheduler {
	return &Scheduler{
		syncer:   s,
		projects: projects,
		schedule: schedule,
		cron:     cron.New(),
	}
}

// Start registers the resync job and starts the cron scheduler
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entryID, err := s.cron.AddFunc(s.schedule, func() { s.ResyncAll() })
	if err != nil {
		logger.Error("Failed to schedule periodic resync", zap.String("schedule", s.schedule), zap.Error(err))
		return err
	}
	s.entryID = entryID
	s.cron.Start()

	logger.Info("Periodic resync scheduled",
		zap.String("schedule", s.schedule),
		zap.Time("next", s.cron.Entry(entryID).Next),
	)
	return nil
}

// Stop stops the scheduler and waits for a running job
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx := s.cron.Stop()
	<-ctx.Done()
	logger.Info("Periodic resync stopped")
}

// ResyncAll enqueues a sync for each linked project without one already
// waiting. It returns the number of tasks enqueued.
func (s *Scheduler) ResyncAll() int {
	start := time.Now()
	projects, err := s.projects.ListLinked()
	if err != nil {
		logger.Error("Failed to list projects for resync", zap.Error(err))
		return 0
	}

	enqueued := 0
	for _, p := range projects {
		if s.syncer.Queue().HasPending(p.ID) {
			continue
		}
		if _, err := s.syncer.Enqueue(p.ID, "", model.TriggerSchedule); err != nil {
			logger.Warn("Failed to enqueue scheduled sync", zap.Uint("project_id", p.ID), zap.Error(err))
			if errors.Is(err, ErrQueueFull) || errors.Is(err, ErrStopped) {
				break
			}
			continue
		}
		enqueued++
	}

	logger.Info("Scheduled resync enqueued",
		zap.Int("projects", len(projects)),
		zap.Int("enqueued", enqueued),
		zap.Duration("duration", time.Since(start)),
	)
	return enqueued
}
