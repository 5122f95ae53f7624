// Package scheduler enqueues periodic background tasks on cron schedules.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/mrlokans/pdflibrary/internal/logger"
)

// Enqueuer puts maintenance tasks on the task queue.
type Enqueuer interface {
	EnqueueCatalogSync(ctx context.Context, force bool) (string, error)
	EnqueueAuditCleanup(ctx context.Context, retentionDays int) (string, error)
}

// Config selects which jobs run and when. An empty schedule disables the job.
type Config struct {
	CatalogSyncSchedule  string
	AuditCleanupSchedule string
	AuditRetentionDays   int
}

var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// ValidateSchedule checks a standard 5-field cron expression.
func ValidateSchedule(schedule string) error {
	_, err := cronParser.Parse(schedule)
	return err
}

// Scheduler runs the catalog sync and audit cleanup jobs.
type Scheduler struct {
	enqueuer Enqueuer
	config   Config
	log      *logger.Logger

	cron      *cron.Cron
	entries   map[string]cron.EntryID
	mu        sync.RWMutex
	isRunning bool
	ctx       context.Context
}

// New creates a scheduler. Nothing runs until Start.
func New(enqueuer Enqueuer, cfg Config, log *logger.Logger) *Scheduler {
	if log == nil {
		log = logger.Nop()
	}
	return &Scheduler{
		enqueuer: enqueuer,
		config:   cfg,
		log:      log,
		cron:     cron.New(cron.WithParser(cronParser)),
		entries:  make(map[string]cron.EntryID),
	}
}

// Start registers the configured jobs and starts the cron loop. The
// scheduler stops when ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return nil
	}
	s.ctx = ctx

	jobs := []struct {
		name     string
		schedule string
		run      func()
	}{
		{"catalog_sync", s.config.CatalogSyncSchedule, s.enqueueCatalogSync},
		{"audit_cleanup", s.config.AuditCleanupSchedule, s.enqueueAuditCleanup},
	}
	for _, job := range jobs {
		if job.schedule == "" {
			s.log.Info().Str("job", job.name).Msg("scheduled job disabled")
			continue
		}
		if err := ValidateSchedule(job.schedule); err != nil {
			return fmt.Errorf("invalid cron schedule %q for %s: %w", job.schedule, job.name, err)
		}
		id, err := s.cron.AddFunc(job.schedule, job.run)
		if err != nil {
			return fmt.Errorf("failed to schedule %s: %w", job.name, err)
		}
		s.entries[job.name] = id
	}

	s.cron.Start()
	s.isRunning = true

	for name, id := range s.entries {
		s.log.Info().Str("job", name).Time("next_run", s.cron.Entry(id).Next).Msg("scheduled job registered")
	}

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	return nil
}

// Stop stops the cron loop and waits for running jobs.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return
	}

	<-s.cron.Stop().Done()
	s.isRunning = false
	s.log.Info().Msg("scheduler stopped")
}

// IsRunning returns whether the scheduler is active
func (s *Scheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// NextRun returns when the named job runs next, or nil if it is not scheduled.
func (s *Scheduler) NextRun(job string) *time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.entries[job]
	if !ok || !s.isRunning {
		return nil
	}
	next := s.cron.Entry(id).Next
	return &next
}

func (s *Scheduler) enqueueCatalogSync() {
	id, err := s.enqueuer.EnqueueCatalogSync(s.context(), false)
	if err != nil {
		s.log.Err(err).Msg("failed to enqueue catalog sync")
		return
	}
	s.log.Debug().Str("task_id", id).Msg("catalog sync enqueued")
}

func (s *Scheduler) enqueueAuditCleanup() {
	id, err := s.enqueuer.EnqueueAuditCleanup(s.context(), s.config.AuditRetentionDays)
	if err != nil {
		s.log.Err(err).Msg("failed to enqueue audit cleanup")
		return
	}
	s.log.Debug().Str("task_id", id).Msg("audit cleanup enqueued")
}

// context is called from cron jobs only; ctx is set before the cron loop
// starts and never changes afterwards.
func (s *Scheduler) context() context.Context {
	if s.ctx == nil {
		return context.Background()
	}
	return s.ctx
}
