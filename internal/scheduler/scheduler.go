package scheduler

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/aegisshield/case-dashboard/internal/workingset"
)

// Refresher is the part of the working set the scheduler drives
type Refresher interface {
	Refresh(ctx context.Context, origin string, force bool) (workingset.Snapshot, error)
}

// Scheduler periodically reloads the working set from the backend
type Scheduler struct {
	cron      *cron.Cron
	refresher Refresher
	schedule  string
	timeout   time.Duration
	logger    *zap.Logger
	entryID   cron.EntryID
}

// NewScheduler creates a scheduler. The schedule uses six fields, seconds first.
func NewScheduler(schedule string, timeout time.Duration, loc *time.Location, refresher Refresher, logger *zap.Logger) (*Scheduler, error) {
	if loc == nil {
		loc = time.UTC
	}
	s := &Scheduler{
		cron:      cron.New(cron.WithSeconds(), cron.WithLocation(loc)),
		refresher: refresher,
		schedule:  schedule,
		timeout:   timeout,
		logger:    logger.Named("scheduler"),
	}

	entryID, err := s.cron.AddFunc(schedule, s.run)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid refresh schedule %q", schedule)
	}
	s.entryID = entryID

	return s, nil
}

// Start starts the cron scheduler
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("Scheduler started",
		zap.String("schedule", s.schedule),
		zap.Time("next_run", s.NextRun()))
}

// Stop stops the scheduler and waits for a running refresh to finish
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("Scheduler stopped")
}

// NextRun returns the next planned refresh time
func (s *Scheduler) NextRun() time.Time {
	return s.cron.Entry(s.entryID).Next
}

func (s *Scheduler) run() {
	ctx := context.Background()
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	if _, err := s.refresher.Refresh(ctx, workingset.OriginSchedule, true); err != nil {
		s.logger.Warn("Scheduled refresh failed", zap.Error(err))
	}
}
