package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/goran-ethernal/StarkIndexor/internal/common"
	"github.com/goran-ethernal/StarkIndexor/internal/logger"
	"github.com/goran-ethernal/StarkIndexor/internal/metrics"
)

// Job is a periodic recalculation over the entity store.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// Scheduler runs jobs on gocron. A job never overlaps itself: a tick that fires while the
// previous run is still going is skipped.
type Scheduler struct {
	sched gocron.Scheduler
	log   *logger.Logger
}

// NewScheduler creates a stopped scheduler.
func NewScheduler(log *logger.Logger) (*Scheduler, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	return &Scheduler{
		sched: sched,
		log:   log.WithComponent(common.ComponentScheduler),
	}, nil
}

// Add schedules job every interval. With immediately set, the first run starts as soon as
// the scheduler starts.
func (s *Scheduler) Add(ctx context.Context, job Job, interval time.Duration, immediately bool) error {
	if interval <= 0 {
		return fmt.Errorf("job %s: interval must be positive, got %s", job.Name(), interval)
	}

	opts := []gocron.JobOption{
		gocron.WithName(job.Name()),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	}
	if immediately {
		opts = append(opts, gocron.WithStartAt(gocron.WithStartImmediately()))
	}

	_, err := s.sched.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() { s.run(ctx, job) }),
		opts...,
	)
	if err != nil {
		return fmt.Errorf("failed to schedule job %s: %w", job.Name(), err)
	}

	s.log.Infow("job scheduled", "job", job.Name(), "interval", interval.String(), "immediately", immediately)

	return nil
}

func (s *Scheduler) run(ctx context.Context, job Job) {
	if ctx.Err() != nil {
		return
	}

	start := time.Now()
	err := job.Run(ctx)
	elapsed := time.Since(start)
	jobRunLog(job.Name(), err, elapsed)

	if err != nil {
		metrics.ErrorsInc(job.Name(), "error")
		s.log.Errorw("job failed", "job", job.Name(), "duration", elapsed.String(), "error", err)
		return
	}

	s.log.Debugw("job finished", "job", job.Name(), "duration", elapsed.String())
}

// Start begins running the scheduled jobs.
func (s *Scheduler) Start() {
	s.sched.Start()
	metrics.ComponentHealthSet(common.ComponentScheduler, true)
	s.log.Info("scheduler started")
}

// Stop waits for running jobs to finish and stops the scheduler.
func (s *Scheduler) Stop() error {
	metrics.ComponentHealthSet(common.ComponentScheduler, false)

	if err := s.sched.Shutdown(); err != nil {
		return fmt.Errorf("failed to shut down scheduler: %w", err)
	}

	s.log.Info("scheduler stopped")
	return nil
}
