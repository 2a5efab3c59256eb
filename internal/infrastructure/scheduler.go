package infrastructure

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"

	"whatsbot/internal/logger"
)

// Scheduler runs the background maintenance jobs.
type Scheduler struct {
	s   gocron.Scheduler
	log *zap.Logger
}

func NewScheduler(log *zap.Logger) (*Scheduler, error) {
	s, err := gocron.NewScheduler(gocron.WithLogger(logger.Gocron(log)))
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}
	return &Scheduler{s: s, log: log.Named("scheduler")}, nil
}

// Every registers fn to run each interval. A run that overlaps the next tick
// is skipped rather than queued. Each run gets a context bounded by interval.
func (s *Scheduler) Every(name string, interval time.Duration, fn func(ctx context.Context) error) error {
	_, err := s.s.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), interval)
			defer cancel()
			start := time.Now()
			if err := fn(ctx); err != nil {
				s.log.Error("job failed", zap.String("job", name), zap.Error(err))
				return
			}
			s.log.Debug("job finished", zap.String("job", name), zap.Duration("took", time.Since(start)))
		}),
		gocron.WithName(name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("register job %s: %w", name, err)
	}
	return nil
}

// Run starts the jobs and blocks until ctx is done. Shutdown waits for
// running jobs to return.
func (s *Scheduler) Run(ctx context.Context) error {
	s.s.Start()
	<-ctx.Done()
	if err := s.s.Shutdown(); err != nil {
		return fmt.Errorf("scheduler shutdown: %w", err)
	}
	return nil
}
