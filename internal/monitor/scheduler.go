package monitor

import (
	"context"
	"log/slog"
	"time"

	"github.com/couchcryptid/storm-data-shared/retry"

	"github.com/couchcryptid/wildfire-watch-service/internal/domain"
)

// initialBackoff is the first retry delay after a failed scheduled run.
const initialBackoff = 5 * time.Second

// Job is one batch analysis run.
type Job interface {
	AnalyzeZones(ctx context.Context) (JobResult, error)
}

// Scheduler runs the batch analysis job on a fixed interval. After a failed
// run the next attempt backs off exponentially, capped at the interval.
type Scheduler struct {
	job      Job
	interval time.Duration
	logger   *slog.Logger
}

// NewScheduler creates a Scheduler. interval must be positive.
func NewScheduler(job Job, interval time.Duration, logger *slog.Logger) *Scheduler {
	return &Scheduler{job: job, interval: interval, logger: logger}
}

// Run waits one interval, runs the job, and repeats until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Info("analysis scheduler started", "interval", s.interval)
	backoff := min(initialBackoff, s.interval)
	wait := s.interval

	for {
		if err := domain.Sleep(ctx, wait); err != nil {
			s.logger.Info("analysis scheduler stopping", "reason", err)
			return nil
		}

		res, err := s.job.AnalyzeZones(ctx)
		if err != nil {
			if ctx.Err() != nil {
				s.logger.Info("analysis scheduler stopping", "reason", ctx.Err())
				return nil
			}
			s.logger.Error("scheduled analysis failed",
				"zones_analyzed", res.ZonesAnalyzed,
				"retry_in", backoff,
				"error", err,
			)
			wait = backoff
			backoff = retry.NextBackoff(backoff, s.interval)
			continue
		}

		s.logger.Info("scheduled analysis complete",
			"zones_analyzed", res.ZonesAnalyzed,
			"alerts_created", res.AlertsCreated,
		)
		wait = s.interval
		backoff = min(initialBackoff, s.interval)
	}
}
