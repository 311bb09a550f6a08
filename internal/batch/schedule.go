package batch

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/phrazzld/docpipe/internal/platform/logger"
)

// Scheduler runs the ingestion job once per day at a fixed UTC wall
// clock time.
type Scheduler struct {
	job    *Job
	hour   int
	minute int
	logger *slog.Logger
}

// NewScheduler creates a daily scheduler. dailyTimeUTC is "HH:mm" on
// the UTC wall clock.
func NewScheduler(job *Job, dailyTimeUTC string, log *slog.Logger) (*Scheduler, error) {
	hour, minute, err := parseDailyTime(dailyTimeUTC)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = slog.Default()
	}
	return &Scheduler{
		job:    job,
		hour:   hour,
		minute: minute,
		logger: log.With(slog.String("component", "batch_scheduler")),
	}, nil
}

// Run blocks until ctx is done, executing the job at each daily
// trigger. The delay to the next run is recomputed after every wake so
// clock drift never accumulates.
func (s *Scheduler) Run(ctx context.Context) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	for {
		next := nextRun(time.Now().UTC(), s.hour, s.minute)
		delay := time.Until(next)
		log.Info("next ingestion run scheduled",
			slog.Time("at", next),
			slog.Duration("in", delay))

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		if err := s.job.Run(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Error("scheduled ingestion run failed",
				slog.String("error", err.Error()))
		}
	}
}

// nextRun returns the first instant strictly after now whose UTC wall
// clock reads hour:minute.
func nextRun(now time.Time, hour, minute int) time.Time {
	now = now.UTC()
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, time.UTC)
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// parseDailyTime parses "HH:mm" into its hour and minute components.
func parseDailyTime(raw string) (hour, minute int, err error) {
	parts := strings.Split(raw, ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid daily time %q, want HH:mm", raw)
	}
	hour, err = strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("invalid hour in daily time %q", raw)
	}
	minute, err = strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("invalid minute in daily time %q", raw)
	}
	return hour, minute, nil
}
