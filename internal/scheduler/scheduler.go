// Package scheduler refreshes the shared upcoming snapshot shortly after
// the server's date changes, so the first request of the day does not pay
// for the rebuild.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// DefaultSpec runs one minute after midnight.
const DefaultSpec = "1 0 * * *"

// Warmer rebuilds a snapshot covering days days.
type Warmer interface {
	Warm(days int) error
}

type Scheduler struct {
	mu       sync.Mutex
	cron     *cron.Cron
	schedule cron.Schedule
	warmer   Warmer
	days     int
	logger   *slog.Logger
	cancel   context.CancelFunc
	done     chan struct{}
}

// New parses spec (standard five-field cron syntax) in loc.
func New(w Warmer, spec string, days int, loc *time.Location, logger *slog.Logger) (*Scheduler, error) {
	if spec == "" {
		spec = DefaultSpec
	}
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = slog.Default()
	}
	schedule, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("parse warm schedule %q: %w", spec, err)
	}

	s := &Scheduler{
		cron:     cron.New(cron.WithLocation(loc)),
		schedule: schedule,
		warmer:   w,
		days:     days,
		logger:   logger.With("component", "scheduler"),
	}
	s.cron.Schedule(schedule, cron.FuncJob(s.warm))
	return s, nil
}

// Next reports when the warm-up runs after t.
func (s *Scheduler) Next(t time.Time) time.Time {
	return s.schedule.Next(t.In(s.cron.Location()))
}

// Start runs the cron loop until ctx is cancelled or Stop is called.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	s.mu.Unlock()

	s.cron.Start()
	s.logger.Info("scheduler started", "next", s.Next(time.Now()).Format(time.RFC3339))

	go func() {
		defer close(s.done)
		<-ctx.Done()
		<-s.cron.Stop().Done()
	}()
}

// Stop halts the loop and waits for a running warm-up to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

func (s *Scheduler) warm() {
	start := time.Now()
	if err := s.warmer.Warm(s.days); err != nil {
		s.logger.Error("warm upcoming snapshot", "error", err)
		return
	}
	s.logger.Info("upcoming snapshot warmed", "days", s.days, "duration", time.Since(start))
}
