// Package scheduler runs a job at a fixed interval until stopped.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"autoresponder/internal/logger"
)

// Job is one scheduled run. It should return promptly once ctx is done.
type Job func(ctx context.Context) error

// DefaultJobTimeout bounds a single run.
const DefaultJobTimeout = 30 * time.Second

// Scheduler runs a job immediately and then on every tick.
type Scheduler struct {
	name     string
	interval time.Duration
	timeout  time.Duration
	job      Job
	clock    clock.Clock

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New creates a scheduler for job. A non-positive interval is replaced by
// one second.
func New(name string, interval time.Duration, job Job) *Scheduler {
	if interval <= 0 {
		interval = time.Second
	}
	return &Scheduler{
		name:     name,
		interval: interval,
		timeout:  DefaultJobTimeout,
		job:      job,
		clock:    clock.New(),
	}
}

// WithClock replaces the clock driving the ticker.
func (s *Scheduler) WithClock(c clock.Clock) *Scheduler {
	s.clock = c
	return s
}

// WithTimeout replaces the per-run timeout.
func (s *Scheduler) WithTimeout(d time.Duration) *Scheduler {
	s.timeout = d
	return s
}

// Start begins the schedule. Calling Start on a running scheduler is a no-op.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = true

	ctx, s.cancel = context.WithCancel(ctx)
	s.mu.Unlock()

	log := logger.WithComponent("scheduler")
	log.Debug().Str("job", s.name).Dur("interval", s.interval).Msg("Starting scheduler")

	s.wg.Add(1)
	go s.loop(ctx)
	return nil
}

// Stop cancels the schedule and waits for the current run to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.cancel()
	s.mu.Unlock()

	s.wg.Wait()
	log := logger.WithComponent("scheduler")
	log.Debug().Str("job", s.name).Msg("Scheduler stopped")
}

// IsRunning returns whether the scheduler is currently running.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *Scheduler) loop(ctx context.Context) {
	defer s.wg.Done()

	// The ticker exists before the first run so no tick is lost while it
	// executes.
	ticker := s.clock.Ticker(s.interval)
	defer ticker.Stop()

	s.run(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.run(ctx)
		}
	}
}

func (s *Scheduler) run(ctx context.Context) {
	log := logger.WithComponent("scheduler")

	runCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := s.clock.Now()
	err := s.job(runCtx)
	duration := s.clock.Since(start)

	if err != nil && ctx.Err() == nil {
		log.Error().
			Err(err).
			Str("job", s.name).
			Dur("duration", duration).
			Msg("Scheduled run failed")
		return
	}

	log.Debug().
		Str("job", s.name).
		Dur("duration", duration).
		Msg("Scheduled run completed")
}
