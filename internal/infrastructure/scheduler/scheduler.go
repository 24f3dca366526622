// Package scheduler runs recurring jobs such as the nightly delinquency sweep.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Job is one run of a scheduled task.
type Job func(ctx context.Context) error

// Scheduler wraps a cron runner with standard five-field expressions.
type Scheduler struct {
	cron    *cron.Cron
	logger  zerolog.Logger
	timeout time.Duration
	mu      sync.Mutex
	entries map[string]cron.EntryID
}

// New creates a Scheduler. Each job run gets its own context bounded by timeout.
func New(logger zerolog.Logger, location *time.Location, timeout time.Duration) *Scheduler {
	if location == nil {
		location = time.UTC
	}
	if timeout <= 0 {
		timeout = 30 * time.Minute
	}

	return &Scheduler{
		cron:    cron.New(cron.WithLocation(location), cron.WithParser(parser)),
		logger:  logger.With().Str("component", "scheduler").Logger(),
		timeout: timeout,
		entries: make(map[string]cron.EntryID),
	}
}

var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// Validate checks a cron expression.
func Validate(spec string) error {
	_, err := parser.Parse(spec)
	return err
}

// Add registers job under name, replacing an existing job of the same name.
func (s *Scheduler) Add(name, spec string, job Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id, ok := s.entries[name]; ok {
		s.cron.Remove(id)
	}

	id, err := s.cron.AddFunc(spec, func() { s.run(name, job) })
	if err != nil {
		return fmt.Errorf("schedule %s: %w", name, err)
	}
	s.entries[name] = id

	s.logger.Info().Str("job", name).Str("cron", spec).Msg("job scheduled")
	return nil
}

// RunNow executes the named job synchronously.
func (s *Scheduler) RunNow(name string, job Job) {
	s.run(name, job)
}

func (s *Scheduler) run(name string, job Job) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	started := time.Now()
	if err := job(ctx); err != nil {
		s.logger.Error().Err(err).Str("job", name).Dur("duration", time.Since(started)).Msg("job failed")
		return
	}
	s.logger.Info().Str("job", name).Dur("duration", time.Since(started)).Msg("job finished")
}

// Next returns the next run time of the named job.
func (s *Scheduler) Next(name string) (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.entries[name]
	if !ok {
		return time.Time{}, false
	}
	return s.cron.Entry(id).Next, true
}

// Start runs jobs in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop waits for running jobs to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}
