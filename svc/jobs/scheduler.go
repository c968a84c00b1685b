package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/dmitrymomot/wealthcrm/pkg/logger"
)

// JobFunc is the body of a scheduled job.
type JobFunc func(ctx context.Context) error

type job struct {
	name    string
	spec    string
	fn      JobFunc
	running atomic.Bool
}

// Scheduler runs registered jobs on cron schedules. A job never overlaps
// itself: a trigger that arrives while the previous run is still going is
// skipped, not queued.
type Scheduler struct {
	mu      sync.Mutex
	cron    *cron.Cron
	jobs    map[string]*job
	logger  *slog.Logger
	loc     *time.Location
	ctx     context.Context
	cancel  context.CancelFunc
	started bool
}

type SchedulerOption func(*Scheduler)

func WithSchedulerLogger(l *slog.Logger) SchedulerOption {
	return func(s *Scheduler) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithLocation sets the zone cron specs are evaluated in.
func WithLocation(loc *time.Location) SchedulerOption {
	return func(s *Scheduler) {
		if loc != nil {
			s.loc = loc
		}
	}
}

func NewScheduler(opts ...SchedulerOption) *Scheduler {
	s := &Scheduler{
		jobs:   make(map[string]*job),
		logger: slog.Default(),
		loc:    time.UTC,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.cron = cron.New(
		cron.WithLocation(s.loc),
		cron.WithChain(cron.Recover(cronLogger{s.logger})),
	)
	return s
}

// Register adds a job under a standard five-field cron spec or descriptor.
func (s *Scheduler) Register(name, spec string, fn JobFunc) error {
	if _, err := cron.ParseStandard(spec); err != nil {
		return errors.Join(ErrInvalidSchedule, fmt.Errorf("%s: %w", name, err))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.jobs[name]; ok {
		return fmt.Errorf("%w: %s", ErrJobExists, name)
	}

	j := &job{name: name, spec: spec, fn: fn}
	if _, err := s.cron.AddFunc(spec, func() { _ = s.run(s.runContext(), j) }); err != nil {
		return errors.Join(ErrInvalidSchedule, err)
	}
	s.jobs[name] = j
	return nil
}

// Start begins firing jobs. Runs get a context derived from ctx that is
// cancelled by Stop.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return
	}
	s.started = true
	s.ctx, s.cancel = context.WithCancel(context.WithoutCancel(ctx))
	s.cron.Start()

	s.logger.LogAttrs(ctx, slog.LevelInfo, "scheduler started",
		logger.Count(len(s.jobs)),
		slog.String("timezone", s.loc.String()),
	)
}

// Stop stops firing new runs and waits for running ones until ctx ends, at
// which point their context is cancelled.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return nil
	}
	s.started = false
	cancel := s.cancel
	s.mu.Unlock()

	done := s.cron.Stop()
	defer cancel()

	select {
	case <-done.Done():
		s.logger.LogAttrs(ctx, slog.LevelInfo, "scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run triggers a job immediately, subject to the same overlap guard as
// scheduled runs.
func (s *Scheduler) Run(ctx context.Context, name string) error {
	s.mu.Lock()
	j, ok := s.jobs[name]
	s.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownJob, name)
	}
	return s.run(ctx, j)
}

// Jobs lists registered job names.
func (s *Scheduler) Jobs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	names := make([]string, 0, len(s.jobs))
	for name := range s.jobs {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Running reports whether the named job is executing.
func (s *Scheduler) Running(name string) bool {
	s.mu.Lock()
	j, ok := s.jobs[name]
	s.mu.Unlock()
	return ok && j.running.Load()
}

func (s *Scheduler) runContext() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ctx
}

func (s *Scheduler) run(ctx context.Context, j *job) error {
	if !j.running.CompareAndSwap(false, true) {
		s.logger.LogAttrs(ctx, slog.LevelWarn, "job still running, trigger skipped", logger.Job(j.name))
		return ErrJobRunning
	}
	defer j.running.Store(false)

	start := time.Now()
	err := j.fn(ctx)
	if err != nil {
		s.logger.LogAttrs(ctx, slog.LevelError, "job failed",
			logger.Job(j.name),
			logger.Duration(time.Since(start)),
			logger.Error(err),
		)
		return err
	}

	s.logger.LogAttrs(ctx, slog.LevelDebug, "job finished",
		logger.Job(j.name),
		logger.Duration(time.Since(start)),
	)
	return nil
}

// cronLogger routes cron's internal messages to slog.
type cronLogger struct{ l *slog.Logger }

func (c cronLogger) Info(msg string, keysAndValues ...any) {
	c.l.Debug("cron: "+msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...any) {
	c.l.Error("cron: "+msg, append([]any{logger.Error(err)}, keysAndValues...)...)
}

// RunCleanup triggers the expiry cleanup now.
func (s *Scheduler) RunCleanup(ctx context.Context) error {
	return s.Run(ctx, JobCleanup)
}

// RunDigest triggers the digest job now.
func (s *Scheduler) RunDigest(ctx context.Context) error {
	return s.Run(ctx, JobDigest)
}
