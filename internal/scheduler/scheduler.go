// Package scheduler runs periodic jobs such as the reminder check, either
// cooperatively from an input loop or in the background on a cron runner.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

type JobFunc func(ctx context.Context) error

type job struct {
	name     string
	spec     string
	schedule cron.Schedule
	fn       JobFunc
	next     time.Time
}

type Scheduler struct {
	log *zap.Logger
	now func() time.Time
	loc *time.Location

	mu   sync.Mutex
	jobs []*job

	cron   *cron.Cron
	ctx    context.Context
	cancel context.CancelFunc
}

type Option func(*Scheduler)

func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

func WithLocation(loc *time.Location) Option {
	return func(s *Scheduler) { s.loc = loc }
}

func New(log *zap.Logger, opts ...Option) *Scheduler {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Scheduler{log: log, now: time.Now, loc: time.UTC}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Every registers fn under a standard cron spec ("*/5 * * * *",
// "@every 60s", "@hourly"). The first run is the schedule's next activation
// after registration.
func (s *Scheduler) Every(name, spec string, fn JobFunc) error {
	sched, err := cron.ParseStandard(spec)
	if err != nil {
		return fmt.Errorf("parse schedule %q for %s: %w", spec, name, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs = append(s.jobs, &job{
		name:     name,
		spec:     spec,
		schedule: sched,
		fn:       fn,
		next:     sched.Next(s.now().In(s.loc)),
	})
	return nil
}

// RunPending runs, on the calling goroutine, every job whose activation
// time has passed, and reports how many ran. Job errors are logged.
func (s *Scheduler) RunPending(ctx context.Context) int {
	now := s.now().In(s.loc)

	s.mu.Lock()
	var due []*job
	for _, j := range s.jobs {
		if !j.next.After(now) {
			due = append(due, j)
			j.next = j.schedule.Next(now)
		}
	}
	s.mu.Unlock()

	for _, j := range due {
		s.runJob(ctx, j)
	}
	return len(due)
}

// NextRun reports when the named job will next be run by RunPending.
func (s *Scheduler) NextRun(name string) (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, j := range s.jobs {
		if j.name == name {
			return j.next, true
		}
	}
	return time.Time{}, false
}

// Start hands every registered job to a background cron runner. Use
// either Start or RunPending for a given scheduler, not both.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron != nil {
		return
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())
	logger := cronLogger{s.log.Sugar()}
	s.cron = cron.New(
		cron.WithLocation(s.loc),
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)
	ctx := s.ctx
	for _, j := range s.jobs {
		s.cron.Schedule(j.schedule, cron.FuncJob(func() { s.runJob(ctx, j) }))
	}
	s.cron.Start()
	s.log.Info("scheduler started", zap.Int("jobs", len(s.jobs)))
}

// Stop waits for running jobs to finish and stops the background runner.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	c, cancel := s.cron, s.cancel
	s.cron, s.cancel = nil, nil
	s.mu.Unlock()

	if c == nil {
		return
	}
	<-c.Stop().Done()
	cancel()
	s.log.Info("scheduler stopped")
}

func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cron != nil
}

func (s *Scheduler) runJob(ctx context.Context, j *job) {
	start := time.Now()
	if err := j.fn(ctx); err != nil {
		s.log.Error("scheduled job failed", zap.String("job", j.name), zap.Error(err))
		return
	}
	s.log.Debug("scheduled job done", zap.String("job", j.name), zap.Duration("took", time.Since(start)))
}

// cronLogger adapts zap to cron.Logger.
type cronLogger struct {
	s *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.s.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.s.Errorw(msg, append(keysAndValues, "error", err)...)
}
