package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// JobFunc is a unit of scheduled work.
type JobFunc func(ctx context.Context) error

// JobID identifies a registered job.
type JobID = cron.EntryID

// OverlapPolicy decides what happens when a job fires while its previous
// run is still in progress.
type OverlapPolicy int

const (
	// AllowOverlap runs executions concurrently (default).
	AllowOverlap OverlapPolicy = iota
	// SkipIfRunning drops the execution.
	SkipIfRunning
	// DelayIfRunning waits for the previous execution to finish.
	DelayIfRunning
)

func (p OverlapPolicy) String() string {
	switch p {
	case SkipIfRunning:
		return "skip"
	case DelayIfRunning:
		return "delay"
	default:
		return "allow"
	}
}

// JobOptions configures a single job.
type JobOptions struct {
	Name          string
	Timeout       time.Duration
	OverlapPolicy OverlapPolicy
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error(msg, append([]interface{}{"error", err}, keysAndValues...)...)
}

// Scheduler runs cron jobs against a shared lifetime context.
type Scheduler struct {
	cron      *cron.Cron
	logger    *slog.Logger
	ctx       context.Context
	cancel    context.CancelFunc
	startOnce sync.Once
	stopOnce  sync.Once
	done      chan struct{}
}

// Config configures a Scheduler.
type Config struct {
	Logger *slog.Logger
}

// New creates a scheduler. Schedules accept an optional seconds field and
// the @every/@hourly descriptors.
func New(cfg Config) *Scheduler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "scheduler")

	ctx, cancel := context.WithCancel(context.Background())
	parser := cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

	return &Scheduler{
		cron:   cron.New(cron.WithParser(parser), cron.WithLogger(cronLogger{logger: logger})),
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
}

// Add registers job under schedule, for example "@every 1m" or "*/30 * * * * *".
func (s *Scheduler) Add(schedule string, job JobFunc, opts JobOptions) (JobID, error) {
	if opts.Name == "" {
		opts.Name = "unnamed"
	}

	var wrappers []cron.JobWrapper
	cl := cronLogger{logger: s.logger.With("name", opts.Name)}
	switch opts.OverlapPolicy {
	case SkipIfRunning:
		wrappers = append(wrappers, cron.SkipIfStillRunning(cl))
	case DelayIfRunning:
		wrappers = append(wrappers, cron.DelayIfStillRunning(cl))
	}

	id, err := s.cron.AddJob(schedule, cron.NewChain(wrappers...).Then(cron.FuncJob(func() {
		s.run(job, opts)
	})))
	if err != nil {
		return 0, fmt.Errorf("add job %q: %w", opts.Name, err)
	}

	s.logger.Info("job added", "name", opts.Name, "schedule", schedule, "overlap_policy", opts.OverlapPolicy.String(), "id", id)
	return id, nil
}

// Remove unregisters a job. Runs already in progress finish normally.
func (s *Scheduler) Remove(id JobID) {
	s.cron.Remove(id)
}

// Start begins firing jobs. Calling it more than once has no effect.
func (s *Scheduler) Start() {
	s.startOnce.Do(func() {
		s.logger.Info("starting scheduler")
		s.cron.Start()
	})
}

// Stop cancels the context handed to running jobs and waits for them to
// return, or for ctx to end first.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.stopOnce.Do(func() {
		s.cancel()
		go func() {
			<-s.cron.Stop().Done()
			close(s.done)
		}()
	})

	select {
	case <-s.done:
		s.logger.Info("scheduler stopped")
		return nil
	case <-ctx.Done():
		s.logger.Warn("scheduler stop deadline exceeded")
		return ctx.Err()
	}
}

func (s *Scheduler) run(job JobFunc, opts JobOptions) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("job panicked", "name", opts.Name, "panic", r)
		}
	}()

	ctx := s.ctx
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	start := time.Now()
	err := job(ctx)
	duration := time.Since(start)
	if err != nil {
		s.logger.Error("job failed", "name", opts.Name, "error", err, "duration", duration)
		return
	}
	s.logger.Debug("job completed", "name", opts.Name, "duration", duration)
}
