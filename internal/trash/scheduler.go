package trash

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/JaimeStill/libris/pkg/lifecycle"
)

// Scheduler triggers reclamation runs on a cron schedule.
type Scheduler struct {
	cron     *cron.Cron
	schedule cron.Schedule
	worker   System
	spec     string
	timeout  time.Duration
	logger   *slog.Logger
}

// NewScheduler parses spec (standard five-field cron or a descriptor such
// as "@daily") and prepares a scheduler. Each run is bounded by timeout.
func NewScheduler(worker System, spec string, timeout time.Duration, logger *slog.Logger) (*Scheduler, error) {
	schedule, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("parse schedule %q: %w", spec, err)
	}

	logger = logger.With("system", "trash-scheduler")
	cl := cronLogger{logger}

	c := cron.New(
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)

	return &Scheduler{
		cron:     c,
		schedule: schedule,
		worker:   worker,
		spec:     spec,
		timeout:  timeout,
		logger:   logger,
	}, nil
}

// Start registers the job and starts the cron loop. On shutdown it stops the
// loop and waits for an in-flight run to return before the database and blob
// store close.
func (s *Scheduler) Start(lc *lifecycle.Coordinator) error {
	s.logger.Info("starting trash scheduler", "schedule", s.spec)

	s.cron.Schedule(s.schedule, cron.FuncJob(func() { s.run(lc.Context()) }))
	s.cron.Start()

	lc.OnDrain(func() {
		<-s.cron.Stop().Done()
		s.logger.Info("trash scheduler stopped")
	})

	return nil
}

// Next returns the next scheduled run time, or the zero time before Start.
func (s *Scheduler) Next() time.Time {
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}

func (s *Scheduler) run(parent context.Context) {
	ctx := parent
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(parent, s.timeout)
		defer cancel()
	}

	if _, err := s.worker.Run(ctx); err != nil {
		if IsCanceled(err) {
			s.logger.Warn("scheduled reclamation interrupted", "error", err)
			return
		}
		s.logger.Error("scheduled reclamation failed", "error", err)
	}
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error(msg, append(keysAndValues, "error", err)...)
}
