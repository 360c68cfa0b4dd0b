// Package scheduler runs downloads on a cron schedule for `harvest schedule`.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rxtech-lab/argo-harvest/internal/config"
	"github.com/rxtech-lab/argo-harvest/internal/logger"
	"github.com/rxtech-lab/argo-harvest/pkg/errors"
	"go.uber.org/zap"
)

// Job is one scheduled unit of work, typically a full download run.
type Job func(ctx context.Context) error

// Scheduler triggers a job on a cron spec. Runs never overlap: a trigger that
// fires while the previous run is still going is skipped.
type Scheduler struct {
	cron    *cron.Cron
	job     Job
	logger  *logger.Logger
	ctx     context.Context
	running sync.Mutex
	entry   cron.EntryID
}

// New registers job under spec. The job receives ctx, so cancelling ctx also
// cancels a run in progress.
func New(ctx context.Context, spec string, job Job, log *logger.Logger) (*Scheduler, error) {
	if log == nil {
		log = logger.NewNopLogger()
	}

	log = log.Named("scheduler")

	s := &Scheduler{
		cron: cron.New(
			cron.WithParser(config.CronParser),
			cron.WithChain(cron.Recover(cronLogger{log: log})),
			cron.WithLogger(cronLogger{log: log}),
		),
		job:     job,
		logger:  log,
		ctx:     ctx,
		running: sync.Mutex{},
		entry:   0,
	}

	entry, err := s.cron.AddFunc(spec, func() { s.RunNow() })
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "register schedule %q", spec)
	}

	s.entry = entry

	return s, nil
}

// Start starts the cron scheduler in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("Scheduler started", zap.Time("next_run", s.Next()))
}

// Stop stops the scheduler and waits for a running job to return.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info("Scheduler stopped")
}

// Next returns the time of the next scheduled run, or the zero time when the
// scheduler is not started.
func (s *Scheduler) Next() time.Time {
	return s.cron.Entry(s.entry).Next
}

// RunNow executes the job immediately. It reports false when the run was
// skipped, either because another run is in progress or the context is done.
func (s *Scheduler) RunNow() bool {
	if !s.running.TryLock() {
		s.logger.Warn("Previous run still in progress, skipping")

		return false
	}
	defer s.running.Unlock()

	if s.ctx.Err() != nil {
		return false
	}

	start := time.Now()

	s.logger.Info("Scheduled run started")

	if err := s.job(s.ctx); err != nil {
		s.logger.Error("Scheduled run failed", zap.Error(err), zap.Duration("duration", time.Since(start)))

		return true
	}

	s.logger.Info("Scheduled run finished", zap.Duration("duration", time.Since(start)))

	return true
}

// Run starts the scheduler, optionally runs the job once right away and blocks
// until ctx is done.
func (s *Scheduler) Run(runOnStart bool) {
	s.Start()

	if runOnStart {
		s.RunNow()
	}

	<-s.ctx.Done()
	s.Stop()
}

// cronLogger routes cron's own messages into zap.
type cronLogger struct {
	log *logger.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.log.Sugar().Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.log.Sugar().Errorw(msg, append(keysAndValues, "error", err)...)
}
