package service

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

type weekResetter interface {
	ResetWeek(ctx context.Context) (ResetResult, error)
}

type exportCleaner interface {
	Cleanup(ttl time.Duration) ([]string, error)
}

type shareForgetter interface {
	Forget(cutoff time.Time) int
}

// SchedulerConfig selects the periodic jobs to run.
type SchedulerConfig struct {
	WeekResetEnabled  bool
	WeekResetSchedule string
	CleanupInterval   time.Duration
	ResultTTL         time.Duration
	Location          *time.Location
}

// Scheduler runs the start-of-week reset and export cleanup on cron schedules.
type Scheduler struct {
	cron     *cron.Cron
	resetter weekResetter
	cleaner  exportCleaner
	shares   shareForgetter
	cfg      SchedulerConfig
	logger   *zap.Logger
}

// NewScheduler registers the enabled jobs. Nothing runs until Start.
func NewScheduler(resetter weekResetter, cleaner exportCleaner, shares shareForgetter, cfg SchedulerConfig, logger *zap.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = time.Hour
	}
	cronLogger := cronLog{logger: logger.Sugar()}
	s := &Scheduler{
		cron:     cron.New(cron.WithLocation(cfg.Location), cron.WithChain(cron.SkipIfStillRunning(cronLogger)), cron.WithLogger(cronLogger)),
		resetter: resetter,
		cleaner:  cleaner,
		shares:   shares,
		cfg:      cfg,
		logger:   logger,
	}

	if cfg.WeekResetEnabled && resetter != nil {
		if _, err := s.cron.AddFunc(cfg.WeekResetSchedule, s.RunWeekReset); err != nil {
			return nil, fmt.Errorf("schedule week reset %q: %w", cfg.WeekResetSchedule, err)
		}
	}
	if cfg.CleanupInterval > 0 && cleaner != nil {
		if _, err := s.cron.AddFunc("@every "+cfg.CleanupInterval.String(), s.RunCleanup); err != nil {
			return nil, fmt.Errorf("schedule export cleanup: %w", err)
		}
	}
	return s, nil
}

// Jobs reports how many jobs are registered.
func (s *Scheduler) Jobs() int {
	return len(s.cron.Entries())
}

// Start begins running jobs in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("scheduler started", zap.Int("jobs", s.Jobs()), zap.String("timezone", s.cfg.Location.String()))
}

// Stop halts scheduling and waits for running jobs until ctx expires.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		s.logger.Warn("scheduler stop timed out")
	}
}

// RunWeekReset clears the weekly flags.
func (s *Scheduler) RunWeekReset() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	if _, err := s.resetter.ResetWeek(ctx); err != nil {
		s.logger.Error("scheduled week reset failed", zap.Error(err))
	}
}

// RunCleanup deletes expired export files and forgets their jobs.
func (s *Scheduler) RunCleanup() {
	removed, err := s.cleaner.Cleanup(s.cfg.ResultTTL)
	if err != nil {
		s.logger.Warn("export cleanup failed", zap.Error(err))
		return
	}
	forgotten := 0
	if s.shares != nil {
		forgotten = s.shares.Forget(time.Now().Add(-s.cfg.ResultTTL))
	}
	if len(removed) > 0 || forgotten > 0 {
		s.logger.Info("export cleanup", zap.Int("files", len(removed)), zap.Int("jobs", forgotten))
	}
}

type cronLog struct {
	logger *zap.SugaredLogger
}

func (l cronLog) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debugw(msg, keysAndValues...)
}

func (l cronLog) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Errorw(msg, append(keysAndValues, "error", err)...)
}
