// Package janitor periodically purges terminal jobs and long-past
// reminders so the database does not grow without bound.
package janitor

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"remindbot/internal/clock"
	"remindbot/internal/storage"
	"remindbot/pkg/logx"
)

type Config struct {
	// Schedule is a cron spec or descriptor ("@every 1h", "@daily").
	Schedule string
	// KeepFor is how long fired/cancelled jobs and elapsed reminders are
	// retained before being purged.
	KeepFor time.Duration
}

type Service struct {
	log  logx.Logger
	clk  *clock.Source
	rems *storage.ReminderStore
	jobs *storage.JobStore

	mu  sync.Mutex
	cfg Config
	c   *cron.Cron
}

func New(cfg Config, clk *clock.Source, rems *storage.ReminderStore, jobs *storage.JobStore, log logx.Logger) *Service {
	if cfg.Schedule == "" {
		cfg.Schedule = "@every 1h"
	}
	if cfg.KeepFor <= 0 {
		cfg.KeepFor = 24 * time.Hour
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Service{cfg: cfg, log: log, clk: clk, rems: rems, jobs: jobs}
}

func (s *Service) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.startLocked()
}

func (s *Service) startLocked() error {
	c := cron.New(cron.WithLocation(s.clk.Location()))
	if _, err := c.AddFunc(s.cfg.Schedule, s.Sweep); err != nil {
		return err
	}
	s.c = c
	c.Start()
	s.log.Info("janitor started", logx.String("schedule", s.cfg.Schedule), logx.Duration("keep_for", s.cfg.KeepFor))
	return nil
}

// Apply reconfigures the running janitor; schedule changes restart the cron.
// Applying to a stopped janitor only updates the stored config.
func (s *Service) Apply(cfg Config) error {
	if cfg.Schedule == "" {
		cfg.Schedule = "@every 1h"
	}
	if cfg.KeepFor <= 0 {
		cfg.KeepFor = 24 * time.Hour
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	restart := s.c != nil && cfg.Schedule != s.cfg.Schedule
	s.cfg = cfg
	if !restart {
		return nil
	}
	s.c.Stop()
	s.c = nil
	return s.startLocked()
}

func (s *Service) Stop(ctx context.Context) {
	s.mu.Lock()
	c := s.c
	s.c = nil
	s.mu.Unlock()
	if c == nil {
		return
	}
	select {
	case <-c.Stop().Done():
	case <-ctx.Done():
	}
	s.log.Info("janitor stopped")
}

// Sweep runs one purge pass. Exported so a pass can be forced in tests.
func (s *Service) Sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	s.mu.Lock()
	keepFor := s.cfg.KeepFor
	s.mu.Unlock()
	cutoff := s.clk.Now().Add(-keepFor)

	jobsPurged, err := s.jobs.DeleteTerminalBefore(ctx, cutoff)
	if err != nil {
		s.log.Warn("job purge failed", logx.Err(err))
	}
	// Pending rows past the cutoff are orphans (elapsed while the process
	// was down, or a failed terminal-state update); nothing else removes them.
	stalePurged, err := s.jobs.DeleteStalePendingBefore(ctx, cutoff)
	if err != nil {
		s.log.Warn("stale job purge failed", logx.Err(err))
	}
	remsPurged, err := s.rems.DeleteBefore(ctx, cutoff)
	if err != nil {
		s.log.Warn("reminder purge failed", logx.Err(err))
	}

	if jobsPurged > 0 || stalePurged > 0 || remsPurged > 0 {
		s.log.Info("janitor sweep",
			logx.Int64("jobs_purged", jobsPurged),
			logx.Int64("stale_jobs_purged", stalePurged),
			logx.Int64("reminders_purged", remsPurged),
			logx.Time("cutoff", cutoff),
		)
	}
}
