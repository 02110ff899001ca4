// Package scheduler is the in-memory timer engine behind reminder delivery.
//
// Each armed job is one clock.AfterFunc timer keyed by job id. Durability is
// delegated to the job store: Arm persists the job before the timer exists,
// so a crash in between is recovered by the startup reconciliation pass.
//
// Arming an id that is already armed replaces the previous timer (upsert
// semantics); cancelling an unknown id is a no-op. A fire time in the past
// arms a zero-delay timer: a reminder that was missed while the process was
// down is delivered late rather than dropped.
//
// Cancellation is best effort before fire: a Cancel that lands after a
// callback has passed its version check but before the send completes does
// not stop that delivery. The window is bounded by one send and is accepted
// rather than closed with locking around the network call.
package scheduler

import (
	"context"
	"sync"
	"time"

	bclock "github.com/benbjohnson/clock"

	"remindbot/internal/clock"
	"remindbot/internal/storage"
	"remindbot/pkg/logx"
)

// Delivery is invoked exactly once per armed job unless the job is
// cancelled first. Failures are the callback's own concern; the engine
// logs them and does not retry.
type Delivery func(ctx context.Context, chatID int64, text string) error

// Payload is what a fired job delivers.
type Payload struct {
	ChatID int64
	Text   string
}

// fireTimeout bounds a single delivery invocation so a hung send cannot
// pin the timer goroutine forever.
const fireTimeout = time.Minute

// stateTimeout bounds the bookkeeping write after a fire. It is separate
// from the delivery budget: the job row must reach its terminal state even
// when the delivery ran its own context to exhaustion.
const stateTimeout = 10 * time.Second

type Service struct {
	log     logx.Logger
	clk     *clock.Source
	jobs    *storage.JobStore
	deliver Delivery

	// deliverTimeout defaults to fireTimeout; tests shorten it.
	deliverTimeout time.Duration

	mu     sync.Mutex
	timers map[string]*bclock.Timer
	// ver lets a replaced or cancelled timer's pending callback recognize
	// itself as stale and bail out. Versions come from a global sequence so
	// a freshly re-armed id can never collide with an old callback's version.
	ver map[string]uint64
	seq uint64
}

func New(clk *clock.Source, jobs *storage.JobStore, deliver Delivery, log logx.Logger) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Service{
		log:            log,
		clk:            clk,
		jobs:           jobs,
		deliver:        deliver,
		deliverTimeout: fireTimeout,
		timers:         map[string]*bclock.Timer{},
		ver:            map[string]uint64{},
	}
}

// Arm persists the job as pending and starts its timer. An existing job
// with the same id is replaced.
func (s *Service) Arm(ctx context.Context, jobID string, fireTime time.Time, p Payload) error {
	// Persist before arming: a reminder without a live timer is recoverable,
	// a live timer without a durable job is not.
	err := s.jobs.Put(ctx, storage.Job{
		JobID:    jobID,
		FireTime: fireTime,
		ChatID:   p.ChatID,
		Text:     p.Text,
	})
	if err != nil {
		return err
	}

	s.mu.Lock()
	if t, ok := s.timers[jobID]; ok {
		_ = t.Stop()
		delete(s.timers, jobID)
	}
	s.seq++
	ver := s.seq
	s.ver[jobID] = ver

	delay := fireTime.Sub(s.clk.Now())
	if delay < 0 {
		delay = 0
	}
	s.timers[jobID] = s.clk.AfterFunc(delay, func() {
		s.fire(jobID, ver, p)
	})
	s.mu.Unlock()

	s.log.Debug("job armed",
		logx.String("job_id", jobID),
		logx.Time("fire_time", fireTime),
		logx.Duration("delay", delay),
	)
	return nil
}

func (s *Service) fire(jobID string, ver uint64, p Payload) {
	s.mu.Lock()
	if s.ver[jobID] != ver {
		// Replaced or cancelled while the callback was in flight.
		s.mu.Unlock()
		return
	}
	delete(s.timers, jobID)
	delete(s.ver, jobID)
	s.mu.Unlock()

	dctx, dcancel := context.WithTimeout(context.Background(), s.deliverTimeout)
	err := s.deliver(dctx, p.ChatID, p.Text)
	dcancel()
	if err != nil {
		s.log.Error("delivery failed",
			logx.String("job_id", jobID),
			logx.Int64("chat_id", p.ChatID),
			logx.Err(err),
		)
	}

	// The job ran; it never runs again under this id. The state write gets
	// its own context: a timed-out delivery has exhausted dctx, and riding
	// it would leave the row pending forever.
	sctx, scancel := context.WithTimeout(context.Background(), stateTimeout)
	defer scancel()
	if err := s.jobs.SetState(sctx, jobID, storage.JobFired); err != nil {
		s.log.Warn("job state update failed", logx.String("job_id", jobID), logx.Err(err))
	}
	s.log.Info("job fired", logx.String("job_id", jobID))
}

// Cancel stops the timer and marks the durable job cancelled. It reports
// whether any job was found; cancelling twice is not an error.
func (s *Service) Cancel(ctx context.Context, jobID string) bool {
	s.mu.Lock()
	t, found := s.timers[jobID]
	if found {
		_ = t.Stop()
		delete(s.timers, jobID)
	}
	delete(s.ver, jobID)
	s.mu.Unlock()

	j, err := s.jobs.Get(ctx, jobID)
	if err == nil && j.State == storage.JobPending {
		found = true
	}
	if err := s.jobs.SetState(ctx, jobID, storage.JobCancelled); err != nil {
		s.log.Warn("job cancel persist failed", logx.String("job_id", jobID), logx.Err(err))
	}

	if found {
		s.log.Debug("job cancelled", logx.String("job_id", jobID))
	}
	return found
}

// Exists reports whether a live timer is armed for id.
func (s *Service) Exists(jobID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.timers[jobID]
	return ok
}

// Count returns the number of live timers.
func (s *Service) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

// ClearAll drops every in-memory timer without touching the job store.
// Reconciliation calls this before a full re-arm pass so stale timers from
// a previous incarnation cannot double-fire.
func (s *Service) ClearAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, t := range s.timers {
		_ = t.Stop()
		delete(s.timers, id)
	}
	for id := range s.ver {
		delete(s.ver, id)
	}
}
