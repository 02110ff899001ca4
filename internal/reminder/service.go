// Package reminder is the orchestration layer over the reminder store and
// the timer engine. It is the only code allowed to mutate the two together.
package reminder

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"remindbot/internal/clock"
	"remindbot/internal/scheduler"
	"remindbot/internal/storage"
	"remindbot/pkg/logx"
)

// MaxTextLen bounds reminder text length, counted in runes after trimming.
const MaxTextLen = 500

type Service struct {
	log   logx.Logger
	clk   *clock.Source
	store *storage.ReminderStore
	sched *scheduler.Service
}

func NewService(clk *clock.Source, store *storage.ReminderStore, sched *scheduler.Service, log logx.Logger) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Service{log: log, clk: clk, store: store, sched: sched}
}

// Create validates, persists and arms a new reminder.
//
// Write order: the reminder row is persisted first, the timer armed second.
// If arming fails the row survives and the next startup reconciliation
// re-arms it; the reverse order would leave an untracked timer with no
// durable backing.
func (s *Service) Create(ctx context.Context, userID, chatID int64, text string, remindTime time.Time) (storage.Reminder, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return storage.Reminder{}, ErrTextEmpty
	}
	if len([]rune(text)) > MaxTextLen {
		return storage.Reminder{}, ErrTextTooLong
	}
	now := s.clk.Now()
	if !remindTime.After(now) {
		return storage.Reminder{}, ErrPastTime
	}

	jobID := newJobID(userID)

	// If this id is somehow already armed, drop the old job rather than
	// letting two timers share one id.
	if s.sched.Exists(jobID) {
		s.log.Warn("job id already armed; replacing", logx.String("job_id", jobID))
		s.sched.Cancel(ctx, jobID)
	}

	rem, err := s.store.Insert(ctx, storage.Reminder{
		UserID:     userID,
		ChatID:     chatID,
		Text:       text,
		RemindTime: remindTime,
		CreatedAt:  now,
		JobID:      jobID,
	})
	if err != nil {
		if errors.Is(err, storage.ErrDuplicateJobID) {
			s.log.Error("job id collision on insert", logx.String("job_id", jobID))
		}
		return storage.Reminder{}, err
	}

	err = s.sched.Arm(ctx, jobID, remindTime, scheduler.Payload{ChatID: chatID, Text: text})
	if err != nil {
		// The row is durable; the next reconciliation pass re-arms it.
		s.log.Error("reminder persisted but timer not armed; recovered at next restart",
			logx.Int64("reminder_id", rem.ID),
			logx.String("job_id", jobID),
			logx.Err(err),
		)
		return rem, nil
	}

	s.log.Info("reminder created",
		logx.Int64("reminder_id", rem.ID),
		logx.Int64("user_id", userID),
		logx.Time("remind_time", remindTime),
	)
	return rem, nil
}

// Delete removes the reminder and cancels its job. The row removal is
// authoritative: a failed cancellation is logged, not propagated, because
// a fire against a deleted row is a no-op anyway.
func (s *Service) Delete(ctx context.Context, reminderID int64) (bool, error) {
	jobID, ok, err := s.store.DeleteByID(ctx, reminderID)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}
	if !s.sched.Cancel(ctx, jobID) {
		s.log.Debug("no live job for deleted reminder", logx.String("job_id", jobID))
	}
	s.log.Info("reminder deleted", logx.Int64("reminder_id", reminderID))
	return true, nil
}

// ListForUser returns the user's reminders that are still in the future,
// soonest first.
func (s *Service) ListForUser(ctx context.Context, userID int64) ([]storage.Reminder, error) {
	return s.store.ListActiveForUser(ctx, userID, s.clk.Now())
}

// RestoreOnStartup re-derives the timer set from durable storage. The
// composition root calls this once before serving traffic.
func (s *Service) RestoreOnStartup(ctx context.Context) error {
	return (&Reconciler{log: s.log, clk: s.clk, store: s.store, sched: s.sched}).Run(ctx)
}

func newJobID(userID int64) string {
	return fmt.Sprintf("reminder_%d_%s", userID, uuid.NewString())
}
