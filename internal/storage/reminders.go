package storage

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"
)

// ReminderStore is the durable CRUD layer for reminders.
// It is the only component allowed to touch the reminders table.
type ReminderStore struct {
	db *sql.DB
}

// Insert persists a new reminder and returns the stored record with the
// generated id and created_at filled in. A job_id collision returns
// ErrDuplicateJobID.
func (s *ReminderStore) Insert(ctx context.Context, r Reminder) (Reminder, error) {
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO reminders(user_id, chat_id, text, remind_time, created_at, job_id)
		 VALUES(?,?,?,?,?,?)`,
		r.UserID, r.ChatID, r.Text, encodeTime(r.RemindTime), encodeTime(r.CreatedAt), r.JobID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return Reminder{}, ErrDuplicateJobID
		}
		return Reminder{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return Reminder{}, err
	}
	r.ID = id
	return r, nil
}

// ListActiveForUser returns the user's reminders with remind_time strictly
// after now, soonest first.
func (s *ReminderStore) ListActiveForUser(ctx context.Context, userID int64, now time.Time) ([]Reminder, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, chat_id, text, remind_time, created_at, job_id
		 FROM reminders
		 WHERE user_id = ? AND remind_time > ?
		 ORDER BY remind_time ASC`,
		userID, encodeTime(now),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanReminders(rows)
}

// ListAllActive returns every active reminder across users, soonest first.
// Used by the startup reconciliation pass.
func (s *ReminderStore) ListAllActive(ctx context.Context, now time.Time) ([]Reminder, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, chat_id, text, remind_time, created_at, job_id
		 FROM reminders
		 WHERE remind_time > ?
		 ORDER BY remind_time ASC`,
		encodeTime(now),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanReminders(rows)
}

// DeleteByID removes the reminder and returns its job_id so the caller can
// cancel the matching scheduler job. ok is false when no row existed.
func (s *ReminderStore) DeleteByID(ctx context.Context, id int64) (jobID string, ok bool, err error) {
	err = s.db.QueryRowContext(ctx,
		`DELETE FROM reminders WHERE id = ? RETURNING job_id`, id,
	).Scan(&jobID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return jobID, true, nil
}

// DeleteBefore purges reminders whose remind_time is older than cutoff.
// Janitor support; delivered reminders are otherwise kept as history.
func (s *ReminderStore) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM reminders WHERE remind_time < ?`, encodeTime(cutoff),
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func scanReminders(rows *sql.Rows) ([]Reminder, error) {
	var out []Reminder
	for rows.Next() {
		var (
			r                  Reminder
			remindAt, createdAt string
		)
		if err := rows.Scan(&r.ID, &r.UserID, &r.ChatID, &r.Text, &remindAt, &createdAt, &r.JobID); err != nil {
			return nil, err
		}
		var err error
		if r.RemindTime, err = decodeTime(remindAt); err != nil {
			return nil, err
		}
		if r.CreatedAt, err = decodeTime(createdAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func isUniqueViolation(err error) bool {
	// modernc.org/sqlite reports constraint failures in the error text;
	// matching on the message keeps us off driver-internal error types.
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
