package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// JobStore is the scheduler's durable state: one row per armed job.
type JobStore struct {
	db *sql.DB
}

// Put upserts a job as pending. Arming an id that was fired or cancelled
// replaces the old row with a fresh pending one.
func (s *JobStore) Put(ctx context.Context, j Job) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO jobs(job_id, fire_time, chat_id, text, state)
		 VALUES(?,?,?,?,'pending')
		 ON CONFLICT(job_id) DO UPDATE SET
		   fire_time = excluded.fire_time,
		   chat_id   = excluded.chat_id,
		   text      = excluded.text,
		   state     = 'pending'`,
		j.JobID, encodeTime(j.FireTime), j.ChatID, j.Text,
	)
	return err
}

// Get returns the job for id, or ErrNotFound.
func (s *JobStore) Get(ctx context.Context, jobID string) (Job, error) {
	var (
		j        Job
		fireTime string
		state    string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT job_id, fire_time, chat_id, text, state FROM jobs WHERE job_id = ?`,
		jobID,
	).Scan(&j.JobID, &fireTime, &j.ChatID, &j.Text, &state)
	if errors.Is(err, sql.ErrNoRows) {
		return Job{}, ErrNotFound
	}
	if err != nil {
		return Job{}, err
	}
	if j.FireTime, err = decodeTime(fireTime); err != nil {
		return Job{}, err
	}
	j.State = JobState(state)
	return j, nil
}

// SetState transitions the job. Terminal rows are left alone: a fired or
// cancelled job never moves again (only Put can replace it).
func (s *JobStore) SetState(ctx context.Context, jobID string, state JobState) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE jobs SET state = ? WHERE job_id = ? AND state = 'pending'`,
		string(state), jobID,
	)
	return err
}

// Delete removes the job row. Missing rows are not an error.
func (s *JobStore) Delete(ctx context.Context, jobID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM jobs WHERE job_id = ?`, jobID)
	return err
}

// DeleteTerminalBefore purges fired/cancelled jobs with fire_time older than
// cutoff, bounding storage growth. Returns the number of rows removed.
func (s *JobStore) DeleteTerminalBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM jobs WHERE state IN ('fired','cancelled') AND fire_time < ?`,
		encodeTime(cutoff),
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// DeleteStalePendingBefore purges pending jobs whose fire_time is older than
// cutoff. Such rows are orphans: a live timer fires within moments of its
// fire_time, so a pending row that old belongs to a job that elapsed while
// the process was down and was never re-armed, or whose terminal state
// update failed. Without this they escape every cleanup path.
func (s *JobStore) DeleteStalePendingBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM jobs WHERE state = 'pending' AND fire_time < ?`,
		encodeTime(cutoff),
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
