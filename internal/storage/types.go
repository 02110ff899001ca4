package storage

import (
	"errors"
	"time"
)

var (
	// ErrDuplicateJobID is returned by Insert when the job_id uniqueness
	// constraint is violated. It signals an id-generation bug, not a user error.
	ErrDuplicateJobID = errors.New("storage: duplicate job id")

	ErrNotFound = errors.New("storage: not found")
)

// Reminder is a durable reminder record.
type Reminder struct {
	ID         int64
	UserID     int64
	ChatID     int64
	Text       string
	RemindTime time.Time
	CreatedAt  time.Time
	JobID      string
}

// JobState tracks a job's lifecycle. Terminal states never transition back;
// re-arming a used job_id replaces the row with a fresh pending one.
type JobState string

const (
	JobPending   JobState = "pending"
	JobFired     JobState = "fired"
	JobCancelled JobState = "cancelled"
)

// Job is the scheduler's durable record: at FireTime, deliver Text to ChatID.
type Job struct {
	JobID    string
	FireTime time.Time
	ChatID   int64
	Text     string
	State    JobState
}
