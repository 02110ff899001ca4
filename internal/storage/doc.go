// Package storage persists reminders and scheduler jobs in SQLite.
//
// The two tables live in the same database file but are logically
// independent stores:
//   - reminders: the user-facing records, keyed by rowid, job_id unique
//   - jobs: the scheduler's durable timer state, keyed by job_id
//
// Cross-table atomicity is intentionally not provided; the service layer
// orders writes (reminder first, job second) so a crash in between is
// recoverable by the startup reconciliation pass.
package storage
