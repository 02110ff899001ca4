package reminder

import (
	"context"

	"remindbot/internal/clock"
	"remindbot/internal/scheduler"
	"remindbot/internal/storage"
	"remindbot/pkg/logx"
)

// Reconciler rebuilds the in-memory timer set from the reminder table after
// a restart. The pass is best-effort: one bad record must not block
// delivery of the others.
type Reconciler struct {
	log   logx.Logger
	clk   *clock.Source
	store *storage.ReminderStore
	sched *scheduler.Service
}

func NewReconciler(clk *clock.Source, store *storage.ReminderStore, sched *scheduler.Service, log logx.Logger) *Reconciler {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Reconciler{log: log, clk: clk, store: store, sched: sched}
}

// Run clears any stale timers, then arms one timer per active reminder.
// A reminder whose time already elapsed while the process was down gets a
// past fire time and is delivered immediately by the engine.
func (r *Reconciler) Run(ctx context.Context) error {
	r.sched.ClearAll()

	reminders, err := r.store.ListAllActive(ctx, r.clk.Now())
	if err != nil {
		return err
	}

	restored, failed := 0, 0
	for _, rem := range reminders {
		err := r.sched.Arm(ctx, rem.JobID, rem.RemindTime, scheduler.Payload{
			ChatID: rem.ChatID,
			Text:   rem.Text,
		})
		if err != nil {
			failed++
			r.log.Error("reminder restore failed",
				logx.Int64("reminder_id", rem.ID),
				logx.String("job_id", rem.JobID),
				logx.Err(err),
			)
			continue
		}
		restored++
		r.log.Info("reminder restored",
			logx.Int64("reminder_id", rem.ID),
			logx.Time("remind_time", rem.RemindTime),
		)
	}

	r.log.Info("reconciliation complete", logx.Int("restored", restored), logx.Int("failed", failed))
	return nil
}
