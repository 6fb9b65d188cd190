package assistant

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"voice-assistant/internal/reminders"
	"voice-assistant/internal/scheduler"
)

// ReminderJobName is the scheduler name of the due-reminder check.
const ReminderJobName = "reminders"

// Notifier delivers an announcement to the user.
type Notifier func(ctx context.Context, text string) error

type DueReminders interface {
	CheckDue(now time.Time) ([]reminders.Reminder, error)
	Announce(r reminders.Reminder) string
}

// ReminderJob announces and removes every reminder that has come due.
func ReminderJob(m DueReminders, now func() time.Time, notify Notifier, log *zap.Logger) scheduler.JobFunc {
	if now == nil {
		now = time.Now
	}
	if log == nil {
		log = zap.NewNop()
	}
	return func(ctx context.Context) error {
		due, err := m.CheckDue(now())
		if err != nil {
			return fmt.Errorf("check due reminders: %w", err)
		}
		for _, r := range due {
			if err := notify(ctx, m.Announce(r)); err != nil {
				log.Warn("failed to deliver reminder", zap.String("id", r.ID), zap.Error(err))
			}
		}
		return nil
	}
}

// Broadcast sends to every notifier and returns the first error.
func Broadcast(ns ...Notifier) Notifier {
	return func(ctx context.Context, text string) error {
		var first error
		for _, n := range ns {
			if n == nil {
				continue
			}
			if err := n(ctx, text); err != nil && first == nil {
				first = err
			}
		}
		return first
	}
}

// LogNotifier writes announcements to the log for front ends that cannot
// push messages.
func LogNotifier(log *zap.Logger) Notifier {
	return func(_ context.Context, text string) error {
		log.Info("reminder due", zap.String("text", text))
		return nil
	}
}
