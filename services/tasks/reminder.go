package tasks

import (
	"encoding/json"
	"fmt"
	"time"

	"mindease/models"
	"mindease/utils"

	"github.com/hibiken/asynq"
)

const (
	TypeSendReminder = utils.TaskSendReminder
	TypeSweepHolds   = utils.TaskSweepHolds
)

// NewReminderTask schedules a session reminder. The task id is derived from the
// booking so a redelivered confirmation does not queue a second reminder.
func NewReminderTask(payload models.ReminderPayload, fireAt time.Time) (*asynq.Task, []asynq.Option, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, nil, err
	}
	task := asynq.NewTask(TypeSendReminder, b)
	opts := []asynq.Option{
		asynq.ProcessAt(fireAt),
		asynq.TaskID("reminder:" + payload.BookingID),
		asynq.MaxRetry(3),
	}
	return task, opts, nil
}

func ParseReminderPayload(t *asynq.Task) (models.ReminderPayload, error) {
	var p models.ReminderPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return p, fmt.Errorf("invalid reminder payload: %w", err)
	}
	if p.UserID == "" || p.BookingID == "" {
		return p, fmt.Errorf("invalid reminder payload: missing user or booking id")
	}
	return p, nil
}

// NewSweepTask is the periodic hold expiry job. At most one runs at a time.
func NewSweepTask(interval time.Duration) *asynq.Task {
	return asynq.NewTask(TypeSweepHolds, nil, asynq.Unique(interval), asynq.MaxRetry(0))
}
