package tasks

import (
	"testing"
	"time"

	"mindease/models"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewReminderTask(t *testing.T) {
	fireAt := time.Date(2025, 9, 10, 9, 0, 0, 0, time.UTC)
	task, opts, err := NewReminderTask(models.ReminderPayload{BookingID: "b1", UserID: "p1", Title: "Session soon"}, fireAt)
	require.NoError(t, err)
	assert.Equal(t, TypeSendReminder, task.Type())
	assert.Len(t, opts, 3)

	p, err := ParseReminderPayload(task)
	require.NoError(t, err)
	assert.Equal(t, "b1", p.BookingID)
	assert.Equal(t, "Session soon", p.Title)
}

func TestParseReminderPayload_Rejects(t *testing.T) {
	_, err := ParseReminderPayload(asynq.NewTask(TypeSendReminder, []byte("{")))
	assert.Error(t, err)

	_, err = ParseReminderPayload(asynq.NewTask(TypeSendReminder, []byte(`{"bookingId":"b1"}`)))
	assert.Error(t, err)
}

func TestNewSweepTask(t *testing.T) {
	assert.Equal(t, "holds:sweep", NewSweepTask(time.Minute).Type())
}
