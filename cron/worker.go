package cron

import (
	"context"
	"fmt"
	"time"

	"mindease/services/notification"
	"mindease/services/tasks"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

const workerStartAttempts = 5

// Worker runs the asynq server for reminders and, in asynq sweep mode, the
// scheduler that enqueues holds:sweep.
type Worker struct {
	server    *asynq.Server
	scheduler *asynq.Scheduler
	mux       *asynq.ServeMux
	logger    *zap.Logger
}

// NewWorker builds the worker. A nil sweeper or non-positive sweepInterval leaves
// the periodic sweep out, which is the ticker mode setup.
func NewWorker(redisOpt asynq.RedisClientOpt, sweeper HoldSweeper, notifier notification.NotificationService, sweepInterval time.Duration, logger *zap.Logger) (*Worker, error) {
	srv := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				"default": 1,
			},
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(tasks.TypeSendReminder, handleReminderTask(notifier, logger))

	w := &Worker{server: srv, mux: mux, logger: logger}
	if sweeper != nil && sweepInterval > 0 {
		mux.HandleFunc(tasks.TypeSweepHolds, handleSweepTask(sweeper, logger))

		w.scheduler = asynq.NewScheduler(redisOpt, &asynq.SchedulerOpts{Location: time.UTC})
		spec := fmt.Sprintf("@every %s", sweepInterval)
		if _, err := w.scheduler.Register(spec, tasks.NewSweepTask(sweepInterval)); err != nil {
			return nil, fmt.Errorf("failed to register sweep schedule: %w", err)
		}
	}
	return w, nil
}

// Start runs the server and scheduler in the background, retrying startup with backoff.
func (w *Worker) Start() {
	go func() {
		w.logger.Info("Worker: starting async worker")
		for attempt := 1; attempt <= workerStartAttempts; attempt++ {
			err := w.server.Start(w.mux)
			if err == nil {
				return
			}
			w.logger.Error("Worker: failed to start",
				zap.Int("attempt", attempt), zap.Int("maxAttempts", workerStartAttempts), zap.Error(err))
			if attempt == workerStartAttempts {
				w.logger.Error("Worker: giving up, reminders will not be delivered")
				return
			}
			time.Sleep(time.Duration(attempt*2) * time.Second)
		}
	}()

	if w.scheduler != nil {
		go func() {
			if err := w.scheduler.Start(); err != nil {
				w.logger.Error("Worker: scheduler failed to start", zap.Error(err))
			}
		}()
	}
}

func (w *Worker) Shutdown() {
	if w.scheduler != nil {
		w.scheduler.Shutdown()
	}
	w.server.Shutdown()
}

func handleSweepTask(sweeper HoldSweeper, logger *zap.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, _ *asynq.Task) error {
		ids, err := sweeper.SweepExpiredHolds(ctx)
		if err != nil {
			return err
		}
		logger.Debug("Worker: sweep done", zap.Int("expired", len(ids)))
		return nil
	}
}

func handleReminderTask(notifier notification.NotificationService, logger *zap.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		p, err := tasks.ParseReminderPayload(task)
		if err != nil {
			logger.Error("ReminderHandler: dropping task", zap.Error(err))
			return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
		}

		logger.Info("ReminderHandler: sending reminder", zap.String("bookingId", p.BookingID), zap.String("userId", p.UserID))
		data := map[string]string{
			"type":      "session_reminder",
			"bookingId": p.BookingID,
			"fireDate":  p.FireDate,
		}
		if err := notifier.SendUserPushNotification(ctx, p.UserID, p.Title, p.Body, data); err != nil {
			logger.Warn("ReminderHandler: push failed", zap.String("bookingId", p.BookingID), zap.Error(err))
			return err
		}
		return nil
	}
}
