package notification

import (
	"context"
	"fmt"

	"firebase.google.com/go/v4/messaging"
	"go.uber.org/zap"
)

// Sender is the part of *messaging.Client the service needs.
type Sender interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
}

// NotificationService defines methods for sending FCM pushes.
type NotificationService interface {
	SendUserPushNotification(ctx context.Context, userID, title, body string, data map[string]string) error
}

// UserTopic is the FCM topic a student's devices subscribe to.
func UserTopic(userID string) string {
	return "user_" + userID
}

// DefaultNotificationService is the production implementation.
type DefaultNotificationService struct {
	sender Sender
	logger *zap.Logger
}

func NewDefaultNotificationService(sender Sender, logger *zap.Logger) (*DefaultNotificationService, error) {
	if sender == nil {
		return nil, fmt.Errorf("notification service initialization error: sender is nil")
	}
	return &DefaultNotificationService{sender: sender, logger: logger}, nil
}

// SendUserPushNotification publishes to the user's topic.
func (s *DefaultNotificationService) SendUserPushNotification(
	ctx context.Context,
	userID, title, body string,
	data map[string]string,
) error {
	if userID == "" {
		return fmt.Errorf("SendUserPushNotification: empty user id")
	}
	if data == nil {
		data = map[string]string{}
	}
	if _, ok := data["role"]; !ok {
		data["role"] = "user"
	}

	msg := &messaging.Message{
		Topic: UserTopic(userID),
		Notification: &messaging.Notification{
			Title: title,
			Body:  body,
		},
		Data: data,
	}

	response, err := s.sender.Send(ctx, msg)
	if err != nil {
		return fmt.Errorf("SendUserPushNotification: failed to send FCM message: %w", err)
	}
	s.logger.Debug("Push notification sent", zap.String("userId", userID), zap.String("messageId", response))
	return nil
}

// NoopNotificationService is used when NOTIFICATIONS_ENABLED is off.
type NoopNotificationService struct {
	logger *zap.Logger
}

func NewNoopNotificationService(logger *zap.Logger) *NoopNotificationService {
	return &NoopNotificationService{logger: logger}
}

func (s *NoopNotificationService) SendUserPushNotification(_ context.Context, userID, title, _ string, _ map[string]string) error {
	s.logger.Debug("Notifications disabled, dropping push", zap.String("userId", userID), zap.String("title", title))
	return nil
}
