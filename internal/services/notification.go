package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ktanui/circulate/internal/database"
	"github.com/ktanui/circulate/internal/models"
)

// NotificationService manages per-student notifications. It implements
// LendingNotifier so lifecycle transitions can push messages directly.
type NotificationService struct {
	store  database.NotificationStore
	logger *slog.Logger
}

func NewNotificationService(store database.NotificationStore, logger *slog.Logger) *NotificationService {
	return &NotificationService{store: store, logger: logger}
}

// Notify creates a notification for one student.
func (s *NotificationService) Notify(ctx context.Context, studentID int32, title, message string, notifType models.NotificationType) error {
	req := &models.NotificationRequest{
		StudentID: studentID,
		Title:     title,
		Message:   message,
		Type:      notifType,
	}
	if err := req.Validate(); err != nil {
		return err
	}

	_, err := s.store.CreateNotification(ctx, &models.Notification{
		StudentID: studentID,
		Title:     title,
		Message:   message,
		Type:      notifType,
	})
	if err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}
	return nil
}

// ListForStudent returns a student's feed with the unread count.
func (s *NotificationService) ListForStudent(ctx context.Context, studentID int32, limit, offset int32) (*models.NotificationListResponse, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	notifications, err := s.store.ListNotificationsByStudent(ctx, studentID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}

	unread, err := s.store.CountUnreadNotifications(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("failed to count unread notifications: %w", err)
	}

	if notifications == nil {
		notifications = []models.Notification{}
	}
	return &models.NotificationListResponse{
		Notifications: notifications,
		UnreadCount:   unread,
	}, nil
}

// MarkAllRead flips every unread notification for the student in one
// statement and returns how many were affected.
func (s *NotificationService) MarkAllRead(ctx context.Context, studentID int32) (int64, error) {
	updated, err := s.store.MarkAllNotificationsRead(ctx, studentID)
	if err != nil {
		return 0, fmt.Errorf("failed to mark notifications read: %w", err)
	}

	if updated > 0 {
		s.logger.Info("notifications marked read",
			slog.Int("student_id", int(studentID)),
			slog.Int64("count", updated))
	}
	return updated, nil
}
