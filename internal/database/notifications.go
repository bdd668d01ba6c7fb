package database

import (
	"context"

	"github.com/ktanui/circulate/internal/models"
)

// NotificationStore defines notification persistence operations.
type NotificationStore interface {
	CreateNotification(ctx context.Context, n *models.Notification) (*models.Notification, error)
	ListNotificationsByStudent(ctx context.Context, studentID int32, limit, offset int32) ([]models.Notification, error)
	CountUnreadNotifications(ctx context.Context, studentID int32) (int64, error)
	MarkAllNotificationsRead(ctx context.Context, studentID int32) (int64, error)
}

const notificationColumns = `id, student_id, title, message, type, read, created_at`

func (s *Store) CreateNotification(ctx context.Context, n *models.Notification) (*models.Notification, error) {
	row := s.db.QueryRow(ctx, `
		INSERT INTO notifications (student_id, title, message, type)
		VALUES ($1, $2, $3, $4)
		RETURNING `+notificationColumns,
		n.StudentID, n.Title, n.Message, n.Type)

	var out models.Notification
	err := row.Scan(&out.ID, &out.StudentID, &out.Title, &out.Message, &out.Type, &out.Read, &out.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *Store) ListNotificationsByStudent(ctx context.Context, studentID int32, limit, offset int32) ([]models.Notification, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+notificationColumns+` FROM notifications
		WHERE student_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`, studentID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var notifications []models.Notification
	for rows.Next() {
		var n models.Notification
		if err := rows.Scan(&n.ID, &n.StudentID, &n.Title, &n.Message, &n.Type, &n.Read, &n.CreatedAt); err != nil {
			return nil, err
		}
		notifications = append(notifications, n)
	}
	return notifications, rows.Err()
}

func (s *Store) CountUnreadNotifications(ctx context.Context, studentID int32) (int64, error) {
	var count int64
	err := s.db.QueryRow(ctx, `
		SELECT count(*) FROM notifications
		WHERE student_id = $1 AND read = false`, studentID).Scan(&count)
	return count, err
}

// MarkAllNotificationsRead batch-marks a student's feed as read and returns
// how many rows changed.
func (s *Store) MarkAllNotificationsRead(ctx context.Context, studentID int32) (int64, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE notifications SET read = true
		WHERE student_id = $1 AND read = false`, studentID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
