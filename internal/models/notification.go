package models

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// NotificationType represents the tone of a notification
type NotificationType string

const (
	NotificationTypeSuccess NotificationType = "success"
	NotificationTypeError   NotificationType = "error"
	NotificationTypeInfo    NotificationType = "info"
)

// IsValid checks if the notification type is valid
func (nt NotificationType) IsValid() bool {
	switch nt {
	case NotificationTypeSuccess, NotificationTypeError, NotificationTypeInfo:
		return true
	default:
		return false
	}
}

// Notification is a fire-and-forget message to one student, created as a
// side effect of an admin decision on a loan request.
type Notification struct {
	ID        int32            `json:"id" db:"id"`
	StudentID int32            `json:"student_id" db:"student_id"`
	Title     string           `json:"title" db:"title"`
	Message   string           `json:"message" db:"message"`
	Type      NotificationType `json:"type" db:"type"`
	Read      bool             `json:"read" db:"read"`
	CreatedAt time.Time        `json:"created_at" db:"created_at"`
}

// NotificationRequest represents a request to create a notification
type NotificationRequest struct {
	StudentID int32            `json:"student_id" validate:"required,min=1"`
	Title     string           `json:"title" validate:"required,min=1,max=255"`
	Message   string           `json:"message" validate:"required,min=1,max=2000"`
	Type      NotificationType `json:"type" validate:"required"`
}

// Validate validates the notification request
func (nr *NotificationRequest) Validate() error {
	validate := validator.New()
	if err := validate.Struct(nr); err != nil {
		return err
	}
	if !nr.Type.IsValid() {
		return fmt.Errorf("invalid notification type: %s", nr.Type)
	}
	return nil
}

// NotificationListResponse represents a student's notification feed
type NotificationListResponse struct {
	Notifications []Notification `json:"notifications"`
	UnreadCount   int64          `json:"unread_count"`
}
