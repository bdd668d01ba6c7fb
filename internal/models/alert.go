package models

import (
	"time"
)

// MaxAlerts is how many broadcast announcements the store retains; posting
// a new one prunes anything older.
const MaxAlerts = 5

// Alert is a global announcement shown to every student. Day and Date are
// display strings captured at posting time.
type Alert struct {
	ID        int32     `json:"id" db:"id"`
	Text      string    `json:"text" db:"text"`
	Day       string    `json:"day" db:"day"`
	Date      string    `json:"date" db:"date"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// PostAlertRequest represents a broadcast to all students
type PostAlertRequest struct {
	Text string `json:"text" binding:"required,min=1,max=500"`
}
