package models

import "time"

type Notification struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	HistoryID uint      `json:"history_id" gorm:"not null;index"`
	History   *History  `json:"-" gorm:"constraint:OnDelete:CASCADE"`
	UserID    uint      `json:"user_id" gorm:"not null;index"`
	User      *User     `json:"-" gorm:"constraint:OnDelete:CASCADE"`
	IsRead    bool      `json:"is_read"`
	CreatedAt time.Time `json:"created_at"`
}

// NotificationView is a notification with its incident and camera fetched
// through an explicit join.
type NotificationView struct {
	ID               uint      `json:"notification_id"`
	IsRead           bool      `json:"is_read"`
	HistoryID        uint      `json:"history_id"`
	HistoryCreatedAt time.Time `json:"history_created_at"`
	HistoryNote      *string   `json:"history_note,omitempty"`
	Service          bool      `json:"service"`
	CameraID         uint      `json:"cctv_id"`
	CameraName       string    `json:"cctv_name"`
	CameraIP         string    `json:"ip_address"`
	StreamKey        *string   `json:"stream_key,omitempty"`
	IsStreaming      bool      `json:"is_streaming"`
}
