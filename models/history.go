package models

import "time"

// History is an offline incident of a camera. Service=false marks it open;
// a camera never has more than one open incident.
type History struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CameraID  uint      `json:"camera_id" gorm:"not null;index"`
	Note      *string   `json:"note,omitempty"`
	Service   bool      `json:"service" gorm:"not null"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (h History) IsOpen() bool {
	return !h.Service
}

// HistoryView is a history row joined with its camera and location.
type HistoryView struct {
	ID           uint      `json:"id"`
	CameraID     uint      `json:"camera_id"`
	Note         *string   `json:"note,omitempty"`
	Service      bool      `json:"service"`
	CreatedAt    time.Time `json:"created_at"`
	CameraName   string    `json:"cctv_name"`
	CameraIP     string    `json:"cctv_ip"`
	LocationName string    `json:"location_name"`
}
