package models

import (
	"time"

	"gorm.io/gorm"
)

// Camera is a CCTV device. StreamKey is nil for analog cameras that are not
// routed through the relay. IsStreaming is written only by the monitor.
type Camera struct {
	ID          uint           `json:"id" gorm:"primaryKey"`
	Name        string         `json:"name" gorm:"not null"`
	IPAddress   string         `json:"ip_address" gorm:"not null;index"`
	StreamKey   *string        `json:"stream_key,omitempty" gorm:"uniqueIndex"`
	IsStreaming bool           `json:"is_streaming"`
	LocationID  uint           `json:"location_id" gorm:"not null;index"`
	Location    *Location      `json:"location,omitempty" gorm:"constraint:OnDelete:CASCADE"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `json:"-" gorm:"index"`
}

// MonitoredCamera is the flattened view of a camera the monitor evaluates.
type MonitoredCamera struct {
	ID           uint
	Name         string
	IPAddress    string
	StreamKey    *string
	IsStreaming  bool
	LocationName string
}
