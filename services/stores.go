package services

import (
	"context"

	"cctv-monitoring/be/models"
)

// CameraStore is the camera persistence the monitor needs.
type CameraStore interface {
	ListMonitored(ctx context.Context) ([]models.MonitoredCamera, error)
	SetStreaming(ctx context.Context, cameraID uint, streaming bool) error
}

// IncidentStore persists offline incidents (history rows). Latest returns
// nil without error when the camera has no history.
type IncidentStore interface {
	Latest(ctx context.Context, cameraID uint) (*models.History, error)
	Create(ctx context.Context, cameraID uint) (*models.History, error)
	Resolve(ctx context.Context, historyID uint) error
}

type NotificationStore interface {
	Create(ctx context.Context, userID, historyID uint) (*models.Notification, error)
}

type UserStore interface {
	ListActiveIDs(ctx context.Context) ([]uint, error)
}

// Session is one unit of persistence work. Every store it hands out shares
// the same transaction.
type Session interface {
	Cameras() CameraStore
	Incidents() IncidentStore
	Notifications() NotificationStore
	Users() UserStore

	// Savepoint runs fn so that an error returned by fn undoes only the
	// writes fn made; the session itself stays usable.
	Savepoint(ctx context.Context, name string, fn func() error) error
}

// SessionFactory opens a session, commits it when fn returns nil and rolls
// it back when fn fails or panics.
type SessionFactory interface {
	Run(ctx context.Context, fn func(Session) error) error
}
