package database

import (
	"context"
	"fmt"

	"cctv-monitoring/be/repositories"
	"cctv-monitoring/be/services"

	"gorm.io/gorm"
)

// SessionFactory opens one database transaction per monitoring cycle.
type SessionFactory struct {
	db *gorm.DB
}

func NewSessionFactory(db *gorm.DB) *SessionFactory {
	return &SessionFactory{db: db}
}

func (f *SessionFactory) Run(ctx context.Context, fn func(services.Session) error) error {
	return f.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(newSession(tx))
	})
}

type session struct {
	tx            *gorm.DB
	cameras       *repositories.CameraRepository
	incidents     *repositories.HistoryRepository
	notifications *repositories.NotificationRepository
	users         *repositories.UserRepository
}

func newSession(tx *gorm.DB) *session {
	return &session{
		tx:            tx,
		cameras:       repositories.NewCameraRepository(tx),
		incidents:     repositories.NewHistoryRepository(tx),
		notifications: repositories.NewNotificationRepository(tx),
		users:         repositories.NewUserRepository(tx),
	}
}

func (s *session) Cameras() services.CameraStore             { return s.cameras }
func (s *session) Incidents() services.IncidentStore         { return s.incidents }
func (s *session) Notifications() services.NotificationStore { return s.notifications }
func (s *session) Users() services.UserStore                 { return s.users }

func (s *session) Savepoint(ctx context.Context, name string, fn func() error) (err error) {
	tx := s.tx.WithContext(ctx)
	if err := tx.SavePoint(name).Error; err != nil {
		return fmt.Errorf("failed to create savepoint %s: %w", name, err)
	}

	defer func() {
		if r := recover(); r != nil {
			tx.RollbackTo(name)
			panic(r)
		}
	}()

	if err = fn(); err != nil {
		if rbErr := tx.RollbackTo(name).Error; rbErr != nil {
			return fmt.Errorf("%w (rollback to savepoint %s failed: %v)", err, name, rbErr)
		}
		return err
	}
	return nil
}
