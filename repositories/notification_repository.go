package repositories

import (
	"context"

	"cctv-monitoring/be/models"

	"gorm.io/gorm"
)

type NotificationRepository struct {
	db *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

func (r *NotificationRepository) Create(ctx context.Context, userID, historyID uint) (*models.Notification, error) {
	notification := &models.Notification{UserID: userID, HistoryID: historyID}
	if err := r.db.WithContext(ctx).Create(notification).Error; err != nil {
		return nil, err
	}
	return notification, nil
}

func (r *NotificationRepository) ListByUser(ctx context.Context, userID uint) ([]models.NotificationView, error) {
	var views []models.NotificationView
	err := r.db.WithContext(ctx).
		Table("notifications").
		Select("notifications.id, notifications.is_read, notifications.history_id, " +
			"histories.created_at AS history_created_at, histories.note AS history_note, histories.service, " +
			"cameras.id AS camera_id, cameras.name AS camera_name, cameras.ip_address AS camera_ip, " +
			"cameras.stream_key, cameras.is_streaming").
		Joins("JOIN histories ON histories.id = notifications.history_id").
		Joins("JOIN cameras ON cameras.id = histories.camera_id").
		Where("notifications.user_id = ?", userID).
		Order("notifications.id DESC").
		Scan(&views).Error
	return views, err
}

func (r *NotificationRepository) CountUnread(ctx context.Context, userID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Count(&count).Error
	return count, err
}

func (r *NotificationRepository) MarkRead(ctx context.Context, id, userID uint) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("is_read", true)
	return res.RowsAffected > 0, res.Error
}

// Delete removes one notification owned by userID and reports whether it existed.
func (r *NotificationRepository) Delete(ctx context.Context, id, userID uint) (bool, error) {
	res := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).Delete(&models.Notification{})
	return res.RowsAffected > 0, res.Error
}

func (r *NotificationRepository) DeleteAllByUser(ctx context.Context, userID uint) (int64, error) {
	res := r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.Notification{})
	return res.RowsAffected, res.Error
}
