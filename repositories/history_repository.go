package repositories

import (
	"context"
	"errors"
	"time"

	"cctv-monitoring/be/models"

	"gorm.io/gorm"
)

type HistoryRepository struct {
	db *gorm.DB
}

func NewHistoryRepository(db *gorm.DB) *HistoryRepository {
	return &HistoryRepository{db: db}
}

// Latest returns the newest incident of a camera, or nil when it has none.
func (r *HistoryRepository) Latest(ctx context.Context, cameraID uint) (*models.History, error) {
	var history models.History
	err := r.db.WithContext(ctx).
		Where("camera_id = ?", cameraID).
		Order("id DESC").
		First(&history).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &history, nil
}

func (r *HistoryRepository) Create(ctx context.Context, cameraID uint) (*models.History, error) {
	history := &models.History{CameraID: cameraID, Service: false}
	if err := r.db.WithContext(ctx).Create(history).Error; err != nil {
		return nil, err
	}
	return history, nil
}

func (r *HistoryRepository) Resolve(ctx context.Context, historyID uint) error {
	return r.db.WithContext(ctx).
		Model(&models.History{}).
		Where("id = ?", historyID).
		Update("service", true).Error
}

// MarkServiced resolves an incident by hand and stores the operator note.
func (r *HistoryRepository) MarkServiced(ctx context.Context, historyID uint, note string) (*models.History, error) {
	var history models.History
	if err := r.db.WithContext(ctx).First(&history, historyID).Error; err != nil {
		return nil, err
	}
	updates := map[string]interface{}{"service": true}
	if note != "" {
		updates["note"] = note
	}
	if err := r.db.WithContext(ctx).Model(&history).Updates(updates).Error; err != nil {
		return nil, err
	}
	history.Service = true
	if note != "" {
		history.Note = &note
	}
	return &history, nil
}

type HistoryFilter struct {
	CameraID uint
	Service  *bool
	From     *time.Time
	To       *time.Time
}

func (r *HistoryRepository) List(ctx context.Context, filter HistoryFilter) ([]models.HistoryView, error) {
	query := r.db.WithContext(ctx).
		Table("histories").
		Select("histories.id, histories.camera_id, histories.note, histories.service, histories.created_at, " +
			"cameras.name AS camera_name, cameras.ip_address AS camera_ip, locations.name AS location_name").
		Joins("JOIN cameras ON cameras.id = histories.camera_id").
		Joins("LEFT JOIN locations ON locations.id = cameras.location_id")

	if filter.CameraID != 0 {
		query = query.Where("histories.camera_id = ?", filter.CameraID)
	}
	if filter.Service != nil {
		query = query.Where("histories.service = ?", *filter.Service)
	}
	if filter.From != nil {
		query = query.Where("histories.created_at >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("histories.created_at < ?", *filter.To)
	}

	var views []models.HistoryView
	err := query.Order("histories.id DESC").Scan(&views).Error
	return views, err
}
