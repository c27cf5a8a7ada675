package repositories

import (
	"context"

	"cctv-monitoring/be/models"

	"gorm.io/gorm"
)

type CameraRepository struct {
	db *gorm.DB
}

func NewCameraRepository(db *gorm.DB) *CameraRepository {
	return &CameraRepository{db: db}
}

// ListMonitored returns every live camera with its location name, ordered by id.
func (r *CameraRepository) ListMonitored(ctx context.Context) ([]models.MonitoredCamera, error) {
	var cameras []models.MonitoredCamera
	err := r.db.WithContext(ctx).
		Table("cameras").
		Select("cameras.id, cameras.name, cameras.ip_address, cameras.stream_key, cameras.is_streaming, locations.name AS location_name").
		Joins("LEFT JOIN locations ON locations.id = cameras.location_id").
		Where("cameras.deleted_at IS NULL").
		Order("cameras.id").
		Scan(&cameras).Error
	return cameras, err
}

func (r *CameraRepository) SetStreaming(ctx context.Context, cameraID uint, streaming bool) error {
	return r.db.WithContext(ctx).
		Model(&models.Camera{}).
		Where("id = ?", cameraID).
		Update("is_streaming", streaming).Error
}

func (r *CameraRepository) List(ctx context.Context, locationID uint) ([]models.Camera, error) {
	var cameras []models.Camera
	query := r.db.WithContext(ctx).Preload("Location").Order("id")
	if locationID != 0 {
		query = query.Where("location_id = ?", locationID)
	}
	err := query.Find(&cameras).Error
	return cameras, err
}

func (r *CameraRepository) GetByID(ctx context.Context, id uint) (*models.Camera, error) {
	var camera models.Camera
	if err := r.db.WithContext(ctx).Preload("Location").First(&camera, id).Error; err != nil {
		return nil, err
	}
	return &camera, nil
}

func (r *CameraRepository) GetByStreamKey(ctx context.Context, streamKey string) (*models.Camera, error) {
	var camera models.Camera
	if err := r.db.WithContext(ctx).Where("stream_key = ?", streamKey).First(&camera).Error; err != nil {
		return nil, err
	}
	return &camera, nil
}

func (r *CameraRepository) FindByIP(ctx context.Context, ip string) (*models.Camera, error) {
	var camera models.Camera
	if err := r.db.WithContext(ctx).Where("ip_address = ?", ip).Order("id").First(&camera).Error; err != nil {
		return nil, err
	}
	return &camera, nil
}

func (r *CameraRepository) FindByName(ctx context.Context, name string) (*models.Camera, error) {
	var camera models.Camera
	if err := r.db.WithContext(ctx).Where("name = ?", name).Order("id").First(&camera).Error; err != nil {
		return nil, err
	}
	return &camera, nil
}

func (r *CameraRepository) CountByLocation(ctx context.Context, locationID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Camera{}).Where("location_id = ?", locationID).Count(&count).Error
	return count, err
}

// ListForExport returns every live camera with its location name, ordered by
// location then name.
func (r *CameraRepository) ListForExport(ctx context.Context) ([]models.MonitoredCamera, error) {
	var cameras []models.MonitoredCamera
	err := r.db.WithContext(ctx).
		Table("cameras").
		Select("cameras.id, cameras.name, cameras.ip_address, cameras.stream_key, cameras.is_streaming, locations.name AS location_name").
		Joins("LEFT JOIN locations ON locations.id = cameras.location_id").
		Where("cameras.deleted_at IS NULL").
		Order("locations.name, cameras.name").
		Scan(&cameras).Error
	return cameras, err
}

func (r *CameraRepository) Create(ctx context.Context, camera *models.Camera) error {
	return r.db.WithContext(ctx).Create(camera).Error
}

// UpdateDetails writes the admin-editable columns of camera. is_streaming is
// owned by the monitor and never written here.
func (r *CameraRepository) UpdateDetails(ctx context.Context, camera *models.Camera) error {
	return r.db.WithContext(ctx).
		Model(&models.Camera{}).
		Where("id = ?", camera.ID).
		Updates(map[string]interface{}{
			"name":        camera.Name,
			"ip_address":  camera.IPAddress,
			"location_id": camera.LocationID,
		}).Error
}

// Delete soft deletes a camera and reports whether it existed.
func (r *CameraRepository) Delete(ctx context.Context, id uint) (bool, error) {
	result := r.db.WithContext(ctx).Delete(&models.Camera{}, id)
	return result.RowsAffected > 0, result.Error
}
