package repositories

import (
	"context"

	"cctv-monitoring/be/models"

	"gorm.io/gorm"
)

type LocationRepository struct {
	db *gorm.DB
}

func NewLocationRepository(db *gorm.DB) *LocationRepository {
	return &LocationRepository{db: db}
}

func (r *LocationRepository) List(ctx context.Context) ([]models.Location, error) {
	var locations []models.Location
	err := r.db.WithContext(ctx).Order("name").Find(&locations).Error
	return locations, err
}

func (r *LocationRepository) GetByID(ctx context.Context, id uint) (*models.Location, error) {
	var location models.Location
	if err := r.db.WithContext(ctx).First(&location, id).Error; err != nil {
		return nil, err
	}
	return &location, nil
}

func (r *LocationRepository) Create(ctx context.Context, location *models.Location) error {
	return r.db.WithContext(ctx).Create(location).Error
}

func (r *LocationRepository) Rename(ctx context.Context, id uint, name string) (bool, error) {
	result := r.db.WithContext(ctx).Model(&models.Location{}).Where("id = ?", id).Update("name", name)
	return result.RowsAffected > 0, result.Error
}

func (r *LocationRepository) Delete(ctx context.Context, id uint) (bool, error) {
	result := r.db.WithContext(ctx).Delete(&models.Location{}, id)
	return result.RowsAffected > 0, result.Error
}

func (r *LocationRepository) FindOrCreate(ctx context.Context, name string) (*models.Location, error) {
	location := models.Location{Name: name}
	if err := r.db.WithContext(ctx).Where("name = ?", name).FirstOrCreate(&location).Error; err != nil {
		return nil, err
	}
	return &location, nil
}
