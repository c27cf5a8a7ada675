package repositories

import (
	"context"
	"time"

	"cctv-monitoring/be/models"

	"gorm.io/gorm"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// ListActiveIDs returns the ids of all users that are not soft deleted.
func (r *UserRepository) ListActiveIDs(ctx context.Context) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).Model(&models.User{}).Order("id").Pluck("id", &ids).Error
	return ids, err
}

func (r *UserRepository) List(ctx context.Context) ([]models.User, error) {
	var users []models.User
	err := r.db.WithContext(ctx).Preload("Role").Order("id").Find(&users).Error
	return users, err
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Preload("Role").Where("username = ?", username).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Preload("Role").First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) TouchLastLogin(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		Update("last_login", time.Now()).Error
}

func (r *UserRepository) UpdatePassword(ctx context.Context, id uint, hash string) error {
	return r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		Update("password", hash).Error
}

func (r *UserRepository) GetByNIP(ctx context.Context, nip int64) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("nip = ?", nip).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

// UpdateProfile writes the editable profile columns. The password and
// last_login columns have their own writers.
func (r *UserRepository) UpdateProfile(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", user.ID).
		Updates(map[string]interface{}{
			"name":     user.Name,
			"nip":      user.NIP,
			"username": user.Username,
			"role_id":  user.RoleID,
		}).Error
}

// Delete soft deletes a user, which removes them from future notification
// fan-outs. It reports whether the user existed.
func (r *UserRepository) Delete(ctx context.Context, id uint) (bool, error) {
	result := r.db.WithContext(ctx).Delete(&models.User{}, id)
	return result.RowsAffected > 0, result.Error
}

// Taken reports whether another user, deleted or not, already holds the
// username or the nip. exceptID excludes the user being edited.
func (r *UserRepository) Taken(ctx context.Context, username string, nip *int64, exceptID uint) (bool, error) {
	query := r.db.WithContext(ctx).Unscoped().Model(&models.User{}).Where("id <> ?", exceptID)
	if nip != nil {
		query = query.Where("username = ? OR nip = ?", username, *nip)
	} else {
		query = query.Where("username = ?", username)
	}
	var count int64
	err := query.Count(&count).Error
	return count > 0, err
}
