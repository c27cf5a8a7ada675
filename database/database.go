package database

import (
	"fmt"

	"cctv-monitoring/be/config"
	"cctv-monitoring/be/models"
	"cctv-monitoring/be/utils"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// openIncidentIndex keeps at most one unserviced history row per camera.
const openIncidentIndex = `CREATE UNIQUE INDEX IF NOT EXISTS uq_histories_open_camera ON histories (camera_id) WHERE service = false`

func Initialize(cfg config.DatabaseConfig, log *zap.Logger) (*gorm.DB, error) {
	dsn := fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		cfg.Host, cfg.User, cfg.Password, cfg.DBName, cfg.Port, cfg.SSLMode,
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(logLevel(cfg.LogLevel)),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}

	if err := createDefaultAdmin(db, log); err != nil {
		log.Warn("Failed to create default admin", zap.Error(err))
	}

	log.Info("Database initialized successfully",
		zap.String("host", cfg.Host),
		zap.String("database", cfg.DBName),
	)
	return db, nil
}

// Migrate creates or updates the schema. It is shared with the tests, which
// run it against sqlite.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.Role{},
		&models.User{},
		&models.Location{},
		&models.Camera{},
		&models.History{},
		&models.Notification{},
	); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	if err := db.Exec(openIncidentIndex).Error; err != nil {
		return fmt.Errorf("failed to create open incident index: %w", err)
	}
	return nil
}

func createDefaultAdmin(db *gorm.DB, log *zap.Logger) error {
	role := models.Role{Name: models.RoleAdmin}
	if err := db.Where("name = ?", role.Name).FirstOrCreate(&role).Error; err != nil {
		return fmt.Errorf("failed to create admin role: %w", err)
	}

	var count int64
	if err := db.Model(&models.User{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	hashedPassword, err := utils.HashPassword("demo123")
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	admin := &models.User{
		Name:     "Admin User",
		Username: "admin",
		Password: hashedPassword,
		RoleID:   role.ID,
	}
	if err := db.Create(admin).Error; err != nil {
		return err
	}

	log.Info("Default admin user created", zap.String("username", admin.Username))
	return nil
}

func logLevel(level string) gormlogger.LogLevel {
	switch level {
	case "silent":
		return gormlogger.Silent
	case "error":
		return gormlogger.Error
	case "info":
		return gormlogger.Info
	default:
		return gormlogger.Warn
	}
}
