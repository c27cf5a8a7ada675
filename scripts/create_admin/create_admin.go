package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"cctv-monitoring/be/config"
	"cctv-monitoring/be/database"
	"cctv-monitoring/be/logger"
	"cctv-monitoring/be/models"
	"cctv-monitoring/be/repositories"
	"cctv-monitoring/be/utils"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := config.Load()
	zlog, err := logger.New(cfg.Log.Level, "console", "create-admin")
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer zlog.Sync()

	db, err := database.Initialize(cfg.Database, zlog)
	if err != nil {
		zlog.Fatal("Failed to connect to database", zap.Error(err))
	}

	username := envOr("ADMIN_USERNAME", "admin")
	password := envOr("ADMIN_PASSWORD", "demo123")

	hashedPassword, err := utils.HashPassword(password)
	if err != nil {
		zlog.Fatal("Failed to hash password", zap.Error(err))
	}

	role := models.Role{Name: models.RoleAdmin}
	if err := db.Where("name = ?", role.Name).FirstOrCreate(&role).Error; err != nil {
		zlog.Fatal("Failed to ensure admin role", zap.Error(err))
	}

	ctx := context.Background()
	users := repositories.NewUserRepository(db)

	user, err := users.GetByUsername(ctx, username)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		admin := &models.User{
			Name:     "Admin User",
			Username: username,
			Password: hashedPassword,
			RoleID:   role.ID,
		}
		if err := db.Create(admin).Error; err != nil {
			zlog.Fatal("Failed to create admin user", zap.Error(err))
		}
		fmt.Printf("Admin user %q created\n", username)
	case err != nil:
		zlog.Fatal("Failed to load admin user", zap.Error(err))
	default:
		if err := users.UpdatePassword(ctx, user.ID, hashedPassword); err != nil {
			zlog.Fatal("Failed to update password", zap.Error(err))
		}
		fmt.Printf("Admin user %q found, password reset\n", username)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
