package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"cctv-monitoring/be/config"
	"cctv-monitoring/be/database"
	"cctv-monitoring/be/logger"
	"cctv-monitoring/be/repositories"
	"cctv-monitoring/be/utils"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	username := flag.String("username", "admin", "user whose password is reset")
	password := flag.String("password", "demo123", "new password")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := config.Load()
	zlog, err := logger.New(cfg.Log.Level, "console", "reset-password")
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer zlog.Sync()

	db, err := database.Initialize(cfg.Database, zlog)
	if err != nil {
		zlog.Fatal("Failed to connect to database", zap.Error(err))
	}

	ctx := context.Background()
	users := repositories.NewUserRepository(db)

	user, err := users.GetByUsername(ctx, *username)
	if err != nil {
		zlog.Fatal("User not found", zap.String("username", *username), zap.Error(err))
	}

	hashedPassword, err := utils.HashPassword(*password)
	if err != nil {
		zlog.Fatal("Failed to hash password", zap.Error(err))
	}
	if err := users.UpdatePassword(ctx, user.ID, hashedPassword); err != nil {
		zlog.Fatal("Failed to update password", zap.Error(err))
	}

	fmt.Printf("Password updated successfully for %s\n", user.Username)
}
