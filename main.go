package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cctv-monitoring/be/config"
	"cctv-monitoring/be/database"
	"cctv-monitoring/be/handlers"
	"cctv-monitoring/be/logger"
	"cctv-monitoring/be/middleware"
	"cctv-monitoring/be/models"
	"cctv-monitoring/be/repositories"
	"cctv-monitoring/be/services"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

type routes struct {
	auth          *handlers.AuthHandler
	cameras       *handlers.CameraHandler
	locations     *handlers.LocationHandler
	histories     *handlers.HistoryHandler
	notifications *handlers.NotificationHandler
	monitor       *handlers.MonitorHandler
	users         *handlers.UserHandler
	roles         *handlers.RoleHandler
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := config.Load()

	zlog, err := logger.New(cfg.Log.Level, cfg.Log.Format, "cctv-monitoring")
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer zlog.Sync()

	db, err := database.Initialize(cfg.Database, zlog)
	if err != nil {
		zlog.Fatal("Failed to initialize database", zap.Error(err))
	}

	cameraRepo := repositories.NewCameraRepository(db)
	locationRepo := repositories.NewLocationRepository(db)
	historyRepo := repositories.NewHistoryRepository(db)
	notificationRepo := repositories.NewNotificationRepository(db)
	userRepo := repositories.NewUserRepository(db)
	roleRepo := repositories.NewRoleRepository(db)

	mediamtx := services.NewMediaMTXService(cfg.MediaMTX, zlog)
	prober := services.NewICMPProber(cfg.Probe, zlog)
	evaluator := services.NewEvaluator(services.NewFailureCounter(), cfg.Monitor.OfflineThreshold)
	streamMonitor := services.NewStreamMonitor(mediamtx, prober, evaluator, cfg.Probe.Concurrency, zlog)
	hub := services.NewStatusHub()
	monitor := services.NewMonitor(database.NewSessionFactory(db), streamMonitor, cfg.Monitor, hub, zlog)
	streamService := services.NewStreamService(mediamtx, cameraRepo, cfg.Probe.Concurrency, zlog)
	importer := services.NewCameraImportService(db)
	userImporter := services.NewUserImportService(db, cfg.Users.ImportPassword)

	r := routes{
		auth:          handlers.NewAuthHandler(userRepo, cfg.JWT, zlog),
		cameras:       handlers.NewCameraHandler(cameraRepo, locationRepo, streamService, importer, zlog),
		locations:     handlers.NewLocationHandler(locationRepo, cameraRepo, streamService, zlog),
		histories:     handlers.NewHistoryHandler(historyRepo, zlog),
		notifications: handlers.NewNotificationHandler(notificationRepo, zlog),
		monitor:       handlers.NewMonitorHandler(mediamtx, monitor, hub, zlog),
		users:         handlers.NewUserHandler(userRepo, roleRepo, userImporter, zlog),
		roles:         handlers.NewRoleHandler(roleRepo, zlog),
	}
	router := setupRouter(r, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Monitor.Enabled {
		go monitor.Run(ctx)
	} else {
		zlog.Info("CCTV monitor disabled")
	}

	port := cfg.Server.Port
	if port == "" {
		port = "8080"
	}
	server := &http.Server{
		Addr:    ":" + port,
		Handler: router,
	}

	go func() {
		zlog.Info("Server starting", zap.String("port", port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	zlog.Info("Shutting down")

	monitor.Stop()
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		zlog.Error("Server shutdown failed", zap.Error(err))
	}

	if cfg.Monitor.Enabled {
		select {
		case <-monitor.Done():
		case <-shutdownCtx.Done():
			zlog.Warn("Monitor did not stop before shutdown deadline")
		}
	}
}

func setupRouter(r routes, cfg *config.Config) *gin.Engine {
	if cfg.Server.GinMode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()

	router.Use(cors.New(cors.Config{
		AllowOriginFunc: func(origin string) bool {
			if origin == "" {
				return true
			}
			return origin == "http://localhost:5173" ||
				origin == "http://localhost:3000" ||
				origin == "http://127.0.0.1:5173" ||
				origin == "http://127.0.0.1:3000"
		},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length", "Content-Type", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api/v1")
	api.POST("/auth/login", r.auth.Login)

	protected := api.Group("")
	protected.Use(middleware.AuthMiddleware(cfg.JWT.Secret))
	admin := middleware.RequireRole(models.RoleAdmin)
	{
		protected.GET("/auth/me", r.auth.GetMe)
		protected.POST("/auth/logout", r.auth.Logout)

		cameras := protected.Group("/cameras")
		{
			cameras.GET("", r.cameras.GetCameras)
			cameras.GET("/export", admin, r.cameras.ExportCameras)
			cameras.GET("/:id", r.cameras.GetCamera)
			cameras.GET("/:id/stream", r.cameras.GetStreamURL)
			cameras.POST("", admin, r.cameras.CreateCamera)
			cameras.POST("/import", admin, r.cameras.ImportCameras)
			cameras.PUT("/:id", admin, r.cameras.UpdateCamera)
			cameras.DELETE("/:id", admin, r.cameras.DeleteCamera)
		}

		locations := protected.Group("/locations")
		{
			locations.GET("", r.locations.GetLocations)
			locations.GET("/:id/streams", r.locations.GetLocationStreams)
			locations.POST("", admin, r.locations.CreateLocation)
			locations.PUT("/:id", admin, r.locations.UpdateLocation)
			locations.DELETE("/:id", admin, r.locations.DeleteLocation)
		}

		users := protected.Group("/users", admin)
		{
			users.GET("", r.users.GetUsers)
			users.GET("/export", r.users.ExportUsers)
			users.POST("", r.users.CreateUser)
			users.POST("/import", r.users.ImportUsers)
			users.PUT("/:id", r.users.UpdateUser)
			users.DELETE("/:id", r.users.DeleteUser)
		}

		roles := protected.Group("/roles", admin)
		{
			roles.GET("", r.roles.GetRoles)
			roles.POST("", r.roles.CreateRole)
		}

		histories := protected.Group("/histories")
		{
			histories.GET("", r.histories.GetHistories)
			histories.GET("/export", r.histories.ExportHistories)
			histories.PUT("/:id", r.histories.MarkServiced)
		}

		notifications := protected.Group("/notifications")
		{
			notifications.GET("", r.notifications.GetNotifications)
			notifications.GET("/count", r.notifications.CountUnread)
			notifications.PUT("/:id/read", r.notifications.MarkRead)
			notifications.DELETE("/:id", r.notifications.DeleteNotification)
			notifications.DELETE("", r.notifications.DeleteAllNotifications)
		}

		streams := protected.Group("/streams")
		{
			streams.GET("/mediamtx/status", r.monitor.GetMediaMTXStatus)
			streams.GET("/mediamtx/all-streams", r.monitor.GetAllStreams)
			streams.GET("/monitor", r.monitor.GetMonitorState)
			streams.GET("/ws", r.monitor.StreamStatusWebSocket)
		}
	}

	return router
}
