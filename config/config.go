package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	JWT      JWTConfig
	Users    UsersConfig
	MediaMTX MediaMTXConfig
	Monitor  MonitorConfig
	Probe    ProbeConfig
	Log      LogConfig
}

type ServerConfig struct {
	Port    string
	GinMode string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
	LogLevel string
}

type JWTConfig struct {
	Secret string
	Expiry string
}

// UsersConfig holds account defaults. ImportPassword is given to imported
// users whose row has no password.
type UsersConfig struct {
	ImportPassword string
}

// MediaMTXConfig points at the relay control API. APIURL includes the API
// version prefix, e.g. http://localhost:9997/v3.
type MediaMTXConfig struct {
	APIURL     string
	PublicHost string
	HLSPort    string
	Timeout    time.Duration
	Retries    int

	// Credentials used to build the RTSP pull URL of a camera.
	CameraUser     string
	CameraPassword string
	CameraChannel  int
	CameraSubtype  int
}

type MonitorConfig struct {
	Enabled          bool
	Interval         time.Duration
	ErrorBackoff     time.Duration
	CycleTimeout     time.Duration
	OfflineThreshold int
}

type ProbeConfig struct {
	Count       int
	Timeout     time.Duration
	Interval    time.Duration
	Concurrency int
	Privileged  bool
}

type LogConfig struct {
	Level  string
	Format string
}

func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:    getEnv("PORT", "8080"),
			GinMode: getEnv("GIN_MODE", "debug"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "vms_cctv"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
			LogLevel: getEnv("DB_LOG_LEVEL", "warn"),
		},
		JWT: JWTConfig{
			Secret: getEnv("JWT_SECRET", "your-secret-key-change-in-production"),
			Expiry: getEnv("JWT_EXPIRY", "24h"),
		},
		Users: UsersConfig{
			ImportPassword: getEnv("USER_IMPORT_PASSWORD", "Rsch123"),
		},
		MediaMTX: MediaMTXConfig{
			APIURL:         getEnv("MEDIAMTX_API", "http://localhost:9997/v3"),
			PublicHost:     getEnv("MEDIAMTX_PUBLIC_HOST", "localhost"),
			HLSPort:        getEnv("MEDIAMTX_HLS_PORT", "8888"),
			Timeout:        getEnvDuration("MEDIAMTX_TIMEOUT", 5*time.Second),
			Retries:        getEnvInt("MEDIAMTX_RETRIES", 2),
			CameraUser:     getEnv("CAMERA_RTSP_USER", "admin"),
			CameraPassword: getEnv("CAMERA_RTSP_PASSWORD", "admin123"),
			CameraChannel:  getEnvInt("CAMERA_RTSP_CHANNEL", 1),
			CameraSubtype:  getEnvInt("CAMERA_RTSP_SUBTYPE", 1),
		},
		Monitor: MonitorConfig{
			Enabled:          getEnvBool("MONITOR_ENABLED", true),
			Interval:         getEnvDuration("MONITOR_INTERVAL", 40*time.Second),
			ErrorBackoff:     getEnvDuration("MONITOR_ERROR_BACKOFF", 50*time.Second),
			CycleTimeout:     getEnvDuration("MONITOR_CYCLE_TIMEOUT", 2*time.Minute),
			OfflineThreshold: getEnvInt("MONITOR_OFFLINE_THRESHOLD", 3),
		},
		Probe: ProbeConfig{
			Count:       getEnvInt("PROBE_COUNT", 3),
			Timeout:     getEnvDuration("PROBE_TIMEOUT", 5*time.Second),
			Interval:    getEnvDuration("PROBE_INTERVAL", time.Second),
			Concurrency: getEnvInt("PROBE_CONCURRENCY", 32),
			Privileged:  getEnvBool("PROBE_PRIVILEGED", false),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
