package config

import (
	"os"
	"time"
)

// Config holds all subsystem configuration
type Config struct {
	Backend BackendConfig
	Device  DeviceConfig
	Push    PushConfig
	Log     LogConfig
}

type BackendConfig struct {
	BaseURL     string
	StreamURL   string
	HTTPTimeout time.Duration
}

type DeviceConfig struct {
	DBPath     string
	DeviceID   string
	Platform   string // "ios" or "android"
	AppVersion string
}

type PushConfig struct {
	// GatewayURL is the Expo push HTTP API endpoint used for the
	// local diagnostic delivery path.
	GatewayURL string
}

type LogConfig struct {
	Level string
	Env   string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	httpTimeout, err := time.ParseDuration(getEnv("BACKEND_HTTP_TIMEOUT", "15s"))
	if err != nil {
		httpTimeout = 15 * time.Second
	}

	return &Config{
		Backend: BackendConfig{
			BaseURL:     getEnv("BACKEND_URL", "http://localhost:8080"),
			StreamURL:   getEnv("BACKEND_STREAM_URL", "ws://localhost:8080/api/notifications/stream"),
			HTTPTimeout: httpTimeout,
		},
		Device: DeviceConfig{
			DBPath:     getEnv("DEVICE_DB_PATH", "sitepulse.db"),
			DeviceID:   getEnv("DEVICE_ID", ""),
			Platform:   getEnv("DEVICE_PLATFORM", "android"),
			AppVersion: getEnv("APP_VERSION", "dev"),
		},
		Push: PushConfig{
			GatewayURL: getEnv("PUSH_GATEWAY_URL", "https://exp.host/--/api/v2/push/send"),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "debug"),
			Env:   getEnv("ENV", "development"),
		},
	}, nil
}

// getEnv gets an environment variable with a fallback default
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

// IsProduction returns true if running in production
func (c *Config) IsProduction() bool {
	return c.Log.Env == "production"
}
