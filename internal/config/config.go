package config

import (
	"os"
	"strconv"
	"time"

	_ "github.com/joho/godotenv/autoload"
)

// Config holds the base configuration
type Config struct {
	Server  ServerConfig
	Worker  WorkerConfig
	Redis   RedisConfig
	App     AppConfig
	Webhook WebhookConfig
}

type ServerConfig struct {
	Port         string
	Host         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type WorkerConfig struct {
	Count int
}

type RedisConfig struct {
	Addr      string
	Password  string
	DB        int
	ResultTTL time.Duration
	DedupeTTL time.Duration
}

type AppConfig struct {
	LogLevel    string
	TaskTimeout time.Duration
}

type WebhookConfig struct {
	URL             string
	Template        string
	SendingInterval time.Duration
}

// Load loads configuration from environment variables with default values
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         getEnv("SERVER_PORT", "8080"),
			Host:         getEnv("SERVER_HOST", ""),
			ReadTimeout:  getEnvDuration("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout: getEnvDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
			IdleTimeout:  getEnvDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
		},
		Worker: WorkerConfig{
			Count: getEnvInt("WORKER_COUNT", 5),
		},
		Redis: RedisConfig{
			Addr:      getEnv("REDIS_ADDR", "localhost:6379"),
			Password:  getEnv("REDIS_PASSWORD", ""),
			DB:        getEnvInt("REDIS_DB", 0),
			ResultTTL: getEnvDuration("REDIS_RESULT_TTL", 30*time.Minute),
			DedupeTTL: getEnvDuration("REDIS_DEDUPE_TTL", 0),
		},
		App: AppConfig{
			LogLevel:    getEnv("LOG_LEVEL", "info"),
			TaskTimeout: getEnvDuration("TASK_TIMEOUT", 10*time.Second),
		},
		Webhook: WebhookConfig{
			URL:             getEnv("WEBHOOK_URL", ""),
			Template:        getEnv("WEBHOOK_TEMPLATE", ""),
			SendingInterval: getEnvDuration("WEBHOOK_SENDING_INTERVAL", 10*time.Second),
		},
	}
}

// Helper functions to get environment variables with defaults
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
