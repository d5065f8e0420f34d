package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the engine.
type Config struct {
	App     AppConfig
	Storage StorageConfig
	Redis   RedisConfig
	Logger  LoggerConfig
	Model   ModelFileConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name    string
	Env     string
	Host    string
	Port    string
	Version string
}

// StorageBackendKind selects the durable persistence implementation.
type StorageBackendKind string

const (
	StorageBackendFilesystem StorageBackendKind = "filesystem"
	StorageBackendPostgres   StorageBackendKind = "postgres"
)

// StorageConfig selects and parameterizes the storage backend.
type StorageConfig struct {
	Backend        StorageBackendKind
	DataDir        string
	DSN            string
	MaxConns       int32
	MinConns       int32
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds the chat event source connection values. An empty Addr
// disables live ingestion.
type RedisConfig struct {
	Addr         string
	Password     string
	DB           int
	ChatChannel  string
	LoginChannel string
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// ModelFileConfig locates the moderation model file.
type ModelFileConfig struct {
	Path string
}

// Load reads configuration from environment variables, applying defaults
// where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	backend := StorageBackendKind(getEnv("STORAGE_BACKEND", string(StorageBackendFilesystem)))
	if backend != StorageBackendFilesystem && backend != StorageBackendPostgres {
		return nil, fmt.Errorf("invalid STORAGE_BACKEND: %q", backend)
	}

	cfg := &Config{
		App: AppConfig{
			Name:    getEnv("APP_NAME", "report-engine"),
			Env:     getEnv("APP_ENV", "development"),
			Host:    getEnv("APP_HOST", "0.0.0.0"),
			Port:    getEnv("APP_PORT", "8080"),
			Version: getEnv("APP_VERSION", "dev"),
		},
		Storage: StorageConfig{
			Backend:        backend,
			DataDir:        getEnv("STORAGE_DATA_DIR", "data/tickets"),
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:         os.Getenv("REDIS_ADDR"),
			Password:     os.Getenv("REDIS_PASSWORD"),
			DB:           redisDB,
			ChatChannel:  getEnv("REDIS_CHAT_CHANNEL", "chat.events"),
			LoginChannel: getEnv("REDIS_LOGIN_CHANNEL", "chat.logins"),
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Model: ModelFileConfig{
			Path: getEnv("MODEL_FILE", "config/model.yaml"),
		},
	}

	if backend == StorageBackendPostgres && cfg.Storage.DSN == "" {
		return nil, fmt.Errorf("POSTGRES_DSN required for postgres backend")
	}

	return cfg, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}
