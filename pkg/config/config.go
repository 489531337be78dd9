package config

import (
	"os"
	"strings"
)

// Config holds server configuration.
type Config struct {
	Port         string
	LogLevel     string
	DatabasePath string
	DataDir      string
	EngineURL    string
	TokenSecret  string
	CORSOrigins  []string

	// Blob storage backend selection, see pkg/blob.
	BlobStorageType string

	// RedisURL enables the Redis-backed token revocation registry when set.
	RedisURL string
}

// Load loads configuration from environment variables.
func Load() *Config {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8000"
	}

	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "INFO"
	}

	dbPath := os.Getenv("DATABASE_PATH")
	if dbPath == "" {
		dbPath = "data/colorizer.db"
	}

	dataDir := os.Getenv("DATA_DIR")
	if dataDir == "" {
		dataDir = "data"
	}

	engineURL := os.Getenv("ENGINE_URL")
	if engineURL == "" {
		// Default to the local colorization engine
		engineURL = "http://127.0.0.1:3030/colorize"
	}

	var origins []string
	if raw := os.Getenv("CORS_ORIGINS"); raw != "" {
		origins = strings.Split(raw, ",")
		for i := range origins {
			origins[i] = strings.TrimSpace(origins[i])
		}
	}

	return &Config{
		Port:            port,
		LogLevel:        logLevel,
		DatabasePath:    dbPath,
		DataDir:         dataDir,
		EngineURL:       engineURL,
		TokenSecret:     os.Getenv("TOKEN_SECRET"),
		CORSOrigins:     origins,
		BlobStorageType: os.Getenv("BLOB_STORAGE_TYPE"),
		RedisURL:        os.Getenv("REDIS_URL"),
	}
}
