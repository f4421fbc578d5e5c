package config

import (
	"os"
	"strconv"
	"strings"
)

// Config holds the application configuration.
// Musical defaults (tempo, meter, velocity, pitch range) are compiled into
// the melody package and deliberately not configurable here.
type Config struct {
	// Environment
	Environment string
	Port        string
	LogLevel    string

	// Observability
	SentryDSN string // Sentry DSN for error tracking

	// Auth mode
	// - "none": No auth (self-hosted, local dev)
	// - "gateway": Trust X-User-* headers from an upstream gateway
	// - "jwt": Validate HMAC-signed bearer tokens with JWTSecret
	AuthMode  string
	JWTSecret string

	// Browser origins allowed to make credentialed cross-origin requests.
	// Empty allows any origin without credentials.
	CORSAllowedOrigins []string

	// Persistence
	DatabaseURL    string // Postgres DSN; empty selects the embedded Badger history
	DataDir        string // Badger directory and local artifact root
	StorageBackend string // "local" or "s3"
	S3Bucket       string
	S3Prefix       string

	// Request guards
	MaxNotes          int
	PreviewSampleRate int
}

func Load() *Config {
	return &Config{
		Environment:        getEnv("ENVIRONMENT", "development"),
		Port:               getEnv("PORT", "8080"),
		LogLevel:           strings.ToLower(getEnv("LOG_LEVEL", "info")),
		SentryDSN:          getEnv("SENTRY_DSN", ""),
		AuthMode:           getEnv("AUTH_MODE", "none"), // Default to no auth for self-hosted
		JWTSecret:          getEnv("JWT_SECRET", ""),
		CORSAllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS"),
		DatabaseURL:        getEnv("DATABASE_URL", ""),
		DataDir:            getEnv("DATA_DIR", "./data"),
		StorageBackend:     getEnv("STORAGE_BACKEND", "local"),
		S3Bucket:           getEnv("S3_BUCKET", ""),
		S3Prefix:           getEnv("S3_PREFIX", "melodies"),
		MaxNotes:           getEnvInt("MAX_NOTES", 4096),
		PreviewSampleRate:  getEnvInt("PREVIEW_SAMPLE_RATE", 44100),
	}
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value != "" {
		return value
	}
	return defaultValue
}

// getEnvList splits a comma-separated variable, dropping blank entries
func getEnvList(key string) []string {
	var values []string
	for _, v := range strings.Split(os.Getenv(key), ",") {
		if v = strings.TrimSpace(v); v != "" {
			values = append(values, v)
		}
	}
	return values
}

func getEnvInt(key string, defaultValue int) int {
	value, err := strconv.Atoi(getEnv(key, ""))
	if err != nil || value <= 0 {
		return defaultValue
	}
	return value
}

// IsProduction returns true when running in the production environment
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// IsGatewayMode returns true if running behind an authenticating gateway
func (c *Config) IsGatewayMode() bool {
	return c.AuthMode == "gateway"
}

// IsJWTMode returns true if the API validates bearer tokens itself
func (c *Config) IsJWTMode() bool {
	return c.AuthMode == "jwt"
}

// HistoryBackend names the generation history backend: postgres when
// DATABASE_URL is set, embedded badger otherwise
func (c *Config) HistoryBackend() string {
	if c.DatabaseURL != "" {
		return "postgres"
	}
	return "badger"
}

// UsesS3 returns true if artifacts are stored in S3
func (c *Config) UsesS3() bool {
	return c.StorageBackend == "s3"
}
