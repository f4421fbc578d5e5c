package main

import (
	"context"
	"log"
	"path/filepath"
	"time"

	"github.com/Conceptual-Machines/musicability-api/internal/api"
	"github.com/Conceptual-Machines/musicability-api/internal/config"
	"github.com/Conceptual-Machines/musicability-api/internal/database"
	"github.com/Conceptual-Machines/musicability-api/internal/history"
	"github.com/Conceptual-Machines/musicability-api/internal/logger"
	"github.com/Conceptual-Machines/musicability-api/internal/metrics"
	"github.com/Conceptual-Machines/musicability-api/internal/services"
	"github.com/Conceptual-Machines/musicability-api/internal/storage"
	"github.com/getsentry/sentry-go"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

const (
	sentryFlushTimeout    = 2 * time.Second
	environmentProduction = "production"
)

// releaseVersion is set via ldflags during build
var releaseVersion = "dev"

// GetVersion returns the current release version
func GetVersion() string {
	return releaseVersion
}

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Load configuration
	cfg := config.Load()

	if err := logger.Init(cfg.LogLevel, cfg.IsProduction()); err != nil {
		log.Fatal("Failed to initialize logger:", err)
	}
	defer logger.Sync()

	// Initialize Sentry
	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.SentryDSN,
			Environment:      cfg.Environment,
			Release:          "musicability-api@" + releaseVersion,
			EnableTracing:    true,
			TracesSampleRate: 1.0,
			EnableLogs:       true,
			Debug:            cfg.Environment != environmentProduction,
			BeforeSend: func(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
				// Filter out sensitive data
				if event.Request != nil {
					event.Request.Headers = filterSensitiveHeaders(event.Request.Headers)
				}
				return event
			},
		}); err != nil {
			logger.Error("Failed to initialize Sentry", err, nil)
		} else {
			logger.Info("Sentry initialized", logger.Fields{"environment": cfg.Environment, "release": releaseVersion})
			// Flush on shutdown
			defer sentry.Flush(sentryFlushTimeout)
		}
	} else {
		logger.Warn("Sentry not configured (SENTRY_DSN not set)", nil)
	}

	if cfg.IsJWTMode() && cfg.JWTSecret == "" {
		log.Fatal("AUTH_MODE=jwt requires JWT_SECRET")
	}

	ctx := context.Background()

	store, err := openHistory(cfg)
	if err != nil {
		sentry.CaptureException(err)
		log.Fatal("Failed to open generation history:", err)
	}
	defer func() { _ = store.Close() }()

	files, err := openStorage(ctx, cfg)
	if err != nil {
		sentry.CaptureException(err)
		log.Fatal("Failed to open artifact storage:", err)
	}

	cloudwatch, err := metrics.NewClient(ctx, cfg.Environment)
	if err != nil {
		logger.Warn("CloudWatch metrics disabled", logger.Fields{"error": err.Error()})
	}

	svc := services.NewMelodyService(store, files, cloudwatch, cfg.PreviewSampleRate)

	// Set Gin mode
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	// Initialize router
	router := api.SetupRouter(cfg, svc, cloudwatch, GetVersion())

	logger.Info("Starting server", logger.Fields{
		"port":      cfg.Port,
		"auth_mode": cfg.AuthMode,
		"history":   cfg.HistoryBackend(),
		"storage":   cfg.StorageBackend,
	})
	if err := router.Run(":" + cfg.Port); err != nil {
		sentry.CaptureException(err)
		log.Fatal("Failed to start server:", err)
	}
}

// openHistory connects Postgres when DATABASE_URL is set and falls back to
// an embedded Badger store under DATA_DIR.
func openHistory(cfg *config.Config) (history.Store, error) {
	if cfg.HistoryBackend() == "postgres" {
		db, err := database.Connect(cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := database.Migrate(db); err != nil {
			return nil, err
		}
		return history.NewGorm(db), nil
	}
	return history.NewBadger(history.BadgerOptions{
		Dir:    filepath.Join(cfg.DataDir, "history"),
		Logger: logger.BadgerLogger{},
	})
}

func openStorage(ctx context.Context, cfg *config.Config) (storage.FileStore, error) {
	if cfg.UsesS3() {
		return storage.NewS3FromEnv(ctx, cfg.S3Bucket, cfg.S3Prefix)
	}
	return storage.NewLocal(filepath.Join(cfg.DataDir, "artifacts"))
}

func filterSensitiveHeaders(headers map[string]string) map[string]string {
	filtered := make(map[string]string)
	sensitiveKeys := map[string]bool{
		"authorization": true,
		"cookie":        true,
		"x-api-key":     true,
	}

	for k, v := range headers {
		if sensitiveKeys[k] {
			filtered[k] = "[REDACTED]"
		} else {
			filtered[k] = v
		}
	}
	return filtered
}
