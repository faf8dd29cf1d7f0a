package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"dashboard-backend/internal/auth"
	"dashboard-backend/internal/capture"
	"dashboard-backend/internal/cloudstore"
	"dashboard-backend/internal/cloudstore/drive"
	"dashboard-backend/internal/cloudstore/local"
	"dashboard-backend/internal/cloudstore/memory"
	"dashboard-backend/internal/documents"
	"dashboard-backend/internal/services/health"
	"dashboard-backend/internal/shared/config"
	"dashboard-backend/internal/shared/server"
	"dashboard-backend/internal/shared/storage/db"
	"dashboard-backend/internal/shared/storage/lock"
)

// App holds shared dependencies and the router built from them.
type App struct {
	Config           config.Config
	Router           *gin.Engine
	DB               *sql.DB
	Redis            *redis.Client
	Store            cloudstore.Store
	Journal          documents.Journal
	Recognizer       capture.Recognizer
	CaptureService   *capture.Service
	DocumentsService *documents.Service
	CaptureHandler   *capture.Handler
	DocumentsHandler *documents.Handler
	Health           *health.Service
}

// Option overrides a dependency before services are built.
type Option func(*App)

// WithStore replaces the configured cloud store.
func WithStore(s cloudstore.Store) Option {
	return func(a *App) { a.Store = s }
}

// WithRecognizer sets the OCR engine. Without one, /ocr only handles PDFs.
func WithRecognizer(r capture.Recognizer) Option {
	return func(a *App) { a.Recognizer = r }
}

// Build prepares shared dependencies and wires routes.
func Build(cfg config.Config, opts ...Option) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	if strings.TrimSpace(cfg.CloudStore) == "" {
		cfg.CloudStore = "local"
	}
	ctx := context.Background()

	app := &App{Config: cfg}
	for _, opt := range opts {
		opt(app)
	}

	sqlDB, err := buildDB(ctx, cfg)
	if err != nil {
		return nil, err
	}
	app.DB = sqlDB

	if app.Store == nil {
		store, err := buildStore(ctx, cfg)
		if err != nil {
			return nil, err
		}
		app.Store = store
	}

	app.Redis = buildRedis(ctx, cfg)

	if err := buildServices(app); err != nil {
		return nil, err
	}

	app.Router = server.NewRouter(server.RouterDeps{
		CORSAllowOrigins: cfg.CORSAllowOrigin,
		OCRPerMinute:     cfg.OCRRatePerMinute,
		Health:           app.Health,
		Capture:          app.CaptureHandler,
		Documents:        app.DocumentsHandler,
	})

	return app, nil
}

// Close releases pooled connections.
func (a *App) Close() {
	if a.DB != nil {
		_ = a.DB.Close()
	}
	if a.Redis != nil {
		_ = a.Redis.Close()
	}
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: DATABASE_URL empty; using in-memory filing journal")
		}
		return nil, nil
	}

	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, db.OptionsFromEnv(db.DefaultServerOptions()))
	if err != nil {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: database connect failed; using in-memory filing journal: %v", err)
			return nil, nil
		}
		return nil, err
	}
	return sqlDB, nil
}

func buildStore(ctx context.Context, cfg config.Config) (cloudstore.Store, error) {
	switch cfg.CloudStore {
	case "drive":
		creds := auth.GoogleCredentials{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			RedirectURL:  cfg.GoogleRedirectURL,
			RefreshToken: cfg.GoogleRefreshToken,
		}
		client, err := creds.HTTPClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("CLOUD_STORE=drive: %w", err)
		}
		return drive.New(ctx, client)
	case "memory":
		return memory.New(nil), nil
	default:
		return local.New(cfg.LocalStoreDir), nil
	}
}

// The folder lock is optional; any failure leaves the resolver unlocked.
func buildRedis(ctx context.Context, cfg config.Config) *redis.Client {
	if strings.TrimSpace(cfg.RedisURL) == "" {
		return nil
	}
	client, err := lock.Connect(ctx, cfg.RedisURL)
	if err != nil {
		log.Printf("bootstrap: redis unavailable; folder creation runs unlocked: %v", err)
		return nil
	}
	return client
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local":
		return true
	default:
		return false
	}
}

func buildServices(app *App) error {
	if app.DB != nil {
		app.Journal = &documents.PGJournal{DB: app.DB}
	} else {
		app.Journal = documents.NewMemoryJournal()
	}

	resolver := &documents.Resolver{Store: app.Store}
	if app.Redis != nil {
		resolver.Locker = lock.NewRedis(app.Redis)
	}

	app.CaptureService = &capture.Service{
		Store:        app.Store,
		OCR:          app.Recognizer,
		Language:     app.Config.OCRLanguage,
		Preprocessor: capture.Preprocessor{MaxWidth: app.Config.OCRMaxWidth},
	}
	app.DocumentsService = &documents.Service{
		Cloud:   app.Store,
		Folders: resolver,
		Journal: app.Journal,
	}
	app.CaptureHandler = capture.NewHandler(app.CaptureService, app.Config.UploadMaxBytes)
	app.DocumentsHandler = documents.NewHandler(app.DocumentsService, app.Config.UploadMaxBytes)

	app.Health = health.NewService()
	if app.DB != nil {
		app.Health.Register("journal", app.DB.PingContext)
	}
	if app.Redis != nil {
		app.Health.Register("lock", func(ctx context.Context) error {
			return app.Redis.Ping(ctx).Err()
		})
	}

	if app.CaptureHandler == nil || app.DocumentsHandler == nil {
		return errors.New("failed to initialize handlers")
	}
	return nil
}
