package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/noah-isme/pe-space-master/internal/allocator"
	"github.com/noah-isme/pe-space-master/internal/handler"
	"github.com/noah-isme/pe-space-master/internal/models"
	"github.com/noah-isme/pe-space-master/internal/repository"
	"github.com/noah-isme/pe-space-master/internal/service"
	"github.com/noah-isme/pe-space-master/pkg/cache"
	"github.com/noah-isme/pe-space-master/pkg/config"
	"github.com/noah-isme/pe-space-master/pkg/database"
	"github.com/noah-isme/pe-space-master/pkg/export"
	"github.com/noah-isme/pe-space-master/pkg/storage"
)

const shutdownTimeout = 10 * time.Second

type authUserStore interface {
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	UpdateLastLogin(ctx context.Context, id string, ts time.Time) error
}

type sessionRepository interface {
	Get(ctx context.Context, id string) (*models.AllocationSession, error)
	Save(ctx context.Context, session *models.AllocationSession, ttl time.Duration) error
	Delete(ctx context.Context, id string) error
}

// App holds the wired services and router of the HTTP API.
type App struct {
	cfg     *config.Config
	logger  *zap.Logger
	router  *gin.Engine
	exports *service.ExportService

	db    *sqlx.DB
	redis *redis.Client
}

// New wires repositories, services and handlers from configuration. Postgres
// and Redis are only dialled when enabled.
func New(ctx context.Context, cfg *config.Config, logr *zap.Logger) (*App, error) {
	if logr == nil {
		logr = zap.NewNop()
	}
	app := &App{cfg: cfg, logger: logr}
	validate := validator.New()
	metrics := service.NewMetricsService()
	checks := map[string]handler.ReadinessCheck{}

	static, err := repository.NewStaticUserRepository(cfg.Auth.Users)
	if err != nil {
		return nil, err
	}
	var users authUserStore = static
	if cfg.Database.Enabled {
		db, err := database.NewPostgres(ctx, cfg.Database)
		if err != nil {
			return nil, err
		}
		app.db = db
		if err := database.EnsureSchema(ctx, db); err != nil {
			app.Close()
			return nil, err
		}
		repo := repository.NewUserRepository(db)
		if err := seedUsers(ctx, repo, static.Users()); err != nil {
			app.Close()
			return nil, err
		}
		users = repo
		checks["database"] = db.PingContext
	}

	var sessions sessionRepository = repository.NewMemorySessionRepository()
	if cfg.Redis.Enabled {
		client, err := cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			app.Close()
			return nil, err
		}
		app.redis = client
		sessions = repository.NewRedisSessionRepository(client, logr)
		checks["sessions"] = func(ctx context.Context) error { return client.Ping(ctx).Err() }
	}

	facilities := allocator.DefaultFacilities()
	if cfg.Allocation.FacilitiesFile != "" {
		fm, err := allocator.LoadFacilityFile(cfg.Allocation.FacilitiesFile)
		if err != nil {
			app.Close()
			return nil, err
		}
		facilities = fm.Entries()
	}

	store, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
	if err != nil {
		app.Close()
		return nil, err
	}
	signer := storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL)

	authSvc := service.NewAuthService(users, validate, logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            "pe-space-master",
	})
	allocationSvc := service.NewAllocationService(sessions, metrics, validate, logr, service.AllocationConfig{
		StartDate:  cfg.Allocation.StartDate,
		Weeks:      cfg.Allocation.Weeks,
		WeekPolicy: cfg.Allocation.WeekPolicy,
		StartWeek:  cfg.Allocation.StartWeek,
		HeaderRow:  cfg.Allocation.HeaderRow,
		Debug:      cfg.Allocation.Debug,
		SessionTTL: cfg.Session.TTL,
		Facilities: facilities,
	})
	reportSvc := service.NewReportService(allocationSvc, validate, logr)
	app.exports = service.NewExportService(allocationSvc, store, signer, service.ExportConfig{
		APIPrefix:       cfg.APIPrefix,
		ResultTTL:       cfg.Exports.SignedURLTTL,
		CleanupInterval: cfg.Exports.CleanupInterval,
	}, validate, logr, export.NewCSVExporter(), export.NewPDFExporter(), export.NewXLSXExporter())

	app.router = NewRouter(cfg, logr, authSvc, metrics, Handlers{
		Auth:       handler.NewAuthHandler(authSvc, allocationSvc),
		Allocation: handler.NewAllocationHandler(allocationSvc, cfg.Upload.MaxBytes),
		Facility:   handler.NewFacilityHandler(allocationSvc, cfg.Upload.MaxBytes),
		Report:     handler.NewReportHandler(reportSvc),
		Export:     handler.NewExportHandler(app.exports),
		Metrics:    handler.NewMetricsHandler(metrics, checks),
	})
	return app, nil
}

// Router returns the configured gin engine.
func (a *App) Router() *gin.Engine {
	return a.router
}

// Run serves HTTP until ctx is cancelled, then drains in-flight requests.
func (a *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.cfg.Port),
		Handler:           a.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	cleanupCtx, stopCleanup := context.WithCancel(ctx)
	defer stopCleanup()
	a.exports.StartCleanup(cleanupCtx)

	errCh := make(chan error, 1)
	go func() {
		a.logger.Sugar().Infow("server starting", "addr", srv.Addr, "env", a.cfg.Env, "apiPrefix", a.cfg.APIPrefix)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	a.logger.Info("server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// Close releases database and Redis connections.
func (a *App) Close() {
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Warn("close database", zap.Error(err))
		}
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Warn("close redis", zap.Error(err))
		}
	}
}

// seedUsers inserts configured accounts missing from the users table.
func seedUsers(ctx context.Context, repo *repository.UserRepository, accounts []models.User) error {
	for i := range accounts {
		account := accounts[i]
		_, err := repo.FindByUsername(ctx, account.Username)
		if err == nil {
			continue
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return err
		}
		account.ID = ""
		if err := repo.Create(ctx, &account); err != nil {
			return err
		}
	}
	return nil
}
