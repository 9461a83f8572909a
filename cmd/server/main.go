package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ErlanBelekov/store-finder/config"
	"github.com/ErlanBelekov/store-finder/internal/email"
	"github.com/ErlanBelekov/store-finder/internal/health"
	"github.com/ErlanBelekov/store-finder/internal/infrastructure/postgres"
	"github.com/ErlanBelekov/store-finder/internal/janitor"
	ctxlog "github.com/ErlanBelekov/store-finder/internal/log"
	"github.com/ErlanBelekov/store-finder/internal/metrics"
	"github.com/ErlanBelekov/store-finder/internal/session"
	httptransport "github.com/ErlanBelekov/store-finder/internal/transport/http"
	"github.com/ErlanBelekov/store-finder/internal/transport/http/handler"
	"github.com/ErlanBelekov/store-finder/internal/transport/http/middleware"
	"github.com/ErlanBelekov/store-finder/internal/transport/http/view"
	"github.com/ErlanBelekov/store-finder/internal/upload"
	"github.com/ErlanBelekov/store-finder/internal/usecase"
	"github.com/gin-gonic/gin"
	"github.com/lmittmann/tint"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	logger := newLogger(cfg.Env, cfg.SlogLevel())

	if cfg.Env != "local" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		stop()
		log.Fatalf("db: %v", err)
	}
	defer pool.Close()

	if cfg.MigrateOnStart {
		if err := postgres.Migrate(ctx, pool); err != nil {
			stop()
			log.Fatalf("migrate: %v", err)
		}
	}

	photoStorage, err := newPhotoStorage(ctx, cfg)
	if err != nil {
		stop()
		log.Fatalf("uploads: %v", err)
	}

	// Users
	userRepo := postgres.NewUserRepository(pool)
	mailer := email.NewSender(cfg.Env, cfg.ResendAPIKey, cfg.ResendFrom, logger)
	authUsecase := usecase.NewAuthUsecase(userRepo, usecase.NewPasswordAuthenticator(userRepo), mailer, logger, cfg.AppBaseURL)
	sessions := session.NewManager([]byte(cfg.SessionSecret), cfg.SessionTTL, cfg.Env != "local")

	// Stores
	storeRepo := postgres.NewStoreRepository(pool)
	storeUsecase := usecase.NewStoreUsecase(storeRepo, userRepo)
	photos := upload.NewProcessor(photoStorage, cfg.PhotoWidth, logger)

	// Reviews
	reviewRepo := postgres.NewReviewRepository(pool)
	reviewUsecase := usecase.NewReviewUsecase(reviewRepo)

	engine := gin.New()
	views := view.Load(engine, cfg.TemplatesGlob, cfg.PhotoBaseURL)

	opts := httptransport.Options{
		Views:     views,
		Sessions:  sessions,
		Users:     userRepo,
		Limiter:   middleware.NewRateLimiter(cfg.AuthRatePerSec, cfg.AuthRateBurst),
		PublicDir: cfg.PublicDir,
		HSTS:      cfg.Env != "local",
	}
	if cfg.UploadStorage == "local" {
		opts.UploadDir = cfg.UploadDir
	}

	router := httptransport.NewRouter(engine, logger, httptransport.Handlers{
		Auth:   handler.NewAuthHandler(authUsecase, sessions, views, logger),
		Store:  handler.NewStoreHandler(storeUsecase, photos, views, logger),
		Review: handler.NewReviewHandler(reviewUsecase, views, logger),
	}, opts)

	metrics.Register()
	checker := health.NewChecker(logger, prometheus.DefaultRegisterer,
		health.Dependency{Name: "postgres", Pinger: pool},
		health.Dependency{Name: "uploads", Pinger: photoStorage},
	)

	purger, err := janitor.New(userRepo, cfg.TokenPurgeSchedule, logger)
	if err != nil {
		stop()
		log.Fatalf("janitor: %v", err)
	}
	go purger.Start(ctx)

	srv := http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	metricsSrv := metrics.NewServer(":"+cfg.MetricsPort, checker)

	go func() {
		logger.Info("server started", "port", cfg.Port, "base_url", cfg.AppBaseURL)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server: %v", err)
		}
	}()

	go func() {
		logger.Info("metrics server started", "port", cfg.MetricsPort)
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server", "error", err)
		}
	}()

	<-ctx.Done()
	stop()
	logger.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", "error", err)
	}
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("metrics server shutdown", "error", err)
	}

	// Let in-flight reset emails finish.
	authUsecase.Wait()
}

func newPhotoStorage(ctx context.Context, cfg *config.Config) (upload.Storage, error) {
	if cfg.UploadStorage == "s3" {
		return upload.NewS3Storage(ctx, upload.S3Config{
			Bucket:          cfg.S3Bucket,
			Region:          cfg.S3Region,
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
		})
	}
	return upload.NewLocalStorage(cfg.UploadDir)
}

func newLogger(env string, level slog.Level) *slog.Logger {
	var inner slog.Handler
	if env == "local" {
		inner = tint.NewHandler(os.Stdout, &tint.Options{
			Level:      level,
			TimeFormat: time.Kitchen,
		})
	} else {
		inner = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		})
	}
	return slog.New(ctxlog.NewContextHandler(inner))
}
