package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	_ "github.com/sevaportal/portal-api/api/swagger"
	"github.com/sevaportal/portal-api/internal/handler"
	"github.com/sevaportal/portal-api/internal/repository"
	"github.com/sevaportal/portal-api/internal/router"
	"github.com/sevaportal/portal-api/internal/service"
	"github.com/sevaportal/portal-api/pkg/cache"
	"github.com/sevaportal/portal-api/pkg/config"
	"github.com/sevaportal/portal-api/pkg/database"
	"github.com/sevaportal/portal-api/pkg/jobs"
	"github.com/sevaportal/portal-api/pkg/logger"
)

// @title Volunteer Portal API
// @version 1.0.0
// @description Access gate, scheduling and session lifecycle for the volunteer tutoring portal
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("database connection failed", zap.Error(err))
	}
	defer db.Close()

	if cfg.Database.RunMigrations {
		if err := database.Migrate(db.DB, logr); err != nil {
			logr.Fatal("database migration failed", zap.Error(err))
		}
	}

	rdb, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, schedule snapshots will not be cached", zap.Error(err))
		rdb = nil
	}
	if rdb != nil {
		defer rdb.Close()
	}

	validate := validator.New()
	metrics := service.NewMetricsService()

	users := repository.NewUserRepository(db)
	sessions := repository.NewSessionRepository(db)
	availability := repository.NewAvailabilityRepository(db)
	students := repository.NewStudentRepository(db)
	cacheRepo := repository.NewCacheRepository(rdb, logr)

	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Scheduler.CacheTTL, logr, rdb != nil)
	authSvc := service.NewAuthService(users, validate, logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            cfg.JWT.Issuer,
	})
	paths := service.AccessPaths{
		Login:        cfg.Access.LoginPath,
		StudentLogin: cfg.Access.StudentLoginPath,
		Unauthorized: cfg.Access.UnauthorizedPath,
	}
	accessSvc := service.NewAccessService(service.NewRouteTable(service.DefaultRoutePolicies(), paths), paths, metrics, logr)
	scheduleSvc := service.NewScheduleService(sessions, availability, students, cacheSvc, metrics, validate, logr, service.ScheduleConfig{
		DefaultStart:   cfg.Scheduler.DefaultStart,
		DefaultEnd:     cfg.Scheduler.DefaultEnd,
		MinNoticeDays:  cfg.Scheduler.MinNoticeDays,
		CacheTTL:       cfg.Scheduler.CacheTTL,
		CacheKeyPrefix: cfg.Scheduler.CacheKeyPrefix,
	})
	sessionSvc := service.NewSessionService(sessions, scheduleSvc, metrics, validate, logr)
	availabilitySvc := service.NewAvailabilityService(availability, validate, logr, cfg.Scheduler.MinNoticeDays)
	exportSvc := service.NewExportService(scheduleSvc, users, students, validate, logr)

	// One worker keeps rebuilds of the same day in order.
	warmQueue := jobs.NewQueue("schedule-warm", scheduleSvc.WarmSnapshot, jobs.QueueConfig{Workers: 1, Logger: logr})
	warmQueue.Start(ctx)
	defer warmQueue.Stop()
	scheduleSvc.UseWarmer(warmQueue)

	engine := router.Setup(cfg, router.Handlers{
		Auth:         handler.NewAuthHandler(authSvc),
		Access:       handler.NewAccessHandler(accessSvc, validate),
		Schedule:     handler.NewScheduleHandler(scheduleSvc, exportSvc),
		Session:      handler.NewSessionHandler(sessionSvc),
		Availability: handler.NewAvailabilityHandler(availabilitySvc),
		Metrics:      handler.NewMetricsHandler(metrics, db),
	}, authSvc, metrics, logr)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("server shutdown failed", zap.Error(err))
		os.Exit(1)
	}
}
