package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/iliyamo/testdrive-marketplace/internal/config"
	"github.com/iliyamo/testdrive-marketplace/internal/database"
	"github.com/iliyamo/testdrive-marketplace/internal/federated"
	"github.com/iliyamo/testdrive-marketplace/internal/handler"
	"github.com/iliyamo/testdrive-marketplace/internal/metrics"
	"github.com/iliyamo/testdrive-marketplace/internal/middleware"
	"github.com/iliyamo/testdrive-marketplace/internal/queue"
	"github.com/iliyamo/testdrive-marketplace/internal/repository"
	"github.com/iliyamo/testdrive-marketplace/internal/router"
	"github.com/iliyamo/testdrive-marketplace/internal/service"
	"github.com/iliyamo/testdrive-marketplace/internal/storage"
)

func main() {
	_ = godotenv.Load() // .env is optional; real environment variables win
	cfg := config.Load()

	log := newLogger(cfg)
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ---- Storage ----
	db, err := database.Open(ctx, cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatal("db connect failed", zap.Error(err))
	}
	defer db.Close()
	if err := database.Migrate(db); err != nil {
		log.Fatal("db migrate failed", zap.Error(err))
	}

	rdb := config.NewRedisClient(ctx)
	if rdb == nil {
		log.Warn("redis unavailable; rate limiting and response cache disabled")
	} else {
		defer rdb.Close()
	}

	verifier, err := federated.NewFirebaseVerifier(ctx, cfg.Firebase)
	if err != nil {
		log.Fatal("firebase init failed", zap.Error(err))
	}
	images := storage.NewDiskImages(cfg.UploadDir, "/uploads", log.Named("storage"))

	// ---- Events ----
	publisher := queue.NewPublisher(cfg.Events, log.Named("queue"))
	if cfg.Events.Enabled {
		go func() {
			if err := queue.StartRequestConsumer(ctx, cfg.Events, log.Named("consumer")); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("request consumer stopped", zap.Error(err))
			}
		}()
	}

	// ---- Services ----
	accounts := service.NewAccountService(
		repository.NewUserRepo(db),
		repository.NewTokenRepo(db),
		verifier,
		service.AuthConfig{
			JWTSecret:      cfg.JWTSecret,
			AccessTTLMin:   cfg.AccessTTLMin,
			RefreshTTLDays: cfg.RefreshTTLDays,
			BcryptCost:     cfg.BcryptCost,
		},
		log.Named("accounts"),
	)
	cars := repository.NewCarRepo(db)
	listings := service.NewListingService(cars, images, log.Named("listings"))
	requests := service.NewRequestService(repository.NewRequestRepo(db), cars, publisher, log.Named("requests"))
	testimonials := service.NewTestimonialService(repository.NewTestimonialRepo(db))

	if cfg.AdminEmail != "" && cfg.AdminPassword != "" {
		seedCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		if err := accounts.SeedAdmin(seedCtx, cfg.AdminName, cfg.AdminEmail, cfg.AdminPassword); err != nil {
			log.Fatal("admin seed failed", zap.Error(err))
		}
		cancel()
	}

	// ---- HTTP ----
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = handler.ErrorHandler(cfg.IsDev(), log.Named("http"))

	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(metrics.Middleware())
	e.Use(middleware.RequestLogger(log.Named("http")))
	e.Use(echomw.CORSWithConfig(corsConfig(cfg.AllowedOrigins)))
	e.Use(echomw.BodyLimit("12M"))
	e.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb, log.Named("ratelimit")))

	auth := router.Auth{Secret: cfg.JWTSecret, Accounts: accounts}
	cache := middleware.NewResponseCache(config.LoadCacheConfig(), rdb)

	router.RegisterRoutes(e, db, cfg.UploadDir)
	router.RegisterUsers(e, handler.NewUserHandler(accounts), auth, cache)
	router.RegisterCars(e, handler.NewCarHandler(listings, images, log.Named("cars")), auth, cache)
	router.RegisterRequests(e, handler.NewRequestHandler(requests), auth)
	router.RegisterTestimonials(e, handler.NewTestimonialHandler(testimonials), auth, cache)

	addr := ":" + cfg.Port
	go func() {
		log.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", zap.Error(err))
	}
}

func newLogger(cfg config.Config) *zap.Logger {
	var (
		log *zap.Logger
		err error
	)
	if cfg.IsDev() || cfg.LogLevel == "debug" {
		log, err = zap.NewDevelopment()
	} else {
		log, err = zap.NewProduction()
	}
	if err != nil {
		panic(err)
	}
	return log
}

func corsConfig(origins []string) echomw.CORSConfig {
	c := echomw.DefaultCORSConfig
	if len(origins) > 0 {
		c.AllowOrigins = origins
	}
	c.AllowHeaders = []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization}
	return c
}
