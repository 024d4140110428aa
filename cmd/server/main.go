package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"school_fees_echo/internal/config"
	"school_fees_echo/internal/handlers"
	"school_fees_echo/internal/logger"
	appMiddleware "school_fees_echo/internal/middleware"
	"school_fees_echo/internal/services"
)

func main() {
	cfg := config.Load()
	logger.Init(cfg.Env)

	// Initialize Database
	db, err := services.InitDB(cfg.DatabaseURL, cfg.IsProduction())
	if err != nil {
		logger.Fatal("Failed to connect to database", "error", err)
	}
	if err := services.AutoMigrate(db); err != nil {
		logger.Fatal("Failed to run database migrations", "error", err)
	}

	// Redis is optional; without it my-payments is read straight from the database
	var cache *services.RedisCache
	if cfg.RedisURL != "" {
		cache, err = services.NewRedisCache(cfg.RedisURL, cfg.CachePrefix, cfg.CacheTTL)
		if err != nil {
			logger.Warn("Redis unavailable, caching disabled", "error", err)
			cache = nil
		}
	}

	paymentService, err := services.NewPaymentServiceFromConfig(cfg, db, cache)
	if err != nil {
		logger.Fatal("Failed to configure payments", "error", err)
	}

	authenticator, err := services.NewAuthenticator(context.Background(), cfg, services.NewGormPaymentStore(db))
	if err != nil {
		logger.Warn("Authentication not configured, protected routes will answer 401", "error", err)
		authenticator = nil
	}

	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = appMiddleware.CustomErrorHandler
	e.Validator = handlers.NewRequestValidator()

	// Middleware
	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.RequestID())
	e.Use(appMiddleware.RequestContext())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:    true,
		LogURI:       true,
		LogMethod:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			level := slog.LevelInfo
			if v.Error != nil || v.Status >= http.StatusInternalServerError {
				level = slog.LevelError
			}
			logger.GetLogger().LogAttrs(c.Request().Context(), level, "request",
				slog.String("method", v.Method),
				slog.String("uri", v.URI),
				slog.Int("status", v.Status),
				slog.Duration("latency", v.Latency),
				slog.String("request_id", v.RequestID),
			)
			return nil
		},
	}))
	e.Use(middleware.Recover())

	// Initialize handlers
	paymentHandler := handlers.NewPaymentHandler(paymentService, cfg.Currency)
	checks := map[string]handlers.Pinger{"database": services.DBPinger{DB: db}}
	if cache != nil {
		checks["redis"] = cache
	}
	healthHandler := handlers.NewHealthHandler(checks)

	e.GET("/healthz", healthHandler.Healthz)

	api := e.Group("/api/v1")

	// Public routes
	api.GET("/payments/verify/:reference", paymentHandler.VerifyPayment)

	// Protected routes
	protected := api.Group("/payments")
	protected.Use(appMiddleware.RequireAuth(authenticator))
	protected.POST("/initialize", paymentHandler.InitializePayment)
	protected.GET("/my-payments", paymentHandler.ListMyPayments)

	// Start server
	go func() {
		logger.Info("Server starting", "port", cfg.Port, "gateway", cfg.PaymentGateway)
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server stopped", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		logger.Error("Graceful shutdown failed", "error", err)
	}
	if err := cache.Close(); err != nil {
		logger.Warn("Redis close failed", "error", err)
	}
}
