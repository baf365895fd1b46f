package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pocketbook/internal/clock"
	"pocketbook/internal/config"
	"pocketbook/internal/database"
	"pocketbook/internal/logger"
	"pocketbook/internal/ratelimit"
	"pocketbook/internal/server"
	"pocketbook/internal/services"
	"pocketbook/internal/validator"
)

// @title           Pocketbook API
// @version         1.0
// @description     Pocketbook tracks incomes and expenses and keeps recurring category budgets current.

// @host      localhost:8080
// @BasePath  /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

const shutdownTimeout = 10 * time.Second

func main() {
	logger.Init(os.Getenv("ENV"))
	defer logger.Sync()

	if err := run(); err != nil {
		logger.Get().Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	log := logger.Get()

	appConfig, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	dbConfig, err := database.NewConfig(appConfig)
	if err != nil {
		return fmt.Errorf("failed to load database configuration: %w", err)
	}

	dbManager, err := database.NewManager(dbConfig)
	if err != nil {
		return fmt.Errorf("failed to create database manager: %w", err)
	}
	defer func() {
		if err := dbManager.Close(); err != nil {
			log.Warnw("closing database", "error", err)
		}
	}()

	if err := dbManager.Migrate(); err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}

	validator.Register()

	opts := server.Options{
		Clock: clock.System{},
		Budget: services.BudgetOptions{
			MaxConcurrency:   appConfig.BudgetMaxConcurrency,
			RecomputeEndDate: appConfig.BudgetRecomputeEndDate,
		},
		Swagger: appConfig.Env != "production",
	}

	if appConfig.RedisURL != "" {
		limiter, err := ratelimit.NewFromURL(appConfig.RedisURL, appConfig.RateLimitMax, appConfig.RateLimitWindow)
		if err != nil {
			return fmt.Errorf("failed to configure rate limiter: %w", err)
		}
		defer limiter.Close()

		pingCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		if err := limiter.Ping(pingCtx); err != nil {
			log.Warnw("redis unreachable, auth requests will not be throttled until it recovers", "error", err)
		}
		cancel()
		opts.AuthLimiter = limiter
	} else {
		log.Info("REDIS_URL not set, auth rate limiting disabled")
	}

	srv := &http.Server{
		Addr:              ":" + appConfig.Port,
		Handler:           server.NewRouter(dbManager.DB(), opts),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Infof("Starting Pocketbook server on port %s", appConfig.Port)
		if opts.Swagger {
			log.Infof("Swagger documentation available at http://localhost:%s/swagger/index.html", appConfig.Port)
		}
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
