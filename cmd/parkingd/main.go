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

	"github.com/SherClockHolmes/webpush-go"
	"golang.org/x/time/rate"

	"gupio-parking-backend/config"
	"gupio-parking-backend/internal/api"
	"gupio-parking-backend/internal/auth"
	"gupio-parking-backend/internal/db"
	"gupio-parking-backend/internal/history"
	"gupio-parking-backend/internal/metrics"
	"gupio-parking-backend/internal/notification"
	"gupio-parking-backend/internal/parking"
	"gupio-parking-backend/internal/store"
)

func main() {
	logger := log.New(os.Stdout, "parking-backend ", log.LstdFlags)

	config.LoadEnv()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config/config.yaml" // Default path for local development
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Fatalf("failed to load configuration from %s: %v", configPath, err)
	}
	logger.Printf("configuration loaded successfully from %s", configPath)

	loc := time.Local
	if cfg.Server.Timezone != "" {
		if loc, err = time.LoadLocation(cfg.Server.Timezone); err != nil {
			logger.Fatalf("invalid server.timezone %q: %v", cfg.Server.Timezone, err)
		}
	}

	gormDB, err := db.Init(&cfg.Database)
	if err != nil {
		logger.Fatalf("failed to initialize database: %v", err)
	}
	logger.Println("database initialized successfully")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	directory, err := auth.NewDirectory(cfg.Auth.Employees)
	if err != nil {
		logger.Fatalf("failed to build employee directory: %v", err)
	}
	tokens := auth.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
		logger.Printf("metrics exposed at %s", cfg.Metrics.Path)
	}

	deps := parking.Deps{
		Directory: directory,
		OTP:       auth.NewCacheOTPIssuer(cfg.Auth.OTPTTL),
		Tokens:    tokens,
		History:   history.NewGormRecorder(gormDB),
		Metrics:   m,
	}

	var webpushOptions *webpush.Options
	if cfg.Push.Enabled() {
		webpushOptions = &webpush.Options{
			VAPIDPublicKey:  cfg.Push.PublicKey,
			VAPIDPrivateKey: cfg.Push.PrivateKey,
			Subscriber:      cfg.Push.Subject,
			TTL:             cfg.Push.TTL,
		}
		pool := notification.NewWorkerPool(cfg.WorkerPool.Size, gormDB, webpushOptions)
		pool.Start(ctx)
		deps.Notifier = pool
		logger.Printf("push reminders enabled with %d workers", cfg.WorkerPool.Size)
	} else {
		logger.Println("VAPID keys are not configured; push reminders disabled")
	}

	opts := parking.Options{
		RevealOTP: cfg.Auth.RevealOTP,
		Location:  loc,
	}
	if cfg.Reminder.Enabled {
		opts.ReminderDelay = cfg.Reminder.Delay
	}

	svc := parking.NewService(store.New(), deps, opts)
	defer svc.Close()

	if err := api.RegisterValidators(); err != nil {
		logger.Fatalf("failed to register request validators: %v", err)
	}
	router := api.NewRouter(svc, tokens, gormDB, webpushOptions, api.RouterOptions{
		RateLimit:   rate.Limit(cfg.Server.RateLimitPerSec),
		RateBurst:   cfg.Server.RateLimitBurst,
		CacheTTL:    time.Duration(cfg.Server.CacheTTLSeconds) * time.Second,
		CORSOrigins: cfg.Server.CORSOrigins,
		Metrics:     m,
		MetricsPath: cfg.Metrics.Path,
	})
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		logger.Printf("HTTP server starting on port %d", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("HTTP server ListenAndServe: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	<-stop
	logger.Println("Shutdown signal received, stopping services...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Fatalf("HTTP server Shutdown: %v", err)
	}

	logger.Println("Server gracefully stopped")
}
