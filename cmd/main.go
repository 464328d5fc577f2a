/**
 * @description
 * Entry point for the offer settlement engine. Wires the database pool,
 * the event producer, the transfer client, the cron jobs and the HTTP
 * server, then runs until a shutdown signal arrives.
 */
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/shadea75/coachingmatch-sub000/internal/api"
	"github.com/shadea75/coachingmatch-sub000/internal/app"
	"github.com/shadea75/coachingmatch-sub000/internal/config"
	"github.com/shadea75/coachingmatch-sub000/internal/store"
	"github.com/shadea75/coachingmatch-sub000/pkg/rabbitmq"
	"github.com/shadea75/coachingmatch-sub000/pkg/transferclient"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	if err := godotenv.Load(); err != nil {
		logger.Info("no .env file found, relying on environment variables")
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	pgConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		logger.Error("unable to parse database URL", "error", err)
		os.Exit(1)
	}
	pgConfig.MaxConns = 100
	pgConfig.MinConns = 20
	pgConfig.MaxConnLifetime = 30 * time.Minute
	pgConfig.MaxConnIdleTime = 5 * time.Minute
	pgConfig.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol

	dbpool, err := pgxpool.NewWithConfig(ctx, pgConfig)
	if err != nil {
		logger.Error("unable to connect to database", "error", err)
		os.Exit(1)
	}
	defer dbpool.Close()
	logger.Info("database connection established")

	repository := store.NewRepository(dbpool)

	var publisher app.EventPublisher = &rabbitmq.EventProducerFallback{}
	if cfg.RabbitMQURL != "" {
		if producer, err := rabbitmq.NewEventProducer(cfg.RabbitMQURL); err == nil {
			publisher = producer
			defer producer.Close()
		} else {
			logger.Warn("failed to connect to RabbitMQ, using fallback publisher", "error", err)
		}
	}

	var throttle *app.WebhookThrottle
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Warn("invalid REDIS_URL, webhook throttling disabled", "error", err)
		} else {
			throttle = app.NewWebhookThrottle(redis.NewClient(opts), "coachingmatch:webhook_throttle")
		}
	}

	transfers := transferclient.NewClient(cfg.TransferAPIURL, cfg.TransferAPIKey)

	offerService := app.NewOfferService(repository, publisher, cfg.VATRate, cfg.CommissionRate)
	payoutService := app.NewPayoutService(repository, transfers, publisher)
	reportingService := app.NewReportingService(repository)
	jobs := app.NewJobs(repository, payoutService, publisher, logger)

	scheduler := app.NewScheduler(jobs, logger, cfg)
	scheduler.Start()
	logger.Info("scheduler started")

	handler := api.NewHandler(offerService, payoutService, reportingService, jobs).
		WithWebhookThrottle(throttle, cfg.WebhookRateLimit, cfg.WebhookRateWindowSeconds)
	router := api.NewRouter(handler, cfg.InternalAPIKey)

	server := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.ServerPort),
		Handler: router,
	}

	go func() {
		logger.Info("starting server", "port", cfg.ServerPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	<-sigCh
	logger.Info("shutdown signal received, gracefully shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", "error", err)
	}

	stopCtx := scheduler.Stop()
	<-stopCtx.Done()

	logger.Info("server stopped")
}
