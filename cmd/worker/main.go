package main

import (
	"context"
	"errors"
	"log"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp/fasthttpadaptor"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/bkaradag/notify-relay/internal/cache"
	"github.com/bkaradag/notify-relay/internal/client"
	"github.com/bkaradag/notify-relay/internal/config"
	"github.com/bkaradag/notify-relay/internal/handler"
	"github.com/bkaradag/notify-relay/internal/infra/postgresql"
	"github.com/bkaradag/notify-relay/internal/infra/postgresql/migrations"
	infraredis "github.com/bkaradag/notify-relay/internal/infra/redis"
	"github.com/bkaradag/notify-relay/internal/observability"
	"github.com/bkaradag/notify-relay/internal/queue"
	"github.com/bkaradag/notify-relay/internal/repository"
	"github.com/bkaradag/notify-relay/internal/sender"
	"github.com/bkaradag/notify-relay/internal/service"
	"github.com/bkaradag/notify-relay/internal/transport"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("failed to load config", zap.Error(err))
	}

	logger, err := observability.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Fatal("failed to initialize logger", zap.Error(err))
	}
	defer logger.Sync() //nolint:errcheck

	db, err := postgresql.NewPostgres(cfg.DatabaseDSN)
	if err != nil {
		logger.Fatal("postgres initialization failed", zap.Error(err))
	}

	if err := migrations.Migrate(db); err != nil {
		logger.Fatal("database migrations failed", zap.Error(err))
	}

	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("postgres underlying db init failed", zap.Error(err))
	}
	defer sqlDB.Close()

	rdb, err := infraredis.NewRedis(cfg.RedisURL)
	if err != nil {
		logger.Fatal("redis initialization failed", zap.Error(err))
	}
	defer rdb.Close()

	broker, err := queue.NewRabbitMQ(cfg.RabbitMQURL)
	if err != nil {
		logger.Fatal("rabbitmq initialization failed", zap.Error(err))
	}
	defer broker.Close()

	identityClient, err := client.NewIdentityClient(cfg.UserServiceURL, cfg.DownstreamTimeout())
	if err != nil {
		logger.Fatal("identity client initialization failed", zap.Error(err))
	}

	templateClient, err := client.NewTemplateClient(cfg.TemplateServiceURL, cfg.DownstreamTimeout())
	if err != nil {
		logger.Fatal("template client initialization failed", zap.Error(err))
	}

	transportSender, err := sender.NewWebhookSender(cfg.TransportURL)
	if err != nil {
		logger.Fatal("transport sender initialization failed", zap.Error(err))
	}

	statusStore, err := cache.NewStatusStore(rdb)
	if err != nil {
		logger.Fatal("status store initialization failed", zap.Error(err))
	}

	limiter, err := infraredis.NewRedisRateLimiter(rdb, cfg.SendRatePerSec)
	if err != nil {
		logger.Fatal("rate limiter initialization failed", zap.Error(err))
	}

	deliveryRepo := repository.NewGormDeliveryLogRepo(db)
	attemptRepo := repository.NewGormAttemptRepo(db)

	orchestrator, err := service.NewOrchestrator(
		deliveryRepo,
		attemptRepo,
		identityClient,
		templateClient,
		transportSender,
		statusStore,
		limiter,
		logger,
	)
	if err != nil {
		logger.Fatal("orchestrator initialization failed", zap.Error(err))
	}

	publisher := queue.NewRabbitMQPublisher(broker)
	defer publisher.Close()

	consumer := queue.NewRabbitMQConsumer(broker, queue.PrefetchPerWorker, logger)
	defer consumer.Close()

	worker, err := service.NewWorker(
		consumer,
		publisher,
		orchestrator,
		cfg.WorkerConcurrency,
		cfg.MaxRetries,
		cfg.RetryBaseDelay(),
		logger,
	)
	if err != nil {
		logger.Fatal("worker initialization failed", zap.Error(err))
	}

	metrics := observability.NewMetrics()
	consumer.SetMetrics(metrics)
	orchestrator.SetMetrics(metrics)
	worker.SetMetrics(metrics)

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler:          transport.ErrorHandler(logger),
	})
	app.Use(metrics.HTTPMiddleware())
	handler.RegisterHealthRoutes(app, sqlDB, rdb, broker)
	if err := handler.RegisterDeliveryRoutes(app, deliveryRepo, attemptRepo, statusStore); err != nil {
		logger.Fatal("delivery routes registration failed", zap.Error(err))
	}

	metricsHandler := fasthttpadaptor.NewFastHTTPHandler(metrics.Handler())
	app.Get("/metrics", func(c *fiber.Ctx) error {
		metricsHandler(c.Context())
		return nil
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, groupCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("notify-relay worker started",
			zap.Int("concurrency", cfg.WorkerConcurrency),
			zap.Int("maxRetries", cfg.MaxRetries),
			zap.Duration("retryBaseDelay", cfg.RetryBaseDelay()),
		)
		return worker.Start(groupCtx)
	})

	g.Go(func() error {
		logger.Info("ops endpoints listening", zap.Int("port", cfg.HTTPPort))
		return app.Listen(":" + strconv.Itoa(cfg.HTTPPort))
	})

	g.Go(func() error {
		<-groupCtx.Done()
		return app.ShutdownWithTimeout(shutdownTimeout)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker shut down with error", zap.Error(err))
	}
	logger.Info("notify-relay worker stopped")
}
