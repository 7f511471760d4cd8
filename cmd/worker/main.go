package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/partshub/partshub/internal/app"
	"github.com/partshub/partshub/internal/catalog"
	"github.com/partshub/partshub/internal/clock"
	"github.com/partshub/partshub/internal/inventory"
	"github.com/partshub/partshub/internal/notify"
	"github.com/partshub/partshub/internal/offers"
	"github.com/partshub/partshub/internal/platform/cache"
	"github.com/partshub/partshub/internal/platform/db"
	"github.com/partshub/partshub/jobs"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	clk := clock.NewSystem()

	catalogRepo := catalog.NewRepository(pool)
	catalogResolver := catalog.NewResolver(catalogRepo, redisClient, cfg.CatalogCacheTTL)

	inventoryRepo := inventory.NewRepository(pool)
	inventoryService := inventory.NewService(inventoryRepo, logger)

	jobClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("init job client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()

	offersRepo := offers.NewRepository(pool)
	coordinator := offers.NewCoordinator(inventoryService, cfg.ReservationTTL, cfg.ReserveTimeout, clk)
	calculator := offers.NewCalculator(cfg.DefaultTaxRate, offers.TaxInclusive)
	offersService := offers.NewService(
		offersRepo,
		catalog.NewOfferAdapter(catalogResolver),
		coordinator,
		notify.NewEmailNotifier(jobClient, logger),
		calculator,
		nil,
		clk,
		logger,
		offers.ServiceConfig{
			DefaultCurrency: cfg.DefaultCurrency,
			DefaultValidity: cfg.OfferValidity,
		},
	)

	expiryTask, err := jobs.NewOfferExpiryTask(100)
	if err != nil {
		logger.Error("build expiry task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskTypeSendEmail, Handler: jobs.NewSendEmailHandler(jobs.SMTPConfig{Addr: cfg.SMTPAddr(), From: cfg.SMTPFrom}, logger)},
			{Type: jobs.TaskTypeOfferExpiry, Handler: jobs.NewOfferExpiryHandler(offersService, logger)},
		},
		Cron: []jobs.CronRegistration{
			{Spec: cfg.ExpirySweepCron, Task: expiryTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
