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

	"github.com/hibiken/asynq"

	"github.com/partshub/partshub/internal/app"
	"github.com/partshub/partshub/internal/catalog"
	"github.com/partshub/partshub/internal/clock"
	"github.com/partshub/partshub/internal/inventory"
	"github.com/partshub/partshub/internal/notify"
	"github.com/partshub/partshub/internal/observability"
	"github.com/partshub/partshub/internal/offers"
	"github.com/partshub/partshub/internal/platform/cache"
	"github.com/partshub/partshub/internal/platform/db"
	"github.com/partshub/partshub/jobs"
	"github.com/partshub/partshub/report"
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
		logger.Warn("redis unavailable, catalog cache disabled", slog.Any("error", err))
		redisClient = nil
	}
	if redisClient != nil {
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}()
	}

	metrics := observability.NewMetrics()
	clk := clock.NewSystem()

	catalogRepo := catalog.NewRepository(pool)
	catalogResolver := catalog.NewResolver(catalogRepo, redisClient, cfg.CatalogCacheTTL)
	catalogHandler := catalog.NewHandler(logger, catalogResolver)

	inventoryRepo := inventory.NewRepository(pool)
	inventoryService := inventory.NewService(inventoryRepo, logger)
	inventoryHandler := inventory.NewHandler(logger, inventoryService)

	var notifier offers.NotifierPort = notify.NewLogNotifier(logger)
	if redisClient != nil {
		jobClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
		if err != nil {
			logger.Warn("init job client", slog.Any("error", err))
		} else {
			defer func() {
				if err := jobClient.Close(); err != nil {
					logger.Warn("job client close", slog.Any("error", err))
				}
			}()
			notifier = notify.NewEmailNotifier(jobClient, logger)
		}
	}

	offersRepo := offers.NewRepository(pool)
	coordinator := offers.NewCoordinator(inventoryService, cfg.ReservationTTL, cfg.ReserveTimeout, clk)
	calculator := offers.NewCalculator(cfg.DefaultTaxRate, offers.TaxInclusive)
	offersService := offers.NewService(
		offersRepo,
		catalog.NewOfferAdapter(catalogResolver),
		coordinator,
		notifier,
		calculator,
		metrics,
		clk,
		logger,
		offers.ServiceConfig{
			DefaultCurrency: cfg.DefaultCurrency,
			DefaultValidity: cfg.OfferValidity,
		},
	)

	pdfClient := report.NewClient(cfg.GotenbergURL)
	renderer := report.NewOfferRenderer(pdfClient)
	offersHandler := offers.NewHandler(logger, offersService, renderer)

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		OffersHandler:    offersHandler,
		CatalogHandler:   catalogHandler,
		InventoryHandler: inventoryHandler,
		Metrics:          metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", slog.String("addr", cfg.AppAddr))
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown", slog.Any("error", err))
		}
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server run", slog.Any("error", err))
			os.Exit(1)
		}
	}
}
