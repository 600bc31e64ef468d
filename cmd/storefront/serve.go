package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	"github.com/jcmexdev/storefront/internal/pkg/cache"
	"github.com/jcmexdev/storefront/internal/pkg/config"
	"github.com/jcmexdev/storefront/internal/pkg/telemetry"
	"github.com/jcmexdev/storefront/internal/storefront/core/domain"
	"github.com/jcmexdev/storefront/internal/storefront/core/service"
	"github.com/jcmexdev/storefront/internal/storefront/infra/adapters/realtime"
	"github.com/jcmexdev/storefront/internal/storefront/infra/adapters/sqlstore"
	"github.com/jcmexdev/storefront/internal/storefront/infra/httpx"
)

const serviceName = "storefront"

func serve(c *cli.Context) error {
	ctx := c.Context

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	currencyUnit, err := cfg.CurrencyUnit()
	if err != nil {
		return err
	}

	logger := telemetry.NewLogger(os.Stdout, cfg.LogLevel).With(slog.String("service", serviceName))
	slog.SetDefault(logger)

	shutdownTracer, err := telemetry.SetupTracer(ctx, telemetry.TracerConfig{
		ServiceName: serviceName,
		Environment: cfg.AppEnv,
		Endpoint:    cfg.OTLPEndpoint,
	})
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracer(shutdownCtx); err != nil {
			logger.Error("tracer shutdown error", slog.Any("error", err))
		}
	}()

	store, err := sqlstore.Open(ctx, cfg.StoreDriver, cfg.StoreDSN)
	if err != nil {
		return err
	}
	defer store.Close()

	var idempotency cache.Cache = cache.Nop{Namespace: serviceName}
	if cfg.RedisAddr != "" {
		client, err := cache.Connect(ctx, cfg.RedisAddr)
		if err != nil {
			return err
		}
		defer client.Close()
		idempotency = cache.NewRedisCache(client, serviceName)
	} else {
		logger.Warn("redis not configured, checkout idempotency relies on the database only")
	}

	hub := realtime.NewHub(logger.With(slog.String("component", "realtime")))
	notifier := service.NewNotifier(store, hub, logger)
	checkout := service.NewCheckoutService(store, idempotency, notifier, service.CheckoutConfig{
		Pricing: domain.Pricing{
			TaxRate:               cfg.TaxRate,
			FreeShippingThreshold: cfg.FreeShippingThreshold,
			ShippingFee:           cfg.ShippingFee,
		},
		Currency:       currencyUnit,
		IdempotencyTTL: cfg.IdempotencyTTL,
	}, logger)

	handler := httpx.NewHandler(httpx.Services{
		Orders:        service.NewOrderService(store, notifier, hub, logger),
		Checkout:      checkout,
		Carts:         service.NewCartService(store, logger),
		Products:      service.NewProductService(store, logger),
		Notifications: notifier,
		Health:        store.Ping,
	}, hub, logger)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           httpx.NewRouter(handler, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("storefront listening",
			slog.String("addr", cfg.HTTPAddr),
			slog.String("store", store.Driver()),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return hub.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down", slog.Duration("timeout", cfg.ShutdownTimeout))

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http shutdown: %w", err)
		}
		return nil
	})

	return g.Wait()
}

func migrate(_ *cli.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := telemetry.NewLogger(os.Stdout, cfg.LogLevel)

	if err := sqlstore.Migrate(cfg.StoreDriver, cfg.StoreDSN); err != nil {
		return err
	}
	logger.Info("migrations applied", slog.String("driver", cfg.StoreDriver))
	return nil
}
