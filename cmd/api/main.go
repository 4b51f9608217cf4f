package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"

	"github.com/kiranakart/cart-engine/api/routes"
	cartsvc "github.com/kiranakart/cart-engine/internal/cart"
	"github.com/kiranakart/cart-engine/internal/cartlocal"
	"github.com/kiranakart/cart-engine/internal/cartremote"
	"github.com/kiranakart/cart-engine/internal/catalog"
	"github.com/kiranakart/cart-engine/pkg/config"
	"github.com/kiranakart/cart-engine/pkg/db"
	"github.com/kiranakart/cart-engine/pkg/logger"
	"github.com/kiranakart/cart-engine/pkg/metrics"
	"github.com/kiranakart/cart-engine/pkg/migrate"
	"github.com/kiranakart/cart-engine/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}

	catalogRepo, err := catalog.NewRepo(dbClient)
	if err != nil {
		logg.Error(context.Background(), "failed to create catalog repo", err)
		os.Exit(1)
	}
	catalogService, err := catalog.NewService(catalogRepo, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create catalog service", err)
		os.Exit(1)
	}

	cartMetrics := metrics.NewCartMetrics(prometheus.DefaultRegisterer)

	localFor := func(deviceID string) cartsvc.Strategy {
		store, err := cartlocal.New(dbClient, deviceID, cfg.Cart.SnapshotSchemaVersion, logg)
		if err != nil {
			logg.Error(context.Background(), "building local cart strategy", err)
			return nil
		}
		return store
	}
	remoteFor := func(userID string) cartsvc.Strategy {
		store, err := cartremote.New(redisClient, userID, cfg.Cart.RemoteTTL, logg)
		if err != nil {
			logg.Error(context.Background(), "building remote cart strategy", err)
			return nil
		}
		return store
	}

	cartManager, err := cartsvc.NewManager(localFor, remoteFor, cfg.Cart.SessionIdleTimeout, logg, cartMetrics)
	if err != nil {
		logg.Error(context.Background(), "failed to create cart manager", err)
		os.Exit(1)
	}

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cartManager.StartEvictor(runCtx, cfg.Cart.EvictionInterval)

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port

	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:    addr,
		Handler: routes.NewRouter(cfg, logg, dbClient, redisClient, cartManager, catalogService),
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if err != nil && err != http.ErrServerClosed {
			logg.Error(ctx, "api server stopped unexpectedly", err)
		}
	case <-runCtx.Done():
		logg.Info(ctx, "shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "graceful shutdown failed", err)
		}
	}

	closeErr := multierr.Combine(redisClient.Close(), dbClient.Close())
	if closeErr != nil {
		logg.Error(ctx, "error closing resources", closeErr)
		os.Exit(1)
	}
}
