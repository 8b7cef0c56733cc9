package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/config"
	delivery "github.com/egannguyen/go-kafka-ecommerce/storefront/internal/delivery/http"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/messaging/websocket"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Invalid configuration", "err", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		slog.Error("Storefront stopped", "err", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	policy, err := totalPolicy(cfg)
	if err != nil {
		return err
	}

	// --- Stores ---
	st, err := openStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	if cfg.SeedProducts {
		if err := seedProducts(ctx, st.products); err != nil {
			return err
		}
	}

	// --- Events ---
	hub := websocket.NewHub()
	defer hub.Close()

	ev, err := buildPublisher(cfg, hub, logger)
	if err != nil {
		return err
	}
	defer ev.Close()

	// --- Services ---
	inventory := service.NewInventoryService(st.products, ev.publisher)
	catalog := service.NewCatalogService(st.products)
	orders := service.NewOrderService(st.orders, st.products, st.events, inventory, ev.publisher, policy)
	carts := service.NewCartService(st.carts, st.products, orders)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		ev.relay(ctx)
	}()
	if cfg.ExpirySweepInterval > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			inventory.RunExpirySweeper(ctx, cfg.ExpirySweepInterval)
		}()
	}

	// --- HTTP API ---
	handler := delivery.NewHandler(catalog, inventory, carts, orders, hub)
	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("HTTP server starting", "addr", cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
	case err = <-serveErr:
		slog.Error("HTTP server error", "err", err)
	}
	cancel()
	slog.Info("Shutting down...")

	shutdownCtx, stop := context.WithTimeout(context.Background(), 15*time.Second)
	defer stop()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP shutdown failed", "err", err)
	}
	wg.Wait()
	return err
}

func totalPolicy(cfg *config.Config) (service.TotalPolicy, error) {
	mode, err := service.ParseTotalMode(cfg.TotalPolicy)
	if err != nil {
		return service.TotalPolicy{}, err
	}
	return service.TotalPolicy{Mode: mode, Tolerance: cfg.TotalTolerance}, nil
}
