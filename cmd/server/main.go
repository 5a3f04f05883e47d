package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/stridewear/api/internal"
	"github.com/stridewear/api/internal/events"
	"github.com/stridewear/api/internal/handler"
	"github.com/stridewear/api/internal/middleware"
	"github.com/stridewear/api/internal/repository"
	"github.com/stridewear/api/internal/service"
	"github.com/stridewear/api/internal/telemetry"
)

func run() error {
	ctx := context.Background()

	// Load configuration
	cfg, err := internal.NewConfig()
	if err != nil {
		return fmt.Errorf("config initialization failed: %w", err)
	}

	// Configure logger
	logger := internal.NewLogger(os.Stdout, cfg.Env, cfg.LogLevel)

	// Connect storage
	logger.Info("Connecting to MongoDB...")
	client, err := repository.ConnectMongo(ctx, cfg.MongoURI)
	if err != nil {
		return fmt.Errorf("mongodb connection failed: %w", err)
	}
	defer func() {
		disconnectCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Disconnect(disconnectCtx); err != nil {
			logger.Error("failed to disconnect mongodb", "error", err)
		}
	}()
	logger.Info("MongoDB connection established")

	db := client.Database(cfg.MongoDB)
	if err := repository.EnsureIndexes(ctx, db); err != nil {
		return fmt.Errorf("index creation failed: %w", err)
	}
	logger.Info("MongoDB indexes ensured")

	// Initialize repositories
	orderRepo := repository.NewMongoOrderRepository(db)
	cancelRepo := repository.NewMongoCancelRequestRepository(db)
	cartRepo := repository.NewMongoCartRepository(db)
	inventoryRepo := repository.NewMongoInventoryRepository(db)
	couponRepo := repository.NewMongoCouponRepository(db)
	userRepo := repository.NewMongoUserRepository(db)

	// Initialize event publishing (optional)
	var publisher *events.Publisher
	if cfg.NatsURL != "" {
		logger.Info("Connecting to NATS...", "url", cfg.NatsURL)
		publisher, err = events.Connect(cfg.NatsURL, logger)
		if err != nil {
			return fmt.Errorf("nats connection failed: %w", err)
		}
		defer publisher.Close()
		logger.Info("NATS connection established")
	} else {
		logger.Warn("NATS_URL not set, event publishing disabled")
	}

	// Initialize telemetry
	httpMetrics := middleware.NewMetrics("stridewear")
	businessMetrics := telemetry.NewBusinessMetrics("stridewear")

	// Initialize order service
	var eventSink service.EventPublisher
	if publisher != nil {
		eventSink = publisher
	}
	orderService := service.NewOrderService(
		orderRepo, cancelRepo, cartRepo, inventoryRepo, couponRepo, userRepo,
		eventSink, businessMetrics, logger, cfg.Checkout,
	)
	logger.Info("Order service initialized")

	// Build router
	e := handler.NewRouter(orderService, client, httpMetrics, logger)

	// Start server with graceful shutdown
	addr := fmt.Sprintf(":%d", cfg.Port)
	go func() {
		logger.Info("Starting server", "address", addr)
		if err := e.Start(addr); err != nil {
			logger.Info("server stopped", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	logger.Info("Server stopped cleanly")
	return nil
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}
