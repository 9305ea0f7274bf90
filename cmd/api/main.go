package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"github.com/apgoswamieww-droid/expense-tracker/internal/config"
	"github.com/apgoswamieww-droid/expense-tracker/internal/database"
	"github.com/apgoswamieww-droid/expense-tracker/internal/events"
	"github.com/apgoswamieww-droid/expense-tracker/internal/logger"
	"github.com/apgoswamieww-droid/expense-tracker/internal/server"
)

// @title           Expense Tracker API
// @version         1.0
// @description     Owner-scoped expense storage and session management for the expense tracker.

// @host      localhost:8080
// @BasePath  /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger.InitWithLevel(cfg.Env, cfg.LogLevel)
	defer logger.Sync()

	if err := run(cfg); err != nil {
		logger.Get().Fatalf("Fatal error: %v", err)
	}
}

func run(cfg *config.Config) error {
	log := logger.Get()

	if err := cfg.Validate(); err != nil {
		return err
	}
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	dbManager, err := database.NewManager(cfg)
	if err != nil {
		return fmt.Errorf("failed to create database manager: %w", err)
	}
	defer func() {
		if err := dbManager.Close(); err != nil {
			log.Warnw("failed to close database", "error", err)
		}
	}()

	if err := dbManager.Migrate(); err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}

	var (
		publisher     events.Publisher = events.Nop{}
		amqpPublisher *events.AMQPPublisher
	)
	if cfg.AMQPURL != "" {
		amqpPublisher, err = events.NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			return fmt.Errorf("failed to connect to AMQP broker: %w", err)
		}
		publisher = amqpPublisher
		log.Infow("publishing expense events", "exchange", cfg.AMQPExchange)
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			log.Warnw("failed to close event publisher", "error", err)
		}
	}()

	router := server.NewRouter(server.NewDeps(dbManager.DB(), publisher, cfg.APIKey))
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.Serve(ctx, srv)
	})
	// A lost broker stops the server so the supervisor restarts it with a
	// fresh connection.
	if amqpPublisher != nil {
		g.Go(func() error {
			return amqpPublisher.Watch(ctx)
		})
	}

	log.Infof("Starting expense API on port %s", cfg.Port)
	log.Infof("Swagger documentation available at http://localhost:%s/swagger/index.html", cfg.Port)
	return g.Wait()
}
