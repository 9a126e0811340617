package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/lucratix100/cmga-invoice/internal"
	"github.com/lucratix100/cmga-invoice/internal/handler"
	"github.com/lucratix100/cmga-invoice/internal/middleware"
	"github.com/lucratix100/cmga-invoice/internal/repository"
	"github.com/lucratix100/cmga-invoice/internal/router"
	"github.com/lucratix100/cmga-invoice/internal/routes"
	"github.com/lucratix100/cmga-invoice/internal/service"
	"github.com/lucratix100/cmga-invoice/internal/worker"
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

	// Initialize database/sql connection for migrations
	logger.Info("Connecting to database...")
	sqlDB, err := sql.Open("pgx", cfg.DatabaseUrl)
	if err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	defer sqlDB.Close()

	// Verify database connection
	if err := sqlDB.Ping(); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	logger.Info("Database connection established")

	// Run migrations
	logger.Info("Running database migrations...")
	if err := internal.RunMigrations(sqlDB); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	logger.Info("Database migrations completed successfully")

	// Initialize pgx connection pool for application
	pool, err := pgxpool.New(ctx, cfg.DatabaseUrl)
	if err != nil {
		return fmt.Errorf("failed to create connection pool: %w", err)
	}
	defer pool.Close()

	// Initialize repository
	repo := repository.New(pool)

	// Initialize services
	invoiceService := service.NewInvoiceService(repo, logger)
	deliveryService := service.NewDeliveryService(repo, logger)
	recoveryService := service.NewRecoveryService(repo)

	// Start background worker and scheduler
	if cfg.Worker.Enabled {
		w := worker.NewWorker(repo, invoiceService, worker.Config{
			PollInterval:   cfg.Worker.PollInterval,
			MaxConcurrency: cfg.Worker.MaxConcurrency,
			Queue:          "recovery",
		}, logger)
		go func() {
			if err := w.Start(ctx); err != nil && ctx.Err() == nil {
				logger.Error("worker stopped", "error", err)
			}
		}()
	}

	if cfg.Scheduler.Enabled {
		s := worker.NewScheduler(repo, cfg.Scheduler.Interval, logger)
		go func() {
			if err := s.Start(ctx); err != nil && ctx.Err() == nil {
				logger.Error("scheduler stopped", "error", err)
			}
		}()
	}

	// Build route dependencies
	apiDeps := routes.APIDeps{
		InvoiceHandler:  handler.NewInvoiceHandler(invoiceService, logger),
		DeliveryHandler: handler.NewDeliveryHandler(deliveryService, logger),
		RecoveryHandler: handler.NewRecoveryHandler(recoveryService, logger),
	}

	// Initialize Prometheus metrics
	metrics := middleware.NewMetrics("cmga")

	// Create router and register routes
	r := router.New(
		router.Recovery(logger),
		middleware.RequestID,
		metrics.Middleware,
		middleware.MaxBodySize(middleware.DefaultMaxBodySize),
		router.Logger(logger),
	)

	// Metrics endpoint (protect via firewall in production)
	r.Get("/metrics", func(w http.ResponseWriter, req *http.Request) {
		metrics.Handler().ServeHTTP(w, req)
	})

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	routes.RegisterAPIRoutes(r, apiDeps)

	addr := fmt.Sprintf(":%d", cfg.Port)
	logger.Info("Starting server", "address", addr)

	if err := http.ListenAndServe(addr, r); err != nil {
		return fmt.Errorf("server failed: %w", err)
	}

	return nil
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}
