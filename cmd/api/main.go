package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"retail-report-api/internal/cache"
	"retail-report-api/internal/config"
	"retail-report-api/internal/handler"
	"retail-report-api/internal/middleware"
	"retail-report-api/internal/repository"
	"retail-report-api/internal/router"
	"retail-report-api/internal/service"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("Starting Retail Report API...")

	// Load configuration
	cfg := config.MustLoad()
	log.Printf("Environment: %s", cfg.App.Environment)

	// Initialize retail store based on config
	var retailStore repository.RetailStore
	switch cfg.Database.Type {
	case "mysql":
		mysqlStore, err := repository.NewMySQLRetailStore(cfg.Database.MySQLDSN())
		if err != nil {
			log.Fatalf("Failed to initialize MySQL: %v", err)
		}
		defer mysqlStore.Close()
		retailStore = mysqlStore
		log.Println("MySQL retail store initialized")
	case "sqlite":
		sqliteStore, err := repository.NewSQLiteRetailStore(cfg.Database.Path)
		if err != nil {
			log.Fatalf("Failed to initialize SQLite: %v", err)
		}
		defer sqliteStore.Close()
		retailStore = sqliteStore
		log.Println("SQLite retail store initialized")
	default: // postgres
		pgStore, err := repository.NewPostgresRetailStore(cfg.Database.PostgresDSN())
		if err != nil {
			log.Fatalf("Failed to initialize PostgreSQL: %v", err)
		}
		defer pgStore.Close()
		retailStore = pgStore
		log.Println("PostgreSQL retail store initialized")
	}

	// Initialize cache store. A failed Redis ping is a warning, not a
	// startup failure: every cached endpoint degrades to direct
	// computation while Redis is down.
	var cacheStore cache.Store
	if cfg.Cache.Type == "memory" {
		cacheStore = cache.NewMemoryStore()
		log.Println("Memory cache initialized")
	} else {
		redisStore := cache.NewRedisStore(cache.RedisConfig{
			Addr:     cfg.Cache.RedisAddress(),
			Password: cfg.Cache.RedisPassword,
			DB:       cfg.Cache.RedisDB,
		})

		pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := redisStore.Ping(pingCtx); err != nil {
			log.Printf("Warning: Redis connection failed, serving degraded: %v", err)
		} else {
			log.Printf("Redis cache initialized at %s", cfg.Cache.RedisAddress())
		}
		cancel()

		cacheStore = redisStore
	}
	defer cacheStore.Close()

	// Initialize services
	gateway := service.NewGateway(retailStore, cfg.Cache.QueryTimeout)
	reports := service.NewReportService(cacheStore, gateway, cfg.Cache.Prefix, cfg.Cache.ReportTTL, cfg.Cache.CustomerTTL)
	invalidator := service.NewInvalidator(cacheStore, cfg.Cache.Prefix)
	loader := service.NewLoader(retailStore, invalidator)

	// Initialize handlers
	healthHandler := handler.NewHealthHandler(cfg.App.Version, retailStore, cacheStore)
	reportHandler := handler.NewReportHandler(reports)
	adminHandler := handler.NewAdminHandler(loader, invalidator, retailStore, cacheStore,
		cfg.Seed.CustomersCSV, cfg.Seed.TransactionsCSV)

	// Create router
	r := router.New(router.Config{
		HealthHandler:      healthHandler,
		ReportHandler:      reportHandler,
		AdminHandler:       adminHandler,
		AdminKeyMiddleware: middleware.NewAdminKeyMiddleware(cfg.App.AdminKey),
	})

	// Create HTTP server
	srv := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server in goroutine
	go func() {
		log.Printf("Server listening on %s", cfg.Server.Address())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	log.Println("Server stopped")
	fmt.Println("Goodbye!")
}
