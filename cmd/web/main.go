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

	"github.com/aaaiserr1401/smart-mabel-kz/internal/config"
	"github.com/aaaiserr1401/smart-mabel-kz/internal/database"
	"github.com/aaaiserr1401/smart-mabel-kz/internal/metrics"
	"github.com/aaaiserr1401/smart-mabel-kz/internal/services"
	"github.com/aaaiserr1401/smart-mabel-kz/internal/store"
	"github.com/aaaiserr1401/smart-mabel-kz/internal/web"
)

const shutdownTimeout = 30 * time.Second

func main() {
	// Initialize structured logging
	log.SetPrefix("[WEB] ")
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Validate critical configuration
	if err := validateConfig(cfg); err != nil {
		log.Fatalf("Configuration validation failed: %v", err)
	}

	log.Printf("Starting %s v%s", cfg.App.Name, cfg.App.Version)
	log.Printf("Environment: debug=%v, port=%s, host=%s", cfg.App.Debug, cfg.App.Port, cfg.App.Host)
	if cfg.Database.IsPostgres() {
		log.Println("Database backend: PostgreSQL")
	} else {
		log.Printf("Database backend: SQLite (%s)", cfg.Database.GetSQLitePath())
	}

	// Initialize database
	log.Println("Initializing database connection...")
	if err := database.Init(); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer func() {
		log.Println("Closing database connections...")
		if sqlDB, err := database.GetDB().DB(); err == nil {
			if closeErr := sqlDB.Close(); closeErr != nil {
				log.Printf("Error closing database: %v", closeErr)
			}
		}
	}()

	// Create service instances
	log.Println("Initializing services...")
	leadStore := store.NewLeadStore(database.GetDB())
	notifier := services.NewNotifier(cfg)
	leadSvc := services.NewLeadService(leadStore, notifier)

	if cfg.Telegram.BotToken == "" || cfg.Telegram.ChatID == "" {
		log.Println("Telegram notifications disabled (no token or chat id)")
	}
	if cfg.WhatsApp.Token == "" || cfg.WhatsApp.PhoneNumberID == "" {
		log.Println("WhatsApp notifications disabled (no token or phone number id)")
	}
	if cfg.Auth.AdminPassword == "" {
		log.Println("Warning: ADMIN_PASSWORD not set, admin area is inaccessible")
	}

	// Report connection pool stats periodically
	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for range ticker.C {
			if stats, err := database.GetStats(); err == nil {
				metrics.UpdateDBConnections(stats.InUse, stats.Idle)
			}
		}
	}()

	// Build HTTP server
	server := web.New(cfg, leadSvc, leadStore, database.HealthCheck)
	e := server.NewEcho()

	addr := fmt.Sprintf("%s:%s", cfg.App.Host, cfg.App.Port)

	// Start server in goroutine
	serverErrors := make(chan error, 1)
	go func() {
		log.Printf("Server listening on %s", addr)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			serverErrors <- fmt.Errorf("server error: %w", err)
		}
	}()

	// Wait for interrupt signal or server error
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		log.Fatalf("Server failed to start: %v", err)
	case sig := <-shutdown:
		log.Printf("Received signal: %v. Starting graceful shutdown...", sig)
	}

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := e.Shutdown(ctx); err != nil {
		log.Printf("Error during graceful shutdown: %v", err)
		if err == context.DeadlineExceeded {
			log.Println("Shutdown timeout exceeded, forcing close...")
			e.Close()
		}
	}

	log.Println("Server shutdown complete")
}

// validateConfig validates critical configuration values
func validateConfig(cfg *config.Config) error {
	if cfg.App.Port == "" {
		return fmt.Errorf("PORT must be set")
	}
	if cfg.Auth.SecretKey == "" {
		return fmt.Errorf("SECRET_KEY must be set")
	}
	if !cfg.App.Debug && cfg.Auth.SecretKey == "dev-secret-key" {
		return fmt.Errorf("SECRET_KEY must be changed from the default value in production")
	}
	return nil
}
