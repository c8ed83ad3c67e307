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

	"github.com/ShobhithBN/social-media-brand-monitoring-system/internal/api"
	"github.com/ShobhithBN/social-media-brand-monitoring-system/internal/archive"
	"github.com/ShobhithBN/social-media-brand-monitoring-system/internal/config"
	"github.com/ShobhithBN/social-media-brand-monitoring-system/internal/monitoring"
	"github.com/ShobhithBN/social-media-brand-monitoring-system/internal/notifications"
	"github.com/ShobhithBN/social-media-brand-monitoring-system/internal/repository"
	"github.com/ShobhithBN/social-media-brand-monitoring-system/internal/scheduler"
	"github.com/ShobhithBN/social-media-brand-monitoring-system/internal/sentiment"
	"github.com/ShobhithBN/social-media-brand-monitoring-system/internal/sources"
	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

func main() {
	// Load environment variables from .env file if it exists
	if err := godotenv.Load(); err != nil {
		logrus.Info("No .env file found, using environment variables")
	}

	// Initialize configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Set up logging
	logrus.SetLevel(logrus.InfoLevel)
	if cfg.Debug {
		logrus.SetLevel(logrus.DebugLevel)
	}
	logrus.SetFormatter(&logrus.JSONFormatter{})

	logrus.Info("Starting Brand Monitoring System")

	ctx := context.Background()

	// Initialize the repository: Postgres when configured, in-memory otherwise
	var repo repository.Repository
	if cfg.DatabaseURL != "" {
		if err := repository.RunMigrations(cfg.DatabaseURL, cfg.MigrationsPath); err != nil {
			logrus.Fatalf("Failed to run migrations: %v", err)
		}

		pgRepo, err := repository.NewPostgresRepository(ctx, cfg.DatabaseURL)
		if err != nil {
			logrus.Fatalf("Failed to connect to database: %v", err)
		}
		defer pgRepo.Close()
		repo = pgRepo
		logrus.Info("Using Postgres repository")
	} else {
		repo = repository.NewMemoryRepository()
		logrus.Warn("DATABASE_URL not set, using in-memory repository (state is lost on restart)")
	}

	// Initialize the cycle archive when a storage account is configured
	var store archive.Store
	if cfg.StorageAccount != "" {
		azStore, err := archive.NewAzureStore(ctx, cfg.StorageAccount, cfg.StorageContainer)
		if err != nil {
			logrus.Fatalf("Failed to initialize archive store: %v", err)
		}
		store = azStore
	}

	// Initialize the upstream sentiment scorer when configured
	var scorer sentiment.Scorer
	if client := sentiment.NewClient(cfg.SentimentAPIURL); client.Enabled() {
		scorer = client
	} else {
		logrus.Warn("SENTIMENT_API_URL not set, mentions will stay unscored")
	}

	// Initialize mention sources
	srcs := []sources.Source{
		sources.NewRedditSource(cfg.RedditClientID, cfg.RedditClientSecret, cfg.Subreddits),
		sources.NewNewsSource(cfg.NewsAPIKey, cfg.Keywords),
		sources.NewTwitterSource(cfg.TwitterBearerToken),
	}

	// Initialize notification service
	notificationService := notifications.NewService(cfg)

	// Initialize monitoring service
	monitoringService := monitoring.NewService(cfg, repo, srcs, scorer, notificationService, store)

	// Initialize scheduler
	schedulerService := scheduler.NewService(cfg, monitoringService)

	// Start scheduler
	if err := schedulerService.Start(); err != nil {
		logrus.Fatalf("Failed to start scheduler: %v", err)
	}
	defer schedulerService.Stop()

	// Set up HTTP server for health checks and the charting API
	router := mux.NewRouter()

	// Health check endpoint
	router.HandleFunc("/health", healthCheckHandler).Methods("GET")

	// Cycle metrics endpoint
	router.HandleFunc("/status", statusHandler(monitoringService)).Methods("GET")

	// Manual trigger endpoint (for testing)
	router.HandleFunc("/trigger", triggerHandler(monitoringService)).Methods("POST")

	// Read-only charting API + operator alert transitions
	api.NewHandler(repo, notificationService).Register(router)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start HTTP server in a goroutine
	go func() {
		logrus.Infof("HTTP server starting on port %s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("HTTP server failed: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logrus.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logrus.Errorf("Server forced to shutdown: %v", err)
	}

	logrus.Info("Server exited")
}

func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy","timestamp":"` + time.Now().Format(time.RFC3339) + `"}`))
}

func statusHandler(monitoringService *monitoring.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		metrics := monitoringService.GetMetrics()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(metrics))
	}
}

func triggerHandler(monitoringService *monitoring.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		go func() {
			if err := monitoringService.RunCycle(context.Background()); err != nil {
				logrus.Errorf("Manual cycle trigger failed: %v", err)
			}
		}()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"message":"Evaluation cycle triggered"}`))
	}
}
