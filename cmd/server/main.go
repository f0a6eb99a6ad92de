package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	contactmodels "phone-sim-demo/backend/contact/models"
	conversationmodels "phone-sim-demo/backend/conversation/models"
	loremodels "phone-sim-demo/backend/lore/models"
	"phone-sim-demo/backend/pkg/config"
	"phone-sim-demo/backend/pkg/di"
	"phone-sim-demo/backend/pkg/logger"
	"phone-sim-demo/backend/pkg/router"
	"phone-sim-demo/backend/shared/observability"

	"github.com/joho/godotenv"
)

func main() {
	// No .env file is fine, environment variables still apply
	_ = godotenv.Load()

	cfg := config.New()

	log := logger.New(logger.Config{
		Level: cfg.Logging.Level,
		JSON:  cfg.Logging.Format != "text",
	})
	logger.SetGlobal(log)

	log.Info("Starting application", "env", cfg.Server.Env)

	shutdownTracing := observability.SetupTracing("phone-sim-backend")
	defer shutdownTracing()
	observability.SetupPrometheusMetrics()

	db, err := config.NewDB()
	if err != nil {
		log.LogError(err, "Failed to initialize database")
		os.Exit(1)
	}

	if err := db.AutoMigrate(
		&contactmodels.Contact{},
		&loremodels.LoreEntry{},
		&loremodels.ForbiddenWord{},
		&conversationmodels.MessageRecord{},
	); err != nil {
		log.LogError(err, "Failed to migrate database")
		os.Exit(1)
	}

	container, err := di.New(db)
	if err != nil {
		log.LogError(err, "Failed to initialize dependency container")
		os.Exit(1)
	}

	// Replay archived conversations into memory before anything writes
	if err := container.Conversations.Hydrate(); err != nil {
		log.LogError(err, "Failed to hydrate conversation logs")
		os.Exit(1)
	}
	container.Conversations.StartPersistence()

	r := router.New(container)
	r.SetupRoutes()

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: r.Engine,
	}

	go func() {
		log.Info("Server starting", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.LogError(err, "Server failed to start")
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.LogError(err, "Server forced to shutdown")
	}

	r.Stop()
	container.Shutdown()

	log.Info("Server exited gracefully")
}
