package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/scottsen/veinborn/internal/config"
	"github.com/scottsen/veinborn/internal/game"
	"github.com/scottsen/veinborn/internal/handlers"
	"github.com/scottsen/veinborn/internal/logger"
	"github.com/scottsen/veinborn/internal/middleware"
	"github.com/scottsen/veinborn/internal/script"
	"github.com/scottsen/veinborn/internal/storage"
)

func main() {
	cfg := config.Load()

	log := logger.Setup(cfg)

	log.Info("Starting Veinborn API",
		"port", cfg.Port,
		"environment", cfg.Environment,
		"data_dir", cfg.DataDir,
		"script_budget", cfg.ScriptBudget)

	store := storage.NewRedisStorage(cfg.RedisURL, cfg.DataDir, log)
	storageCtx, storageCancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer storageCancel()

	if err := store.WaitForConnection(storageCtx); err != nil {
		log.Error("Failed to connect to storage", "error", err)
		os.Exit(1)
	}
	log.Info("Storage connection established successfully")

	bridge := script.NewBridge(cfg.ScriptBudget, log)
	runtime := game.NewRuntime(bridge, log)

	// Precompile pack scripts so the first action request pays no
	// compile cost and manifest errors surface at startup.
	packs, err := store.ListPacks(storageCtx)
	if err != nil {
		log.Error("Failed to list behavior packs", "error", err)
		os.Exit(1)
	}
	for _, name := range packs {
		pack, err := store.LoadPack(storageCtx, name)
		if err != nil {
			log.Error("Failed to load behavior pack", "pack", name, "error", err)
			os.Exit(1)
		}
		for id, ref := range pack.Behaviors {
			if err := bridge.Load(ref.Script); err != nil {
				log.Error("Failed to compile behavior script", "pack", name, "behavior", id, "error", err)
				os.Exit(1)
			}
		}
		for kind, ref := range pack.Actions {
			if err := bridge.Load(ref.Script); err != nil {
				log.Error("Failed to compile action script", "pack", name, "action", kind, "error", err)
				os.Exit(1)
			}
		}
		log.Info("Behavior pack loaded", "pack", name,
			"behaviors", len(pack.Behaviors), "actions", len(pack.Actions))
	}

	mux := http.NewServeMux()

	healthHandler := handlers.NewHealthHandler(store, log)
	mux.Handle("/health", healthHandler)

	sessionHandler := handlers.NewSessionHandler(store, runtime, log)
	mux.Handle("/v1/session", sessionHandler)
	mux.Handle("/v1/session/", sessionHandler)

	packsHandler := handlers.NewPacksHandler(store, log)
	mux.Handle("/v1/packs", packsHandler)

	handler := middleware.Logger(mux)
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("Server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Server is shutting down...")

	// Close storage connection
	if err := store.Close(); err != nil {
		log.Error("Error closing storage connection", "error", err)
	}

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	log.Info("Server exited")
}
