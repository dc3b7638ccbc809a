// Command dtq-server runs the coordination core behind an HTTP API:
// task submission and result retrieval for clients, lease pull/report
// for workers, a Prometheus scrape endpoint, and a live websocket event
// feed, with graceful shutdown on SIGINT/SIGTERM.
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/jgirmay/dtq/internal/config"
	"github.com/jgirmay/dtq/internal/coordinator"
	"github.com/jgirmay/dtq/internal/events"
	"github.com/jgirmay/dtq/internal/httpapi"
	"github.com/jgirmay/dtq/internal/leasequeue"
	"github.com/jgirmay/dtq/internal/promexport"
	"github.com/jgirmay/dtq/internal/registry"
	"github.com/jgirmay/dtq/internal/taskstore"
)

func main() {
	log.Println("[INIT] Loading configuration...")
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	log.Println("[INIT] ✓ Configuration loaded")

	store := taskstore.NewStore()
	queue := leasequeue.New()
	deadAfter := time.Duration(cfg.Queue.WorkerDeadAfterSeconds) * time.Second
	reg := registry.New(deadAfter)
	hub := events.NewHub()

	coordCfg := coordinator.Config{
		LeaseSeconds:  cfg.Queue.TaskLeaseSeconds,
		SweepInterval: time.Duration(cfg.Queue.SweepIntervalSeconds) * time.Second,
	}
	coord := coordinator.New(store, queue, reg, coordCfg, hub)

	log.Println("[INIT] Registering Prometheus collector...")
	if err := prometheus.Register(promexport.NewCollector(coord)); err != nil {
		log.Fatalf("Failed to register Prometheus collector: %v", err)
	}
	log.Println("[INIT] ✓ Prometheus collector registered")

	log.Println("[INIT] Starting sweeper...")
	coord.Start()
	log.Printf("[INIT] ✓ Sweeper running (%s)", coord)

	router := httpapi.NewRouter(coord, hub, cfg.Auth.ClientAPIKey, cfg.Auth.WorkerAPIKey)

	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan

		log.Printf("[SHUTDOWN] Received signal: %v", sig)
		log.Println("[SHUTDOWN] Initiating graceful shutdown...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("[SHUTDOWN] Server shutdown error: %v", err)
		}

		log.Println("[SHUTDOWN] Stopping sweeper...")
		coord.Stop()

		log.Println("[SHUTDOWN] ✓ Graceful shutdown complete")
		os.Exit(0)
	}()

	log.Printf("[INFO] Starting HTTP server on %s\n", cfg.Server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("Server startup error: %v", err)
	}
}
