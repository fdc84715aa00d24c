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

	"calmcoach.app/backend/internal/api"
	"calmcoach.app/backend/internal/config"
	"calmcoach.app/backend/internal/core"
	"calmcoach.app/backend/internal/knowledge"
	"calmcoach.app/backend/internal/store"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Setup logging
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	if cfg.LogLevel == "DEBUG" {
		log.Println("Service starting in DEBUG mode")
	}

	// Initialize database store
	dbStore, err := store.NewSQLiteStore(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer dbStore.Close()

	// The knowledge base is static and loaded once
	chunks := knowledge.Base()
	log.Printf("Knowledge base loaded with %d chunks.", len(chunks))
	retriever := core.NewRetriever(chunks, core.DefaultTopK)

	defaults := core.ProviderDefaults{
		Provider:   cfg.DefaultProvider,
		Model:      cfg.DefaultModel,
		OllamaHost: cfg.OllamaHost,
		APIKeys:    cfg.ProviderAPIKeys(),
	}

	generationService := core.NewGenerationService(dbStore, retriever, defaults)
	reflectionService := core.NewReflectionService(dbStore, defaults)

	// Initialize API Handler and Router
	apiHandler := api.NewAPIHandler(dbStore, generationService, reflectionService, cfg.JWTSecret)
	router := api.NewRouter(apiHandler)

	// Start HTTP server
	serverAddr := fmt.Sprintf(":%s", cfg.HTTPPort)

	srv := &http.Server{
		Addr:         serverAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second, // LLM calls can take time
		IdleTimeout:  120 * time.Second,
	}

	// Graceful shutdown handling
	go func() {
		log.Printf("Starting server on %s. Press Ctrl+C to quit.", serverAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Could not listen on %s: %v\n", serverAddr, err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	// Give active connections time to finish.
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exiting gracefully")
}
