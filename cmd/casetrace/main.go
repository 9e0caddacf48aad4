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

	"github.com/casetrace/casetrace/internal/aggregate"
	"github.com/casetrace/casetrace/internal/api"
	"github.com/casetrace/casetrace/internal/cache"
	"github.com/casetrace/casetrace/internal/config"
	"github.com/casetrace/casetrace/internal/report"
	"github.com/casetrace/casetrace/internal/store"
	"github.com/casetrace/casetrace/internal/typology"
)

func main() {
	log.Println("Starting CaseTrace...")

	// Load configuration
	cfg := loadConfig()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize record store
	st, err := newStore(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize store: %v", err)
	}
	defer st.Close()

	// Initialize narrative cache
	narrativeCache, err := cache.New(&cache.Config{
		URL:       cfg.Redis.URL,
		KeyPrefix: cfg.Redis.KeyPrefix,
		TTL:       cfg.Redis.TTL,
		Enabled:   cfg.Redis.Enabled,
	})
	if err != nil {
		log.Fatalf("Failed to connect to redis: %v", err)
	}
	defer narrativeCache.Close()

	// Initialize analysis pipeline
	detector := typology.NewDetector(&typology.Config{
		StructuringFloor: cfg.Analysis.StructuringFloor,
		HighValueCutoff:  cfg.Analysis.HighValueCutoff,
		CashKeywords:     cfg.Analysis.CashKeywords,
	})
	assembler := report.NewAssembler(aggregate.New(), detector, newSummarizer(cfg, narrativeCache), cfg.Analysis.TopN)

	// Create API server
	server := api.NewServer(cfg, st, assembler)

	// Start HTTP server
	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      server.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Printf("CaseTrace API listening on port %d", cfg.Server.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server error: %v", err)
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down CaseTrace...")

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}

	log.Println("CaseTrace stopped")
}

func newStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	if cfg.Database.Mode == "memory" {
		log.Println("Using in-memory store")
		return store.NewMemoryStore(), nil
	}

	pg, err := store.NewPostgresStore(ctx, cfg.Database.URL, cfg.Database.MaxConns, cfg.Database.MinConns)
	if err != nil {
		return nil, err
	}
	if err := pg.Migrate(ctx); err != nil {
		pg.Close()
		return nil, err
	}
	return pg, nil
}

func newSummarizer(cfg *config.Config, c *cache.Cache) report.Summarizer {
	if !cfg.Narrative.Enabled {
		return nil
	}
	inner := report.NewHTTPSummarizer(&report.SummarizerConfig{
		BaseURL: cfg.Narrative.BaseURL,
		APIKey:  cfg.Narrative.APIKey,
		Model:   cfg.Narrative.Model,
		Timeout: cfg.Narrative.Timeout,
	})
	return report.NewCachedSummarizer(inner, c)
}

func loadConfig() *config.Config {
	configPath := os.Getenv("CASETRACE_CONFIG")
	if configPath != "" {
		cfg, err := config.Load(configPath)
		if err != nil {
			log.Printf("Failed to load config from %s: %v, using defaults", configPath, err)
			return config.LoadFromEnv()
		}
		return cfg
	}
	return config.LoadFromEnv()
}
