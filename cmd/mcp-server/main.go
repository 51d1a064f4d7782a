// Package main provides the MCP server entry point for the news retrieval session.
package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/bull/news-rag/internal/config"
	mcpserver "github.com/bull/news-rag/internal/mcp"
	"github.com/bull/news-rag/internal/pipeline"
)

const (
	readHeaderTimeout = 10 * time.Second
	idleTimeout       = 120 * time.Second
)

func main() {
	// Load .env file if present (local development), ignore if missing (production)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Create context that cancels on SIGTERM/SIGINT
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	cfg, err := config.Load(os.Getenv("RAG_CONFIG"))
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	port := getEnv("PORT", "8080")
	snapshot := os.Getenv("RAG_SNAPSHOT")

	// Logs go to stderr; stdout carries the MCP stream in stdio mode
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	session, err := pipeline.NewFromConfig(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("failed to create session: %v", err)
	}
	defer session.Close()

	// Fill the index in the background so /health can report progress
	go func() {
		if err := fillIndex(ctx, session, cfg, snapshot); err != nil {
			log.Printf("index not built: %v", err)
		}
	}()

	server := mcpserver.NewServer(&mcpserver.Config{
		Session:  session,
		DefaultK: cfg.TopK,
	})
	router := mcpserver.NewRouter(server, session, nil)

	// Check if running in server mode (HTTP) or stdio mode (local development)
	serverMode := getEnv("SERVER_MODE", "false") == "true"
	addr := "0.0.0.0:" + port

	if serverMode {
		log.Printf("Starting HTTP server on %s (MCP at /mcp, health at /health)", addr)
		httpServer := newHTTPServer(addr, router)
		go func() {
			<-ctx.Done()
			httpServer.Close()
		}()
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server error: %v", err)
		}
		return
	}

	// Stdio mode: also serve /health in the background for local testing
	go func() {
		log.Printf("Starting health server on %s", addr)
		if err := newHTTPServer(addr, router).ListenAndServe(); err != nil {
			log.Printf("Health server error: %v", err)
		}
	}()

	log.Println("Starting news RAG MCP server (stdio mode)...")
	if err := server.Run(ctx); err != nil {
		log.Printf("server error: %v", err)
		os.Exit(1)
	}
}

// fillIndex loads the snapshot at path, or ingests the configured sources.
func fillIndex(ctx context.Context, session *pipeline.Session, cfg config.Config, path string) error {
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		if err := session.LoadSnapshot(f); err != nil {
			return err
		}
		log.Printf("Loaded index snapshot %s", path)
		return nil
	}

	if len(cfg.Sources) == 0 {
		log.Println("No sources configured; set sources in the config or RAG_SOURCES")
		return nil
	}

	result, err := session.Ingest(ctx, cfg.Sources)
	if err != nil {
		return err
	}
	log.Printf("Indexed %d/%d sources (%d fragments) in %s",
		result.LoadedDocs, result.TotalSources, result.TotalFragments, result.Duration)
	for _, failed := range result.FailedSources {
		log.Printf("  skipped %s: %s", failed.Locator, failed.Reason)
	}
	return nil
}

// newHTTPServer bounds header reads and idle connections. Writes are left
// unbounded since /mcp streams responses.
func newHTTPServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
		IdleTimeout:       idleTimeout,
	}
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}
