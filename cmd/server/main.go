/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the claim eligibility service. Handles
  configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Parse command-line flags
  2. Initialize the SQLite progress cache
  3. Create the backend client and load the claim catalog
  4. Configure the HTTP router and background refresher
  5. Start the server with graceful shutdown

COMMAND-LINE FLAGS:
  -port     HTTP server port (default: 8080)
  -db       SQLite cache path (default: eventcache.db)
            Use ":memory:" for an in-memory cache
  -backend  Base URL of the event backend
  -catalog  Optional claim catalog JSON file
  -poll     Background refresh interval (default: 5m, 0 disables)

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop the refresher
  2. Stop accepting new connections, drain (30s timeout)
  3. Close the cache database
  4. Exit

EXAMPLES:
  ./server -backend=https://hr.example.com/api -db=./data/eventcache.db
  ./server -backend=http://localhost:9000 -catalog=./claims.json -poll=1m

SEE ALSO:
  - api/server.go: Router configuration
  - factory/catalog.go: Claim catalog format
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/warp/claim-engine/api"
	"github.com/warp/claim-engine/claims"
	"github.com/warp/claim-engine/factory"
	"github.com/warp/claim-engine/remote"
	"github.com/warp/claim-engine/store/sqlite"
)

func main() {
	// Flags
	port := flag.Int("port", 8080, "HTTP server port")
	dbPath := flag.String("db", "eventcache.db", "SQLite cache path")
	backendURL := flag.String("backend", "http://localhost:9000", "event backend base URL")
	catalogPath := flag.String("catalog", "", "claim catalog JSON file (optional)")
	pollEvery := flag.Duration("poll", 5*time.Minute, "background refresh interval (0 disables)")
	flag.Parse()

	// Initialize cache store
	store, err := sqlite.New(*dbPath)
	if err != nil {
		log.Fatalf("Failed to initialize cache database: %v", err)
	}
	defer store.Close()

	// Claim configuration: defaults, overridden by the catalog file
	ruleset := claims.DefaultRuleset()
	if *catalogPath != "" {
		data, err := os.ReadFile(*catalogPath)
		if err != nil {
			log.Fatalf("Failed to read claim catalog: %v", err)
		}
		ruleset, err = factory.ParseCatalog(data)
		if err != nil {
			log.Fatalf("Failed to parse claim catalog: %v", err)
		}
	}

	// Backend client and handler
	backend := remote.New(*backendURL)
	handler := api.NewHandler(store, backend, ruleset)

	// Background refresher
	refresher := api.NewRefresher(store, backend)
	if *pollEvery <= 0 {
		refresher.Enabled = false
	} else {
		refresher.PollInterval = *pollEvery
	}
	refresher.Start()
	defer refresher.Stop()

	// Create router and server
	router := api.NewRouter(handler, refresher)
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Printf("Claim eligibility service on http://localhost:%d (backend: %s)", *port, *backendURL)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}
