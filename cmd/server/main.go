/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the inventory reservation engine server: store,
  handler wiring, sweep scheduler, HTTP server with graceful shutdown.

CONFIGURATION:
  Command-line flags, with a .env file (godotenv) able to supply
  DATABASE_URL for the Postgres store. No DATABASE_URL means SQLite.

COMMAND-LINE FLAGS:
  -port     HTTP server port (default: 8080)
  -db       SQLite database path (default: inventory.db, ":memory:" works)
  -seed     Load the demo scenario on startup
  -sweep    Interval between expiration sweeps (default: 24h)

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM: stop the sweep scheduler, drain active requests
  (30s timeout), close the store.

EXAMPLES:
  ./server -db=./data/inventory.db -seed
  DATABASE_URL=postgres://... ./server -port=3000
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

	"github.com/joho/godotenv"

	"github.com/aidlink/inventory-engine/api"
	"github.com/aidlink/inventory-engine/engine"
	"github.com/aidlink/inventory-engine/store/postgres"
	"github.com/aidlink/inventory-engine/store/sqlite"
)

// fullStore is everything the API layer needs from a backing store.
type fullStore interface {
	engine.TxStore
	api.CandidateSource
	api.Seeder
	Close() error
}

func main() {
	port := flag.Int("port", 8080, "HTTP server port")
	dbPath := flag.String("db", "inventory.db", "SQLite database path (ignored when DATABASE_URL is set)")
	seed := flag.Bool("seed", false, "load the demo scenario on startup")
	sweepInterval := flag.Duration("sweep", 24*time.Hour, "interval between expiration sweeps")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found (using environment variables)")
	}

	var (
		store fullStore
		err   error
	)
	if url := os.Getenv("DATABASE_URL"); url != "" {
		store, err = postgres.Open(url)
	} else {
		store, err = sqlite.New(*dbPath)
	}
	if err != nil {
		log.Fatalf("Failed to initialize store: %v", err)
	}
	defer store.Close()

	clock := engine.SystemClock{}
	handler := api.NewHandler(store, store, engine.LogNotifier{}, clock)

	if *seed {
		if err := api.SeedDemo(context.Background(), store, clock.Now()); err != nil {
			log.Printf("Warning: failed to seed demo data: %v", err)
		} else {
			log.Println("Demo scenario loaded")
		}
	}

	scheduler := api.NewSweepScheduler(handler.Sweeper, clock)
	scheduler.CheckInterval = *sweepInterval
	scheduler.Start()
	defer scheduler.Stop()

	router := api.NewRouter(handler)
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Server starting on http://localhost:%d", *port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

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
