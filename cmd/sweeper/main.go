// Command sweeper runs one expiration sweep and exits. Intended for external
// schedulers (cron, systemd timers) in deployments that keep the HTTP server
// free of background work.
package main

import (
	"context"
	"flag"
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/aidlink/inventory-engine/engine"
	"github.com/aidlink/inventory-engine/store/postgres"
	"github.com/aidlink/inventory-engine/store/sqlite"
)

func main() {
	dbPath := flag.String("db", "inventory.db", "SQLite database path (ignored when DATABASE_URL is set)")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found (using environment variables)")
	}

	var (
		store interface {
			engine.TxStore
			Close() error
		}
		err error
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

	sweeper := engine.NewSweeper(store, engine.LogNotifier{}, engine.DefaultCatalog())
	report, err := sweeper.Run(context.Background(), engine.SystemClock{}.Now())
	if err != nil {
		log.Fatalf("Sweep failed: %v", err)
	}

	log.Printf("Sweep completed: %d branches, %d lots warned, %d lots retired, %d branches failed",
		report.Branches, report.Warned, report.Retired, len(report.FailedBranches))
	if len(report.FailedBranches) > 0 {
		os.Exit(1)
	}
}
