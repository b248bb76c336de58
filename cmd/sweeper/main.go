package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/fixlinkhq/fixlink/internal/config"
	"github.com/fixlinkhq/fixlink/internal/db"
	"github.com/fixlinkhq/fixlink/internal/sweeper"
)

// The sweeper drives every wall-clock transition: expired soft locks,
// lapsed payment windows, elapsed warranty holds. It is safe to run
// alongside the API's /internal/sweep endpoint and alongside other sweeper
// replicas; every transition is CAS-guarded.
func main() {
	_ = godotenv.Load()

	db.Init()

	interval := config.SweepInterval()
	log.Printf("[sweep] running every %s", interval)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	runOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			log.Println("[sweep] shutting down")
			return
		case <-ticker.C:
			runOnce(ctx)
		}
	}
}

func runOnce(ctx context.Context) {
	res, err := sweeper.RunBackgroundSweep(ctx)
	if err != nil {
		log.Printf("[sweep] pass finished with errors: %v", err)
	}
	if res.SoftLocksExpired+res.PaymentsExpired+res.HoldsReleased > 0 {
		log.Printf("[sweep] soft_locks=%d payments=%d holds=%d",
			res.SoftLocksExpired, res.PaymentsExpired, res.HoldsReleased)
	}
}
