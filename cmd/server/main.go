package main

import (
	"flag"

	"github.com/joho/godotenv"

	"github.com/diewo77/voyage-billing/internal/config"
	"github.com/diewo77/voyage-billing/internal/db"
	"github.com/diewo77/voyage-billing/internal/logging"
)

var (
	migrateOnlyFlag = flag.Bool("migrate-only", false, "Run DB migrations and exit")
	seedOnlyFlag    = flag.Bool("seed-only", false, "Run DB seed and exit")
	sweepOnceFlag   = flag.Bool("sweep-once", false, "Run the overdue and expiry sweeps once and exit")
)

func main() {
	flag.Parse()

	// Load environment variables from .env file
	_ = godotenv.Load()

	cfg := config.Load()
	log := logging.New(cfg.Log)

	// Connect applies the schema before returning
	conn, err := db.Connect(cfg.Database, cfg.App, log)
	if err != nil {
		log.WithError(err).Fatal("failed to connect to database")
	}

	if *migrateOnlyFlag {
		log.Info("migrations completed successfully")
		return
	}

	if *seedOnlyFlag {
		if err := db.Seed(conn); err != nil {
			log.WithError(err).Fatal("seeding failed")
		}
		log.Info("seeding completed successfully")
		return
	}

	if err := run(cfg, conn, log, *sweepOnceFlag); err != nil {
		log.WithError(err).Fatal("server error")
	}
}
