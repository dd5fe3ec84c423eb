package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"
	"route-optimizer-service/internal/adapters/cache"
	"route-optimizer-service/internal/config"
	"route-optimizer-service/internal/platform/db"
	"route-optimizer-service/internal/platform/logging"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// dbtool prepares the cache database: schema creation and optional
// geocode seeding from a JSON file. With -reset-budget it clears one
// caller's call budget window instead.
func main() {
	seedPath := flag.String("seed", "", "geocode seed JSON (defaults to SEED_PATH)")
	resetKey := flag.String("reset-budget", "", `call budget key to clear, e.g. "ip:192.0.2.10" or "session:abc"`)
	flag.Parse()

	envErr := godotenv.Load()

	logger, err := logging.New(config.Get("APP_ENV", "development"), "dbtool")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if envErr != nil {
		logger.Info("No .env file found (using environment variables)")
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}
	if *resetKey != "" {
		if err := resetBudget(context.Background(), logger, cfg.RateLimit, *resetKey); err != nil {
			logger.Fatal("dbtool failed", zap.Error(err))
		}
		return
	}

	if *seedPath == "" {
		*seedPath = cfg.SeedPath
	}

	conn, err := db.Open(cfg.DBDriver, cfg.DSN())
	if err != nil {
		logger.Fatal("open database", zap.Error(err))
	}
	defer conn.Close()

	if err := initAndSeed(context.Background(), logger, conn, cfg.DBDriver, *seedPath); err != nil {
		logger.Fatal("dbtool failed", zap.Error(err))
	}
}

func initAndSeed(ctx context.Context, logger *zap.Logger, conn *sql.DB, driver string, seedPath string) error {
	logger.Info("Initializing database schema...", zap.String("driver", driver))
	if err := cache.InitSchema(ctx, conn); err != nil {
		return fmt.Errorf("schema initialization failed: %w", err)
	}
	logger.Info("Schema ready.")

	if seedPath == "" {
		logger.Info("No seed file given, skipping seeding.")
		return nil
	}

	logger.Info("Seeding geocode cache...", zap.String("path", seedPath))
	geocodes := cache.NewSQLGeocodeCache(conn, cache.DialectFor(driver))
	n, err := cache.SeedFromJSON(ctx, geocodes, seedPath)
	if err != nil {
		return fmt.Errorf("seeding failed: %w", err)
	}
	logger.Info("Seeding complete.", zap.Int("addresses", n))

	return nil
}
