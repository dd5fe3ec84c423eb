package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"route-optimizer-service/internal/adapters/cache"
	"route-optimizer-service/internal/adapters/distance"
	"route-optimizer-service/internal/adapters/ratelimit"
	"route-optimizer-service/internal/api"
	"route-optimizer-service/internal/config"
	"route-optimizer-service/internal/platform/db"
	"route-optimizer-service/internal/platform/logging"
	"route-optimizer-service/internal/services"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// main is the application composition root.
// It wires concrete adapters (SQL caches, ORS, call budget) behind ports and starts the HTTP server.
func main() {
	envErr := godotenv.Load()

	logger, err := logging.New(config.Get("APP_ENV", "development"), "server")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()
	zap.ReplaceGlobals(logger)

	if envErr != nil {
		logger.Info("No .env file found (using environment variables)")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func run(ctx context.Context, logger *zap.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if strings.TrimSpace(cfg.ORS.APIKey) == "" {
		return errors.New("ORS_API_KEY is required")
	}

	conn, err := db.Open(cfg.DBDriver, cfg.DSN())
	if err != nil {
		return err
	}
	defer conn.Close()

	if err := cache.InitSchema(ctx, conn); err != nil {
		return err
	}

	// ORS lookups go through persistent caches to avoid repeated geocode/matrix calls.
	dialect := cache.DialectFor(cfg.DBDriver)
	geocodes := cache.NewSQLGeocodeCache(conn, dialect)
	distances := cache.NewSQLDistanceCache(conn, dialect, cfg.ORS.Profile)

	if cfg.SeedPath != "" {
		n, err := cache.SeedFromJSON(ctx, geocodes, cfg.SeedPath)
		if err != nil {
			return err
		}
		logger.Info("geocode cache seeded", zap.Int("addresses", n), zap.String("path", cfg.SeedPath))
	}

	ors, err := distance.NewORSClient(cfg.ORS.APIKey, distance.ORSOptions{
		BaseURL:         cfg.ORS.BaseURL,
		Profile:         cfg.ORS.Profile,
		BoundaryCountry: cfg.ORS.BoundaryCountry,
		DistanceCache:   distances,
		GeocodeCache:    geocodes,
	})
	if err != nil {
		return err
	}

	budget, closeBudget, err := ratelimit.Open(ctx, ratelimit.Options{
		Backend:  cfg.RateLimit.Backend,
		RedisURL: cfg.RateLimit.RedisURL,
		MaxCalls: cfg.RateLimit.MaxCalls,
		Window:   cfg.RateLimit.Window,
	})
	if err != nil {
		return err
	}
	defer closeBudget()

	deps := services.RoutePlannerDeps{
		Matrices: ors,
		Orderer:  ors,
		Budget:   budget,
	}
	if cfg.Route.Directions {
		deps.Directions = ors
	}

	opts := services.OptimizerOptions{
		Strategy:          cfg.Route.Strategy,
		ClosedTour:        cfg.Route.ClosedTour,
		ExactMaxLocations: cfg.Route.ExactMaxLocations,
	}
	planner, err := services.NewRoutePlanner(deps, opts)
	if err != nil {
		return err
	}

	router := api.NewRouter(api.RouterDeps{
		Planner:    planner,
		Geolocator: ors,
		Optimizer:  opts,
		Logger:     logger,
	})

	// Timeouts are tuned for cold-cache route planning (external API latency).
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Server listening",
			zap.String("addr", srv.Addr),
			zap.String("db_driver", cfg.DBDriver),
			zap.String("strategy", string(opts.Strategy)),
			zap.String("rate_limit_backend", cfg.RateLimit.Backend),
		)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
