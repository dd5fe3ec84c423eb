package config

import (
	"errors"
	"fmt"
	"os"
	"route-optimizer-service/internal/domain"
	"strconv"
	"strings"
	"time"
)

// Config is the process configuration, read from the environment
// (optionally populated from a .env file by the binaries).
type Config struct {
	AppEnv string
	Port   string

	DBDriver    string
	DBPath      string
	DatabaseURL string
	SeedPath    string

	ORS ORSConfig

	Route RouteConfig

	RateLimit RateLimitConfig
}

type ORSConfig struct {
	APIKey          string
	BaseURL         string
	Profile         string
	BoundaryCountry string
}

type RouteConfig struct {
	Strategy          domain.Strategy
	ClosedTour        bool
	ExactMaxLocations int
	Directions        bool
}

type RateLimitConfig struct {
	Backend  string
	MaxCalls int
	Window   time.Duration
	RedisURL string
}

// DSN returns the connection string for the configured driver.
func (c Config) DSN() string {
	if c.DBDriver == "pgx" {
		return c.DatabaseURL
	}
	return c.DBPath
}

// Get returns the environment value for key, or fallback when unset or blank.
func Get(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

// Load reads and validates the configuration. All invalid values are
// reported together.
func Load() (Config, error) {
	var errs []error

	cfg := Config{
		AppEnv:      Get("APP_ENV", "development"),
		Port:        Get("PORT", "8080"),
		DBDriver:    Get("DB_DRIVER", "sqlite"),
		DBPath:      Get("DB_PATH", "data/app.db"),
		DatabaseURL: Get("DATABASE_URL", ""),
		SeedPath:    Get("SEED_PATH", ""),
		ORS: ORSConfig{
			APIKey:          Get("ORS_API_KEY", ""),
			BaseURL:         Get("ORS_BASE_URL", "https://api.openrouteservice.org"),
			Profile:         Get("ORS_PROFILE", "driving-car"),
			BoundaryCountry: Get("ORS_BOUNDARY_COUNTRY", ""),
		},
		RateLimit: RateLimitConfig{
			Backend:  Get("RATE_LIMIT_BACKEND", "memory"),
			RedisURL: Get("REDIS_URL", "redis://localhost:6379/0"),
		},
	}

	strategy, ok := domain.ParseStrategy(Get("ROUTE_STRATEGY", "auto"))
	if !ok {
		errs = append(errs, fmt.Errorf("ROUTE_STRATEGY: unknown strategy %q", Get("ROUTE_STRATEGY", "")))
	}
	cfg.Route.Strategy = strategy

	cfg.Route.ClosedTour = parseBool("ROUTE_CLOSED_TOUR", false, &errs)
	cfg.Route.Directions = parseBool("ROUTE_DIRECTIONS", true, &errs)
	cfg.Route.ExactMaxLocations = parseInt("ROUTE_EXACT_MAX_LOCATIONS", domain.DefaultExactMaxLocations, &errs)
	cfg.RateLimit.MaxCalls = parseInt("RATE_LIMIT_MAX_CALLS", 3, &errs)
	cfg.RateLimit.Window = parseDuration("RATE_LIMIT_WINDOW", time.Minute, &errs)

	switch cfg.DBDriver {
	case "sqlite":
	case "pgx":
		if cfg.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL: required when DB_DRIVER=pgx"))
		}
	default:
		errs = append(errs, fmt.Errorf("DB_DRIVER: must be sqlite or pgx, got %q", cfg.DBDriver))
	}

	switch cfg.RateLimit.Backend {
	case "memory", "redis":
	default:
		errs = append(errs, fmt.Errorf("RATE_LIMIT_BACKEND: must be memory or redis, got %q", cfg.RateLimit.Backend))
	}

	if cfg.Route.ExactMaxLocations < 1 || cfg.Route.ExactMaxLocations > domain.MaxExactLocations {
		errs = append(errs, fmt.Errorf(
			"ROUTE_EXACT_MAX_LOCATIONS: must be between 1 and %d, got %d",
			domain.MaxExactLocations, cfg.Route.ExactMaxLocations,
		))
	}
	if cfg.RateLimit.MaxCalls < 1 {
		errs = append(errs, fmt.Errorf("RATE_LIMIT_MAX_CALLS: must be positive, got %d", cfg.RateLimit.MaxCalls))
	}
	if cfg.RateLimit.Window <= 0 {
		errs = append(errs, fmt.Errorf("RATE_LIMIT_WINDOW: must be positive, got %s", cfg.RateLimit.Window))
	}

	if err := errors.Join(errs...); err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func parseBool(key string, fallback bool, errs *[]error) bool {
	raw := Get(key, "")
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return v
}

func parseInt(key string, fallback int, errs *[]error) int {
	raw := Get(key, "")
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return v
}

func parseDuration(key string, fallback time.Duration, errs *[]error) time.Duration {
	raw := Get(key, "")
	if raw == "" {
		return fallback
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return v
}
