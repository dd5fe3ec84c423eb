package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"route-optimizer-service/internal/domain"
	"route-optimizer-service/internal/ports"
	"strings"
)

// Initialize the cache schema. The DDL is valid for both SQLite and Postgres.
func InitSchema(ctx context.Context, db *sql.DB) error {
	if db == nil {
		return errors.New("init schema: DB is nil")
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("init schema: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	createDistanceCacheQuery := `
	CREATE TABLE IF NOT EXISTS distance_cache (
        profile TEXT NOT NULL,
        origin TEXT NOT NULL,
        destination TEXT NOT NULL,
        distance_meters INTEGER NOT NULL,
        duration_seconds INTEGER NOT NULL,
        PRIMARY KEY (profile, origin, destination)
    );
	`

	createGeocodeCacheQuery := `
	CREATE TABLE IF NOT EXISTS geocode_cache (
        address TEXT PRIMARY KEY,
        lon DOUBLE PRECISION NOT NULL,
        lat DOUBLE PRECISION NOT NULL
    );
	`

	createIndexQuery := `
	CREATE INDEX IF NOT EXISTS idx_distance_cache_destination_origin
    ON distance_cache(profile, destination, origin);
	`

	statements := []string{
		createDistanceCacheQuery,
		createGeocodeCacheQuery,
		createIndexQuery,
	}

	for i, stmt := range statements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: exec statement #%d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("init schema: commit tx: %w", err)
	}

	return nil
}

// A known address with its coordinates, used to pre-warm the geocode cache.
type GeocodeSeed struct {
	Address string  `json:"address"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
}

// Populate the geocode cache from a JSON array of GeocodeSeed.
// Addresses are normalized the same way the distance provider normalizes them.
func SeedFromJSON(ctx context.Context, geocodes ports.GeocodeCache, jsonPath string) (int, error) {
	bytes, err := os.ReadFile(jsonPath)
	if err != nil {
		return 0, fmt.Errorf("seed geocodes: read %q: %w", jsonPath, err)
	}

	var data []GeocodeSeed
	if err := json.Unmarshal(bytes, &data); err != nil {
		return 0, fmt.Errorf("seed geocodes: parse json: %w", err)
	}

	rows := make(map[string]domain.Coordinates, len(data))
	for i, item := range data {
		addr := strings.Join(strings.Fields(item.Address), " ")
		if addr == "" {
			return 0, fmt.Errorf("seed geocodes: item at index %d: address cannot be empty", i+1)
		}

		c := domain.Coordinates{Lon: item.Lon, Lat: item.Lat}
		if !c.Valid() {
			return 0, fmt.Errorf("seed geocodes: item at index %d: invalid coordinates for %q", i+1, addr)
		}
		rows[addr] = c
	}

	if err := geocodes.PutMany(ctx, rows); err != nil {
		return 0, fmt.Errorf("seed geocodes: %w", err)
	}

	return len(rows), nil
}
