package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"route-optimizer-service/internal/domain"
	"route-optimizer-service/internal/platform/obs"
	"strings"
)

// SQLGeocodeCache is a SQL-backed cache mapping addresses to coordinates.
type SQLGeocodeCache struct {
	DB      *sql.DB
	Dialect Dialect
}

func NewSQLGeocodeCache(db *sql.DB, dialect Dialect) *SQLGeocodeCache {
	return &SQLGeocodeCache{DB: db, Dialect: dialect}
}

// Fetch cached coordinates for the given addresses.
func (s *SQLGeocodeCache) GetMany(
	ctx context.Context,
	addresses []string,
) (_ map[string]domain.Coordinates, err error) {
	defer obs.Time(ctx, "geocode.cache.GetMany")(&err)

	if s.DB == nil {
		return nil, errors.New("geocode cache: db is nil")
	}

	uniq := uniqueKeys(addresses)
	if len(uniq) == 0 {
		return map[string]domain.Coordinates{}, nil
	}

	in, args := s.Dialect.inClause("address", 1, uniq)
	q := fmt.Sprintf(`
	SELECT address, lon, lat
    FROM geocode_cache
    WHERE %s;
	`, in)

	rows, err := s.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("get geocode cache: query geocode_cache table: %w", err)
	}
	defer rows.Close()

	out := make(map[string]domain.Coordinates, len(uniq))
	for rows.Next() {
		var addr string
		var lon, lat float64
		if err := rows.Scan(&addr, &lon, &lat); err != nil {
			return nil, fmt.Errorf("get geocode cache: scan rows: %w", err)
		}
		out[addr] = domain.Coordinates{Lon: lon, Lat: lat}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("get geocode cache: row iteration: %w", err)
	}

	return out, nil
}

// PutMany upserts address -> coordinate mappings. Invalid entries reject
// the whole batch before anything is written.
func (s *SQLGeocodeCache) PutMany(ctx context.Context, results map[string]domain.Coordinates) (err error) {
	defer obs.Time(ctx, "geocode.cache.PutMany")(&err)

	if s.DB == nil {
		return errors.New("geocode cache: db is nil")
	}

	rows := make([][]any, 0, len(results))
	for addr, c := range results {
		if strings.TrimSpace(addr) == "" {
			return errors.New("put geocode cache: empty address key")
		}
		if !c.Valid() {
			return fmt.Errorf("put geocode cache: invalid coordinates for %q", addr)
		}
		rows = append(rows, []any{addr, c.Lon, c.Lat})
	}

	p := s.Dialect.placeholder
	q := fmt.Sprintf(`
	INSERT INTO geocode_cache (address, lon, lat)
	VALUES (%s, %s, %s)
	ON CONFLICT (address) DO UPDATE
	SET lon = excluded.lon, lat = excluded.lat;
	`, p(1), p(2), p(3))

	if err := execBatch(ctx, s.DB, q, rows); err != nil {
		return fmt.Errorf("put geocode cache: %w", err)
	}
	return nil
}
