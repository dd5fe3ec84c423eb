package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"route-optimizer-service/internal/platform/obs"
	"route-optimizer-service/internal/ports"
	"strings"
)

// SQLDistanceCache is a SQL-backed cache for origin->destination distance
// results. Rows are partitioned by travel profile since a walking and a
// driving matrix over the same addresses differ.
type SQLDistanceCache struct {
	DB      *sql.DB
	Dialect Dialect
	Profile string
}

func NewSQLDistanceCache(db *sql.DB, dialect Dialect, profile string) *SQLDistanceCache {
	return &SQLDistanceCache{DB: db, Dialect: dialect, Profile: profile}
}

// Fetch cached distances for one origin and multiple destinations.
func (s *SQLDistanceCache) GetMany(
	ctx context.Context,
	origin string,
	destinations []string,
) (_ map[string]ports.DistanceResult, err error) {
	defer obs.Time(ctx, "distance.cache.GetMany")(&err)

	if s.DB == nil {
		return nil, errors.New("distance cache: db is nil")
	}

	if origin == "" {
		return nil, errors.New("get distance cache: origin must not be empty")
	}

	uniq := uniqueKeys(destinations)
	if len(uniq) == 0 {
		return map[string]ports.DistanceResult{}, nil
	}

	in, inArgs := s.Dialect.inClause("destination", 3, uniq)
	q := fmt.Sprintf(`
	SELECT destination, distance_meters, duration_seconds
    FROM distance_cache
    WHERE profile = %s
        AND origin = %s
        AND %s;
	`, s.Dialect.placeholder(1), s.Dialect.placeholder(2), in)

	args := append([]any{s.Profile, origin}, inArgs...)
	rows, err := s.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("get distance cache: query distance_cache table: %w", err)
	}
	defer rows.Close()

	out := make(map[string]ports.DistanceResult, len(uniq))
	for rows.Next() {
		var dest string
		var meters, seconds int
		if err := rows.Scan(&dest, &meters, &seconds); err != nil {
			return nil, fmt.Errorf("get distance cache: scan rows: %w", err)
		}
		out[dest] = ports.DistanceResult{
			DistanceMeters:  meters,
			DurationSeconds: seconds,
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("get distance cache: row iteration: %w", err)
	}

	return out, nil
}

// PutMany upserts the distances from one origin under the cache's profile.
func (s *SQLDistanceCache) PutMany(
	ctx context.Context,
	origin string,
	results map[string]ports.DistanceResult,
) (err error) {
	defer obs.Time(ctx, "distance.cache.PutMany")(&err)

	if s.DB == nil {
		return errors.New("distance cache: db is nil")
	}
	if origin == "" {
		return errors.New("put distance cache: origin must not be empty")
	}

	rows := make([][]any, 0, len(results))
	for dest, r := range results {
		if strings.TrimSpace(dest) == "" {
			return errors.New("put distance cache: empty destination key")
		}
		if r.DistanceMeters < 0 || r.DurationSeconds < 0 {
			return fmt.Errorf("put distance cache: negative metrics for %q -> %q", origin, dest)
		}
		rows = append(rows, []any{s.Profile, origin, dest, r.DistanceMeters, r.DurationSeconds})
	}

	p := s.Dialect.placeholder
	q := fmt.Sprintf(`
	INSERT INTO distance_cache (profile, origin, destination, distance_meters, duration_seconds)
	VALUES (%s, %s, %s, %s, %s)
	ON CONFLICT (profile, origin, destination) DO UPDATE
	SET distance_meters = excluded.distance_meters,
		duration_seconds = excluded.duration_seconds;
	`, p(1), p(2), p(3), p(4), p(5))

	if err := execBatch(ctx, s.DB, q, rows); err != nil {
		return fmt.Errorf("put distance cache from %q: %w", origin, err)
	}
	return nil
}
