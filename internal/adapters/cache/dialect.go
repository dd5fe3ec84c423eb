package cache

import (
	"fmt"
	"strings"
)

// Dialect selects placeholder syntax for the two supported SQL backends.
type Dialect int

const (
	SQLite Dialect = iota
	Postgres
)

// DialectFor maps a database/sql driver name onto a Dialect.
func DialectFor(driver string) Dialect {
	if driver == "pgx" || driver == "postgres" {
		return Postgres
	}
	return SQLite
}

func (d Dialect) placeholder(n int) string {
	if d == Postgres {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

// inClause renders a membership test for values, with placeholders starting
// at position start.
//
// Postgres binds the slice as one text[] parameter. SQLite does not support
// binding slices, so only the placeholder structure is interpolated and all
// values remain parameterized.
func (d Dialect) inClause(column string, start int, values []string) (string, []any) {
	if d == Postgres {
		return fmt.Sprintf("%s = ANY($%d::text[])", column, start), []any{values}
	}

	ph := make([]string, len(values))
	args := make([]any, len(values))
	for i, v := range values {
		ph[i] = "?"
		args[i] = v
	}
	return fmt.Sprintf("%s IN (%s)", column, strings.Join(ph, ",")), args
}

// uniqueKeys trims keys and drops blanks and duplicates, preserving order.
func uniqueKeys(keys []string) []string {
	seen := make(map[string]struct{}, len(keys))
	uniq := make([]string, 0, len(keys))
	for _, k := range keys {
		k = strings.TrimSpace(k)
		if k == "" {
			continue
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		uniq = append(uniq, k)
	}
	return uniq
}
