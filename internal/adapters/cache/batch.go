package cache

import (
	"context"
	"database/sql"
	"fmt"
)

// execBatch executes query once per argument row in a single transaction.
// Either every row is written or none is.
func execBatch(ctx context.Context, db *sql.DB, query string, rows [][]any) error {
	if len(rows) == 0 {
		return nil
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("db begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("db prepare: %w", err)
	}
	defer stmt.Close()

	for i, args := range rows {
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("row %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
