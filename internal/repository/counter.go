package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

const (
	CounterUserID  = "userId"
	CounterStoreID = "storeId"
)

// nextSequence atomically increments the named counter and returns the new
// value. The counter row stays locked until tx ends.
func nextSequence(ctx context.Context, tx pgx.Tx, name string) (int64, error) {
	const query = `
		INSERT INTO counters (name, seq) VALUES ($1, 1)
		ON CONFLICT (name) DO UPDATE SET seq = counters.seq + 1
		RETURNING seq
	`
	var seq int64
	if err := tx.QueryRow(ctx, query, name).Scan(&seq); err != nil {
		return 0, fmt.Errorf("next %s: %w", name, err)
	}
	return seq, nil
}
