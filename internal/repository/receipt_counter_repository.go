package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// ReceiptCounterRepository hands out per-day receipt sequence numbers.
type ReceiptCounterRepository struct {
	db *sqlx.DB
}

// NewReceiptCounterRepository constructs a ReceiptCounterRepository.
func NewReceiptCounterRepository(db *sqlx.DB) *ReceiptCounterRepository {
	return &ReceiptCounterRepository{db: db}
}

// Next increments the counter for dayKey, creating it at 1, and returns the new
// value. The upsert is a single statement so concurrent callers never observe
// the same value.
func (r *ReceiptCounterRepository) Next(ctx context.Context, dayKey string) (int64, error) {
	const query = `INSERT INTO receipt_counters (day_key, seq) VALUES ($1, 1)
        ON CONFLICT (day_key) DO UPDATE SET seq = receipt_counters.seq + 1
        RETURNING seq`
	var seq int64
	if err := r.db.GetContext(ctx, &seq, query, dayKey); err != nil {
		return 0, fmt.Errorf("next receipt sequence for %s: %w", dayKey, err)
	}
	return seq, nil
}
