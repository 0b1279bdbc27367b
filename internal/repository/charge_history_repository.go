package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-fees-api/internal/models"
)

// ChargeHistoryRepository answers which extra charges a student was already
// billed, from the charge_events ledger.
type ChargeHistoryRepository struct {
	db *sqlx.DB
}

// NewChargeHistoryRepository constructs a ChargeHistoryRepository.
func NewChargeHistoryRepository(db *sqlx.DB) *ChargeHistoryRepository {
	return &ChargeHistoryRepository{db: db}
}

// ChargedOnceKeys returns keys billed to the student in any period other than
// (year, term). Charges of the queried period are excluded so that statements
// for that period keep showing them.
func (r *ChargeHistoryRepository) ChargedOnceKeys(ctx context.Context, studentID string, year int, term models.Term) ([]string, error) {
	const query = `SELECT DISTINCT charge_key FROM charge_events
        WHERE student_id = $1 AND NOT (year = $2 AND term = $3) ORDER BY charge_key`
	var keys []string
	if err := r.db.SelectContext(ctx, &keys, query, studentID, year, term); err != nil {
		return nil, fmt.Errorf("list charged keys: %w", err)
	}
	return keys, nil
}

// ChargedInYearKeys returns keys billed to the student in year during a term
// other than term.
func (r *ChargeHistoryRepository) ChargedInYearKeys(ctx context.Context, studentID string, year int, term models.Term) ([]string, error) {
	const query = `SELECT DISTINCT charge_key FROM charge_events
        WHERE student_id = $1 AND year = $2 AND term <> $3 ORDER BY charge_key`
	var keys []string
	if err := r.db.SelectContext(ctx, &keys, query, studentID, year, term); err != nil {
		return nil, fmt.Errorf("list charged keys for year: %w", err)
	}
	return keys, nil
}

// ChargedInPeriodKeys returns keys already billed to the student for (year, term).
func (r *ChargeHistoryRepository) ChargedInPeriodKeys(ctx context.Context, studentID string, year int, term models.Term) ([]string, error) {
	const query = `SELECT DISTINCT charge_key FROM charge_events
        WHERE student_id = $1 AND year = $2 AND term = $3 ORDER BY charge_key`
	var keys []string
	if err := r.db.SelectContext(ctx, &keys, query, studentID, year, term); err != nil {
		return nil, fmt.Errorf("list charged keys for period: %w", err)
	}
	return keys, nil
}
