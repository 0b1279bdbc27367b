package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-fees-api/internal/models"
)

// FeeScheduleRepository reads tuition rows.
type FeeScheduleRepository struct {
	db *sqlx.DB
}

// NewFeeScheduleRepository constructs a FeeScheduleRepository.
func NewFeeScheduleRepository(db *sqlx.DB) *FeeScheduleRepository {
	return &FeeScheduleRepository{db: db}
}

// FindByClass returns the tuition row for the class and period, matching the
// label case-insensitively. It returns nil without error when none exists.
func (r *FeeScheduleRepository) FindByClass(ctx context.Context, classLabel string, year int, term models.Term) (*models.FeeSchedule, error) {
	const query = `SELECT id, class_label, year, term, amount, created_at, updated_at
        FROM fee_schedules WHERE LOWER(class_label) = LOWER($1) AND year = $2 AND term = $3 LIMIT 1`
	var row models.FeeSchedule
	if err := r.db.GetContext(ctx, &row, query, classLabel, year, term); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find fee schedule: %w", err)
	}
	return &row, nil
}

// ListClassLabels returns the class labels that have a tuition row for the period.
func (r *FeeScheduleRepository) ListClassLabels(ctx context.Context, year int, term models.Term) ([]string, error) {
	const query = `SELECT DISTINCT class_label FROM fee_schedules WHERE year = $1 AND term = $2 ORDER BY class_label`
	var labels []string
	if err := r.db.SelectContext(ctx, &labels, query, year, term); err != nil {
		return nil, fmt.Errorf("list fee schedule classes: %w", err)
	}
	return labels, nil
}
