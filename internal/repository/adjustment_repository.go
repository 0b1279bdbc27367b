package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-fees-api/internal/models"
)

const adjustmentColumns = `id, student_id, year, term, kind, amount, note, created_by, created_at`

// AdjustmentRepository persists manual ledger adjustments. Adjustments are
// append-only.
type AdjustmentRepository struct {
	db *sqlx.DB
}

// NewAdjustmentRepository constructs an AdjustmentRepository.
func NewAdjustmentRepository(db *sqlx.DB) *AdjustmentRepository {
	return &AdjustmentRepository{db: db}
}

// Create inserts a new adjustment.
func (r *AdjustmentRepository) Create(ctx context.Context, adj *models.Adjustment) error {
	if adj.ID == "" {
		adj.ID = uuid.NewString()
	}
	if adj.CreatedAt.IsZero() {
		adj.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO adjustments (id, student_id, year, term, kind, amount, note, created_by, created_at)
        VALUES (:id, :student_id, :year, :term, :kind, :amount, :note, :created_by, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, adj); err != nil {
		return fmt.Errorf("create adjustment: %w", err)
	}
	return nil
}

// List returns the adjustments of a student for one period, oldest first.
func (r *AdjustmentRepository) List(ctx context.Context, studentID string, year int, term models.Term) ([]models.Adjustment, error) {
	query := `SELECT ` + adjustmentColumns + ` FROM adjustments WHERE student_id = $1 AND year = $2 AND term = $3 ORDER BY created_at`
	var adjustments []models.Adjustment
	if err := r.db.SelectContext(ctx, &adjustments, query, studentID, year, term); err != nil {
		return nil, fmt.Errorf("list adjustments: %w", err)
	}
	return adjustments, nil
}

// ListFiltered returns adjustments matching the filter, newest first.
func (r *AdjustmentRepository) ListFiltered(ctx context.Context, filter models.AdjustmentFilter) ([]models.Adjustment, error) {
	var conditions []string
	var args []interface{}

	if filter.StudentID != "" {
		conditions = append(conditions, fmt.Sprintf("student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.Year != nil {
		conditions = append(conditions, fmt.Sprintf("year = $%d", len(args)+1))
		args = append(args, *filter.Year)
	}
	if filter.Term != nil {
		conditions = append(conditions, fmt.Sprintf("term = $%d", len(args)+1))
		args = append(args, *filter.Term)
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}
	query := `SELECT ` + adjustmentColumns + ` FROM adjustments` + clause + ` ORDER BY created_at DESC`

	var adjustments []models.Adjustment
	if err := r.db.SelectContext(ctx, &adjustments, query, args...); err != nil {
		return nil, fmt.Errorf("list adjustments: %w", err)
	}
	return adjustments, nil
}
