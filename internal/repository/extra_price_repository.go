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

const extraPriceColumns = `id, charge_key, class_label, year, term, amount, is_active, created_at, updated_at`

// ExtraPriceRepository manages the extra charge price table.
type ExtraPriceRepository struct {
	db *sqlx.DB
}

// NewExtraPriceRepository constructs an ExtraPriceRepository.
func NewExtraPriceRepository(db *sqlx.DB) *ExtraPriceRepository {
	return &ExtraPriceRepository{db: db}
}

// ListActiveByKey returns all active rows for a charge key, whatever their scope.
func (r *ExtraPriceRepository) ListActiveByKey(ctx context.Context, key string) ([]models.ExtraPrice, error) {
	query := `SELECT ` + extraPriceColumns + ` FROM extra_prices WHERE charge_key = $1 AND is_active = TRUE ORDER BY id`
	var rows []models.ExtraPrice
	if err := r.db.SelectContext(ctx, &rows, query, strings.ToUpper(key)); err != nil {
		return nil, fmt.Errorf("list extra prices for %s: %w", key, err)
	}
	return rows, nil
}

// List returns price rows matching the filter.
func (r *ExtraPriceRepository) List(ctx context.Context, filter models.ExtraPriceFilter) ([]models.ExtraPrice, error) {
	var conditions []string
	var args []interface{}

	if filter.Key != "" {
		conditions = append(conditions, fmt.Sprintf("charge_key = $%d", len(args)+1))
		args = append(args, strings.ToUpper(filter.Key))
	}
	if filter.ClassLabel != "" {
		conditions = append(conditions, fmt.Sprintf("class_label = $%d", len(args)+1))
		args = append(args, filter.ClassLabel)
	}
	if filter.Year != nil {
		conditions = append(conditions, fmt.Sprintf("year = $%d", len(args)+1))
		args = append(args, *filter.Year)
	}
	if filter.Term != nil {
		conditions = append(conditions, fmt.Sprintf("term = $%d", len(args)+1))
		args = append(args, *filter.Term)
	}
	if filter.IsActive != nil {
		conditions = append(conditions, fmt.Sprintf("is_active = $%d", len(args)+1))
		args = append(args, *filter.IsActive)
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}
	query := `SELECT ` + extraPriceColumns + ` FROM extra_prices` + clause + ` ORDER BY charge_key, class_label, year NULLS FIRST, term NULLS FIRST`

	var rows []models.ExtraPrice
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list extra prices: %w", err)
	}
	return rows, nil
}

// Upsert inserts a price row or replaces the amount and active flag of the row
// with the same key and scope.
func (r *ExtraPriceRepository) Upsert(ctx context.Context, price *models.ExtraPrice) error {
	if price.ID == "" {
		price.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if price.CreatedAt.IsZero() {
		price.CreatedAt = now
	}
	price.UpdatedAt = now

	const query = `INSERT INTO extra_prices (id, charge_key, class_label, year, term, amount, is_active, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
        ON CONFLICT (charge_key, class_label, COALESCE(year, 0), COALESCE(term, ''))
        DO UPDATE SET amount = EXCLUDED.amount, is_active = EXCLUDED.is_active, updated_at = EXCLUDED.updated_at
        RETURNING id, created_at`
	row := r.db.QueryRowxContext(ctx, query,
		price.ID, price.Key, price.ClassLabel, price.Year, price.Term,
		price.Amount, price.IsActive, price.CreatedAt, price.UpdatedAt)
	if err := row.Scan(&price.ID, &price.CreatedAt); err != nil {
		return fmt.Errorf("upsert extra price: %w", err)
	}
	return nil
}
