package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// WipeTarget names a ledger table that may be cleared by an administrator.
type WipeTarget string

// Wipe targets in dependency order: children before parents. Receipt counters
// are deliberately absent so receipt numbers are never handed out twice.
const (
	WipePaymentEdits WipeTarget = "payment_edits"
	WipeChargeEvents WipeTarget = "charge_events"
	WipePayments     WipeTarget = "payments"
	WipeAdjustments  WipeTarget = "adjustments"
)

var wipeOrder = []WipeTarget{WipePaymentEdits, WipeChargeEvents, WipePayments, WipeAdjustments}

// MaintenanceRepository performs administrative bulk operations on the ledger.
type MaintenanceRepository struct {
	db *sqlx.DB
}

// NewMaintenanceRepository constructs a MaintenanceRepository.
func NewMaintenanceRepository(db *sqlx.DB) *MaintenanceRepository {
	return &MaintenanceRepository{db: db}
}

// Count returns the row count of each target.
func (r *MaintenanceRepository) Count(ctx context.Context, targets []WipeTarget) (map[WipeTarget]int64, error) {
	counts := make(map[WipeTarget]int64, len(targets))
	for _, target := range ordered(targets) {
		var n int64
		if err := r.db.GetContext(ctx, &n, fmt.Sprintf("SELECT COUNT(*) FROM %s", target)); err != nil {
			return nil, fmt.Errorf("count %s: %w", target, err)
		}
		counts[target] = n
	}
	return counts, nil
}

// Wipe deletes every row of the targets in one transaction, so either all of
// them are cleared or none is. It returns the number of rows removed per target.
func (r *MaintenanceRepository) Wipe(ctx context.Context, targets []WipeTarget) (deleted map[WipeTarget]int64, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin wipe: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	deleted = make(map[WipeTarget]int64, len(targets))
	for _, target := range ordered(targets) {
		res, execErr := tx.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s", target))
		if execErr != nil {
			return nil, fmt.Errorf("wipe %s: %w", target, execErr)
		}
		n, rowsErr := res.RowsAffected()
		if rowsErr != nil {
			return nil, fmt.Errorf("wipe %s rows: %w", target, rowsErr)
		}
		deleted[target] = n
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit wipe: %w", err)
	}
	return deleted, nil
}

// ordered keeps only known targets, in foreign key safe order.
func ordered(targets []WipeTarget) []WipeTarget {
	want := make(map[WipeTarget]bool, len(targets))
	for _, t := range targets {
		want[t] = true
	}
	out := make([]WipeTarget, 0, len(targets))
	for _, t := range wipeOrder {
		if want[t] {
			out = append(out, t)
		}
	}
	return out
}
