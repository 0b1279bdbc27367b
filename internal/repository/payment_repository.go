package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/sma-fees-api/internal/models"
)

const paymentColumns = `p.id, p.student_id, p.receipt_no, p.amount_paid, p.payment_method, p.date_paid, p.year, p.term,
        p.category, p.recorded_by, p.is_voided, p.void_reason, p.voided_by, p.voided_at, p.created_at, p.updated_at`

// uniqueViolation is the PostgreSQL SQLSTATE for unique constraint failures.
const uniqueViolation = "23505"

var (
	// ErrDuplicateReceipt means the receipt number already exists on file.
	ErrDuplicateReceipt = errors.New("duplicate receipt number")
	// ErrPaymentVoided means the payment was already voided.
	ErrPaymentVoided = errors.New("payment already voided")
)

// PaymentRepository persists payments, their edit trail and the charge events
// billed alongside them.
type PaymentRepository struct {
	db *sqlx.DB
}

// NewPaymentRepository constructs a PaymentRepository.
func NewPaymentRepository(db *sqlx.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

// CreateWithCharges inserts the payment and records the given charge events in
// one transaction. Events already recorded for the same period are left as is.
func (r *PaymentRepository) CreateWithCharges(ctx context.Context, payment *models.Payment, charges []models.ChargeEvent) (err error) {
	if payment.ID == "" {
		payment.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if payment.CreatedAt.IsZero() {
		payment.CreatedAt = now
	}
	payment.UpdatedAt = now

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create payment: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const insertPayment = `INSERT INTO payments (id, student_id, receipt_no, amount_paid, payment_method, date_paid, year, term, category, recorded_by, is_voided, created_at, updated_at)
        VALUES (:id, :student_id, :receipt_no, :amount_paid, :payment_method, :date_paid, :year, :term, :category, :recorded_by, :is_voided, :created_at, :updated_at)`
	if _, err = tx.NamedExecContext(ctx, insertPayment, payment); err != nil {
		if isUniqueViolation(err, "receipt_no") {
			return fmt.Errorf("create payment %s: %w", payment.ReceiptNo, ErrDuplicateReceipt)
		}
		return fmt.Errorf("create payment: %w", err)
	}

	const insertCharge = `INSERT INTO charge_events (id, student_id, charge_key, year, term, amount, payment_id, created_at)
        VALUES (:id, :student_id, :charge_key, :year, :term, :amount, :payment_id, :created_at)
        ON CONFLICT (student_id, charge_key, year, term) DO NOTHING`
	for i := range charges {
		ev := charges[i]
		if ev.ID == "" {
			ev.ID = uuid.NewString()
		}
		if ev.CreatedAt.IsZero() {
			ev.CreatedAt = now
		}
		ev.PaymentID = &payment.ID
		if _, err = tx.NamedExecContext(ctx, insertCharge, &ev); err != nil {
			return fmt.Errorf("record charge %s: %w", ev.Key, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit create payment: %w", err)
	}
	return nil
}

// SumNonVoided totals non-voided payments of a student for a period. When upTo
// is set only payments dated on or before it count.
func (r *PaymentRepository) SumNonVoided(ctx context.Context, studentID string, year int, term models.Term, upTo *time.Time) (decimal.Decimal, error) {
	query := `SELECT COALESCE(SUM(amount_paid), 0) FROM payments WHERE student_id = $1 AND year = $2 AND term = $3 AND is_voided = FALSE`
	args := []interface{}{studentID, year, term}
	if upTo != nil {
		query += " AND date_paid <= $4"
		args = append(args, *upTo)
	}
	var total decimal.Decimal
	if err := r.db.GetContext(ctx, &total, query, args...); err != nil {
		return decimal.Zero, fmt.Errorf("sum payments: %w", err)
	}
	return total, nil
}

// ListByStudent returns a student's payments, newest first, optionally narrowed
// to a year and term.
func (r *PaymentRepository) ListByStudent(ctx context.Context, studentID string, year *int, term *models.Term) ([]models.Payment, error) {
	conditions := []string{"p.student_id = $1"}
	args := []interface{}{studentID}
	if year != nil {
		conditions = append(conditions, fmt.Sprintf("p.year = $%d", len(args)+1))
		args = append(args, *year)
	}
	if term != nil {
		conditions = append(conditions, fmt.Sprintf("p.term = $%d", len(args)+1))
		args = append(args, *term)
	}
	query := `SELECT ` + paymentColumns + ` FROM payments p WHERE ` + strings.Join(conditions, " AND ") + ` ORDER BY p.date_paid DESC, p.created_at DESC`

	var payments []models.Payment
	if err := r.db.SelectContext(ctx, &payments, query, args...); err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	return payments, nil
}

// FindByID fetches a payment. A missing row is reported as sql.ErrNoRows.
func (r *PaymentRepository) FindByID(ctx context.Context, id string) (*models.Payment, error) {
	return r.findOne(ctx, "p.id = $1", id)
}

// FindByReceipt fetches a payment by receipt number.
func (r *PaymentRepository) FindByReceipt(ctx context.Context, receiptNo string) (*models.Payment, error) {
	return r.findOne(ctx, "p.receipt_no = $1", receiptNo)
}

func (r *PaymentRepository) findOne(ctx context.Context, cond string, arg interface{}) (*models.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments p WHERE ` + cond
	var payment models.Payment
	if err := r.db.GetContext(ctx, &payment, query, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find payment: %w", err)
	}
	return &payment, nil
}

// ListEdits returns a payment's edit trail, oldest first.
func (r *PaymentRepository) ListEdits(ctx context.Context, paymentID string) ([]models.PaymentEdit, error) {
	const query = `SELECT id, payment_id, edited_by, reason, changes, edited_at FROM payment_edits WHERE payment_id = $1 ORDER BY edited_at`
	var edits []models.PaymentEdit
	if err := r.db.SelectContext(ctx, &edits, query, paymentID); err != nil {
		return nil, fmt.Errorf("list payment edits: %w", err)
	}
	return edits, nil
}

// Void marks a payment voided. Voiding twice yields ErrPaymentVoided and a
// missing payment yields sql.ErrNoRows.
func (r *PaymentRepository) Void(ctx context.Context, id, reason, by string, at time.Time) error {
	const query = `UPDATE payments SET is_voided = TRUE, void_reason = $2, voided_by = $3, voided_at = $4, updated_at = $4
        WHERE id = $1 AND is_voided = FALSE`
	res, err := r.db.ExecContext(ctx, query, id, reason, by, at)
	if err != nil {
		return fmt.Errorf("void payment: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("void payment rows: %w", err)
	}
	if affected > 0 {
		return nil
	}

	var voided bool
	if err := r.db.GetContext(ctx, &voided, `SELECT is_voided FROM payments WHERE id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return err
		}
		return fmt.Errorf("check voided payment: %w", err)
	}
	return ErrPaymentVoided
}

// Update saves edited payment fields and appends the edit snapshot atomically.
func (r *PaymentRepository) Update(ctx context.Context, payment *models.Payment, edit *models.PaymentEdit) (err error) {
	payment.UpdatedAt = time.Now().UTC()
	if edit.ID == "" {
		edit.ID = uuid.NewString()
	}
	if edit.EditedAt.IsZero() {
		edit.EditedAt = payment.UpdatedAt
	}
	edit.PaymentID = payment.ID

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin update payment: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const updatePayment = `UPDATE payments SET amount_paid = :amount_paid, payment_method = :payment_method, date_paid = :date_paid,
        category = :category, updated_at = :updated_at WHERE id = :id AND is_voided = FALSE`
	res, err := tx.NamedExecContext(ctx, updatePayment, payment)
	if err != nil {
		return fmt.Errorf("update payment: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update payment rows: %w", err)
	}
	if affected == 0 {
		return ErrPaymentVoided
	}

	const insertEdit = `INSERT INTO payment_edits (id, payment_id, edited_by, reason, changes, edited_at)
        VALUES ($1, $2, $3, $4, $5, $6)`
	if _, err = tx.ExecContext(ctx, insertEdit, edit.ID, edit.PaymentID, edit.EditedBy, edit.Reason, string(edit.Changes), edit.EditedAt); err != nil {
		return fmt.Errorf("record payment edit: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit update payment: %w", err)
	}
	return nil
}

// DailyTotals aggregates non-voided payments per method in [from, to).
func (r *PaymentRepository) DailyTotals(ctx context.Context, from, to time.Time) ([]models.MethodTotal, error) {
	const query = `SELECT payment_method, COALESCE(SUM(amount_paid), 0) AS total, COUNT(*) AS count
        FROM payments WHERE date_paid >= $1 AND date_paid < $2 AND is_voided = FALSE
        GROUP BY payment_method ORDER BY payment_method`
	var totals []models.MethodTotal
	if err := r.db.SelectContext(ctx, &totals, query, from, to); err != nil {
		return nil, fmt.Errorf("daily payment totals: %w", err)
	}
	return totals, nil
}

// DailyDetails lists non-voided payments in [from, to) with student display
// fields, optionally restricted to one method.
func (r *PaymentRepository) DailyDetails(ctx context.Context, from, to time.Time, method *models.PaymentMethod) ([]models.PaymentWithStudent, error) {
	query := `SELECT ` + paymentColumns + `, s.first_name, s.second_name, s.class_label
        FROM payments p JOIN students s ON s.id = p.student_id
        WHERE p.date_paid >= $1 AND p.date_paid < $2 AND p.is_voided = FALSE`
	args := []interface{}{from, to}
	if method != nil {
		query += " AND p.payment_method = $3"
		args = append(args, *method)
	}
	query += " ORDER BY p.date_paid, p.receipt_no"

	var rows []models.PaymentWithStudent
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("daily payment details: %w", err)
	}
	return rows, nil
}

// TermTotals aggregates non-voided payments of active students for a period.
func (r *PaymentRepository) TermTotals(ctx context.Context, year int, term models.Term) (models.PaymentTotals, error) {
	const query = `SELECT COALESCE(SUM(p.amount_paid), 0) AS total, COUNT(*) AS count
        FROM payments p JOIN students s ON s.id = p.student_id
        WHERE p.year = $1 AND p.term = $2 AND p.is_voided = FALSE AND s.status = $3`
	var totals models.PaymentTotals
	if err := r.db.GetContext(ctx, &totals, query, year, term, models.StudentStatusActive); err != nil {
		return models.PaymentTotals{}, fmt.Errorf("term payment totals: %w", err)
	}
	return totals, nil
}

func isUniqueViolation(err error, column string) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) || string(pqErr.Code) != uniqueViolation {
		return false
	}
	return column == "" || strings.Contains(pqErr.Constraint, column) || strings.Contains(pqErr.Detail, column)
}
