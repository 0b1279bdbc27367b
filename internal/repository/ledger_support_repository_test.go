package repository

import (
	"context"
	"errors"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-fees-api/internal/models"
)

func TestChargeHistoryRepositoryKeys(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewChargeHistoryRepository(db)

	mock.ExpectQuery("NOT \\(year = \\$2 AND term = \\$3\\)").
		WithArgs("stu-1", 2026, models.TermTwo).
		WillReturnRows(sqlmock.NewRows([]string{"charge_key"}).AddRow("LOCKER_G7_9"))
	mock.ExpectQuery("year = \\$2 AND term <> \\$3").
		WithArgs("stu-1", 2026, models.TermTwo).
		WillReturnRows(sqlmock.NewRows([]string{"charge_key"}))

	once, err := repo.ChargedOnceKeys(context.Background(), "stu-1", 2026, models.TermTwo)
	require.NoError(t, err)
	assert.Equal(t, []string{"LOCKER_G7_9"}, once)

	year, err := repo.ChargedInYearKeys(context.Background(), "stu-1", 2026, models.TermTwo)
	require.NoError(t, err)
	assert.Empty(t, year)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReceiptCounterRepositoryNext(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewReceiptCounterRepository(db)

	for _, seq := range []int64{1, 2} {
		mock.ExpectQuery("INSERT INTO receipt_counters .* ON CONFLICT \\(day_key\\) DO UPDATE SET seq = receipt_counters.seq \\+ 1").
			WithArgs("20260105").
			WillReturnRows(sqlmock.NewRows([]string{"seq"}).AddRow(seq))
	}

	first, err := repo.Next(context.Background(), "20260105")
	require.NoError(t, err)
	second, err := repo.Next(context.Background(), "20260105")
	require.NoError(t, err)
	assert.Equal(t, int64(1), first)
	assert.Equal(t, int64(2), second)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAdjustmentRepositoryCreateAndList(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewAdjustmentRepository(db)

	mock.ExpectExec("INSERT INTO adjustments").WillReturnResult(sqlmock.NewResult(1, 1))
	adj := &models.Adjustment{StudentID: "stu-1", Year: 2026, Term: models.TermOne, Kind: models.AdjustmentOpening, Amount: decimal.NewFromInt(-500)}
	require.NoError(t, repo.Create(context.Background(), adj))
	assert.NotEmpty(t, adj.ID)

	mock.ExpectQuery("FROM adjustments WHERE student_id = \\$1 AND year = \\$2 AND term = \\$3").
		WithArgs("stu-1", 2026, models.TermOne).
		WillReturnRows(sqlmock.NewRows([]string{"id", "student_id", "year", "term", "kind", "amount", "note", "created_by", "created_at"}).
			AddRow("adj-1", "stu-1", 2026, "Term1", "OPENING", "-500", "bf", "director", adj.CreatedAt))

	list, err := repo.List(context.Background(), "stu-1", 2026, models.TermOne)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "-500", list[0].Amount.String())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMaintenanceRepositoryWipeIsAtomic(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewMaintenanceRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM payment_edits").WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec("DELETE FROM payments").WillReturnResult(sqlmock.NewResult(0, 10))
	mock.ExpectCommit()

	deleted, err := repo.Wipe(context.Background(), []WipeTarget{WipePayments, WipePaymentEdits})
	require.NoError(t, err)
	assert.Equal(t, int64(3), deleted[WipePaymentEdits])
	assert.Equal(t, int64(10), deleted[WipePayments])

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM payments").WillReturnResult(sqlmock.NewResult(0, 10))
	mock.ExpectExec("DELETE FROM adjustments").WillReturnError(errors.New("lock timeout"))
	mock.ExpectRollback()

	_, err = repo.Wipe(context.Background(), []WipeTarget{WipeAdjustments, WipePayments})
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMaintenanceRepositoryCountIgnoresUnknownTargets(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewMaintenanceRepository(db)

	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM adjustments").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(4))

	counts, err := repo.Count(context.Background(), []WipeTarget{"students; DROP TABLE x", "receipt_counters", WipeAdjustments})
	require.NoError(t, err)
	assert.Equal(t, map[WipeTarget]int64{WipeAdjustments: 4}, counts)
	assert.NoError(t, mock.ExpectationsWereMet())
}
