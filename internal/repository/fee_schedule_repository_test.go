package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-fees-api/internal/models"
)

func TestFeeScheduleRepositoryFindByClass(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewFeeScheduleRepository(db)

	rows := sqlmock.NewRows([]string{"id", "class_label", "year", "term", "amount", "created_at", "updated_at"}).
		AddRow("fs-1", "Grade 7", 2026, "Term1", "5000.00", time.Now(), time.Now())
	mock.ExpectQuery("FROM fee_schedules WHERE LOWER\\(class_label\\) = LOWER\\(\\$1\\)").
		WithArgs("grade 7", 2026, models.TermOne).
		WillReturnRows(rows)

	row, err := repo.FindByClass(context.Background(), "grade 7", 2026, models.TermOne)
	require.NoError(t, err)
	require.NotNil(t, row)
	assert.Equal(t, "5000", row.Amount.String())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFeeScheduleRepositoryFindByClassMissing(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewFeeScheduleRepository(db)

	mock.ExpectQuery("FROM fee_schedules").WillReturnError(sql.ErrNoRows)

	row, err := repo.FindByClass(context.Background(), "Grade 8", 2026, models.TermOne)
	require.NoError(t, err)
	assert.Nil(t, row)
}

func TestFeeScheduleRepositoryListClassLabels(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewFeeScheduleRepository(db)

	mock.ExpectQuery("SELECT DISTINCT class_label FROM fee_schedules").
		WithArgs(2026, models.TermTwo).
		WillReturnRows(sqlmock.NewRows([]string{"class_label"}).AddRow("Grade 1").AddRow("PP1"))

	labels, err := repo.ListClassLabels(context.Background(), 2026, models.TermTwo)
	require.NoError(t, err)
	assert.Equal(t, []string{"Grade 1", "PP1"}, labels)
}
