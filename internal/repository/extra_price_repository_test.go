package repository

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-fees-api/internal/models"
)

var extraPriceCols = []string{"id", "charge_key", "class_label", "year", "term", "amount", "is_active", "created_at", "updated_at"}

func TestExtraPriceRepositoryListActiveByKey(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewExtraPriceRepository(db)

	rows := sqlmock.NewRows(extraPriceCols).
		AddRow("1", "LOCKER_G7_9", "ALL", nil, nil, "500", true, time.Now(), time.Now()).
		AddRow("2", "LOCKER_G7_9", "Grade 7", 2026, nil, "700", true, time.Now(), time.Now())
	mock.ExpectQuery("FROM extra_prices WHERE charge_key = \\$1 AND is_active = TRUE").
		WithArgs("LOCKER_G7_9").
		WillReturnRows(rows)

	prices, err := repo.ListActiveByKey(context.Background(), "locker_g7_9")
	require.NoError(t, err)
	require.Len(t, prices, 2)
	assert.Nil(t, prices[0].Year)
	require.NotNil(t, prices[1].Year)
	assert.Equal(t, 2026, *prices[1].Year)
	assert.Nil(t, prices[1].Term)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExtraPriceRepositoryListFilter(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewExtraPriceRepository(db)

	year := 2026
	active := true
	mock.ExpectQuery("FROM extra_prices WHERE charge_key = \\$1 AND year = \\$2 AND is_active = \\$3 ORDER BY").
		WithArgs("TOUR", 2026, true).
		WillReturnRows(sqlmock.NewRows(extraPriceCols))

	_, err := repo.List(context.Background(), models.ExtraPriceFilter{Key: "tour", Year: &year, IsActive: &active})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExtraPriceRepositoryUpsert(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewExtraPriceRepository(db)

	created := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery("INSERT INTO extra_prices .* ON CONFLICT").
		WithArgs(sqlmock.AnyArg(), "TOUR", "ALL", nil, nil, sqlmock.AnyArg(), true, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow("existing", created))

	price := &models.ExtraPrice{Key: "TOUR", ClassLabel: models.AllClasses, Amount: decimal.NewFromInt(1500), IsActive: true}
	require.NoError(t, repo.Upsert(context.Background(), price))
	assert.Equal(t, "existing", price.ID)
	assert.Equal(t, created, price.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}
