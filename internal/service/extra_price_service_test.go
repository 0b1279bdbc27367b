package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-fees-api/internal/dto"
	"github.com/noah-isme/sma-fees-api/internal/models"
	appErrors "github.com/noah-isme/sma-fees-api/pkg/errors"
)

type fakeExtraPriceRepo struct {
	saved  []models.ExtraPrice
	filter models.ExtraPriceFilter
}

func (f *fakeExtraPriceRepo) List(ctx context.Context, filter models.ExtraPriceFilter) ([]models.ExtraPrice, error) {
	f.filter = filter
	return f.saved, nil
}

func (f *fakeExtraPriceRepo) Upsert(ctx context.Context, price *models.ExtraPrice) error {
	price.ID = "price-1"
	f.saved = append(f.saved, *price)
	return nil
}

func TestExtraPriceServiceUpsertNormalises(t *testing.T) {
	repo := &fakeExtraPriceRepo{}
	cache := &fakeSummaryCache{}
	svc := NewExtraPriceService(repo, cache, nil, nil)
	term := "Term2"

	price, err := svc.Upsert(context.Background(), dto.UpsertExtraPriceRequest{
		Key: " reams_g7_9_t2 ", Class: "g8", Term: &term, Amount: 450,
	})
	require.NoError(t, err)
	assert.Equal(t, "REAMS_G7_9_T2", price.Key)
	assert.Equal(t, "Grade 8", price.ClassLabel)
	require.NotNil(t, price.Term)
	assert.Equal(t, models.TermTwo, *price.Term)
	assert.Nil(t, price.Year)
	assert.True(t, price.IsActive)
	assert.Contains(t, cache.invalidated, summaryCachePattern)

	inactive := false
	price, err = svc.Upsert(context.Background(), dto.UpsertExtraPriceRequest{Key: "TOUR", Class: "all", Amount: "0", IsActive: &inactive})
	require.NoError(t, err)
	assert.Equal(t, models.AllClasses, price.ClassLabel)
	assert.False(t, price.IsActive)
	assert.True(t, price.Amount.IsZero())
}

func TestExtraPriceServiceUpsertRejects(t *testing.T) {
	svc := NewExtraPriceService(&fakeExtraPriceRepo{}, nil, nil, nil)

	_, err := svc.Upsert(context.Background(), dto.UpsertExtraPriceRequest{Key: "SET-BOOKS", Class: "ALL", Amount: 10})
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))

	_, err = svc.Upsert(context.Background(), dto.UpsertExtraPriceRequest{Key: "TOUR", Class: "ALL", Amount: -5.0})
	assert.True(t, appErrors.Is(err, appErrors.ErrInvalidAmount))

	bad := "Term9"
	_, err = svc.Upsert(context.Background(), dto.UpsertExtraPriceRequest{Key: "TOUR", Class: "ALL", Term: &bad, Amount: 5})
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestExtraPriceServiceListUppercasesKey(t *testing.T) {
	repo := &fakeExtraPriceRepo{}
	svc := NewExtraPriceService(repo, nil, nil, nil)

	rows, err := svc.List(context.Background(), models.ExtraPriceFilter{Key: "tour"})
	require.NoError(t, err)
	assert.NotNil(t, rows)
	assert.Equal(t, "TOUR", repo.filter.Key)
}
