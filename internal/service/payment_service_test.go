package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-fees-api/internal/dto"
	"github.com/noah-isme/sma-fees-api/internal/models"
	"github.com/noah-isme/sma-fees-api/internal/repository"
	appErrors "github.com/noah-isme/sma-fees-api/pkg/errors"
)

type fakePaymentMutator struct {
	payments map[string]models.Payment
	edits    map[string][]models.PaymentEdit
}

func (f *fakePaymentMutator) FindByID(ctx context.Context, id string) (*models.Payment, error) {
	p, ok := f.payments[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &p, nil
}

func (f *fakePaymentMutator) ListEdits(ctx context.Context, paymentID string) ([]models.PaymentEdit, error) {
	return f.edits[paymentID], nil
}

func (f *fakePaymentMutator) Void(ctx context.Context, id, reason, by string, at time.Time) error {
	p, ok := f.payments[id]
	if !ok {
		return sql.ErrNoRows
	}
	if p.IsVoided {
		return repository.ErrPaymentVoided
	}
	p.IsVoided = true
	p.VoidReason = &reason
	p.VoidedBy = &by
	p.VoidedAt = &at
	f.payments[id] = p
	return nil
}

func (f *fakePaymentMutator) Update(ctx context.Context, payment *models.Payment, edit *models.PaymentEdit) error {
	if f.payments[payment.ID].IsVoided {
		return repository.ErrPaymentVoided
	}
	edit.PaymentID = payment.ID
	f.payments[payment.ID] = *payment
	if f.edits == nil {
		f.edits = make(map[string][]models.PaymentEdit)
	}
	f.edits[payment.ID] = append(f.edits[payment.ID], *edit)
	return nil
}

func newPaymentServiceFixture() (*PaymentService, *fakePaymentMutator, *fakeSummaryCache, *MetricsService) {
	repo := &fakePaymentMutator{payments: map[string]models.Payment{
		"pay-1": {
			ID:        "pay-1",
			ReceiptNo: "20250115-0001",
			Amount:    decimal.NewFromInt(5000),
			Method:    models.PaymentCash,
			Category:  models.DefaultPaymentCategory,
			DatePaid:  time.Date(2025, 1, 14, 21, 0, 0, 0, time.UTC),
		},
	}}
	cache := &fakeSummaryCache{}
	metrics := NewMetricsService()
	svc := NewPaymentService(repo, cache, metrics, nairobi, nil, nil)
	svc.now = func() time.Time { return time.Date(2025, 1, 20, 10, 0, 0, 0, nairobi) }
	return svc, repo, cache, metrics
}

func TestPaymentServiceVoid(t *testing.T) {
	svc, _, cache, _ := newPaymentServiceFixture()

	payment, err := svc.Void(context.Background(), "pay-1", dto.VoidPaymentRequest{Reason: "duplicate entry"}, "director-1")
	require.NoError(t, err)
	assert.True(t, payment.IsVoided)
	require.NotNil(t, payment.VoidedBy)
	assert.Equal(t, "director-1", *payment.VoidedBy)
	assert.Equal(t, "20250115-0001", payment.ReceiptNo)
	assert.Contains(t, cache.invalidated, summaryCachePattern)

	_, err = svc.Void(context.Background(), "pay-1", dto.VoidPaymentRequest{Reason: "again please"}, "director-1")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrAlreadyVoided))
	assert.Equal(t, 409, appErrors.FromError(err).Status)
}

func TestPaymentServiceVoidValidation(t *testing.T) {
	svc, _, _, _ := newPaymentServiceFixture()

	_, err := svc.Void(context.Background(), "pay-1", dto.VoidPaymentRequest{}, "d")
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))

	_, err = svc.Void(context.Background(), "missing", dto.VoidPaymentRequest{Reason: "wrong student"}, "d")
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}

func TestPaymentServiceEditRecordsChanges(t *testing.T) {
	svc, repo, _, _ := newPaymentServiceFixture()
	method := "paybill"
	date := "2025-01-16"

	payment, err := svc.Edit(context.Background(), "pay-1", dto.EditPaymentRequest{
		AmountPaid:    "4500",
		PaymentMethod: &method,
		DatePaid:      &date,
		Reason:        "bank slip corrected",
	}, "director-1")
	require.NoError(t, err)

	assert.Equal(t, "4500.00", payment.Amount.StringFixed(2))
	assert.Equal(t, models.PaymentPaybill, payment.Method)
	assert.Equal(t, "20250115-0001", payment.ReceiptNo)
	require.Len(t, payment.Edits, 1)

	edit := repo.edits["pay-1"][0]
	assert.Equal(t, "director-1", edit.EditedBy)
	assert.Equal(t, "bank slip corrected", edit.Reason)

	var changes map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(edit.Changes, &changes))
	assert.Contains(t, changes, "amountPaid")
	assert.Contains(t, changes, "paymentMethod")
	assert.Contains(t, changes, "datePaid")
	assert.NotContains(t, changes, "category")
}

func TestPaymentServiceEditRejections(t *testing.T) {
	svc, repo, _, _ := newPaymentServiceFixture()
	same := "CASH"

	_, err := svc.Edit(context.Background(), "pay-1", dto.EditPaymentRequest{PaymentMethod: &same, Reason: "no-op edit"}, "d")
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))

	_, err = svc.Edit(context.Background(), "pay-1", dto.EditPaymentRequest{AmountPaid: -10.0, Reason: "negative"}, "d")
	assert.True(t, appErrors.Is(err, appErrors.ErrInvalidAmount))

	bad := "EXTRA:"
	_, err = svc.Edit(context.Background(), "pay-1", dto.EditPaymentRequest{Category: &bad, Reason: "bad category"}, "d")
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))

	p := repo.payments["pay-1"]
	p.IsVoided = true
	repo.payments["pay-1"] = p
	_, err = svc.Edit(context.Background(), "pay-1", dto.EditPaymentRequest{AmountPaid: 100, Reason: "after void"}, "d")
	assert.True(t, appErrors.Is(err, appErrors.ErrAlreadyVoided))
	assert.Empty(t, repo.edits)
}
