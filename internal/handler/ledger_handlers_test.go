package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-fees-api/internal/dto"
	"github.com/noah-isme/sma-fees-api/internal/models"
	appErrors "github.com/noah-isme/sma-fees-api/pkg/errors"
)

type paymentServiceMock struct {
	voidID  string
	voidErr error
	edit    dto.EditPaymentRequest
}

func (m *paymentServiceMock) Void(ctx context.Context, id string, req dto.VoidPaymentRequest, actor string) (*models.Payment, error) {
	m.voidID = id
	if m.voidErr != nil {
		return nil, m.voidErr
	}
	return &models.Payment{ID: id, IsVoided: true}, nil
}

func (m *paymentServiceMock) Edit(ctx context.Context, id string, req dto.EditPaymentRequest, actor string) (*models.Payment, error) {
	m.edit = req
	return &models.Payment{ID: id}, nil
}

type adjustmentServiceMock struct {
	filter models.AdjustmentFilter
}

func (m *adjustmentServiceMock) Create(ctx context.Context, req dto.CreateAdjustmentRequest, actor string) (*models.Adjustment, error) {
	return &models.Adjustment{ID: "adj-1", StudentID: req.StudentID, CreatedBy: actor}, nil
}

func (m *adjustmentServiceMock) List(ctx context.Context, filter models.AdjustmentFilter) (*dto.AdjustmentList, error) {
	m.filter = filter
	return &dto.AdjustmentList{Items: []models.Adjustment{}}, nil
}

type extraPriceServiceMock struct {
	filter models.ExtraPriceFilter
}

func (m *extraPriceServiceMock) Upsert(ctx context.Context, req dto.UpsertExtraPriceRequest) (*models.ExtraPrice, error) {
	return &models.ExtraPrice{ID: "price-1", Key: req.Key}, nil
}

func (m *extraPriceServiceMock) List(ctx context.Context, filter models.ExtraPriceFilter) ([]models.ExtraPrice, error) {
	m.filter = filter
	return []models.ExtraPrice{}, nil
}

type maintenanceServiceMock struct {
	req dto.WipeRequest
}

func (m *maintenanceServiceMock) Wipe(ctx context.Context, req dto.WipeRequest, actor string) (*dto.WipeResult, error) {
	m.req = req
	if req.Confirm != "NUKE" {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "confirm=NUKE is required")
	}
	return &dto.WipeResult{Scope: req.Scope, DryRun: req.DryRun}, nil
}

func TestPaymentHandlerVoidConflict(t *testing.T) {
	svc := &paymentServiceMock{voidErr: appErrors.ErrAlreadyVoided}
	h := NewPaymentHandler(svc)

	c, w := newTestContext(http.MethodPost, "/fees/pay-1/void", `{"reason":"entered twice"}`)
	c.Params = gin.Params{{Key: "id", Value: "pay-1"}}
	h.Void(c)

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "pay-1", svc.voidID)
	assert.Contains(t, w.Body.String(), "ALREADY_VOIDED")
}

func TestPaymentHandlerEdit(t *testing.T) {
	svc := &paymentServiceMock{}
	h := NewPaymentHandler(svc)

	c, w := newTestContext(http.MethodPatch, "/fees/pay-1", `{"paymentMethod":"TILL","reason":"wrong channel"}`)
	c.Params = gin.Params{{Key: "id", Value: "pay-1"}}
	h.Edit(c)

	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, svc.edit.PaymentMethod)
	assert.Equal(t, "TILL", *svc.edit.PaymentMethod)
	assert.Nil(t, svc.edit.AmountPaid)
}

func TestAdjustmentHandlerCreateAndList(t *testing.T) {
	svc := &adjustmentServiceMock{}
	h := NewAdjustmentHandler(svc)

	c, w := newTestContext(http.MethodPost, "/adjustments", `{"studentId":"stu-1","year":2025,"term":"Term1","type":"OPENING","amount":-500}`)
	h.Create(c)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), "Mary Secretary")

	c, w = newTestContext(http.MethodGet, "/adjustments?studentId=stu-1&term=Term3", "")
	h.List(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "stu-1", svc.filter.StudentID)
	require.NotNil(t, svc.filter.Term)
	assert.Equal(t, models.TermThree, *svc.filter.Term)
	assert.Nil(t, svc.filter.Year)
}

func TestExtraPriceHandlerListFilters(t *testing.T) {
	svc := &extraPriceServiceMock{}
	h := NewExtraPriceHandler(svc)

	c, w := newTestContext(http.MethodGet, "/extraprices?key=tour&active=false", "")
	h.List(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "tour", svc.filter.Key)
	require.NotNil(t, svc.filter.IsActive)
	assert.False(t, *svc.filter.IsActive)

	c, w = newTestContext(http.MethodGet, "/extraprices?active=maybe", "")
	h.List(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAdminHandlerWipe(t *testing.T) {
	svc := &maintenanceServiceMock{}
	h := NewAdminHandler(svc)

	c, w := newTestContext(http.MethodDelete, "/fees/admin/wipe?scope=payments", "")
	h.Wipe(c)
	assert.Equal(t, http.StatusPreconditionFailed, w.Code)

	c, w = newTestContext(http.MethodDelete, "/fees/admin/wipe?confirm=NUKE&scope=payments&dryRun=true", "")
	h.Wipe(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, svc.req.DryRun)
	assert.Equal(t, "payments", svc.req.Scope)
}
