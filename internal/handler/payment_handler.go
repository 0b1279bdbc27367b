package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-fees-api/internal/dto"
	"github.com/noah-isme/sma-fees-api/internal/models"
	appErrors "github.com/noah-isme/sma-fees-api/pkg/errors"
	"github.com/noah-isme/sma-fees-api/pkg/response"
)

type paymentService interface {
	Void(ctx context.Context, id string, req dto.VoidPaymentRequest, actor string) (*models.Payment, error)
	Edit(ctx context.Context, id string, req dto.EditPaymentRequest, actor string) (*models.Payment, error)
}

// PaymentHandler exposes corrections to recorded payments.
type PaymentHandler struct {
	service paymentService
}

// NewPaymentHandler builds a new handler.
func NewPaymentHandler(service paymentService) *PaymentHandler {
	return &PaymentHandler{service: service}
}

// Void godoc
// @Summary Void a payment
// @Tags Fees
// @Accept json
// @Produce json
// @Param id path string true "Payment ID"
// @Param payload body dto.VoidPaymentRequest true "Void reason"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /fees/{id}/void [post]
func (h *PaymentHandler) Void(c *gin.Context) {
	var req dto.VoidPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid void payload"))
		return
	}
	payment, err := h.service.Void(c.Request.Context(), c.Param("id"), req, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, payment, nil)
}

// Edit godoc
// @Summary Edit a payment
// @Tags Fees
// @Accept json
// @Produce json
// @Param id path string true "Payment ID"
// @Param payload body dto.EditPaymentRequest true "Changed fields and reason"
// @Success 200 {object} response.Envelope
// @Router /fees/{id} [patch]
func (h *PaymentHandler) Edit(c *gin.Context) {
	var req dto.EditPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid edit payload"))
		return
	}
	payment, err := h.service.Edit(c.Request.Context(), c.Param("id"), req, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, payment, nil)
}
