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

type adjustmentService interface {
	Create(ctx context.Context, req dto.CreateAdjustmentRequest, actor string) (*models.Adjustment, error)
	List(ctx context.Context, filter models.AdjustmentFilter) (*dto.AdjustmentList, error)
}

// AdjustmentHandler exposes opening balances and ledger corrections.
type AdjustmentHandler struct {
	service adjustmentService
}

// NewAdjustmentHandler builds a new handler.
func NewAdjustmentHandler(service adjustmentService) *AdjustmentHandler {
	return &AdjustmentHandler{service: service}
}

// List godoc
// @Summary List adjustments
// @Tags Adjustments
// @Produce json
// @Param studentId query string false "Student ID"
// @Param year query int false "Academic year"
// @Param term query string false "Term"
// @Success 200 {object} response.Envelope
// @Router /adjustments [get]
func (h *AdjustmentHandler) List(c *gin.Context) {
	year, term, err := optionalPeriod(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	out, err := h.service.List(c.Request.Context(), models.AdjustmentFilter{
		StudentID: c.Query("studentId"),
		Year:      year,
		Term:      term,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, out, nil)
}

// Create godoc
// @Summary Record an opening balance or adjustment
// @Tags Adjustments
// @Accept json
// @Produce json
// @Param payload body dto.CreateAdjustmentRequest true "Adjustment payload"
// @Success 201 {object} response.Envelope
// @Router /adjustments [post]
func (h *AdjustmentHandler) Create(c *gin.Context) {
	var req dto.CreateAdjustmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid adjustment payload"))
		return
	}
	adj, err := h.service.Create(c.Request.Context(), req, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, adj)
}
