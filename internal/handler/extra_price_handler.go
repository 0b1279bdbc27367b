package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-fees-api/internal/dto"
	"github.com/noah-isme/sma-fees-api/internal/models"
	appErrors "github.com/noah-isme/sma-fees-api/pkg/errors"
	"github.com/noah-isme/sma-fees-api/pkg/response"
)

type extraPriceService interface {
	Upsert(ctx context.Context, req dto.UpsertExtraPriceRequest) (*models.ExtraPrice, error)
	List(ctx context.Context, filter models.ExtraPriceFilter) ([]models.ExtraPrice, error)
}

// ExtraPriceHandler exposes the extra charge price table.
type ExtraPriceHandler struct {
	service extraPriceService
}

// NewExtraPriceHandler builds a new handler.
func NewExtraPriceHandler(service extraPriceService) *ExtraPriceHandler {
	return &ExtraPriceHandler{service: service}
}

// List godoc
// @Summary List extra prices
// @Tags ExtraPrices
// @Produce json
// @Param key query string false "Charge key"
// @Param class query string false "Class label or ALL"
// @Param year query int false "Academic year"
// @Param term query string false "Term"
// @Param active query bool false "Only active or inactive rows"
// @Success 200 {object} response.Envelope
// @Router /extraprices [get]
func (h *ExtraPriceHandler) List(c *gin.Context) {
	year, term, err := optionalPeriod(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	filter := models.ExtraPriceFilter{
		Key:        c.Query("key"),
		ClassLabel: c.Query("class"),
		Year:       year,
		Term:       term,
	}
	if raw := c.Query("active"); raw != "" {
		active, err := strconv.ParseBool(raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "active must be true or false"))
			return
		}
		filter.IsActive = &active
	}
	rows, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rows, nil)
}

// Upsert godoc
// @Summary Create or replace an extra price
// @Tags ExtraPrices
// @Accept json
// @Produce json
// @Param payload body dto.UpsertExtraPriceRequest true "Price payload"
// @Success 200 {object} response.Envelope
// @Router /extraprices [post]
func (h *ExtraPriceHandler) Upsert(c *gin.Context) {
	var req dto.UpsertExtraPriceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid extra price payload"))
		return
	}
	price, err := h.service.Upsert(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, price, nil)
}
