package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-fees-api/internal/dto"
	"github.com/noah-isme/sma-fees-api/pkg/response"
)

type maintenanceService interface {
	Wipe(ctx context.Context, req dto.WipeRequest, actor string) (*dto.WipeResult, error)
}

// AdminHandler exposes destructive maintenance operations.
type AdminHandler struct {
	service maintenanceService
}

// NewAdminHandler builds a new handler.
func NewAdminHandler(service maintenanceService) *AdminHandler {
	return &AdminHandler{service: service}
}

// Wipe godoc
// @Summary Wipe ledger records
// @Description Clears payments and/or adjustments in one transaction. Receipt counters are kept.
// @Tags Admin
// @Produce json
// @Param confirm query string true "Must be NUKE"
// @Param scope query string false "payments, adjustments or all"
// @Param dryRun query bool false "Only count rows"
// @Success 200 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /fees/admin/wipe [delete]
func (h *AdminHandler) Wipe(c *gin.Context) {
	dryRun, _ := strconv.ParseBool(c.Query("dryRun"))
	out, err := h.service.Wipe(c.Request.Context(), dto.WipeRequest{
		Confirm: c.Query("confirm"),
		Scope:   c.Query("scope"),
		DryRun:  dryRun,
	}, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, out, nil)
}
