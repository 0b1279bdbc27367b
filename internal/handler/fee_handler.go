package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-fees-api/internal/dto"
	"github.com/noah-isme/sma-fees-api/internal/middleware"
	"github.com/noah-isme/sma-fees-api/internal/models"
	appErrors "github.com/noah-isme/sma-fees-api/pkg/errors"
	"github.com/noah-isme/sma-fees-api/pkg/response"
)

type feeService interface {
	RecordPayment(ctx context.Context, req dto.RecordPaymentRequest, actor string) (*dto.PaymentReceipt, error)
	Statement(ctx context.Context, q dto.StatementQuery) (*dto.Statement, error)
	ReceiptStatement(ctx context.Context, receiptNo string) (*dto.PaymentReceipt, error)
	ListPayments(ctx context.Context, studentID string, year *int, term *models.Term) (*dto.StudentPayments, error)
	TermSummary(ctx context.Context, year int, term models.Term) (*dto.TermSummary, bool, error)
	RefreshTermSummary(ctx context.Context, year int, term models.Term) (*dto.TermSummary, error)
	DailyCollections(ctx context.Context, date string) (*dto.DailyCollections, error)
	DailyDetails(ctx context.Context, date, method string) (*dto.DailyDetails, error)
	MissingClasses(ctx context.Context, year int, term models.Term) (*dto.MissingClasses, error)
}

// SummaryQueue schedules background term summary refreshes.
type SummaryQueue interface {
	Enqueue(year int, term models.Term) error
}

// FeeHandler exposes payment recording, statements and collection reports.
type FeeHandler struct {
	service feeService
	warmer  SummaryQueue
}

// NewFeeHandler builds a new handler. warmer may be nil, in which case
// refreshes run inline.
func NewFeeHandler(service feeService, warmer SummaryQueue) *FeeHandler {
	return &FeeHandler{service: service, warmer: warmer}
}

// RecordPayment godoc
// @Summary Record a fee payment
// @Description Allocates the next receipt number for the payment day and returns the updated ledger.
// @Tags Fees
// @Accept json
// @Produce json
// @Param payload body dto.RecordPaymentRequest true "Payment payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /fees [post]
func (h *FeeHandler) RecordPayment(c *gin.Context) {
	var req dto.RecordPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payment payload"))
		return
	}
	receipt, err := h.service.RecordPayment(c.Request.Context(), req, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, receipt)
}

// Statement godoc
// @Summary Student fee statement for a period
// @Tags Fees
// @Produce json
// @Param studentId path string true "Student ID"
// @Param year query int true "Academic year"
// @Param term query string true "Term1, Term2 or Term3"
// @Param previousClass query string false "Class in the previous period"
// @Param demand query []string false "On-demand extra keys" collectionFormat(csv)
// @Success 200 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /fees/statement/{studentId} [get]
func (h *FeeHandler) Statement(c *gin.Context) {
	year, term, err := periodFromQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	statement, err := h.service.Statement(c.Request.Context(), dto.StatementQuery{
		StudentID:     c.Param("studentId"),
		Year:          year,
		Term:          term,
		PreviousClass: c.Query("previousClass"),
		Demand:        listQuery(c, "demand"),
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, statement, nil)
}

// ByStudent godoc
// @Summary List a student's payments
// @Tags Fees
// @Produce json
// @Param id path string true "Student ID"
// @Param year query int false "Academic year"
// @Param term query string false "Term"
// @Success 200 {object} response.Envelope
// @Router /fees/by-student/{id} [get]
func (h *FeeHandler) ByStudent(c *gin.Context) {
	year, term, err := optionalPeriod(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	out, err := h.service.ListPayments(c.Request.Context(), c.Param("id"), year, term)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, out, nil)
}

// ReceiptByNumber godoc
// @Summary Reprint a receipt
// @Description Rebuilds the statement as it stood when the receipt was issued.
// @Tags Fees
// @Produce json
// @Param no path string true "Receipt number"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /fees/receipt-by-number/{no} [get]
func (h *FeeHandler) ReceiptByNumber(c *gin.Context) {
	receipt, err := h.service.ReceiptStatement(c.Request.Context(), c.Param("no"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, receipt, nil)
}

// TermSummary godoc
// @Summary Collection summary for a term
// @Tags Reports
// @Produce json
// @Param year query int true "Academic year"
// @Param term query string true "Term"
// @Success 200 {object} response.Envelope
// @Router /fees/term-summary [get]
func (h *FeeHandler) TermSummary(c *gin.Context) {
	year, term, err := periodFromQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	summary, hit, err := h.service.TermSummary(c.Request.Context(), year, term)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, hit)
	response.JSON(c, http.StatusOK, summary, middleware.ExtractMeta(c))
}

// RefreshTermSummary godoc
// @Summary Recompute the cached term summary
// @Tags Reports
// @Produce json
// @Param year query int true "Academic year"
// @Param term query string true "Term"
// @Success 200 {object} response.Envelope
// @Success 202 {object} response.Envelope
// @Router /fees/term-summary/refresh [post]
func (h *FeeHandler) RefreshTermSummary(c *gin.Context) {
	year, term, err := periodFromQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	result := dto.RefreshSummaryResult{Year: year, Term: term}
	if h.warmer != nil {
		if err := h.warmer.Enqueue(year, term); err == nil {
			result.Queued = true
			response.Accepted(c, result)
			return
		}
	}
	if _, err := h.service.RefreshTermSummary(c.Request.Context(), year, term); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Daily godoc
// @Summary Daily collections per payment method
// @Tags Reports
// @Produce json
// @Param date query string false "YYYY-MM-DD, defaults to today"
// @Success 200 {object} response.Envelope
// @Router /fees/daily [get]
func (h *FeeHandler) Daily(c *gin.Context) {
	out, err := h.service.DailyCollections(c.Request.Context(), c.Query("date"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, out, nil)
}

// DailyDetails godoc
// @Summary Payments received on a day
// @Tags Reports
// @Produce json
// @Param date query string false "YYYY-MM-DD, defaults to today"
// @Param method query string false "Payment method"
// @Success 200 {object} response.Envelope
// @Router /fees/daily/details [get]
func (h *FeeHandler) DailyDetails(c *gin.Context) {
	out, err := h.service.DailyDetails(c.Request.Context(), c.Query("date"), c.Query("method"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, out, nil)
}

// MissingClasses godoc
// @Summary Student classes without a class fee
// @Tags Diagnostics
// @Produce json
// @Param year query int true "Academic year"
// @Param term query string true "Term"
// @Success 200 {object} response.Envelope
// @Router /fees/debug/missing-classes [get]
func (h *FeeHandler) MissingClasses(c *gin.Context) {
	year, term, err := periodFromQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	out, err := h.service.MissingClasses(c.Request.Context(), year, term)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, out, nil)
}
