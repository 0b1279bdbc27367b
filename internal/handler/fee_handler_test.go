package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-fees-api/internal/dto"
	"github.com/noah-isme/sma-fees-api/internal/middleware"
	"github.com/noah-isme/sma-fees-api/internal/models"
	appErrors "github.com/noah-isme/sma-fees-api/pkg/errors"
)

type feeServiceMock struct {
	recordReq    dto.RecordPaymentRequest
	recordActor  string
	recordErr    error
	statementQ   dto.StatementQuery
	statementErr error
	summaryHit   bool
	refreshed    int
	listYear     *int
	listTerm     *models.Term
}

func (m *feeServiceMock) RecordPayment(ctx context.Context, req dto.RecordPaymentRequest, actor string) (*dto.PaymentReceipt, error) {
	m.recordReq = req
	m.recordActor = actor
	if m.recordErr != nil {
		return nil, m.recordErr
	}
	return &dto.PaymentReceipt{Payment: models.Payment{ReceiptNo: "20250115-0001"}, AppliedTo: "School fees"}, nil
}

func (m *feeServiceMock) Statement(ctx context.Context, q dto.StatementQuery) (*dto.Statement, error) {
	m.statementQ = q
	if m.statementErr != nil {
		return nil, m.statementErr
	}
	return &dto.Statement{StudentID: q.StudentID, Total: decimal.NewFromInt(12500)}, nil
}

func (m *feeServiceMock) ReceiptStatement(ctx context.Context, receiptNo string) (*dto.PaymentReceipt, error) {
	return nil, appErrors.Clone(appErrors.ErrNotFound, "receipt not found")
}

func (m *feeServiceMock) ListPayments(ctx context.Context, studentID string, year *int, term *models.Term) (*dto.StudentPayments, error) {
	m.listYear = year
	m.listTerm = term
	return &dto.StudentPayments{StudentID: studentID}, nil
}

func (m *feeServiceMock) TermSummary(ctx context.Context, year int, term models.Term) (*dto.TermSummary, bool, error) {
	return &dto.TermSummary{Year: year, Term: term, CollectionRate: 73}, m.summaryHit, nil
}

func (m *feeServiceMock) RefreshTermSummary(ctx context.Context, year int, term models.Term) (*dto.TermSummary, error) {
	m.refreshed++
	return &dto.TermSummary{Year: year, Term: term}, nil
}

func (m *feeServiceMock) DailyCollections(ctx context.Context, date string) (*dto.DailyCollections, error) {
	return &dto.DailyCollections{Date: date}, nil
}

func (m *feeServiceMock) DailyDetails(ctx context.Context, date, method string) (*dto.DailyDetails, error) {
	return &dto.DailyDetails{Date: date, Method: method}, nil
}

func (m *feeServiceMock) MissingClasses(ctx context.Context, year int, term models.Term) (*dto.MissingClasses, error) {
	return &dto.MissingClasses{Year: year, Term: term}, nil
}

type queueMock struct {
	err   error
	calls int
}

func (q *queueMock) Enqueue(year int, term models.Term) error {
	q.calls++
	return q.err
}

func newTestContext(method, target string, body string) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	var req *http.Request
	if body != "" {
		req, _ = http.NewRequest(method, target, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req, _ = http.NewRequest(method, target, nil)
	}
	c.Request = req
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "u-1", Name: "Mary Secretary", Role: models.RoleSecretary})
	return c, w
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestFeeHandlerRecordPayment(t *testing.T) {
	svc := &feeServiceMock{}
	h := NewFeeHandler(svc, nil)

	c, w := newTestContext(http.MethodPost, "/fees", `{"studentId":"stu-1","amountPaid":"5000","paymentMethod":"CASH","year":2025,"term":"Term1","demand":["TOUR"]}`)
	h.RecordPayment(c)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "stu-1", svc.recordReq.StudentID)
	assert.Equal(t, "5000", svc.recordReq.AmountPaid)
	assert.Equal(t, []string{"TOUR"}, svc.recordReq.Demand)
	assert.Equal(t, "Mary Secretary", svc.recordActor)
	assert.Contains(t, w.Body.String(), "20250115-0001")
}

func TestFeeHandlerRecordPaymentInvalidBody(t *testing.T) {
	h := NewFeeHandler(&feeServiceMock{}, nil)

	c, w := newTestContext(http.MethodPost, "/fees", `{"studentId":`)
	h.RecordPayment(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestFeeHandlerRecordPaymentMissingTuition(t *testing.T) {
	svc := &feeServiceMock{recordErr: appErrors.WithDetails(appErrors.ErrMissingTuitionRow, map[string]interface{}{"normalized": "Grade 7"})}
	h := NewFeeHandler(svc, nil)

	c, w := newTestContext(http.MethodPost, "/fees", `{"studentId":"stu-1","amountPaid":100,"paymentMethod":"CASH","year":2025,"term":"Term1"}`)
	h.RecordPayment(c)

	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	body := decodeEnvelope(t, w)
	errBody := body["error"].(map[string]interface{})
	assert.Equal(t, "MISSING_TUITION_ROW", errBody["code"])
	assert.Equal(t, "Grade 7", errBody["details"].(map[string]interface{})["normalized"])
}

func TestFeeHandlerStatementParsesQuery(t *testing.T) {
	svc := &feeServiceMock{}
	h := NewFeeHandler(svc, nil)

	c, w := newTestContext(http.MethodGet, "/fees/statement/stu-1?year=2025&term=Term2&previousClass=Grade%206&demand=TOUR,MEDICAL&demand=DAMAGE", "")
	c.Params = gin.Params{{Key: "studentId", Value: "stu-1"}}
	h.Statement(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "stu-1", svc.statementQ.StudentID)
	assert.Equal(t, models.TermTwo, svc.statementQ.Term)
	assert.Equal(t, "Grade 6", svc.statementQ.PreviousClass)
	assert.Equal(t, []string{"TOUR", "MEDICAL", "DAMAGE"}, svc.statementQ.Demand)
}

func TestFeeHandlerStatementRejectsBadPeriod(t *testing.T) {
	h := NewFeeHandler(&feeServiceMock{}, nil)

	for _, target := range []string{"/fees/statement/x?term=Term1", "/fees/statement/x?year=2025&term=term1", "/fees/statement/x?year=abc&term=Term1"} {
		c, w := newTestContext(http.MethodGet, target, "")
		h.Statement(c)
		assert.Equal(t, http.StatusBadRequest, w.Code, target)
	}
}

func TestFeeHandlerByStudentOptionalPeriod(t *testing.T) {
	svc := &feeServiceMock{}
	h := NewFeeHandler(svc, nil)

	c, w := newTestContext(http.MethodGet, "/fees/by-student/stu-1?year=2025", "")
	c.Params = gin.Params{{Key: "id", Value: "stu-1"}}
	h.ByStudent(c)

	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, svc.listYear)
	assert.Equal(t, 2025, *svc.listYear)
	assert.Nil(t, svc.listTerm)
}

func TestFeeHandlerReceiptNotFound(t *testing.T) {
	h := NewFeeHandler(&feeServiceMock{}, nil)

	c, w := newTestContext(http.MethodGet, "/fees/receipt-by-number/nope", "")
	c.Params = gin.Params{{Key: "no", Value: "nope"}}
	h.ReceiptByNumber(c)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestFeeHandlerTermSummaryReportsCacheHit(t *testing.T) {
	h := NewFeeHandler(&feeServiceMock{summaryHit: true}, nil)

	c, w := newTestContext(http.MethodGet, "/fees/term-summary?year=2025&term=Term1", "")
	h.TermSummary(c)

	require.Equal(t, http.StatusOK, w.Code)
	body := decodeEnvelope(t, w)
	meta := body["meta"].(map[string]interface{})
	assert.Equal(t, true, meta["cache_hit"])
	assert.Equal(t, float64(73), body["data"].(map[string]interface{})["collectionRate"])
}

func TestFeeHandlerRefreshQueuesOrRunsInline(t *testing.T) {
	svc := &feeServiceMock{}
	queue := &queueMock{}
	h := NewFeeHandler(svc, queue)

	c, w := newTestContext(http.MethodPost, "/fees/term-summary/refresh?year=2025&term=Term1", "")
	h.RefreshTermSummary(c)
	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, 1, queue.calls)
	assert.Zero(t, svc.refreshed)

	queue.err = errors.New("queue full")
	c, w = newTestContext(http.MethodPost, "/fees/term-summary/refresh?year=2025&term=Term1", "")
	h.RefreshTermSummary(c)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, svc.refreshed)

	inline := NewFeeHandler(svc, nil)
	c, w = newTestContext(http.MethodPost, "/fees/term-summary/refresh?year=2025&term=Term1", "")
	inline.RefreshTermSummary(c)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 2, svc.refreshed)
}

func TestFeeHandlerDailyDetailsPassesFilters(t *testing.T) {
	h := NewFeeHandler(&feeServiceMock{}, nil)

	c, w := newTestContext(http.MethodGet, "/fees/daily/details?date=2025-01-15&method=CASH", "")
	h.DailyDetails(c)

	require.Equal(t, http.StatusOK, w.Code)
	data := decodeEnvelope(t, w)["data"].(map[string]interface{})
	assert.Equal(t, "2025-01-15", data["date"])
	assert.Equal(t, "CASH", data["method"])
}
