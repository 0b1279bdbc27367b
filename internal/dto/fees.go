package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/sma-fees-api/internal/fees"
	"github.com/noah-isme/sma-fees-api/internal/models"
)

// RecordPaymentRequest is the payload for recording a fee payment. AmountPaid
// accepts a JSON number or a numeric string.
type RecordPaymentRequest struct {
	StudentID     string      `json:"studentId" validate:"required"`
	AmountPaid    interface{} `json:"amountPaid" swaggertype:"number"`
	PaymentMethod string      `json:"paymentMethod" validate:"required"`
	Year          int         `json:"year" validate:"required,min=2000,max=2100"`
	Term          string      `json:"term" validate:"required,oneof=Term1 Term2 Term3"`
	DatePaid      string      `json:"datePaid,omitempty"`
	Category      string      `json:"category,omitempty"`
	PreviousClass string      `json:"previousClass,omitempty"`
	Demand        []string    `json:"demand,omitempty"`
}

// StatementQuery selects a learner's ledger for one period.
type StatementQuery struct {
	StudentID     string
	Year          int
	Term          models.Term
	PreviousClass string
	Demand        []string
}

// AdjustmentsSummary totals the manual entries of a statement.
type AdjustmentsSummary struct {
	Total decimal.Decimal     `json:"total"`
	Items []models.Adjustment `json:"items"`
}

// Statement is the due/paid/balance view of one learner for one period.
type Statement struct {
	StudentID   string             `json:"studentId"`
	StudentName string             `json:"studentName"`
	Class       string             `json:"class"`
	Year        int                `json:"year"`
	Term        models.Term        `json:"term"`
	Tuition     decimal.Decimal    `json:"tuition"`
	Extras      []fees.ExtraItem   `json:"extras"`
	ExtrasTotal decimal.Decimal    `json:"extrasTotal"`
	Adjustments AdjustmentsSummary `json:"adjustments"`
	Total       decimal.Decimal    `json:"total"`
	TotalPaid   decimal.Decimal    `json:"totalPaid"`
	Balance     decimal.Decimal    `json:"balance"`
	Overpayment decimal.Decimal    `json:"overpayment"`
	Currency    string             `json:"currency"`
	AsOf        *time.Time         `json:"asOf,omitempty"`
}

// SchoolHeader is echoed on receipts and summaries.
type SchoolHeader struct {
	Name    string `json:"name,omitempty"`
	Address string `json:"address,omitempty"`
	Phone   string `json:"phone,omitempty"`
	Logo    string `json:"logo,omitempty"`
}

// PaymentReceipt is returned after recording a payment and when a receipt is
// looked up by number.
type PaymentReceipt struct {
	Payment   models.Payment `json:"payment"`
	AppliedTo string         `json:"appliedTo"`
	Statement Statement      `json:"statement"`
	School    SchoolHeader   `json:"school"`
}

// StudentPayments lists a learner's payments with the non-voided total.
type StudentPayments struct {
	StudentID string           `json:"studentId"`
	Payments  []models.Payment `json:"payments"`
	Total     decimal.Decimal  `json:"total"`
	Count     int              `json:"count"`
}

// TermSummary aggregates expected and received fees across active learners.
type TermSummary struct {
	Year             int             `json:"year"`
	Term             models.Term     `json:"term"`
	Students         int             `json:"students"`
	TotalExpected    decimal.Decimal `json:"totalExpected"`
	TotalReceived    decimal.Decimal `json:"totalReceived"`
	TotalOutstanding decimal.Decimal `json:"totalOutstanding"`
	TotalOverpaid    decimal.Decimal `json:"totalOverpaid"`
	ReceiptsCount    int             `json:"receiptsCount"`
	CollectionRate   int             `json:"collectionRate"`
	MissingFeeRows   int             `json:"missingFeeRows"`
	Note             string          `json:"note,omitempty"`
	Currency         string          `json:"currency"`
	School           SchoolHeader    `json:"school"`
	GeneratedAt      time.Time       `json:"generatedAt"`
}

// MethodTotal is one row of the daily collections breakdown.
type MethodTotal struct {
	Method models.PaymentMethod `json:"paymentMethod"`
	Total  decimal.Decimal      `json:"total"`
	Count  int                  `json:"count"`
}

// DailyCollections totals one local day's receipts per payment method.
type DailyCollections struct {
	Date       string          `json:"date"`
	ByMethod   []MethodTotal   `json:"byMethod"`
	GrandTotal decimal.Decimal `json:"grandTotal"`
	Count      int             `json:"count"`
	Currency   string          `json:"currency"`
}

// DailyPaymentLine is one payment in the daily details listing.
type DailyPaymentLine struct {
	PaymentID     string               `json:"paymentId"`
	ReceiptNo     string               `json:"receiptNo"`
	StudentID     string               `json:"studentId"`
	StudentName   string               `json:"studentName"`
	Class         string               `json:"class"`
	AmountPaid    decimal.Decimal      `json:"amountPaid"`
	PaymentMethod models.PaymentMethod `json:"paymentMethod"`
	Category      string               `json:"category"`
	DatePaid      time.Time            `json:"datePaid"`
	RecordedBy    string               `json:"recordedBy"`
}

// DailyDetails lists one local day's payments.
type DailyDetails struct {
	Date     string             `json:"date"`
	Method   string             `json:"method,omitempty"`
	Payments []DailyPaymentLine `json:"payments"`
	Total    decimal.Decimal    `json:"total"`
}

// ClassMapping shows how a raw student class label normalises.
type ClassMapping struct {
	Raw        string `json:"raw"`
	Normalized string `json:"normalized"`
	HasFeeRow  bool   `json:"hasFeeRow"`
}

// MissingClasses reports student classes without a tuition row.
type MissingClasses struct {
	Year           int            `json:"year"`
	Term           models.Term    `json:"term"`
	StudentClasses []ClassMapping `json:"studentClasses"`
	FeeClasses     []string       `json:"feeClasses"`
	Missing        []string       `json:"missing"`
}

// VoidPaymentRequest voids a payment.
type VoidPaymentRequest struct {
	Reason string `json:"reason" validate:"required,min=3"`
}

// EditPaymentRequest changes selected payment fields. Reason is mandatory and
// at least one field must change.
type EditPaymentRequest struct {
	AmountPaid    interface{} `json:"amountPaid,omitempty" swaggertype:"number"`
	PaymentMethod *string     `json:"paymentMethod,omitempty"`
	DatePaid      *string     `json:"datePaid,omitempty"`
	Category      *string     `json:"category,omitempty"`
	Reason        string      `json:"reason" validate:"required,min=3"`
}

// CreateAdjustmentRequest records an opening balance or correction.
type CreateAdjustmentRequest struct {
	StudentID string      `json:"studentId" validate:"required"`
	Year      int         `json:"year" validate:"required,min=2000,max=2100"`
	Term      string      `json:"term" validate:"required,oneof=Term1 Term2 Term3"`
	Type      string      `json:"type" validate:"required,oneof=OPENING ADJUSTMENT"`
	Amount    interface{} `json:"amount" swaggertype:"number"`
	Note      string      `json:"note,omitempty" validate:"max=500"`
}

// AdjustmentList is a filtered adjustment listing with its signed total.
type AdjustmentList struct {
	Items []models.Adjustment `json:"items"`
	Total decimal.Decimal     `json:"total"`
}

// UpsertExtraPriceRequest creates or replaces a price row.
type UpsertExtraPriceRequest struct {
	Key      string      `json:"key" validate:"required,max=64"`
	Class    string      `json:"class" validate:"required"`
	Year     *int        `json:"year,omitempty" validate:"omitempty,min=2000,max=2100"`
	Term     *string     `json:"term,omitempty" validate:"omitempty,oneof=Term1 Term2 Term3"`
	Amount   interface{} `json:"amount" swaggertype:"number"`
	IsActive *bool       `json:"isActive,omitempty"`
}

// WipeRequest parameters for the administrative ledger wipe.
type WipeRequest struct {
	Confirm string
	Scope   string
	DryRun  bool
}

// WipeResult reports what a wipe removed, or would remove on a dry run.
type WipeResult struct {
	Scope  string           `json:"scope"`
	DryRun bool             `json:"dryRun"`
	Counts map[string]int64 `json:"counts"`
}

// RefreshSummaryResult acknowledges a summary refresh request.
type RefreshSummaryResult struct {
	Year   int         `json:"year"`
	Term   models.Term `json:"term"`
	Queued bool        `json:"queued"`
}
