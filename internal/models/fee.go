package models

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	decimal.MarshalJSONWithoutQuotes = true
}

// AllClasses marks a price row that applies to every class.
const AllClasses = "ALL"

// FeeSchedule is the tuition row for a class in a given period.
type FeeSchedule struct {
	ID         string          `db:"id" json:"id"`
	ClassLabel string          `db:"class_label" json:"class"`
	Year       int             `db:"year" json:"year"`
	Term       Term            `db:"term" json:"term"`
	Amount     decimal.Decimal `db:"amount" json:"amount"`
	CreatedAt  time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time       `db:"updated_at" json:"updated_at"`
}

// ExtraPrice prices an extra charge key for a class/year/term scope. Nil year or
// term mean "any".
type ExtraPrice struct {
	ID         string          `db:"id" json:"id"`
	Key        string          `db:"charge_key" json:"key"`
	ClassLabel string          `db:"class_label" json:"class_label"`
	Year       *int            `db:"year" json:"year"`
	Term       *Term           `db:"term" json:"term"`
	Amount     decimal.Decimal `db:"amount" json:"amount"`
	IsActive   bool            `db:"is_active" json:"is_active"`
	CreatedAt  time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time       `db:"updated_at" json:"updated_at"`
}

// ExtraPriceFilter narrows price listings.
type ExtraPriceFilter struct {
	Key        string
	ClassLabel string
	Year       *int
	Term       *Term
	IsActive   *bool
}

// AdjustmentKind distinguishes opening balances from later corrections.
type AdjustmentKind string

// Adjustment kinds.
const (
	AdjustmentOpening    AdjustmentKind = "OPENING"
	AdjustmentCorrection AdjustmentKind = "ADJUSTMENT"
)

// Adjustment is a signed manual ledger entry: positive charges, negative credits.
type Adjustment struct {
	ID        string          `db:"id" json:"id"`
	StudentID string          `db:"student_id" json:"student_id"`
	Year      int             `db:"year" json:"year"`
	Term      Term            `db:"term" json:"term"`
	Kind      AdjustmentKind  `db:"kind" json:"type"`
	Amount    decimal.Decimal `db:"amount" json:"amount"`
	Note      string          `db:"note" json:"note,omitempty"`
	CreatedBy string          `db:"created_by" json:"created_by,omitempty"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
}

// AdjustmentFilter narrows adjustment listings.
type AdjustmentFilter struct {
	StudentID string
	Year      *int
	Term      *Term
}

// PaymentMethod is the channel a payment arrived through.
type PaymentMethod string

// Accepted payment methods.
const (
	PaymentCash       PaymentMethod = "CASH"
	PaymentMPesa      PaymentMethod = "M-Pesa"
	PaymentPaybill    PaymentMethod = "PAYBILL"
	PaymentTill       PaymentMethod = "TILL"
	PaymentTowerSacco PaymentMethod = "TOWER SACCO"
)

// Valid reports whether m is an accepted method.
func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentCash, PaymentMPesa, PaymentPaybill, PaymentTill, PaymentTowerSacco:
		return true
	}
	return false
}

// DefaultPaymentCategory applies when a payment is not earmarked for an extra.
const DefaultPaymentCategory = "FEES"

// Payment is a recorded fee payment. Voided payments stay on file but are
// excluded from every sum.
type Payment struct {
	ID         string          `db:"id" json:"id"`
	StudentID  string          `db:"student_id" json:"student_id"`
	ReceiptNo  string          `db:"receipt_no" json:"receipt_no"`
	Amount     decimal.Decimal `db:"amount_paid" json:"amount_paid"`
	Method     PaymentMethod   `db:"payment_method" json:"payment_method"`
	DatePaid   time.Time       `db:"date_paid" json:"date_paid"`
	Year       int             `db:"year" json:"year"`
	Term       Term            `db:"term" json:"term"`
	Category   string          `db:"category" json:"category"`
	RecordedBy string          `db:"recorded_by" json:"recorded_by"`
	IsVoided   bool            `db:"is_voided" json:"is_voided"`
	VoidReason *string         `db:"void_reason" json:"void_reason,omitempty"`
	VoidedBy   *string         `db:"voided_by" json:"voided_by,omitempty"`
	VoidedAt   *time.Time      `db:"voided_at" json:"voided_at,omitempty"`
	CreatedAt  time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time       `db:"updated_at" json:"updated_at"`
	Edits      []PaymentEdit   `db:"-" json:"edits,omitempty"`
}

// PaymentEdit is one entry of a payment's edit audit trail.
type PaymentEdit struct {
	ID        string          `db:"id" json:"id"`
	PaymentID string          `db:"payment_id" json:"payment_id"`
	EditedBy  string          `db:"edited_by" json:"by"`
	Reason    string          `db:"reason" json:"reason"`
	Changes   json.RawMessage `db:"changes" json:"changes"`
	EditedAt  time.Time       `db:"edited_at" json:"at"`
}

// PaymentChange captures one field's before/after value in an edit.
type PaymentChange struct {
	From interface{} `json:"from"`
	To   interface{} `json:"to"`
}

// PaymentWithStudent joins a payment with display fields of its learner.
type PaymentWithStudent struct {
	Payment
	FirstName  string `db:"first_name" json:"-"`
	SecondName string `db:"second_name" json:"-"`
	ClassLabel string `db:"class_label" json:"-"`
}

// MethodTotal aggregates non-voided payments for one method.
type MethodTotal struct {
	Method PaymentMethod   `db:"payment_method" json:"paymentMethod"`
	Total  decimal.Decimal `db:"total" json:"total"`
	Count  int             `db:"count" json:"count"`
}

// PaymentTotals aggregates non-voided payments for a scope.
type PaymentTotals struct {
	Total decimal.Decimal `db:"total" json:"total"`
	Count int             `db:"count" json:"count"`
}

// ChargeEvent records that an extra charge was billed to a student for a period.
type ChargeEvent struct {
	ID        string          `db:"id" json:"id"`
	StudentID string          `db:"student_id" json:"student_id"`
	Key       string          `db:"charge_key" json:"key"`
	Year      int             `db:"year" json:"year"`
	Term      Term            `db:"term" json:"term"`
	Amount    decimal.Decimal `db:"amount" json:"amount"`
	PaymentID *string         `db:"payment_id" json:"payment_id,omitempty"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
}

// ReceiptCounter is the per-day receipt sequence.
type ReceiptCounter struct {
	DayKey string `db:"day_key" json:"day_key"`
	Seq    int64  `db:"seq" json:"seq"`
}
