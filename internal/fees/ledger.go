package fees

import (
	"github.com/shopspring/decimal"

	"github.com/noah-isme/sma-fees-api/internal/models"
)

var hundred = decimal.NewFromInt(100)

// Round rounds an amount to minor currency units.
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// Ledger is the reconciled view of one learner's period.
type Ledger struct {
	Due              DueBreakdown
	AdjustmentsTotal decimal.Decimal
	TotalDue         decimal.Decimal
	TotalPaid        decimal.Decimal
	Balance          decimal.Decimal
	Overpayment      decimal.Decimal
}

// SumAdjustments totals signed adjustments: charges add, credits subtract.
func SumAdjustments(adjustments []models.Adjustment) decimal.Decimal {
	total := decimal.Zero
	for _, a := range adjustments {
		total = total.Add(a.Amount)
	}
	return Round(total)
}

// Reconcile merges a due breakdown with adjustments and payments. Balance and
// overpayment are floored at zero and at most one of them is non-zero.
func Reconcile(due DueBreakdown, adjustments []models.Adjustment, totalPaid decimal.Decimal) Ledger {
	adjTotal := SumAdjustments(adjustments)
	totalDue := Round(due.GrandTotal.Add(adjTotal))
	paid := Round(totalPaid)
	diff := totalDue.Sub(paid)

	l := Ledger{
		Due:              due,
		AdjustmentsTotal: adjTotal,
		TotalDue:         totalDue,
		TotalPaid:        paid,
		Balance:          decimal.Zero,
		Overpayment:      decimal.Zero,
	}
	if diff.IsPositive() {
		l.Balance = diff
	} else if diff.IsNegative() {
		l.Overpayment = diff.Neg()
	}
	return l
}

// CollectionRate is received/expected as a whole percentage, rounded half up.
// It is zero when nothing is expected.
func CollectionRate(expected, received decimal.Decimal) int {
	if !expected.IsPositive() {
		return 0
	}
	return int(received.Mul(hundred).Div(expected).Round(0).IntPart())
}
