package fees

import (
	"errors"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/sma-fees-api/internal/models"
)

// ErrMissingTuitionRow is returned when no tuition row exists for the exact
// (class, year, term). The calculator never guesses a tuition amount.
var ErrMissingTuitionRow = errors.New("missing tuition row")

// Pricer prices a charge key for the computation's (class, year, term).
type Pricer interface {
	Price(key string) (Resolution, error)
}

// PricerFunc adapts a function to Pricer.
type PricerFunc func(key string) (Resolution, error)

// Price implements Pricer.
func (f PricerFunc) Price(key string) (Resolution, error) { return f(key) }

// ExtraItem is a priced extra charge.
type ExtraItem struct {
	Key    string          `json:"key"`
	Label  string          `json:"label"`
	Amount decimal.Decimal `json:"amount"`
}

// DueBreakdown is tuition plus itemised extras for one learner and period.
type DueBreakdown struct {
	Tuition     decimal.Decimal `json:"tuition"`
	Extras      []ExtraItem     `json:"extras"`
	ExtrasTotal decimal.Decimal `json:"extrasTotal"`
	GrandTotal  decimal.Decimal `json:"grandTotal"`

	InferredPromotions []string `json:"-"`
}

// Calculator assembles due breakdowns from a rule table.
type Calculator struct {
	Rules []Rule
}

// NewCalculator returns a calculator over rules, falling back to DefaultRules.
func NewCalculator(rules []Rule) *Calculator {
	if rules == nil {
		rules = DefaultRules
	}
	return &Calculator{Rules: rules}
}

// ComputeDue evaluates the rule table for ec, prices each applicable key and
// totals the result. Keys that price to zero are left off the statement.
func (c *Calculator) ComputeDue(tuition *models.FeeSchedule, ec EnrollmentContext, pricer Pricer) (DueBreakdown, error) {
	if tuition == nil {
		return DueBreakdown{}, ErrMissingTuitionRow
	}

	ev := Evaluate(ec, c.Rules)
	due := DueBreakdown{
		Tuition:            Round(tuition.Amount),
		Extras:             make([]ExtraItem, 0, len(ev.Charges)),
		ExtrasTotal:        decimal.Zero,
		InferredPromotions: ev.InferredPromotions,
	}

	for _, ch := range ev.Charges {
		res, err := pricer.Price(ch.Key)
		if err != nil {
			return DueBreakdown{}, err
		}
		amount := Round(res.Amount)
		if !amount.IsPositive() {
			continue
		}
		due.Extras = append(due.Extras, ExtraItem{Key: ch.Key, Label: ch.Label, Amount: amount})
		due.ExtrasTotal = due.ExtrasTotal.Add(amount)
	}

	due.GrandTotal = due.Tuition.Add(due.ExtrasTotal)
	return due, nil
}
