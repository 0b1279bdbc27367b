// Package fees holds the fee computation engine: which extra charges apply to
// a learner in a period, what they cost, and how the term ledger reconciles.
// Nothing in this package performs I/O.
package fees

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/noah-isme/sma-fees-api/internal/models"
)

// TriggerKind names the condition class of a rule.
type TriggerKind string

// Supported trigger kinds.
const (
	TriggerOnAdmission TriggerKind = "ON_ADMISSION"
	TriggerOnEnterG7   TriggerKind = "ON_ENTER_G7"
	TriggerOnEnterJSS  TriggerKind = "ON_ENTER_JSS"
	TriggerPerYear     TriggerKind = "PER_YEAR"
	TriggerFixedTerm   TriggerKind = "FIXED_TERM"
	TriggerOnDemand    TriggerKind = "ON_DEMAND"
)

// Trigger is the closed set of rule conditions. Only the variants declared in
// this package implement it.
type Trigger interface {
	Kind() TriggerKind
	sealed()
}

// OnAdmission fires in the learner's admission term only.
type OnAdmission struct{}

// OnEnterG7 fires the first term a learner is in Grade 7.
type OnEnterG7 struct{}

// OnEnterJSS fires the first time a learner enters junior secondary (G7-G9).
type OnEnterJSS struct{}

// PerYear fires once per academic year.
type PerYear struct{}

// FixedTerm fires every year in Term.
type FixedTerm struct {
	Term models.Term
}

// OnDemand fires only when the caller asks for the key.
type OnDemand struct{}

func (OnAdmission) Kind() TriggerKind { return TriggerOnAdmission }
func (OnEnterG7) Kind() TriggerKind   { return TriggerOnEnterG7 }
func (OnEnterJSS) Kind() TriggerKind  { return TriggerOnEnterJSS }
func (PerYear) Kind() TriggerKind     { return TriggerPerYear }
func (FixedTerm) Kind() TriggerKind   { return TriggerFixedTerm }
func (OnDemand) Kind() TriggerKind    { return TriggerOnDemand }

func (OnAdmission) sealed() {}
func (OnEnterG7) sealed()   {}
func (OnEnterJSS) sealed()  {}
func (PerYear) sealed()     {}
func (FixedTerm) sealed()   {}
func (OnDemand) sealed()    {}

// ClassScope restricts a rule to a set of class labels.
type ClassScope struct {
	all    bool
	labels []string
}

// AnyClass applies a rule to every class.
var AnyClass = ClassScope{all: true}

// OnlyClasses restricts a rule to the given labels, compared literally.
func OnlyClasses(labels ...string) ClassScope {
	return ClassScope{labels: labels}
}

// Includes reports whether label is covered by the scope.
func (c ClassScope) Includes(label string) bool {
	if c.all {
		return true
	}
	for _, l := range c.labels {
		if l == label {
			return true
		}
	}
	return false
}

func (c ClassScope) overlaps(other ClassScope) bool {
	if c.all || other.all {
		return true
	}
	for _, l := range c.labels {
		if other.Includes(l) {
			return true
		}
	}
	return false
}

// Rule declares when an extra charge key applies.
type Rule struct {
	Key     string
	Label   string
	Trigger Trigger
	Classes ClassScope
}

// DisplayLabel returns the override label or one derived from the key.
func (r Rule) DisplayLabel() string {
	if r.Label != "" {
		return r.Label
	}
	return Label(r.Key)
}

var jssClasses = []string{"Grade 7", "Grade 8", "Grade 9"}

// DefaultRules is the school's extras table. Order is significant: it is the
// order extras appear on statements.
var DefaultRules = []Rule{
	{Key: "ADMISSION_FEE", Trigger: OnAdmission{}, Classes: AnyClass},
	{Key: "ASSESSMENT_BOOK", Trigger: OnAdmission{}, Classes: AnyClass},
	{Key: "TEXTBOOKS_ONBOARD", Trigger: OnAdmission{}, Classes: AnyClass},
	{Key: "TRACKSUIT_ONBOARD", Trigger: OnAdmission{}, Classes: AnyClass},

	{Key: "LOCKER_G7_9", Trigger: OnEnterJSS{}, Classes: OnlyClasses(jssClasses...)},
	{Key: "TRACKSUIT_ENTER_G7", Trigger: OnEnterG7{}, Classes: OnlyClasses("Grade 7")},

	{Key: "GRAD_PP2_T3", Trigger: FixedTerm{Term: models.TermThree}, Classes: OnlyClasses("PP2")},
	{Key: "REAMS_G7_9_T2", Trigger: FixedTerm{Term: models.TermTwo}, Classes: OnlyClasses(jssClasses...)},

	{Key: "DAMAGE", Trigger: OnDemand{}, Classes: AnyClass},
	{Key: "MEDICAL", Trigger: OnDemand{}, Classes: AnyClass},
	{Key: "TOUR", Trigger: OnDemand{}, Classes: AnyClass},
	{Key: "SET_BOOKS_G7_9", Trigger: OnDemand{}, Classes: OnlyClasses(jssClasses...)},
	{Key: "TEXTBOOKS_ON_DEMAND", Trigger: OnDemand{}, Classes: AnyClass},
}

// KeySet is a set of charge keys.
type KeySet map[string]struct{}

// NewKeySet builds a set from keys, upper-casing them.
func NewKeySet(keys ...string) KeySet {
	set := make(KeySet, len(keys))
	for _, k := range keys {
		set.Add(k)
	}
	return set
}

// Add inserts key.
func (s KeySet) Add(key string) {
	key = strings.ToUpper(strings.TrimSpace(key))
	if key == "" {
		return
	}
	s[key] = struct{}{}
}

// Has reports membership. A nil set is empty.
func (s KeySet) Has(key string) bool {
	_, ok := s[key]
	return ok
}

// Keys returns the members sorted.
func (s KeySet) Keys() []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// EnrollmentContext carries everything the evaluator needs about one learner
// in one period. It is built per computation and never persisted.
type EnrollmentContext struct {
	CurrentClass    string
	PreviousClass   string
	Term            models.Term
	IsAdmissionTerm bool

	// AssumePromotionIfMissingPrev treats a learner first seen in a grade with
	// no recorded previous class as promoted into it.
	AssumePromotionIfMissingPrev bool

	ChargedOnce     KeySet
	ChargedThisYear KeySet
	Requested       KeySet

	// BilledThisPeriod holds keys already charged in this same period. They
	// stay on the statement whatever their trigger, as long as the class matches.
	BilledThisPeriod KeySet
}

// Charge is an applicable extra charge before pricing.
type Charge struct {
	Key   string `json:"key"`
	Label string `json:"label"`
}

// Evaluation is the outcome of running the rule table.
type Evaluation struct {
	Charges []Charge
	// InferredPromotions lists keys that fired only because the missing
	// previous class was assumed to be a promotion.
	InferredPromotions []string
}

// Evaluate returns the extra charges that apply, in rule table order. A key is
// charged at most once even when several rules declare it.
func Evaluate(ec EnrollmentContext, rules []Rule) Evaluation {
	ev := Evaluation{Charges: make([]Charge, 0, len(rules))}
	emitted := make(KeySet, len(rules))
	for _, r := range rules {
		if !r.Classes.Includes(ec.CurrentClass) || emitted.Has(r.Key) {
			continue
		}
		if ec.BilledThisPeriod.Has(r.Key) {
			emitted.Add(r.Key)
			ev.Charges = append(ev.Charges, Charge{Key: r.Key, Label: r.DisplayLabel()})
			continue
		}
		ok, inferred := applies(r, ec)
		if !ok {
			continue
		}
		if inferred {
			ev.InferredPromotions = append(ev.InferredPromotions, r.Key)
		}
		emitted.Add(r.Key)
		ev.Charges = append(ev.Charges, Charge{Key: r.Key, Label: r.DisplayLabel()})
	}
	return ev
}

// applies dispatches on the trigger variant. The second result is true when
// the decision relied on the missing-history promotion heuristic.
func applies(r Rule, ec EnrollmentContext) (bool, bool) {
	switch t := r.Trigger.(type) {
	case OnAdmission:
		return ec.IsAdmissionTerm, false

	case OnEnterG7:
		if ec.CurrentClass != "Grade 7" || ec.ChargedOnce.Has(r.Key) {
			return false, false
		}
		prev, known := GradeNumber(ec.PreviousClass)
		switch {
		case ec.IsAdmissionTerm:
			return true, false
		case known && prev == 6:
			return true, false
		case !known && ec.AssumePromotionIfMissingPrev:
			return true, true
		}
		return false, false

	case OnEnterJSS:
		curr, ok := GradeNumber(ec.CurrentClass)
		if !ok || !IsJSS(curr) || ec.ChargedOnce.Has(r.Key) {
			return false, false
		}
		prev, known := GradeNumber(ec.PreviousClass)
		switch {
		case ec.IsAdmissionTerm:
			return true, false
		case known && prev < curr:
			return true, false
		case !known && ec.AssumePromotionIfMissingPrev:
			return true, true
		}
		return false, false

	case PerYear:
		return !ec.ChargedThisYear.Has(r.Key), false

	case FixedTerm:
		return t.Term == ec.Term, false

	case OnDemand:
		return ec.Requested.Has(r.Key), false
	}
	return false, false
}

// ValidateRules reports configuration errors in a rule table: blank keys,
// missing triggers, invalid fixed terms and a key declared by two rules that
// can fire for the same learner in the same period. Duplicates whose class
// scopes are disjoint, or that are pinned to different fixed terms, are allowed.
func ValidateRules(rules []Rule) error {
	var errs []error
	seen := make(map[string][]int, len(rules))
	for i, r := range rules {
		if strings.TrimSpace(r.Key) == "" {
			errs = append(errs, fmt.Errorf("rule %d: empty key", i))
			continue
		}
		if r.Trigger == nil {
			errs = append(errs, fmt.Errorf("rule %s: missing trigger", r.Key))
		}
		if ft, ok := r.Trigger.(FixedTerm); ok && !ft.Term.Valid() {
			errs = append(errs, fmt.Errorf("rule %s: invalid fixed term %q", r.Key, ft.Term))
		}
		for _, prev := range seen[r.Key] {
			if canFireTogether(rules[prev], r) {
				errs = append(errs, fmt.Errorf("rule %s: key also declared by rule %d", r.Key, prev))
				break
			}
		}
		seen[r.Key] = append(seen[r.Key], i)
	}
	return errors.Join(errs...)
}

func canFireTogether(a, b Rule) bool {
	if !a.Classes.overlaps(b.Classes) {
		return false
	}
	ta, okA := a.Trigger.(FixedTerm)
	tb, okB := b.Trigger.(FixedTerm)
	if okA && okB && ta.Term != tb.Term {
		return false
	}
	return true
}

// Label derives a display label from a charge key: LOCKER_G7_9 -> "Locker G7 9".
func Label(key string) string {
	lower := strings.ToLower(strings.ReplaceAll(key, "_", " "))
	out := []rune(lower)
	for i, r := range out {
		if i == 0 || !isWordRune(out[i-1]) {
			out[i] = unicode.ToUpper(r)
		}
	}
	return string(out)
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
