package fees

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/sma-fees-api/internal/models"
)

// Specificity weights. Class outranks year outranks term, so an exact-class
// row always beats an ALL-class row whatever its year/term scope.
const (
	classMatchScore = 8
	yearMatchScore  = 4
	termMatchScore  = 2
	disqualified    = -999
)

// Resolution is the outcome of pricing one charge key.
type Resolution struct {
	Amount decimal.Decimal
	Row    *models.ExtraPrice
	Score  int
	// Ambiguous is set when several rows share the winning score, which only
	// happens when two active rows have an identical scope.
	Ambiguous bool
}

// Score rates how specifically row matches the (class, year, term) query.
// A negative score means the row prices a different class, year or term.
func Score(row models.ExtraPrice, classLabel string, year int, term models.Term) int {
	score := 0

	switch row.ClassLabel {
	case classLabel:
		score += classMatchScore
	case models.AllClasses:
	default:
		score += disqualified
	}

	switch {
	case row.Year == nil:
	case *row.Year == year:
		score += yearMatchScore
	default:
		score += disqualified
	}

	switch {
	case row.Term == nil:
	case *row.Term == term:
		score += termMatchScore
	default:
		score += disqualified
	}

	return score
}

// Resolve picks the most specific active price row for key. With no matching
// row the amount is zero. Ties go to the most recently updated row, then the
// lowest ID, so the result does not depend on table order.
func Resolve(key, classLabel string, year int, term models.Term, rows []models.ExtraPrice) Resolution {
	key = strings.ToUpper(strings.TrimSpace(key))

	var best *models.ExtraPrice
	bestScore := 0
	tied := 0
	for i := range rows {
		row := &rows[i]
		if !row.IsActive || row.Key != key {
			continue
		}
		score := Score(*row, classLabel, year, term)
		if score < 0 {
			continue
		}
		switch {
		case best == nil || score > bestScore:
			best, bestScore, tied = row, score, 1
		case score == bestScore:
			tied++
			if preferRow(row, best) {
				best = row
			}
		}
	}

	if best == nil {
		return Resolution{Amount: decimal.Zero}
	}
	return Resolution{
		Amount:    best.Amount,
		Row:       best,
		Score:     bestScore,
		Ambiguous: tied > 1,
	}
}

func preferRow(candidate, current *models.ExtraPrice) bool {
	if !candidate.UpdatedAt.Equal(current.UpdatedAt) {
		return candidate.UpdatedAt.After(current.UpdatedAt)
	}
	return candidate.ID < current.ID
}
