package models

// Term is one of the three school terms in an academic year.
type Term string

// Terms of the academic year.
const (
	TermOne   Term = "Term1"
	TermTwo   Term = "Term2"
	TermThree Term = "Term3"
)

// Valid reports whether t is a known term.
func (t Term) Valid() bool {
	switch t {
	case TermOne, TermTwo, TermThree:
		return true
	}
	return false
}

// Period identifies a (year, term) billing window.
type Period struct {
	Year int  `json:"year"`
	Term Term `json:"term"`
}
