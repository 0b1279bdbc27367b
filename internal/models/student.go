package models

import (
	"strings"
	"time"
)

// StudentStatus represents a learner's registration state.
type StudentStatus string

// Supported student statuses.
const (
	StudentStatusActive    StudentStatus = "active"
	StudentStatusLeft      StudentStatus = "left"
	StudentStatusGraduated StudentStatus = "graduated"
)

// Student is the enrollment view of a learner owned by the student registry.
type Student struct {
	ID           string        `db:"id" json:"id"`
	FirstName    string        `db:"first_name" json:"first_name"`
	SecondName   string        `db:"second_name" json:"second_name"`
	ClassLabel   string        `db:"class_label" json:"class"`
	ParentID     *string       `db:"parent_id" json:"parent_id,omitempty"`
	AdmittedYear *int          `db:"admitted_year" json:"admitted_year,omitempty"`
	AdmittedTerm *Term         `db:"admitted_term" json:"admitted_term,omitempty"`
	Status       StudentStatus `db:"status" json:"status"`
	CreatedAt    time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time     `db:"updated_at" json:"updated_at"`
}

// FullName joins the learner's names for display.
func (s Student) FullName() string {
	return strings.TrimSpace(s.FirstName + " " + s.SecondName)
}

// IsAdmissionTerm reports whether (year, term) is the intake period. Students
// imported without an admission record never have one.
func (s Student) IsAdmissionTerm(year int, term Term) bool {
	if s.AdmittedYear == nil || s.AdmittedTerm == nil {
		return false
	}
	return *s.AdmittedYear == year && *s.AdmittedTerm == term
}
