package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-fees-api/internal/models"
)

const studentColumns = `id, first_name, second_name, class_label, parent_id, admitted_year, admitted_term, status, created_at, updated_at`

// StudentRepository reads the enrollment view of learners. The registry owns
// the table; nothing here writes to it.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs a StudentRepository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// FindByID fetches a student. A missing row is reported as sql.ErrNoRows.
func (r *StudentRepository) FindByID(ctx context.Context, id string) (*models.Student, error) {
	query := `SELECT ` + studentColumns + ` FROM students WHERE id = $1`
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find student: %w", err)
	}
	return &student, nil
}

// ListActive returns every active student ordered by class then name.
func (r *StudentRepository) ListActive(ctx context.Context) ([]models.Student, error) {
	query := `SELECT ` + studentColumns + ` FROM students WHERE status = $1 ORDER BY class_label, first_name, second_name`
	var students []models.Student
	if err := r.db.SelectContext(ctx, &students, query, models.StudentStatusActive); err != nil {
		return nil, fmt.Errorf("list active students: %w", err)
	}
	return students, nil
}

// ListClassLabels returns the distinct raw class labels of active students.
func (r *StudentRepository) ListClassLabels(ctx context.Context) ([]string, error) {
	const query = `SELECT DISTINCT class_label FROM students WHERE status = $1 ORDER BY class_label`
	var labels []string
	if err := r.db.SelectContext(ctx, &labels, query, models.StudentStatusActive); err != nil {
		return nil, fmt.Errorf("list student classes: %w", err)
	}
	return labels, nil
}
