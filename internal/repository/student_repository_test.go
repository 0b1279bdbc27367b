package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-fees-api/internal/models"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

var studentCols = []string{"id", "first_name", "second_name", "class_label", "parent_id", "admitted_year", "admitted_term", "status", "created_at", "updated_at"}

func TestStudentRepositoryFindByID(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	rows := sqlmock.NewRows(studentCols).
		AddRow("stu-1", "Amani", "Otieno", "Grade 7", nil, 2026, "Term1", "active", time.Now(), time.Now())
	mock.ExpectQuery("SELECT .* FROM students WHERE id = \\$1").
		WithArgs("stu-1").
		WillReturnRows(rows)

	student, err := repo.FindByID(context.Background(), "stu-1")
	require.NoError(t, err)
	assert.Equal(t, "Amani Otieno", student.FullName())
	require.NotNil(t, student.AdmittedYear)
	assert.True(t, student.IsAdmissionTerm(2026, models.TermOne))
	assert.Nil(t, student.ParentID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryFindByIDNotFound(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectQuery("FROM students WHERE id").WithArgs("missing").WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByID(context.Background(), "missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestStudentRepositoryListActive(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	rows := sqlmock.NewRows(studentCols).
		AddRow("stu-1", "Amani", "Otieno", "Grade 7", nil, nil, nil, "active", time.Now(), time.Now()).
		AddRow("stu-2", "Baraka", "", "PP2", "par-1", nil, nil, "active", time.Now(), time.Now())
	mock.ExpectQuery("FROM students WHERE status = \\$1 ORDER BY class_label").
		WithArgs(models.StudentStatusActive).
		WillReturnRows(rows)

	students, err := repo.ListActive(context.Background())
	require.NoError(t, err)
	require.Len(t, students, 2)
	assert.False(t, students[0].IsAdmissionTerm(2026, models.TermOne))
	require.NotNil(t, students[1].ParentID)
	assert.Equal(t, "par-1", *students[1].ParentID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
