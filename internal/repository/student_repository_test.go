package repository

import (
	"context"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sevaportal/portal-api/internal/models"
)

func TestListUnassignedStudents(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	rows := sqlmock.NewRows([]string{"id", "name", "email", "grade", "project_key"}).
		AddRow("st3", "Asha", "asha@example.com", 3, "alpha")
	mock.ExpectQuery(regexp.QuoteMeta("s.id = ANY(ss.student_ids)")).
		WithArgs("alpha", "2026-10-20").
		WillReturnRows(rows)

	students, err := repo.ListUnassigned(context.Background(), "alpha", "2026-10-20")
	require.NoError(t, err)
	require.Len(t, students, 1)
	assert.Equal(t, 3, students[0].Grade)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindStudentsByIDs(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM students WHERE id IN (?, ?) ORDER BY name ASC")).
		WithArgs("st1", "st2").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "email", "grade", "project_key"}).
			AddRow("st1", "Bo", "bo@example.com", 4, "alpha").
			AddRow("st2", "Cy", "cy@example.com", 5, "alpha"))

	students, err := repo.FindByIDs(context.Background(), []string{"st1", "st2"})
	require.NoError(t, err)
	assert.Len(t, students, 2)

	empty, err := repo.FindByIDs(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateStudent(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectExec("INSERT INTO students").
		WithArgs(sqlmock.AnyArg(), "Dee", "dee@example.com", 6, "alpha").
		WillReturnResult(sqlmock.NewResult(1, 1))

	student := &models.Student{Name: "Dee", Email: "dee@example.com", Grade: 6, ProjectKey: "alpha"}
	require.NoError(t, repo.Create(context.Background(), student))
	assert.NotEmpty(t, student.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
