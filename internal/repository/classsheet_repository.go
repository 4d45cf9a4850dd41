package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/madrasoft/sms-insights-api/internal/models"
)

// ClassSheetRepository reads the session cells that carry grade and
// assessment entries, the raw material of every comparison.
type ClassSheetRepository struct {
	db *sqlx.DB
}

// NewClassSheetRepository constructs a ClassSheetRepository.
func NewClassSheetRepository(db *sqlx.DB) *ClassSheetRepository {
	return &ClassSheetRepository{db: db}
}

// ListByStudents returns the cells of the given students whose session date
// falls in [from, to). The window is a coarse pre-filter; exact school-year
// membership is decided per cell by the caller.
func (r *ClassSheetRepository) ListByStudents(ctx context.Context, schoolCode string, studentCodes []string, from, to time.Time) ([]models.SessionCell, error) {
	if len(studentCodes) == 0 {
		return []models.SessionCell{}, nil
	}
	const query = `SELECT id, school_code, class_code, student_code, course_code, teacher_code,
        date, grades, assessments, created_at, updated_at
        FROM session_cells
        WHERE school_code = $1 AND student_code = ANY($2) AND date >= $3 AND date < $4
        ORDER BY student_code, course_code, date`
	var cells []models.SessionCell
	if err := r.db.SelectContext(ctx, &cells, query, schoolCode, pq.Array(studentCodes), from, to); err != nil {
		return nil, fmt.Errorf("list session cells: %w", err)
	}
	return cells, nil
}

// ListTeacherCodes returns the distinct teacher codes that recorded cells for
// the given students inside the window. Weight resolution scopes per-teacher
// rows to these teachers.
func (r *ClassSheetRepository) ListTeacherCodes(ctx context.Context, schoolCode string, studentCodes []string, from, to time.Time) ([]string, error) {
	if len(studentCodes) == 0 {
		return []string{}, nil
	}
	const query = `SELECT DISTINCT teacher_code FROM session_cells
        WHERE school_code = $1 AND student_code = ANY($2) AND date >= $3 AND date < $4 AND teacher_code <> ''
        ORDER BY teacher_code`
	var codes []string
	if err := r.db.SelectContext(ctx, &codes, query, schoolCode, pq.Array(studentCodes), from, to); err != nil {
		return nil, fmt.Errorf("list teacher codes: %w", err)
	}
	return codes, nil
}
