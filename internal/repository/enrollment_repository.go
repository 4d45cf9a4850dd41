package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/madrasoft/sms-insights-api/internal/models"
)

// EnrollmentRepository resolves which students belong to which classes.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs an EnrollmentRepository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

// ListByClassCodes returns the student-to-class links for the given classes.
func (r *EnrollmentRepository) ListByClassCodes(ctx context.Context, schoolCode string, classCodes []string) ([]models.StudentEnrollment, error) {
	if len(classCodes) == 0 {
		return []models.StudentEnrollment{}, nil
	}
	const query = `SELECT student_code, class_code FROM enrollments
        WHERE school_code = $1 AND class_code = ANY($2) ORDER BY class_code, student_code`
	var enrollments []models.StudentEnrollment
	if err := r.db.SelectContext(ctx, &enrollments, query, schoolCode, pq.Array(classCodes)); err != nil {
		return nil, fmt.Errorf("list enrollments: %w", err)
	}
	return enrollments, nil
}
