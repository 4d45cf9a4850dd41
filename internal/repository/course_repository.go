package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/madrasoft/sms-insights-api/internal/models"
)

// CourseRepository provides read access to course metadata, mainly the vahed
// credit weights used in overall averages.
type CourseRepository struct {
	db *sqlx.DB
}

// NewCourseRepository constructs a CourseRepository.
func NewCourseRepository(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

// ListBySchool returns every course registered for a school.
func (r *CourseRepository) ListBySchool(ctx context.Context, schoolCode string) ([]models.CourseMeta, error) {
	const query = `SELECT course_code, course_name, school_code, vahed
        FROM courses WHERE school_code = $1 ORDER BY course_code ASC`
	var courses []models.CourseMeta
	if err := r.db.SelectContext(ctx, &courses, query, schoolCode); err != nil {
		return nil, fmt.Errorf("list courses: %w", err)
	}
	return courses, nil
}
