package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/madrasoft/sms-insights-api/internal/models"
)

// AssessmentValueRepository provides read access to the configurable
// label-to-weight rows, both school-global and per-teacher.
type AssessmentValueRepository struct {
	db *sqlx.DB
}

// NewAssessmentValueRepository constructs an AssessmentValueRepository.
func NewAssessmentValueRepository(db *sqlx.DB) *AssessmentValueRepository {
	return &AssessmentValueRepository{db: db}
}

// ListBySchool returns every weight row of a school, global rows first so a
// later per-teacher row overrides them during resolution.
func (r *AssessmentValueRepository) ListBySchool(ctx context.Context, schoolCode string) ([]models.AssessmentValue, error) {
	const query = `SELECT id, school_code, teacher_code, label, weight, is_global, created_at
        FROM assessment_values WHERE school_code = $1 ORDER BY is_global DESC, created_at ASC`
	var values []models.AssessmentValue
	if err := r.db.SelectContext(ctx, &values, query, schoolCode); err != nil {
		return nil, fmt.Errorf("list assessment values: %w", err)
	}
	return values, nil
}
