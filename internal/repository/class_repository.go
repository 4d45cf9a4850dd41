package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/madrasoft/sms-insights-api/internal/models"
)

// ClassRepository provides read access to class metadata.
type ClassRepository struct {
	db *sqlx.DB
}

// NewClassRepository constructs a ClassRepository.
func NewClassRepository(db *sqlx.DB) *ClassRepository {
	return &ClassRepository{db: db}
}

// ListBySchool returns every class of a school ordered by class code. Callers
// narrow to a grade/major scope in memory; the full set is also what the
// known-combination catalog is derived from.
func (r *ClassRepository) ListBySchool(ctx context.Context, schoolCode string) ([]models.ClassInfo, error) {
	const query = `SELECT class_code, class_name, school_code, grade, major, created_at
        FROM classes WHERE school_code = $1 ORDER BY class_code ASC`
	var classes []models.ClassInfo
	if err := r.db.SelectContext(ctx, &classes, query, schoolCode); err != nil {
		return nil, fmt.Errorf("list classes: %w", err)
	}
	return classes, nil
}
