package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// GradeEntry is one quantitative mark recorded by a teacher. Entries are
// immutable inputs; the engine never mutates them. TotalPoints defaults to 20
// when a row was stored without a denominator.
type GradeEntry struct {
	Value       float64   `json:"value"`
	TotalPoints float64   `json:"totalPoints,omitempty"`
	Description string    `json:"description,omitempty"`
	Date        time.Time `json:"date"`
}

// AssessmentEntry is one qualitative mark. Weight, when present, overrides
// every weight-table entry for this single row.
type AssessmentEntry struct {
	Label  string    `json:"value"`
	Title  string    `json:"title,omitempty"`
	Date   time.Time `json:"date"`
	Weight *float64  `json:"weight,omitempty"`
}

// GradeList stores grade entries as a JSONB column.
type GradeList []GradeEntry

// Value marshals the list for persistence.
func (l GradeList) Value() (driver.Value, error) {
	if l == nil {
		l = GradeList{}
	}
	data, err := json.Marshal(l)
	if err != nil {
		return nil, fmt.Errorf("marshal grade list: %w", err)
	}
	return data, nil
}

// Scan unmarshals a JSONB payload into the list.
func (l *GradeList) Scan(value interface{}) error {
	return scanJSON(value, l, "GradeList")
}

// AssessmentList stores assessment entries as a JSONB column.
type AssessmentList []AssessmentEntry

// Value marshals the list for persistence.
func (l AssessmentList) Value() (driver.Value, error) {
	if l == nil {
		l = AssessmentList{}
	}
	data, err := json.Marshal(l)
	if err != nil {
		return nil, fmt.Errorf("marshal assessment list: %w", err)
	}
	return data, nil
}

// Scan unmarshals a JSONB payload into the list.
func (l *AssessmentList) Scan(value interface{}) error {
	return scanJSON(value, l, "AssessmentList")
}

// SessionCell is the atomic grading unit: one (student, course, teacher,
// date) grouping carrying zero or more grade and assessment entries. A
// student typically accumulates many cells per course per month.
type SessionCell struct {
	ID          string         `db:"id" json:"id"`
	SchoolCode  string         `db:"school_code" json:"school_code"`
	ClassCode   string         `db:"class_code" json:"class_code"`
	StudentCode string         `db:"student_code" json:"student_code"`
	CourseCode  string         `db:"course_code" json:"course_code"`
	TeacherCode string         `db:"teacher_code" json:"teacher_code"`
	Date        time.Time      `db:"date" json:"date"`
	Grades      GradeList      `db:"grades" json:"grades"`
	Assessments AssessmentList `db:"assessments" json:"assessments"`
	CreatedAt   time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at" json:"updated_at"`
}

func scanJSON(value interface{}, dest interface{}, label string) error {
	if value == nil {
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported type %T for %s", value, label)
	}
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("unmarshal %s: %w", label, err)
	}
	return nil
}
