package models

import "time"

// ClassInfo is the class metadata the comparison endpoints group by.
type ClassInfo struct {
	ClassCode  string    `db:"class_code" json:"class_code"`
	ClassName  string    `db:"class_name" json:"class_name"`
	SchoolCode string    `db:"school_code" json:"-"`
	Grade      string    `db:"grade" json:"grade"`
	Major      string    `db:"major" json:"major"`
	CreatedAt  time.Time `db:"created_at" json:"-"`
}

// StudentEnrollment links a student to one of their classes.
type StudentEnrollment struct {
	StudentCode string `db:"student_code" json:"student_code"`
	ClassCode   string `db:"class_code" json:"class_code"`
}

// CourseMeta carries the credit weight (vahed) used when averaging a
// student's courses into one overall figure.
type CourseMeta struct {
	CourseCode string `db:"course_code" json:"course_code"`
	CourseName string `db:"course_name" json:"course_name"`
	SchoolCode string `db:"school_code" json:"-"`
	Vahed      int    `db:"vahed" json:"vahed"`
}

// AssessmentValue is one label-to-weight row of the configurable weight
// tables. Rows with IsGlobal true apply school-wide; rows carrying a teacher
// code override the global row for that teacher's cells.
type AssessmentValue struct {
	ID          string    `db:"id" json:"id"`
	SchoolCode  string    `db:"school_code" json:"school_code"`
	TeacherCode *string   `db:"teacher_code" json:"teacher_code,omitempty"`
	Label       string    `db:"label" json:"label"`
	Weight      float64   `db:"weight" json:"weight"`
	IsGlobal    bool      `db:"is_global" json:"is_global"`
	CreatedAt   time.Time `db:"created_at" json:"-"`
}
