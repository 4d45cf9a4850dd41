package models

// WeightTable maps an assessment label to its signed numeric weight.
type WeightTable map[string]float64

// ScoreBreakdown is the result of scoring one course for one student in one
// time bucket. FinalScore and BaseGrade are nil when the bucket holds no
// grade entries; AssessmentAdjustment is reported regardless so callers can
// surface it next to an absent numeric grade.
type ScoreBreakdown struct {
	FinalScore           *float64 `json:"final_score"`
	BaseGrade            *float64 `json:"base_grade"`
	AssessmentAdjustment float64  `json:"assessment_adjustment"`
}

// CourseAverage is a per-course rollup for one student.
type CourseAverage struct {
	CourseCode string   `json:"course_code"`
	Average    *float64 `json:"average"`
	Vahed      int      `json:"vahed"`
}

// StudentOverall is one student's aggregate across courses. Monthly is only
// populated in full-year mode and holds the month-indexed (1..12) overall
// series used for trend lines; months without data stay nil.
type StudentOverall struct {
	StudentCode string        `json:"student_code"`
	Overall     *float64      `json:"overall"`
	Monthly     *[12]*float64 `json:"monthly,omitempty"`
}

// ClassStats summarises one class for comparison. StudentsWithGrades counts
// only students contributing a non-nil overall so consumers can see the real
// denominator behind ClassAverage.
type ClassStats struct {
	ClassCode          string        `json:"classCode"`
	ClassName          string        `json:"className"`
	TotalStudents      int           `json:"totalStudents"`
	StudentsWithGrades int           `json:"studentsWithGrades"`
	ClassAverage       *float64      `json:"classAverage"`
	MonthlyAverages    *[12]*float64 `json:"monthlyAverages,omitempty"`
}

// ComparisonGroup holds the ranked classes for one (grade, major)
// combination. Classes is empty, not absent, for known combinations without
// usable data.
type ComparisonGroup struct {
	Grade   string       `json:"grade"`
	Major   string       `json:"major"`
	Classes []ClassStats `json:"classes"`
}

// ComparisonResult is the full statistics payload.
type ComparisonResult struct {
	Groups        []ComparisonGroup `json:"comparisonGroups"`
	SelectedYear  int               `json:"selectedYear"`
	SelectedMonth *int              `json:"selectedMonth"`
}

// CatalogEntry describes one known (grade, major) combination and the
// courses with recorded data, returned by the lightweight catalog mode.
type CatalogEntry struct {
	Grade   string   `json:"grade"`
	Major   string   `json:"major"`
	Classes []string `json:"classes"`
	Courses []string `json:"courses"`
}

// Catalog is the lightweight response when no grade/major filter is given.
type Catalog struct {
	Combinations  []CatalogEntry `json:"combinations"`
	SelectedYear  int            `json:"selectedYear"`
	SelectedMonth *int           `json:"selectedMonth"`
}
