package engine

import (
	"github.com/madrasoft/sms-insights-api/internal/models"
	"github.com/madrasoft/sms-insights-api/pkg/jalali"
)

// MonthBuckets holds pooled grade and assessment entries per Jalali month.
// Index 0 is month 1 (Farvardin).
type MonthBuckets struct {
	Grades      [12][]models.GradeEntry
	Assessments [12][]models.AssessmentEntry
}

// FilterSchoolYear keeps only cells dated inside the school year starting at
// Jalali year startYear. Cells without a usable date are dropped.
func FilterSchoolYear(cells []models.SessionCell, startYear int) []models.SessionCell {
	kept := make([]models.SessionCell, 0, len(cells))
	for _, cell := range cells {
		if cell.Date.IsZero() {
			continue
		}
		if jalali.FromTime(cell.Date).InSchoolYear(startYear) {
			kept = append(kept, cell)
		}
	}
	return kept
}

// BucketByMonth pools the entries of all cells into per-month buckets using
// the Jalali month of each cell's date.
func BucketByMonth(cells []models.SessionCell) MonthBuckets {
	var buckets MonthBuckets
	for _, cell := range cells {
		if cell.Date.IsZero() {
			continue
		}
		m := jalali.FromTime(cell.Date).Month
		if m < 1 || m > 12 {
			continue
		}
		buckets.Grades[m-1] = append(buckets.Grades[m-1], cell.Grades...)
		buckets.Assessments[m-1] = append(buckets.Assessments[m-1], cell.Assessments...)
	}
	return buckets
}

// MonthlyScores runs the score calculation for each month bucket.
func (b MonthBuckets) MonthlyScores(weights models.WeightTable) [12]models.ScoreBreakdown {
	var scores [12]models.ScoreBreakdown
	for i := 0; i < 12; i++ {
		scores[i] = Score(b.Grades[i], b.Assessments[i], weights)
	}
	return scores
}

// CourseAverage rolls monthly scores into one course figure. With month set
// (1..12) it returns that single month's final score. Otherwise it returns
// the arithmetic mean of the months that produced a score; empty months are
// skipped entirely, never counted as zero. Nil when no month scored.
func CourseAverage(scores [12]models.ScoreBreakdown, month *int) *float64 {
	if month != nil {
		if *month < 1 || *month > 12 {
			return nil
		}
		return scores[*month-1].FinalScore
	}

	sum := 0.0
	n := 0
	for i := 0; i < 12; i++ {
		if scores[i].FinalScore == nil {
			continue
		}
		sum += *scores[i].FinalScore
		n++
	}
	if n == 0 {
		return nil
	}
	avg := sum / float64(n)
	return &avg
}
