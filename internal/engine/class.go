package engine

import "github.com/madrasoft/sms-insights-api/internal/models"

// ClassStatsOf averages the student overalls of one class. Students without
// a score are excluded from the mean but still counted in TotalStudents;
// StudentsWithGrades records the actual denominator. In full-year mode
// (withMonthly true) a per-month class series is produced the same way from
// each student's monthly series.
func ClassStatsOf(info models.ClassInfo, students []models.StudentOverall, withMonthly bool) models.ClassStats {
	stats := models.ClassStats{
		ClassCode:     info.ClassCode,
		ClassName:     info.ClassName,
		TotalStudents: len(students),
	}
	if stats.ClassName == "" {
		stats.ClassName = info.ClassCode
	}

	sum := 0.0
	for _, s := range students {
		if s.Overall == nil {
			continue
		}
		sum += *s.Overall
		stats.StudentsWithGrades++
	}
	if stats.StudentsWithGrades > 0 {
		avg := sum / float64(stats.StudentsWithGrades)
		stats.ClassAverage = &avg
	}

	if withMonthly {
		var monthly [12]*float64
		for m := 0; m < 12; m++ {
			monthSum := 0.0
			n := 0
			for _, s := range students {
				if s.Monthly == nil || s.Monthly[m] == nil {
					continue
				}
				monthSum += *s.Monthly[m]
				n++
			}
			if n > 0 {
				v := monthSum / float64(n)
				monthly[m] = &v
			}
		}
		stats.MonthlyAverages = &monthly
	}

	return stats
}
