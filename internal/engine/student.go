package engine

import (
	"math"

	"github.com/madrasoft/sms-insights-api/internal/models"
)

// OverallAverage combines per-course averages into one student figure using
// a vahed-weighted mean over courses that have a score, rounded to two
// decimals. With restrictToCourse set, that course's average is returned
// directly, unweighted. Nil when nothing scored.
func OverallAverage(courses []models.CourseAverage, restrictToCourse string) *float64 {
	if restrictToCourse != "" {
		for _, c := range courses {
			if c.CourseCode == restrictToCourse {
				return c.Average
			}
		}
		return nil
	}

	weightedSum := 0.0
	totalWeight := 0.0
	for _, c := range courses {
		if c.Average == nil {
			continue
		}
		vahed := float64(normalizeVahed(c.Vahed))
		weightedSum += *c.Average * vahed
		totalWeight += vahed
	}
	if totalWeight == 0 {
		return nil
	}
	overall := round2(weightedSum / totalWeight)
	return &overall
}

// MonthlyOverallSeries applies the vahed-weighted mean independently for
// each month, producing the 12-point series behind class trend lines.
// perCourseMonthly maps course code to that course's monthly final scores.
func MonthlyOverallSeries(perCourseMonthly map[string][12]*float64, vahed map[string]int) [12]*float64 {
	var series [12]*float64
	for m := 0; m < 12; m++ {
		weightedSum := 0.0
		totalWeight := 0.0
		for code, months := range perCourseMonthly {
			if months[m] == nil {
				continue
			}
			w := float64(normalizeVahed(vahed[code]))
			weightedSum += *months[m] * w
			totalWeight += w
		}
		if totalWeight == 0 {
			continue
		}
		v := round2(weightedSum / totalWeight)
		series[m] = &v
	}
	return series
}

// normalizeVahed coerces a stored credit weight into a usable one; missing
// or invalid values count as a single credit.
func normalizeVahed(v int) int {
	if v <= 0 {
		return 1
	}
	return v
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
