// Package engine implements the grade aggregation and class-comparison
// core. Every function is pure: inputs are already-fetched domain values,
// outputs are derived aggregates, and nothing is cached or mutated between
// calls, so the package is safe for any number of concurrent callers.
package engine

import (
	"math"

	"github.com/madrasoft/sms-insights-api/internal/models"
)

// Canonical assessment labels and their default weights. Schools and
// teachers override these through assessment value rows.
const (
	LabelExcellent = "عالی"
	LabelGood      = "خوب"
	LabelAverage   = "متوسط"
	LabelWeak      = "ضعیف"
	LabelVeryWeak  = "بسیار ضعیف"
)

// FallbackWeights returns the hardcoded default weight table.
func FallbackWeights() models.WeightTable {
	return models.WeightTable{
		LabelExcellent: 2,
		LabelGood:      1,
		LabelAverage:   0,
		LabelWeak:      -1,
		LabelVeryWeak:  -2,
	}
}

// ResolveWeights flattens the weight sources for one course into a single
// table. Precedence, lowest to highest: hardcoded fallback, school-global
// rows, rows belonging to any teacher in teacherCodes. Rows with
// non-finite weights are treated as absent.
func ResolveWeights(rows []models.AssessmentValue, teacherCodes []string) models.WeightTable {
	table := FallbackWeights()

	teachers := make(map[string]bool, len(teacherCodes))
	for _, code := range teacherCodes {
		teachers[code] = true
	}

	for _, row := range rows {
		if !row.IsGlobal || row.Label == "" || !finite(row.Weight) {
			continue
		}
		table[row.Label] = row.Weight
	}
	for _, row := range rows {
		if row.IsGlobal || row.TeacherCode == nil || row.Label == "" || !finite(row.Weight) {
			continue
		}
		if teachers[*row.TeacherCode] {
			table[row.Label] = row.Weight
		}
	}

	return table
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
