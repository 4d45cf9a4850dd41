package engine

import "github.com/madrasoft/sms-insights-api/internal/models"

const (
	// ScaleMax is the base scale every score normalizes to.
	ScaleMax = 20
	// DefaultTotalPoints is assumed when a grade row carries no denominator.
	DefaultTotalPoints = 20
)

// Score computes the final score for one course, one student, one time
// bucket. The base grade pools achieved over possible points across all
// entries and normalizes to the 20-point scale; it is not an average of
// per-entry percentages. The assessment adjustment is added on top and the
// result clamped to [0, 20].
//
// With no usable grade entries both FinalScore and BaseGrade are nil while
// the adjustment is still computed, since assessments alone never produce a
// score. Malformed rows (negative denominators, non-finite numbers) are
// excluded rather than failing the whole bucket.
func Score(grades []models.GradeEntry, assessments []models.AssessmentEntry, weights models.WeightTable) models.ScoreBreakdown {
	adjustment := adjustmentOf(assessments, weights)

	var achieved, possible float64
	usable := 0
	for _, g := range grades {
		if !finite(g.Value) || !finite(g.TotalPoints) || g.TotalPoints < 0 {
			continue
		}
		total := g.TotalPoints
		if total == 0 {
			total = DefaultTotalPoints
		}
		achieved += g.Value
		possible += total
		usable++
	}

	if usable == 0 {
		return models.ScoreBreakdown{AssessmentAdjustment: adjustment}
	}

	base := 0.0
	if possible > 0 {
		base = achieved / possible * ScaleMax
	}

	final := base + adjustment
	if final > ScaleMax {
		final = ScaleMax
	}
	if final < 0 {
		final = 0
	}

	return models.ScoreBreakdown{
		FinalScore:           &final,
		BaseGrade:            &base,
		AssessmentAdjustment: adjustment,
	}
}

func adjustmentOf(assessments []models.AssessmentEntry, weights models.WeightTable) float64 {
	total := 0.0
	for _, a := range assessments {
		switch {
		case a.Weight != nil && finite(*a.Weight):
			total += *a.Weight
		case weights != nil:
			if w, ok := weights[a.Label]; ok {
				total += w
				continue
			}
			total += FallbackWeights()[a.Label]
		default:
			total += FallbackWeights()[a.Label]
		}
	}
	return total
}
