package engine

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/madrasoft/sms-insights-api/internal/models"
)

func sptr(s string) *string { return &s }

func TestResolveWeightsFallbackOnly(t *testing.T) {
	table := ResolveWeights(nil, nil)
	assert.Equal(t, FallbackWeights(), table)
}

func TestResolveWeightsGlobalOverlaysFallback(t *testing.T) {
	rows := []models.AssessmentValue{
		{Label: LabelExcellent, Weight: 3, IsGlobal: true},
		{Label: "ممتاز", Weight: 2.5, IsGlobal: true},
	}
	table := ResolveWeights(rows, nil)
	assert.Equal(t, 3.0, table[LabelExcellent])
	assert.Equal(t, 2.5, table["ممتاز"])
	// Untouched fallback entries survive.
	assert.Equal(t, -2.0, table[LabelVeryWeak])
}

func TestResolveWeightsTeacherWinsOverGlobal(t *testing.T) {
	rows := []models.AssessmentValue{
		{Label: LabelGood, Weight: 1.5, IsGlobal: true},
		{Label: LabelGood, Weight: 0.5, TeacherCode: sptr("t1")},
		{Label: LabelWeak, Weight: -3, TeacherCode: sptr("t2")},
	}
	table := ResolveWeights(rows, []string{"t1"})
	assert.Equal(t, 0.5, table[LabelGood])
	// t2 is not in scope, its override does not apply.
	assert.Equal(t, -1.0, table[LabelWeak])
}

func TestResolveWeightsIgnoresNonFinite(t *testing.T) {
	rows := []models.AssessmentValue{
		{Label: LabelExcellent, Weight: math.NaN(), IsGlobal: true},
		{Label: LabelGood, Weight: math.Inf(1), IsGlobal: true},
	}
	table := ResolveWeights(rows, nil)
	assert.Equal(t, 2.0, table[LabelExcellent])
	assert.Equal(t, 1.0, table[LabelGood])
}
