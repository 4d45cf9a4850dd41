package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/madrasoft/sms-insights-api/internal/models"
)

func TestOverallAverageCreditWeighted(t *testing.T) {
	courses := []models.CourseAverage{
		{CourseCode: "a", Average: fptr(15), Vahed: 2},
		{CourseCode: "b", Average: fptr(10), Vahed: 1},
	}
	overall := OverallAverage(courses, "")
	require.NotNil(t, overall)
	assert.InDelta(t, 13.33, *overall, 1e-9)
}

func TestOverallAverageSkipsNilCourses(t *testing.T) {
	courses := []models.CourseAverage{
		{CourseCode: "a", Average: fptr(12), Vahed: 3},
		{CourseCode: "b", Average: nil, Vahed: 4},
	}
	overall := OverallAverage(courses, "")
	require.NotNil(t, overall)
	assert.InDelta(t, 12, *overall, 1e-9)
}

func TestOverallAverageInvalidVahedCountsAsOne(t *testing.T) {
	courses := []models.CourseAverage{
		{CourseCode: "a", Average: fptr(16), Vahed: 0},
		{CourseCode: "b", Average: fptr(10), Vahed: -2},
	}
	overall := OverallAverage(courses, "")
	require.NotNil(t, overall)
	assert.InDelta(t, 13, *overall, 1e-9)
}

func TestOverallAverageRestrictToCourse(t *testing.T) {
	courses := []models.CourseAverage{
		{CourseCode: "a", Average: fptr(15), Vahed: 2},
		{CourseCode: "b", Average: fptr(10), Vahed: 1},
	}
	overall := OverallAverage(courses, "b")
	require.NotNil(t, overall)
	// Restriction bypasses the weighting entirely.
	assert.InDelta(t, 10, *overall, 1e-9)

	assert.Nil(t, OverallAverage(courses, "missing"))
}

func TestOverallAverageEmpty(t *testing.T) {
	assert.Nil(t, OverallAverage(nil, ""))
	assert.Nil(t, OverallAverage([]models.CourseAverage{{CourseCode: "a"}}, ""))
}

func TestOverallAverageRoundsToTwoDecimals(t *testing.T) {
	courses := []models.CourseAverage{
		{CourseCode: "a", Average: fptr(10), Vahed: 1},
		{CourseCode: "b", Average: fptr(10), Vahed: 1},
		{CourseCode: "c", Average: fptr(11), Vahed: 1},
	}
	overall := OverallAverage(courses, "")
	require.NotNil(t, overall)
	assert.Equal(t, 10.33, *overall)
}

func TestMonthlyOverallSeries(t *testing.T) {
	perCourse := map[string][12]*float64{
		"a": {0: fptr(15), 4: fptr(18)},
		"b": {0: fptr(10)},
	}
	vahed := map[string]int{"a": 2, "b": 1}
	series := MonthlyOverallSeries(perCourse, vahed)

	require.NotNil(t, series[0])
	assert.InDelta(t, 13.33, *series[0], 1e-9)
	require.NotNil(t, series[4])
	assert.InDelta(t, 18, *series[4], 1e-9)
	for m := 1; m < 12; m++ {
		if m == 4 {
			continue
		}
		assert.Nil(t, series[m], "month %d", m+1)
	}
}
