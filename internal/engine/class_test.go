package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/madrasoft/sms-insights-api/internal/models"
)

func TestClassStatsOf(t *testing.T) {
	info := models.ClassInfo{ClassCode: "c1", ClassName: "Tenth A"}
	students := []models.StudentOverall{
		{StudentCode: "s1", Overall: fptr(14)},
		{StudentCode: "s2", Overall: fptr(18)},
		{StudentCode: "s3"}, // no grades yet
	}
	stats := ClassStatsOf(info, students, false)

	assert.Equal(t, 3, stats.TotalStudents)
	assert.Equal(t, 2, stats.StudentsWithGrades)
	require.NotNil(t, stats.ClassAverage)
	assert.InDelta(t, 16, *stats.ClassAverage, 1e-9)
	assert.Nil(t, stats.MonthlyAverages)
}

func TestClassStatsOfNoGrades(t *testing.T) {
	stats := ClassStatsOf(models.ClassInfo{ClassCode: "c1"}, []models.StudentOverall{{StudentCode: "s1"}}, false)
	assert.Equal(t, 1, stats.TotalStudents)
	assert.Zero(t, stats.StudentsWithGrades)
	assert.Nil(t, stats.ClassAverage)
	// Class name falls back to the code when metadata has none.
	assert.Equal(t, "c1", stats.ClassName)
}

func TestClassStatsOfMonthlySeries(t *testing.T) {
	s1 := [12]*float64{0: fptr(10), 1: fptr(12)}
	s2 := [12]*float64{1: fptr(16)}
	students := []models.StudentOverall{
		{StudentCode: "s1", Overall: fptr(11), Monthly: &s1},
		{StudentCode: "s2", Overall: fptr(16), Monthly: &s2},
	}
	stats := ClassStatsOf(models.ClassInfo{ClassCode: "c1"}, students, true)

	require.NotNil(t, stats.MonthlyAverages)
	require.NotNil(t, stats.MonthlyAverages[0])
	// Month 1: only s1 has data; s2 is skipped, not zeroed.
	assert.InDelta(t, 10, *stats.MonthlyAverages[0], 1e-9)
	require.NotNil(t, stats.MonthlyAverages[1])
	assert.InDelta(t, 14, *stats.MonthlyAverages[1], 1e-9)
	assert.Nil(t, stats.MonthlyAverages[2])
}
