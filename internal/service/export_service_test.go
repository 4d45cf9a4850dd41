package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/madrasoft/sms-insights-api/internal/models"
	"github.com/madrasoft/sms-insights-api/pkg/storage"
)

type stubComparisonSource struct {
	result models.ComparisonResult
	err    error
	query  ComparisonQuery
}

func (s *stubComparisonSource) Compare(ctx context.Context, query ComparisonQuery) (*models.ComparisonResult, bool, error) {
	s.query = query
	if s.err != nil {
		return nil, false, s.err
	}
	return &s.result, false, nil
}

func comparisonResultFixture() models.ComparisonResult {
	avg1 := 16.5
	avg2 := 11.25
	return models.ComparisonResult{
		SelectedYear: 1403,
		Groups: []models.ComparisonGroup{{
			Grade: "10",
			Major: "science",
			Classes: []models.ClassStats{
				{ClassCode: "c1", ClassName: "Tenth A", TotalStudents: 25, StudentsWithGrades: 24, ClassAverage: &avg1},
				{ClassCode: "c2", ClassName: "Tenth B", TotalStudents: 22, StudentsWithGrades: 20, ClassAverage: &avg2},
				{ClassCode: "c3", ClassName: "Tenth C", TotalStudents: 18, StudentsWithGrades: 0},
			},
		}},
	}
}

func newExportService(t *testing.T, source comparisonSource) *ExportService {
	t.Helper()
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	signer := storage.NewSignedURLSigner("test-secret", time.Hour)
	return NewExportService(source, store, signer, ExportConfig{APIPrefix: "/api/v1"}, zap.NewNop(), nil, nil)
}

func TestExportServiceGenerateCSV(t *testing.T) {
	source := &stubComparisonSource{result: comparisonResultFixture()}
	svc := newExportService(t, source)

	job := &models.ReportJob{
		ID:         "job-1",
		SchoolCode: "sch-1",
		Type:       models.ReportTypeClassesComparison,
		Params:     models.ReportJobParams{Year: 1403, Grade: "10", Major: "science", Format: models.ReportFormatCSV},
	}
	result, err := svc.Generate(context.Background(), job)
	require.NoError(t, err)
	assert.Equal(t, "sch-1", source.query.SchoolCode)
	assert.Equal(t, "10", source.query.Grade)
	assert.True(t, strings.HasPrefix(result.URL, "/api/v1/insights/reports/download/"))
	assert.Equal(t, models.ReportFormatCSV, result.Format)

	file, err := svc.Open(result.RelativePath)
	require.NoError(t, err)
	defer file.Close()
	buf := make([]byte, 4096)
	n, _ := file.Read(buf)
	content := string(buf[:n])
	assert.Contains(t, content, "Class Average")
	assert.Contains(t, content, "16.50")
	assert.Contains(t, content, "B")
	assert.Contains(t, content, "11.25")
}

func TestExportServiceGeneratePDF(t *testing.T) {
	source := &stubComparisonSource{result: comparisonResultFixture()}
	svc := newExportService(t, source)

	job := &models.ReportJob{
		ID:         "job-2",
		SchoolCode: "sch-1",
		Type:       models.ReportTypeClassesComparison,
		Params:     models.ReportJobParams{Year: 1403, Grade: "10", Major: "science", Format: models.ReportFormatPDF},
	}
	result, err := svc.Generate(context.Background(), job)
	require.NoError(t, err)

	file, err := svc.Open(result.RelativePath)
	require.NoError(t, err)
	defer file.Close()
	header := make([]byte, 4)
	_, err = file.Read(header)
	require.NoError(t, err)
	assert.Equal(t, "%PDF", string(header))
}

func TestExportServiceRejectsUnknownType(t *testing.T) {
	svc := newExportService(t, &stubComparisonSource{result: comparisonResultFixture()})

	_, err := svc.Generate(context.Background(), &models.ReportJob{ID: "job-3", Type: models.ReportType("other")})
	require.Error(t, err)
}

func TestLetterGrade(t *testing.T) {
	grade := func(v float64) string { return letterGrade(&v) }
	assert.Equal(t, "A", grade(19))
	assert.Equal(t, "A", grade(18))
	assert.Equal(t, "B", grade(16.5))
	assert.Equal(t, "C", grade(12))
	assert.Equal(t, "D", grade(10.5))
	assert.Equal(t, "E", grade(4))
	assert.Equal(t, "", letterGrade(nil))
}
