package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/madrasoft/sms-insights-api/internal/models"
	appErrors "github.com/madrasoft/sms-insights-api/pkg/errors"
)

type mockComparisonRepos struct {
	classes      []models.ClassInfo
	enrollments  []models.StudentEnrollment
	cells        []models.SessionCell
	teacherCodes []string
	courses      []models.CourseMeta
	values       []models.AssessmentValue

	cellsFrom time.Time
	cellsTo   time.Time
}

func (m *mockComparisonRepos) ListBySchool(ctx context.Context, schoolCode string) ([]models.ClassInfo, error) {
	return m.classes, nil
}

func (m *mockComparisonRepos) ListByClassCodes(ctx context.Context, schoolCode string, classCodes []string) ([]models.StudentEnrollment, error) {
	allowed := make(map[string]bool, len(classCodes))
	for _, code := range classCodes {
		allowed[code] = true
	}
	var out []models.StudentEnrollment
	for _, e := range m.enrollments {
		if allowed[e.ClassCode] {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *mockComparisonRepos) ListByStudents(ctx context.Context, schoolCode string, studentCodes []string, from, to time.Time) ([]models.SessionCell, error) {
	m.cellsFrom, m.cellsTo = from, to
	allowed := make(map[string]bool, len(studentCodes))
	for _, code := range studentCodes {
		allowed[code] = true
	}
	var out []models.SessionCell
	for _, cell := range m.cells {
		if allowed[cell.StudentCode] {
			out = append(out, cell)
		}
	}
	return out, nil
}

func (m *mockComparisonRepos) ListTeacherCodes(ctx context.Context, schoolCode string, studentCodes []string, from, to time.Time) ([]string, error) {
	return m.teacherCodes, nil
}

type stubCacheRepo struct {
	store map[string][]byte
}

func (s *stubCacheRepo) Get(_ context.Context, key string, dest interface{}) error {
	payload, ok := s.store[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(payload, dest)
}

func (s *stubCacheRepo) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	if s.store == nil {
		s.store = make(map[string][]byte)
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	s.store[key] = payload
	return nil
}

func (s *stubCacheRepo) DeleteByPattern(_ context.Context, _ string) error {
	return nil
}

type mockCourseRepo struct{ repos *mockComparisonRepos }

func (m mockCourseRepo) ListBySchool(ctx context.Context, schoolCode string) ([]models.CourseMeta, error) {
	return m.repos.courses, nil
}

type mockAssessmentRepo struct{ repos *mockComparisonRepos }

func (m mockAssessmentRepo) ListBySchool(ctx context.Context, schoolCode string) ([]models.AssessmentValue, error) {
	return m.repos.values, nil
}

func newComparisonService(repos *mockComparisonRepos) *ComparisonService {
	svc := NewComparisonService(repos, repos, repos, mockCourseRepo{repos}, mockAssessmentRepo{repos}, nil, nil, validator.New(), zap.NewNop())
	// Pin "today" inside school year 1403 so year defaulting is stable.
	svc.now = func() time.Time { return time.Date(2024, 11, 25, 12, 0, 0, 0, time.UTC) }
	return svc
}

func comparisonRepoFixture() *mockComparisonRepos {
	mehr := time.Date(2024, 9, 26, 0, 0, 0, 0, time.UTC) // 1403-07-05
	return &mockComparisonRepos{
		classes: []models.ClassInfo{
			{ClassCode: "c1", ClassName: "Tenth A", SchoolCode: "sch-1", Grade: "10", Major: "science"},
			{ClassCode: "c2", ClassName: "Tenth B", SchoolCode: "sch-1", Grade: "10", Major: "science"},
			{ClassCode: "c3", ClassName: "Tenth H", SchoolCode: "sch-1", Grade: "10", Major: "humanities"},
		},
		enrollments: []models.StudentEnrollment{
			{StudentCode: "s1", ClassCode: "c1"},
			{StudentCode: "s2", ClassCode: "c2"},
			{StudentCode: "s3", ClassCode: "c3"},
		},
		cells: []models.SessionCell{
			{StudentCode: "s1", CourseCode: "math", TeacherCode: "t1", Date: mehr,
				Grades: models.GradeList{{Value: 18, TotalPoints: 20, Date: mehr}}},
			{StudentCode: "s2", CourseCode: "math", TeacherCode: "t1", Date: mehr,
				Grades: models.GradeList{{Value: 10, TotalPoints: 20, Date: mehr}}},
			{StudentCode: "s3", CourseCode: "lit", TeacherCode: "t2", Date: mehr,
				Grades: models.GradeList{{Value: 14, TotalPoints: 20, Date: mehr}}},
		},
		teacherCodes: []string{"t1", "t2"},
		courses: []models.CourseMeta{
			{CourseCode: "math", CourseName: "Math", Vahed: 2},
			{CourseCode: "lit", CourseName: "Literature", Vahed: 1},
		},
	}
}

func TestComparisonServiceCompare(t *testing.T) {
	repos := comparisonRepoFixture()
	svc := newComparisonService(repos)

	result, fromCache, err := svc.Compare(context.Background(), ComparisonQuery{
		SchoolCode: "sch-1", Year: 1403, Grade: "10", Major: "science",
	})
	require.NoError(t, err)
	assert.False(t, fromCache)
	require.Len(t, result.Groups, 1)
	classes := result.Groups[0].Classes
	require.Len(t, classes, 2)
	assert.Equal(t, "c1", classes[0].ClassCode)
	require.NotNil(t, classes[0].ClassAverage)
	assert.InDelta(t, 18, *classes[0].ClassAverage, 1e-9)
	assert.Equal(t, "c2", classes[1].ClassCode)

	// The humanities class must not leak into the scoped comparison.
	for _, class := range classes {
		assert.NotEqual(t, "c3", class.ClassCode)
	}
	// The cell window brackets school year 1403.
	assert.True(t, repos.cellsFrom.Year() == 2024)
	assert.True(t, repos.cellsTo.Year() == 2025)
}

func TestComparisonServiceCompareRequiresGradeAndMajor(t *testing.T) {
	svc := newComparisonService(comparisonRepoFixture())

	_, _, err := svc.Compare(context.Background(), ComparisonQuery{SchoolCode: "sch-1", Year: 1403, Grade: "10"})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrInvalidInput.Code, appErr.Code)
}

func TestComparisonServiceCompareRejectsBadMonth(t *testing.T) {
	svc := newComparisonService(comparisonRepoFixture())

	month := 13
	_, _, err := svc.Compare(context.Background(), ComparisonQuery{
		SchoolCode: "sch-1", Year: 1403, Month: &month, Grade: "10", Major: "science",
	})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestComparisonServiceCompareMissingSchool(t *testing.T) {
	svc := newComparisonService(comparisonRepoFixture())

	_, _, err := svc.Compare(context.Background(), ComparisonQuery{Year: 1403, Grade: "10", Major: "science"})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrInvalidInput.Code, appErr.Code)
}

func TestComparisonServiceYearDefault(t *testing.T) {
	repos := comparisonRepoFixture()
	svc := newComparisonService(repos)

	result, _, err := svc.Compare(context.Background(), ComparisonQuery{
		SchoolCode: "sch-1", Grade: "10", Major: "science",
	})
	require.NoError(t, err)
	// Pinned clock sits in Azar 1403, so the default school year is 1403.
	assert.Equal(t, 1403, result.SelectedYear)
}

func TestComparisonServiceCatalog(t *testing.T) {
	svc := newComparisonService(comparisonRepoFixture())

	catalog, fromCache, err := svc.Catalog(context.Background(), ComparisonQuery{SchoolCode: "sch-1", Year: 1403})
	require.NoError(t, err)
	assert.False(t, fromCache)
	require.Len(t, catalog.Combinations, 2)
	assert.Equal(t, "humanities", catalog.Combinations[0].Major)
	assert.Equal(t, []string{"lit"}, catalog.Combinations[0].Courses)
	assert.Equal(t, "science", catalog.Combinations[1].Major)
	assert.Equal(t, []string{"c1", "c2"}, catalog.Combinations[1].Classes)
}

func TestComparisonServiceCacheRoundTrip(t *testing.T) {
	repos := comparisonRepoFixture()
	cache := NewCacheService(&stubCacheRepo{}, nil, time.Minute, zap.NewNop(), true)
	svc := NewComparisonService(repos, repos, repos, mockCourseRepo{repos}, mockAssessmentRepo{repos}, cache, nil, validator.New(), zap.NewNop())
	svc.now = func() time.Time { return time.Date(2024, 11, 25, 12, 0, 0, 0, time.UTC) }

	query := ComparisonQuery{SchoolCode: "sch-1", Year: 1403, Grade: "10", Major: "science"}
	first, fromCache, err := svc.Compare(context.Background(), query)
	require.NoError(t, err)
	assert.False(t, fromCache)

	second, fromCache, err := svc.Compare(context.Background(), query)
	require.NoError(t, err)
	assert.True(t, fromCache)
	assert.Equal(t, first.SelectedYear, second.SelectedYear)
	require.Len(t, second.Groups, 1)
	assert.Len(t, second.Groups[0].Classes, 2)
}
