package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/madrasoft/sms-insights-api/internal/engine"
	"github.com/madrasoft/sms-insights-api/internal/models"
	appErrors "github.com/madrasoft/sms-insights-api/pkg/errors"
	"github.com/madrasoft/sms-insights-api/pkg/jalali"
)

type comparisonClassRepository interface {
	ListBySchool(ctx context.Context, schoolCode string) ([]models.ClassInfo, error)
}

type comparisonEnrollmentRepository interface {
	ListByClassCodes(ctx context.Context, schoolCode string, classCodes []string) ([]models.StudentEnrollment, error)
}

type comparisonSheetRepository interface {
	ListByStudents(ctx context.Context, schoolCode string, studentCodes []string, from, to time.Time) ([]models.SessionCell, error)
	ListTeacherCodes(ctx context.Context, schoolCode string, studentCodes []string, from, to time.Time) ([]string, error)
}

type comparisonCourseRepository interface {
	ListBySchool(ctx context.Context, schoolCode string) ([]models.CourseMeta, error)
}

type comparisonAssessmentRepository interface {
	ListBySchool(ctx context.Context, schoolCode string) ([]models.AssessmentValue, error)
}

// ComparisonQuery is the caller-supplied selection for one comparison call.
// SchoolCode always comes from the access token, never from request input.
type ComparisonQuery struct {
	SchoolCode string `validate:"required"`
	Year       int    `validate:"omitempty,gte=1300,lte=1500"`
	Month      *int   `validate:"omitempty,gte=1,lte=12"`
	Grade      string
	Major      string
	CourseCode string
}

// ComparisonService orchestrates repositories and the aggregation engine to
// answer class-comparison queries, with read-through caching.
type ComparisonService struct {
	classes     comparisonClassRepository
	enrollments comparisonEnrollmentRepository
	sheets      comparisonSheetRepository
	courses     comparisonCourseRepository
	assessments comparisonAssessmentRepository
	cache       *CacheService
	metrics     *MetricsService
	validator   *validator.Validate
	logger      *zap.Logger
	now         func() time.Time
}

// NewComparisonService constructs a ComparisonService.
func NewComparisonService(
	classes comparisonClassRepository,
	enrollments comparisonEnrollmentRepository,
	sheets comparisonSheetRepository,
	courses comparisonCourseRepository,
	assessments comparisonAssessmentRepository,
	cache *CacheService,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
) *ComparisonService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ComparisonService{
		classes:     classes,
		enrollments: enrollments,
		sheets:      sheets,
		courses:     courses,
		assessments: assessments,
		cache:       cache,
		metrics:     metrics,
		validator:   validate,
		logger:      logger,
		now:         time.Now,
	}
}

// Compare returns the full comparison statistics for the query's (grade,
// major) scope. The boolean reports whether the payload came from cache.
func (s *ComparisonService) Compare(ctx context.Context, query ComparisonQuery) (*models.ComparisonResult, bool, error) {
	if err := s.normalize(&query); err != nil {
		return nil, false, err
	}
	if query.Grade == "" || query.Major == "" {
		return nil, false, appErrors.Clone(appErrors.ErrInvalidInput, "grade and major are required for comparison mode")
	}

	cacheKey := s.cacheKey("compare", query)
	var cached models.ComparisonResult
	if s.cache != nil {
		if hit, err := s.cache.Get(ctx, cacheKey, &cached); err == nil && hit {
			return &cached, true, nil
		}
	}

	in, err := s.loadInput(ctx, query)
	if err != nil {
		return nil, false, err
	}
	result := engine.Compare(*in)

	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, result, 0); err != nil {
			s.logger.Warn("cache comparison", zap.Error(err))
		}
	}
	return &result, false, nil
}

// Catalog returns the lightweight list of known (grade, major) combinations
// with their classes and courses carrying data in the selected year.
func (s *ComparisonService) Catalog(ctx context.Context, query ComparisonQuery) (*models.Catalog, bool, error) {
	if err := s.normalize(&query); err != nil {
		return nil, false, err
	}

	cacheKey := s.cacheKey("catalog", query)
	var cached models.Catalog
	if s.cache != nil {
		if hit, err := s.cache.Get(ctx, cacheKey, &cached); err == nil && hit {
			return &cached, true, nil
		}
	}

	start := s.now()
	classes, err := s.classes.ListBySchool(ctx, query.SchoolCode)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load classes")
	}
	classCodes := make([]string, 0, len(classes))
	for _, class := range classes {
		classCodes = append(classCodes, class.ClassCode)
	}
	enrollments, err := s.enrollments.ListByClassCodes(ctx, query.SchoolCode, classCodes)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollments")
	}
	from, to := jalali.SchoolYearWindow(query.Year)
	cells, err := s.sheets.ListByStudents(ctx, query.SchoolCode, studentCodesOf(enrollments), from, to)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session cells")
	}
	if s.metrics != nil {
		s.metrics.ObserveDBQuery("insights_catalog", time.Since(start))
	}

	catalog := engine.BuildCatalog(classes, enrollments, cells, query.Year, query.Month)
	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, catalog, 0); err != nil {
			s.logger.Warn("cache catalog", zap.Error(err))
		}
	}
	return &catalog, false, nil
}

// loadInput gathers everything the engine needs for one comparison call.
func (s *ComparisonService) loadInput(ctx context.Context, query ComparisonQuery) (*engine.Input, error) {
	start := s.now()

	allClasses, err := s.classes.ListBySchool(ctx, query.SchoolCode)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load classes")
	}

	scoped := make([]models.ClassInfo, 0, len(allClasses))
	for _, class := range allClasses {
		if class.Grade == query.Grade && class.Major == query.Major {
			scoped = append(scoped, class)
		}
	}
	classCodes := make([]string, 0, len(scoped))
	for _, class := range scoped {
		classCodes = append(classCodes, class.ClassCode)
	}

	enrollments, err := s.enrollments.ListByClassCodes(ctx, query.SchoolCode, classCodes)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollments")
	}
	studentCodes := studentCodesOf(enrollments)

	from, to := jalali.SchoolYearWindow(query.Year)
	cells, err := s.sheets.ListByStudents(ctx, query.SchoolCode, studentCodes, from, to)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session cells")
	}

	teacherCodes, err := s.sheets.ListTeacherCodes(ctx, query.SchoolCode, studentCodes, from, to)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher codes")
	}

	courses, err := s.courses.ListBySchool(ctx, query.SchoolCode)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load courses")
	}
	vahed := make(map[string]int, len(courses))
	for _, course := range courses {
		vahed[course.CourseCode] = course.Vahed
	}

	values, err := s.assessments.ListBySchool(ctx, query.SchoolCode)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assessment values")
	}
	table := engine.ResolveWeights(values, teacherCodes)
	weights := make(map[string]models.WeightTable, len(courses))
	for _, course := range courses {
		weights[course.CourseCode] = table
	}

	if s.metrics != nil {
		s.metrics.ObserveDBQuery("insights_compare", time.Since(start))
	}

	return &engine.Input{
		Classes:     scoped,
		KnownCombos: []engine.GradeMajor{{Grade: query.Grade, Major: query.Major}},
		Enrollments: enrollments,
		Cells:       cells,
		Weights:     weights,
		Vahed:       vahed,
		Year:        query.Year,
		Month:       query.Month,
		CourseCode:  query.CourseCode,
	}, nil
}

// normalize validates the query and fills the year default, the school year
// containing today.
func (s *ComparisonService) normalize(query *ComparisonQuery) error {
	if query.SchoolCode == "" {
		return appErrors.Clone(appErrors.ErrInvalidInput, "school code is required")
	}
	if query.Year == 0 {
		query.Year = jalali.FromTime(s.now()).SchoolYear()
	}
	if err := s.validator.Struct(query); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid comparison selection")
	}
	return nil
}

func (s *ComparisonService) cacheKey(mode string, query ComparisonQuery) string {
	parts := []string{
		"insights", mode, query.SchoolCode, strconv.Itoa(query.Year),
	}
	if query.Month != nil {
		parts = append(parts, fmt.Sprintf("m%d", *query.Month))
	}
	if query.Grade != "" {
		parts = append(parts, "g"+query.Grade)
	}
	if query.Major != "" {
		parts = append(parts, "mj"+query.Major)
	}
	if query.CourseCode != "" {
		parts = append(parts, "c"+query.CourseCode)
	}
	return strings.Join(parts, ":")
}

func studentCodesOf(enrollments []models.StudentEnrollment) []string {
	seen := make(map[string]bool, len(enrollments))
	codes := make([]string, 0, len(enrollments))
	for _, e := range enrollments {
		if e.StudentCode == "" || seen[e.StudentCode] {
			continue
		}
		seen[e.StudentCode] = true
		codes = append(codes, e.StudentCode)
	}
	return codes
}
