package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/madrasoft/sms-insights-api/internal/middleware"
	"github.com/madrasoft/sms-insights-api/internal/models"
	"github.com/madrasoft/sms-insights-api/internal/service"
)

type fakeComparisonSrv struct {
	compareResp *models.ComparisonResult
	compareErr  error
	compareHit  bool
	catalogResp *models.Catalog
	catalogErr  error
	lastQuery   service.ComparisonQuery
	catalogUsed bool
}

func (f *fakeComparisonSrv) Compare(_ context.Context, query service.ComparisonQuery) (*models.ComparisonResult, bool, error) {
	f.lastQuery = query
	return f.compareResp, f.compareHit, f.compareErr
}

func (f *fakeComparisonSrv) Catalog(_ context.Context, query service.ComparisonQuery) (*models.Catalog, bool, error) {
	f.lastQuery = query
	f.catalogUsed = true
	return f.catalogResp, false, f.catalogErr
}

func insightsTestContext(t *testing.T, target string) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, target, nil)
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "u-1", SchoolCode: "sch-1", Username: "admin"})
	return c, rec
}

func TestClassesComparisonRequiresAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewInsightsHandler(&fakeComparisonSrv{}, nil)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/insights/classes-comparison", nil)

	h.ClassesComparison(c)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestClassesComparisonFullMode(t *testing.T) {
	avg := 16.5
	fake := &fakeComparisonSrv{
		compareResp: &models.ComparisonResult{
			SelectedYear: 1403,
			Groups: []models.ComparisonGroup{{
				Grade: "10",
				Major: "science",
				Classes: []models.ClassStats{
					{ClassCode: "c1", ClassAverage: &avg},
				},
			}},
		},
		compareHit: true,
	}
	h := NewInsightsHandler(fake, nil)

	c, rec := insightsTestContext(t, "/insights/classes-comparison?year=1403&month=9&grade=10&major=science&courseCode=math")
	h.ClassesComparison(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, fake.catalogUsed)
	assert.Equal(t, "sch-1", fake.lastQuery.SchoolCode)
	assert.Equal(t, 1403, fake.lastQuery.Year)
	if assert.NotNil(t, fake.lastQuery.Month) {
		assert.Equal(t, 9, *fake.lastQuery.Month)
	}
	assert.Equal(t, "math", fake.lastQuery.CourseCode)

	var envelope responseEnvelope
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, true, envelope.Meta["cache_hit"])
	assert.Contains(t, envelope.Meta, "processing_time_ms")
}

func TestClassesComparisonCatalogMode(t *testing.T) {
	fake := &fakeComparisonSrv{
		catalogResp: &models.Catalog{
			SelectedYear: 1403,
			Combinations: []models.CatalogEntry{
				{Grade: "10", Major: "science", Classes: []string{"c1"}},
			},
		},
	}
	h := NewInsightsHandler(fake, nil)

	c, rec := insightsTestContext(t, "/insights/classes-comparison")
	h.ClassesComparison(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, fake.catalogUsed)
}

func TestClassesComparisonRejectsBadYear(t *testing.T) {
	fake := &fakeComparisonSrv{}
	h := NewInsightsHandler(fake, nil)

	c, rec := insightsTestContext(t, "/insights/classes-comparison?year=abc")
	h.ClassesComparison(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, fake.catalogUsed)
}

type fakeInvalidator struct {
	flushed []string
}

func (f *fakeInvalidator) InvalidateSchool(_ context.Context, schoolCode string) error {
	f.flushed = append(f.flushed, schoolCode)
	return nil
}

func TestFlushCacheUsesTokenSchool(t *testing.T) {
	inv := &fakeInvalidator{}
	h := NewInsightsHandler(&fakeComparisonSrv{}, inv)

	c, rec := insightsTestContext(t, "/insights/cache")
	c.Request.Method = http.MethodDelete
	h.FlushCache(c)
	c.Writer.WriteHeaderNow()

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, []string{"sch-1"}, inv.flushed)
}

type responseEnvelope struct {
	Data map[string]interface{} `json:"data"`
	Meta map[string]interface{} `json:"meta"`
}
