package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/madrasoft/sms-insights-api/internal/middleware"
	"github.com/madrasoft/sms-insights-api/internal/models"
	"github.com/madrasoft/sms-insights-api/internal/service"
	appErrors "github.com/madrasoft/sms-insights-api/pkg/errors"
	"github.com/madrasoft/sms-insights-api/pkg/response"
)

type comparisonProvider interface {
	Compare(ctx context.Context, query service.ComparisonQuery) (*models.ComparisonResult, bool, error)
	Catalog(ctx context.Context, query service.ComparisonQuery) (*models.Catalog, bool, error)
}

type cacheInvalidator interface {
	InvalidateSchool(ctx context.Context, schoolCode string) error
}

// InsightsHandler exposes the class-comparison endpoints.
type InsightsHandler struct {
	comparison comparisonProvider
	cache      cacheInvalidator
}

// NewInsightsHandler constructs the insights handler.
func NewInsightsHandler(comparison comparisonProvider, cache cacheInvalidator) *InsightsHandler {
	return &InsightsHandler{comparison: comparison, cache: cache}
}

// ClassesComparison godoc
// @Summary Compare classes or list the school catalog
// @Description With grade and major, returns per-class scoring and ranking for the school year. Without them, returns the lightweight catalog of grade/major combinations.
// @Tags Insights
// @Produce json
// @Param year query int false "Jalali school start year (defaults to current school year)"
// @Param month query int false "Jalali month 1..12 restricting the aggregation"
// @Param grade query string false "Grade filter (requires major)"
// @Param major query string false "Major filter (requires grade)"
// @Param courseCode query string false "Restrict scoring to a single course"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Security BearerAuth
// @Router /insights/classes-comparison [get]
func (h *InsightsHandler) ClassesComparison(c *gin.Context) {
	if h.comparison == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	query, err := parseComparisonQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	query.SchoolCode = claims.SchoolCode

	start := time.Now()
	var (
		payload  interface{}
		cacheHit bool
	)
	if query.Grade == "" && query.Major == "" {
		payload, cacheHit, err = h.comparison.Catalog(c.Request.Context(), query)
	} else {
		payload, cacheHit, err = h.comparison.Compare(c.Request.Context(), query)
	}
	if err != nil {
		response.Error(c, err)
		return
	}

	middleware.SetCacheHit(c, cacheHit)
	meta := middleware.ExtractMeta(c)
	if meta == nil {
		meta = make(map[string]interface{})
	}
	meta["processing_time_ms"] = time.Since(start).Milliseconds()
	response.JSON(c, http.StatusOK, payload, nil, meta)
}

// FlushCache godoc
// @Summary Drop cached comparison payloads
// @Description Invalidates every cached comparison and catalog result of the caller's school.
// @Tags Insights
// @Produce json
// @Success 204
// @Failure 401 {object} response.Envelope
// @Security BearerAuth
// @Router /insights/cache [delete]
func (h *InsightsHandler) FlushCache(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	if h.cache != nil {
		if err := h.cache.InvalidateSchool(c.Request.Context(), claims.SchoolCode); err != nil {
			response.Error(c, err)
			return
		}
	}
	response.NoContent(c)
}

func parseComparisonQuery(c *gin.Context) (service.ComparisonQuery, error) {
	query := service.ComparisonQuery{
		Grade:      c.Query("grade"),
		Major:      c.Query("major"),
		CourseCode: c.Query("courseCode"),
	}
	if raw := c.Query("year"); raw != "" {
		year, err := strconv.Atoi(raw)
		if err != nil {
			return query, appErrors.Wrap(err, appErrors.ErrInvalidInput.Code, http.StatusBadRequest, "year must be an integer")
		}
		query.Year = year
	}
	if raw := c.Query("month"); raw != "" {
		month, err := strconv.Atoi(raw)
		if err != nil {
			return query, appErrors.Wrap(err, appErrors.ErrInvalidInput.Code, http.StatusBadRequest, "month must be an integer")
		}
		query.Month = &month
	}
	return query, nil
}
