package handler

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/madrasoft/sms-insights-api/internal/dto"
	"github.com/madrasoft/sms-insights-api/internal/models"
	"github.com/madrasoft/sms-insights-api/internal/service"
	appErrors "github.com/madrasoft/sms-insights-api/pkg/errors"
	"github.com/madrasoft/sms-insights-api/pkg/response"
)

const defaultReportListLimit = 20

type reportOperations interface {
	CreateJob(ctx context.Context, req dto.ReportRequest, schoolCode, actorID string) (*dto.ReportJobResponse, error)
	GetStatus(ctx context.Context, schoolCode, id string) (*dto.ReportStatusResponse, error)
	ListJobs(ctx context.Context, schoolCode string, limit int) ([]dto.ReportStatusResponse, error)
	ResolveDownload(ctx context.Context, schoolCode, token string) (*service.ReportDownload, error)
}

// ReportHandler exposes async report export endpoints.
type ReportHandler struct {
	reports reportOperations
}

// NewReportHandler constructs the report handler.
func NewReportHandler(reports reportOperations) *ReportHandler {
	return &ReportHandler{reports: reports}
}

// Create godoc
// @Summary Queue a comparison export
// @Description Queues an async CSV or PDF export of the class comparison and returns the job descriptor.
// @Tags Reports
// @Accept json
// @Produce json
// @Param payload body dto.ReportRequest true "Report parameters"
// @Success 202 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Security BearerAuth
// @Router /insights/reports [post]
func (h *ReportHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req dto.ReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid report payload"))
		return
	}

	job, err := h.reports.CreateJob(c.Request.Context(), req, claims.SchoolCode, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusAccepted, job, nil)
}

// Status godoc
// @Summary Get report job status
// @Tags Reports
// @Produce json
// @Param id path string true "Job ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /insights/reports/{id} [get]
func (h *ReportHandler) Status(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	status, err := h.reports.GetStatus(c.Request.Context(), claims.SchoolCode, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, status, nil)
}

// List godoc
// @Summary List recent report jobs
// @Tags Reports
// @Produce json
// @Param limit query int false "Maximum number of jobs to return"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /insights/reports [get]
func (h *ReportHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	limit := defaultReportListLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			response.Error(c, appErrors.Clone(appErrors.ErrInvalidInput, "limit must be a positive integer"))
			return
		}
		limit = parsed
	}

	jobs, err := h.reports.ListJobs(c.Request.Context(), claims.SchoolCode, limit)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, jobs, nil)
}

// Download godoc
// @Summary Download a finished report
// @Description Streams the exported file identified by a signed token.
// @Tags Reports
// @Produce octet-stream
// @Param token path string true "Signed download token"
// @Success 200 {file} binary
// @Failure 404 {object} response.Envelope
// @Failure 410 {object} response.Envelope
// @Security BearerAuth
// @Router /insights/reports/download/{token} [get]
func (h *ReportHandler) Download(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	download, err := h.reports.ResolveDownload(c.Request.Context(), claims.SchoolCode, c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer download.File.Close() //nolint:errcheck

	info, err := download.File.Stat()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, http.StatusInternalServerError, "report file unavailable"))
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", download.Filename))
	c.Header("Cache-Control", "no-store")
	c.DataFromReader(http.StatusOK, info.Size(), mimeTypeFor(download.Format), download.File, nil)
}

func mimeTypeFor(format models.ReportFormat) string {
	switch format {
	case models.ReportFormatPDF:
		return "application/pdf"
	case models.ReportFormatCSV:
		return "text/csv"
	default:
		return "application/octet-stream"
	}
}
