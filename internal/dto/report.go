package dto

import "github.com/madrasoft/sms-insights-api/internal/models"

// ReportRequest captures the POST /insights/reports payload. The school
// scope comes from the token, never from the body.
type ReportRequest struct {
	Year       int                 `json:"year"`
	Month      *int                `json:"month,omitempty"`
	Grade      string              `json:"grade"`
	Major      string              `json:"major"`
	CourseCode string              `json:"courseCode,omitempty"`
	Format     models.ReportFormat `json:"format"`
}

// ReportJobResponse is returned after enqueueing a report.
type ReportJobResponse struct {
	ID       string              `json:"id"`
	Status   models.ReportStatus `json:"status"`
	Progress int                 `json:"progress"`
}

// ReportStatusResponse exposes job progress metadata.
type ReportStatusResponse struct {
	ID        string              `json:"id"`
	Status    models.ReportStatus `json:"status"`
	Progress  int                 `json:"progress"`
	ResultURL *string             `json:"resultUrl,omitempty"`
	Error     *string             `json:"error,omitempty"`
}
