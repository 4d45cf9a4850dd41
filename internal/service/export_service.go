package service

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/madrasoft/sms-insights-api/internal/models"
	"github.com/madrasoft/sms-insights-api/pkg/export"
	"github.com/madrasoft/sms-insights-api/pkg/storage"
)

type comparisonSource interface {
	Compare(ctx context.Context, query ComparisonQuery) (*models.ComparisonResult, bool, error)
}

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

// Letter grade cut-offs applied to the 0..20 scale in exports.
const (
	letterACutoff = 18
	letterBCutoff = 15
	letterCCutoff = 12
	letterDCutoff = 10
)

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix string
	ResultTTL time.Duration
}

// ExportResult captures successful generation metadata.
type ExportResult struct {
	RelativePath string
	Token        string
	URL          string
	Format       models.ReportFormat
	ExpiresAt    time.Time
}

// ExportService renders comparison results to downloadable files.
type ExportService struct {
	comparisons comparisonSource
	storage     fileStorage
	csv         csvRenderer
	pdf         pdfRenderer
	signer      *storage.SignedURLSigner
	logger      *zap.Logger
	cfg         ExportConfig
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// NewExportService constructs an ExportService.
func NewExportService(comparisons comparisonSource, storage fileStorage, signer *storage.SignedURLSigner, cfg ExportConfig, logger *zap.Logger, csv csvRenderer, pdf pdfRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{
		comparisons: comparisons,
		storage:     storage,
		csv:         csv,
		pdf:         pdf,
		signer:      signer,
		logger:      logger,
		cfg:         cfg,
	}
}

// Generate builds the dataset for the job and stores the rendered export.
func (s *ExportService) Generate(ctx context.Context, job *models.ReportJob) (*ExportResult, error) {
	if job == nil {
		return nil, fmt.Errorf("job nil")
	}
	if job.Type != models.ReportTypeClassesComparison {
		return nil, fmt.Errorf("unsupported report type %s", job.Type)
	}

	dataset, title, err := s.buildComparisonDataset(ctx, job)
	if err != nil {
		return nil, err
	}

	var payload []byte
	switch job.Params.Format {
	case models.ReportFormatCSV:
		payload, err = s.csv.Render(dataset)
	case models.ReportFormatPDF:
		payload, err = s.pdf.Render(dataset, title)
	default:
		err = fmt.Errorf("unsupported format %s", job.Params.Format)
	}
	if err != nil {
		return nil, err
	}

	filename := s.buildFilename(job)
	relPath, err := s.storage.Save(filename, payload)
	if err != nil {
		return nil, err
	}

	token, expiresAt, err := s.signer.Generate(job.ID, relPath)
	if err != nil {
		return nil, err
	}
	signedURL := strings.TrimRight(s.cfg.APIPrefix, "/")
	if signedURL == "" {
		signedURL = "/api/v1"
	}
	signedURL = fmt.Sprintf("%s/insights/reports/download/%s", signedURL, token)

	return &ExportResult{
		RelativePath: relPath,
		Token:        token,
		URL:          signedURL,
		Format:       job.Params.Format,
		ExpiresAt:    expiresAt,
	}, nil
}

// ParseToken validates download token metadata.
func (s *ExportService) ParseToken(token string, allowExpired bool) (jobID, relPath string, expiresAt time.Time, err error) {
	return s.signer.Parse(token, allowExpired)
}

// Open returns a handle to the stored file.
func (s *ExportService) Open(relPath string) (*os.File, error) {
	return s.storage.Open(relPath)
}

// Delete removes a stored export file.
func (s *ExportService) Delete(relPath string) error {
	return s.storage.Delete(relPath)
}

// Cleanup removes files older than ttl (defaults to configured ResultTTL when ttl <= 0).
func (s *ExportService) Cleanup(ttl time.Duration) ([]string, error) {
	if ttl <= 0 {
		ttl = s.cfg.ResultTTL
	}
	return s.storage.CleanupOlderThan(ttl)
}

func (s *ExportService) buildComparisonDataset(ctx context.Context, job *models.ReportJob) (export.Dataset, string, error) {
	result, _, err := s.comparisons.Compare(ctx, ComparisonQuery{
		SchoolCode: job.SchoolCode,
		Year:       job.Params.Year,
		Month:      job.Params.Month,
		Grade:      job.Params.Grade,
		Major:      job.Params.Major,
		CourseCode: job.Params.CourseCode,
	})
	if err != nil {
		return export.Dataset{}, "", err
	}

	headers := []string{"Grade", "Major", "Class Code", "Class Name", "Students", "Students With Grades", "Class Average", "Letter"}
	rows := make([]map[string]string, 0)
	for _, group := range result.Groups {
		for _, class := range group.Classes {
			rows = append(rows, map[string]string{
				"Grade":                group.Grade,
				"Major":                group.Major,
				"Class Code":           class.ClassCode,
				"Class Name":           class.ClassName,
				"Students":             fmt.Sprintf("%d", class.TotalStudents),
				"Students With Grades": fmt.Sprintf("%d", class.StudentsWithGrades),
				"Class Average":        formatAverage(class.ClassAverage),
				"Letter":               letterGrade(class.ClassAverage),
			})
		}
	}

	dataset := export.Dataset{Headers: headers, Rows: rows}
	title := fmt.Sprintf("Class Comparison %d", result.SelectedYear)
	if result.SelectedMonth != nil {
		title = fmt.Sprintf("%s Month %d", title, *result.SelectedMonth)
	}
	return dataset, title, nil
}

func (s *ExportService) buildFilename(job *models.ReportJob) string {
	timestamp := time.Now().UTC().Format("20060102_150405")
	scope := sanitizeFilename(fmt.Sprintf("%d_%s_%s", job.Params.Year, job.Params.Grade, job.Params.Major))
	return fmt.Sprintf("%s_%s_%s.%s", strings.ToLower(string(job.Type)), scope, timestamp, job.Params.Format)
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "na"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".", "__", "_")
	result := replacer.Replace(raw)
	if len(result) > 100 {
		return result[:100]
	}
	return result
}

func formatAverage(avg *float64) string {
	if avg == nil {
		return ""
	}
	return fmt.Sprintf("%.2f", *avg)
}

func letterGrade(avg *float64) string {
	switch {
	case avg == nil:
		return ""
	case *avg >= letterACutoff:
		return "A"
	case *avg >= letterBCutoff:
		return "B"
	case *avg >= letterCCutoff:
		return "C"
	case *avg >= letterDCutoff:
		return "D"
	default:
		return "E"
	}
}
