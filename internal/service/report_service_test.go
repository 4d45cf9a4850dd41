package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/madrasoft/sms-insights-api/internal/dto"
	"github.com/madrasoft/sms-insights-api/internal/models"
	appErrors "github.com/madrasoft/sms-insights-api/pkg/errors"
	"github.com/madrasoft/sms-insights-api/pkg/jobs"
)

type mockReportStore struct {
	jobs       map[string]*models.ReportJob
	createErr  error
	processing []string
	finished   []string
	failed     []string
}

func newMockReportStore() *mockReportStore {
	return &mockReportStore{jobs: make(map[string]*models.ReportJob)}
}

func (m *mockReportStore) Create(ctx context.Context, job *models.ReportJob) error {
	if m.createErr != nil {
		return m.createErr
	}
	if job.ID == "" {
		job.ID = "job-" + time.Now().Format("150405.000")
	}
	if job.Status == "" {
		job.Status = models.ReportStatusQueued
	}
	copied := *job
	m.jobs[job.ID] = &copied
	return nil
}

func (m *mockReportStore) FindByID(ctx context.Context, schoolCode, id string) (*models.ReportJob, error) {
	job, ok := m.jobs[id]
	if !ok || job.SchoolCode != schoolCode {
		return nil, sql.ErrNoRows
	}
	copied := *job
	return &copied, nil
}

func (m *mockReportStore) List(ctx context.Context, schoolCode string, limit int) ([]models.ReportJob, error) {
	var out []models.ReportJob
	for _, job := range m.jobs {
		if job.SchoolCode == schoolCode {
			out = append(out, *job)
		}
	}
	return out, nil
}

func (m *mockReportStore) MarkProcessing(ctx context.Context, id string) error {
	m.processing = append(m.processing, id)
	m.jobs[id].Status = models.ReportStatusProcessing
	return nil
}

func (m *mockReportStore) UpdateProgress(ctx context.Context, id string, progress int) error {
	m.jobs[id].Progress = progress
	return nil
}

func (m *mockReportStore) MarkFinished(ctx context.Context, id, resultURL string, finishedAt time.Time) error {
	m.finished = append(m.finished, id)
	job := m.jobs[id]
	job.Status = models.ReportStatusFinished
	job.Progress = 100
	job.ResultURL = &resultURL
	job.FinishedAt = &finishedAt
	return nil
}

func (m *mockReportStore) MarkFailed(ctx context.Context, id, message string, finishedAt time.Time) error {
	m.failed = append(m.failed, id)
	job := m.jobs[id]
	job.Status = models.ReportStatusFailed
	job.ErrorMessage = &message
	job.FinishedAt = &finishedAt
	return nil
}

type mockDispatcher struct {
	enqueued []jobs.Job
	err      error
}

func (m *mockDispatcher) Enqueue(job jobs.Job) error {
	if m.err != nil {
		return m.err
	}
	m.enqueued = append(m.enqueued, job)
	return nil
}

type mockGenerator struct {
	result *ExportResult
	err    error
}

func (m *mockGenerator) Generate(ctx context.Context, job *models.ReportJob) (*ExportResult, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.result, nil
}

func TestReportServiceCreateJob(t *testing.T) {
	store := newMockReportStore()
	queue := &mockDispatcher{}
	svc := NewReportService(store, queue, nil, zap.NewNop(), ReportServiceConfig{})

	resp, err := svc.CreateJob(context.Background(), dto.ReportRequest{
		Year: 1403, Grade: "10", Major: "science", Format: models.ReportFormatCSV,
	}, "sch-1", "user-1")
	require.NoError(t, err)
	assert.Equal(t, models.ReportStatusQueued, resp.Status)
	require.Len(t, queue.enqueued, 1)
	assert.Equal(t, resp.ID, queue.enqueued[0].ID)
	assert.Equal(t, "sch-1", queue.enqueued[0].Payload)
	assert.Equal(t, "sch-1", store.jobs[resp.ID].SchoolCode)
}

func TestReportServiceCreateJobValidation(t *testing.T) {
	svc := NewReportService(newMockReportStore(), &mockDispatcher{}, nil, zap.NewNop(), ReportServiceConfig{})

	cases := []dto.ReportRequest{
		{Year: 1403, Major: "science", Format: models.ReportFormatCSV},
		{Year: 1403, Grade: "10", Format: models.ReportFormatCSV},
		{Year: 1403, Grade: "10", Major: "science", Format: models.ReportFormat("xlsx")},
		{Year: 99, Grade: "10", Major: "science", Format: models.ReportFormatCSV},
	}
	for _, req := range cases {
		_, err := svc.CreateJob(context.Background(), req, "sch-1", "user-1")
		require.Error(t, err)
		appErr := appErrors.FromError(err)
		assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	}
}

func TestReportServiceCreateJobEnqueueFailure(t *testing.T) {
	store := newMockReportStore()
	queue := &mockDispatcher{err: assert.AnError}
	svc := NewReportService(store, queue, nil, zap.NewNop(), ReportServiceConfig{})

	_, err := svc.CreateJob(context.Background(), dto.ReportRequest{
		Year: 1403, Grade: "10", Major: "science", Format: models.ReportFormatCSV,
	}, "sch-1", "user-1")
	require.Error(t, err)
	require.Len(t, store.failed, 1)
}

func TestReportServiceGetStatusScoping(t *testing.T) {
	store := newMockReportStore()
	job := &models.ReportJob{ID: "job-1", SchoolCode: "sch-1", Status: models.ReportStatusQueued}
	store.jobs[job.ID] = job
	svc := NewReportService(store, &mockDispatcher{}, nil, zap.NewNop(), ReportServiceConfig{})

	resp, err := svc.GetStatus(context.Background(), "sch-1", "job-1")
	require.NoError(t, err)
	assert.Equal(t, models.ReportStatusQueued, resp.Status)

	// A different school cannot see the job at all.
	_, err = svc.GetStatus(context.Background(), "sch-2", "job-1")
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestReportWorkerHandleSuccess(t *testing.T) {
	store := newMockReportStore()
	job := &models.ReportJob{ID: "job-1", SchoolCode: "sch-1", Status: models.ReportStatusQueued,
		Params: models.ReportJobParams{Year: 1403, Grade: "10", Major: "science", Format: models.ReportFormatCSV}}
	store.jobs[job.ID] = job
	generator := &mockGenerator{result: &ExportResult{URL: "/api/v1/insights/reports/download/tok"}}
	worker := NewReportWorker(store, generator, 3, zap.NewNop())

	err := worker.Handle(context.Background(), jobs.Job{ID: "job-1", Payload: "sch-1"})
	require.NoError(t, err)
	assert.Equal(t, []string{"job-1"}, store.processing)
	assert.Equal(t, []string{"job-1"}, store.finished)
	require.NotNil(t, store.jobs["job-1"].ResultURL)
	assert.Equal(t, models.ReportStatusFinished, store.jobs["job-1"].Status)
}

func TestReportWorkerHandleExhaustedRetries(t *testing.T) {
	store := newMockReportStore()
	job := &models.ReportJob{ID: "job-1", SchoolCode: "sch-1", Status: models.ReportStatusQueued}
	store.jobs[job.ID] = job
	worker := NewReportWorker(store, &mockGenerator{err: assert.AnError}, 2, zap.NewNop())

	err := worker.Handle(context.Background(), jobs.Job{ID: "job-1", Payload: "sch-1", Attempt: 2})
	require.Error(t, err)
	assert.Equal(t, []string{"job-1"}, store.failed)
	assert.Equal(t, models.ReportStatusFailed, store.jobs["job-1"].Status)
}
