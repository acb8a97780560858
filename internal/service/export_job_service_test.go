package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/uni-timesheet-api/internal/dto"
	"github.com/noah-isme/uni-timesheet-api/internal/models"
	"github.com/noah-isme/uni-timesheet-api/internal/repository"
	appErrors "github.com/noah-isme/uni-timesheet-api/pkg/errors"
	"github.com/noah-isme/uni-timesheet-api/pkg/jobs"
)

type stubExportJobStore struct {
	jobs map[string]*models.ExportJob
}

func newStubExportJobStore() *stubExportJobStore {
	return &stubExportJobStore{jobs: make(map[string]*models.ExportJob)}
}

func (s *stubExportJobStore) Create(_ context.Context, job *models.ExportJob) error {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	copied := *job
	s.jobs[job.ID] = &copied
	return nil
}

func (s *stubExportJobStore) GetByID(_ context.Context, id string) (*models.ExportJob, error) {
	job, ok := s.jobs[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *job
	return &copied, nil
}

func (s *stubExportJobStore) Update(_ context.Context, id string, params repository.UpdateExportJobParams) error {
	job, ok := s.jobs[id]
	if !ok {
		return sql.ErrNoRows
	}
	if params.Status != nil {
		job.Status = *params.Status
	}
	if params.Progress != nil {
		job.Progress = *params.Progress
	}
	if params.ResultURL != nil {
		job.ResultURL = params.ResultURL
	}
	if params.ErrorMessage != nil {
		job.ErrorMessage = params.ErrorMessage
	}
	if params.FinishedAt != nil {
		job.FinishedAt = params.FinishedAt
	}
	return nil
}

func (s *stubExportJobStore) ListQueued(_ context.Context, _ int) ([]models.ExportJob, error) {
	var out []models.ExportJob
	for _, job := range s.jobs {
		if job.Status == models.ExportStatusQueued {
			out = append(out, *job)
		}
	}
	return out, nil
}

func (s *stubExportJobStore) ListFinishedBefore(_ context.Context, _ time.Time, _ int) ([]models.ExportJob, error) {
	return nil, nil
}

type stubDispatcher struct {
	enqueued []jobs.Job
	err      error
}

func (d *stubDispatcher) Enqueue(job jobs.Job) error {
	if d.err != nil {
		return d.err
	}
	d.enqueued = append(d.enqueued, job)
	return nil
}

type stubGenerator struct {
	result *ExportResult
	err    error
}

func (g *stubGenerator) Generate(_ context.Context, _ *models.ExportJob) (*ExportResult, error) {
	return g.result, g.err
}

func adminClaims() *models.JWTClaims {
	return &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin}
}

func exportRequest() dto.ExportRequest {
	return dto.ExportRequest{
		PeriodStart: "2024-01-01",
		PeriodEnd:   "2024-01-31",
		Format:      models.ExportFormatCSV,
	}
}

func newExportJobFixture() (*ExportJobService, *stubExportJobStore, *stubDispatcher, *stubAuditLogger) {
	store := newStubExportJobStore()
	dispatcher := &stubDispatcher{}
	audit := &stubAuditLogger{}
	svc := NewExportJobService(store, dispatcher, nil, audit, nil, ExportJobConfig{})
	return svc, store, dispatcher, audit
}

func TestCreateJobEnqueues(t *testing.T) {
	svc, store, dispatcher, audit := newExportJobFixture()

	resp, err := svc.CreateJob(context.Background(), exportRequest(), adminClaims())
	require.NoError(t, err)
	assert.Equal(t, models.ExportStatusQueued, resp.Status)
	require.Len(t, dispatcher.enqueued, 1)
	assert.Equal(t, resp.ID, dispatcher.enqueued[0].ID)
	assert.Equal(t, "payroll_export", dispatcher.enqueued[0].Type)
	assert.Contains(t, store.jobs, resp.ID)
	require.Len(t, audit.entries, 1)
	assert.Equal(t, models.AuditActionPayrollExport, audit.entries[0].Action)
}

func TestCreateJobAdminOnly(t *testing.T) {
	svc, _, _, _ := newExportJobFixture()

	_, err := svc.CreateJob(context.Background(), exportRequest(), &models.JWTClaims{UserID: "lecturer-1", Role: models.RoleLecturer})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestCreateJobValidatesRequest(t *testing.T) {
	svc, _, _, _ := newExportJobFixture()
	ctx := context.Background()

	req := exportRequest()
	req.PeriodEnd = "2023-12-31"
	_, err := svc.CreateJob(ctx, req, adminClaims())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	req = exportRequest()
	req.Format = models.ExportFormat("xlsx")
	_, err = svc.CreateJob(ctx, req, adminClaims())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestCreateJobMarksFailedWhenEnqueueFails(t *testing.T) {
	svc, store, dispatcher, _ := newExportJobFixture()
	dispatcher.err = errors.New("queue down")

	_, err := svc.CreateJob(context.Background(), exportRequest(), adminClaims())
	require.Error(t, err)
	require.Len(t, store.jobs, 1)
	for _, job := range store.jobs {
		assert.Equal(t, models.ExportStatusFailed, job.Status)
	}
}

func TestGetStatusAdminOnly(t *testing.T) {
	svc, store, _, _ := newExportJobFixture()
	job := &models.ExportJob{Params: models.ExportJobParams{Format: models.ExportFormatCSV}, Status: models.ExportStatusProcessing, Progress: 10}
	require.NoError(t, store.Create(context.Background(), job))

	status, err := svc.GetStatus(context.Background(), job.ID, adminClaims())
	require.NoError(t, err)
	assert.Equal(t, models.ExportStatusProcessing, status.Status)

	_, err = svc.GetStatus(context.Background(), job.ID, &models.JWTClaims{UserID: "tutor-1", Role: models.RoleTutor})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	_, err = svc.GetStatus(context.Background(), "missing", adminClaims())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestRecoverPendingJobsRequeues(t *testing.T) {
	svc, store, dispatcher, _ := newExportJobFixture()
	ctx := context.Background()
	require.NoError(t, store.Create(ctx, &models.ExportJob{Status: models.ExportStatusQueued}))
	require.NoError(t, store.Create(ctx, &models.ExportJob{Status: models.ExportStatusFinished}))

	svc.RecoverPendingJobs(ctx)
	assert.Len(t, dispatcher.enqueued, 1)
}

func TestExportWorkerFinishesJob(t *testing.T) {
	store := newStubExportJobStore()
	ctx := context.Background()
	job := &models.ExportJob{Status: models.ExportStatusQueued, Params: models.ExportJobParams{Format: models.ExportFormatCSV}}
	require.NoError(t, store.Create(ctx, job))

	worker := NewExportWorker(store, &stubGenerator{result: &ExportResult{URL: "/api/v1/payroll/export/tok"}}, 3, nil)
	err := worker.Handle(ctx, jobs.Job{ID: job.ID, Attempt: 1})
	require.NoError(t, err)

	updated := store.jobs[job.ID]
	assert.Equal(t, models.ExportStatusFinished, updated.Status)
	assert.Equal(t, 100, updated.Progress)
	require.NotNil(t, updated.ResultURL)
	assert.Equal(t, "/api/v1/payroll/export/tok", *updated.ResultURL)
	require.NotNil(t, updated.FinishedAt)
}

func TestExportWorkerRetriesThenFails(t *testing.T) {
	store := newStubExportJobStore()
	ctx := context.Background()
	job := &models.ExportJob{Status: models.ExportStatusQueued, Params: models.ExportJobParams{Format: models.ExportFormatCSV}}
	require.NoError(t, store.Create(ctx, job))

	worker := NewExportWorker(store, &stubGenerator{err: errors.New("boom")}, 2, nil)

	err := worker.Handle(ctx, jobs.Job{ID: job.ID, Attempt: 1})
	require.Error(t, err)
	assert.Equal(t, models.ExportStatusQueued, store.jobs[job.ID].Status)

	err = worker.Handle(ctx, jobs.Job{ID: job.ID, Attempt: 2})
	require.Error(t, err)
	assert.Equal(t, models.ExportStatusFailed, store.jobs[job.ID].Status)
	require.NotNil(t, store.jobs[job.ID].ErrorMessage)
	assert.Equal(t, "boom", *store.jobs[job.ID].ErrorMessage)
}
