package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/uni-timesheet-api/internal/dto"
	"github.com/noah-isme/uni-timesheet-api/internal/models"
	"github.com/noah-isme/uni-timesheet-api/internal/repository"
	"github.com/noah-isme/uni-timesheet-api/pkg/config"
	appErrors "github.com/noah-isme/uni-timesheet-api/pkg/errors"
)

func (s *stubWorkflowStore) Create(_ context.Context, ts *models.Timesheet) error {
	if ts.ID == "" {
		ts.ID = uuid.NewString()
	}
	ts.Version = 1
	copied := *ts
	s.timesheets[ts.ID] = &copied
	return nil
}

func (s *stubWorkflowStore) Update(_ context.Context, ts *models.Timesheet) error {
	current, ok := s.timesheets[ts.ID]
	if !ok || current.Version != ts.Version {
		return repository.ErrVersionConflict
	}
	ts.Version++
	copied := *ts
	s.timesheets[ts.ID] = &copied
	return nil
}

func (s *stubWorkflowStore) DeleteDraft(_ context.Context, id, createdBy string) (bool, error) {
	ts, ok := s.timesheets[id]
	if !ok || ts.Status != models.StatusDraft || ts.CreatedBy != createdBy {
		return false, nil
	}
	delete(s.timesheets, id)
	return true, nil
}

type stubAuditLogger struct {
	entries []models.AuditLog
}

func (s *stubAuditLogger) CreateAuditLog(_ context.Context, entry *models.AuditLog) error {
	s.entries = append(s.entries, *entry)
	return nil
}

func newTimesheetFixture(t *testing.T, timesheets ...*models.Timesheet) (*TimesheetService, *stubWorkflowStore, *stubAuditLogger) {
	t.Helper()
	store := newStubWorkflowStore(timesheets...)
	courses := &stubCourseStore{assignments: map[string][]string{"lecturer-1": {"comp1511"}}}
	audit := &stubAuditLogger{}
	table := NewTransitionTable()
	calculator := NewPayCalculator(config.PayrollConfig{}, staticRepeats(false), nil)
	approvals := NewApprovalService(table, store, store, courses, nil)
	svc := NewTimesheetService(store, calculator, approvals, table, courses, audit, nil)
	return svc, store, audit
}

func lecturerClaims() *models.JWTClaims {
	return &models.JWTClaims{UserID: "lecturer-1", Role: models.RoleLecturer}
}

func validCreateRequest() dto.CreateTimesheetRequest {
	return dto.CreateTimesheetRequest{
		TutorID:       "tutor-1",
		CourseID:      "comp1511",
		WeekStartDate: "2024-01-08",
		SessionDate:   "2024-01-10",
		TaskType:      models.TaskTutorial,
		DeliveryHours: 1.0,
	}
}

func TestCreateDraftComputesPay(t *testing.T) {
	svc, store, audit := newTimesheetFixture(t)

	ts, err := svc.Create(context.Background(), validCreateRequest(), lecturerClaims())
	require.NoError(t, err)
	assert.Equal(t, models.StatusDraft, ts.Status)
	assert.Equal(t, "TU2", ts.RateCode)
	assert.Equal(t, 3.0, ts.PayableHours)
	assert.Equal(t, 175.95, ts.TotalPay)
	assert.Equal(t, "lecturer-1", ts.CreatedBy)
	assert.Contains(t, store.timesheets, ts.ID)
	require.Len(t, audit.entries, 1)
	assert.Equal(t, models.AuditActionTimesheetCreate, audit.entries[0].Action)
}

func TestCreateRejectsTutorAuthor(t *testing.T) {
	svc, _, _ := newTimesheetFixture(t)

	_, err := svc.Create(context.Background(), validCreateRequest(), &models.JWTClaims{UserID: "tutor-1", Role: models.RoleTutor})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestCreateRejectsUnassignedCourse(t *testing.T) {
	svc, _, _ := newTimesheetFixture(t)

	req := validCreateRequest()
	req.CourseID = "math2001"
	_, err := svc.Create(context.Background(), req, lecturerClaims())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestCreateRejectsNonMondayWeekStart(t *testing.T) {
	svc, _, _ := newTimesheetFixture(t)

	req := validCreateRequest()
	req.WeekStartDate = "2024-01-09"
	_, err := svc.Create(context.Background(), req, lecturerClaims())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidSchedule.Code, appErrors.FromError(err).Code)
}

func TestUpdateRecomputesPay(t *testing.T) {
	svc, store, _ := newTimesheetFixture(t)
	ctx := context.Background()

	ts, err := svc.Create(ctx, validCreateRequest(), lecturerClaims())
	require.NoError(t, err)

	updated, err := svc.Update(ctx, ts.ID, dto.UpdateTimesheetRequest{
		WeekStartDate: "2024-01-08",
		SessionDate:   "2024-01-10",
		TaskType:      models.TaskLecture,
		DeliveryHours: 1.0,
	}, lecturerClaims())
	require.NoError(t, err)
	assert.Equal(t, "P03", updated.RateCode)
	assert.Equal(t, 245.07, updated.TotalPay)
	assert.Equal(t, int64(2), updated.Version)
	assert.Equal(t, "P03", store.timesheets[ts.ID].RateCode)
}

func TestUpdateRejectsSubmittedTimesheet(t *testing.T) {
	svc, _, _ := newTimesheetFixture(t)
	ctx := context.Background()

	ts, err := svc.Create(ctx, validCreateRequest(), lecturerClaims())
	require.NoError(t, err)
	_, err = svc.Act(ctx, ts.ID, dto.ApprovalActionRequest{Action: models.ActionSubmitForApproval}, lecturerClaims())
	require.NoError(t, err)

	_, err = svc.Update(ctx, ts.ID, dto.UpdateTimesheetRequest{
		WeekStartDate: "2024-01-08",
		SessionDate:   "2024-01-10",
		TaskType:      models.TaskTutorial,
		DeliveryHours: 1.0,
	}, lecturerClaims())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotEditable.Code, appErrors.FromError(err).Code)
}

func TestUpdateRejectsNonCreator(t *testing.T) {
	svc, _, _ := newTimesheetFixture(t)
	ctx := context.Background()

	ts, err := svc.Create(ctx, validCreateRequest(), lecturerClaims())
	require.NoError(t, err)

	_, err = svc.Update(ctx, ts.ID, dto.UpdateTimesheetRequest{
		WeekStartDate: "2024-01-08",
		SessionDate:   "2024-01-10",
		TaskType:      models.TaskTutorial,
		DeliveryHours: 1.0,
	}, &models.JWTClaims{UserID: "lecturer-2", Role: models.RoleLecturer})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestGetEnforcesViewScope(t *testing.T) {
	svc, _, _ := newTimesheetFixture(t)
	ctx := context.Background()

	ts, err := svc.Create(ctx, validCreateRequest(), lecturerClaims())
	require.NoError(t, err)

	got, err := svc.Get(ctx, ts.ID, &models.JWTClaims{UserID: "tutor-1", Role: models.RoleTutor})
	require.NoError(t, err)
	assert.Equal(t, ts.ID, got.ID)

	_, err = svc.Get(ctx, ts.ID, &models.JWTClaims{UserID: "tutor-2", Role: models.RoleTutor})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestListScopesTutorToOwnRows(t *testing.T) {
	svc, store, _ := newTimesheetFixture(t,
		draftTimesheet("ts-1", "tutor-1", "comp1511"),
		draftTimesheet("ts-2", "tutor-2", "comp1511"),
	)

	rows, pagination, err := svc.List(context.Background(), dto.TimesheetQuery{}, &models.JWTClaims{UserID: "tutor-1", Role: models.RoleTutor})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "ts-1", rows[0].ID)
	assert.Equal(t, 1, pagination.Page)
	assert.Equal(t, 20, pagination.PageSize)
	assert.Equal(t, "tutor-1", store.listFilter.TutorID)
}

func TestDeleteDraftOnly(t *testing.T) {
	svc, store, _ := newTimesheetFixture(t)
	ctx := context.Background()

	ts, err := svc.Create(ctx, validCreateRequest(), lecturerClaims())
	require.NoError(t, err)
	_, err = svc.Act(ctx, ts.ID, dto.ApprovalActionRequest{Action: models.ActionSubmitForApproval}, lecturerClaims())
	require.NoError(t, err)

	err = svc.Delete(ctx, ts.ID, lecturerClaims())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotEditable.Code, appErrors.FromError(err).Code)

	draft, err := svc.Create(ctx, validCreateRequest(), lecturerClaims())
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, draft.ID, lecturerClaims()))
	assert.NotContains(t, store.timesheets, draft.ID)
}

func TestQuoteDoesNotPersist(t *testing.T) {
	svc, store, _ := newTimesheetFixture(t)

	breakdown, err := svc.Quote(context.Background(), dto.QuoteRequest{
		CourseID:      "comp1511",
		SessionDate:   "2024-01-10",
		TaskType:      models.TaskTutorial,
		DeliveryHours: 1.0,
	})
	require.NoError(t, err)
	assert.Equal(t, "TU2", breakdown.RateCode)
	assert.Empty(t, store.timesheets)
}

func TestConfigExposesBounds(t *testing.T) {
	svc, _, _ := newTimesheetFixture(t)

	cfg := svc.Config()
	assert.Equal(t, 0.1, cfg.MinHours)
	assert.Equal(t, 38.0, cfg.MaxHours)
	assert.Equal(t, 7, cfg.RepeatWindowDays)
	assert.Contains(t, cfg.TaskTypes, models.TaskConsultation)
}
