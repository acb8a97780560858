package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/uni-timesheet-api/internal/models"
	"github.com/noah-isme/uni-timesheet-api/internal/repository"
	appErrors "github.com/noah-isme/uni-timesheet-api/pkg/errors"
)

type stubWorkflowStore struct {
	timesheets map[string]*models.Timesheet
	history    []models.ApprovalHistory
	forceErr   error
	listFilter models.TimesheetFilter
}

func newStubWorkflowStore(timesheets ...*models.Timesheet) *stubWorkflowStore {
	store := &stubWorkflowStore{timesheets: make(map[string]*models.Timesheet)}
	for _, ts := range timesheets {
		store.timesheets[ts.ID] = ts
	}
	return store
}

func (s *stubWorkflowStore) GetByID(_ context.Context, id string) (*models.Timesheet, error) {
	ts, ok := s.timesheets[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *ts
	return &copied, nil
}

func (s *stubWorkflowStore) List(_ context.Context, filter models.TimesheetFilter) ([]models.Timesheet, int, error) {
	s.listFilter = filter
	wanted := make(map[models.ApprovalStatus]struct{}, len(filter.Status))
	for _, status := range filter.Status {
		wanted[status] = struct{}{}
	}
	var out []models.Timesheet
	for _, ts := range s.timesheets {
		if _, ok := wanted[ts.Status]; len(wanted) > 0 && !ok {
			continue
		}
		if filter.TutorID != "" && ts.TutorID != filter.TutorID {
			continue
		}
		out = append(out, *ts)
	}
	return out, len(out), nil
}

func (s *stubWorkflowStore) ApplyTransition(_ context.Context, params repository.TransitionParams) error {
	if s.forceErr != nil {
		return s.forceErr
	}
	ts, ok := s.timesheets[params.TimesheetID]
	if !ok || ts.Version != params.FromVersion {
		return repository.ErrVersionConflict
	}
	ts.Status = params.NextStatus
	ts.Version++
	entry := *params.History
	entry.CreatedAt = time.Now()
	s.history = append(s.history, entry)
	return nil
}

func (s *stubWorkflowStore) ListByTimesheet(_ context.Context, timesheetID string) ([]models.ApprovalHistory, error) {
	var out []models.ApprovalHistory
	for _, entry := range s.history {
		if entry.TimesheetID == timesheetID {
			out = append(out, entry)
		}
	}
	return out, nil
}

type stubCourseStore struct {
	assignments map[string][]string // lecturerID -> course IDs
}

func (s *stubCourseStore) IsLecturerFor(_ context.Context, lecturerID, courseID string) (bool, error) {
	for _, id := range s.assignments[lecturerID] {
		if id == courseID {
			return true, nil
		}
	}
	return false, nil
}

func (s *stubCourseStore) ListByLecturer(_ context.Context, lecturerID string) ([]models.Course, error) {
	var out []models.Course
	for _, id := range s.assignments[lecturerID] {
		out = append(out, models.Course{ID: id})
	}
	return out, nil
}

type stubQueueCache struct {
	entries     map[string][]byte
	invalidated int
}

func newStubQueueCache() *stubQueueCache {
	return &stubQueueCache{entries: make(map[string][]byte)}
}

func (c *stubQueueCache) Get(_ context.Context, key string, dest interface{}) error {
	raw, ok := c.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (c *stubQueueCache) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.entries[key] = raw
	return nil
}

func (c *stubQueueCache) DeleteByPattern(_ context.Context, _ string) error {
	c.invalidated++
	c.entries = make(map[string][]byte)
	return nil
}

func draftTimesheet(id, tutorID, courseID string) *models.Timesheet {
	return &models.Timesheet{
		ID:        id,
		TutorID:   tutorID,
		CourseID:  courseID,
		CreatedBy: "lecturer-1",
		Status:    models.StatusDraft,
		Version:   1,
	}
}

func newApprovalFixture(t *testing.T, timesheets ...*models.Timesheet) (*ApprovalService, *stubWorkflowStore, *stubQueueCache) {
	t.Helper()
	store := newStubWorkflowStore(timesheets...)
	courses := &stubCourseStore{assignments: map[string][]string{"lecturer-1": {"comp1511"}}}
	cache := newStubQueueCache()
	svc := NewApprovalService(NewTransitionTable(), store, store, courses, nil,
		WithApprovalCache(cache, time.Minute))
	return svc, store, cache
}

func TestApplyFullChain(t *testing.T) {
	svc, store, _ := newApprovalFixture(t, draftTimesheet("ts-1", "tutor-1", "comp1511"))
	ctx := context.Background()

	steps := []struct {
		action models.ApprovalAction
		actor  string
		role   models.UserRole
		next   models.ApprovalStatus
	}{
		{models.ActionSubmitForApproval, "lecturer-1", models.RoleLecturer, models.StatusPendingTutorReview},
		{models.ActionTutorConfirm, "tutor-1", models.RoleTutor, models.StatusApprovedByTutor},
		{models.ActionLecturerConfirm, "lecturer-1", models.RoleLecturer, models.StatusLecturerConfirmed},
		{models.ActionHRConfirm, "admin-1", models.RoleAdmin, models.StatusFinalConfirmed},
	}
	for _, step := range steps {
		entry, err := svc.Apply(ctx, "ts-1", step.action, step.actor, step.role, "")
		require.NoError(t, err, string(step.action))
		assert.Equal(t, step.next, entry.ToStatus)
	}

	assert.Equal(t, models.StatusFinalConfirmed, store.timesheets["ts-1"].Status)
	assert.Equal(t, int64(5), store.timesheets["ts-1"].Version)
	require.Len(t, store.history, 4)
	assert.Equal(t, models.StatusDraft, store.history[0].FromStatus)
	assert.Equal(t, models.StatusFinalConfirmed, store.history[3].ToStatus)
}

func TestApplyIllegalTransition(t *testing.T) {
	svc, _, _ := newApprovalFixture(t, draftTimesheet("ts-1", "tutor-1", "comp1511"))

	_, err := svc.Apply(context.Background(), "ts-1", models.ActionHRConfirm, "admin-1", models.RoleAdmin, "")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrIllegalTransition.Code, appErrors.FromError(err).Code)
}

func TestApplyRejectsWrongRole(t *testing.T) {
	ts := draftTimesheet("ts-1", "tutor-1", "comp1511")
	ts.Status = models.StatusPendingTutorReview
	svc, _, _ := newApprovalFixture(t, ts)

	_, err := svc.Apply(context.Background(), "ts-1", models.ActionTutorConfirm, "lecturer-1", models.RoleLecturer, "")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestApplyRejectsWrongTutor(t *testing.T) {
	ts := draftTimesheet("ts-1", "tutor-1", "comp1511")
	ts.Status = models.StatusPendingTutorReview
	svc, store, _ := newApprovalFixture(t, ts)

	_, err := svc.Apply(context.Background(), "ts-1", models.ActionTutorConfirm, "tutor-2", models.RoleTutor, "")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
	assert.Empty(t, store.history)
}

func TestApplyRejectsUnassignedLecturer(t *testing.T) {
	ts := draftTimesheet("ts-1", "tutor-1", "math2001")
	ts.Status = models.StatusApprovedByTutor
	svc, _, _ := newApprovalFixture(t, ts)

	_, err := svc.Apply(context.Background(), "ts-1", models.ActionLecturerConfirm, "lecturer-1", models.RoleLecturer, "")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestApplyVersionConflict(t *testing.T) {
	svc, store, _ := newApprovalFixture(t, draftTimesheet("ts-1", "tutor-1", "comp1511"))
	store.forceErr = repository.ErrVersionConflict

	_, err := svc.Apply(context.Background(), "ts-1", models.ActionSubmitForApproval, "lecturer-1", models.RoleLecturer, "")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConcurrencyConflict.Code, appErrors.FromError(err).Code)
}

func TestApplyUnknownTimesheet(t *testing.T) {
	svc, _, _ := newApprovalFixture(t)

	_, err := svc.Apply(context.Background(), "missing", models.ActionSubmitForApproval, "lecturer-1", models.RoleLecturer, "")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestApplyRecordsComment(t *testing.T) {
	ts := draftTimesheet("ts-1", "tutor-1", "comp1511")
	ts.Status = models.StatusPendingTutorReview
	svc, store, _ := newApprovalFixture(t, ts)

	entry, err := svc.Apply(context.Background(), "ts-1", models.ActionReject, "tutor-1", models.RoleTutor, "hours look wrong")
	require.NoError(t, err)
	require.NotNil(t, entry.Comment)
	assert.Equal(t, "hours look wrong", *entry.Comment)
	assert.Equal(t, models.StatusRejected, store.timesheets["ts-1"].Status)
}

func TestPendingQueueTutorScope(t *testing.T) {
	mine := draftTimesheet("ts-1", "tutor-1", "comp1511")
	mine.Status = models.StatusPendingTutorReview
	other := draftTimesheet("ts-2", "tutor-2", "comp1511")
	other.Status = models.StatusPendingTutorReview
	svc, store, _ := newApprovalFixture(t, mine, other)

	queue, err := svc.PendingQueue(context.Background(), &models.JWTClaims{UserID: "tutor-1", Role: models.RoleTutor})
	require.NoError(t, err)
	require.Len(t, queue, 1)
	assert.Equal(t, "ts-1", queue[0].ID)
	assert.Equal(t, "tutor-1", store.listFilter.TutorID)
}

func TestPendingQueueLecturerCourseScope(t *testing.T) {
	taught := draftTimesheet("ts-1", "tutor-1", "comp1511")
	taught.Status = models.StatusApprovedByTutor
	elsewhere := draftTimesheet("ts-2", "tutor-2", "math2001")
	elsewhere.Status = models.StatusApprovedByTutor
	svc, _, _ := newApprovalFixture(t, taught, elsewhere)

	queue, err := svc.PendingQueue(context.Background(), &models.JWTClaims{UserID: "lecturer-1", Role: models.RoleLecturer})
	require.NoError(t, err)
	require.Len(t, queue, 1)
	assert.Equal(t, "ts-1", queue[0].ID)
}

func TestPendingQueueCachedAndInvalidated(t *testing.T) {
	ts := draftTimesheet("ts-1", "tutor-1", "comp1511")
	ts.Status = models.StatusPendingTutorReview
	svc, store, cache := newApprovalFixture(t, ts)
	actor := &models.JWTClaims{UserID: "tutor-1", Role: models.RoleTutor}
	ctx := context.Background()

	first, err := svc.PendingQueue(ctx, actor)
	require.NoError(t, err)
	require.Len(t, first, 1)
	require.Len(t, cache.entries, 1)

	// A second read must come from the cache even after the backing row moves on.
	store.timesheets["ts-1"].Status = models.StatusApprovedByTutor
	second, err := svc.PendingQueue(ctx, actor)
	require.NoError(t, err)
	assert.Len(t, second, 1)

	// A committed transition flushes every queue.
	other := draftTimesheet("ts-9", "tutor-1", "comp1511")
	store.timesheets["ts-9"] = other
	_, err = svc.Apply(ctx, "ts-9", models.ActionSubmitForApproval, "lecturer-1", models.RoleLecturer, "")
	require.NoError(t, err)
	assert.Equal(t, 1, cache.invalidated)
	assert.Empty(t, cache.entries)
}

func TestHistoryRequiresViewScope(t *testing.T) {
	ts := draftTimesheet("ts-1", "tutor-1", "comp1511")
	svc, store, _ := newApprovalFixture(t, ts)
	ctx := context.Background()

	_, err := svc.Apply(ctx, "ts-1", models.ActionSubmitForApproval, "lecturer-1", models.RoleLecturer, "")
	require.NoError(t, err)

	entries, err := svc.History(ctx, "ts-1", &models.JWTClaims{UserID: "tutor-1", Role: models.RoleTutor})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, models.ActionSubmitForApproval, entries[0].Action)
	assert.Len(t, store.history, 1)

	_, err = svc.History(ctx, "ts-1", &models.JWTClaims{UserID: "tutor-2", Role: models.RoleTutor})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestValidActionsForStatus(t *testing.T) {
	ts := draftTimesheet("ts-1", "tutor-1", "comp1511")
	ts.Status = models.StatusPendingTutorReview
	svc, _, _ := newApprovalFixture(t, ts)

	actions, err := svc.ValidActions(context.Background(), "ts-1")
	require.NoError(t, err)
	assert.ElementsMatch(t, []models.ApprovalAction{
		models.ActionTutorConfirm, models.ActionReject, models.ActionRequestModification,
	}, actions)
}
