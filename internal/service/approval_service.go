package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/uni-timesheet-api/internal/models"
	"github.com/noah-isme/uni-timesheet-api/internal/repository"
	appErrors "github.com/noah-isme/uni-timesheet-api/pkg/errors"
)

type approvalTimesheetStore interface {
	GetByID(ctx context.Context, id string) (*models.Timesheet, error)
	List(ctx context.Context, filter models.TimesheetFilter) ([]models.Timesheet, int, error)
}

type approvalHistoryStore interface {
	ApplyTransition(ctx context.Context, params repository.TransitionParams) error
	ListByTimesheet(ctx context.Context, timesheetID string) ([]models.ApprovalHistory, error)
}

type courseAssignmentStore interface {
	IsLecturerFor(ctx context.Context, lecturerID, courseID string) (bool, error)
	ListByLecturer(ctx context.Context, lecturerID string) ([]models.Course, error)
}

type transitionObserver interface {
	ObserveTransition(action models.ApprovalAction, from, to models.ApprovalStatus)
}

type queueCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

// ApprovalService orchestrates single workflow transitions against the
// transition table. Legality, role authorization and ownership are all checked
// here, colocated with the table entry that defines them.
type ApprovalService struct {
	table      *TransitionTable
	timesheets approvalTimesheetStore
	history    approvalHistoryStore
	courses    courseAssignmentStore
	cache      queueCache
	cacheTTL   time.Duration
	metrics    transitionObserver
	logger     *zap.Logger
}

// ApprovalServiceOption configures the service.
type ApprovalServiceOption func(*ApprovalService)

// WithApprovalCache attaches a cache for pending queues; cached entries are
// invalidated on every committed transition.
func WithApprovalCache(cache queueCache, ttl time.Duration) ApprovalServiceOption {
	return func(s *ApprovalService) {
		s.cache = cache
		if ttl > 0 {
			s.cacheTTL = ttl
		}
	}
}

// WithTransitionObserver attaches a metrics sink for committed transitions.
func WithTransitionObserver(metrics transitionObserver) ApprovalServiceOption {
	return func(s *ApprovalService) { s.metrics = metrics }
}

// NewApprovalService constructs the service.
func NewApprovalService(table *TransitionTable, timesheets approvalTimesheetStore, history approvalHistoryStore, courses courseAssignmentStore, logger *zap.Logger, opts ...ApprovalServiceOption) *ApprovalService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if table == nil {
		table = NewTransitionTable()
	}
	svc := &ApprovalService{
		table:      table,
		timesheets: timesheets,
		history:    history,
		courses:    courses,
		logger:     logger,
		cacheTTL:   2 * time.Minute,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(svc)
		}
	}
	return svc
}

// Apply performs one workflow action on a timesheet. The status update and the
// history entry commit in the same transaction. A lost optimistic-version race
// surfaces as a concurrency conflict and is never retried here; the caller
// must re-read the timesheet and re-evaluate before trying again.
func (s *ApprovalService) Apply(ctx context.Context, timesheetID string, action models.ApprovalAction, actorID string, actorRole models.UserRole, comment string) (*models.ApprovalHistory, error) {
	ts, err := s.timesheets.GetByID(ctx, timesheetID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load timesheet")
	}

	rule, ok := s.table.Lookup(ts.Status, action)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrIllegalTransition,
			fmt.Sprintf("action %s is not valid for status %s", action, ts.Status))
	}
	if !rule.Allows(actorRole) {
		return nil, appErrors.Clone(appErrors.ErrForbidden,
			fmt.Sprintf("role %s may not perform %s", actorRole, action))
	}
	if rule.OwnershipChecked {
		if err := s.checkOwnership(ctx, ts, actorID, actorRole); err != nil {
			return nil, err
		}
	}

	entry := &models.ApprovalHistory{
		TimesheetID: ts.ID,
		Action:      action,
		ActorID:     actorID,
		ActorRole:   actorRole,
		FromStatus:  ts.Status,
		ToStatus:    rule.Next,
	}
	if comment != "" {
		entry.Comment = &comment
	}

	err = s.history.ApplyTransition(ctx, repository.TransitionParams{
		TimesheetID: ts.ID,
		FromVersion: ts.Version,
		NextStatus:  rule.Next,
		History:     entry,
	})
	if err != nil {
		if errors.Is(err, repository.ErrVersionConflict) {
			return nil, appErrors.Clone(appErrors.ErrConcurrencyConflict, "")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to apply transition")
	}

	if s.metrics != nil {
		s.metrics.ObserveTransition(action, entry.FromStatus, entry.ToStatus)
	}
	s.invalidateQueues(ctx)
	s.logger.Info("approval transition applied",
		zap.String("timesheet_id", ts.ID),
		zap.String("action", string(action)),
		zap.String("from", string(entry.FromStatus)),
		zap.String("to", string(entry.ToStatus)),
		zap.String("actor_id", actorID))
	return entry, nil
}

// checkOwnership enforces the role-appropriate ownership requirement recorded
// on the transition entry. Admins are exempt.
func (s *ApprovalService) checkOwnership(ctx context.Context, ts *models.Timesheet, actorID string, actorRole models.UserRole) error {
	switch actorRole {
	case models.RoleAdmin:
		return nil
	case models.RoleTutor:
		if ts.TutorID != actorID {
			return appErrors.Clone(appErrors.ErrForbidden, "timesheet is assigned to a different tutor")
		}
		return nil
	case models.RoleLecturer:
		assigned, err := s.courses.IsLecturerFor(ctx, actorID, ts.CourseID)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check course assignment")
		}
		if !assigned {
			return appErrors.Clone(appErrors.ErrForbidden, "actor does not teach this course")
		}
		return nil
	default:
		return appErrors.ErrForbidden
	}
}

// History returns the approval trail for a timesheet in commit order.
func (s *ApprovalService) History(ctx context.Context, timesheetID string, actor *models.JWTClaims) ([]models.ApprovalHistory, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	ts, err := s.timesheets.GetByID(ctx, timesheetID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load timesheet")
	}
	if err := s.canView(ctx, ts, actor); err != nil {
		return nil, err
	}
	return s.history.ListByTimesheet(ctx, timesheetID)
}

// PendingQueue returns the timesheets awaiting the actor's decision.
func (s *ApprovalService) PendingQueue(ctx context.Context, actor *models.JWTClaims) ([]models.Timesheet, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	status, ok := s.table.QueueStatusFor(actor.Role)
	if !ok {
		return nil, appErrors.ErrForbidden
	}

	cacheKey := fmt.Sprintf("approvals:pending:%s:%s", actor.Role, actor.UserID)
	if s.cache != nil {
		var cached []models.Timesheet
		if err := s.cache.Get(ctx, cacheKey, &cached); err == nil {
			return cached, nil
		}
	}

	filter := models.TimesheetFilter{Status: []models.ApprovalStatus{status}, PageSize: 100}
	if actor.Role == models.RoleTutor {
		filter.TutorID = actor.UserID
	}
	timesheets, _, err := s.timesheets.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list pending timesheets")
	}

	if actor.Role != models.RoleLecturer {
		s.cacheQueue(ctx, cacheKey, timesheets)
		return timesheets, nil
	}

	courses, err := s.courses.ListByLecturer(ctx, actor.UserID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list lecturer courses")
	}
	taught := make(map[string]struct{}, len(courses))
	for _, course := range courses {
		taught[course.ID] = struct{}{}
	}
	queue := make([]models.Timesheet, 0, len(timesheets))
	for _, ts := range timesheets {
		if _, ok := taught[ts.CourseID]; ok {
			queue = append(queue, ts)
		}
	}
	s.cacheQueue(ctx, cacheKey, queue)
	return queue, nil
}

// ValidActions exposes the actions currently defined for a timesheet.
func (s *ApprovalService) ValidActions(ctx context.Context, timesheetID string) ([]models.ApprovalAction, error) {
	ts, err := s.timesheets.GetByID(ctx, timesheetID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load timesheet")
	}
	return s.table.ValidActions(ts.Status), nil
}

func (s *ApprovalService) canView(ctx context.Context, ts *models.Timesheet, actor *models.JWTClaims) error {
	switch actor.Role {
	case models.RoleAdmin:
		return nil
	case models.RoleTutor:
		if ts.TutorID == actor.UserID {
			return nil
		}
	case models.RoleLecturer:
		assigned, err := s.courses.IsLecturerFor(ctx, actor.UserID, ts.CourseID)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check course assignment")
		}
		if assigned || ts.CreatedBy == actor.UserID {
			return nil
		}
	}
	return appErrors.ErrForbidden
}

func (s *ApprovalService) cacheQueue(ctx context.Context, key string, queue []models.Timesheet) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, key, queue, s.cacheTTL); err != nil {
		s.logger.Warn("failed to cache pending queue", zap.Error(err))
	}
}

func (s *ApprovalService) invalidateQueues(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, "approvals:pending:*"); err != nil {
		s.logger.Warn("failed to invalidate pending queue cache", zap.Error(err))
	}
}
