package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/uni-timesheet-api/internal/dto"
	"github.com/noah-isme/uni-timesheet-api/internal/models"
	"github.com/noah-isme/uni-timesheet-api/internal/repository"
	appErrors "github.com/noah-isme/uni-timesheet-api/pkg/errors"
)

type timesheetStore interface {
	Create(ctx context.Context, ts *models.Timesheet) error
	GetByID(ctx context.Context, id string) (*models.Timesheet, error)
	List(ctx context.Context, filter models.TimesheetFilter) ([]models.Timesheet, int, error)
	Update(ctx context.Context, ts *models.Timesheet) error
	DeleteDraft(ctx context.Context, id, createdBy string) (bool, error)
}

type timesheetAuditLogger interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// TimesheetService is the lifecycle facade combining the pay calculator at
// create/edit time with the approval engine at action time. It owns no
// workflow rules of its own.
type TimesheetService struct {
	repo       timesheetStore
	calculator *PayCalculator
	approvals  *ApprovalService
	table      *TransitionTable
	courses    courseAssignmentStore
	audit      timesheetAuditLogger
	logger     *zap.Logger
}

// NewTimesheetService constructs the facade.
func NewTimesheetService(repo timesheetStore, calculator *PayCalculator, approvals *ApprovalService, table *TransitionTable, courses courseAssignmentStore, audit timesheetAuditLogger, logger *zap.Logger) *TimesheetService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if table == nil {
		table = NewTransitionTable()
	}
	return &TimesheetService{
		repo:       repo,
		calculator: calculator,
		approvals:  approvals,
		table:      table,
		courses:    courses,
		audit:      audit,
		logger:     logger,
	}
}

// Create computes pay for the request and persists a new draft timesheet.
// Only lecturers and admins author timesheets, on behalf of a tutor.
func (s *TimesheetService) Create(ctx context.Context, req dto.CreateTimesheetRequest, actor *models.JWTClaims) (*models.Timesheet, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if actor.Role != models.RoleLecturer && actor.Role != models.RoleAdmin {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only lecturers and admins may create timesheets")
	}

	weekStart, sessionDate, err := parseScheduleDates(req.WeekStartDate, req.SessionDate)
	if err != nil {
		return nil, err
	}
	if actor.Role == models.RoleLecturer {
		assigned, err := s.courses.IsLecturerFor(ctx, actor.UserID, req.CourseID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check course assignment")
		}
		if !assigned {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "actor does not teach this course")
		}
	}

	breakdown, err := s.calculator.Calculate(ctx, PayInput{
		CourseID:      req.CourseID,
		TaskType:      req.TaskType,
		SessionDate:   sessionDate,
		DeliveryHours: req.DeliveryHours,
		IsRepeat:      req.IsRepeat,
		Qualification: req.Qualification,
	})
	if err != nil {
		return nil, err
	}

	ts := &models.Timesheet{
		TutorID:       req.TutorID,
		CourseID:      req.CourseID,
		CreatedBy:     actor.UserID,
		WeekStartDate: weekStart,
		SessionDate:   sessionDate,
		TaskType:      req.TaskType,
		DeliveryHours: breakdown.DeliveryHours,
		Qualification: breakdown.Qualification,
		IsRepeat:      breakdown.RepeatApplied,
		RateCode:      breakdown.RateCode,
		PayableHours:  breakdown.PayableHours,
		HourlyRate:    breakdown.HourlyRate,
		TotalPay:      breakdown.TotalPay,
		Description:   req.Description,
		Status:        models.StatusDraft,
	}
	if err := s.repo.Create(ctx, ts); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create timesheet")
	}
	s.emitAudit(ctx, actor, models.AuditActionTimesheetCreate, ts.ID)
	return ts, nil
}

// Update edits an editable timesheet and recomputes pay atomically with the
// edit. Only the creator or an admin may edit.
func (s *TimesheetService) Update(ctx context.Context, id string, req dto.UpdateTimesheetRequest, actor *models.JWTClaims) (*models.Timesheet, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	ts, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load timesheet")
	}
	if actor.Role != models.RoleAdmin && ts.CreatedBy != actor.UserID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the creator or an admin may edit a timesheet")
	}
	if !s.table.IsEditable(ts.Status) {
		return nil, appErrors.Clone(appErrors.ErrNotEditable,
			fmt.Sprintf("timesheet in status %s cannot be edited", ts.Status))
	}

	weekStart, sessionDate, err := parseScheduleDates(req.WeekStartDate, req.SessionDate)
	if err != nil {
		return nil, err
	}

	breakdown, err := s.calculator.Calculate(ctx, PayInput{
		CourseID:      ts.CourseID,
		TaskType:      req.TaskType,
		SessionDate:   sessionDate,
		DeliveryHours: req.DeliveryHours,
		IsRepeat:      req.IsRepeat,
		Qualification: req.Qualification,
	})
	if err != nil {
		return nil, err
	}

	ts.WeekStartDate = weekStart
	ts.SessionDate = sessionDate
	ts.TaskType = req.TaskType
	ts.DeliveryHours = breakdown.DeliveryHours
	ts.Qualification = breakdown.Qualification
	ts.IsRepeat = breakdown.RepeatApplied
	ts.RateCode = breakdown.RateCode
	ts.PayableHours = breakdown.PayableHours
	ts.HourlyRate = breakdown.HourlyRate
	ts.TotalPay = breakdown.TotalPay
	ts.Description = req.Description

	if err := s.repo.Update(ctx, ts); err != nil {
		if errors.Is(err, repository.ErrVersionConflict) {
			return nil, appErrors.Clone(appErrors.ErrConcurrencyConflict, "")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update timesheet")
	}
	s.emitAudit(ctx, actor, models.AuditActionTimesheetUpdate, ts.ID)
	return ts, nil
}

// Act applies a workflow action, delegating entirely to the approval engine.
func (s *TimesheetService) Act(ctx context.Context, id string, req dto.ApprovalActionRequest, actor *models.JWTClaims) (*models.ApprovalHistory, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	return s.approvals.Apply(ctx, id, req.Action, actor.UserID, actor.Role, req.Comment)
}

// Get returns a timesheet enforcing view scope.
func (s *TimesheetService) Get(ctx context.Context, id string, actor *models.JWTClaims) (*models.Timesheet, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	ts, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load timesheet")
	}
	if err := s.approvals.canView(ctx, ts, actor); err != nil {
		return nil, err
	}
	return ts, nil
}

// List returns timesheets scoped to the actor's role.
func (s *TimesheetService) List(ctx context.Context, query dto.TimesheetQuery, actor *models.JWTClaims) ([]models.Timesheet, *models.Pagination, error) {
	if actor == nil {
		return nil, nil, appErrors.ErrUnauthorized
	}
	filter := models.TimesheetFilter{
		TutorID:  query.TutorID,
		CourseID: query.CourseID,
		Status:   query.Status,
		Page:     query.Page,
		PageSize: query.PageSize,
	}
	switch actor.Role {
	case models.RoleAdmin:
		// full access
	case models.RoleTutor:
		filter.TutorID = actor.UserID
	case models.RoleLecturer:
		filter.CreatedBy = actor.UserID
	default:
		return nil, nil, appErrors.ErrForbidden
	}
	timesheets, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list timesheets")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	return timesheets, &models.Pagination{Page: page, PageSize: pageSize, TotalCount: total}, nil
}

// Delete removes a timesheet, restricted to drafts owned by the deleter.
func (s *TimesheetService) Delete(ctx context.Context, id string, actor *models.JWTClaims) error {
	if actor == nil {
		return appErrors.ErrUnauthorized
	}
	ts, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.ErrNotFound
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load timesheet")
	}
	if ts.Status != models.StatusDraft {
		return appErrors.Clone(appErrors.ErrNotEditable, "only draft timesheets can be deleted")
	}
	if ts.CreatedBy != actor.UserID {
		return appErrors.Clone(appErrors.ErrForbidden, "only the creator may delete a draft")
	}
	deleted, err := s.repo.DeleteDraft(ctx, id, actor.UserID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete timesheet")
	}
	if !deleted {
		return appErrors.Clone(appErrors.ErrConcurrencyConflict, "timesheet left draft status before deletion")
	}
	s.emitAudit(ctx, actor, models.AuditActionTimesheetDelete, id)
	return nil
}

// Quote previews a calculation without persisting.
func (s *TimesheetService) Quote(ctx context.Context, req dto.QuoteRequest) (*PayBreakdown, error) {
	sessionDate, err := dto.ParseDate(req.SessionDate)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "sessionDate must be formatted YYYY-MM-DD")
	}
	return s.calculator.Calculate(ctx, PayInput{
		CourseID:      req.CourseID,
		TaskType:      req.TaskType,
		SessionDate:   sessionDate,
		DeliveryHours: req.DeliveryHours,
		IsRepeat:      req.IsRepeat,
		Qualification: req.Qualification,
	})
}

// Config exposes the calculator bounds and task metadata.
func (s *TimesheetService) Config() dto.TimesheetConfigResponse {
	return dto.TimesheetConfigResponse{
		MinHours:         s.calculator.cfg.MinHours,
		MaxHours:         s.calculator.cfg.MaxHours,
		RepeatWindowDays: s.calculator.cfg.RepeatWindowDays,
		TaskTypes: []models.TaskType{
			models.TaskTutorial, models.TaskLecture, models.TaskDemo,
			models.TaskMarking, models.TaskORAA, models.TaskConsultation,
		},
		Qualifications: []models.Qualification{
			models.QualificationStandard, models.QualificationPhD, models.QualificationCoordinator,
		},
	}
}

// parseScheduleDates parses both dates and enforces the Monday policy on each.
func parseScheduleDates(weekStartRaw, sessionRaw string) (time.Time, time.Time, error) {
	weekStart, err := dto.ParseDate(weekStartRaw)
	if err != nil {
		return time.Time{}, time.Time{}, appErrors.Clone(appErrors.ErrValidation, "weekStartDate must be formatted YYYY-MM-DD")
	}
	sessionDate, err := dto.ParseDate(sessionRaw)
	if err != nil {
		return time.Time{}, time.Time{}, appErrors.Clone(appErrors.ErrValidation, "sessionDate must be formatted YYYY-MM-DD")
	}
	if weekStart.Weekday() != time.Monday {
		return time.Time{}, time.Time{}, appErrors.Clone(appErrors.ErrInvalidSchedule,
			fmt.Sprintf("week start date %s does not fall on a Monday", weekStart.Format(dto.DateLayout)))
	}
	return weekStart, sessionDate, nil
}

func (s *TimesheetService) emitAudit(ctx context.Context, actor *models.JWTClaims, action, timesheetID string) {
	if s.audit == nil {
		return
	}
	entry := &models.AuditLog{
		UserID:     &actor.UserID,
		Action:     action,
		Resource:   "timesheet",
		ResourceID: &timesheetID,
	}
	if err := s.audit.CreateAuditLog(ctx, entry); err != nil {
		s.logger.Warn("failed to write audit log", zap.Error(err))
	}
}
