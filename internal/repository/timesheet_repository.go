package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/uni-timesheet-api/internal/models"
)

// ErrVersionConflict signals that an optimistic version check failed because
// the row changed since it was read.
var ErrVersionConflict = errors.New("timesheet version conflict")

const timesheetColumns = `id, tutor_id, course_id, created_by, week_start_date, session_date, task_type,
       delivery_hours, qualification, is_repeat, rate_code, payable_hours, hourly_rate, total_pay,
       description, status, version, created_at, updated_at`

// TimesheetRepository persists timesheet rows.
type TimesheetRepository struct {
	db *sqlx.DB
}

// NewTimesheetRepository constructs the repository.
func NewTimesheetRepository(db *sqlx.DB) *TimesheetRepository {
	return &TimesheetRepository{db: db}
}

// Create inserts a new timesheet row.
func (r *TimesheetRepository) Create(ctx context.Context, ts *models.Timesheet) error {
	if ts.ID == "" {
		ts.ID = uuid.NewString()
	}
	if ts.Status == "" {
		ts.Status = models.StatusDraft
	}
	now := time.Now().UTC()
	if ts.CreatedAt.IsZero() {
		ts.CreatedAt = now
	}
	ts.UpdatedAt = now
	ts.Version = 1
	const query = `INSERT INTO timesheets
	(id, tutor_id, course_id, created_by, week_start_date, session_date, task_type, delivery_hours,
	 qualification, is_repeat, rate_code, payable_hours, hourly_rate, total_pay, description, status,
	 version, created_at, updated_at)
	VALUES (:id, :tutor_id, :course_id, :created_by, :week_start_date, :session_date, :task_type, :delivery_hours,
	 :qualification, :is_repeat, :rate_code, :payable_hours, :hourly_rate, :total_pay, :description, :status,
	 :version, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, ts); err != nil {
		return fmt.Errorf("create timesheet: %w", err)
	}
	return nil
}

// GetByID fetches a timesheet by identifier.
func (r *TimesheetRepository) GetByID(ctx context.Context, id string) (*models.Timesheet, error) {
	query := `SELECT ` + timesheetColumns + ` FROM timesheets WHERE id = $1`
	var ts models.Timesheet
	if err := r.db.GetContext(ctx, &ts, query, id); err != nil {
		return nil, err
	}
	return &ts, nil
}

// List returns timesheets matching the filter with a total count.
func (r *TimesheetRepository) List(ctx context.Context, filter models.TimesheetFilter) ([]models.Timesheet, int, error) {
	conditions := make([]string, 0, 5)
	args := make([]interface{}, 0, 6)

	if filter.TutorID != "" {
		args = append(args, filter.TutorID)
		conditions = append(conditions, fmt.Sprintf("tutor_id = $%d", len(args)))
	}
	if filter.CourseID != "" {
		args = append(args, filter.CourseID)
		conditions = append(conditions, fmt.Sprintf("course_id = $%d", len(args)))
	}
	if filter.CreatedBy != "" {
		args = append(args, filter.CreatedBy)
		conditions = append(conditions, fmt.Sprintf("created_by = $%d", len(args)))
	}
	if len(filter.Status) > 0 {
		placeholders := make([]string, len(filter.Status))
		for i, status := range filter.Status {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		conditions = append(conditions, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.WeekStart != nil {
		args = append(args, *filter.WeekStart)
		conditions = append(conditions, fmt.Sprintf("week_start_date = $%d", len(args)))
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM timesheets"+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count timesheets: %w", err)
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}

	query := "SELECT " + timesheetColumns + " FROM timesheets" + where +
		fmt.Sprintf(" ORDER BY week_start_date DESC, created_at DESC LIMIT %d OFFSET %d", pageSize, (page-1)*pageSize)

	var timesheets []models.Timesheet
	if err := r.db.SelectContext(ctx, &timesheets, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list timesheets: %w", err)
	}
	return timesheets, total, nil
}

// Update persists edited fields and the recomputed pay in a single statement
// guarded by the optimistic version check.
func (r *TimesheetRepository) Update(ctx context.Context, ts *models.Timesheet) error {
	const query = `UPDATE timesheets SET
	 week_start_date = :week_start_date, session_date = :session_date, task_type = :task_type,
	 delivery_hours = :delivery_hours, qualification = :qualification, is_repeat = :is_repeat,
	 rate_code = :rate_code, payable_hours = :payable_hours, hourly_rate = :hourly_rate,
	 total_pay = :total_pay, description = :description, status = :status,
	 version = version + 1, updated_at = :updated_at
	 WHERE id = :id AND version = :version`
	ts.UpdatedAt = time.Now().UTC()
	result, err := r.db.NamedExecContext(ctx, query, ts)
	if err != nil {
		return fmt.Errorf("update timesheet: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check timesheet update rows: %w", err)
	}
	if rows == 0 {
		return ErrVersionConflict
	}
	ts.Version++
	return nil
}

// DeleteDraft removes a timesheet only while it is a draft owned by the deleter.
func (r *TimesheetRepository) DeleteDraft(ctx context.Context, id, createdBy string) (bool, error) {
	const query = `DELETE FROM timesheets WHERE id = $1 AND created_by = $2 AND status = $3`
	result, err := r.db.ExecContext(ctx, query, id, createdBy, models.StatusDraft)
	if err != nil {
		return false, fmt.Errorf("delete draft timesheet: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("check timesheet delete rows: %w", err)
	}
	return rows > 0, nil
}

// ListPayRegister returns fully confirmed timesheets inside the period joined
// with tutor and course identities, ordered for the payroll register.
func (r *TimesheetRepository) ListPayRegister(ctx context.Context, periodStart, periodEnd time.Time, courseID string) ([]models.PayRegisterRow, error) {
	query := `SELECT t.id, t.tutor_id, u.full_name AS tutor_name, t.course_id, c.code AS course_code,
	 t.session_date, t.task_type, t.rate_code, t.payable_hours, t.hourly_rate, t.total_pay
	 FROM timesheets t
	 JOIN users u ON u.id = t.tutor_id
	 JOIN courses c ON c.id = t.course_id
	 WHERE t.status = $1 AND t.week_start_date >= $2 AND t.week_start_date <= $3`
	args := []interface{}{models.StatusFinalConfirmed, periodStart, periodEnd}
	if courseID != "" {
		args = append(args, courseID)
		query += fmt.Sprintf(" AND t.course_id = $%d", len(args))
	}
	query += " ORDER BY u.full_name ASC, t.session_date ASC"

	var rows []models.PayRegisterRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list pay register: %w", err)
	}
	return rows, nil
}

// HasRecentSession reports whether a session of the same task type exists for
// the course within the trailing window ending at the given date.
func (r *TimesheetRepository) HasRecentSession(ctx context.Context, courseID string, taskType models.TaskType, before time.Time, windowDays int) (bool, error) {
	const query = `SELECT EXISTS (
	 SELECT 1 FROM timesheets
	 WHERE course_id = $1 AND task_type = $2 AND session_date >= $3 AND session_date < $4)`
	windowStart := before.AddDate(0, 0, -windowDays)
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, courseID, taskType, windowStart, before); err != nil {
		return false, fmt.Errorf("check recent session: %w", err)
	}
	return exists, nil
}
