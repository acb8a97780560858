package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/uni-timesheet-api/internal/models"
)

// ApprovalRepository persists the append-only approval history and commits
// workflow transitions atomically with their history entry.
type ApprovalRepository struct {
	db *sqlx.DB
}

// NewApprovalRepository constructs the repository.
func NewApprovalRepository(db *sqlx.DB) *ApprovalRepository {
	return &ApprovalRepository{db: db}
}

// TransitionParams groups the data for an atomic status transition.
type TransitionParams struct {
	TimesheetID string
	FromVersion int64
	NextStatus  models.ApprovalStatus
	History     *models.ApprovalHistory
}

// ApplyTransition updates the timesheet status and appends the history row in
// one transaction. The status update is guarded by the optimistic version
// check; a failed check rolls back and returns ErrVersionConflict so no
// history entry can exist without its committed status change.
func (r *ApprovalRepository) ApplyTransition(ctx context.Context, params TransitionParams) error {
	if params.History == nil {
		return fmt.Errorf("apply transition: history entry is required")
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transition tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	now := time.Now().UTC()
	result, err := tx.ExecContext(ctx,
		`UPDATE timesheets SET status = $1, version = version + 1, updated_at = $2 WHERE id = $3 AND version = $4`,
		params.NextStatus, now, params.TimesheetID, params.FromVersion)
	if err != nil {
		return fmt.Errorf("update timesheet status: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check status update rows: %w", err)
	}
	if rows == 0 {
		return ErrVersionConflict
	}

	entry := params.History
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = now
	}
	if _, err := tx.NamedExecContext(ctx,
		`INSERT INTO approval_history (id, timesheet_id, action, actor_id, actor_role, from_status, to_status, comment, created_at)
		 VALUES (:id, :timesheet_id, :action, :actor_id, :actor_role, :from_status, :to_status, :comment, :created_at)`,
		entry); err != nil {
		return fmt.Errorf("append approval history: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transition tx: %w", err)
	}
	return nil
}

// ListByTimesheet returns the history for a timesheet in commit order.
func (r *ApprovalRepository) ListByTimesheet(ctx context.Context, timesheetID string) ([]models.ApprovalHistory, error) {
	const query = `SELECT id, timesheet_id, action, actor_id, actor_role, from_status, to_status, comment, created_at
	 FROM approval_history WHERE timesheet_id = $1 ORDER BY created_at ASC, id ASC`
	var entries []models.ApprovalHistory
	if err := r.db.SelectContext(ctx, &entries, query, timesheetID); err != nil {
		return nil, fmt.Errorf("list approval history: %w", err)
	}
	return entries, nil
}
