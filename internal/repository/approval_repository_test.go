package repository

import (
	"context"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/uni-timesheet-api/internal/models"
)

func transitionFixture() TransitionParams {
	return TransitionParams{
		TimesheetID: "ts-1",
		FromVersion: 2,
		NextStatus:  models.StatusPendingTutorReview,
		History: &models.ApprovalHistory{
			TimesheetID: "ts-1",
			Action:      models.ActionSubmitForApproval,
			ActorID:     "lecturer-1",
			ActorRole:   models.RoleLecturer,
			FromStatus:  models.StatusDraft,
			ToStatus:    models.StatusPendingTutorReview,
		},
	}
}

func TestApplyTransitionCommitsStatusAndHistory(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewApprovalRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE timesheets SET status").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO approval_history").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	params := transitionFixture()
	err := repo.ApplyTransition(context.Background(), params)
	require.NoError(t, err)
	assert.NotEmpty(t, params.History.ID)
	assert.False(t, params.History.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplyTransitionRollsBackOnVersionConflict(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewApprovalRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE timesheets SET status").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.ApplyTransition(context.Background(), transitionFixture())
	require.ErrorIs(t, err, ErrVersionConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplyTransitionRequiresHistory(t *testing.T) {
	db, _, cleanup := newMock(t)
	defer cleanup()
	repo := NewApprovalRepository(db)

	params := transitionFixture()
	params.History = nil
	err := repo.ApplyTransition(context.Background(), params)
	require.Error(t, err)
}

func TestListByTimesheetOrdersByCommit(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewApprovalRepository(db)

	mock.ExpectQuery("SELECT (.+) FROM approval_history WHERE timesheet_id").
		WithArgs("ts-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "timesheet_id", "action", "from_status", "to_status"}).
			AddRow("h1", "ts-1", string(models.ActionSubmitForApproval), string(models.StatusDraft), string(models.StatusPendingTutorReview)).
			AddRow("h2", "ts-1", string(models.ActionTutorConfirm), string(models.StatusPendingTutorReview), string(models.StatusApprovedByTutor)))

	entries, err := repo.ListByTimesheet(context.Background(), "ts-1")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, models.ActionSubmitForApproval, entries[0].Action)
	assert.Equal(t, models.StatusApprovedByTutor, entries[1].ToStatus)
	assert.NoError(t, mock.ExpectationsWereMet())
}
