package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/uni-timesheet-api/internal/models"
)

func TestTransitionTableHappyPath(t *testing.T) {
	table := NewTransitionTable()

	steps := []struct {
		from   models.ApprovalStatus
		action models.ApprovalAction
		next   models.ApprovalStatus
	}{
		{models.StatusDraft, models.ActionSubmitForApproval, models.StatusPendingTutorReview},
		{models.StatusPendingTutorReview, models.ActionTutorConfirm, models.StatusApprovedByTutor},
		{models.StatusApprovedByTutor, models.ActionLecturerConfirm, models.StatusLecturerConfirmed},
		{models.StatusLecturerConfirmed, models.ActionHRConfirm, models.StatusFinalConfirmed},
	}
	for _, step := range steps {
		next, ok := table.NextStatus(step.from, step.action)
		require.True(t, ok, "expected %s to accept %s", step.from, step.action)
		assert.Equal(t, step.next, next)
	}
}

func TestTransitionTableUndefinedPairsAreIllegal(t *testing.T) {
	table := NewTransitionTable()

	legal := map[transitionKey]bool{
		{models.StatusDraft, models.ActionSubmitForApproval}:                   true,
		{models.StatusPendingTutorReview, models.ActionTutorConfirm}:           true,
		{models.StatusPendingTutorReview, models.ActionReject}:                 true,
		{models.StatusPendingTutorReview, models.ActionRequestModification}:    true,
		{models.StatusApprovedByTutor, models.ActionLecturerConfirm}:           true,
		{models.StatusApprovedByTutor, models.ActionReject}:                    true,
		{models.StatusApprovedByTutor, models.ActionRequestModification}:       true,
		{models.StatusLecturerConfirmed, models.ActionHRConfirm}:               true,
		{models.StatusLecturerConfirmed, models.ActionReject}:                  true,
		{models.StatusLecturerConfirmed, models.ActionRequestModification}:     true,
		{models.StatusRejected, models.ActionSubmitForApproval}:                true,
		{models.StatusModificationRequested, models.ActionSubmitForApproval}:   true,
	}

	for _, status := range models.AllApprovalStatuses {
		for _, action := range models.AllApprovalActions {
			got := table.CanTransition(status, action)
			want := legal[transitionKey{status, action}]
			assert.Equal(t, want, got, "(%s, %s)", status, action)
		}
	}
}

func TestTransitionTableFinalConfirmedIsTerminal(t *testing.T) {
	table := NewTransitionTable()
	assert.Empty(t, table.ValidActions(models.StatusFinalConfirmed))
}

func TestTransitionTableRoleSets(t *testing.T) {
	table := NewTransitionTable()

	rule, ok := table.Lookup(models.StatusPendingTutorReview, models.ActionTutorConfirm)
	require.True(t, ok)
	assert.True(t, rule.Allows(models.RoleTutor))
	assert.False(t, rule.Allows(models.RoleLecturer))
	assert.False(t, rule.Allows(models.RoleAdmin))
	assert.True(t, rule.OwnershipChecked)

	rule, ok = table.Lookup(models.StatusLecturerConfirmed, models.ActionHRConfirm)
	require.True(t, ok)
	assert.True(t, rule.Allows(models.RoleAdmin))
	assert.False(t, rule.Allows(models.RoleLecturer))
	assert.False(t, rule.OwnershipChecked)
}

func TestTransitionTableEditableStates(t *testing.T) {
	table := NewTransitionTable()

	editable := []models.ApprovalStatus{models.StatusDraft, models.StatusRejected, models.StatusModificationRequested}
	for _, status := range editable {
		assert.True(t, table.IsEditable(status), string(status))
	}
	for _, status := range []models.ApprovalStatus{
		models.StatusPendingTutorReview, models.StatusApprovedByTutor,
		models.StatusLecturerConfirmed, models.StatusFinalConfirmed,
	} {
		assert.False(t, table.IsEditable(status), string(status))
	}
}

func TestQueueStatusFor(t *testing.T) {
	table := NewTransitionTable()

	status, ok := table.QueueStatusFor(models.RoleTutor)
	require.True(t, ok)
	assert.Equal(t, models.StatusPendingTutorReview, status)

	status, ok = table.QueueStatusFor(models.RoleLecturer)
	require.True(t, ok)
	assert.Equal(t, models.StatusApprovedByTutor, status)

	status, ok = table.QueueStatusFor(models.RoleAdmin)
	require.True(t, ok)
	assert.Equal(t, models.StatusLecturerConfirmed, status)

	_, ok = table.QueueStatusFor(models.UserRole("GUEST"))
	assert.False(t, ok)
}
