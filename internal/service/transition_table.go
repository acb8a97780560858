package service

import (
	"github.com/noah-isme/uni-timesheet-api/internal/models"
)

// transitionKey identifies a single edge in the approval workflow.
type transitionKey struct {
	From   models.ApprovalStatus
	Action models.ApprovalAction
}

// TransitionRule describes the outcome and authorization of a workflow edge.
// OwnershipChecked entries additionally require a role-appropriate ownership
// check: a TUTOR actor must be the assigned tutor, a LECTURER actor must teach
// the timesheet's course. ADMIN actors are exempt from ownership checks.
type TransitionRule struct {
	Next             models.ApprovalStatus
	Roles            []models.UserRole
	OwnershipChecked bool
}

// Allows reports whether the role is in the rule's allowed set.
func (r TransitionRule) Allows(role models.UserRole) bool {
	for _, allowed := range r.Roles {
		if allowed == role {
			return true
		}
	}
	return false
}

// TransitionTable is the single source of truth for approval workflow
// legality and authorization. Any (status, action) pair without an entry is
// illegal; there is no default transition.
type TransitionTable struct {
	rules map[transitionKey]TransitionRule
}

// NewTransitionTable builds the static workflow table.
func NewTransitionTable() *TransitionTable {
	rules := map[transitionKey]TransitionRule{
		{models.StatusDraft, models.ActionSubmitForApproval}: {
			Next:  models.StatusPendingTutorReview,
			Roles: []models.UserRole{models.RoleLecturer, models.RoleAdmin},
		},
		{models.StatusPendingTutorReview, models.ActionTutorConfirm}: {
			Next:             models.StatusApprovedByTutor,
			Roles:            []models.UserRole{models.RoleTutor},
			OwnershipChecked: true,
		},
		{models.StatusPendingTutorReview, models.ActionReject}: {
			Next:             models.StatusRejected,
			Roles:            []models.UserRole{models.RoleTutor, models.RoleLecturer, models.RoleAdmin},
			OwnershipChecked: true,
		},
		{models.StatusApprovedByTutor, models.ActionLecturerConfirm}: {
			Next:             models.StatusLecturerConfirmed,
			Roles:            []models.UserRole{models.RoleLecturer, models.RoleAdmin},
			OwnershipChecked: true,
		},
		{models.StatusApprovedByTutor, models.ActionReject}: {
			Next:             models.StatusRejected,
			Roles:            []models.UserRole{models.RoleLecturer, models.RoleAdmin},
			OwnershipChecked: true,
		},
		{models.StatusLecturerConfirmed, models.ActionHRConfirm}: {
			Next:  models.StatusFinalConfirmed,
			Roles: []models.UserRole{models.RoleAdmin},
		},
		{models.StatusLecturerConfirmed, models.ActionReject}: {
			Next:  models.StatusRejected,
			Roles: []models.UserRole{models.RoleAdmin},
		},
		{models.StatusRejected, models.ActionSubmitForApproval}: {
			Next:  models.StatusPendingTutorReview,
			Roles: []models.UserRole{models.RoleLecturer, models.RoleAdmin},
		},
		{models.StatusModificationRequested, models.ActionSubmitForApproval}: {
			Next:  models.StatusPendingTutorReview,
			Roles: []models.UserRole{models.RoleLecturer, models.RoleAdmin},
		},
	}

	// Modification requests are accepted from any in-flight review state, but
	// never out of the terminal FINAL_CONFIRMED state.
	for _, from := range []models.ApprovalStatus{
		models.StatusPendingTutorReview,
		models.StatusApprovedByTutor,
		models.StatusLecturerConfirmed,
	} {
		rules[transitionKey{from, models.ActionRequestModification}] = TransitionRule{
			Next:             models.StatusModificationRequested,
			Roles:            []models.UserRole{models.RoleLecturer, models.RoleAdmin},
			OwnershipChecked: true,
		}
	}

	return &TransitionTable{rules: rules}
}

// Lookup returns the rule for the given edge, if one exists.
func (t *TransitionTable) Lookup(from models.ApprovalStatus, action models.ApprovalAction) (TransitionRule, bool) {
	rule, ok := t.rules[transitionKey{From: from, Action: action}]
	return rule, ok
}

// CanTransition reports whether the edge exists at all, regardless of actor.
func (t *TransitionTable) CanTransition(from models.ApprovalStatus, action models.ApprovalAction) bool {
	_, ok := t.Lookup(from, action)
	return ok
}

// NextStatus returns the target status for a legal edge.
func (t *TransitionTable) NextStatus(from models.ApprovalStatus, action models.ApprovalAction) (models.ApprovalStatus, bool) {
	rule, ok := t.Lookup(from, action)
	if !ok {
		return "", false
	}
	return rule.Next, true
}

// ValidActions returns the actions defined for the given status.
func (t *TransitionTable) ValidActions(status models.ApprovalStatus) []models.ApprovalAction {
	actions := make([]models.ApprovalAction, 0, 3)
	for _, action := range models.AllApprovalActions {
		if t.CanTransition(status, action) {
			actions = append(actions, action)
		}
	}
	return actions
}

// IsEditable reports whether timesheet fields may be changed in this status.
func (t *TransitionTable) IsEditable(status models.ApprovalStatus) bool {
	switch status {
	case models.StatusDraft, models.StatusRejected, models.StatusModificationRequested:
		return true
	default:
		return false
	}
}

// IsPending reports whether the status sits in someone's review queue.
func (t *TransitionTable) IsPending(status models.ApprovalStatus) bool {
	switch status {
	case models.StatusPendingTutorReview, models.StatusApprovedByTutor, models.StatusLecturerConfirmed:
		return true
	default:
		return false
	}
}

// QueueStatusFor maps a reviewer role onto the status it acts on.
func (t *TransitionTable) QueueStatusFor(role models.UserRole) (models.ApprovalStatus, bool) {
	switch role {
	case models.RoleTutor:
		return models.StatusPendingTutorReview, true
	case models.RoleLecturer:
		return models.StatusApprovedByTutor, true
	case models.RoleAdmin:
		return models.StatusLecturerConfirmed, true
	default:
		return "", false
	}
}
