package models

import "time"

// ApprovalStatus captures the workflow state of a timesheet.
type ApprovalStatus string

const (
	StatusDraft                 ApprovalStatus = "DRAFT"
	StatusPendingTutorReview    ApprovalStatus = "PENDING_TUTOR_REVIEW"
	StatusApprovedByTutor       ApprovalStatus = "APPROVED_BY_TUTOR"
	StatusLecturerConfirmed     ApprovalStatus = "LECTURER_CONFIRMED"
	StatusFinalConfirmed        ApprovalStatus = "FINAL_CONFIRMED"
	StatusRejected              ApprovalStatus = "REJECTED"
	StatusModificationRequested ApprovalStatus = "MODIFICATION_REQUESTED"
)

// AllApprovalStatuses lists every workflow state.
var AllApprovalStatuses = []ApprovalStatus{
	StatusDraft,
	StatusPendingTutorReview,
	StatusApprovedByTutor,
	StatusLecturerConfirmed,
	StatusFinalConfirmed,
	StatusRejected,
	StatusModificationRequested,
}

// ApprovalAction enumerates the operations that move a timesheet between states.
type ApprovalAction string

const (
	ActionSubmitForApproval   ApprovalAction = "SUBMIT_FOR_APPROVAL"
	ActionTutorConfirm        ApprovalAction = "TUTOR_CONFIRM"
	ActionLecturerConfirm     ApprovalAction = "LECTURER_CONFIRM"
	ActionHRConfirm           ApprovalAction = "HR_CONFIRM"
	ActionReject              ApprovalAction = "REJECT"
	ActionRequestModification ApprovalAction = "REQUEST_MODIFICATION"
)

// AllApprovalActions lists every workflow action.
var AllApprovalActions = []ApprovalAction{
	ActionSubmitForApproval,
	ActionTutorConfirm,
	ActionLecturerConfirm,
	ActionHRConfirm,
	ActionReject,
	ActionRequestModification,
}

// ApprovalHistory is the append-only audit trail for applied workflow actions.
// Rows are never mutated or deleted; commit order matches logical status order.
type ApprovalHistory struct {
	ID          string         `db:"id" json:"id"`
	TimesheetID string         `db:"timesheet_id" json:"timesheet_id"`
	Action      ApprovalAction `db:"action" json:"action"`
	ActorID     string         `db:"actor_id" json:"actor_id"`
	ActorRole   UserRole       `db:"actor_role" json:"actor_role"`
	FromStatus  ApprovalStatus `db:"from_status" json:"from_status"`
	ToStatus    ApprovalStatus `db:"to_status" json:"to_status"`
	Comment     *string        `db:"comment" json:"comment,omitempty"`
	CreatedAt   time.Time      `db:"created_at" json:"created_at"`
}
