package dto

import (
	"time"

	"github.com/noah-isme/uni-timesheet-api/internal/models"
)

// DateLayout is the wire format for calendar dates.
const DateLayout = "2006-01-02"

// CreateTimesheetRequest payload for creating a draft timesheet.
type CreateTimesheetRequest struct {
	TutorID       string               `json:"tutorId" validate:"required"`
	CourseID      string               `json:"courseId" validate:"required"`
	WeekStartDate string               `json:"weekStartDate" validate:"required"`
	SessionDate   string               `json:"sessionDate" validate:"required"`
	TaskType      models.TaskType      `json:"taskType" validate:"required"`
	DeliveryHours float64              `json:"deliveryHours" validate:"required,gt=0"`
	IsRepeat      bool                 `json:"isRepeat"`
	Qualification models.Qualification `json:"qualification"`
	Description   string               `json:"description"`
}

// UpdateTimesheetRequest payload for editing an editable timesheet. Pay fields
// are recomputed server-side; they cannot be supplied.
type UpdateTimesheetRequest struct {
	WeekStartDate string               `json:"weekStartDate" validate:"required"`
	SessionDate   string               `json:"sessionDate" validate:"required"`
	TaskType      models.TaskType      `json:"taskType" validate:"required"`
	DeliveryHours float64              `json:"deliveryHours" validate:"required,gt=0"`
	IsRepeat      bool                 `json:"isRepeat"`
	Qualification models.Qualification `json:"qualification"`
	Description   string               `json:"description"`
}

// QuoteRequest previews a Schedule 1 calculation without persisting anything.
type QuoteRequest struct {
	CourseID      string               `json:"courseId" validate:"required"`
	SessionDate   string               `json:"sessionDate" validate:"required"`
	TaskType      models.TaskType      `json:"taskType" validate:"required"`
	DeliveryHours float64              `json:"deliveryHours" validate:"required,gt=0"`
	IsRepeat      bool                 `json:"isRepeat"`
	Qualification models.Qualification `json:"qualification"`
}

// ApprovalActionRequest carries a workflow action and optional comment.
type ApprovalActionRequest struct {
	Action  models.ApprovalAction `json:"action" validate:"required"`
	Comment string                `json:"comment"`
}

// TimesheetQuery mirrors supported listing filters.
type TimesheetQuery struct {
	TutorID  string
	CourseID string
	Status   []models.ApprovalStatus
	Page     int
	PageSize int
}

// TimesheetConfigResponse exposes validation bounds and task metadata so the
// client can mirror server-side rules.
type TimesheetConfigResponse struct {
	MinHours         float64                `json:"min_hours"`
	MaxHours         float64                `json:"max_hours"`
	RepeatWindowDays int                    `json:"repeat_window_days"`
	TaskTypes        []models.TaskType      `json:"task_types"`
	Qualifications   []models.Qualification `json:"qualifications"`
}

// ParseDate parses a wire-format date.
func ParseDate(raw string) (time.Time, error) {
	return time.Parse(DateLayout, raw)
}
