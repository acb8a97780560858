package models

import "time"

// TaskType enumerates the Schedule 1 casual academic activities.
type TaskType string

const (
	TaskTutorial     TaskType = "TUTORIAL"
	TaskLecture      TaskType = "LECTURE"
	TaskDemo         TaskType = "DEMO"
	TaskMarking      TaskType = "MARKING"
	TaskORAA         TaskType = "ORAA"
	TaskConsultation TaskType = "CONSULTATION"
)

// Qualification represents the tutor pay band.
type Qualification string

const (
	QualificationStandard    Qualification = "STANDARD"
	QualificationPhD         Qualification = "PHD"
	QualificationCoordinator Qualification = "COORDINATOR"
)

// Normalize maps an empty or unknown qualification onto the standard band.
func (q Qualification) Normalize() Qualification {
	switch q {
	case QualificationStandard, QualificationPhD, QualificationCoordinator:
		return q
	default:
		return QualificationStandard
	}
}

// IsHighBand reports whether the qualification attracts the PhD-band rates.
func (q Qualification) IsHighBand() bool {
	n := q.Normalize()
	return n == QualificationPhD || n == QualificationCoordinator
}

// Timesheet represents a single week/session of tutoring work submitted for payment.
// PayableHours, HourlyRate and TotalPay are derived by the pay calculator and
// recomputed on every create/update; they are never hand-edited.
type Timesheet struct {
	ID            string         `db:"id" json:"id"`
	TutorID       string         `db:"tutor_id" json:"tutor_id"`
	CourseID      string         `db:"course_id" json:"course_id"`
	CreatedBy     string         `db:"created_by" json:"created_by"`
	WeekStartDate time.Time      `db:"week_start_date" json:"week_start_date"`
	SessionDate   time.Time      `db:"session_date" json:"session_date"`
	TaskType      TaskType       `db:"task_type" json:"task_type"`
	DeliveryHours float64        `db:"delivery_hours" json:"delivery_hours"`
	Qualification Qualification  `db:"qualification" json:"qualification"`
	IsRepeat      bool           `db:"is_repeat" json:"is_repeat"`
	RateCode      string         `db:"rate_code" json:"rate_code"`
	PayableHours  float64        `db:"payable_hours" json:"payable_hours"`
	HourlyRate    float64        `db:"hourly_rate" json:"hourly_rate"`
	TotalPay      float64        `db:"total_pay" json:"total_pay"`
	Description   string         `db:"description" json:"description"`
	Status        ApprovalStatus `db:"status" json:"status"`
	Version       int64          `db:"version" json:"version"`
	CreatedAt     time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time      `db:"updated_at" json:"updated_at"`
}

// PayRegisterRow is one line of the payroll register export, joining a
// confirmed timesheet with tutor and course identities.
type PayRegisterRow struct {
	ID           string    `db:"id"`
	TutorID      string    `db:"tutor_id"`
	TutorName    string    `db:"tutor_name"`
	CourseID     string    `db:"course_id"`
	CourseCode   string    `db:"course_code"`
	SessionDate  time.Time `db:"session_date"`
	TaskType     TaskType  `db:"task_type"`
	RateCode     string    `db:"rate_code"`
	PayableHours float64   `db:"payable_hours"`
	HourlyRate   float64   `db:"hourly_rate"`
	TotalPay     float64   `db:"total_pay"`
}

// TimesheetFilter constrains listing queries.
type TimesheetFilter struct {
	TutorID   string
	CourseID  string
	CreatedBy string
	Status    []ApprovalStatus
	WeekStart *time.Time
	Page      int
	PageSize  int
}
