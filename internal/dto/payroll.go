package dto

import "github.com/noah-isme/uni-timesheet-api/internal/models"

// ExportRequest asks for a payroll register covering a week-start period.
type ExportRequest struct {
	PeriodStart string              `json:"periodStart" validate:"required"`
	PeriodEnd   string              `json:"periodEnd" validate:"required"`
	CourseID    *string             `json:"courseId,omitempty"`
	Format      models.ExportFormat `json:"format" validate:"required"`
}

// ExportJobResponse acknowledges an accepted export job.
type ExportJobResponse struct {
	ID       string              `json:"id"`
	Status   models.ExportStatus `json:"status"`
	Progress int                 `json:"progress"`
}

// ExportStatusResponse reports job progress and the download URL once ready.
type ExportStatusResponse struct {
	ID        string              `json:"id"`
	Status    models.ExportStatus `json:"status"`
	Progress  int                 `json:"progress"`
	ResultURL *string             `json:"result_url,omitempty"`
	Error     *string             `json:"error,omitempty"`
}
