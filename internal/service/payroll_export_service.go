package service

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/uni-timesheet-api/internal/dto"
	"github.com/noah-isme/uni-timesheet-api/internal/models"
	"github.com/noah-isme/uni-timesheet-api/pkg/export"
	"github.com/noah-isme/uni-timesheet-api/pkg/storage"
)

type payRegisterStore interface {
	ListPayRegister(ctx context.Context, periodStart, periodEnd time.Time, courseID string) ([]models.PayRegisterRow, error)
}

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// PayrollExportConfig tunes export behaviour.
type PayrollExportConfig struct {
	APIPrefix string
	ResultTTL time.Duration
}

// ExportResult captures successful generation metadata.
type ExportResult struct {
	RelativePath string
	Token        string
	URL          string
	Format       models.ExportFormat
	ExpiresAt    time.Time
}

// PayrollExportService renders payroll registers from fully confirmed
// timesheets and persists the generated files behind signed download tokens.
type PayrollExportService struct {
	timesheets payRegisterStore
	storage    fileStorage
	csv        csvRenderer
	pdf        pdfRenderer
	signer     *storage.SignedURLSigner
	logger     *zap.Logger
	cfg        PayrollExportConfig
}

// NewPayrollExportService constructs the service.
func NewPayrollExportService(timesheets payRegisterStore, store fileStorage, signer *storage.SignedURLSigner, cfg PayrollExportConfig, logger *zap.Logger, csv csvRenderer, pdf pdfRenderer) *PayrollExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &PayrollExportService{
		timesheets: timesheets,
		storage:    store,
		csv:        csv,
		pdf:        pdf,
		signer:     signer,
		logger:     logger,
		cfg:        cfg,
	}
}

var registerHeaders = []string{"Tutor", "Course", "Session Date", "Task", "Rate Code", "Payable Hours", "Hourly Rate", "Total Pay"}

// Generate builds the register for the job's period and stores the rendered file.
func (s *PayrollExportService) Generate(ctx context.Context, job *models.ExportJob) (*ExportResult, error) {
	if job == nil {
		return nil, fmt.Errorf("job nil")
	}
	periodStart, err := dto.ParseDate(job.Params.PeriodStart)
	if err != nil {
		return nil, fmt.Errorf("invalid period start: %w", err)
	}
	periodEnd, err := dto.ParseDate(job.Params.PeriodEnd)
	if err != nil {
		return nil, fmt.Errorf("invalid period end: %w", err)
	}

	courseID := ""
	if job.Params.CourseID != nil {
		courseID = *job.Params.CourseID
	}
	rows, err := s.timesheets.ListPayRegister(ctx, periodStart, periodEnd, courseID)
	if err != nil {
		return nil, err
	}

	dataset, title := buildRegisterDataset(rows, job.Params.PeriodStart, job.Params.PeriodEnd)

	var payload []byte
	switch job.Params.Format {
	case models.ExportFormatCSV:
		payload, err = s.csv.Render(dataset)
	case models.ExportFormatPDF:
		payload, err = s.pdf.Render(dataset, title)
	default:
		err = fmt.Errorf("unsupported format %s", job.Params.Format)
	}
	if err != nil {
		return nil, err
	}

	filename := fmt.Sprintf("pay_register_%s_%s_%s.%s",
		job.Params.PeriodStart, job.Params.PeriodEnd,
		time.Now().UTC().Format("20060102_150405"), job.Params.Format)
	relPath, err := s.storage.Save(filename, payload)
	if err != nil {
		return nil, err
	}

	token, expiresAt, err := s.signer.Generate(job.ID, relPath)
	if err != nil {
		return nil, err
	}
	prefix := strings.TrimRight(s.cfg.APIPrefix, "/")
	if prefix == "" {
		prefix = "/api/v1"
	}

	return &ExportResult{
		RelativePath: relPath,
		Token:        token,
		URL:          fmt.Sprintf("%s/payroll/export/%s", prefix, token),
		Format:       job.Params.Format,
		ExpiresAt:    expiresAt,
	}, nil
}

// ParseToken validates download token metadata.
func (s *PayrollExportService) ParseToken(token string, allowExpired bool) (jobID, relPath string, expiresAt time.Time, err error) {
	return s.signer.Parse(token, allowExpired)
}

// Open returns a handle to the stored file.
func (s *PayrollExportService) Open(relPath string) (*os.File, error) {
	return s.storage.Open(relPath)
}

// Delete removes a stored export file.
func (s *PayrollExportService) Delete(relPath string) error {
	return s.storage.Delete(relPath)
}

// Cleanup removes files older than ttl (defaults to configured ResultTTL when ttl <= 0).
func (s *PayrollExportService) Cleanup(ttl time.Duration) ([]string, error) {
	if ttl <= 0 {
		ttl = s.cfg.ResultTTL
	}
	return s.storage.CleanupOlderThan(ttl)
}

func buildRegisterDataset(rows []models.PayRegisterRow, periodStart, periodEnd string) (export.Dataset, string) {
	dataRows := make([]map[string]string, 0, len(rows)+1)
	var totalHours, totalPay float64
	for _, row := range rows {
		dataRows = append(dataRows, map[string]string{
			"Tutor":         row.TutorName,
			"Course":        row.CourseCode,
			"Session Date":  row.SessionDate.Format(dto.DateLayout),
			"Task":          string(row.TaskType),
			"Rate Code":     row.RateCode,
			"Payable Hours": fmt.Sprintf("%.1f", row.PayableHours),
			"Hourly Rate":   fmt.Sprintf("%.2f", row.HourlyRate),
			"Total Pay":     fmt.Sprintf("%.2f", row.TotalPay),
		})
		totalHours += row.PayableHours
		totalPay += row.TotalPay
	}
	dataRows = append(dataRows, map[string]string{
		"Tutor":         "TOTAL",
		"Payable Hours": fmt.Sprintf("%.1f", totalHours),
		"Total Pay":     fmt.Sprintf("%.2f", totalPay),
	})
	dataset := export.Dataset{Headers: registerHeaders, Rows: dataRows}
	title := fmt.Sprintf("Pay Register %s to %s", periodStart, periodEnd)
	return dataset, title
}
