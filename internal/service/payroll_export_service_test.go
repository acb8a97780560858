package service

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/uni-timesheet-api/internal/models"
	"github.com/noah-isme/uni-timesheet-api/pkg/storage"
)

type stubRegisterStore struct {
	rows     []models.PayRegisterRow
	courseID string
}

func (s *stubRegisterStore) ListPayRegister(_ context.Context, _, _ time.Time, courseID string) ([]models.PayRegisterRow, error) {
	s.courseID = courseID
	return s.rows, nil
}

type memoryStorage struct {
	files map[string][]byte
}

func newMemoryStorage() *memoryStorage {
	return &memoryStorage{files: make(map[string][]byte)}
}

func (m *memoryStorage) Save(filename string, data []byte) (string, error) {
	m.files[filename] = data
	return filename, nil
}

func (m *memoryStorage) Open(filename string) (*os.File, error) {
	return nil, os.ErrNotExist
}

func (m *memoryStorage) Delete(filename string) error {
	delete(m.files, filename)
	return nil
}

func (m *memoryStorage) CleanupOlderThan(time.Duration) ([]string, error) {
	return nil, nil
}

func registerRows() []models.PayRegisterRow {
	sessionDate := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	return []models.PayRegisterRow{
		{
			ID: "ts-1", TutorID: "tutor-1", TutorName: "Ada Tutor",
			CourseID: "c1", CourseCode: "COMP1511", SessionDate: sessionDate,
			TaskType: models.TaskTutorial, RateCode: "TU2",
			PayableHours: 3.0, HourlyRate: 58.65, TotalPay: 175.95,
		},
		{
			ID: "ts-2", TutorID: "tutor-2", TutorName: "Bob Tutor",
			CourseID: "c1", CourseCode: "COMP1511", SessionDate: sessionDate,
			TaskType: models.TaskMarking, RateCode: "M05",
			PayableHours: 5.0, HourlyRate: 58.32, TotalPay: 291.60,
		},
	}
}

func exportJobFixture(format models.ExportFormat) *models.ExportJob {
	return &models.ExportJob{
		ID: "job-1",
		Params: models.ExportJobParams{
			PeriodStart: "2024-01-01",
			PeriodEnd:   "2024-01-31",
			Format:      format,
		},
	}
}

func newExporterFixture(rows []models.PayRegisterRow) (*PayrollExportService, *stubRegisterStore, *memoryStorage) {
	store := &stubRegisterStore{rows: rows}
	files := newMemoryStorage()
	signer := storage.NewSignedURLSigner("test-secret", time.Hour)
	svc := NewPayrollExportService(store, files, signer, PayrollExportConfig{
		APIPrefix: "/api/v1",
		ResultTTL: time.Hour,
	}, nil, nil, nil)
	return svc, store, files
}

func TestGenerateCSVRegister(t *testing.T) {
	svc, _, files := newExporterFixture(registerRows())

	result, err := svc.Generate(context.Background(), exportJobFixture(models.ExportFormatCSV))
	require.NoError(t, err)
	assert.Equal(t, models.ExportFormatCSV, result.Format)
	assert.True(t, strings.HasPrefix(result.URL, "/api/v1/payroll/export/"))

	payload, ok := files.files[result.RelativePath]
	require.True(t, ok)
	content := string(payload)
	lines := strings.Split(strings.TrimSpace(content), "\n")
	require.Len(t, lines, 4) // header, two rows, TOTAL
	assert.Contains(t, lines[0], "Payable Hours")
	assert.Contains(t, lines[1], "Ada Tutor")
	assert.Contains(t, lines[1], "175.95")
	assert.Contains(t, lines[3], "TOTAL")
	assert.Contains(t, lines[3], "8.0")
	assert.Contains(t, lines[3], "467.55")
}

func TestGenerateTokenRoundTrip(t *testing.T) {
	svc, _, _ := newExporterFixture(registerRows())

	result, err := svc.Generate(context.Background(), exportJobFixture(models.ExportFormatCSV))
	require.NoError(t, err)

	jobID, relPath, expiresAt, err := svc.ParseToken(result.Token, false)
	require.NoError(t, err)
	assert.Equal(t, "job-1", jobID)
	assert.Equal(t, result.RelativePath, relPath)
	assert.WithinDuration(t, result.ExpiresAt, expiresAt, time.Second)
}

func TestGeneratePDFRegister(t *testing.T) {
	svc, _, files := newExporterFixture(registerRows())

	result, err := svc.Generate(context.Background(), exportJobFixture(models.ExportFormatPDF))
	require.NoError(t, err)
	payload, ok := files.files[result.RelativePath]
	require.True(t, ok)
	assert.True(t, strings.HasPrefix(string(payload), "%PDF"))
}

func TestGenerateAppliesCourseFilter(t *testing.T) {
	svc, store, _ := newExporterFixture(nil)

	job := exportJobFixture(models.ExportFormatCSV)
	courseID := "c1"
	job.Params.CourseID = &courseID
	_, err := svc.Generate(context.Background(), job)
	require.NoError(t, err)
	assert.Equal(t, "c1", store.courseID)
}

func TestGenerateRejectsUnknownFormat(t *testing.T) {
	svc, _, _ := newExporterFixture(nil)

	job := exportJobFixture(models.ExportFormat("xlsx"))
	_, err := svc.Generate(context.Background(), job)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported format")
}

func TestGenerateRejectsBadPeriod(t *testing.T) {
	svc, _, _ := newExporterFixture(nil)

	job := exportJobFixture(models.ExportFormatCSV)
	job.Params.PeriodStart = "January 1"
	_, err := svc.Generate(context.Background(), job)
	require.Error(t, err)
}
