package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/uni-timesheet-api/internal/dto"
	"github.com/noah-isme/uni-timesheet-api/internal/models"
	"github.com/noah-isme/uni-timesheet-api/internal/service"
	appErrors "github.com/noah-isme/uni-timesheet-api/pkg/errors"
	"github.com/noah-isme/uni-timesheet-api/pkg/response"
)

// PayrollHandler exposes payroll register export endpoints.
type PayrollHandler struct {
	exports *service.ExportJobService
}

// NewPayrollHandler creates a new handler.
func NewPayrollHandler(exports *service.ExportJobService) *PayrollHandler {
	return &PayrollHandler{exports: exports}
}

// CreateExport godoc
// @Summary Request payroll export
// @Description Queue generation of a payroll register for a period
// @Tags Payroll
// @Accept json
// @Produce json
// @Param payload body dto.ExportRequest true "Export payload"
// @Success 202 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /payroll/exports [post]
func (h *PayrollHandler) CreateExport(c *gin.Context) {
	var req dto.ExportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid export payload"))
		return
	}

	job, err := h.exports.CreateJob(c.Request.Context(), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusAccepted, job, nil)
}

// ExportStatus godoc
// @Summary Export job status
// @Tags Payroll
// @Produce json
// @Param id path string true "Job ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /payroll/exports/{id} [get]
func (h *PayrollHandler) ExportStatus(c *gin.Context) {
	status, err := h.exports.GetStatus(c.Request.Context(), c.Param("id"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, status, nil)
}

// Download godoc
// @Summary Download export
// @Description Stream a generated payroll register by signed token
// @Tags Payroll
// @Produce octet-stream
// @Param token path string true "Download token"
// @Success 200 {file} file
// @Failure 403 {object} response.Envelope
// @Router /payroll/export/{token} [get]
func (h *PayrollHandler) Download(c *gin.Context) {
	download, err := h.exports.ResolveDownload(c.Request.Context(), c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer download.File.Close()

	contentType := "text/csv"
	if download.Format == models.ExportFormatPDF {
		contentType = "application/pdf"
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", download.Filename))
	c.Header("Content-Type", contentType)
	c.File(download.File.Name())
}
