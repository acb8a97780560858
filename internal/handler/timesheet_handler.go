package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/uni-timesheet-api/internal/dto"
	"github.com/noah-isme/uni-timesheet-api/internal/models"
	"github.com/noah-isme/uni-timesheet-api/internal/service"
	appErrors "github.com/noah-isme/uni-timesheet-api/pkg/errors"
	"github.com/noah-isme/uni-timesheet-api/pkg/response"
)

// TimesheetHandler wires HTTP endpoints to the timesheet lifecycle service.
type TimesheetHandler struct {
	service *service.TimesheetService
}

// NewTimesheetHandler creates a new handler.
func NewTimesheetHandler(svc *service.TimesheetService) *TimesheetHandler {
	return &TimesheetHandler{service: svc}
}

// Create godoc
// @Summary Create timesheet
// @Description Create a draft timesheet with server-computed pay
// @Tags Timesheets
// @Accept json
// @Produce json
// @Param payload body dto.CreateTimesheetRequest true "Timesheet payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /timesheets [post]
func (h *TimesheetHandler) Create(c *gin.Context) {
	var req dto.CreateTimesheetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid timesheet payload"))
		return
	}

	ts, err := h.service.Create(c.Request.Context(), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, ts)
}

// Update godoc
// @Summary Update timesheet
// @Description Edit an editable timesheet; pay is recomputed
// @Tags Timesheets
// @Accept json
// @Produce json
// @Param id path string true "Timesheet ID"
// @Param payload body dto.UpdateTimesheetRequest true "Timesheet payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /timesheets/{id} [put]
func (h *TimesheetHandler) Update(c *gin.Context) {
	var req dto.UpdateTimesheetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid timesheet payload"))
		return
	}

	ts, err := h.service.Update(c.Request.Context(), c.Param("id"), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, ts, nil)
}

// Get godoc
// @Summary Get timesheet
// @Tags Timesheets
// @Produce json
// @Param id path string true "Timesheet ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /timesheets/{id} [get]
func (h *TimesheetHandler) Get(c *gin.Context) {
	ts, err := h.service.Get(c.Request.Context(), c.Param("id"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, ts, nil)
}

// List godoc
// @Summary List timesheets
// @Description List timesheets scoped to the caller's role
// @Tags Timesheets
// @Produce json
// @Param tutorId query string false "Filter by tutor"
// @Param courseId query string false "Filter by course"
// @Param status query string false "Comma-separated status filter"
// @Param page query int false "Page"
// @Param pageSize query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /timesheets [get]
func (h *TimesheetHandler) List(c *gin.Context) {
	query := dto.TimesheetQuery{
		TutorID:  c.Query("tutorId"),
		CourseID: c.Query("courseId"),
	}
	if raw := c.Query("status"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			if part = strings.TrimSpace(part); part != "" {
				query.Status = append(query.Status, models.ApprovalStatus(part))
			}
		}
	}
	query.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	query.PageSize, _ = strconv.Atoi(c.DefaultQuery("pageSize", "20"))

	timesheets, pagination, err := h.service.List(c.Request.Context(), query, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, timesheets, pagination)
}

// Delete godoc
// @Summary Delete draft timesheet
// @Description Delete a draft owned by the caller
// @Tags Timesheets
// @Param id path string true "Timesheet ID"
// @Success 204 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /timesheets/{id} [delete]
func (h *TimesheetHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id"), claimsFromContext(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Quote godoc
// @Summary Quote pay
// @Description Preview a pay calculation without persisting
// @Tags Timesheets
// @Accept json
// @Produce json
// @Param payload body dto.QuoteRequest true "Quote payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /timesheets/quote [post]
func (h *TimesheetHandler) Quote(c *gin.Context) {
	var req dto.QuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid quote payload"))
		return
	}

	breakdown, err := h.service.Quote(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, breakdown, nil)
}

// Config godoc
// @Summary Timesheet configuration
// @Description Validation bounds and task metadata for clients
// @Tags Timesheets
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /timesheets/config [get]
func (h *TimesheetHandler) Config(c *gin.Context) {
	response.JSON(c, http.StatusOK, h.service.Config(), nil)
}
