package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/uni-timesheet-api/internal/dto"
	"github.com/noah-isme/uni-timesheet-api/internal/service"
	appErrors "github.com/noah-isme/uni-timesheet-api/pkg/errors"
	"github.com/noah-isme/uni-timesheet-api/pkg/response"
)

// ApprovalHandler exposes workflow actions on timesheets.
type ApprovalHandler struct {
	approvals *service.ApprovalService
}

// NewApprovalHandler creates a new handler.
func NewApprovalHandler(approvals *service.ApprovalService) *ApprovalHandler {
	return &ApprovalHandler{approvals: approvals}
}

// Act godoc
// @Summary Apply workflow action
// @Description Apply a single approval action to a timesheet
// @Tags Approvals
// @Accept json
// @Produce json
// @Param id path string true "Timesheet ID"
// @Param payload body dto.ApprovalActionRequest true "Action payload"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /timesheets/{id}/actions [post]
func (h *ApprovalHandler) Act(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req dto.ApprovalActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid action payload"))
		return
	}

	entry, err := h.approvals.Apply(c.Request.Context(), c.Param("id"), req.Action, claims.UserID, claims.Role, req.Comment)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entry, nil)
}

// History godoc
// @Summary Approval history
// @Description Full approval trail for a timesheet in commit order
// @Tags Approvals
// @Produce json
// @Param id path string true "Timesheet ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /timesheets/{id}/history [get]
func (h *ApprovalHandler) History(c *gin.Context) {
	entries, err := h.approvals.History(c.Request.Context(), c.Param("id"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, nil)
}

// Pending godoc
// @Summary Pending approvals
// @Description Timesheets awaiting the caller's decision
// @Tags Approvals
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /approvals/pending [get]
func (h *ApprovalHandler) Pending(c *gin.Context) {
	queue, err := h.approvals.PendingQueue(c.Request.Context(), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, queue, nil)
}

// ValidActions godoc
// @Summary Valid actions
// @Description Actions currently defined for the timesheet's status
// @Tags Approvals
// @Produce json
// @Param id path string true "Timesheet ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /timesheets/{id}/actions [get]
func (h *ApprovalHandler) ValidActions(c *gin.Context) {
	actions, err := h.approvals.ValidActions(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, actions, nil)
}
