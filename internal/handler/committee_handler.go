package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/thesis-pipeline-api/internal/dto"
	"github.com/noah-isme/thesis-pipeline-api/internal/models"
	appErrors "github.com/noah-isme/thesis-pipeline-api/pkg/errors"
	"github.com/noah-isme/thesis-pipeline-api/pkg/response"
)

type committeeService interface {
	Get(ctx context.Context, id string, actor *models.JWTClaims) (*dto.CommitteeResponse, error)
	GetBySchedule(ctx context.Context, scheduleID string, actor *models.JWTClaims) (*dto.CommitteeResponse, error)
	Assign(ctx context.Context, id, role string, req dto.AssignRoleRequest, actor *models.JWTClaims) (*dto.CommitteeResponse, error)
	Unassign(ctx context.Context, id, role string, req dto.UnassignRoleRequest, actor *models.JWTClaims) (*dto.CommitteeResponse, error)
}

// CommitteeHandler exposes committee role assignment endpoints.
type CommitteeHandler struct {
	service committeeService
}

// NewCommitteeHandler builds the handler.
func NewCommitteeHandler(service committeeService) *CommitteeHandler {
	return &CommitteeHandler{service: service}
}

// Get godoc
// @Summary Get a committee assignment
// @Tags Committees
// @Produce json
// @Param id path string true "Assignment ID"
// @Success 200 {object} response.Envelope
// @Router /committees/{id} [get]
func (h *CommitteeHandler) Get(c *gin.Context) {
	result, err := h.service.Get(c.Request.Context(), c.Param("id"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// GetBySchedule godoc
// @Summary Get the committee of an exam schedule
// @Tags Committees
// @Produce json
// @Param id path string true "Schedule ID"
// @Success 200 {object} response.Envelope
// @Router /exam-schedules/{id}/committee [get]
func (h *CommitteeHandler) GetBySchedule(c *gin.Context) {
	result, err := h.service.GetBySchedule(c.Request.Context(), c.Param("id"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Assign godoc
// @Summary Assign a lecturer to a committee role
// @Tags Committees
// @Accept json
// @Produce json
// @Param id path string true "Assignment ID"
// @Param role path string true "supervisor_1, supervisor_2, chair, secretary or examiner_N"
// @Param payload body dto.AssignRoleRequest true "Lecturer"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /committees/{id}/roles/{role} [put]
func (h *CommitteeHandler) Assign(c *gin.Context) {
	var req dto.AssignRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid assignment payload"))
		return
	}
	result, err := h.service.Assign(c.Request.Context(), c.Param("id"), c.Param("role"), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Unassign godoc
// @Summary Vacate a committee role
// @Tags Committees
// @Produce json
// @Param id path string true "Assignment ID"
// @Param role path string true "Committee role"
// @Param version query int false "Expected assignment version"
// @Success 200 {object} response.Envelope
// @Router /committees/{id}/roles/{role} [delete]
func (h *CommitteeHandler) Unassign(c *gin.Context) {
	var req dto.UnassignRoleRequest
	if raw := c.Query("version"); raw != "" {
		version := parseQueryInt(c, "version", -1)
		if version < 0 {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "version must be a non-negative integer"))
			return
		}
		req.Version = &version
	}
	result, err := h.service.Unassign(c.Request.Context(), c.Param("id"), c.Param("role"), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
