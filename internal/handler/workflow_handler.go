package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/thesis-pipeline-api/internal/models"
	"github.com/noah-isme/thesis-pipeline-api/pkg/response"
)

type workflowService interface {
	PendingCounts(ctx context.Context, actor *models.JWTClaims) (*models.PendingCounts, error)
}

// WorkflowHandler exposes the reviewer dashboard counters.
type WorkflowHandler struct {
	service workflowService
}

// NewWorkflowHandler builds the handler.
func NewWorkflowHandler(service workflowService) *WorkflowHandler {
	return &WorkflowHandler{service: service}
}

// PendingCounts godoc
// @Summary Outstanding work across the pipeline
// @Tags Workflow
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /workflow/pending-counts [get]
func (h *WorkflowHandler) PendingCounts(c *gin.Context) {
	counts, err := h.service.PendingCounts(c.Request.Context(), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, counts, nil)
}
