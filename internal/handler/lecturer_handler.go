package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/thesis-pipeline-api/internal/dto"
	"github.com/noah-isme/thesis-pipeline-api/internal/models"
	"github.com/noah-isme/thesis-pipeline-api/pkg/response"
)

type lecturerService interface {
	List(ctx context.Context, query dto.LecturerQuery) ([]models.Lecturer, *models.Pagination, error)
}

// LecturerHandler exposes the lecturer directory.
type LecturerHandler struct {
	service lecturerService
}

// NewLecturerHandler builds the handler.
func NewLecturerHandler(service lecturerService) *LecturerHandler {
	return &LecturerHandler{service: service}
}

// List godoc
// @Summary List active lecturers
// @Tags Lecturers
// @Produce json
// @Param department query string false "Department"
// @Param search query string false "Name or expertise"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /lecturers [get]
func (h *LecturerHandler) List(c *gin.Context) {
	query := dto.LecturerQuery{
		Department: c.Query("department"),
		Search:     strings.TrimSpace(c.Query("search")),
		Page:       parseQueryInt(c, "page", 1),
		PageSize:   parseQueryInt(c, "limit", 20),
	}
	items, pagination, err := h.service.List(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, pagination)
}
