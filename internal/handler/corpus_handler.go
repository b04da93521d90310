package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/thesis-pipeline-api/internal/dto"
	"github.com/noah-isme/thesis-pipeline-api/pkg/response"
)

type corpusService interface {
	Refresh(ctx context.Context) (*dto.CorpusRefreshResponse, error)
}

// CorpusHandler manages the cached thesis corpus.
type CorpusHandler struct {
	service corpusService
}

// NewCorpusHandler builds the handler.
func NewCorpusHandler(service corpusService) *CorpusHandler {
	return &CorpusHandler{service: service}
}

// Refresh godoc
// @Summary Drop the cached corpus and reload it
// @Tags Thesis
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 503 {object} response.Envelope
// @Router /thesis/corpus/refresh [post]
func (h *CorpusHandler) Refresh(c *gin.Context) {
	result, err := h.service.Refresh(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
