package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/thesis-pipeline-api/internal/dto"
	"github.com/noah-isme/thesis-pipeline-api/internal/middleware"
	"github.com/noah-isme/thesis-pipeline-api/internal/models"
	"github.com/noah-isme/thesis-pipeline-api/internal/service"
	appErrors "github.com/noah-isme/thesis-pipeline-api/pkg/errors"
	"github.com/noah-isme/thesis-pipeline-api/pkg/response"
)

type submissionService interface {
	Submit(ctx context.Context, req dto.SubmitThesisRequest, actor *models.JWTClaims) (*dto.SubmitThesisResponse, error)
	Resubmit(ctx context.Context, id string, req dto.ResubmitThesisRequest, actor *models.JWTClaims) (*models.ThesisSubmission, error)
	Review(ctx context.Context, id string, req dto.ReviewSubmissionRequest, actor *models.JWTClaims) (*dto.ReviewSubmissionResponse, error)
	Withdraw(ctx context.Context, id string, req dto.WithdrawSubmissionRequest, actor *models.JWTClaims) (*models.ThesisSubmission, error)
	Get(ctx context.Context, id string, actor *models.JWTClaims) (*models.ThesisSubmission, error)
	List(ctx context.Context, query dto.SubmissionQuery, actor *models.JWTClaims) ([]models.ThesisSubmission, *models.Pagination, error)
	CheckSimilarity(ctx context.Context, req dto.SimilarityCheckRequest) (*models.SimilarityResult, error)
}

type similarityExporter interface {
	SimilarityReport(ctx context.Context, id, format string, actor *models.JWTClaims) (*service.ExportFile, error)
}

// SubmissionHandler exposes thesis title submission endpoints.
type SubmissionHandler struct {
	service  submissionService
	exporter similarityExporter
}

// NewSubmissionHandler builds the handler.
func NewSubmissionHandler(service submissionService, exporter similarityExporter) *SubmissionHandler {
	return &SubmissionHandler{service: service, exporter: exporter}
}

// Submit godoc
// @Summary Submit a thesis title
// @Tags Thesis
// @Accept json
// @Produce json
// @Param payload body dto.SubmitThesisRequest true "Submission payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /thesis/submissions [post]
func (h *SubmissionHandler) Submit(c *gin.Context) {
	var req dto.SubmitThesisRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid submission payload"))
		return
	}
	result, err := h.service.Submit(c.Request.Context(), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// Resubmit godoc
// @Summary Resubmit a title after revision feedback
// @Tags Thesis
// @Accept json
// @Produce json
// @Param id path string true "Submission ID"
// @Param payload body dto.ResubmitThesisRequest true "Revised title"
// @Success 200 {object} response.Envelope
// @Router /thesis/submissions/{id} [put]
func (h *SubmissionHandler) Resubmit(c *gin.Context) {
	var req dto.ResubmitThesisRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid resubmission payload"))
		return
	}
	submission, err := h.service.Resubmit(c.Request.Context(), c.Param("id"), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, submission, nil)
}

// Review godoc
// @Summary Review a pending submission
// @Tags Thesis
// @Accept json
// @Produce json
// @Param id path string true "Submission ID"
// @Param payload body dto.ReviewSubmissionRequest true "Review decision"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /thesis/submissions/{id}/review [post]
func (h *SubmissionHandler) Review(c *gin.Context) {
	var req dto.ReviewSubmissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid review payload"))
		return
	}
	result, err := h.service.Review(c.Request.Context(), c.Param("id"), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Withdraw godoc
// @Summary Withdraw a submission
// @Tags Thesis
// @Accept json
// @Produce json
// @Param id path string true "Submission ID"
// @Param payload body dto.WithdrawSubmissionRequest false "Withdrawal reason"
// @Success 200 {object} response.Envelope
// @Router /thesis/submissions/{id}/withdraw [post]
func (h *SubmissionHandler) Withdraw(c *gin.Context) {
	var req dto.WithdrawSubmissionRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid withdraw payload"))
			return
		}
	}
	submission, err := h.service.Withdraw(c.Request.Context(), c.Param("id"), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, submission, nil)
}

// Get godoc
// @Summary Get a submission
// @Tags Thesis
// @Produce json
// @Param id path string true "Submission ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /thesis/submissions/{id} [get]
func (h *SubmissionHandler) Get(c *gin.Context) {
	submission, err := h.service.Get(c.Request.Context(), c.Param("id"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, submission, nil)
}

// List godoc
// @Summary List submissions
// @Tags Thesis
// @Produce json
// @Param status query string false "Comma separated statuses"
// @Param studentId query string false "Student filter"
// @Param programId query string false "Program filter"
// @Param stage query string false "proposal, result or final"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /thesis/submissions [get]
func (h *SubmissionHandler) List(c *gin.Context) {
	query := dto.SubmissionQuery{
		StudentID: c.Query("studentId"),
		ProgramID: c.Query("programId"),
		Stage:     models.ExamType(strings.ToLower(c.Query("stage"))),
		Page:      parseQueryInt(c, "page", 1),
		PageSize:  parseQueryInt(c, "limit", 20),
	}
	for _, status := range queryList(c, "status") {
		query.Status = append(query.Status, models.SubmissionStatus(strings.ToLower(status)))
	}
	items, pagination, err := h.service.List(c.Request.Context(), query, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, pagination, middleware.ExtractMeta(c))
}

// SimilarityReport godoc
// @Summary Download the similarity report of a submission
// @Tags Thesis
// @Produce application/pdf
// @Produce text/csv
// @Param id path string true "Submission ID"
// @Param format query string false "pdf (default) or csv"
// @Success 200 {file} file
// @Router /thesis/submissions/{id}/similarity-report [get]
func (h *SubmissionHandler) SimilarityReport(c *gin.Context) {
	if h.exporter == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "report export not configured"))
		return
	}
	file, err := h.exporter.SimilarityReport(c.Request.Context(), c.Param("id"), strings.ToLower(c.Query("format")), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Body)
}

// CheckSimilarity godoc
// @Summary Score a candidate title without storing it
// @Tags Thesis
// @Accept json
// @Produce json
// @Param payload body dto.SimilarityCheckRequest true "Candidate title"
// @Success 200 {object} response.Envelope
// @Failure 503 {object} response.Envelope
// @Router /thesis/similarity/check [post]
func (h *SubmissionHandler) CheckSimilarity(c *gin.Context) {
	var req dto.SimilarityCheckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid similarity payload"))
		return
	}
	result, err := h.service.CheckSimilarity(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetMeta(c, "corpus_size", result.CorpusSize)
	response.JSON(c, http.StatusOK, result, nil, middleware.ExtractMeta(c))
}
