package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/thesis-pipeline-api/internal/models"
	appErrors "github.com/noah-isme/thesis-pipeline-api/pkg/errors"
	"github.com/noah-isme/thesis-pipeline-api/pkg/export"
)

type submissionViewer interface {
	Get(ctx context.Context, id string, actor *models.JWTClaims) (*models.ThesisSubmission, error)
}

type datasetRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
	ContentType() string
	Extension() string
}

// ExportFile is a rendered report ready to stream.
type ExportFile struct {
	Filename    string
	ContentType string
	Body        []byte
}

var similarityReportHeaders = []string{"Rank", "Entry ID", "Title", "Author", "Year", "Score", "Title %", "Keyword %", "Abstract %"}

// ExportService renders the similarity snapshot of a submission as CSV or PDF.
type ExportService struct {
	submissions submissionViewer
	renderers   map[string]datasetRenderer
	logger      *zap.Logger
}

// NewExportService constructs an ExportService with the CSV and PDF renderers.
func NewExportService(submissions submissionViewer, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		submissions: submissions,
		renderers: map[string]datasetRenderer{
			"csv": export.NewCSVExporter(),
			"pdf": export.NewPDFExporter(),
		},
		logger: logger,
	}
}

// SimilarityReport renders the stored similarity result of submission id.
func (s *ExportService) SimilarityReport(ctx context.Context, id, format string, actor *models.JWTClaims) (*ExportFile, error) {
	if format == "" {
		format = "pdf"
	}
	renderer, ok := s.renderers[format]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be pdf or csv")
	}
	submission, err := s.submissions.Get(ctx, id, actor)
	if err != nil {
		return nil, err
	}

	body, err := renderer.Render(similarityDataset(submission), "Similarity Report: "+submission.Title)
	if err != nil {
		s.logger.Error("render similarity report", zap.String("submission_id", id), zap.String("format", format), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render report")
	}
	return &ExportFile{
		Filename:    fmt.Sprintf("similarity-%s.%s", submission.ID, renderer.Extension()),
		ContentType: renderer.ContentType(),
		Body:        body,
	}, nil
}

func similarityDataset(submission *models.ThesisSubmission) export.Dataset {
	result := submission.Similarity
	data := export.Dataset{
		Summary: []string{
			"Submission: " + submission.ID,
			"Status: " + string(submission.Status),
			fmt.Sprintf("Overall score: %.2f (%s)", result.OverallScore, result.Band),
			fmt.Sprintf("Corpus size: %d", result.CorpusSize),
		},
		Headers: similarityReportHeaders,
		Rows:    make([]map[string]string, 0, len(result.Matches)),
	}
	if !result.ComputedAt.IsZero() {
		data.Summary = append(data.Summary, "Computed at: "+result.ComputedAt.Format(time.RFC3339))
	}
	for i, match := range result.Matches {
		year := ""
		if match.Year > 0 {
			year = strconv.Itoa(match.Year)
		}
		data.Rows = append(data.Rows, map[string]string{
			"Rank":       strconv.Itoa(i + 1),
			"Entry ID":   match.EntryID,
			"Title":      match.Title,
			"Author":     match.Author,
			"Year":       year,
			"Score":      formatScore(match.Score),
			"Title %":    formatScore(match.TitleScore),
			"Keyword %":  formatScore(match.KeywordScore),
			"Abstract %": formatScore(match.AbstractScore),
		})
	}
	return data
}

func formatScore(score float64) string {
	return strconv.FormatFloat(score, 'f', 2, 64)
}
