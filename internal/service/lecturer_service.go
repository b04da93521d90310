package service

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"github.com/noah-isme/thesis-pipeline-api/internal/dto"
	"github.com/noah-isme/thesis-pipeline-api/internal/models"
	appErrors "github.com/noah-isme/thesis-pipeline-api/pkg/errors"
)

type lecturerRepository interface {
	List(ctx context.Context, filter models.LecturerFilter) ([]models.Lecturer, int, error)
	FindByID(ctx context.Context, id string) (*models.Lecturer, error)
}

// LecturerService exposes the read-only lecturer directory.
type LecturerService struct {
	repo   lecturerRepository
	logger *zap.Logger
}

// NewLecturerService constructs the service.
func NewLecturerService(repo lecturerRepository, logger *zap.Logger) *LecturerService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LecturerService{repo: repo, logger: logger}
}

// List returns active lecturers.
func (s *LecturerService) List(ctx context.Context, query dto.LecturerQuery) ([]models.Lecturer, *models.Pagination, error) {
	filter := models.LecturerFilter{Department: query.Department, Search: query.Search, Page: query.Page, PageSize: query.PageSize}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 || filter.PageSize > 100 {
		filter.PageSize = 20
	}
	lecturers, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Unavailable(err, "lecturer directory unavailable")
	}
	return lecturers, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}

// Active returns the lecturer when it exists and is active.
func (s *LecturerService) Active(ctx context.Context, id string) (*models.Lecturer, error) {
	lecturer, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "lecturer not found")
		}
		return nil, appErrors.Unavailable(err, "lecturer directory unavailable")
	}
	if !lecturer.Active {
		return nil, appErrors.Clone(appErrors.ErrValidation, "lecturer is not active")
	}
	return lecturer, nil
}
