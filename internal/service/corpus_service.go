package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/thesis-pipeline-api/internal/dto"
	"github.com/noah-isme/thesis-pipeline-api/internal/models"
	appErrors "github.com/noah-isme/thesis-pipeline-api/pkg/errors"
)

const corpusCachePrefix = "corpus:"

type corpusReader interface {
	List(ctx context.Context, filter models.CorpusFilter) ([]models.CorpusEntry, error)
}

// CorpusService provides read-through access to the thesis corpus.
type CorpusService struct {
	repo   corpusReader
	cache  *CacheService
	ttl    time.Duration
	logger *zap.Logger
}

// NewCorpusService constructs the service. cache may be nil.
func NewCorpusService(repo corpusReader, cache *CacheService, ttl time.Duration, logger *zap.Logger) *CorpusService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CorpusService{repo: repo, cache: cache, ttl: ttl, logger: logger}
}

// Entries returns the corpus for field, or the whole corpus when field is
// empty. Read failures surface as an Unavailable error.
func (s *CorpusService) Entries(ctx context.Context, field string) ([]models.CorpusEntry, error) {
	key := corpusCachePrefix + "all"
	if field != "" {
		key = corpusCachePrefix + "field:" + field
	}

	var cached []models.CorpusEntry
	if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
		return cached, nil
	}

	entries, err := s.repo.List(ctx, models.CorpusFilter{Field: field})
	if err != nil {
		s.logger.Error("corpus read failed", zap.String("field", field), zap.Error(err))
		return nil, appErrors.Unavailable(err, "thesis corpus unavailable")
	}
	if entries == nil {
		entries = []models.CorpusEntry{}
	}
	_ = s.cache.Set(ctx, key, entries, s.ttl)
	return entries, nil
}

// Invalidate drops cached corpus snapshots.
func (s *CorpusService) Invalidate(ctx context.Context) error {
	return s.cache.Invalidate(ctx, corpusCachePrefix+"*")
}

// Refresh drops cached snapshots and reloads the whole corpus so newly
// published theses take part in the next similarity check.
func (s *CorpusService) Refresh(ctx context.Context) (*dto.CorpusRefreshResponse, error) {
	if err := s.Invalidate(ctx); err != nil {
		return nil, appErrors.Unavailable(err, "corpus cache unavailable")
	}
	entries, err := s.Entries(ctx, "")
	if err != nil {
		return nil, err
	}
	s.logger.Info("corpus cache refreshed", zap.Int("entries", len(entries)))
	return &dto.CorpusRefreshResponse{Entries: len(entries)}, nil
}
