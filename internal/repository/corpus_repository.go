package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/thesis-pipeline-api/internal/models"
)

// CorpusRepository reads the published thesis corpus.
type CorpusRepository struct {
	db *sqlx.DB
}

// NewCorpusRepository constructs the repository.
func NewCorpusRepository(db *sqlx.DB) *CorpusRepository {
	return &CorpusRepository{db: db}
}

// List returns every corpus entry, optionally narrowed to one field of study.
func (r *CorpusRepository) List(ctx context.Context, filter models.CorpusFilter) ([]models.CorpusEntry, error) {
	query := `SELECT id, title, abstract, keywords, field, author, year, created_at FROM thesis_corpus`
	args := make([]interface{}, 0, 1)
	if filter.Field != "" {
		args = append(args, filter.Field)
		query += " WHERE field = $1"
	}
	query += " ORDER BY id"

	var entries []models.CorpusEntry
	if err := r.db.SelectContext(ctx, &entries, query, args...); err != nil {
		return nil, fmt.Errorf("list thesis corpus: %w", err)
	}
	return entries, nil
}

// GetByID fetches a single corpus entry.
func (r *CorpusRepository) GetByID(ctx context.Context, id string) (*models.CorpusEntry, error) {
	const query = `SELECT id, title, abstract, keywords, field, author, year, created_at FROM thesis_corpus WHERE id = $1`
	var entry models.CorpusEntry
	if err := r.db.GetContext(ctx, &entry, query, id); err != nil {
		return nil, err
	}
	return &entry, nil
}
