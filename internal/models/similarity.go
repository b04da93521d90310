package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"
)

// CorpusEntry is a published thesis used as a similarity reference.
type CorpusEntry struct {
	ID        string         `db:"id" json:"id"`
	Title     string         `db:"title" json:"title"`
	Abstract  string         `db:"abstract" json:"abstract"`
	Keywords  pq.StringArray `db:"keywords" json:"keywords"`
	Field     string         `db:"field" json:"field"`
	Author    string         `db:"author" json:"author"`
	Year      int            `db:"year" json:"year"`
	CreatedAt time.Time      `db:"created_at" json:"createdAt"`
}

// CorpusFilter narrows corpus reads.
type CorpusFilter struct {
	Field string
}

// SimilarityBand is an informational label derived from the overall score.
type SimilarityBand string

const (
	SimilarityBandLow    SimilarityBand = "low"
	SimilarityBandMedium SimilarityBand = "medium"
	SimilarityBandHigh   SimilarityBand = "high"
)

// SimilarityMatch is one ranked corpus entry with its pairwise score.
type SimilarityMatch struct {
	EntryID       string  `json:"entryId"`
	Title         string  `json:"title"`
	Author        string  `json:"author,omitempty"`
	Year          int     `json:"year,omitempty"`
	Score         float64 `json:"score"`
	TitleScore    float64 `json:"titleScore"`
	KeywordScore  float64 `json:"keywordScore"`
	AbstractScore float64 `json:"abstractScore"`
}

// SimilarityResult is the scoring snapshot attached to a submission.
type SimilarityResult struct {
	OverallScore float64           `json:"overallScore"`
	Band         SimilarityBand    `json:"band"`
	Matches      []SimilarityMatch `json:"matches"`
	CorpusSize   int               `json:"corpusSize"`
	ComputedAt   time.Time         `json:"computedAt"`
}

// Value implements driver.Valuer storing the snapshot as JSON.
func (r SimilarityResult) Value() (driver.Value, error) {
	if r.Matches == nil {
		r.Matches = []SimilarityMatch{}
	}
	payload, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("marshal similarity result: %w", err)
	}
	return payload, nil
}

// Scan implements sql.Scanner for JSON columns.
func (r *SimilarityResult) Scan(src interface{}) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*r = SimilarityResult{Matches: []SimilarityMatch{}}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("unsupported similarity column type %T", src)
	}
	if len(raw) == 0 {
		*r = SimilarityResult{Matches: []SimilarityMatch{}}
		return nil
	}
	return json.Unmarshal(raw, r)
}
