package similarity

import (
	"context"
	"math"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/thesis-pipeline-api/internal/models"
	"github.com/noah-isme/thesis-pipeline-api/pkg/config"
	appErrors "github.com/noah-isme/thesis-pipeline-api/pkg/errors"
)

// Config tunes scoring weights, ranking depth and banding.
type Config struct {
	TopK              int
	WeightTitle       float64
	WeightKeywords    float64
	WeightAbstract    float64
	HighThreshold     float64
	MediumThreshold   float64
	Stemmer           string
	ParallelThreshold int
	Workers           int
}

// DefaultConfig mirrors the shipped configuration defaults.
func DefaultConfig() Config {
	return Config{
		TopK:              5,
		WeightTitle:       0.40,
		WeightKeywords:    0.35,
		WeightAbstract:    0.25,
		HighThreshold:     70,
		MediumThreshold:   30,
		Stemmer:           StemmerEnglish,
		ParallelThreshold: 500,
		Workers:           4,
	}
}

// ConfigFrom maps the loaded similarity settings onto an engine Config.
func ConfigFrom(cfg config.SimilarityConfig) Config {
	return Config{
		TopK:              cfg.TopK,
		WeightTitle:       cfg.WeightTitle,
		WeightKeywords:    cfg.WeightKeywords,
		WeightAbstract:    cfg.WeightAbstract,
		HighThreshold:     cfg.HighThreshold,
		MediumThreshold:   cfg.MediumThreshold,
		Stemmer:           cfg.Stemmer,
		ParallelThreshold: cfg.ParallelThreshold,
		Workers:           cfg.Workers,
	}
}

// Candidate is the content being checked.
type Candidate struct {
	Title    string
	Abstract string
	Keywords []string
}

// Engine ranks corpus entries by similarity to a candidate. It holds no
// mutable state and is safe for concurrent use.
type Engine struct {
	cfg       Config
	tokenizer *Tokenizer
	now       func() time.Time
}

// NewEngine constructs an engine, filling zero values from DefaultConfig.
func NewEngine(cfg Config) *Engine {
	def := DefaultConfig()
	if cfg.TopK <= 0 {
		cfg.TopK = def.TopK
	}
	if cfg.WeightTitle < 0 || cfg.WeightKeywords < 0 || cfg.WeightAbstract < 0 ||
		cfg.WeightTitle+cfg.WeightKeywords+cfg.WeightAbstract <= 0 {
		cfg.WeightTitle, cfg.WeightKeywords, cfg.WeightAbstract = def.WeightTitle, def.WeightKeywords, def.WeightAbstract
	}
	if cfg.HighThreshold <= 0 {
		cfg.HighThreshold = def.HighThreshold
	}
	if cfg.MediumThreshold <= 0 || cfg.MediumThreshold > cfg.HighThreshold {
		cfg.MediumThreshold = math.Min(def.MediumThreshold, cfg.HighThreshold)
	}
	if cfg.Stemmer == "" {
		cfg.Stemmer = def.Stemmer
	}
	if cfg.ParallelThreshold <= 0 {
		cfg.ParallelThreshold = def.ParallelThreshold
	}
	if cfg.Workers <= 0 {
		cfg.Workers = def.Workers
	}
	return &Engine{cfg: cfg, tokenizer: NewTokenizer(cfg.Stemmer), now: time.Now}
}

// Band labels a score against the configured thresholds.
func (e *Engine) Band(score float64) models.SimilarityBand {
	switch {
	case score >= e.cfg.HighThreshold:
		return models.SimilarityBandHigh
	case score >= e.cfg.MediumThreshold:
		return models.SimilarityBandMedium
	default:
		return models.SimilarityBandLow
	}
}

// Score compares candidate against every corpus entry and returns the top-K
// ranking. The overall score is the best pairwise score.
func (e *Engine) Score(ctx context.Context, candidate Candidate, corpus []models.CorpusEntry) (*models.SimilarityResult, error) {
	if strings.TrimSpace(candidate.Title) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "title is required")
	}
	profile := e.profile(candidate.Title, candidate.Abstract, candidate.Keywords)

	matches := make([]models.SimilarityMatch, len(corpus))
	if len(corpus) >= e.cfg.ParallelThreshold && e.cfg.Workers > 1 {
		if err := e.scoreParallel(ctx, profile, corpus, matches); err != nil {
			return nil, err
		}
	} else {
		for i := range corpus {
			matches[i] = e.pair(profile, &corpus[i])
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].EntryID < matches[j].EntryID
	})
	if len(matches) > e.cfg.TopK {
		matches = matches[:e.cfg.TopK]
	}

	result := &models.SimilarityResult{
		Matches:    matches,
		CorpusSize: len(corpus),
		ComputedAt: e.now().UTC(),
	}
	if len(matches) > 0 {
		result.OverallScore = matches[0].Score
	}
	result.Band = e.Band(result.OverallScore)
	return result, nil
}

func (e *Engine) scoreParallel(ctx context.Context, profile textProfile, corpus []models.CorpusEntry, out []models.SimilarityMatch) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.Workers)
	chunk := (len(corpus) + e.cfg.Workers - 1) / e.cfg.Workers
	for start := 0; start < len(corpus); start += chunk {
		start, end := start, start+chunk
		if end > len(corpus) {
			end = len(corpus)
		}
		g.Go(func() error {
			for i := start; i < end; i++ {
				if err := ctx.Err(); err != nil {
					return err
				}
				out[i] = e.pair(profile, &corpus[i])
			}
			return nil
		})
	}
	return g.Wait()
}

type textProfile struct {
	title    string
	titleSet map[string]struct{}
	keywords map[string]struct{}
	abstract map[string]float64
}

func (e *Engine) profile(title, abstract string, keywords []string) textProfile {
	p := textProfile{
		title:    Normalize(title),
		titleSet: toSet(e.tokenizer.Tokens(title)),
		keywords: make(map[string]struct{}, len(keywords)),
		abstract: termFrequencies(e.tokenizer.Tokens(abstract)),
	}
	for _, kw := range keywords {
		if term := e.tokenizer.Keyword(kw); term != "" {
			p.keywords[term] = struct{}{}
		}
	}
	return p
}

func (e *Engine) pair(candidate textProfile, entry *models.CorpusEntry) models.SimilarityMatch {
	other := e.profile(entry.Title, entry.Abstract, entry.Keywords)

	titleScore := dice(candidate.titleSet, other.titleSet)
	keywordScore := jaccard(candidate.keywords, other.keywords)
	abstractScore := cosine(candidate.abstract, other.abstract)

	total := e.cfg.WeightTitle + e.cfg.WeightKeywords + e.cfg.WeightAbstract
	combined := (e.cfg.WeightTitle*titleScore + e.cfg.WeightKeywords*keywordScore + e.cfg.WeightAbstract*abstractScore) / total
	if candidate.title != "" && candidate.title == other.title {
		combined = 1
	}

	return models.SimilarityMatch{
		EntryID:       entry.ID,
		Title:         entry.Title,
		Author:        entry.Author,
		Year:          entry.Year,
		Score:         percent(combined),
		TitleScore:    percent(titleScore),
		KeywordScore:  percent(keywordScore),
		AbstractScore: percent(abstractScore),
	}
}

func percent(ratio float64) float64 {
	if ratio < 0 {
		ratio = 0
	}
	if ratio > 1 {
		ratio = 1
	}
	return math.Round(ratio*10000) / 100
}

func toSet(tokens []string) map[string]struct{} {
	set := make(map[string]struct{}, len(tokens))
	for _, token := range tokens {
		set[token] = struct{}{}
	}
	return set
}

func termFrequencies(tokens []string) map[string]float64 {
	tf := make(map[string]float64, len(tokens))
	for _, token := range tokens {
		tf[token]++
	}
	return tf
}

func intersection(a, b map[string]struct{}) int {
	if len(a) > len(b) {
		a, b = b, a
	}
	n := 0
	for term := range a {
		if _, ok := b[term]; ok {
			n++
		}
	}
	return n
}

// dice is 2|A∩B| / (|A|+|B|); empty inputs score 0.
func dice(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	return 2 * float64(intersection(a, b)) / float64(len(a)+len(b))
}

// jaccard is |A∩B| / |A∪B|; empty inputs score 0.
func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	shared := intersection(a, b)
	return float64(shared) / float64(len(a)+len(b)-shared)
}

func cosine(a, b map[string]float64) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for term, weight := range a {
		normA += weight * weight
		if other, ok := b[term]; ok {
			dot += weight * other
		}
	}
	for _, weight := range b {
		normB += weight * weight
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
