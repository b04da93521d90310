package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"math"
	"os"
	"strings"
	"time"

	"github.com/noah-isme/thesis-pipeline-api/internal/models"
	"github.com/noah-isme/thesis-pipeline-api/internal/repository"
	"github.com/noah-isme/thesis-pipeline-api/internal/similarity"
	"github.com/noah-isme/thesis-pipeline-api/pkg/config"
	"github.com/noah-isme/thesis-pipeline-api/pkg/database"
	"github.com/noah-isme/thesis-pipeline-api/pkg/export"
)

type drift struct {
	Submission *models.ThesisSubmission
	Stored     float64
	Current    float64
	StoredBand models.SimilarityBand
	Band       models.SimilarityBand
}

func (d drift) delta() float64 {
	return d.Current - d.Stored
}

var errDrifted = errors.New("submissions drifted")

func main() {
	if err := run(); err != nil {
		if errors.Is(err, errDrifted) {
			os.Exit(1)
		}
		log.Fatal(err)
	}
}

func run() error {
	var (
		title     string
		abstract  string
		keywords  string
		statuses  string
		tolerance float64
		outPath   string
		strict    bool
		timeout   time.Duration
	)

	flag.StringVar(&title, "title", "", "Score a single candidate title instead of stored submissions")
	flag.StringVar(&abstract, "abstract", "", "Abstract for -title")
	flag.StringVar(&keywords, "keywords", "", "Comma separated keywords for -title")
	flag.StringVar(&statuses, "status", "pending,needs_revision", "Submission statuses to re-score")
	flag.Float64Var(&tolerance, "tolerance", 5, "Score delta reported as drift")
	flag.StringVar(&outPath, "out", "", "Write the drift table as CSV to this path")
	flag.BoolVar(&strict, "strict", false, "Exit non-zero when any submission drifts or changes band")
	flag.DurationVar(&timeout, "timeout", 2*time.Minute, "Overall timeout")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		return fmt.Errorf("connect to postgres: %w", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	corpus, err := repository.NewCorpusRepository(db).List(ctx, models.CorpusFilter{})
	if err != nil {
		return fmt.Errorf("load corpus: %w", err)
	}
	engine := similarity.NewEngine(similarity.ConfigFrom(cfg.Similarity))

	if title != "" {
		result, err := engine.Score(ctx, similarity.Candidate{Title: title, Abstract: abstract, Keywords: splitList(keywords)}, corpus)
		if err != nil {
			return fmt.Errorf("score candidate: %w", err)
		}
		fmt.Printf("overall %.2f (%s) against %d entries\n", result.OverallScore, result.Band, result.CorpusSize)
		for i, m := range result.Matches {
			fmt.Printf("%2d. %-60s %6.2f\n", i+1, truncate(m.Title, 60), m.Score)
		}
		return nil
	}

	filter := models.SubmissionFilter{Page: 1, PageSize: 100}
	for _, status := range splitList(statuses) {
		filter.Status = append(filter.Status, models.SubmissionStatus(status))
	}
	repo := repository.NewSubmissionRepository(db)

	var results []drift
	for {
		submissions, total, err := repo.List(ctx, filter)
		if err != nil {
			return fmt.Errorf("list submissions: %w", err)
		}
		for i := range submissions {
			sub := &submissions[i]
			current, err := engine.Score(ctx, similarity.Candidate{Title: sub.Title, Abstract: sub.Abstract, Keywords: sub.Keywords}, corpus)
			if err != nil {
				return fmt.Errorf("score %s: %w", sub.ID, err)
			}
			results = append(results, drift{
				Submission: sub,
				Stored:     sub.Similarity.OverallScore,
				Current:    current.OverallScore,
				StoredBand: sub.Similarity.Band,
				Band:       current.Band,
			})
		}
		if filter.Page*filter.PageSize >= total || len(submissions) == 0 {
			break
		}
		filter.Page++
	}

	drifted := 0
	for _, r := range results {
		flagged := math.Abs(r.delta()) > tolerance || r.StoredBand != r.Band
		if flagged {
			drifted++
		}
		marker := " "
		if flagged {
			marker = "!"
		}
		fmt.Printf("%s %-36s %-14s %6.2f -> %6.2f (%s -> %s)\n", marker, r.Submission.ID, r.Submission.Status, r.Stored, r.Current, r.StoredBand, r.Band)
	}
	fmt.Printf("\nSummary: %d re-scored, %d drifted (tolerance %.1f, corpus %d)\n", len(results), drifted, tolerance, len(corpus))

	if outPath != "" {
		if err := writeCSV(outPath, results); err != nil {
			return fmt.Errorf("write %s: %w", outPath, err)
		}
	}
	if strict && drifted > 0 {
		return errDrifted
	}
	return nil
}

func writeCSV(path string, results []drift) error {
	data := export.Dataset{Headers: []string{"Submission", "Status", "Stored", "Current", "Delta", "Stored Band", "Band"}}
	for _, r := range results {
		data.Rows = append(data.Rows, map[string]string{
			"Submission":  r.Submission.ID,
			"Status":      string(r.Submission.Status),
			"Stored":      fmt.Sprintf("%.2f", r.Stored),
			"Current":     fmt.Sprintf("%.2f", r.Current),
			"Delta":       fmt.Sprintf("%+.2f", r.delta()),
			"Stored Band": string(r.StoredBand),
			"Band":        string(r.Band),
		})
	}
	body, err := export.NewCSVExporter().Render(data, "")
	if err != nil {
		return err
	}
	return os.WriteFile(path, body, 0o644)
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func truncate(value string, max int) string {
	runes := []rune(value)
	if len(runes) <= max {
		return value
	}
	return string(runes[:max-1]) + "…"
}
