package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/stemsi/prepexam/internal/config"
	"github.com/stemsi/prepexam/internal/database"
	"github.com/stemsi/prepexam/internal/engine"
	"github.com/stemsi/prepexam/internal/logger"
	"github.com/stemsi/prepexam/internal/model"
	"github.com/stemsi/prepexam/internal/repository"
)

// catalogQuestion is one entry of a question catalog file.
type catalogQuestion struct {
	Question      string   `json:"question"`
	QuestionHindi string   `json:"question_hindi"`
	Options       []string `json:"options"`
	OptionsHindi  []string `json:"options_hindi"`
	CorrectAnswer int      `json:"correct_answer"`
}

// catalog is the file layout: paper settings plus its questions in order.
type catalog struct {
	Title             string                `json:"title"`
	DurationMinutes   int                   `json:"duration_minutes"`
	PassingPercentage float64               `json:"passing_percentage"`
	MarkingScheme     *engine.MarkingScheme `json:"marking_scheme"`
	Questions         []catalogQuestion     `json:"questions"`
}

func main() {
	file := flag.String("file", "", "Path to the question catalog JSON")
	dryRun := flag.Bool("dry-run", false, "Validate the catalog without writing")
	flag.Parse()

	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)

	if *file == "" {
		fmt.Println("Usage: seed-paper -file catalog.json [-dry-run]")
		os.Exit(2)
	}

	raw, err := os.ReadFile(*file)
	if err != nil {
		log.Fatal().Err(err).Str("file", *file).Msg("Failed to read catalog")
	}

	var cat catalog
	if err := json.Unmarshal(raw, &cat); err != nil {
		log.Fatal().Err(err).Msg("Failed to parse catalog")
	}

	defaultScheme := engine.MarkingScheme{
		Correct:     cfg.MarkCorrect,
		Incorrect:   cfg.MarkIncorrect,
		Unattempted: cfg.MarkUnattempted,
	}
	paper, err := cat.toPaper(defaultScheme)
	if err != nil {
		log.Fatal().Err(err).Msg("Catalog rejected")
	}
	if err := paper.MarkingScheme.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Catalog rejected")
	}

	log.Info().
		Str("title", paper.Title).
		Int("questions", len(paper.Questions)).
		Int("duration_seconds", paper.DurationSeconds).
		Msg("Catalog valid")
	if *dryRun {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	if err := repository.NewPaperRepository(pool).Create(ctx, paper); err != nil {
		log.Fatal().Err(err).Msg("Failed to insert paper")
	}

	fmt.Printf("Created paper %s with %d questions\n", paper.ID, len(paper.Questions))
}

func (c catalog) toPaper(defaultScheme engine.MarkingScheme) (*model.Paper, error) {
	p := &model.Paper{
		Title:             c.Title,
		DurationSeconds:   c.DurationMinutes * 60,
		MarkingScheme:     defaultScheme,
		PassingPercentage: c.PassingPercentage,
		Questions:         make([]model.PaperQuestion, len(c.Questions)),
	}
	if c.MarkingScheme != nil {
		p.MarkingScheme = *c.MarkingScheme
	}
	if p.Title == "" {
		return nil, fmt.Errorf("%w: title is required", model.ErrInvalidPaper)
	}

	for i, q := range c.Questions {
		if len(q.OptionsHindi) != 0 && len(q.OptionsHindi) != len(q.Options) {
			return nil, fmt.Errorf("%w: question %d has %d options but %d translations",
				model.ErrInvalidPaper, i+1, len(q.Options), len(q.OptionsHindi))
		}
		opts := make([]engine.Option, len(q.Options))
		for j, o := range q.Options {
			opts[j] = engine.Option{Primary: o}
			if len(q.OptionsHindi) > 0 {
				opts[j].Secondary = q.OptionsHindi[j]
			}
		}
		// Catalog rows have no IDs yet; positions keep Validate's
		// duplicate check meaningful until the database assigns them.
		p.Questions[i] = model.PaperQuestion{
			ID:                 i + 1,
			OrderNum:           i + 1,
			PromptPrimary:      q.Question,
			PromptSecondary:    q.QuestionHindi,
			Options:            opts,
			CorrectOptionIndex: q.CorrectAnswer,
		}
	}

	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}
