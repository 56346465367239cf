package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/stemsi/prepexam/internal/cache"
	"github.com/stemsi/prepexam/internal/engine"
	"github.com/stemsi/prepexam/internal/model"
)

// PaperStore is the durable source of papers.
type PaperStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Paper, error)
}

// PaperService loads papers for attempts. A prefetched copy is used once if
// present; otherwise the paper comes from PostgreSQL.
type PaperService struct {
	store         PaperStore
	cache         cache.PaperCache
	ttl           time.Duration
	defaultScheme engine.MarkingScheme
	log           zerolog.Logger
}

// NewPaperService creates a new PaperService. defaultScheme applies to
// papers stored without their own marking scheme.
func NewPaperService(
	store PaperStore,
	paperCache cache.PaperCache,
	ttl time.Duration,
	defaultScheme engine.MarkingScheme,
	log zerolog.Logger,
) *PaperService {
	return &PaperService{
		store:         store,
		cache:         paperCache,
		ttl:           ttl,
		defaultScheme: defaultScheme,
		log:           log.With().Str("component", "paper_service").Logger(),
	}
}

// Prefetch reads the paper from PostgreSQL and parks it in the cache so the
// next Load skips the database.
func (s *PaperService) Prefetch(ctx context.Context, id uuid.UUID) (*model.PaperSummary, error) {
	paper, err := s.fromStore(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Prefetch(ctx, paper, s.ttl); err != nil {
		return nil, fmt.Errorf("prefetch paper: %w", err)
	}

	s.log.Debug().
		Str("paper_id", id.String()).
		Int("questions", len(paper.Questions)).
		Dur("ttl", s.ttl).
		Msg("Paper prefetched")

	summary := paper.Summary()
	return &summary, nil
}

// Load consumes a prefetched copy or falls back to PostgreSQL.
func (s *PaperService) Load(ctx context.Context, id uuid.UUID) (*model.Paper, error) {
	paper, err := s.cache.Take(ctx, id)
	switch {
	case err == nil:
		verr := s.prepare(paper)
		if verr == nil {
			return paper, nil
		}
		s.log.Warn().Err(verr).Str("paper_id", id.String()).Msg("Discarding invalid prefetched paper")
	case errors.Is(err, cache.ErrMiss):
	default:
		s.log.Warn().Err(err).Str("paper_id", id.String()).Msg("Prefetch cache unavailable, reading from database")
	}
	return s.fromStore(ctx, id)
}

// Invalidate drops any prefetched copy of the paper.
func (s *PaperService) Invalidate(ctx context.Context, id uuid.UUID) error {
	return s.cache.Invalidate(ctx, id)
}

// GetSummary returns paper metadata without questions or the answer key.
func (s *PaperService) GetSummary(ctx context.Context, id uuid.UUID) (*model.PaperSummary, error) {
	paper, err := s.fromStore(ctx, id)
	if err != nil {
		return nil, err
	}
	summary := paper.Summary()
	return &summary, nil
}

func (s *PaperService) fromStore(ctx context.Context, id uuid.UUID) (*model.Paper, error) {
	paper, err := s.store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPaperNotFound
		}
		return nil, fmt.Errorf("get paper: %w", err)
	}
	if err := s.prepare(paper); err != nil {
		return nil, err
	}
	return paper, nil
}

func (s *PaperService) prepare(paper *model.Paper) error {
	if paper.MarkingScheme == (engine.MarkingScheme{}) {
		paper.MarkingScheme = s.defaultScheme
	}
	return paper.Validate()
}
