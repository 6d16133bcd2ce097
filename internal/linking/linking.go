// Package linking finds cases that describe the same or related incidents and records the relationships
// between them.
package linking

import (
	"context"
	"fmt"
	"github.com/google/uuid"
	"github.com/myrjola/caselink/internal/errors"
	"github.com/myrjola/caselink/internal/logging"
	"github.com/myrjola/caselink/internal/models"
	"github.com/myrjola/caselink/internal/similarity"
	"log/slog"
	"slices"
	"strings"
	"time"
)

const (
	DefaultCandidatePoolSize = 100
	DefaultLimit             = 10
	DefaultAutoLinkThreshold = 0.75
	// AutoLinkCreator is recorded as the creator of relationships made by [Service.AutoLink].
	AutoLinkCreator = "system"
)

// Similarity factors in the order they are evaluated.
const (
	FactorSemantic      = "semantic"
	FactorLocation      = "location"
	FactorTimeProximity = "time_proximity"
	FactorMO            = "mo"
)

// CaseStore reads cases and persists relationships. Getters return nil without error when nothing matches.
type CaseStore interface {
	GetCase(ctx context.Context, id string) (*models.Case, error)
	ListCases(ctx context.Context, limit int) ([]models.Case, error)
	// SaveRelationship reports false when a relationship for the same unordered pair already exists.
	SaveRelationship(ctx context.Context, rel models.CaseRelationship) (bool, error)
	GetRelationships(ctx context.Context, caseID string) ([]models.CaseRelationship, error)
	RelationshipExists(ctx context.Context, caseA, caseB string) (*models.CaseRelationship, error)
	DeleteRelationship(ctx context.Context, id string) (bool, error)
}

// Embedder turns text into a fixed-length vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}

// SimilarityResult is a candidate case that matched the query case on at least one factor.
type SimilarityResult struct {
	CaseID          string             `json:"case_id"`
	CaseNumber      string             `json:"case_number"`
	Title           string             `json:"title"`
	SimilarityScore float64            `json:"similarity_score"`
	MatchingFactors []string           `json:"matching_factors"`
	FactorScores    map[string]float64 `json:"factor_scores"`
}

// Matches reports whether factor contributed to the result.
func (r SimilarityResult) Matches(factor string) bool {
	return slices.Contains(r.MatchingFactors, factor)
}

// RelationshipParams describes a relationship to create.
type RelationshipParams struct {
	CaseAID    string
	CaseBID    string
	Type       models.RelationshipType
	Reason     models.LinkReason
	Notes      string
	Confidence float64
	CreatedBy  string
}

// Options tune a Service. Zero values select the defaults.
type Options struct {
	// CandidatePoolSize bounds how many cases are compared per query.
	CandidatePoolSize int
	// Now is the clock used for relationship timestamps.
	Now func() time.Time
}

// Service links related cases. It keeps no state between calls, all durable state lives in the CaseStore.
type Service struct {
	store    CaseStore
	embedder Embedder
	logger   *slog.Logger
	poolSize int
	now      func() time.Time
}

// NewService creates a Service. embedder may be nil, in which case the semantic factor always scores 0.
func NewService(store CaseStore, embedder Embedder, logger *slog.Logger, opts Options) *Service {
	if opts.CandidatePoolSize <= 0 {
		opts.CandidatePoolSize = DefaultCandidatePoolSize
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Service{
		store:    store,
		embedder: embedder,
		logger:   logger.With("source", "CaseLinkingService"),
		poolSize: opts.CandidatePoolSize,
		now:      opts.Now,
	}
}

// CreateRelationship links two cases. It returns the existing relationship when the unordered pair is already
// linked, and nil when the request is invalid or a case does not exist. Failures are logged.
func (s *Service) CreateRelationship(ctx context.Context, params RelationshipParams) *models.CaseRelationship {
	ctx = logging.WithAttrs(ctx,
		slog.String("case_a_id", params.CaseAID), slog.String("case_b_id", params.CaseBID))

	if params.CaseAID == "" || params.CaseBID == "" {
		s.logger.LogAttrs(ctx, slog.LevelWarn, "relationship needs two case ids")
		return nil
	}
	if params.CaseAID == params.CaseBID {
		s.logger.LogAttrs(ctx, slog.LevelWarn, "cannot link a case to itself")
		return nil
	}
	if !params.Type.Valid() || !params.Reason.Valid() {
		s.logger.LogAttrs(ctx, slog.LevelWarn, "invalid relationship",
			slog.String("relationship_type", string(params.Type)), slog.String("link_reason", string(params.Reason)))
		return nil
	}

	existing, err := s.store.RelationshipExists(ctx, params.CaseAID, params.CaseBID)
	if err != nil {
		s.logger.LogAttrs(ctx, slog.LevelError, "could not check existing relationship", errors.SlogError(err))
		return nil
	}
	if existing != nil {
		s.logger.LogAttrs(ctx, slog.LevelInfo, "relationship already exists", slog.String("relationship_id", existing.ID))
		return existing
	}

	for _, id := range []string{params.CaseAID, params.CaseBID} {
		var c *models.Case
		if c, err = s.store.GetCase(ctx, id); err != nil {
			s.logger.LogAttrs(ctx, slog.LevelError, "could not read case", slog.String("lookup_case_id", id),
				errors.SlogError(err))
			return nil
		}
		if c == nil {
			s.logger.LogAttrs(ctx, slog.LevelWarn, "case not found", slog.String("lookup_case_id", id))
			return nil
		}
	}

	rel := models.CaseRelationship{
		ID:               uuid.NewString(),
		CaseAID:          params.CaseAID,
		CaseBID:          params.CaseBID,
		RelationshipType: params.Type,
		LinkReason:       params.Reason,
		Confidence:       clamp01(params.Confidence),
		Notes:            params.Notes,
		CreatedBy:        params.CreatedBy,
		CreatedAt:        s.now().UTC(),
	}
	saved, err := s.store.SaveRelationship(ctx, rel)
	if err != nil {
		s.logger.LogAttrs(ctx, slog.LevelError, "could not save relationship", errors.SlogError(err))
		return nil
	}
	if !saved {
		// A concurrent caller linked the pair between the existence check and the insert.
		if existing, err = s.store.RelationshipExists(ctx, params.CaseAID, params.CaseBID); err != nil || existing == nil {
			s.logger.LogAttrs(ctx, slog.LevelError, "relationship vanished after conflicting insert",
				errors.SlogError(err))
			return nil
		}
		return existing
	}
	s.logger.LogAttrs(ctx, slog.LevelInfo, "created relationship",
		slog.String("relationship_id", rel.ID), slog.String("relationship_type", string(rel.RelationshipType)))
	return &rel
}

// Relationships lists the relationships involving caseID. Failures are logged and yield an empty list.
func (s *Service) Relationships(ctx context.Context, caseID string) []models.CaseRelationship {
	ctx = logging.WithAttrs(ctx, slog.String("case_id", caseID))
	rels, err := s.store.GetRelationships(ctx, caseID)
	if err != nil {
		s.logger.LogAttrs(ctx, slog.LevelError, "could not list relationships", errors.SlogError(err))
		return nil
	}
	return rels
}

// DeleteRelationship removes a relationship and reports whether it existed.
func (s *Service) DeleteRelationship(ctx context.Context, id string) bool {
	deleted, err := s.store.DeleteRelationship(ctx, id)
	if err != nil {
		s.logger.LogAttrs(ctx, slog.LevelError, "could not delete relationship", slog.String("relationship_id", id),
			errors.SlogError(err))
		return false
	}
	return deleted
}

// FindSimilar compares caseID against the candidate pool and returns up to limit matches, best first.
// With excludeLinked, cases already linked to caseID are skipped.
func (s *Service) FindSimilar(ctx context.Context, caseID string, limit int, excludeLinked bool) []SimilarityResult {
	ctx = logging.WithAttrs(ctx, slog.String("case_id", caseID))
	if limit <= 0 {
		limit = DefaultLimit
	}

	target, err := s.store.GetCase(ctx, caseID)
	if err != nil {
		s.logger.LogAttrs(ctx, slog.LevelError, "could not read case", errors.SlogError(err))
		return nil
	}
	if target == nil {
		s.logger.LogAttrs(ctx, slog.LevelWarn, "case not found")
		return nil
	}

	candidates, err := s.store.ListCases(ctx, s.poolSize)
	if err != nil {
		s.logger.LogAttrs(ctx, slog.LevelError, "could not list candidate cases", errors.SlogError(err))
		return nil
	}

	excluded := map[string]struct{}{target.ID: {}}
	if excludeLinked {
		for _, id := range s.linkedCaseIDs(ctx, target.ID) {
			excluded[id] = struct{}{}
		}
	}

	targetVector := s.embed(ctx, target.SearchText())
	var results []SimilarityResult
	for _, candidate := range candidates {
		if _, skip := excluded[candidate.ID]; skip {
			continue
		}
		if result, ok := s.compare(ctx, *target, targetVector, candidate); ok {
			results = append(results, result)
		}
	}

	slices.SortStableFunc(results, func(a, b SimilarityResult) int {
		switch {
		case a.SimilarityScore > b.SimilarityScore:
			return -1
		case a.SimilarityScore < b.SimilarityScore:
			return 1
		default:
			return 0
		}
	})
	if len(results) > limit {
		results = results[:limit]
	}
	s.logger.LogAttrs(ctx, slog.LevelDebug, "found similar cases",
		slog.Int("candidates", len(candidates)), slog.Int("results", len(results)))
	return results
}

// AutoLink links caseID to every unlinked similar case scoring at least threshold and returns the
// relationships. Pairs linked concurrently are returned as their existing relationship.
func (s *Service) AutoLink(ctx context.Context, caseID string, threshold float64) []models.CaseRelationship {
	var created []models.CaseRelationship
	for _, result := range s.FindSimilar(ctx, caseID, s.poolSize, true) {
		if result.SimilarityScore < threshold {
			continue
		}
		rel := s.CreateRelationship(ctx, RelationshipParams{
			CaseAID:    caseID,
			CaseBID:    result.CaseID,
			Type:       classify(result),
			Reason:     linkReason(result),
			Notes:      autoLinkNotes(result),
			Confidence: result.SimilarityScore,
			CreatedBy:  AutoLinkCreator,
		})
		if rel != nil {
			created = append(created, *rel)
		}
	}
	return created
}

func (s *Service) linkedCaseIDs(ctx context.Context, caseID string) []string {
	rels, err := s.store.GetRelationships(ctx, caseID)
	if err != nil {
		// Linked cases may show up again; the caller still gets results.
		s.logger.LogAttrs(ctx, slog.LevelError, "could not read relationships", errors.SlogError(err))
		return nil
	}
	ids := make([]string, 0, len(rels))
	for _, rel := range rels {
		ids = append(ids, rel.Other(caseID))
	}
	return ids
}

func (s *Service) embed(ctx context.Context, text string) []float64 {
	if s.embedder == nil || strings.TrimSpace(text) == "" {
		return nil
	}
	vector, err := s.embedder.Embed(ctx, text)
	if err != nil {
		s.logger.LogAttrs(ctx, slog.LevelWarn, "embedding unavailable, semantic similarity scores 0",
			errors.SlogError(err))
		return nil
	}
	return vector
}

// compare scores candidate against target. ok is false when no factor matched.
func (s *Service) compare(
	ctx context.Context,
	target models.Case,
	targetVector []float64,
	candidate models.Case,
) (SimilarityResult, bool) {
	var semantic float64
	if targetVector != nil {
		if vector := s.embed(ctx, candidate.SearchText()); vector != nil {
			semantic = similarity.Cosine(targetVector, vector)
		}
	}
	scores := map[string]float64{
		FactorSemantic:      semantic,
		FactorLocation:      similarity.Location(target.Location, candidate.Location),
		FactorTimeProximity: similarity.TimeProximity(target.IncidentTime(), candidate.IncidentTime()),
		FactorMO:            similarity.MO(target.Metadata, candidate.Metadata),
	}

	var (
		matching []string
		sum      float64
	)
	for _, m := range factorMatchers {
		if score := scores[m.factor]; m.matches(score) {
			matching = append(matching, m.factor)
			sum += score
		}
	}
	if len(matching) == 0 {
		return SimilarityResult{}, false
	}
	return SimilarityResult{
		CaseID:          candidate.ID,
		CaseNumber:      candidate.CaseNumber,
		Title:           candidate.Title,
		SimilarityScore: sum / float64(len(matching)),
		MatchingFactors: matching,
		FactorScores:    scores,
	}, true
}

func autoLinkNotes(result SimilarityResult) string {
	parts := make([]string, 0, len(result.MatchingFactors))
	for _, f := range result.MatchingFactors {
		parts = append(parts, fmt.Sprintf("%s (%.2f)", f, result.FactorScores[f]))
	}
	return fmt.Sprintf("Auto-linked on %s; similarity %.2f", strings.Join(parts, ", "), result.SimilarityScore)
}

func clamp01(v float64) float64 {
	return max(0, min(1, v))
}
