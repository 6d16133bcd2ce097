// Package testhelpers provides loggers and in-memory collaborators for tests.
package testhelpers

import (
	"context"
	"github.com/myrjola/caselink/internal/errors"
	"github.com/myrjola/caselink/internal/logging"
	"github.com/myrjola/caselink/internal/models"
	"io"
	"log/slog"
	"slices"
	"sync"
)

// ErrUnavailable is returned by collaborators configured to fail.
var ErrUnavailable = errors.NewSentinel("collaborator unavailable")

// NewLogger creates a new logger with the given log sink such as io.Discard.
func NewLogger(logSink io.Writer) *slog.Logger {
	handler := logging.NewContextHandler(slog.NewTextHandler(logSink, &slog.HandlerOptions{
		AddSource:   false,
		Level:       slog.LevelDebug,
		ReplaceAttr: nil,
	}))
	return slog.New(handler)
}

// MemoryStore is an in-memory case store. The zero value is empty and ready to use.
type MemoryStore struct {
	mu            sync.Mutex
	cases         []models.Case
	relationships []models.CaseRelationship

	// FailListCases makes ListCases fail.
	FailListCases bool
	// FailRelationships makes GetRelationships fail.
	FailRelationships bool
	// BeforeSave runs inside SaveRelationship before the conflict check, e.g. to simulate a concurrent insert.
	BeforeSave func(rel models.CaseRelationship)
}

// AddCase stores c, keeping insertion order for ListCases.
func (m *MemoryStore) AddCase(c models.Case) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cases = append(m.cases, c)
}

// AddRelationship stores rel without any checks.
func (m *MemoryStore) AddRelationship(rel models.CaseRelationship) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.relationships = append(m.relationships, rel)
}

// AllRelationships returns a copy of every stored relationship.
func (m *MemoryStore) AllRelationships() []models.CaseRelationship {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.relationships)
}

func (m *MemoryStore) GetCase(_ context.Context, id string) (*models.Case, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.cases {
		if c.ID == id {
			return &c, nil
		}
	}
	return nil, nil //nolint:nilnil // missing case is not an error
}

func (m *MemoryStore) ListCases(_ context.Context, limit int) ([]models.Case, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailListCases {
		return nil, ErrUnavailable
	}
	cases := slices.Clone(m.cases)
	if limit > 0 && len(cases) > limit {
		cases = cases[:limit]
	}
	return cases, nil
}

func (m *MemoryStore) SaveRelationship(_ context.Context, rel models.CaseRelationship) (bool, error) {
	if m.BeforeSave != nil {
		m.BeforeSave(rel)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.findLocked(rel.CaseAID, rel.CaseBID) != nil {
		return false, nil
	}
	m.relationships = append(m.relationships, rel)
	return true, nil
}

func (m *MemoryStore) GetRelationships(_ context.Context, caseID string) ([]models.CaseRelationship, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailRelationships {
		return nil, ErrUnavailable
	}
	var rels []models.CaseRelationship
	for _, rel := range m.relationships {
		if rel.Involves(caseID) {
			rels = append(rels, rel)
		}
	}
	return rels, nil
}

func (m *MemoryStore) RelationshipExists(_ context.Context, caseA, caseB string) (*models.CaseRelationship, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.findLocked(caseA, caseB), nil
}

func (m *MemoryStore) DeleteRelationship(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, rel := range m.relationships {
		if rel.ID == id {
			m.relationships = slices.Delete(m.relationships, i, i+1)
			return true, nil
		}
	}
	return false, nil
}

func (m *MemoryStore) findLocked(caseA, caseB string) *models.CaseRelationship {
	for _, rel := range m.relationships {
		if (rel.CaseAID == caseA && rel.CaseBID == caseB) || (rel.CaseAID == caseB && rel.CaseBID == caseA) {
			return &rel
		}
	}
	return nil
}

// StaticEmbedder returns fixed vectors per text. Unknown texts fail like an unavailable provider.
type StaticEmbedder struct {
	Vectors map[string][]float64
	// Fail makes every call fail.
	Fail bool

	mu    sync.Mutex
	calls int
}

func (e *StaticEmbedder) Embed(_ context.Context, text string) ([]float64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls++
	if e.Fail {
		return nil, ErrUnavailable
	}
	v, ok := e.Vectors[text]
	if !ok {
		return nil, ErrUnavailable
	}
	return v, nil
}

// Calls returns how many times Embed was called.
func (e *StaticEmbedder) Calls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}
