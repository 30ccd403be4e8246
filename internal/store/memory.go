package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore keeps runs in process memory and serves a fixed reference set.
// Used when no database is configured.
type MemoryStore struct {
	mu         sync.RWMutex
	reference  []*ReferenceMaterial
	runs       map[uuid.UUID]*Run
	candidates map[uuid.UUID][]*CandidateRecord
}

func NewMemoryStore(reference []*ReferenceMaterial) *MemoryStore {
	return &MemoryStore{
		reference:  reference,
		runs:       make(map[uuid.UUID]*Run),
		candidates: make(map[uuid.UUID][]*CandidateRecord),
	}
}

func (m *MemoryStore) ListReferenceMaterials(_ context.Context, filter ReferenceFilter) ([]*ReferenceMaterial, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*ReferenceMaterial
	for _, r := range m.reference {
		if filter.Match(r) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *MemoryStore) CreateRun(_ context.Context, run *Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	run.CreatedAt = time.Now()
	cp := *run
	m.runs[run.ID] = &cp
	return nil
}

func (m *MemoryStore) UpdateRun(_ context.Context, run *Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *run
	m.runs[run.ID] = &cp
	return nil
}

func (m *MemoryStore) GetRun(_ context.Context, id uuid.UUID) (*Run, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.runs[id]
	if !ok {
		return nil, nil
	}
	cp := *r
	return &cp, nil
}

func (m *MemoryStore) ListRuns(_ context.Context, limit int) ([]*Run, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Run, 0, len(m.runs))
	for _, r := range m.runs {
		cp := *r
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryStore) SaveCandidates(_ context.Context, runID uuid.UUID, records []*CandidateRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.candidates[runID] = append(m.candidates[runID], records...)
	return nil
}

func (m *MemoryStore) GetRunCandidates(_ context.Context, runID uuid.UUID) ([]*CandidateRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]*CandidateRecord(nil), m.candidates[runID]...), nil
}

func (m *MemoryStore) Close() error { return nil }
