package store

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ReferenceMaterial is one row of the known-materials dataset.
type ReferenceMaterial struct {
	Formula      string   `json:"formula"`
	Density      float64  `json:"density"`
	BulkModulus  float64  `json:"bulk_modulus"`
	ShearModulus *float64 `json:"shear_modulus,omitempty"`
	IsStable     bool     `json:"is_stable"`
}

// ReferenceFilter bounds the reference set. Bounds are exclusive; zero
// disables a bound.
type ReferenceFilter struct {
	MaxDensity     float64
	MaxBulkModulus float64
	StableOnly     bool
}

// Match reports whether m passes the filter.
func (f ReferenceFilter) Match(m *ReferenceMaterial) bool {
	if f.MaxDensity > 0 && m.Density >= f.MaxDensity {
		return false
	}
	if f.MaxBulkModulus > 0 && m.BulkModulus >= f.MaxBulkModulus {
		return false
	}
	if f.StableOnly && !m.IsStable {
		return false
	}
	return true
}

type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// Run is the header of one screening pass.
type Run struct {
	ID     uuid.UUID `json:"run_id"`
	Status RunStatus `json:"status"`

	// Inputs
	M                  []string `json:"m"`
	A                  []string `json:"a"`
	X                  []string `json:"x"`
	StabilityThreshold float64  `json:"stability_threshold"`
	TopK               int      `json:"top_k"`
	PredictorName      string   `json:"predictor"`

	// Outcome
	CandidateCount int    `json:"candidate_count"`
	ScoredCount    int    `json:"scored_count"`
	StableCount    int    `json:"stable_count"`
	RejectedCount  int    `json:"rejected_count"`
	FrontierSize   int    `json:"frontier_size"`
	TopFormula     string `json:"top_formula,omitempty"`
	Error          string `json:"error,omitempty"`

	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// CandidateRecord is one row of the candidate output table.
type CandidateRecord struct {
	Formula           string   `json:"formula"`
	Index             int      `json:"index"`
	PredBulkModulus   float64  `json:"pred_bulk_modulus"`
	PredDensity       float64  `json:"pred_density"`
	Stability         *float64 `json:"stability,omitempty"` // percentage 0-100
	SpecificStiffness *float64 `json:"specific_stiffness,omitempty"`
	Optimality        *float64 `json:"optimality,omitempty"`
	Stable            bool     `json:"stable"`
	Rank              *int     `json:"rank,omitempty"`
	Rejection         string   `json:"rejection,omitempty"`
}

// ReferenceSource provides the known-materials reference set.
type ReferenceSource interface {
	ListReferenceMaterials(ctx context.Context, filter ReferenceFilter) ([]*ReferenceMaterial, error)
}

// RunStore persists screening runs and their candidate records.
type RunStore interface {
	CreateRun(ctx context.Context, run *Run) error
	UpdateRun(ctx context.Context, run *Run) error
	GetRun(ctx context.Context, id uuid.UUID) (*Run, error)
	ListRuns(ctx context.Context, limit int) ([]*Run, error)
	SaveCandidates(ctx context.Context, runID uuid.UUID, records []*CandidateRecord) error
	GetRunCandidates(ctx context.Context, runID uuid.UUID) ([]*CandidateRecord, error)
}

type Store interface {
	ReferenceSource
	RunStore
	Close() error
}
