package scoring

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/MikeSquared-Agency/Assay/internal/candidate"
	"github.com/MikeSquared-Agency/Assay/internal/predictor"
)

var (
	// ErrZeroDensity is returned when specific stiffness would divide by zero.
	ErrZeroDensity = errors.New("zero density")
	// ErrNonFinite is returned for NaN or infinite predicted values.
	ErrNonFinite = errors.New("non-finite value")
	// ErrNonPositive is returned for a predicted modulus or density at or
	// below zero; neither is physical.
	ErrNonPositive = errors.New("non-positive value")
)

// ScoredCandidate is a candidate with its predictions and derived metrics.
type ScoredCandidate struct {
	Formula           string   `json:"formula"`
	Index             int      `json:"index"`
	BulkModulus       float64  `json:"pred_bulk_modulus"`
	Density           float64  `json:"pred_density"`
	Stability         *float64 `json:"stability,omitempty"`
	SpecificStiffness float64  `json:"specific_stiffness"`
	// Optimality is a percentage of the frontier ceiling; nil when undefined.
	Optimality *float64 `json:"optimality,omitempty"`
}

// StabilityPercent returns stability as a percentage.
func (s ScoredCandidate) StabilityPercent() (float64, bool) {
	if s.Stability == nil {
		return 0, false
	}
	return *s.Stability * 100, true
}

// Rejection records a candidate excluded from ranking and why.
type Rejection struct {
	Formula string `json:"formula"`
	Index   int    `json:"index"`
	Reason  error  `json:"-"`
}

func (r Rejection) MarshalText() ([]byte, error) {
	return []byte(r.Formula + ": " + r.Reason.Error()), nil
}

// SpecificStiffness returns bulkModulus / density. Zero density yields
// ErrZeroDensity instead of an infinity; negative density or a modulus at or
// below zero yields ErrNonPositive.
func SpecificStiffness(bulkModulus, density float64) (float64, error) {
	if math.IsNaN(bulkModulus) || math.IsInf(bulkModulus, 0) {
		return 0, fmt.Errorf("%w: bulk modulus %v", ErrNonFinite, bulkModulus)
	}
	if math.IsNaN(density) || math.IsInf(density, 0) {
		return 0, fmt.Errorf("%w: density %v", ErrNonFinite, density)
	}
	if density == 0 {
		return 0, ErrZeroDensity
	}
	if density < 0 {
		return 0, fmt.Errorf("%w: density %v", ErrNonPositive, density)
	}
	if bulkModulus <= 0 {
		return 0, fmt.Errorf("%w: bulk modulus %v", ErrNonPositive, bulkModulus)
	}
	return bulkModulus / density, nil
}

// Ranker scores candidate batches. Each candidate is independent, so scoring
// fans out over workers and writes results back by index.
type Ranker struct {
	workers int
	logger  *slog.Logger
}

// NewRanker creates a Ranker with the given worker count.
func NewRanker(workers int, logger *slog.Logger) *Ranker {
	if workers < 1 {
		workers = 1
	}
	return &Ranker{workers: workers, logger: logger}
}

type slot struct {
	scored ScoredCandidate
	err    error
	// optErr records why optimality is nil for an otherwise scored candidate.
	optErr error
}

// Score derives specific stiffness and, when the frontier is interpolable,
// optimality for every candidate. Candidates whose stiffness is undefined are
// returned as rejections and logged; they never reach ranking comparisons.
// The scored slice keeps generation order.
func (r *Ranker) Score(ctx context.Context, cs []candidate.Candidate, props []predictor.Properties, frontier Frontier) ([]ScoredCandidate, []Rejection, error) {
	if len(cs) != len(props) {
		return nil, nil, fmt.Errorf("%w: %d candidates, %d predictions", predictor.ErrAlignment, len(cs), len(props))
	}
	if len(cs) == 0 {
		return nil, nil, nil
	}
	ceilings, err := frontier.Fit()
	if err != nil {
		r.logger.Warn("optimality skipped", "error", err, "frontier_points", len(frontier))
	}

	slots := make([]slot, len(cs))
	g, gctx := errgroup.WithContext(ctx)
	chunk := (len(cs) + r.workers - 1) / r.workers
	for start := 0; start < len(cs); start += chunk {
		end := min(start+chunk, len(cs))
		g.Go(func() error {
			for i := start; i < end; i++ {
				if err := gctx.Err(); err != nil {
					return err
				}
				slots[i] = scoreOne(cs[i], props[i], ceilings)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	scored := make([]ScoredCandidate, 0, len(cs))
	var rejected []Rejection
	for _, s := range slots {
		if s.err != nil {
			r.logger.Warn("candidate rejected", "formula", s.scored.Formula, "reason", s.err)
			rejected = append(rejected, Rejection{Formula: s.scored.Formula, Index: s.scored.Index, Reason: s.err})
			continue
		}
		if s.optErr != nil {
			r.logger.Warn("optimality undefined", "formula", s.scored.Formula, "reason", s.optErr)
		}
		scored = append(scored, s.scored)
	}
	return scored, rejected, nil
}

func scoreOne(c candidate.Candidate, p predictor.Properties, ceilings *Ceilings) slot {
	sc := ScoredCandidate{
		Formula:     c.Formula,
		Index:       c.Index,
		BulkModulus: p.BulkModulus,
		Density:     p.Density,
		Stability:   p.Stability,
	}
	ss, err := SpecificStiffness(p.BulkModulus, p.Density)
	if err != nil {
		return slot{scored: sc, err: err}
	}
	sc.SpecificStiffness = ss

	if ceilings == nil {
		return slot{scored: sc}
	}
	opt, err := ceilings.Optimality(p.Density, p.BulkModulus)
	if err != nil {
		return slot{scored: sc, optErr: err}
	}
	sc.Optimality = &opt
	return slot{scored: sc}
}

// FilterByStability keeps candidates whose stability percentage strictly
// exceeds threshold. Candidates without a stability estimate are dropped.
func FilterByStability(scored []ScoredCandidate, threshold float64) []ScoredCandidate {
	out := make([]ScoredCandidate, 0, len(scored))
	for _, s := range scored {
		if pct, ok := s.StabilityPercent(); ok && pct > threshold {
			out = append(out, s)
		}
	}
	return out
}

// TopK returns the k candidates with the highest specific stiffness, ties
// broken by generation order. Fewer than k inputs returns all of them.
func TopK(scored []ScoredCandidate, k int) []ScoredCandidate {
	if k <= 0 || len(scored) == 0 {
		return nil
	}
	sorted := make([]ScoredCandidate, len(scored))
	copy(sorted, scored)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].SpecificStiffness != sorted[j].SpecificStiffness {
			return sorted[i].SpecificStiffness > sorted[j].SpecificStiffness
		}
		return sorted[i].Index < sorted[j].Index
	})
	if k > len(sorted) {
		k = len(sorted)
	}
	return sorted[:k]
}
