package screening

import (
	"math"

	"github.com/MikeSquared-Agency/Assay/internal/candidate"
	"github.com/MikeSquared-Agency/Assay/internal/predictor"
	"github.com/MikeSquared-Agency/Assay/internal/scoring"
	"github.com/MikeSquared-Agency/Assay/internal/store"
)

// BuildRecords flattens a pass into one output record per generated
// candidate, in generation order.
func BuildRecords(cs []candidate.Candidate, props []predictor.Properties, scored []scoring.ScoredCandidate, rejected []scoring.Rejection, stable, top []scoring.ScoredCandidate) []*store.CandidateRecord {
	records := make([]*store.CandidateRecord, len(cs))
	for i, c := range cs {
		records[i] = &store.CandidateRecord{Formula: c.Formula, Index: c.Index}
		if i < len(props) {
			records[i].PredBulkModulus = finiteOrZero(props[i].BulkModulus)
			records[i].PredDensity = finiteOrZero(props[i].Density)
			if s := props[i].Stability; s != nil {
				pct := *s * 100
				records[i].Stability = &pct
			}
		}
	}
	byIndex := func(idx int) *store.CandidateRecord {
		if idx < 0 || idx >= len(records) {
			return nil
		}
		return records[idx]
	}

	for _, s := range scored {
		r := byIndex(s.Index)
		if r == nil {
			continue
		}
		ss := s.SpecificStiffness
		r.SpecificStiffness = &ss
		r.Optimality = s.Optimality
	}
	for _, rj := range rejected {
		if r := byIndex(rj.Index); r != nil {
			r.Rejection = rj.Reason.Error()
		}
	}
	for _, s := range stable {
		if r := byIndex(s.Index); r != nil {
			r.Stable = true
		}
	}
	for i, s := range top {
		if r := byIndex(s.Index); r != nil {
			rank := i + 1
			r.Rank = &rank
		}
	}
	return records
}

// finiteOrZero keeps NaN and infinities out of the output table; the
// rejection reason carries the original value.
func finiteOrZero(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
