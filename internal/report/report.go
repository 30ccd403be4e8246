package report

import (
	"fmt"
	"io"
	"time"

	"github.com/MikeSquared-Agency/Assay/internal/screening"
)

// Entry is one ranked candidate as it appears in a report.
type Entry struct {
	Rank              int      `json:"rank" yaml:"rank"`
	Formula           string   `json:"formula" yaml:"formula"`
	PredBulkModulus   float64  `json:"pred_bulk_modulus" yaml:"pred_bulk_modulus"`
	PredDensity       float64  `json:"pred_density" yaml:"pred_density"`
	SpecificStiffness float64  `json:"specific_stiffness" yaml:"specific_stiffness"`
	Stability         *float64 `json:"stability,omitempty" yaml:"stability,omitempty"`
	Optimality        *float64 `json:"optimality,omitempty" yaml:"optimality,omitempty"`
}

type Rejection struct {
	Formula string `json:"formula" yaml:"formula"`
	Reason  string `json:"reason" yaml:"reason"`
}

// Report summarises one screening run.
type Report struct {
	RunID          string      `json:"run_id" yaml:"run_id"`
	Predictor      string      `json:"predictor,omitempty" yaml:"predictor,omitempty"`
	CreatedAt      time.Time   `json:"created_at" yaml:"created_at"`
	Candidates     int         `json:"candidates" yaml:"candidates"`
	Scored         int         `json:"scored" yaml:"scored"`
	Stable         int         `json:"stable" yaml:"stable"`
	FrontierPoints int         `json:"frontier_points" yaml:"frontier_points"`
	Threshold      float64     `json:"stability_threshold" yaml:"stability_threshold"`
	Top            []Entry     `json:"top" yaml:"top"`
	Rejected       []Rejection `json:"rejected,omitempty" yaml:"rejected,omitempty"`
}

// FromResult flattens a screening result into a Report.
func FromResult(res *screening.Result) *Report {
	r := &Report{
		RunID:          res.Run.ID.String(),
		Predictor:      res.Run.PredictorName,
		CreatedAt:      res.Run.CreatedAt,
		Candidates:     res.Run.CandidateCount,
		Scored:         len(res.Scored),
		Stable:         len(res.Stable),
		FrontierPoints: len(res.Frontier),
		Threshold:      res.Run.StabilityThreshold,
		Top:            make([]Entry, len(res.Top)),
	}
	for i, s := range res.Top {
		e := Entry{
			Rank:              i + 1,
			Formula:           s.Formula,
			PredBulkModulus:   s.BulkModulus,
			PredDensity:       s.Density,
			SpecificStiffness: s.SpecificStiffness,
			Optimality:        s.Optimality,
		}
		if pct, ok := s.StabilityPercent(); ok {
			e.Stability = &pct
		}
		r.Top[i] = e
	}
	for _, rj := range res.Rejected {
		r.Rejected = append(r.Rejected, Rejection{Formula: rj.Formula, Reason: rj.Reason.Error()})
	}
	return r
}

// Formatter writes a Report in one output format.
type Formatter interface {
	Format(r *Report) error
}

// NewFormatter returns the formatter for format: table, json or yaml.
func NewFormatter(format string, w io.Writer) (Formatter, error) {
	switch format {
	case "", "table":
		return NewTableFormatter(w), nil
	case "json":
		return NewJSONFormatter(w, true), nil
	case "yaml":
		return NewYAMLFormatter(w), nil
	default:
		return nil, fmt.Errorf("unknown output format %q", format)
	}
}
