package report

import (
	"fmt"
	"io"
	"strings"
	"time"
)

const ruleWidth = 86

// TableFormatter prints the top candidates as a fixed-width console table.
type TableFormatter struct {
	writer io.Writer
}

func NewTableFormatter(w io.Writer) *TableFormatter {
	return &TableFormatter{writer: w}
}

func (f *TableFormatter) Format(r *Report) error {
	fmt.Fprintf(f.writer, "Run: %s\n", r.RunID)
	if r.Predictor != "" {
		fmt.Fprintf(f.writer, "Predictor: %s\n", r.Predictor)
	}
	if !r.CreatedAt.IsZero() {
		fmt.Fprintf(f.writer, "Started: %s\n", r.CreatedAt.Format(time.RFC3339))
	}
	fmt.Fprintf(f.writer, "Candidates: %d generated, %d scored, %d above %.0f%% stability\n",
		r.Candidates, r.Scored, r.Stable, r.Threshold)
	fmt.Fprintf(f.writer, "Frontier: %d reference points\n", r.FrontierPoints)
	fmt.Fprintln(f.writer)

	if len(r.Top) == 0 {
		fmt.Fprintln(f.writer, "No candidates passed the stability filter.")
	} else {
		fmt.Fprintf(f.writer, "TOP %d CANDIDATES (ranked by specific stiffness)\n", len(r.Top))
		fmt.Fprintln(f.writer, strings.Repeat("─", ruleWidth))
		fmt.Fprintf(f.writer, "%4s  %-12s %12s %12s %12s %12s %12s\n",
			"#", "formula", "bulk (GPa)", "density", "stiffness", "stability", "optimality")
		for _, e := range r.Top {
			fmt.Fprintf(f.writer, "%4d  %-12s %12.2f %12.2f %12.2f %12s %12s\n",
				e.Rank, e.Formula, e.PredBulkModulus, e.PredDensity, e.SpecificStiffness,
				percent(e.Stability), percent(e.Optimality))
		}
		fmt.Fprintln(f.writer, strings.Repeat("─", ruleWidth))
	}

	if len(r.Rejected) > 0 {
		fmt.Fprintln(f.writer)
		fmt.Fprintf(f.writer, "Rejected: %d\n", len(r.Rejected))
		for _, rj := range r.Rejected {
			fmt.Fprintf(f.writer, "  ✗ %s: %s\n", rj.Formula, rj.Reason)
		}
	}
	return nil
}

func percent(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%.1f%%", *v)
}
