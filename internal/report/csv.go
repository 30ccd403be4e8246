package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/MikeSquared-Agency/Assay/internal/store"
)

// CSVHeader is the column order of the candidate output file.
var CSVHeader = []string{
	"formula", "pred_bulk_modulus", "pred_density", "stability",
	"specific_stiffness", "optimality", "stable", "rank", "rejection",
}

// WriteCSV writes one row per candidate record. Undefined values are left
// empty.
func WriteCSV(w io.Writer, records []*store.CandidateRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return err
	}
	for _, r := range records {
		row := []string{
			r.Formula,
			formatFloat(r.PredBulkModulus),
			formatFloat(r.PredDensity),
			formatOptional(r.Stability),
			formatOptional(r.SpecificStiffness),
			formatOptional(r.Optimality),
			strconv.FormatBool(r.Stable),
			"",
			r.Rejection,
		}
		if r.Rank != nil {
			row[7] = strconv.Itoa(*r.Rank)
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteCSVFile writes records to path, creating parent directories.
func WriteCSVFile(path string, records []*store.CandidateRecord) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := WriteCSV(f, records); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatOptional(v *float64) string {
	if v == nil {
		return ""
	}
	return formatFloat(*v)
}
