package store

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// CSVReferenceSource reads the reference dataset from a CSV file with a
// header row. Columns are addressed by name: formula, density and
// bulk_modulus are required; shear_modulus and is_stable are optional.
// Rows missing density or bulk modulus are skipped.
type CSVReferenceSource struct {
	path string
}

func NewCSVReferenceSource(path string) *CSVReferenceSource {
	return &CSVReferenceSource{path: path}
}

func (s *CSVReferenceSource) ListReferenceMaterials(ctx context.Context, filter ReferenceFilter) ([]*ReferenceMaterial, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("open reference csv: %w", err)
	}
	defer f.Close()

	all, err := ReadReferenceCSV(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.path, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := all[:0]
	for _, m := range all {
		if filter.Match(m) {
			out = append(out, m)
		}
	}
	return out, nil
}

// ReadReferenceCSV parses reference rows from r.
func ReadReferenceCSV(r io.Reader) ([]*ReferenceMaterial, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, errors.New("empty csv")
	}
	if err != nil {
		return nil, err
	}
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, req := range []string{"formula", "density", "bulk_modulus"} {
		if _, ok := cols[req]; !ok {
			return nil, fmt.Errorf("missing column %q", req)
		}
	}

	get := func(rec []string, name string) string {
		i, ok := cols[name]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	var out []*ReferenceMaterial
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		density, ok, err := parseOptionalFloat(get(rec, "density"))
		if err != nil {
			return nil, fmt.Errorf("line %d: density: %w", line, err)
		}
		if !ok {
			continue
		}
		bulk, ok, err := parseOptionalFloat(get(rec, "bulk_modulus"))
		if err != nil {
			return nil, fmt.Errorf("line %d: bulk_modulus: %w", line, err)
		}
		if !ok {
			continue
		}

		m := &ReferenceMaterial{
			Formula:     get(rec, "formula"),
			Density:     density,
			BulkModulus: bulk,
		}
		if shear, ok, err := parseOptionalFloat(get(rec, "shear_modulus")); err != nil {
			return nil, fmt.Errorf("line %d: shear_modulus: %w", line, err)
		} else if ok {
			m.ShearModulus = &shear
		}
		if v := get(rec, "is_stable"); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return nil, fmt.Errorf("line %d: is_stable: %w", line, err)
			}
			m.IsStable = b
		}
		out = append(out, m)
	}
	return out, nil
}

func parseOptionalFloat(s string) (float64, bool, error) {
	switch strings.ToLower(s) {
	case "", "nan", "none", "null":
		return 0, false, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false, err
	}
	return v, true, nil
}
