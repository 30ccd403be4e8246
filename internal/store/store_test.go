package store

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleCSV = `,material_id,formula,density,bulk_modulus,shear_modulus,is_stable
0,mp-1,Ti2AlC,4.1,140.5,118.0,True
1,mp-2,C,3.5,600.0,520.0,True
2,mp-3,Nb2SiC,7.2,,90.0,False
3,mp-4,Fe,7.9,170.0,,False
4,mp-5,W,19.3,310.0,160.0,True
`

func TestRunStatusValues(t *testing.T) {
	statuses := []RunStatus{RunStatusRunning, RunStatusCompleted, RunStatusFailed}
	expected := []string{"running", "completed", "failed"}
	for i, s := range statuses {
		if string(s) != expected[i] {
			t.Errorf("expected %s, got %s", expected[i], s)
		}
	}
}

func TestReferenceFilterMatch(t *testing.T) {
	m := &ReferenceMaterial{Density: 5, BulkModulus: 200, IsStable: false}
	tests := []struct {
		name   string
		filter ReferenceFilter
		want   bool
	}{
		{"no bounds", ReferenceFilter{}, true},
		{"inside bounds", ReferenceFilter{MaxDensity: 12, MaxBulkModulus: 450}, true},
		{"density bound exclusive", ReferenceFilter{MaxDensity: 5}, false},
		{"modulus bound exclusive", ReferenceFilter{MaxBulkModulus: 200}, false},
		{"stable only", ReferenceFilter{StableOnly: true}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.filter.Match(m))
		})
	}
}

func TestReadReferenceCSV(t *testing.T) {
	rows, err := ReadReferenceCSV(strings.NewReader(sampleCSV))
	require.NoError(t, err)
	require.Len(t, rows, 4, "row without bulk modulus is skipped")

	assert.Equal(t, "Ti2AlC", rows[0].Formula)
	assert.Equal(t, 4.1, rows[0].Density)
	assert.Equal(t, 140.5, rows[0].BulkModulus)
	require.NotNil(t, rows[0].ShearModulus)
	assert.Equal(t, 118.0, *rows[0].ShearModulus)
	assert.True(t, rows[0].IsStable)

	assert.Equal(t, "Fe", rows[2].Formula)
	assert.Nil(t, rows[2].ShearModulus)
	assert.False(t, rows[2].IsStable)
}

func TestReadReferenceCSVErrors(t *testing.T) {
	_, err := ReadReferenceCSV(strings.NewReader(""))
	assert.Error(t, err)

	_, err = ReadReferenceCSV(strings.NewReader("formula,density\nC,3.5\n"))
	assert.ErrorContains(t, err, "bulk_modulus")

	_, err = ReadReferenceCSV(strings.NewReader("formula,density,bulk_modulus\nC,heavy,3\n"))
	assert.ErrorContains(t, err, "line 2")
}

func TestCSVReferenceSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "materials.csv")
	require.NoError(t, os.WriteFile(path, []byte(sampleCSV), 0o644))

	src := NewCSVReferenceSource(path)
	rows, err := src.ListReferenceMaterials(context.Background(), ReferenceFilter{MaxDensity: 12, MaxBulkModulus: 450})
	require.NoError(t, err)
	formulas := make([]string, len(rows))
	for i, r := range rows {
		formulas[i] = r.Formula
	}
	assert.Equal(t, []string{"Ti2AlC", "Fe"}, formulas)

	_, err = NewCSVReferenceSource(filepath.Join(t.TempDir(), "missing.csv")).ListReferenceMaterials(context.Background(), ReferenceFilter{})
	assert.Error(t, err)
}

func TestMemoryStoreRuns(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(nil)

	run := &Run{Status: RunStatusRunning, M: []string{"Nb"}, A: []string{"Si"}, X: []string{"C"}, TopK: 10}
	require.NoError(t, s.CreateRun(ctx, run))
	assert.NotEqual(t, uuid.Nil, run.ID)
	assert.False(t, run.CreatedAt.IsZero())

	run.Status = RunStatusCompleted
	run.TopFormula = "Nb2SiC"
	require.NoError(t, s.UpdateRun(ctx, run))

	got, err := s.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, RunStatusCompleted, got.Status)
	assert.Equal(t, "Nb2SiC", got.TopFormula)

	missing, err := s.GetRun(ctx, uuid.New())
	require.NoError(t, err)
	assert.Nil(t, missing)

	require.NoError(t, s.SaveCandidates(ctx, run.ID, []*CandidateRecord{{Formula: "Nb2SiC", Index: 0}}))
	cands, err := s.GetRunCandidates(ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, cands, 1)
	assert.Equal(t, "Nb2SiC", cands[0].Formula)

	runs, err := s.ListRuns(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestMemoryStoreReference(t *testing.T) {
	s := NewMemoryStore([]*ReferenceMaterial{
		{Formula: "a", Density: 1, BulkModulus: 10, IsStable: true},
		{Formula: "b", Density: 20, BulkModulus: 10},
	})
	rows, err := s.ListReferenceMaterials(context.Background(), ReferenceFilter{MaxDensity: 12})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "a", rows[0].Formula)
}

func TestNonNil(t *testing.T) {
	assert.Equal(t, []string{}, nonNil(nil))
	assert.NotNil(t, nonNil(nil))
	assert.Equal(t, []string{"Ti"}, nonNil([]string{"Ti"}))
}
