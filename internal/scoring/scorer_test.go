package scoring

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MikeSquared-Agency/Assay/internal/candidate"
	"github.com/MikeSquared-Agency/Assay/internal/predictor"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func float64Ptr(v float64) *float64 { return &v }

func batch(n int) []candidate.Candidate {
	ms := []string{"Ti", "V", "Cr", "Zr", "Nb", "Mo", "Hf", "Ta", "W"}
	return candidate.Generate(candidate.Roles{M: ms[:n], A: []string{"Si"}, X: []string{"C"}})
}

func TestDefaultThresholdsValid(t *testing.T) {
	th := DefaultThresholds()
	require.NoError(t, th.Validate())
	assert.Equal(t, 67.0, th.StabilityThreshold)
	assert.Equal(t, 10, th.TopK)
}

func TestThresholdsValidate(t *testing.T) {
	tests := []struct {
		name string
		th   Thresholds
		want error
	}{
		{"zero threshold", Thresholds{StabilityThreshold: 0, TopK: 1}, ErrInvalidThreshold},
		{"above 100", Thresholds{StabilityThreshold: 100.5, TopK: 1}, ErrInvalidThreshold},
		{"nan", Thresholds{StabilityThreshold: math.NaN(), TopK: 1}, ErrInvalidThreshold},
		{"exactly 100", Thresholds{StabilityThreshold: 100, TopK: 1}, nil},
		{"zero k", Thresholds{StabilityThreshold: 50, TopK: 0}, ErrInvalidTopK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.th.Validate()
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestSpecificStiffness(t *testing.T) {
	got, err := SpecificStiffness(200, 5)
	require.NoError(t, err)
	assert.Equal(t, 40.0, got)

	_, err = SpecificStiffness(200, 0)
	assert.ErrorIs(t, err, ErrZeroDensity)

	_, err = SpecificStiffness(math.Inf(1), 5)
	assert.ErrorIs(t, err, ErrNonFinite)

	_, err = SpecificStiffness(100, math.NaN())
	assert.ErrorIs(t, err, ErrNonFinite)

	_, err = SpecificStiffness(200, -4)
	assert.ErrorIs(t, err, ErrNonPositive)

	_, err = SpecificStiffness(-200, 4)
	assert.ErrorIs(t, err, ErrNonPositive)

	_, err = SpecificStiffness(0, 4)
	assert.ErrorIs(t, err, ErrNonPositive)
}

func TestRankerScoreRejectsNegativeDensity(t *testing.T) {
	cs := batch(2)
	props := []predictor.Properties{
		{Formula: "Ti2SiC", BulkModulus: 150, Density: -3, Stability: float64Ptr(0.9)},
		{Formula: "V2SiC", BulkModulus: 200, Density: 4, Stability: float64Ptr(0.9)},
	}

	scored, rejected, err := NewRanker(1, discardLogger()).Score(context.Background(), cs, props, scenarioFrontier())
	require.NoError(t, err)
	require.Len(t, scored, 1)
	assert.Equal(t, "V2SiC", scored[0].Formula)
	require.Len(t, rejected, 1)
	assert.Equal(t, "Ti2SiC", rejected[0].Formula)
	assert.ErrorIs(t, rejected[0].Reason, ErrNonPositive)
}

func TestRankerScoreLogsUndefinedOptimality(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	zeroCeiling := Frontier(refs([2]float64{1, 0}, [2]float64{2, 5}))
	props := []predictor.Properties{{Formula: "Ti2SiC", BulkModulus: 150, Density: 0.5}}

	scored, rejected, err := NewRanker(1, logger).Score(context.Background(), batch(1), props, zeroCeiling)
	require.NoError(t, err)
	assert.Empty(t, rejected)
	require.Len(t, scored, 1)
	assert.Nil(t, scored[0].Optimality)
	assert.Contains(t, buf.String(), "optimality undefined")
	assert.Contains(t, buf.String(), "formula=Ti2SiC")
	assert.Contains(t, buf.String(), ErrZeroCeiling.Error())
}

func TestRankerScore(t *testing.T) {
	cs := batch(3)
	props := []predictor.Properties{
		{Formula: "Ti2SiC", BulkModulus: 150, Density: 3, Stability: float64Ptr(0.9)},
		{Formula: "V2SiC", BulkModulus: 200, Density: 0, Stability: float64Ptr(0.9)},
		{Formula: "Cr2SiC", BulkModulus: 15, Density: 3},
	}

	r := NewRanker(2, discardLogger())
	scored, rejected, err := r.Score(context.Background(), cs, props, scenarioFrontier())
	require.NoError(t, err)

	require.Len(t, scored, 2)
	assert.Equal(t, "Ti2SiC", scored[0].Formula)
	assert.Equal(t, 50.0, scored[0].SpecificStiffness)
	require.NotNil(t, scored[0].Optimality)
	assert.InDelta(t, 1000.0, *scored[0].Optimality, 1e-9)

	assert.Equal(t, "Cr2SiC", scored[1].Formula)
	require.NotNil(t, scored[1].Optimality)
	assert.InDelta(t, 100.0, *scored[1].Optimality, 1e-9)

	require.Len(t, rejected, 1)
	assert.Equal(t, "V2SiC", rejected[0].Formula)
	assert.Equal(t, 1, rejected[0].Index)
	assert.ErrorIs(t, rejected[0].Reason, ErrZeroDensity)
	for _, s := range scored {
		assert.False(t, math.IsInf(s.SpecificStiffness, 0))
	}
}

func TestRankerScoreUndefinedFrontier(t *testing.T) {
	cs := batch(1)
	props := []predictor.Properties{{Formula: "Ti2SiC", BulkModulus: 150, Density: 3}}

	scored, _, err := NewRanker(1, discardLogger()).Score(context.Background(), cs, props, Frontier(refs([2]float64{1, 1})))
	require.NoError(t, err)
	require.Len(t, scored, 1)
	assert.Nil(t, scored[0].Optimality)
}

func TestRankerScoreMisaligned(t *testing.T) {
	_, _, err := NewRanker(1, discardLogger()).Score(context.Background(), batch(2), []predictor.Properties{{}}, nil)
	assert.ErrorIs(t, err, predictor.ErrAlignment)
}

func TestRankerScoreOrderIndependentOfWorkers(t *testing.T) {
	cs := batch(9)
	props := make([]predictor.Properties, len(cs))
	for i, c := range cs {
		props[i] = predictor.Properties{Formula: c.Formula, BulkModulus: float64(100 + i*7%5), Density: float64(2 + i%3)}
	}

	one, _, err := NewRanker(1, discardLogger()).Score(context.Background(), cs, props, scenarioFrontier())
	require.NoError(t, err)
	many, _, err := NewRanker(8, discardLogger()).Score(context.Background(), cs, props, scenarioFrontier())
	require.NoError(t, err)
	assert.Equal(t, one, many)
	assert.Equal(t, TopK(one, 5), TopK(many, 5))
}

func TestFilterByStability(t *testing.T) {
	scored := []ScoredCandidate{
		{Formula: "a", Stability: float64Ptr(0.5)},
		{Formula: "b", Stability: float64Ptr(0.7)},
		{Formula: "c", Stability: float64Ptr(0.9)},
	}
	got := FilterByStability(scored, 67)
	require.Len(t, got, 2)
	assert.Equal(t, "b", got[0].Formula)
	assert.Equal(t, "c", got[1].Formula)

	t.Run("strictly greater", func(t *testing.T) {
		got := FilterByStability([]ScoredCandidate{{Formula: "edge", Stability: float64Ptr(0.5)}}, 50)
		assert.Empty(t, got)
	})

	t.Run("missing stability dropped", func(t *testing.T) {
		got := FilterByStability([]ScoredCandidate{{Formula: "none"}}, 1)
		assert.Empty(t, got)
	})
}

func TestTopK(t *testing.T) {
	scored := []ScoredCandidate{
		{Formula: "a", Index: 0, SpecificStiffness: 20},
		{Formula: "b", Index: 1, SpecificStiffness: 40},
		{Formula: "c", Index: 2, SpecificStiffness: 30},
		{Formula: "d", Index: 3, SpecificStiffness: 40},
		{Formula: "e", Index: 4, SpecificStiffness: 10},
	}

	got := TopK(scored, 3)
	require.Len(t, got, 3)
	assert.Equal(t, []string{"b", "d", "c"}, []string{got[0].Formula, got[1].Formula, got[2].Formula})

	assert.Len(t, TopK(scored, 10), 5)
	assert.Nil(t, TopK(scored, 0))
	assert.Equal(t, "a", scored[0].Formula, "input must not be reordered")
}

func TestTopKSubsetOfFiltered(t *testing.T) {
	var scored []ScoredCandidate
	for i := 0; i < 30; i++ {
		scored = append(scored, ScoredCandidate{
			Formula:           string(rune('A' + i)),
			Index:             i,
			SpecificStiffness: float64((i * 13) % 17),
			Stability:         float64Ptr(float64(i%10) / 10),
		})
	}
	stable := FilterByStability(scored, 67)
	top := TopK(stable, 10)

	inFiltered := map[int]bool{}
	for _, s := range stable {
		inFiltered[s.Index] = true
	}
	for i, s := range top {
		assert.True(t, inFiltered[s.Index])
		if i > 0 {
			assert.GreaterOrEqual(t, top[i-1].SpecificStiffness, s.SpecificStiffness)
		}
	}
}
