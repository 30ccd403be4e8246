package screening

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/MikeSquared-Agency/Assay/internal/candidate"
	"github.com/MikeSquared-Agency/Assay/internal/hermes"
	"github.com/MikeSquared-Agency/Assay/internal/predictor"
	"github.com/MikeSquared-Agency/Assay/internal/scoring"
	"github.com/MikeSquared-Agency/Assay/internal/store"
)

type mockPredictor struct {
	mock.Mock
}

func (m *mockPredictor) Predict(ctx context.Context, cs []candidate.Candidate) ([]predictor.Properties, error) {
	args := m.Called(ctx, cs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]predictor.Properties), args.Error(1)
}

type recordingHermes struct {
	mu       sync.Mutex
	subjects []string
}

func (h *recordingHermes) Publish(_ context.Context, subject string, _ interface{}) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.subjects = append(h.subjects, subject)
	return nil
}

func (h *recordingHermes) Close() {}

func (h *recordingHermes) hasSuffix(suffix string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, s := range h.subjects {
		if strings.HasSuffix(s, suffix) {
			return true
		}
	}
	return false
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func float64Ptr(v float64) *float64 { return &v }

func referenceStore() *store.MemoryStore {
	return store.NewMemoryStore([]*store.ReferenceMaterial{
		{Formula: "r1", Density: 1, BulkModulus: 10},
		{Formula: "r2", Density: 2, BulkModulus: 8},
		{Formula: "r3", Density: 3, BulkModulus: 15},
		{Formula: "r4", Density: 4, BulkModulus: 15},
		{Formula: "r5", Density: 5, BulkModulus: 20},
		{Formula: "outlier", Density: 20, BulkModulus: 900},
	})
}

func testRoles() candidate.Roles {
	return candidate.Roles{M: []string{"Nb", "Ti", "V"}, A: []string{"Si"}, X: []string{"C"}}
}

func testRequest() Request {
	return Request{Roles: testRoles(), Thresholds: scoring.DefaultThresholds(), RequireStability: true}
}

func newPipeline(p predictor.Predictor, s *store.MemoryStore, h hermes.Client) *Pipeline {
	return New(p, s, s, h, Options{
		PredictorName:   "mock",
		ReferenceFilter: store.ReferenceFilter{MaxDensity: 12, MaxBulkModulus: 450},
		Workers:         2,
	}, discardLogger())
}

func TestPipelineRun(t *testing.T) {
	pred := &mockPredictor{}
	pred.On("Predict", mock.Anything, mock.MatchedBy(func(cs []candidate.Candidate) bool {
		return len(cs) == 3 && cs[0].Formula == "Nb2SiC"
	})).Return([]predictor.Properties{
		{Formula: "Nb2SiC", BulkModulus: 220, Density: 7.2, Stability: float64Ptr(0.9)},
		{Formula: "Ti2SiC", BulkModulus: 180, Density: 4.4, Stability: float64Ptr(0.7)},
		{Formula: "V2SiC", BulkModulus: 200, Density: 0, Stability: float64Ptr(0.95)},
	}, nil).Once()

	s := referenceStore()
	h := &recordingHermes{}
	res, err := newPipeline(pred, s, h).Run(context.Background(), testRequest())
	require.NoError(t, err)
	pred.AssertExpectations(t)

	assert.Len(t, res.Frontier, 3, "outlier is excluded by the reference bounds")
	assert.Len(t, res.Scored, 2)
	require.Len(t, res.Rejected, 1)
	assert.Equal(t, "V2SiC", res.Rejected[0].Formula)

	require.Len(t, res.Top, 2)
	assert.Equal(t, "Ti2SiC", res.Top[0].Formula)
	assert.Equal(t, "Nb2SiC", res.Top[1].Formula)
	require.NotNil(t, res.Top[0].Optimality)
	// ceiling at 4.4 interpolates between r3 (3, 15) and r5 (5, 20)
	assert.InDelta(t, 180.0/18.5*100, *res.Top[0].Optimality, 1e-9)

	assert.Equal(t, store.RunStatusCompleted, res.Run.Status)
	assert.Equal(t, "Ti2SiC", res.Run.TopFormula)

	stored, err := s.GetRun(context.Background(), res.Run.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, store.RunStatusCompleted, stored.Status)
	assert.Equal(t, 3, stored.CandidateCount)
	assert.Equal(t, 1, stored.RejectedCount)
	assert.Equal(t, 3, stored.FrontierSize)

	records, err := s.GetRunCandidates(context.Background(), res.Run.ID)
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "Nb2SiC", records[0].Formula)
	require.NotNil(t, records[0].Rank)
	assert.Equal(t, 2, *records[0].Rank)
	assert.InDelta(t, 90.0, *records[0].Stability, 1e-9)
	assert.True(t, records[1].Stable)
	assert.Contains(t, records[2].Rejection, "zero density")
	assert.Nil(t, records[2].SpecificStiffness)
	assert.False(t, records[2].Stable)

	assert.True(t, h.hasSuffix(".started"))
	assert.True(t, h.hasSuffix(".completed"))
}

func TestPipelineStabilityFilter(t *testing.T) {
	pred := &mockPredictor{}
	pred.On("Predict", mock.Anything, mock.Anything).Return([]predictor.Properties{
		{Formula: "Nb2SiC", BulkModulus: 100, Density: 5, Stability: float64Ptr(0.5)},
		{Formula: "Ti2SiC", BulkModulus: 100, Density: 5, Stability: float64Ptr(0.7)},
		{Formula: "V2SiC", BulkModulus: 100, Density: 5, Stability: float64Ptr(0.9)},
	}, nil)

	res, err := newPipeline(pred, referenceStore(), nil).Run(context.Background(), testRequest())
	require.NoError(t, err)
	require.Len(t, res.Stable, 2)
	assert.Equal(t, "Ti2SiC", res.Stable[0].Formula)
	assert.Equal(t, "V2SiC", res.Stable[1].Formula)
	assert.Equal(t, []string{"Ti2SiC", "V2SiC"}, formulas(res.Top), "ties keep generation order")
}

func TestPipelineWithoutStability(t *testing.T) {
	pred := &mockPredictor{}
	pred.On("Predict", mock.Anything, mock.Anything).Return([]predictor.Properties{
		{Formula: "Nb2SiC", BulkModulus: 100, Density: 5},
		{Formula: "Ti2SiC", BulkModulus: 100, Density: 4},
		{Formula: "V2SiC", BulkModulus: 100, Density: 2},
	}, nil)

	req := testRequest()
	req.RequireStability = false
	res, err := newPipeline(pred, referenceStore(), nil).Run(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, []string{"V2SiC", "Ti2SiC", "Nb2SiC"}, formulas(res.Top))

	req.RequireStability = true
	res, err = newPipeline(pred, referenceStore(), nil).Run(context.Background(), req)
	require.NoError(t, err)
	assert.Empty(t, res.Top)
}

func TestPipelinePredictorFailureIsFatal(t *testing.T) {
	boom := errors.New("model server down")
	pred := &mockPredictor{}
	pred.On("Predict", mock.Anything, mock.Anything).Return(nil, boom)

	s := referenceStore()
	h := &recordingHermes{}
	res, err := newPipeline(pred, s, h).Run(context.Background(), testRequest())
	assert.Nil(t, res)
	assert.ErrorIs(t, err, boom)

	runs, err := s.ListRuns(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, store.RunStatusFailed, runs[0].Status)
	assert.Contains(t, runs[0].Error, "model server down")
	assert.True(t, h.hasSuffix(".failed"))
}

func TestPipelineMisalignedPredictions(t *testing.T) {
	pred := &mockPredictor{}
	pred.On("Predict", mock.Anything, mock.Anything).Return([]predictor.Properties{
		{Formula: "Ti2SiC", BulkModulus: 100, Density: 5},
		{Formula: "Nb2SiC", BulkModulus: 100, Density: 5},
		{Formula: "V2SiC", BulkModulus: 100, Density: 5},
	}, nil)

	_, err := newPipeline(pred, referenceStore(), nil).Run(context.Background(), testRequest())
	assert.ErrorIs(t, err, predictor.ErrAlignment)
}

func TestPipelineEmptyRoles(t *testing.T) {
	pred := &mockPredictor{}
	req := testRequest()
	req.Roles.X = nil

	res, err := newPipeline(pred, referenceStore(), nil).Run(context.Background(), req)
	require.NoError(t, err)
	pred.AssertNotCalled(t, "Predict", mock.Anything, mock.Anything)
	assert.Empty(t, res.Scored)
	assert.Empty(t, res.Top)
	assert.Equal(t, store.RunStatusCompleted, res.Run.Status)
}

func TestPipelineInvalidThresholds(t *testing.T) {
	req := testRequest()
	req.Thresholds.StabilityThreshold = 0

	s := referenceStore()
	_, err := newPipeline(&mockPredictor{}, s, nil).Run(context.Background(), req)
	assert.ErrorIs(t, err, scoring.ErrInvalidThreshold)

	runs, _ := s.ListRuns(context.Background(), 10)
	assert.Empty(t, runs)
}

func TestPipelineFrontier(t *testing.T) {
	f, err := newPipeline(&mockPredictor{}, referenceStore(), nil).Frontier(context.Background())
	require.NoError(t, err)
	labels := make([]string, len(f))
	for i, p := range f {
		labels[i] = p.Label
	}
	assert.Equal(t, []string{"r1", "r3", "r5"}, labels)
}
