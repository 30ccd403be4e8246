package screening

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/Assay/internal/candidate"
	"github.com/MikeSquared-Agency/Assay/internal/hermes"
	"github.com/MikeSquared-Agency/Assay/internal/metrics"
	"github.com/MikeSquared-Agency/Assay/internal/predictor"
	"github.com/MikeSquared-Agency/Assay/internal/scoring"
	"github.com/MikeSquared-Agency/Assay/internal/store"
)

// Request describes one screening pass.
type Request struct {
	Roles      candidate.Roles
	Thresholds scoring.Thresholds
	// RequireStability drops candidates that carry no stability estimate.
	RequireStability bool
}

// Result is the outcome of a screening pass. Scored keeps generation order;
// Top is ordered by descending specific stiffness.
type Result struct {
	Run      *store.Run
	Frontier scoring.Frontier
	Scored   []scoring.ScoredCandidate
	Rejected []scoring.Rejection
	Stable   []scoring.ScoredCandidate
	Top      []scoring.ScoredCandidate
	Records  []*store.CandidateRecord
}

type Options struct {
	PredictorName   string
	ReferenceFilter store.ReferenceFilter
	Workers         int
}

// Pipeline runs generate -> predict -> score -> filter -> rank against a
// frontier rebuilt from the reference source on every pass.
type Pipeline struct {
	predictor predictor.Predictor
	reference store.ReferenceSource
	runs      store.RunStore
	hermes    hermes.Client
	ranker    *scoring.Ranker
	opts      Options
	logger    *slog.Logger
}

// New creates a Pipeline. runs and h may be nil.
func New(p predictor.Predictor, ref store.ReferenceSource, runs store.RunStore, h hermes.Client, opts Options, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		predictor: p,
		reference: ref,
		runs:      runs,
		hermes:    h,
		ranker:    scoring.NewRanker(opts.Workers, logger),
		opts:      opts,
		logger:    logger,
	}
}

// Frontier loads the reference set and builds its Pareto frontier.
func (p *Pipeline) Frontier(ctx context.Context) (scoring.Frontier, error) {
	defer observe("frontier", time.Now())
	materials, err := p.reference.ListReferenceMaterials(ctx, p.opts.ReferenceFilter)
	if err != nil {
		return nil, fmt.Errorf("load reference set: %w", err)
	}
	frontier := scoring.BuildFrontier(ReferencePoints(materials))
	metrics.FrontierSize.Set(float64(len(frontier)))
	return frontier, nil
}

// ReferencePoints converts reference rows to frontier inputs, preserving order.
func ReferencePoints(materials []*store.ReferenceMaterial) []scoring.ReferencePoint {
	out := make([]scoring.ReferencePoint, len(materials))
	for i, m := range materials {
		out[i] = scoring.ReferencePoint{Label: m.Formula, Density: m.Density, BulkModulus: m.BulkModulus}
	}
	return out
}

// Run executes one screening pass. Prediction, reference and persistence
// failures abort the whole batch; the run is recorded as failed.
func (p *Pipeline) Run(ctx context.Context, req Request) (*Result, error) {
	if err := req.Thresholds.Validate(); err != nil {
		return nil, err
	}

	run := &store.Run{
		Status:             store.RunStatusRunning,
		M:                  req.Roles.M,
		A:                  req.Roles.A,
		X:                  req.Roles.X,
		StabilityThreshold: req.Thresholds.StabilityThreshold,
		TopK:               req.Thresholds.TopK,
		PredictorName:      p.opts.PredictorName,
	}
	if err := p.createRun(ctx, run); err != nil {
		metrics.RunsTotal.WithLabelValues("failed").Inc()
		return nil, err
	}
	logger := p.logger.With("run_id", run.ID)

	res, err := p.execute(ctx, req, run, logger)
	if err != nil {
		p.fail(ctx, run, err, logger)
		return nil, err
	}
	return res, nil
}

func (p *Pipeline) execute(ctx context.Context, req Request, run *store.Run, logger *slog.Logger) (*Result, error) {
	start := time.Now()
	cs := candidate.Generate(req.Roles)
	observe("generate", start)
	metrics.CandidatesTotal.WithLabelValues("generated").Add(float64(len(cs)))
	run.CandidateCount = len(cs)
	logger.Info("candidates generated", "count", len(cs))
	p.publish(ctx, hermes.SubjectRunStarted(run.ID.String()), hermes.RunStartedEvent{
		RunID:          run.ID.String(),
		CandidateCount: len(cs),
	}, logger)

	var props []predictor.Properties
	if len(cs) > 0 {
		start = time.Now()
		var err error
		props, err = p.predictor.Predict(ctx, cs)
		observe("predict", start)
		if err != nil {
			return nil, fmt.Errorf("predict: %w", err)
		}
		if err := predictor.CheckAligned(cs, props); err != nil {
			return nil, err
		}
	}

	frontier, err := p.Frontier(ctx)
	if err != nil {
		return nil, err
	}

	start = time.Now()
	scored, rejected, err := p.ranker.Score(ctx, cs, props, frontier)
	observe("score", start)
	if err != nil {
		return nil, fmt.Errorf("score: %w", err)
	}

	start = time.Now()
	stable := stabilityGate(scored, req.Thresholds.StabilityThreshold, req.RequireStability)
	top := scoring.TopK(stable, req.Thresholds.TopK)
	observe("rank", start)

	metrics.CandidatesTotal.WithLabelValues("rejected").Add(float64(len(rejected)))
	metrics.CandidatesTotal.WithLabelValues("stable").Add(float64(len(stable)))
	metrics.CandidatesTotal.WithLabelValues("top").Add(float64(len(top)))
	for _, t := range top {
		if t.Optimality != nil {
			metrics.OptimalityScore.Observe(*t.Optimality)
		}
	}

	res := &Result{
		Run:      run,
		Frontier: frontier,
		Scored:   scored,
		Rejected: rejected,
		Stable:   stable,
		Top:      top,
		Records:  BuildRecords(cs, props, scored, rejected, stable, top),
	}

	if p.runs != nil {
		if err := p.runs.SaveCandidates(ctx, run.ID, res.Records); err != nil {
			return nil, err
		}
	}

	now := time.Now()
	run.Status = store.RunStatusCompleted
	run.ScoredCount = len(scored)
	run.StableCount = len(stable)
	run.RejectedCount = len(rejected)
	run.FrontierSize = len(frontier)
	run.CompletedAt = &now
	if len(top) > 0 {
		run.TopFormula = top[0].Formula
	}
	if p.runs != nil {
		if err := p.runs.UpdateRun(ctx, run); err != nil {
			return nil, fmt.Errorf("update run: %w", err)
		}
	}

	metrics.RunsTotal.WithLabelValues("completed").Inc()
	p.publish(ctx, hermes.SubjectRunCompleted(run.ID.String()), hermes.RunCompletedEvent{
		RunID:          run.ID.String(),
		CandidateCount: run.CandidateCount,
		StableCount:    run.StableCount,
		RejectedCount:  run.RejectedCount,
		FrontierSize:   run.FrontierSize,
		TopFormulas:    formulas(top),
		CompletedAt:    now,
	}, logger)
	logger.Info("screening run completed",
		"candidates", run.CandidateCount,
		"scored", run.ScoredCount,
		"stable", run.StableCount,
		"rejected", run.RejectedCount,
		"frontier_points", run.FrontierSize,
		"top", run.TopFormula,
		"duration_ms", now.Sub(run.CreatedAt).Milliseconds(),
	)
	return res, nil
}

func (p *Pipeline) createRun(ctx context.Context, run *store.Run) error {
	if p.runs == nil {
		run.ID = uuid.New()
		run.CreatedAt = time.Now()
		return nil
	}
	if err := p.runs.CreateRun(ctx, run); err != nil {
		return fmt.Errorf("create run: %w", err)
	}
	return nil
}

func (p *Pipeline) fail(ctx context.Context, run *store.Run, cause error, logger *slog.Logger) {
	metrics.RunsTotal.WithLabelValues("failed").Inc()
	logger.Error("screening run failed", "error", cause)

	now := time.Now()
	run.Status = store.RunStatusFailed
	run.Error = cause.Error()
	run.CompletedAt = &now
	if p.runs != nil {
		if err := p.runs.UpdateRun(context.WithoutCancel(ctx), run); err != nil {
			logger.Warn("failed to record run failure", "error", err)
		}
	}
	p.publish(context.WithoutCancel(ctx), hermes.SubjectRunFailed(run.ID.String()), hermes.RunFailedEvent{
		RunID: run.ID.String(),
		Error: cause.Error(),
	}, logger)
}

func (p *Pipeline) publish(ctx context.Context, subject string, evt interface{}, logger *slog.Logger) {
	if p.hermes == nil {
		return
	}
	if err := p.hermes.Publish(ctx, subject, evt); err != nil {
		logger.Warn("failed to publish event", "subject", subject, "error", err)
	}
}

// stabilityGate applies the stability threshold. When stability is not
// required, candidates without an estimate pass through.
func stabilityGate(scored []scoring.ScoredCandidate, threshold float64, require bool) []scoring.ScoredCandidate {
	if require {
		return scoring.FilterByStability(scored, threshold)
	}
	out := make([]scoring.ScoredCandidate, 0, len(scored))
	for _, s := range scored {
		if pct, ok := s.StabilityPercent(); !ok || pct > threshold {
			out = append(out, s)
		}
	}
	return out
}

func observe(stage string, start time.Time) {
	metrics.StageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}

func formulas(scored []scoring.ScoredCandidate) []string {
	out := make([]string, len(scored))
	for i, s := range scored {
		out[i] = s.Formula
	}
	return out
}
