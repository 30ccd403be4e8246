// Package metrics holds the Prometheus collectors for screening runs.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RunsTotal counts screening runs by result.
	RunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "assay_runs_total",
		Help: "Screening runs by result",
	}, []string{"result"})

	// StageDuration tracks time spent per pipeline stage.
	StageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "assay_stage_duration_seconds",
		Help:    "Pipeline stage duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14), // 0.5ms to ~4s
	}, []string{"stage"})

	// CandidatesTotal counts candidates by outcome (generated, rejected, stable, top).
	CandidatesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "assay_candidates_total",
		Help: "Candidates by pipeline outcome",
	}, []string{"outcome"})

	// FrontierSize is the size of the most recently built frontier.
	FrontierSize = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "assay_frontier_points",
		Help: "Points on the most recently built Pareto frontier",
	})

	// OptimalityScore is the distribution of optimality percentages of top candidates.
	OptimalityScore = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "assay_top_candidate_optimality_percent",
		Help:    "Optimality score of top-k candidates",
		Buckets: []float64{25, 50, 75, 90, 100, 110, 125, 150, 200},
	})
)
