package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/Assay/internal/report"
	"github.com/MikeSquared-Agency/Assay/internal/scoring"
	"github.com/MikeSquared-Agency/Assay/internal/screening"
	"github.com/MikeSquared-Agency/Assay/internal/store"
)

// Screener is the part of the screening pipeline the API drives.
type Screener interface {
	Run(ctx context.Context, req screening.Request) (*screening.Result, error)
	Frontier(ctx context.Context) (scoring.Frontier, error)
}

type RunsHandler struct {
	screener Screener
	runs     store.RunStore
	defaults screening.Request
}

func NewRunsHandler(sc Screener, runs store.RunStore, defaults screening.Request) *RunsHandler {
	return &RunsHandler{screener: sc, runs: runs, defaults: defaults}
}

// ScreenRequest overrides the configured roles and thresholds for one run.
// Omitted fields fall back to the server configuration.
type ScreenRequest struct {
	M                  []string `json:"m,omitempty" validate:"omitempty,max=32,dive,alpha,min=1,max=3"`
	A                  []string `json:"a,omitempty" validate:"omitempty,max=32,dive,alpha,min=1,max=3"`
	X                  []string `json:"x,omitempty" validate:"omitempty,max=32,dive,alpha,min=1,max=3"`
	StabilityThreshold *float64 `json:"stability_threshold,omitempty" validate:"omitempty,gt=0,lte=100"`
	TopK               *int     `json:"top_k,omitempty" validate:"omitempty,min=1,max=1000"`
	RequireStability   *bool    `json:"require_stability,omitempty"`
}

func (sr ScreenRequest) apply(req screening.Request) screening.Request {
	if len(sr.M) > 0 {
		req.Roles.M = sr.M
	}
	if len(sr.A) > 0 {
		req.Roles.A = sr.A
	}
	if len(sr.X) > 0 {
		req.Roles.X = sr.X
	}
	if sr.StabilityThreshold != nil {
		req.Thresholds.StabilityThreshold = *sr.StabilityThreshold
	}
	if sr.TopK != nil {
		req.Thresholds.TopK = *sr.TopK
	}
	if sr.RequireStability != nil {
		req.RequireStability = *sr.RequireStability
	}
	return req
}

func (h *RunsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var sr ScreenRequest
	if err := decode(r, &sr); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := h.screener.Run(r.Context(), sr.apply(h.defaults))
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, scoring.ErrInvalidThreshold) || errors.Is(err, scoring.ErrInvalidTopK) {
			status = http.StatusBadRequest
		}
		writeError(w, status, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, report.FromResult(res))
}

func (h *RunsHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	runs, err := h.runs.ListRuns(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if runs == nil {
		runs = []*store.Run{}
	}
	writeJSON(w, http.StatusOK, runs)
}

type RunDetail struct {
	*store.Run
	Candidates []*store.CandidateRecord `json:"candidates"`
}

func (h *RunsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid run id")
		return
	}

	run, err := h.runs.GetRun(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if run == nil {
		writeError(w, http.StatusNotFound, "run not found")
		return
	}

	candidates, err := h.runs.GetRunCandidates(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if candidates == nil {
		candidates = []*store.CandidateRecord{}
	}
	writeJSON(w, http.StatusOK, RunDetail{Run: run, Candidates: candidates})
}
