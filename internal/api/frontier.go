package api

import (
	"errors"
	"net/http"

	"github.com/MikeSquared-Agency/Assay/internal/scoring"
)

type FrontierHandler struct {
	screener Screener
}

func NewFrontierHandler(sc Screener) *FrontierHandler {
	return &FrontierHandler{screener: sc}
}

type FrontierResponse struct {
	Points       scoring.Frontier `json:"points"`
	Interpolable bool             `json:"interpolable"`
}

func (h *FrontierHandler) Get(w http.ResponseWriter, r *http.Request) {
	f, err := h.screener.Frontier(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if f == nil {
		f = scoring.Frontier{}
	}
	writeJSON(w, http.StatusOK, FrontierResponse{Points: f, Interpolable: f.Interpolable()})
}

type OptimalityRequest struct {
	Density     float64 `json:"density" validate:"gt=0"`
	BulkModulus float64 `json:"bulk_modulus" validate:"gt=0"`
}

type OptimalityResponse struct {
	Density           float64 `json:"density"`
	BulkModulus       float64 `json:"bulk_modulus"`
	SpecificStiffness float64 `json:"specific_stiffness"`
	Ceiling           float64 `json:"ceiling"`
	Optimality        float64 `json:"optimality"`
}

// Optimality scores a single (density, bulk modulus) point against the
// current frontier.
func (h *FrontierHandler) Optimality(w http.ResponseWriter, r *http.Request) {
	var req OptimalityRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	f, err := h.screener.Frontier(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	ceilings, err := f.Fit()
	if err != nil {
		writeError(w, optimalityStatus(err), err.Error())
		return
	}
	opt, err := ceilings.Optimality(req.Density, req.BulkModulus)
	if err != nil {
		writeError(w, optimalityStatus(err), err.Error())
		return
	}
	ceiling, _ := ceilings.At(req.Density)

	ss, err := scoring.SpecificStiffness(req.BulkModulus, req.Density)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, OptimalityResponse{
		Density:           req.Density,
		BulkModulus:       req.BulkModulus,
		SpecificStiffness: ss,
		Ceiling:           ceiling,
		Optimality:        opt,
	})
}

func optimalityStatus(err error) int {
	if errors.Is(err, scoring.ErrFrontierUndefined) || errors.Is(err, scoring.ErrZeroCeiling) {
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}
