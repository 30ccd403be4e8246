package predictor

import (
	"context"
	"fmt"

	"github.com/MikeSquared-Agency/Assay/internal/candidate"
)

// Regressor predicts [bulk_modulus, density] for a batch of feature vectors.
type Regressor interface {
	Predict(fs []Features) ([][2]float64, error)
}

// Classifier predicts [p_unstable, p_stable] for a batch of feature vectors.
type Classifier interface {
	PredictProba(fs []Features) ([][2]float64, error)
}

// ModelPredictor runs an in-process regressor and, optionally, a stability
// classifier over one featurized batch.
type ModelPredictor struct {
	regressor  Regressor
	classifier Classifier
}

// NewModelPredictor creates a ModelPredictor. classifier may be nil.
func NewModelPredictor(r Regressor, c Classifier) *ModelPredictor {
	return &ModelPredictor{regressor: r, classifier: c}
}

// FromArtifact builds a ModelPredictor from a loaded artifact.
func FromArtifact(a *Artifact) *ModelPredictor {
	var clf Classifier
	if a.Classifier != nil {
		clf = a.Classifier
	}
	return NewModelPredictor(a.Regressor, clf)
}

// HasClassifier reports whether predictions carry a stability estimate.
func (p *ModelPredictor) HasClassifier() bool {
	return p.classifier != nil
}

func (p *ModelPredictor) Predict(ctx context.Context, cs []candidate.Candidate) ([]Properties, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	fs := FeaturizeAll(cs)

	reg, err := p.regressor.Predict(fs)
	if err != nil {
		return nil, fmt.Errorf("regressor: %w", err)
	}
	if len(reg) != len(cs) {
		return nil, fmt.Errorf("%w: regressor returned %d rows for %d candidates", ErrAlignment, len(reg), len(cs))
	}

	var proba [][2]float64
	if p.classifier != nil {
		proba, err = p.classifier.PredictProba(fs)
		if err != nil {
			return nil, fmt.Errorf("classifier: %w", err)
		}
		if len(proba) != len(cs) {
			return nil, fmt.Errorf("%w: classifier returned %d rows for %d candidates", ErrAlignment, len(proba), len(cs))
		}
	}

	out := make([]Properties, len(cs))
	for i, c := range cs {
		out[i] = Properties{
			Formula:     c.Formula,
			BulkModulus: reg[i][0],
			Density:     reg[i][1],
		}
		if proba != nil {
			stable := proba[i][1]
			out[i].Stability = &stable
		}
	}
	if err := CheckAligned(cs, out); err != nil {
		return nil, err
	}
	return out, nil
}
