package predictor

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/MikeSquared-Agency/Assay/internal/candidate"
)

var (
	// ErrAlignment is returned when predictor output does not line up
	// index-for-index with the candidate batch.
	ErrAlignment = errors.New("prediction alignment")
	// ErrFeaturize is returned when a candidate cannot be featurized.
	ErrFeaturize = errors.New("featurize candidate")
	// ErrInvalidPrediction is returned when the predictor emits a value outside
	// its documented range.
	ErrInvalidPrediction = errors.New("invalid prediction")
	// ErrArtifactLoad is returned when a model artifact is missing or corrupt.
	ErrArtifactLoad = errors.New("load model artifact")
)

// Properties is the predicted record for one candidate.
type Properties struct {
	Formula     string  `json:"formula"`
	BulkModulus float64 `json:"bulk_modulus"`
	Density     float64 `json:"density"`
	// Stability is the probability in [0,1] that the composition is stable.
	// nil when the predictor has no classifier.
	Stability *float64 `json:"stability,omitempty"`
}

// Predictor maps a batch of candidates to predicted properties. The result
// has the same length and order as the input. Any candidate that cannot be
// predicted fails the whole batch.
type Predictor interface {
	Predict(ctx context.Context, candidates []candidate.Candidate) ([]Properties, error)
}

// CheckAligned verifies props lines up with cs and that every stability
// estimate is a probability.
func CheckAligned(cs []candidate.Candidate, props []Properties) error {
	if len(cs) != len(props) {
		return fmt.Errorf("%w: %d candidates, %d predictions", ErrAlignment, len(cs), len(props))
	}
	for i := range cs {
		if props[i].Formula != "" && props[i].Formula != cs[i].Formula {
			return fmt.Errorf("%w: index %d: expected %s, got %s", ErrAlignment, i, cs[i].Formula, props[i].Formula)
		}
		if s := props[i].Stability; s != nil && (math.IsNaN(*s) || *s < 0 || *s > 1) {
			return fmt.Errorf("%w: %s: stability %v outside [0,1]", ErrInvalidPrediction, cs[i].Formula, *s)
		}
	}
	return nil
}
