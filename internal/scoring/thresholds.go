package scoring

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidThreshold = errors.New("stability threshold must be in (0,100]")
	ErrInvalidTopK      = errors.New("top_k must be at least 1")
)

// Thresholds controls the filtering and selection stages of a ranking pass.
type Thresholds struct {
	// StabilityThreshold is a percentage; candidates need stability*100 above it.
	StabilityThreshold float64
	TopK               int
}

// DefaultThresholds returns a 67% stability cut and the top 10 candidates.
func DefaultThresholds() Thresholds {
	return Thresholds{
		StabilityThreshold: 67,
		TopK:               10,
	}
}

// Validate checks the threshold lies in (0,100] and TopK is positive.
func (t Thresholds) Validate() error {
	if !(t.StabilityThreshold > 0 && t.StabilityThreshold <= 100) {
		return fmt.Errorf("%w: got %v", ErrInvalidThreshold, t.StabilityThreshold)
	}
	if t.TopK < 1 {
		return fmt.Errorf("%w: got %d", ErrInvalidTopK, t.TopK)
	}
	return nil
}
