package scoring

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/interp"
)

var (
	// ErrFrontierUndefined is returned when the frontier has fewer than two points.
	ErrFrontierUndefined = errors.New("frontier undefined: fewer than 2 points")
	// ErrZeroCeiling is returned when the interpolated ceiling is zero.
	ErrZeroCeiling = errors.New("frontier ceiling is zero")
)

// Ceilings is a frontier fitted for repeated ceiling lookups within a pass.
type Ceilings struct {
	pl interp.PiecewiseLinear
}

// Fit prepares the frontier for interpolation. Densities must be strictly
// increasing, which BuildFrontier guarantees.
func (f Frontier) Fit() (*Ceilings, error) {
	if !f.Interpolable() {
		return nil, ErrFrontierUndefined
	}
	xs := make([]float64, len(f))
	ys := make([]float64, len(f))
	for i, p := range f {
		xs[i], ys[i] = p.Density, p.BulkModulus
	}
	c := &Ceilings{}
	if err := c.pl.Fit(xs, ys); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFrontierUndefined, err)
	}
	return c, nil
}

// At linearly interpolates the frontier's bulk modulus at density.
// Densities outside the frontier's range are clamped to the boundary value;
// the frontier is never extrapolated.
func (c *Ceilings) At(density float64) (float64, error) {
	if math.IsNaN(density) {
		return 0, fmt.Errorf("%w: density", ErrNonFinite)
	}
	return c.pl.Predict(density), nil
}

// Optimality expresses bulkModulus as a percentage of the ceiling at density.
func (c *Ceilings) Optimality(density, bulkModulus float64) (float64, error) {
	ceiling, err := c.At(density)
	if err != nil {
		return 0, err
	}
	if ceiling == 0 {
		return 0, ErrZeroCeiling
	}
	return bulkModulus / ceiling * 100, nil
}

// Ceiling fits f and interpolates at density. Use Fit when scoring many
// densities against the same frontier.
func (f Frontier) Ceiling(density float64) (float64, error) {
	c, err := f.Fit()
	if err != nil {
		return 0, err
	}
	return c.At(density)
}

// Optimality expresses bulkModulus as a percentage of the frontier ceiling at
// density.
func Optimality(density, bulkModulus float64, f Frontier) (float64, error) {
	c, err := f.Fit()
	if err != nil {
		return 0, err
	}
	return c.Optimality(density, bulkModulus)
}
