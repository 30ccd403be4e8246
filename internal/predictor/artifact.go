package predictor

import (
	"fmt"
	"math"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// Target holds one coefficient per regression output.
type Target struct {
	BulkModulus float64 `yaml:"bulk_modulus" json:"bulk_modulus"`
	Density     float64 `yaml:"density" json:"density"`
}

// LinearRegressor predicts [bulk_modulus, density] as an intercept plus the
// fraction-weighted sum of per-element coefficients.
type LinearRegressor struct {
	Intercept    Target            `yaml:"intercept" json:"intercept"`
	Coefficients map[string]Target `yaml:"coefficients" json:"coefficients"`
}

// LogisticClassifier estimates [p_unstable, p_stable] from the same features.
type LogisticClassifier struct {
	Intercept    float64            `yaml:"intercept" json:"intercept"`
	Coefficients map[string]float64 `yaml:"coefficients" json:"coefficients"`
}

// Artifact is the persisted model. JSON artifacts parse as YAML.
type Artifact struct {
	Version    int                 `yaml:"version" json:"version"`
	Name       string              `yaml:"name" json:"name"`
	Regressor  *LinearRegressor    `yaml:"regressor" json:"regressor"`
	Classifier *LogisticClassifier `yaml:"classifier,omitempty" json:"classifier,omitempty"`
}

// LoadArtifact reads and validates a model artifact. Every failure wraps
// ErrArtifactLoad and names the path.
func LoadArtifact(path string) (*Artifact, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w %s: %w", ErrArtifactLoad, path, err)
	}
	var a Artifact
	if err := yaml.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("%w %s: parse: %w", ErrArtifactLoad, path, err)
	}
	if err := a.Validate(); err != nil {
		return nil, fmt.Errorf("%w %s: %w", ErrArtifactLoad, path, err)
	}
	return &a, nil
}

// Validate checks the artifact has a usable regressor and finite coefficients.
func (a *Artifact) Validate() error {
	if a.Regressor == nil || len(a.Regressor.Coefficients) == 0 {
		return fmt.Errorf("missing regressor coefficients")
	}
	if !finite(a.Regressor.Intercept.BulkModulus, a.Regressor.Intercept.Density) {
		return fmt.Errorf("non-finite regressor intercept")
	}
	for el, c := range a.Regressor.Coefficients {
		if !finite(c.BulkModulus, c.Density) {
			return fmt.Errorf("non-finite regressor coefficient for %s", el)
		}
	}
	if a.Classifier != nil {
		if !finite(a.Classifier.Intercept) {
			return fmt.Errorf("non-finite classifier intercept")
		}
		for el, w := range a.Classifier.Coefficients {
			if !finite(w) {
				return fmt.Errorf("non-finite classifier coefficient for %s", el)
			}
		}
	}
	return nil
}

// Elements lists the elements the regressor can featurize, sorted.
func (a *Artifact) Elements() []string {
	out := make([]string, 0, len(a.Regressor.Coefficients))
	for el := range a.Regressor.Coefficients {
		out = append(out, el)
	}
	sort.Strings(out)
	return out
}

// Predict returns [bulk_modulus, density] per feature vector.
func (r *LinearRegressor) Predict(fs []Features) ([][2]float64, error) {
	out := make([][2]float64, len(fs))
	for i, f := range fs {
		bulk, dens := r.Intercept.BulkModulus, r.Intercept.Density
		for _, el := range sortedKeys(f.Fractions) {
			c, ok := r.Coefficients[el]
			if !ok {
				return nil, fmt.Errorf("%w: %s: unknown element %s", ErrFeaturize, f.Formula, el)
			}
			frac := f.Fractions[el]
			bulk += frac * c.BulkModulus
			dens += frac * c.Density
		}
		out[i] = [2]float64{bulk, dens}
	}
	return out, nil
}

// PredictProba returns [p_unstable, p_stable] per feature vector.
func (c *LogisticClassifier) PredictProba(fs []Features) ([][2]float64, error) {
	out := make([][2]float64, len(fs))
	for i, f := range fs {
		z := c.Intercept
		for _, el := range sortedKeys(f.Fractions) {
			w, ok := c.Coefficients[el]
			if !ok {
				return nil, fmt.Errorf("%w: %s: unknown element %s", ErrFeaturize, f.Formula, el)
			}
			z += f.Fractions[el] * w
		}
		p := 1 / (1 + math.Exp(-z))
		out[i] = [2]float64{1 - p, p}
	}
	return out, nil
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func finite(vs ...float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
