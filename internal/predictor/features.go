package predictor

import "github.com/MikeSquared-Agency/Assay/internal/candidate"

// Features is the composition vector of a candidate: atomic fraction per element.
type Features struct {
	Formula   string
	Fractions map[string]float64
}

// Featurize converts an M2AX candidate into atomic fractions.
// Repeated elements across roles are merged.
func Featurize(c candidate.Candidate) Features {
	counts := map[string]float64{}
	counts[c.M] += 2
	counts[c.A]++
	counts[c.X]++
	for el, n := range counts {
		counts[el] = n / 4
	}
	return Features{Formula: c.Formula, Fractions: counts}
}

// FeaturizeAll featurizes a batch in order.
func FeaturizeAll(cs []candidate.Candidate) []Features {
	out := make([]Features, len(cs))
	for i, c := range cs {
		out[i] = Featurize(c)
	}
	return out
}
