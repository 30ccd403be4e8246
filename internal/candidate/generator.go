package candidate

import "strings"

// Candidate is a generated composition of the form M2AX.
type Candidate struct {
	Formula string `json:"formula"`
	M       string `json:"m"`
	A       string `json:"a"`
	X       string `json:"x"`
	// Index is the position in generation order. Ranking ties are broken on it.
	Index int `json:"index"`
}

// Roles holds the three role-typed element lists a candidate space is built from.
type Roles struct {
	M []string `yaml:"m" json:"m"`
	A []string `yaml:"a" json:"a"`
	X []string `yaml:"x" json:"x"`
}

// DefaultRoles returns the MAX-phase search space: transition metals,
// group 13/14 A elements, and carbon/nitrogen.
func DefaultRoles() Roles {
	return Roles{
		M: []string{"Ti", "V", "Cr", "Zr", "Nb", "Mo", "Hf", "Ta", "W"},
		A: []string{"Al", "Si", "P", "S", "Ga", "Ge", "In", "Sn"},
		X: []string{"C", "N"},
	}
}

// Size returns the number of candidates Generate will produce.
func (r Roles) Size() int {
	return len(r.M) * len(r.A) * len(r.X)
}

// Formula formats a single M2AX composition.
func Formula(m, a, x string) string {
	var b strings.Builder
	b.Grow(len(m) + len(a) + len(x) + 1)
	b.WriteString(m)
	b.WriteByte('2')
	b.WriteString(a)
	b.WriteString(x)
	return b.String()
}

// Generate returns the Cartesian product of the role lists, outer loop over M,
// then A, then X. An empty role list yields no candidates.
func Generate(roles Roles) []Candidate {
	n := roles.Size()
	if n == 0 {
		return nil
	}
	out := make([]Candidate, 0, n)
	for _, m := range roles.M {
		for _, a := range roles.A {
			for _, x := range roles.X {
				out = append(out, Candidate{
					Formula: Formula(m, a, x),
					M:       m,
					A:       a,
					X:       x,
					Index:   len(out),
				})
			}
		}
	}
	return out
}

// Formulas returns the formula strings of cs in order.
func Formulas(cs []Candidate) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.Formula
	}
	return out
}
