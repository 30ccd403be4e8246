package scoring

import (
	"math"
	"sort"
)

// ReferencePoint is a known material on the density/stiffness plane.
type ReferencePoint struct {
	Label       string  `json:"label"`
	Density     float64 `json:"density"`
	BulkModulus float64 `json:"bulk_modulus"`
}

// Frontier is the upper-left stiffness/density trade-off boundary, strictly
// increasing in density and in bulk modulus.
type Frontier []ReferencePoint

// FrontierIndices returns the positions in points that form the frontier, in
// ascending density order.
//
// Points are stable-sorted by density and swept once with a running maximum.
// A point joins only if its modulus strictly exceeds every modulus seen so
// far; ties do not advance the frontier. When a joining point shares its
// density with the previous frontier point, it replaces it, since the earlier
// point is dominated.
func FrontierIndices(points []ReferencePoint) []int {
	if len(points) == 0 {
		return nil
	}
	order := make([]int, len(points))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		return points[order[i]].Density < points[order[j]].Density
	})

	var out []int
	maxStiffness := math.Inf(-1)
	for _, idx := range order {
		p := points[idx]
		if math.IsNaN(p.Density) || !(p.BulkModulus > maxStiffness) {
			continue
		}
		maxStiffness = p.BulkModulus
		if n := len(out); n > 0 && points[out[n-1]].Density == p.Density {
			out[n-1] = idx
			continue
		}
		out = append(out, idx)
	}
	return out
}

// BuildFrontier returns the frontier points of the reference set.
// O(n log n) for the sort, O(n) for the sweep.
func BuildFrontier(points []ReferencePoint) Frontier {
	idx := FrontierIndices(points)
	if len(idx) == 0 {
		return Frontier{}
	}
	out := make(Frontier, len(idx))
	for i, j := range idx {
		out[i] = points[j]
	}
	return out
}

// Interpolable reports whether the frontier has enough points to interpolate.
func (f Frontier) Interpolable() bool {
	return len(f) >= 2
}
