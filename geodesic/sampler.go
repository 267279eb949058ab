package geodesic

import (
	"fmt"
	"math"

	"github.com/notargets/geoheat/mesh"
	"github.com/notargets/geoheat/operators"
)

// FarthestPointSample greedily selects k maximally-separated vertices
// starting from seed: each iteration computes the distance field from the
// most recently selected vertex, folds it into the running minimum-distance
// field, and selects the unselected vertex maximizing that minimum (ties
// broken by smallest index). The result is the ordered selection sequence,
// deterministic for fixed seed, k, and time step. A solver failure on any
// iteration aborts the sampling: the running field would be inconsistent
// otherwise.
func (s *Solver) FarthestPointSample(k, seed int) ([]int, error) {
	n := s.mesh.NumVertices()
	if k < 1 || k > n {
		return nil, &ParameterError{Name: "k", Value: float64(k),
			Reason: fmt.Sprintf("out of range [1,%d]", n)}
	}
	if seed < 0 || seed >= n {
		return nil, &ParameterError{Name: "seed", Value: float64(seed),
			Reason: fmt.Sprintf("out of range [0,%d)", n)}
	}

	selected := make([]int, 0, k)
	selected = append(selected, seed)
	inSet := make([]bool, n)
	inSet[seed] = true

	minDist := make([]float64, n)
	for i := range minDist {
		minDist[i] = math.Inf(1)
	}

	last := seed
	for len(selected) < k {
		d, err := s.Distance(last)
		if err != nil {
			return nil, fmt.Errorf("geodesic: farthest point sampling, iteration %d: %w", len(selected), err)
		}
		for i, di := range d {
			if di < minDist[i] {
				minDist[i] = di
			}
		}

		next, best := -1, math.Inf(-1)
		for i := 0; i < n; i++ {
			if inSet[i] {
				continue
			}
			if minDist[i] > best {
				best = minDist[i]
				next = i
			}
		}
		selected = append(selected, next)
		inSet[next] = true
		last = next
	}
	return selected, nil
}

// FarthestPointSample is the one-call form: build a solver for (mesh,
// operators, t) and sample k vertices from seed.
func FarthestPointSample(m *mesh.Mesh, ops *operators.Set, k, seed int, t float64) ([]int, error) {
	s, err := NewSolver(m, ops, t)
	if err != nil {
		return nil, err
	}
	return s.FarthestPointSample(k, seed)
}
