// Package geodesic computes surface distance fields with the heat method
// and drives farthest point sampling with them. The pipeline is the fixed
// four-stage sequence: Dirac source → implicit heat step → normalized,
// negated gradient → Poisson re-integration. It is one-shot: better
// accuracy comes from a smaller time step and a finer mesh, not from
// iterating.
package geodesic

import (
	"fmt"
	"math"

	"github.com/james-bowman/sparse"
	"gonum.org/v1/gonum/floats"

	"github.com/notargets/geoheat/linsolve"
	"github.com/notargets/geoheat/mesh"
	"github.com/notargets/geoheat/operators"
)

// gradEpsilon guards the normalization of face gradients the diffusion has
// not reached yet (near-zero ‖X‖ far from the source).
const gradEpsilon = 1e-12

// poissonPin is the degree of freedom removed from the Poisson system
// before factorization. Fixing it lets one factorization serve every
// source; the per-query shift below still makes φ[source] exactly zero.
const poissonPin = 0

// ParameterError reports a caller-supplied parameter outside its domain
// (non-positive time step, sample count or index out of range).
type ParameterError struct {
	Name   string
	Value  float64
	Reason string
}

func (e *ParameterError) Error() string {
	return fmt.Sprintf("geodesic: parameter %s=%g %s", e.Name, e.Value, e.Reason)
}

// Solver holds the prefactorized heat and Poisson systems for one mesh and
// one time step. Construct once, query many times.
type Solver struct {
	mesh *mesh.Mesh
	ops  *operators.Set
	t    float64

	heat    *linsolve.Cholesky
	poisson *linsolve.Cholesky
}

// DefaultTimeStep returns the mean squared edge length of the mesh, the
// customary heat-method time step. Larger t diffuses further and is more
// robust to irregular triangulations; smaller t tracks the true distance
// more closely near the source but is more sensitive to mesh quality.
func DefaultTimeStep(m *mesh.Mesh) float64 {
	return m.MeanSquaredEdgeLength()
}

// NewSolver validates the inputs and factorizes both systems. t must be
// positive; t == 0 selects DefaultTimeStep. The operators must belong to
// the mesh's current geometry, and the mesh must be connected (each extra
// component adds a null-space dimension the pinned Poisson factorization
// does not remove).
func NewSolver(m *mesh.Mesh, ops *operators.Set, t float64) (*Solver, error) {
	if ops.Mesh() != m {
		return nil, fmt.Errorf("geodesic: operators were built from a different mesh")
	}
	if ops.Stale() {
		return nil, fmt.Errorf("geodesic: operators are stale, mesh geometry changed since they were built")
	}
	if t < 0 || math.IsNaN(t) {
		return nil, &ParameterError{Name: "t", Value: t, Reason: "must be positive"}
	}
	if t == 0 {
		t = DefaultTimeStep(m)
	}
	if cc := m.ConnectedComponents(); cc != 1 {
		return nil, fmt.Errorf("geodesic: mesh has %d connected components, want 1", cc)
	}

	heatMat, err := assembleHeatMatrix(ops, t)
	if err != nil {
		return nil, err
	}
	heat, err := linsolve.NewCholesky(heatMat)
	if err != nil {
		return nil, fmt.Errorf("geodesic: heat system: %w", err)
	}
	poisson, err := linsolve.NewPinnedCholesky(ops.Laplacian, poissonPin)
	if err != nil {
		return nil, fmt.Errorf("geodesic: poisson system: %w", err)
	}

	return &Solver{mesh: m, ops: ops, t: t, heat: heat, poisson: poisson}, nil
}

// assembleHeatMatrix builds M + t·Δ, symmetric positive-definite for t>0.
func assembleHeatMatrix(ops *operators.Set, t float64) (*sparse.CSR, error) {
	n := ops.Mesh().NumVertices()
	dok := sparse.NewDOK(n, n)
	ops.Laplacian.DoNonZero(func(i, j int, v float64) {
		dok.Set(i, j, t*v)
	})
	for i, mi := range ops.MassDiagonal() {
		if mi <= 0 {
			return nil, fmt.Errorf("geodesic: vertex %d has non-positive lumped mass %g", i, mi)
		}
		dok.Set(i, i, dok.At(i, i)+mi)
	}
	return dok.ToCSR(), nil
}

// TimeStep returns the time step the solver was built with.
func (s *Solver) TimeStep() float64 { return s.t }

// Distance returns the heat-method geodesic distance field from one source
// vertex: non-negative everywhere, exactly zero at the source.
func (s *Solver) Distance(source int) ([]float64, error) {
	return s.DistanceMulti([]int{source})
}

// DistanceMulti returns the distance field from a set of source vertices
// (distance to the nearest source). The field is shifted so its minimum
// over the sources is exactly zero.
func (s *Solver) DistanceMulti(sources []int) ([]float64, error) {
	n := s.mesh.NumVertices()
	if len(sources) == 0 {
		return nil, &ParameterError{Name: "sources", Value: 0, Reason: "must name at least one vertex"}
	}
	for _, src := range sources {
		if src < 0 || src >= n {
			return nil, &ParameterError{Name: "source", Value: float64(src),
				Reason: fmt.Sprintf("out of range [0,%d)", n)}
		}
	}

	// Stage 1: Dirac source vector.
	delta := make([]float64, n)
	for _, src := range sources {
		delta[src] = 1
	}

	// Stage 2: implicit heat step (M + tΔ)·u = δ.
	u, err := s.heat.Solve(delta)
	if err != nil {
		return nil, fmt.Errorf("geodesic: heat step: %w", err)
	}

	// Stage 3: per-face gradient, normalized and negated so it points away
	// from the source. Faces the diffusion has not reached keep a
	// near-zero vector instead of blowing up.
	gu, err := operators.Apply(s.ops.Gradient, u)
	if err != nil {
		return nil, err
	}
	y := make([]float64, len(gu))
	for f := 0; f < len(gu)/3; f++ {
		gx, gy, gz := gu[3*f], gu[3*f+1], gu[3*f+2]
		inv := -1 / (math.Sqrt(gx*gx+gy*gy+gz*gz) + gradEpsilon)
		y[3*f] = inv * gx
		y[3*f+1] = inv * gy
		y[3*f+2] = inv * gz
	}

	// Stage 4: Poisson re-integration Δ·φ = −Div·Y with the pinned
	// factorization, then shift so the nearest source sits at zero.
	rhs, err := operators.Apply(s.ops.Divergence, y)
	if err != nil {
		return nil, err
	}
	floats.Scale(-1, rhs)
	phi, err := s.poisson.Solve(rhs)
	if err != nil {
		return nil, fmt.Errorf("geodesic: poisson step: %w", err)
	}

	shift := phi[sources[0]]
	for _, src := range sources[1:] {
		if phi[src] < shift {
			shift = phi[src]
		}
	}
	for i := range phi {
		phi[i] -= shift
		if phi[i] < 0 {
			phi[i] = 0
		}
	}
	return phi, nil
}

// Distance is the one-call form of the pipeline: build a solver for (mesh,
// operators, t) and run a single query. Callers issuing repeated queries
// should hold a Solver to reuse the factorizations.
func Distance(m *mesh.Mesh, ops *operators.Set, source int, t float64) ([]float64, error) {
	s, err := NewSolver(m, ops, t)
	if err != nil {
		return nil, err
	}
	return s.Distance(source)
}
