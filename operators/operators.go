// Package operators assembles the sparse discrete differential operators of
// the heat method: the per-face Gradient, its area-weighted adjoint
// Divergence, the Laplacian in both div-grad and direct cotangent form, and
// the lumped Mass matrix.
//
// Sign convention, applied uniformly: the Laplacian is POSITIVE
// semi-definite, Δ = −Div·G = Gᵀ·diag(A)·G, so the heat step matrix
// M + t·Δ is symmetric positive-definite as assembled and the Poisson step
// reads Δ·φ = −Div·Y.
package operators

import (
	"fmt"

	"github.com/james-bowman/sparse"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/notargets/geoheat/mesh"
)

// Set bundles the operators derived from one mesh geometry. A Set is a
// value object: built once, reused across every solve, and stale as soon as
// the mesh vertex positions change.
type Set struct {
	// Gradient maps a vertex scalar field (length n) to a per-face vector
	// field laid out (3m) as [fx0, fy0, fz0, fx1, ...]. Row 3f+c of column
	// i holds component c of (1/(2A_f))·(N_f × e_i), e_i the edge of f
	// opposite vertex i.
	Gradient *sparse.CSR

	// Divergence is −Gᵀ·diag(A_f): the exact area-weighted adjoint, so
	// ⟨Gu, Y⟩_A = −⟨u, Div Y⟩ holds to assembly precision.
	Divergence *sparse.CSR

	// Laplacian is the div-grad form −Div·G, an n×n symmetric positive
	// semi-definite matrix. A mesh with k connected components gives it a
	// k-dimensional null space (the per-component constants).
	Laplacian *sparse.CSR

	// Cotangent is the directly assembled cotangent Laplacian in the same
	// positive semi-definite convention: −cot/2 off-diagonal, row sums
	// zero. It discretizes the same operator as Laplacian and agrees with
	// it within rounding; it is kept for cross-validation.
	Cotangent *sparse.CSR

	// Mass is the lumped per-vertex area matrix diag(m_i),
	// m_i = (1/3)·Σ areas of the faces incident to vertex i.
	Mass *sparse.DIA

	masses   []float64
	mesh     *mesh.Mesh
	revision uint64
}

// Build assembles the operator set for the mesh's current geometry. It is a
// pure function of the mesh: no partially-built set escapes on error.
func Build(m *mesh.Mesh) (*Set, error) {
	n := m.NumVertices()
	nf := m.NumFaces()
	if n == 0 || nf == 0 {
		return nil, fmt.Errorf("operators: mesh has %d vertices and %d faces, nothing to build", n, nf)
	}

	grad := sparse.NewDOK(3*nf, n)
	div := sparse.NewDOK(n, 3*nf)
	cot := sparse.NewDOK(n, n)
	masses := make([]float64, n)

	for f := 0; f < nf; f++ {
		face := m.Face(f)
		g := m.Geometry(f)
		inv := 1 / (2 * g.Area)

		for i := 0; i < 3; i++ {
			v := face[i]

			// Gradient of the hat function of vertex v restricted to this
			// face: the opposite edge rotated 90° in the face plane.
			gv := r3.Scale(inv, r3.Cross(g.UnitNormal, g.Edges[i]))
			for c, comp := range [3]float64{gv.X, gv.Y, gv.Z} {
				row := 3*f + c
				grad.Set(row, v, comp)
				div.Set(v, row, -g.Area*comp)
			}

			// Cotangent stencil: the angle at corner i sits opposite the
			// edge between the other two corners.
			u, w := face[(i+1)%3], face[(i+2)%3]
			half := g.Cot[i] / 2
			addTo(cot, u, w, -half)
			addTo(cot, w, u, -half)
			addTo(cot, u, u, half)
			addTo(cot, w, w, half)

			masses[v] += g.Area / 3
		}
	}

	s := &Set{
		Gradient:   grad.ToCSR(),
		Divergence: div.ToCSR(),
		Cotangent:  cot.ToCSR(),
		Mass:       sparse.NewDIA(n, n, masses),
		masses:     masses,
		mesh:       m,
		revision:   m.Revision(),
	}

	divGrad := &sparse.CSR{}
	divGrad.Mul(s.Divergence, s.Gradient)
	lap := sparse.NewDOK(n, n)
	divGrad.DoNonZero(func(i, j int, v float64) {
		lap.Set(i, j, -v)
	})
	s.Laplacian = lap.ToCSR()

	return s, nil
}

// MassDiagonal returns the lumped per-vertex areas. The slice is shared
// with the Set and must not be modified.
func (s *Set) MassDiagonal() []float64 { return s.masses }

// Mesh returns the mesh the set was built from.
func (s *Set) Mesh() *mesh.Mesh { return s.mesh }

// Stale reports whether the mesh geometry has changed since the set was
// built. Stale sets must be rebuilt, not reused.
func (s *Set) Stale() bool { return s.revision != s.mesh.Revision() }

func addTo(dok *sparse.DOK, i, j int, v float64) {
	dok.Set(i, j, dok.At(i, j)+v)
}

// Apply multiplies a CSR operator by a dense vector. It is the only matrix
// action the pipeline needs outside the factorized solves.
func Apply(a *sparse.CSR, x []float64) ([]float64, error) {
	r, c := a.Dims()
	if len(x) != c {
		return nil, fmt.Errorf("operators: applying %dx%d operator to vector of length %d", r, c, len(x))
	}
	y := make([]float64, r)
	a.DoNonZero(func(i, j int, v float64) {
		y[i] += v * x[j]
	})
	return y, nil
}
