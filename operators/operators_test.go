package operators

import (
	"testing"

	"github.com/james-bowman/sparse"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/notargets/geoheat/mesh"
)

func denseOf(a *sparse.CSR) *mat.Dense {
	r, c := a.Dims()
	d := mat.NewDense(r, c, nil)
	a.DoNonZero(func(i, j int, v float64) {
		d.Set(i, j, v)
	})
	return d
}

// rampField is a deterministic non-trivial vertex scalar field.
func rampField(m *mesh.Mesh) []float64 {
	u := make([]float64, m.NumVertices())
	for i := range u {
		p := m.Vertex(i)
		u[i] = 0.7*p.X - 1.3*p.Y + 0.4*p.Z*p.Z
	}
	return u
}

func TestGradientOfConstantIsZero(t *testing.T) {
	m := mesh.SphereMesh(1)
	ops, err := Build(m)
	require.NoError(t, err)

	ones := make([]float64, m.NumVertices())
	for i := range ones {
		ones[i] = 1
	}
	gu, err := Apply(ops.Gradient, ones)
	require.NoError(t, err)
	for i, v := range gu {
		assert.InDelta(t, 0.0, v, 1e-10, "gradient component %d", i)
	}
}

func TestCotangentRowSumsZero(t *testing.T) {
	for _, m := range []*mesh.Mesh{mesh.Icosahedron(), mesh.SphereMesh(2)} {
		ops, err := Build(m)
		require.NoError(t, err)

		rowSums := make([]float64, m.NumVertices())
		ops.Cotangent.DoNonZero(func(i, j int, v float64) {
			rowSums[i] += v
		})
		for i, s := range rowSums {
			assert.InDelta(t, 0.0, s, 1e-6, "row %d", i)
		}
	}
}

func TestDivGradMatchesCotangent(t *testing.T) {
	m := mesh.Icosahedron()
	ops, err := Build(m)
	require.NoError(t, err)

	lap := denseOf(ops.Laplacian)
	cot := denseOf(ops.Cotangent)

	var diff mat.Dense
	diff.Sub(lap, cot)
	rel := mat.Norm(&diff, 2) / mat.Norm(cot, 2)
	assert.Less(t, rel, 1e-4, "div-grad and cotangent Laplacians disagree, relative Frobenius %g", rel)
}

func TestLaplacianSymmetricPositiveSemiDefinite(t *testing.T) {
	m := mesh.Icosahedron()
	ops, err := Build(m)
	require.NoError(t, err)

	lap := denseOf(ops.Laplacian)
	n := m.NumVertices()
	for i := 0; i < n; i++ {
		assert.Greater(t, lap.At(i, i), 0.0, "diagonal %d", i)
		for j := i + 1; j < n; j++ {
			assert.InDelta(t, lap.At(i, j), lap.At(j, i), 1e-12)
		}
	}

	// uᵀΔu ≥ 0 for a non-constant field under the positive convention.
	u := rampField(m)
	lu, err := Apply(ops.Laplacian, u)
	require.NoError(t, err)
	var quad float64
	for i := range u {
		quad += u[i] * lu[i]
	}
	assert.GreaterOrEqual(t, quad, 0.0)
}

func TestDivergenceIsMassWeightedAdjoint(t *testing.T) {
	m := mesh.SphereMesh(1)
	ops, err := Build(m)
	require.NoError(t, err)

	u := rampField(m)
	y := make([]float64, 3*m.NumFaces())
	for i := range y {
		y[i] = float64((i%7)-3) / 5.0
	}

	gu, err := Apply(ops.Gradient, u)
	require.NoError(t, err)
	divY, err := Apply(ops.Divergence, y)
	require.NoError(t, err)

	// ⟨Gu, Y⟩_A == −⟨u, Div Y⟩ must hold exactly, not approximately.
	var lhs float64
	for f := 0; f < m.NumFaces(); f++ {
		a := m.Geometry(f).Area
		for c := 0; c < 3; c++ {
			lhs += a * gu[3*f+c] * y[3*f+c]
		}
	}
	var rhs float64
	for i := range u {
		rhs -= u[i] * divY[i]
	}
	assert.InDelta(t, lhs, rhs, 1e-10)
}

func TestLumpedMass(t *testing.T) {
	m := mesh.Icosahedron()
	ops, err := Build(m)
	require.NoError(t, err)

	masses := ops.MassDiagonal()
	var total float64
	for i, mi := range masses {
		assert.Greater(t, mi, 0.0, "vertex %d", i)
		total += mi
		assert.InDelta(t, mi, ops.Mass.At(i, i), 1e-15)
	}
	assert.InDelta(t, m.TotalArea(), total, 1e-12)
}

func TestStaleAfterSetVertices(t *testing.T) {
	m := mesh.Icosahedron()
	ops, err := Build(m)
	require.NoError(t, err)
	assert.False(t, ops.Stale())

	scaled := make([]r3.Vec, m.NumVertices())
	for i := range scaled {
		scaled[i] = r3.Scale(1.5, m.Vertex(i))
	}
	require.NoError(t, m.SetVertices(scaled))
	assert.True(t, ops.Stale())

	rebuilt, err := Build(m)
	require.NoError(t, err)
	assert.False(t, rebuilt.Stale())
}
