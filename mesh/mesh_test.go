package mesh

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

func rightTriangle() ([]r3.Vec, [][3]int) {
	return []r3.Vec{
		{},
		{X: 1},
		{Y: 1},
	}, [][3]int{{0, 1, 2}}
}

func TestNewMeshRejectsOutOfRangeIndex(t *testing.T) {
	vs, _ := rightTriangle()
	_, err := NewMesh(vs, [][3]int{{0, 1, 3}})
	require.Error(t, err)

	var idxErr *InvalidIndexError
	require.True(t, errors.As(err, &idxErr))
	assert.Equal(t, 0, idxErr.Face)
	assert.Equal(t, 2, idxErr.Corner)
	assert.Equal(t, 3, idxErr.Index)
}

func TestNewMeshRejectsDegenerateFace(t *testing.T) {
	vs := []r3.Vec{{}, {X: 1}, {X: 2}} // collinear
	_, err := NewMesh(vs, [][3]int{{0, 1, 2}})
	require.Error(t, err)

	var degErr *DegenerateFaceError
	require.True(t, errors.As(err, &degErr))
	assert.Equal(t, 0, degErr.Face)
}

func TestNewMeshRejectsInconsistentOrientation(t *testing.T) {
	vs := []r3.Vec{{}, {X: 1}, {Y: 1}, {Z: 1}}
	// Both faces traverse the edge 0→1 in the same direction.
	_, err := NewMesh(vs, [][3]int{{0, 1, 2}, {0, 1, 3}})
	require.Error(t, err)

	// Flipping the second face makes the winding consistent.
	m, err := NewMesh(vs, [][3]int{{0, 1, 2}, {1, 0, 3}})
	require.NoError(t, err)
	assert.Equal(t, 2, m.NumFaces())
}

func TestFaceGeometryRightTriangle(t *testing.T) {
	vs, fs := rightTriangle()
	m, err := NewMesh(vs, fs)
	require.NoError(t, err)

	g := m.Geometry(0)
	assert.InDelta(t, 0.5, g.Area, 1e-14)
	assert.InDelta(t, 1.0, g.UnitNormal.Z, 1e-14)
	assert.InDelta(t, 0.0, g.UnitNormal.X, 1e-14)
	assert.InDelta(t, 0.0, g.UnitNormal.Y, 1e-14)

	// 90° at the right-angle corner, 45° at the others.
	assert.InDelta(t, 0.0, g.Cot[0], 1e-9)
	assert.InDelta(t, 1.0, g.Cot[1], 1e-9)
	assert.InDelta(t, 1.0, g.Cot[2], 1e-9)

	// Opposite edges in traversal order sum to zero.
	sum := r3.Add(g.Edges[0], r3.Add(g.Edges[1], g.Edges[2]))
	assert.InDelta(t, 0.0, r3.Norm(sum), 1e-15)
}

func TestIcosahedron(t *testing.T) {
	m := Icosahedron()
	assert.Equal(t, 12, m.NumVertices())
	assert.Equal(t, 20, m.NumFaces())
	assert.Equal(t, 30, len(m.Edges()))
	assert.Empty(t, m.BoundaryEdges())
	assert.Equal(t, 1, m.ConnectedComponents())

	// All faces congruent, outward normals.
	area0 := m.Geometry(0).Area
	for f := 0; f < m.NumFaces(); f++ {
		g := m.Geometry(f)
		assert.InDelta(t, area0, g.Area, 1e-12)
		centroid := r3.Scale(1.0/3.0,
			r3.Add(m.Vertex(m.Face(f)[0]), r3.Add(m.Vertex(m.Face(f)[1]), m.Vertex(m.Face(f)[2]))))
		assert.Greater(t, r3.Dot(g.UnitNormal, centroid), 0.0, "face %d normal points inward", f)
	}
}

func TestGridSquare(t *testing.T) {
	n := 4
	m := GridSquare(n, 2.0)
	assert.Equal(t, (n+1)*(n+1), m.NumVertices())
	assert.Equal(t, 2*n*n, m.NumFaces())
	assert.Equal(t, 4*n, len(m.BoundaryEdges()))
	assert.Equal(t, 1, m.ConnectedComponents())
	assert.InDelta(t, 4.0, m.TotalArea(), 1e-12)
}

func TestSphereMesh(t *testing.T) {
	m := SphereMesh(2)
	for i := 0; i < m.NumVertices(); i++ {
		assert.InDelta(t, 1.0, r3.Norm(m.Vertex(i)), 1e-12)
	}
	// Closed genus-0 surface: V − E + F = 2.
	assert.Equal(t, 2, m.NumVertices()-len(m.Edges())+m.NumFaces())
	assert.Empty(t, m.BoundaryEdges())
	assert.InDelta(t, 4*math.Pi, m.TotalArea(), 0.5)
}

func TestSetVerticesBumpsRevision(t *testing.T) {
	m := Icosahedron()
	rev := m.Revision()
	area := m.TotalArea()

	scaled := make([]r3.Vec, m.NumVertices())
	for i := range scaled {
		scaled[i] = r3.Scale(2, m.Vertex(i))
	}
	require.NoError(t, m.SetVertices(scaled))
	assert.Equal(t, rev+1, m.Revision())
	assert.InDelta(t, 4*area, m.TotalArea(), 1e-9)

	// Degenerate update leaves the mesh untouched.
	flat := make([]r3.Vec, m.NumVertices())
	err := m.SetVertices(flat)
	require.Error(t, err)
	assert.Equal(t, rev+1, m.Revision())
	assert.InDelta(t, 4*area, m.TotalArea(), 1e-9)
}

func TestMeanSquaredEdgeLength(t *testing.T) {
	m := GridSquare(2, 2.0) // h = 1: axis edges length 1, diagonals √2
	// 12 axis-aligned edges of length 1, 4 diagonals of length √2.
	want := (12*1.0 + 4*2.0) / 16.0
	assert.InDelta(t, want, m.MeanSquaredEdgeLength(), 1e-12)
}
