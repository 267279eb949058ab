// Package mesh holds the triangle mesh value type and the per-face geometry
// derived from it. A Mesh is the single source of truth for geometry:
// operators and solvers built from it record its revision and are rejected
// once the vertex positions change.
package mesh

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

const (
	// areaEpsilon is the minimum face area accepted at construction.
	areaEpsilon = 1e-12

	// cotEpsilon pads the sine in cot(θ) = cos(θ)/(sin(θ)+ε). This is a
	// deliberate numerical relaxation, not an exact cotangent: it keeps
	// the weight finite when an interior angle approaches 0 or π on a
	// near-degenerate face.
	cotEpsilon = 1e-10
)

// DegenerateFaceError reports a face whose area is below the construction
// threshold. It is fatal: no Mesh is produced.
type DegenerateFaceError struct {
	Face int
	Area float64
}

func (e *DegenerateFaceError) Error() string {
	return fmt.Sprintf("mesh: face %d is degenerate (area %g below %g)", e.Face, e.Area, areaEpsilon)
}

// InvalidIndexError reports a face corner referencing a vertex outside
// [0, NumVertices). It is fatal: no Mesh is produced.
type InvalidIndexError struct {
	Face        int
	Corner      int
	Index       int
	NumVertices int
}

func (e *InvalidIndexError) Error() string {
	return fmt.Sprintf("mesh: face %d corner %d references vertex %d, have %d vertices",
		e.Face, e.Corner, e.Index, e.NumVertices)
}

// FaceGeometry is the geometry derived for one face: traversal-order edges,
// the unnormalized and unit normals, the area, and the interior-angle
// cotangents. It is recomputed whenever the mesh vertex positions change.
type FaceGeometry struct {
	// Edges[i] is the edge opposite corner i, oriented in the face's
	// traversal order: Edges[0]=v2−v1, Edges[1]=v0−v2, Edges[2]=v1−v0.
	Edges [3]r3.Vec
	// Normal is the unnormalized face normal (v1−v0)×(v2−v1);
	// its length is twice the face area.
	Normal     r3.Vec
	UnitNormal r3.Vec
	Area       float64
	// Cot[i] is the relaxed cotangent of the interior angle at corner i.
	Cot [3]float64
}

// Mesh is an immutable-topology triangle mesh: vertex positions, face index
// triples, and the geometry and connectivity derived from them. Construct
// with NewMesh or FromArrays; replace positions with SetVertices.
type Mesh struct {
	vertices []r3.Vec
	faces    [][3]int
	geom     []FaceGeometry

	edges    [][2]int // undirected, each once, low index first
	boundary [][2]int // undirected edges used by exactly one face

	revision uint64
}

// NewMesh validates the face indices, the orientation consistency of the
// face winding, and the non-degeneracy of every face, then derives the
// per-face geometry. It fails fast: on any error no Mesh is returned.
func NewMesh(vertices []r3.Vec, faces [][3]int) (*Mesh, error) {
	m := &Mesh{
		vertices: append([]r3.Vec(nil), vertices...),
		faces:    append([][3]int(nil), faces...),
	}
	for f, face := range m.faces {
		for c, v := range face {
			if v < 0 || v >= len(m.vertices) {
				return nil, &InvalidIndexError{Face: f, Corner: c, Index: v, NumVertices: len(m.vertices)}
			}
		}
	}
	if err := m.buildConnectivity(); err != nil {
		return nil, err
	}
	geom, err := deriveGeometry(m.vertices, m.faces)
	if err != nil {
		return nil, err
	}
	m.geom = geom
	return m, nil
}

// FromArrays builds a Mesh from plain numeric arrays, the exchange format of
// the boundary layer (file readers, external tooling).
func FromArrays(vertices [][3]float64, faces [][3]int) (*Mesh, error) {
	vs := make([]r3.Vec, len(vertices))
	for i, v := range vertices {
		vs[i] = r3.Vec{X: v[0], Y: v[1], Z: v[2]}
	}
	return NewMesh(vs, faces)
}

// SetVertices replaces all vertex positions, keeping the topology, and
// recomputes the derived geometry. On error the mesh is left unchanged.
// The revision counter is bumped so that operators built from the previous
// geometry are recognizable as stale.
func (m *Mesh) SetVertices(vertices []r3.Vec) error {
	if len(vertices) != len(m.vertices) {
		return fmt.Errorf("mesh: SetVertices got %d vertices, mesh has %d", len(vertices), len(m.vertices))
	}
	vs := append([]r3.Vec(nil), vertices...)
	geom, err := deriveGeometry(vs, m.faces)
	if err != nil {
		return err
	}
	m.vertices = vs
	m.geom = geom
	m.revision++
	return nil
}

// NumVertices returns n, the number of vertices.
func (m *Mesh) NumVertices() int { return len(m.vertices) }

// NumFaces returns the number of faces.
func (m *Mesh) NumFaces() int { return len(m.faces) }

// Vertex returns the position of vertex i.
func (m *Mesh) Vertex(i int) r3.Vec { return m.vertices[i] }

// Face returns the vertex indices of face f in traversal order.
func (m *Mesh) Face(f int) [3]int { return m.faces[f] }

// Geometry returns the derived geometry of face f.
func (m *Mesh) Geometry(f int) FaceGeometry { return m.geom[f] }

// Revision identifies the current vertex geometry; it increases every time
// SetVertices succeeds. Derived values tagged with an older revision are
// stale.
func (m *Mesh) Revision() uint64 { return m.revision }

// MeanSquaredEdgeLength averages the squared length of the undirected mesh
// edges. It is the natural length scale for the heat-method time step.
func (m *Mesh) MeanSquaredEdgeLength() float64 {
	if len(m.edges) == 0 {
		return 0
	}
	var sum float64
	for _, e := range m.edges {
		sum += r3.Norm2(r3.Sub(m.vertices[e[1]], m.vertices[e[0]]))
	}
	return sum / float64(len(m.edges))
}

// TotalArea sums the face areas.
func (m *Mesh) TotalArea() float64 {
	var sum float64
	for _, g := range m.geom {
		sum += g.Area
	}
	return sum
}

func deriveGeometry(vertices []r3.Vec, faces [][3]int) ([]FaceGeometry, error) {
	geom := make([]FaceGeometry, len(faces))
	for f, face := range faces {
		p0, p1, p2 := vertices[face[0]], vertices[face[1]], vertices[face[2]]
		g := FaceGeometry{
			Edges: [3]r3.Vec{
				r3.Sub(p2, p1),
				r3.Sub(p0, p2),
				r3.Sub(p1, p0),
			},
		}
		g.Normal = r3.Cross(g.Edges[2], g.Edges[0])
		nrm := r3.Norm(g.Normal)
		g.Area = nrm / 2
		if g.Area <= areaEpsilon {
			return nil, &DegenerateFaceError{Face: f, Area: g.Area}
		}
		g.UnitNormal = r3.Scale(1/nrm, g.Normal)

		// Interior angle at corner i sits between the two edges leaving it,
		// which are the opposite edges of the other two corners (negated as
		// needed to point away from the corner).
		g.Cot[0] = relaxedCot(r3.Sub(p1, p0), r3.Sub(p2, p0))
		g.Cot[1] = relaxedCot(r3.Sub(p2, p1), r3.Sub(p0, p1))
		g.Cot[2] = relaxedCot(r3.Sub(p0, p2), r3.Sub(p1, p2))
		geom[f] = g
	}
	return geom, nil
}

// relaxedCot computes cos(θ)/(sin(θ)+ε) for the angle θ between a and b.
func relaxedCot(a, b r3.Vec) float64 {
	d := r3.Dot(r3.Unit(a), r3.Unit(b))
	if d > 1 {
		d = 1
	} else if d < -1 {
		d = -1
	}
	th := math.Acos(d)
	return math.Cos(th) / (math.Sin(th) + cotEpsilon)
}
