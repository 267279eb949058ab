package mesh

import "fmt"

// buildConnectivity walks the directed edges of every face and derives the
// undirected edge list, the boundary edges, and the orientation checks:
//   - a directed edge used by two faces means inconsistent winding,
//   - an undirected edge shared by more than two faces means the surface is
//     non-manifold.
//
// Both are rejected at construction; the rest of the package assumes a
// manifold mesh (possibly with boundary) with consistent orientation.
func (m *Mesh) buildConnectivity() error {
	directed := make(map[[2]int]int, 3*len(m.faces))
	undirected := make(map[[2]int]int, 3*len(m.faces))
	m.edges = m.edges[:0]

	for f, face := range m.faces {
		for c := 0; c < 3; c++ {
			a, b := face[c], face[(c+1)%3]
			if a == b {
				return fmt.Errorf("mesh: face %d repeats vertex %d", f, a)
			}
			de := [2]int{a, b}
			if prev, ok := directed[de]; ok {
				return fmt.Errorf("mesh: faces %d and %d traverse edge (%d,%d) in the same direction: inconsistent orientation",
					prev, f, a, b)
			}
			directed[de] = f

			ue := de
			if ue[0] > ue[1] {
				ue[0], ue[1] = ue[1], ue[0]
			}
			undirected[ue]++
			switch undirected[ue] {
			case 1:
				m.edges = append(m.edges, ue)
			case 3:
				return fmt.Errorf("mesh: edge (%d,%d) is shared by more than two faces: non-manifold", ue[0], ue[1])
			}
		}
	}

	m.boundary = m.boundary[:0]
	for _, e := range m.edges {
		if undirected[e] == 1 {
			m.boundary = append(m.boundary, e)
		}
	}
	return nil
}

// Edges returns the undirected mesh edges, each once, low vertex index first.
func (m *Mesh) Edges() [][2]int { return m.edges }

// BoundaryEdges returns the undirected edges used by exactly one face. A
// closed mesh returns an empty slice.
func (m *Mesh) BoundaryEdges() [][2]int { return m.boundary }

// ConnectedComponents counts the edge-connected components of the vertex
// set. Each component contributes one dimension to the null space of the
// cotangent Laplacian, which is why the geodesic solver insists on a single
// component before factorizing the Poisson system.
func (m *Mesh) ConnectedComponents() int {
	parent := make([]int, len(m.vertices))
	for i := range parent {
		parent[i] = i
	}
	var find func(int) int
	find = func(i int) int {
		for parent[i] != i {
			parent[i] = parent[parent[i]]
			i = parent[i]
		}
		return i
	}
	count := len(parent)
	for _, e := range m.edges {
		ra, rb := find(e[0]), find(e[1])
		if ra != rb {
			parent[ra] = rb
			count--
		}
	}
	return count
}
