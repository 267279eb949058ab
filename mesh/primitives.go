package mesh

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Icosahedron returns the regular icosahedron inscribed in the unit sphere:
// 12 vertices, 20 faces, consistently wound counter-clockwise seen from
// outside. It is the standard closed reference mesh for operator checks.
func Icosahedron() *Mesh {
	t := (1 + math.Sqrt(5)) / 2
	raw := []r3.Vec{
		{X: -1, Y: t}, {X: 1, Y: t}, {X: -1, Y: -t}, {X: 1, Y: -t},
		{Y: -1, Z: t}, {Y: 1, Z: t}, {Y: -1, Z: -t}, {Y: 1, Z: -t},
		{X: t, Z: -1}, {X: t, Z: 1}, {X: -t, Z: -1}, {X: -t, Z: 1},
	}
	vertices := make([]r3.Vec, len(raw))
	for i, v := range raw {
		vertices[i] = r3.Unit(v)
	}
	faces := [][3]int{
		{0, 11, 5}, {0, 5, 1}, {0, 1, 7}, {0, 7, 10}, {0, 10, 11},
		{1, 5, 9}, {5, 11, 4}, {11, 10, 2}, {10, 7, 6}, {7, 1, 8},
		{3, 9, 4}, {3, 4, 2}, {3, 2, 6}, {3, 6, 8}, {3, 8, 9},
		{4, 9, 5}, {2, 4, 11}, {6, 2, 10}, {8, 6, 7}, {9, 8, 1},
	}
	m, err := NewMesh(vertices, faces)
	if err != nil {
		panic(err)
	}
	return m
}

// GridSquare returns a flat triangulated square of the given side length in
// the z=0 plane: (n+1)² vertices, 2n² faces, all normals +z. Vertex (i,j)
// has index i*(n+1)+j at position (j*h, i*h, 0) with h = size/n.
func GridSquare(n int, size float64) *Mesh {
	if n < 1 {
		panic("mesh: GridSquare needs n >= 1")
	}
	h := size / float64(n)
	vertices := make([]r3.Vec, 0, (n+1)*(n+1))
	for i := 0; i <= n; i++ {
		for j := 0; j <= n; j++ {
			vertices = append(vertices, r3.Vec{X: float64(j) * h, Y: float64(i) * h})
		}
	}
	faces := make([][3]int, 0, 2*n*n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			a := i*(n+1) + j
			b := a + 1
			c := a + n + 2
			d := a + n + 1
			faces = append(faces, [3]int{a, b, c}, [3]int{a, c, d})
		}
	}
	m, err := NewMesh(vertices, faces)
	if err != nil {
		panic(err)
	}
	return m
}

// SphereMesh returns the unit sphere triangulated by subdividing the
// icosahedron the given number of times (each level splits every face into
// four) and projecting the vertices back onto the sphere.
func SphereMesh(subdivisions int) *Mesh {
	ico := Icosahedron()
	vertices := append([]r3.Vec(nil), ico.vertices...)
	faces := append([][3]int(nil), ico.faces...)

	for level := 0; level < subdivisions; level++ {
		midpoints := make(map[[2]int]int)
		midpoint := func(a, b int) int {
			key := [2]int{a, b}
			if key[0] > key[1] {
				key[0], key[1] = key[1], key[0]
			}
			if idx, ok := midpoints[key]; ok {
				return idx
			}
			p := r3.Unit(r3.Scale(0.5, r3.Add(vertices[a], vertices[b])))
			vertices = append(vertices, p)
			midpoints[key] = len(vertices) - 1
			return len(vertices) - 1
		}
		next := make([][3]int, 0, 4*len(faces))
		for _, f := range faces {
			ab := midpoint(f[0], f[1])
			bc := midpoint(f[1], f[2])
			ca := midpoint(f[2], f[0])
			next = append(next,
				[3]int{f[0], ab, ca},
				[3]int{f[1], bc, ab},
				[3]int{f[2], ca, bc},
				[3]int{ab, bc, ca},
			)
		}
		faces = next
	}

	m, err := NewMesh(vertices, faces)
	if err != nil {
		panic(err)
	}
	return m
}
