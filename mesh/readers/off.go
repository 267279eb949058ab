// Package readers parses mesh files into plain numeric arrays. It sits
// outside the numerical core: the only exchange format is raw vertex and
// face index arrays, which mesh.FromArrays validates.
package readers

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// ReadOFF reads an ASCII OFF file and returns the vertex coordinate and
// triangle index arrays. Faces with more than three corners are rejected:
// the core operates on triangle meshes only.
func ReadOFF(path string) (vertices [][3]float64, faces [][3]int, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	next := func() ([]string, error) {
		for sc.Scan() {
			line := strings.TrimSpace(sc.Text())
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			return strings.Fields(line), nil
		}
		if err := sc.Err(); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("readers: %s: unexpected end of file", path)
	}

	header, err := next()
	if err != nil {
		return nil, nil, err
	}
	if len(header) != 1 || header[0] != "OFF" {
		return nil, nil, fmt.Errorf("readers: %s: missing OFF header", path)
	}

	counts, err := next()
	if err != nil {
		return nil, nil, err
	}
	if len(counts) < 2 {
		return nil, nil, fmt.Errorf("readers: %s: malformed count line %q", path, strings.Join(counts, " "))
	}
	nv, err := strconv.Atoi(counts[0])
	if err != nil {
		return nil, nil, fmt.Errorf("readers: %s: vertex count: %w", path, err)
	}
	nf, err := strconv.Atoi(counts[1])
	if err != nil {
		return nil, nil, fmt.Errorf("readers: %s: face count: %w", path, err)
	}

	vertices = make([][3]float64, nv)
	for i := 0; i < nv; i++ {
		fields, err := next()
		if err != nil {
			return nil, nil, err
		}
		if len(fields) < 3 {
			return nil, nil, fmt.Errorf("readers: %s: vertex %d has %d coordinates", path, i, len(fields))
		}
		for c := 0; c < 3; c++ {
			vertices[i][c], err = strconv.ParseFloat(fields[c], 64)
			if err != nil {
				return nil, nil, fmt.Errorf("readers: %s: vertex %d: %w", path, i, err)
			}
		}
	}

	faces = make([][3]int, nf)
	for i := 0; i < nf; i++ {
		fields, err := next()
		if err != nil {
			return nil, nil, err
		}
		arity, err := strconv.Atoi(fields[0])
		if err != nil {
			return nil, nil, fmt.Errorf("readers: %s: face %d: %w", path, i, err)
		}
		if arity != 3 || len(fields) < 4 {
			return nil, nil, fmt.Errorf("readers: %s: face %d has %d corners, want 3", path, i, arity)
		}
		for c := 0; c < 3; c++ {
			faces[i][c], err = strconv.Atoi(fields[c+1])
			if err != nil {
				return nil, nil, fmt.Errorf("readers: %s: face %d: %w", path, i, err)
			}
		}
	}
	return vertices, faces, nil
}
