// Package linsolve factorizes the sparse symmetric systems of the heat
// pipeline: an LLᵀ Cholesky factorization computed directly on the sparse
// structure (elimination tree + up-looking numeric phase), never through a
// dense intermediate. A pinned variant handles the Poisson system's
// one-dimensional null space by fixing a degree of freedom before
// factorization.
package linsolve

import (
	"fmt"
	"math"

	"github.com/james-bowman/sparse"
)

// FactorizationError reports a non-positive pivot: the matrix is not
// positive-definite (beyond the null space the caller already accounted
// for). It is surfaced to the caller and never retried internally.
type FactorizationError struct {
	Pivot int
	Value float64
}

func (e *FactorizationError) Error() string {
	return fmt.Sprintf("linsolve: non-positive pivot %g at row %d, matrix is not positive-definite", e.Value, e.Pivot)
}

// Cholesky is the factorization A = L·Lᵀ of a sparse symmetric
// positive-definite matrix, stored column-wise. Factor once, solve many.
type Cholesky struct {
	n    int
	diag []float64 // L[j][j]
	// Strictly-lower entries of column j, rows ascending.
	colInd [][]int
	colVal [][]float64

	pin int // pinned row/column, -1 if none
}

// NewCholesky factorizes a symmetric positive-definite matrix. Only the
// lower triangle (and diagonal) of a is read; symmetry is assumed, not
// checked.
func NewCholesky(a *sparse.CSR) (*Cholesky, error) {
	return factorize(a, -1)
}

// NewPinnedCholesky factorizes a with row and column pin replaced by the
// identity row, removing one degree of freedom. This is how a semi-definite
// system with a one-dimensional null space (the Poisson step on a connected
// mesh) becomes definite before factorization; Solve then forces the pinned
// unknown to zero.
func NewPinnedCholesky(a *sparse.CSR, pin int) (*Cholesky, error) {
	r, _ := a.Dims()
	if pin < 0 || pin >= r {
		return nil, fmt.Errorf("linsolve: pin index %d out of range [0,%d)", pin, r)
	}
	return factorize(a, pin)
}

func factorize(a *sparse.CSR, pin int) (*Cholesky, error) {
	r, c := a.Dims()
	if r != c {
		return nil, fmt.Errorf("linsolve: matrix is %dx%d, want square", r, c)
	}
	n := r

	// Gather the strictly-lower triangle row-wise plus the diagonal,
	// dropping the pinned row/column entirely.
	lowInd := make([][]int, n)
	lowVal := make([][]float64, n)
	diagA := make([]float64, n)
	a.DoNonZero(func(i, j int, v float64) {
		if pin >= 0 && (i == pin || j == pin) {
			return
		}
		switch {
		case i == j:
			diagA[i] = v
		case j < i:
			lowInd[i] = append(lowInd[i], j)
			lowVal[i] = append(lowVal[i], v)
		}
	})
	if pin >= 0 {
		diagA[pin] = 1
	}

	parent := etree(n, lowInd)

	ch := &Cholesky{
		n:      n,
		diag:   make([]float64, n),
		colInd: make([][]int, n),
		colVal: make([][]float64, n),
		pin:    pin,
	}

	// Up-looking numeric phase: row k of L is computed from the nonzero
	// pattern given by the elimination-tree reach of row k of A.
	w := make([]float64, n)
	marked := make([]bool, n)
	stack := make([]int, n)
	path := make([]int, n)

	for k := 0; k < n; k++ {
		// Reach of row k: concatenated etree paths, topological order.
		marked[k] = true
		top := n
		for _, j := range lowInd[k] {
			depth := 0
			for i := j; !marked[i]; i = parent[i] {
				path[depth] = i
				depth++
				marked[i] = true
			}
			for depth > 0 {
				depth--
				top--
				stack[top] = path[depth]
			}
		}

		for idx, j := range lowInd[k] {
			w[j] = lowVal[k][idx]
		}
		d := diagA[k]

		for t := top; t < n; t++ {
			j := stack[t]
			lkj := w[j] / ch.diag[j]
			w[j] = 0
			ind, val := ch.colInd[j], ch.colVal[j]
			for p, i := range ind {
				w[i] -= val[p] * lkj
			}
			d -= lkj * lkj
			ch.colInd[j] = append(ch.colInd[j], k)
			ch.colVal[j] = append(ch.colVal[j], lkj)
		}

		marked[k] = false
		for t := top; t < n; t++ {
			marked[stack[t]] = false
		}

		if d <= 0 || math.IsNaN(d) {
			return nil, &FactorizationError{Pivot: k, Value: d}
		}
		ch.diag[k] = math.Sqrt(d)
	}

	return ch, nil
}

// etree computes the elimination tree of the symmetric matrix whose
// strictly-lower rows are given, with ancestor path compression.
func etree(n int, lowInd [][]int) []int {
	parent := make([]int, n)
	ancestor := make([]int, n)
	for k := 0; k < n; k++ {
		parent[k] = -1
		ancestor[k] = -1
		for _, j := range lowInd[k] {
			for i := j; i != -1 && i < k; {
				next := ancestor[i]
				ancestor[i] = k
				if next == -1 {
					parent[i] = k
				}
				i = next
			}
		}
	}
	return parent
}

// Order returns the dimension of the factorized system.
func (ch *Cholesky) Order() int { return ch.n }

// Solve returns x with A·x = b. For a pinned factorization the pinned
// unknown is forced to zero; the corresponding entry of b is ignored.
func (ch *Cholesky) Solve(b []float64) ([]float64, error) {
	if len(b) != ch.n {
		return nil, fmt.Errorf("linsolve: rhs has length %d, system order is %d", len(b), ch.n)
	}
	x := append([]float64(nil), b...)
	if ch.pin >= 0 {
		x[ch.pin] = 0
	}

	// Forward: L·y = b, column-oriented.
	for j := 0; j < ch.n; j++ {
		x[j] /= ch.diag[j]
		ind, val := ch.colInd[j], ch.colVal[j]
		for p, i := range ind {
			x[i] -= val[p] * x[j]
		}
	}
	// Backward: Lᵀ·x = y.
	for j := ch.n - 1; j >= 0; j-- {
		sum := x[j]
		ind, val := ch.colInd[j], ch.colVal[j]
		for p, i := range ind {
			sum -= val[p] * x[i]
		}
		x[j] = sum / ch.diag[j]
	}
	return x, nil
}
