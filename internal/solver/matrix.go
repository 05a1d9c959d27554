// Package solver implements the implicit (backward Euler) mass-spring
// integrator: a sparse 3x3-block linear system assembled from force
// Jacobians each substep and solved with a constraint-filtered
// conjugate gradient method, following Baraff/Witkin, "Large Steps in
// Cloth Simulation" (SIGGRAPH 1998).
package solver

import (
	vmath "github.com/Faultbox/weft/pkg/math"
)

// Vector is a per-vertex vector of 3D values (forces, velocities, ...).
type Vector []vmath.Vec3

// NewVector returns a zeroed vector for n vertices.
func NewVector(n int) Vector {
	return make(Vector, n)
}

// Zero clears all entries in place.
func (v Vector) Zero() {
	for i := range v {
		v[i] = vmath.Vec3{}
	}
}

// CopyFrom copies src into v.
func (v Vector) CopyFrom(src Vector) {
	copy(v, src)
}

// Dot returns the scalar product of two vectors.
func (v Vector) Dot(other Vector) float32 {
	var sum float32
	for i := range v {
		sum += v[i].Dot(other[i])
	}
	return sum
}

// AddScaled sets v = a + b*s entry-wise.
func (v Vector) AddScaled(a, b Vector, s float32) {
	for i := range v {
		v[i] = a[i].MAdd(b[i], s)
	}
}

type offDiagBlock struct {
	r, c int
	m    vmath.Mat3
}

// Matrix is a sparse symmetric matrix of 3x3 blocks: a dense block
// diagonal (one block per vertex) plus off-diagonal blocks stored once
// per vertex pair. The multiply applies the stored block and its
// transpose, so only the lower triangle is ever inserted.
//
// Off-diagonal capacity is fixed at creation time from the spring
// topology (one block per 2-vertex spring, three per angular bending
// spring) so no allocation happens during a solve.
type Matrix struct {
	n     int
	diag  []vmath.Mat3
	offd  []offDiagBlock
	index map[[2]int]int
}

// NewMatrix creates an n-vertex block matrix with room for numOffDiag
// off-diagonal blocks.
func NewMatrix(n, numOffDiag int) *Matrix {
	return &Matrix{
		n:     n,
		diag:  make([]vmath.Mat3, n),
		offd:  make([]offDiagBlock, 0, numOffDiag),
		index: make(map[[2]int]int, numOffDiag),
	}
}

// NumVerts returns the number of vertex rows.
func (m *Matrix) NumVerts() int {
	return m.n
}

// Clear zeroes all blocks but keeps the sparse structure.
func (m *Matrix) Clear() {
	for i := range m.diag {
		m.diag[i] = vmath.Mat3{}
	}
	for i := range m.offd {
		m.offd[i].m = vmath.Mat3{}
	}
}

// SetDiag sets the diagonal block of vertex i.
func (m *Matrix) SetDiag(i int, b vmath.Mat3) {
	m.diag[i] = b
}

// AddDiag adds to the diagonal block of vertex i.
func (m *Matrix) AddDiag(i int, b vmath.Mat3) {
	m.diag[i] = m.diag[i].Add(b)
}

// Diag returns the diagonal block of vertex i.
func (m *Matrix) Diag(i int) vmath.Mat3 {
	return m.diag[i]
}

// AddBlock adds b to the off-diagonal block (i, j), i != j. The block
// is stored under the ordered pair; adding with swapped indices adds
// the transpose of b to the same storage.
func (m *Matrix) AddBlock(i, j int, b vmath.Mat3) {
	if i == j {
		m.AddDiag(i, b)
		return
	}
	if i < j {
		i, j = j, i
		b = b.Transpose()
	}
	key := [2]int{i, j}
	if idx, ok := m.index[key]; ok {
		m.offd[idx].m = m.offd[idx].m.Add(b)
		return
	}
	m.offd = append(m.offd, offDiagBlock{r: i, c: j, m: b})
	m.index[key] = len(m.offd) - 1
}

// SetBlock replaces the off-diagonal block (i, j).
func (m *Matrix) SetBlock(i, j int, b vmath.Mat3) {
	if i == j {
		m.SetDiag(i, b)
		return
	}
	if i < j {
		i, j = j, i
		b = b.Transpose()
	}
	key := [2]int{i, j}
	if idx, ok := m.index[key]; ok {
		m.offd[idx].m = b
		return
	}
	m.offd = append(m.offd, offDiagBlock{r: i, c: j, m: b})
	m.index[key] = len(m.offd) - 1
}

// MulVec computes dst = M * src, exploiting symmetry: each stored
// off-diagonal block contributes once directly and once transposed.
func (m *Matrix) MulVec(dst, src Vector) {
	for i := range m.diag {
		dst[i] = m.diag[i].MulVec3(src[i])
	}
	for i := range m.offd {
		b := &m.offd[i]
		dst[b.r] = dst[b.r].Add(b.m.MulVec3(src[b.c]))
		dst[b.c] = dst[b.c].Add(b.m.TransposedMulVec3(src[b.r]))
	}
}

// CloneStructure returns a zeroed matrix sharing the same sparsity
// pattern, used for assembling the system matrix A alongside the
// Jacobian matrices without re-discovering the topology.
func (m *Matrix) CloneStructure() *Matrix {
	c := NewMatrix(m.n, cap(m.offd))
	for _, b := range m.offd {
		c.offd = append(c.offd, offDiagBlock{r: b.r, c: b.c})
		c.index[[2]int{b.r, b.c}] = len(c.offd) - 1
	}
	return c
}

// AssembleImplicit builds m = massDiag - dt*dFdV - dt^2*dFdX, the
// backward Euler system matrix. dFdV and dFdX must share the same
// sparsity pattern as m.
func (m *Matrix) AssembleImplicit(mass []float32, dFdV, dFdX *Matrix, dt float32) {
	for i := range m.diag {
		mb := vmath.Mat3Diag(mass[i])
		m.diag[i] = mb.Sub(dFdV.diag[i].Scale(dt)).Sub(dFdX.diag[i].Scale(dt * dt))
	}
	for i := range m.offd {
		key := [2]int{m.offd[i].r, m.offd[i].c}
		var v, x vmath.Mat3
		if idx, ok := dFdV.index[key]; ok {
			v = dFdV.offd[idx].m
		}
		if idx, ok := dFdX.index[key]; ok {
			x = dFdX.offd[idx].m
		}
		m.offd[i].m = v.Scale(-dt).Sub(x.Scale(dt * dt))
	}
}
