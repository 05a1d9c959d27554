package solver

import (
	"github.com/chewxy/math32"

	vmath "github.com/Faultbox/weft/pkg/math"
)

// Status reports how a linear solve finished.
type Status int

const (
	// StatusSuccess means the residual dropped below tolerance.
	StatusSuccess Status = iota
	// StatusNoConvergence means the iteration limit was reached. The
	// returned solution is still the best approximation found and is
	// usable by the caller.
	StatusNoConvergence
	// StatusInvalid means the solve produced non-finite values.
	StatusInvalid
)

// Result carries the outcome of one velocity solve.
type Result struct {
	Status     Status
	Iterations int
	Error      float32
}

// Constraints holds the per-vertex projection matrices S and target
// deltas z of the modified CG method: S is the identity for free
// vertices, rank-reduced when motion is restricted to a plane, and
// zero when the velocity change is fully prescribed by z.
type Constraints struct {
	S []vmath.Mat3
	Z Vector
}

// NewConstraints returns an unconstrained set for n vertices.
func NewConstraints(n int) *Constraints {
	c := &Constraints{
		S: make([]vmath.Mat3, n),
		Z: NewVector(n),
	}
	c.Clear()
	return c
}

// Clear resets every vertex to unconstrained.
func (c *Constraints) Clear() {
	for i := range c.S {
		c.S[i] = vmath.Mat3Identity()
	}
	c.Z.Zero()
}

// Pin fully prescribes the velocity delta of vertex i (zero degrees of
// freedom left for the solver).
func (c *Constraints) Pin(i int, dv vmath.Vec3) {
	c.S[i] = vmath.Mat3{}
	c.Z[i] = dv
}

// LockDirection removes the component along unit vector n from vertex
// i's solution space and prescribes dv along it (two degrees of
// freedom remain).
func (c *Constraints) LockDirection(i int, n, dv vmath.Vec3) {
	c.S[i] = c.S[i].Sub(vmath.OuterProduct(n, n))
	c.Z[i] = c.Z[i].Add(dv)
}

// filter projects v into the admissible subspace: v[i] = S[i]*v[i].
func (c *Constraints) filter(v Vector) {
	for i := range v {
		v[i] = c.S[i].MulVec3(v[i])
	}
}

// SolveFiltered runs the constraint-filtered conjugate gradient
// iteration with a block-Jacobi preconditioner, solving A*dv = b
// within the subspace admitted by con. The preconditioner inverts the
// 3x3 diagonal blocks of A; residual norms are measured in the
// preconditioned metric. dv is seeded with the constraint deltas z so
// prescribed components survive the projection. Non-convergence is
// reported, not fatal: dv holds the best solution found either way.
func SolveFiltered(dv Vector, a *Matrix, b Vector, con *Constraints, tolerance float32, maxIterations int) Result {
	n := a.NumVerts()
	fb := NewVector(n)
	r := NewVector(n)
	c := NewVector(n)
	q := NewVector(n)
	s := NewVector(n)
	tmp := NewVector(n)

	precond := make([]vmath.Mat3, n)
	for i := 0; i < n; i++ {
		precond[i] = a.Diag(i).Inverse()
	}

	dv.CopyFrom(con.Z)

	fb.CopyFrom(b)
	con.filter(fb)
	for i := range s {
		s[i] = precond[i].MulVec3(fb[i])
	}
	con.filter(s)
	bnorm2 := fb.Dot(s)
	deltaTarget := tolerance * tolerance * bnorm2

	// r = filter(b - A*dv)
	a.MulVec(tmp, dv)
	for i := range r {
		r[i] = b[i].Sub(tmp[i])
	}
	con.filter(r)

	// c = filter(P^-1 * r)
	for i := range c {
		c[i] = precond[i].MulVec3(r[i])
	}
	con.filter(c)

	deltaNew := r.Dot(c)

	iterations := 0
	for deltaNew > deltaTarget && iterations < maxIterations {
		a.MulVec(q, c)
		con.filter(q)

		alpha := deltaNew / c.Dot(q)

		dv.AddScaled(dv, c, alpha)
		r.AddScaled(r, q, -alpha)

		for i := range s {
			s[i] = precond[i].MulVec3(r[i])
		}
		con.filter(s)

		deltaOld := deltaNew
		deltaNew = r.Dot(s)

		c.AddScaled(s, c, deltaNew/deltaOld)
		con.filter(c)

		iterations++
	}

	res := Result{Iterations: iterations}
	if bnorm2 > 0 {
		res.Error = math32.Sqrt(deltaNew / bnorm2)
	}
	switch {
	case math32.IsNaN(res.Error) || math32.IsInf(res.Error, 0):
		res.Status = StatusInvalid
	case deltaNew > deltaTarget:
		res.Status = StatusNoConvergence
	default:
		res.Status = StatusSuccess
	}
	return res
}
