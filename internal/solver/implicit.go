package solver

import (
	vmath "github.com/Faultbox/weft/pkg/math"
)

// Default iteration parameters for the velocity solve.
const (
	DefaultTolerance     = 0.01
	DefaultMaxIterations = 100
)

// Solver owns the motion state and the assembled linear system of an
// implicit mass-spring simulation. All state is kept in per-vertex
// "root space": positions and vectors are rotated by the transposed
// rest transform on the way in and rotated back on the way out. With
// identity rest transforms (the default) this is a no-op; hair roots
// use it to express anisotropic bending in the strand's own frame.
//
// A Solver is sized for a fixed vertex count. If the simulated object
// changes topology, the caller must create a new Solver rather than
// patch this one.
type Solver struct {
	Tolerance     float32
	MaxIterations int

	numVerts int

	x, v       Vector // committed motion state
	xnew, vnew Vector // working state of the current substep

	mass []float32
	tfm  []vmath.Mat3 // per-vertex rest transforms

	f          Vector // right-hand-side force accumulator
	dFdX, dFdV *Matrix
	a          *Matrix // assembled system matrix, allocated on first solve

	con *Constraints
}

// NewSolver creates solver state for numVerts vertices with room for
// numOffDiag off-diagonal Jacobian blocks (from the spring topology:
// one per 2-vertex spring, three per angular bending spring).
func NewSolver(numVerts, numOffDiag int) *Solver {
	s := &Solver{
		Tolerance:     DefaultTolerance,
		MaxIterations: DefaultMaxIterations,
		numVerts:      numVerts,
		x:             NewVector(numVerts),
		v:             NewVector(numVerts),
		xnew:          NewVector(numVerts),
		vnew:          NewVector(numVerts),
		mass:          make([]float32, numVerts),
		tfm:           make([]vmath.Mat3, numVerts),
		f:             NewVector(numVerts),
		dFdX:          NewMatrix(numVerts, numOffDiag),
		dFdV:          NewMatrix(numVerts, numOffDiag),
		con:           NewConstraints(numVerts),
	}
	for i := range s.tfm {
		s.tfm[i] = vmath.Mat3Identity()
		s.mass[i] = 1
	}
	return s
}

// NumVerts returns the vertex count the solver was created for.
func (s *Solver) NumVerts() int {
	return s.numVerts
}

func (s *Solver) worldToRoot(i int, v vmath.Vec3) vmath.Vec3 {
	return s.tfm[i].TransposedMulVec3(v)
}

func (s *Solver) rootToWorld(i int, v vmath.Vec3) vmath.Vec3 {
	return s.tfm[i].MulVec3(v)
}

// SetVertexMass sets the mass of vertex i.
func (s *Solver) SetVertexMass(i int, mass float32) {
	s.mass[i] = mass
}

// SetRestTransform sets the rest orientation of vertex i. Identity is
// the default when no root frame data is available.
func (s *Solver) SetRestTransform(i int, tfm vmath.Mat3) {
	s.tfm[i] = tfm
}

// SetMotionState sets both position and velocity of vertex i (world
// space), committing them as current state.
func (s *Solver) SetMotionState(i int, x, v vmath.Vec3) {
	s.x[i] = s.worldToRoot(i, x)
	s.v[i] = s.worldToRoot(i, v)
	s.xnew[i] = s.x[i]
	s.vnew[i] = s.v[i]
}

// SetPosition overwrites the committed position of vertex i.
func (s *Solver) SetPosition(i int, x vmath.Vec3) {
	s.x[i] = s.worldToRoot(i, x)
	s.xnew[i] = s.x[i]
}

// SetVelocity overwrites the committed velocity of vertex i.
func (s *Solver) SetVelocity(i int, v vmath.Vec3) {
	s.v[i] = s.worldToRoot(i, v)
	s.vnew[i] = s.v[i]
}

// Position returns the committed position of vertex i (world space).
func (s *Solver) Position(i int) vmath.Vec3 {
	return s.rootToWorld(i, s.x[i])
}

// Velocity returns the committed velocity of vertex i (world space).
func (s *Solver) Velocity(i int) vmath.Vec3 {
	return s.rootToWorld(i, s.v[i])
}

// MotionState returns committed position and velocity of vertex i.
func (s *Solver) MotionState(i int) (x, v vmath.Vec3) {
	return s.Position(i), s.Velocity(i)
}

// NewPosition returns the uncommitted position of the current substep.
func (s *Solver) NewPosition(i int) vmath.Vec3 {
	return s.rootToWorld(i, s.xnew[i])
}

// SetNewPosition overwrites the uncommitted position of vertex i.
func (s *Solver) SetNewPosition(i int, x vmath.Vec3) {
	s.xnew[i] = s.worldToRoot(i, x)
}

// NewVelocity returns the uncommitted velocity of the current substep.
func (s *Solver) NewVelocity(i int) vmath.Vec3 {
	return s.rootToWorld(i, s.vnew[i])
}

// SetNewVelocity overwrites the uncommitted velocity of vertex i.
// Used by the hair continuum grid to feed back smoothed velocities
// between the velocity and position solves.
func (s *Solver) SetNewVelocity(i int, v vmath.Vec3) {
	s.vnew[i] = s.worldToRoot(i, v)
}

// ClearForces zeroes the force vector and both Jacobian matrices.
// Call once per substep before force accumulation.
func (s *Solver) ClearForces() {
	s.f.Zero()
	s.dFdX.Clear()
	s.dFdV.Clear()
}

// ClearConstraints resets all vertices to unconstrained.
func (s *Solver) ClearConstraints() {
	s.con.Clear()
}

// AddPinConstraint removes all degrees of freedom from vertex i; its
// velocity is defined externally (dv prescribes the remaining change,
// normally zero).
func (s *Solver) AddPinConstraint(i int, dv vmath.Vec3) {
	s.con.Pin(i, s.worldToRoot(i, dv))
}

// AddContactConstraint removes the degree of freedom along the contact
// normal from vertex i and prescribes impulse as the velocity change
// in that direction.
func (s *Solver) AddContactConstraint(i int, normal, impulse vmath.Vec3) {
	s.con.LockDirection(i, s.worldToRoot(i, normal).Normalize(), s.worldToRoot(i, impulse))
}

// SolveVelocities computes the new velocities from the accumulated
// forces using backward Euler:
//
//	(M - dt*dFdV - dt^2*dFdX) * dv = dt*(F + dt*dFdX*v)
//
// The result status reports convergence; the new velocities are
// usable even when the iteration limit was hit.
func (s *Solver) SolveVelocities(dt float32) Result {
	if s.a == nil || len(s.a.offd) != len(s.dFdX.offd) {
		s.a = s.dFdX.CloneStructure()
	}
	s.a.AssembleImplicit(s.mass, s.dFdV, s.dFdX, dt)

	// b = dt*(F + dt*dFdX*v)
	b := NewVector(s.numVerts)
	s.dFdX.MulVec(b, s.v)
	for i := range b {
		b[i] = s.f[i].MAdd(b[i], dt).Scale(dt)
	}

	dv := NewVector(s.numVerts)
	result := SolveFiltered(dv, s.a, b, s.con, s.Tolerance, s.MaxIterations)

	for i := range s.vnew {
		s.vnew[i] = s.v[i].Add(dv[i])
	}
	return result
}

// SolvePositions advances the uncommitted positions with the new
// velocities (semi-implicit update).
func (s *Solver) SolvePositions(dt float32) {
	for i := range s.xnew {
		s.xnew[i] = s.x[i].MAdd(s.vnew[i], dt)
	}
}

// ApplyResult commits the new state as current. Calling it again
// without an intervening solve is a no-op.
func (s *Solver) ApplyResult() {
	s.x.CopyFrom(s.xnew)
	s.v.CopyFrom(s.vnew)
}
