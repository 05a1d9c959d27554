// Package cloth holds the simulated object model (vertices, springs,
// faces, hair strands) and drives the implicit solver through whole
// animation frames: constraint setup, force assembly, substepping,
// collision response and the hair continuum step.
package cloth

import (
	"fmt"

	"github.com/Faultbox/weft/internal/solver"
	vmath "github.com/Faultbox/weft/pkg/math"
)

// SpringType selects the force model applied to a spring.
type SpringType int

const (
	// SpringStructural resists stretch along mesh edges.
	SpringStructural SpringType = iota
	// SpringShear resists in-plane shearing across quads.
	SpringShear
	// SpringBending is the two-vertex cloth bending spring, active
	// under compression only.
	SpringBending
	// SpringBendingHair is the three-vertex angular bending spring
	// used along hair strands.
	SpringBendingHair
	// SpringSewing pulls initially distant vertices together with a
	// clamped force.
	SpringSewing
	// SpringGoal pulls a vertex toward its animated rest position.
	SpringGoal
)

// Spring connects two vertices I, J, or three (I, J, K) for the
// angular hair bending type. Stiffness is the per-spring factor in
// [0, 1] blending between the base and maximum material stiffness.
type Spring struct {
	Type      SpringType
	I, J, K   int
	RestLen   float32
	Stiffness float32

	// Target is the world-space goal direction of the J->K segment,
	// refreshed each substep by frame propagation along the strand.
	// Only used by SpringBendingHair.
	Target vmath.Vec3

	localTarget vmath.Vec3
}

// Vertex is one simulated mass point.
type Vertex struct {
	X vmath.Vec3 // committed position (world space)
	V vmath.Vec3 // committed velocity

	Xold   vmath.Vec3 // pin target at the previous frame
	Xconst vmath.Vec3 // pin target at the current frame
	Txold  vmath.Vec3 // position at the previous substep

	TX vmath.Vec3 // collision working position
	TV vmath.Vec3 // collision working velocity

	Mass   float32
	Goal   float32 // goal spring weight in [0, 1]
	Pinned bool

	impulse      vmath.Vec3
	impulseCount int
}

// Face is a triangle used for wind and drag forces.
type Face struct {
	V [3]int
}

// Strand is one hair fiber: an ordered vertex chain from root to tip
// with the root's rest frame. The angular bending targets are
// propagated along this ordering, so the chain must be explicit and
// complete.
type Strand struct {
	Verts []int
	Rot   vmath.Mat3 // root frame, identity when no rest data exists
}

// Object is a simulated cloth mesh or hair system.
type Object struct {
	Verts   []Vertex
	Springs []Spring
	Faces   []Face
	Strands []Strand

	Params Parameters

	avgSpringLen float32

	sol    *solver.Solver
	result Result
}

// NewObject assembles a simulation object and validates its topology.
// Hair behavior (strand solve path, continuum grid) is enabled by the
// presence of strands.
func NewObject(verts []Vertex, springs []Spring, faces []Face, strands []Strand, params Parameters) (*Object, error) {
	o := &Object{
		Verts:   verts,
		Springs: springs,
		Faces:   faces,
		Strands: strands,
		Params:  params,
	}
	if err := o.validate(); err != nil {
		return nil, err
	}
	return o, nil
}

// IsHair reports whether the object simulates hair strands.
func (o *Object) IsHair() bool {
	return len(o.Strands) > 0
}

func (o *Object) validate() error {
	n := len(o.Verts)
	if n == 0 {
		return fmt.Errorf("cloth: object has no vertices")
	}
	for i, s := range o.Springs {
		if s.I < 0 || s.I >= n || s.J < 0 || s.J >= n {
			return fmt.Errorf("cloth: spring %d references vertex out of range [0, %d)", i, n)
		}
		if s.Type == SpringBendingHair && (s.K < 0 || s.K >= n) {
			return fmt.Errorf("cloth: angular spring %d references vertex %d out of range [0, %d)", i, s.K, n)
		}
	}
	for i, f := range o.Faces {
		for _, v := range f.V {
			if v < 0 || v >= n {
				return fmt.Errorf("cloth: face %d references vertex %d out of range [0, %d)", i, v, n)
			}
		}
	}
	for i, st := range o.Strands {
		if len(st.Verts) < 2 {
			return fmt.Errorf("cloth: strand %d has %d vertices, need at least 2", i, len(st.Verts))
		}
		for _, v := range st.Verts {
			if v < 0 || v >= n {
				return fmt.Errorf("cloth: strand %d references vertex %d out of range [0, %d)", i, v, n)
			}
		}
	}
	return nil
}

// numOffDiag returns the off-diagonal block count the spring topology
// needs: one per 2-vertex spring, three per angular bending spring.
func (o *Object) numOffDiag() int {
	n := 0
	for _, s := range o.Springs {
		switch s.Type {
		case SpringGoal:
			// diagonal only
		case SpringBendingHair:
			n += 3
		default:
			n++
		}
	}
	return n
}

func (o *Object) computeAvgSpringLen() {
	var sum float32
	count := 0
	for _, s := range o.Springs {
		switch s.Type {
		case SpringStructural, SpringShear, SpringSewing:
			sum += s.RestLen
			count++
		}
	}
	if count > 0 {
		o.avgSpringLen = sum / float32(count)
	}
}

// SolverInit creates the solver state from the current vertex data.
// Called lazily by Solve; call it directly to front-load allocation.
func (o *Object) SolverInit() error {
	if err := o.validate(); err != nil {
		return err
	}
	o.computeAvgSpringLen()

	o.sol = solver.NewSolver(len(o.Verts), o.numOffDiag())

	for _, st := range o.Strands {
		if st.Rot == (vmath.Mat3{}) {
			continue
		}
		for _, v := range st.Verts {
			o.sol.SetRestTransform(v, st.Rot)
		}
	}
	for i := range o.Verts {
		vert := &o.Verts[i]
		if vert.Mass > 0 {
			o.sol.SetVertexMass(i, vert.Mass)
		}
		o.sol.SetMotionState(i, vert.X, vert.V)
	}

	o.initBendingTargets()
	o.result = Result{}
	return nil
}

// SetPositions pushes the vertex positions and velocities into the
// solver, discarding its committed state. Used after external edits.
func (o *Object) SetPositions() {
	for i := range o.Verts {
		o.sol.SetMotionState(i, o.Verts[i].X, o.Verts[i].V)
	}
}

// ensureSolver recreates solver state when the vertex count drifted
// from the solver's, so topology edits never index stale arrays.
func (o *Object) ensureSolver() error {
	if o.sol != nil && o.sol.NumVerts() == len(o.Verts) {
		return nil
	}
	return o.SolverInit()
}

// UpdatePinTargets advances the animation targets of all pinned
// vertices: rest holds per-vertex object-space rest positions, prev
// and cur are the object's world matrices at the previous and current
// frame. Strand roots and pinned cloth vertices follow these targets
// during Solve.
func (o *Object) UpdatePinTargets(prev, cur vmath.Mat4, rest []vmath.Vec3) error {
	if len(rest) != len(o.Verts) {
		return fmt.Errorf("cloth: rest positions length %d, want %d", len(rest), len(o.Verts))
	}
	for i := range o.Verts {
		if !o.Verts[i].Pinned {
			continue
		}
		o.Verts[i].Xold = prev.TransformPoint(rest[i])
		o.Verts[i].Xconst = cur.TransformPoint(rest[i])
	}
	return nil
}
