package solver

import (
	vmath "github.com/Faultbox/weft/pkg/math"
)

const almostZero = 1e-8

// springGeometry returns the root-space extent between two vertices,
// the normalized direction, current length and relative velocity.
// A degenerate (zero length) segment yields a zero direction.
func (s *Solver) springGeometry(i, j int) (dir, vel vmath.Vec3, length float32) {
	extent := s.x[j].Sub(s.x[i])
	vel = s.v[j].Sub(s.v[i])
	length = extent.Length()
	if length > almostZero {
		dir = extent.Scale(1 / length)
	}
	return dir, vel, length
}

// applySpring accumulates a 2-vertex spring force and its Jacobians.
// f is the force on vertex i (j receives the opposite); dfdx and dfdv
// are dF_i/dx_i and dF_i/dv_i, which by symmetry appear negated on the
// off-diagonal block.
func (s *Solver) applySpring(i, j int, f vmath.Vec3, dfdx, dfdv vmath.Mat3) {
	s.f[i] = s.f[i].Add(f)
	s.f[j] = s.f[j].Sub(f)

	s.dFdX.AddDiag(i, dfdx)
	s.dFdX.AddDiag(j, dfdx)
	s.dFdX.AddBlock(i, j, dfdx.Scale(-1))

	s.dFdV.AddDiag(i, dfdv)
	s.dFdV.AddDiag(j, dfdv)
	s.dFdV.AddBlock(i, j, dfdv.Scale(-1))
}

// registerSpringBlocks records the sparsity of an inactive spring so
// the system matrix keeps a stable structure across substeps.
func (s *Solver) registerSpringBlocks(i, j int) {
	s.dFdX.AddBlock(i, j, vmath.Mat3{})
	s.dFdV.AddBlock(i, j, vmath.Mat3{})
}

// dfdxSpring is the classical elastic spring position Jacobian
// dF_i/dx_i = k*((L0/L)*(I - d d^T) - I).
func dfdxSpring(dir vmath.Vec3, length, restLen, k float32) vmath.Mat3 {
	dd := vmath.OuterProduct(dir, dir)
	m := vmath.Mat3Identity().Sub(dd).Scale(restLen / length)
	return m.Sub(vmath.Mat3Identity()).Scale(k)
}

// ForceSpringLinear accumulates a Hookean stretch spring between i and
// j. With noCompress set, a compressed spring contributes nothing.
// clampForce > 0 bounds the stretch force magnitude; sewing springs
// use this to avoid catapulting through colliders when the initial
// distance is large. Returns false when no force was applied.
func (s *Solver) ForceSpringLinear(i, j int, restLen, stiffness, damping float32, noCompress bool, clampForce float32) bool {
	dir, vel, length := s.springGeometry(i, j)
	if length <= almostZero {
		// degenerate segment, skip rather than divide by zero
		s.registerSpringBlocks(i, j)
		return false
	}
	if noCompress && length < restLen {
		s.registerSpringBlocks(i, j)
		return false
	}

	stretch := stiffness * (length - restLen)
	if clampForce > 0 && stretch > clampForce {
		stretch = clampForce
	}

	// damping only along the spring axis (Ascher & Boxman)
	f := dir.Scale(stretch + damping*vel.Dot(dir))

	dfdx := dfdxSpring(dir, length, restLen, stiffness)
	dfdv := vmath.OuterProduct(dir, dir).Scale(-damping)

	s.applySpring(i, j, f, dfdx, dfdv)
	return true
}

// fb is the bending force polynomial from Choi & Ko, "Stable but
// Responsive Cloth" (SIGGRAPH 2002), normalized to x = length/rest.
func fb(length, rest float32) float32 {
	x := length / rest
	xx := x * x
	xxx := xx * x
	xxxx := xxx * x
	return -11.541*xxxx + 34.193*xxx - 39.083*xx + 23.116*x - 9.713
}

func fbDeriv(length, rest float32) float32 {
	x := length / rest
	xx := x * x
	xxx := xx * x
	return -46.164*xxx + 102.579*xx - 78.166*x + 23.116
}

func fbStar(length, rest, kb, cb float32) float32 {
	tempfb := kb * fb(length, rest)
	fbstar := cb * (length - rest)
	if tempfb < fbstar {
		return fbstar
	}
	return tempfb
}

func fbStarJacobi(length, rest, kb, cb float32) float32 {
	tempfb := kb * fb(length, rest)
	fbstar := cb * (length - rest)
	if tempfb < fbstar {
		return -cb
	}
	return -kb * fbDeriv(length, rest)
}

// ForceSpringBending accumulates the cloth bending spring between two
// vertices one edge apart. Only active under compression: the spring
// pushes the endpoints apart to restore flatness.
func (s *Solver) ForceSpringBending(i, j int, restLen, kb, cb float32) bool {
	dir, _, length := s.springGeometry(i, j)
	if length <= almostZero || length >= restLen {
		s.registerSpringBlocks(i, j)
		return false
	}

	f := dir.Scale(fbStar(length, restLen, kb, cb))
	dfdx := vmath.OuterProduct(dir, dir).Scale(fbStarJacobi(length, restLen, kb, cb))

	s.applySpring(i, j, f, dfdx, vmath.Mat3{})
	return true
}

// hairBendForce is the angular bending force on vertex k of the
// (i, j, k) triple: a linear pull of the j->k edge toward the goal
// direction, with damping on the transversal velocity. dx/dv offset
// vertex q, used for the finite difference Jacobian estimation.
func (s *Solver) hairBendForce(i, j, k int, goal vmath.Vec3, stiffness, damping float32, q int, dx, dv vmath.Vec3) vmath.Vec3 {
	edge := s.x[k].Sub(s.x[j])
	velJK := s.v[k].Sub(s.v[j])
	switch q {
	case j:
		edge = edge.Sub(dx)
		velJK = velJK.Sub(dv)
	case k:
		edge = edge.Add(dx)
		velJK = velJK.Add(dv)
	}
	_ = i // the first vertex anchors the frame but carries no force

	f := goal.Sub(edge).Scale(stiffness)

	dirJK := edge.Normalize()
	velOrtho := velJK.Sub(dirJK.Scale(velJK.Dot(dirJK)))
	return f.Sub(velOrtho.Scale(damping))
}

const bendEps = 1e-5

// hairBendEstimate computes one column block of the bending Jacobian
// by central finite differences; an analytic form is impractical due
// to the normalization inside the damping term.
func (s *Solver) hairBendEstimate(i, j, k int, goal vmath.Vec3, stiffness, damping float32, q int, wrtVelocity bool) vmath.Mat3 {
	var m vmath.Mat3
	for col := 0; col < 3; col++ {
		var delta vmath.Vec3
		delta.SetComp(col, bendEps)
		var fPlus, fMinus vmath.Vec3
		if wrtVelocity {
			fPlus = s.hairBendForce(i, j, k, goal, stiffness, damping, q, vmath.Vec3{}, delta)
			fMinus = s.hairBendForce(i, j, k, goal, stiffness, damping, q, vmath.Vec3{}, delta.Negate())
		} else {
			fPlus = s.hairBendForce(i, j, k, goal, stiffness, damping, q, delta, vmath.Vec3{})
			fMinus = s.hairBendForce(i, j, k, goal, stiffness, damping, q, delta.Negate(), vmath.Vec3{})
		}
		d := fPlus.Sub(fMinus).Scale(1 / (2 * bendEps))
		m[col*3+0] = d.X
		m[col*3+1] = d.Y
		m[col*3+2] = d.Z
	}
	return m
}

// ForceSpringBendingAngular accumulates the three-vertex angular
// bending spring used for hair strands: vertex k is pulled so that the
// j->k edge matches the target direction, which the caller propagates
// along the strand frame (see "Artistic Simulation of Curly Hair",
// Pixar memo 12-03a). target is in world space.
func (s *Solver) ForceSpringBendingAngular(i, j, k int, target vmath.Vec3, stiffness, damping float32) {
	goal := s.worldToRoot(j, target)

	fk := s.hairBendForce(i, j, k, goal, stiffness, damping, k, vmath.Vec3{}, vmath.Vec3{})
	fj := fk.Negate() // counterforce

	s.f[j] = s.f[j].Add(fj)
	s.f[k] = s.f[k].Add(fk)

	dfkDxi := s.hairBendEstimate(i, j, k, goal, stiffness, damping, i, false)
	dfkDxj := s.hairBendEstimate(i, j, k, goal, stiffness, damping, j, false)
	dfkDxk := s.hairBendEstimate(i, j, k, goal, stiffness, damping, k, false)

	dfkDvi := s.hairBendEstimate(i, j, k, goal, stiffness, damping, i, true)
	dfkDvj := s.hairBendEstimate(i, j, k, goal, stiffness, damping, j, true)
	dfkDvk := s.hairBendEstimate(i, j, k, goal, stiffness, damping, k, true)

	s.dFdX.AddDiag(j, dfkDxj.Scale(-1))
	s.dFdX.AddDiag(k, dfkDxk)
	s.dFdX.AddBlock(j, i, dfkDxi.Scale(-1))
	s.dFdX.AddBlock(k, j, dfkDxj)
	s.dFdX.AddBlock(k, i, dfkDxi)

	s.dFdV.AddDiag(j, dfkDvj.Scale(-1))
	s.dFdV.AddDiag(k, dfkDvk)
	s.dFdV.AddBlock(j, i, dfkDvi.Scale(-1))
	s.dFdV.AddBlock(k, j, dfkDvj)
	s.dFdV.AddBlock(k, i, dfkDvi)
}

// ForceSpringGoal accumulates a goal spring pulling vertex i toward
// goalX moving with goalV (world space). Used for pinned-vertex
// animation targets and strand shape preservation.
func (s *Solver) ForceSpringGoal(i int, goalX, goalV vmath.Vec3, stiffness, damping float32) bool {
	rootX := s.worldToRoot(i, goalX)
	rootV := s.worldToRoot(i, goalV)

	extent := rootX.Sub(s.x[i])
	vel := rootV.Sub(s.v[i])
	dir, length := extent.NormalizeLen()

	if length <= almostZero {
		return false
	}

	f := dir.Scale(stiffness*length + damping*vel.Dot(dir))
	dfdx := dfdxSpring(dir, length, 0, stiffness)
	dfdv := vmath.OuterProduct(dir, dir).Scale(-damping)

	s.f[i] = s.f[i].Add(f)
	s.dFdX.AddDiag(i, dfdx)
	s.dFdV.AddDiag(i, dfdv)
	return true
}

// ForceGravity accumulates constant gravitational acceleration on
// vertex i, scaled by its mass.
func (s *Solver) ForceGravity(i int, g vmath.Vec3) {
	s.f[i] = s.f[i].Add(s.worldToRoot(i, g).Scale(s.mass[i]))
}

// ForceDrag accumulates uniform viscous air drag on all vertices.
func (s *Solver) ForceDrag(drag float32) {
	dfdv := vmath.Mat3Diag(-drag)
	for i := range s.f {
		s.f[i] = s.f[i].MAdd(s.v[i], -drag)
		s.dFdV.AddDiag(i, dfdv)
	}
}

// ForceFaceWind accumulates wind pressure on a triangle: each corner
// receives the wind sample projected onto the face normal, weighted by
// a third of the face area. winvec holds the per-vertex wind samples
// cached by the caller for the whole substep.
func (s *Solver) ForceFaceWind(v1, v2, v3 int, winvec []vmath.Vec3) {
	const effectorScale = 0.02

	e1 := s.x[v2].Sub(s.x[v1])
	e2 := s.x[v3].Sub(s.x[v1])
	nor := e1.Cross(e2)
	area := nor.Length() * 0.5
	if area <= almostZero {
		return
	}
	nor = nor.Scale(1 / (2 * area))

	factor := effectorScale * area / 3
	for _, v := range [3]int{v1, v2, v3} {
		win := s.worldToRoot(v, winvec[v])
		s.f[v] = s.f[v].MAdd(nor, factor*nor.Dot(win))
	}
}

// ForceVertexWind accumulates a wind force on a hair vertex with the
// given drag coefficient (air density times strand radius).
func (s *Solver) ForceVertexWind(i int, coeff float32, winvec []vmath.Vec3) {
	s.f[i] = s.f[i].Add(s.worldToRoot(i, winvec[i]).Scale(coeff))
}

// ForceEdgeWind accumulates wind on a hair segment: each endpoint
// receives the wind component orthogonal to the segment, scaled by the
// segment length and its radius.
func (s *Solver) ForceEdgeWind(i, j int, radius1, radius2 float32, winvec []vmath.Vec3) {
	dir, _, length := s.springGeometry(i, j)
	if length <= almostZero {
		return
	}

	winI := s.worldToRoot(i, winvec[i])
	winJ := s.worldToRoot(j, winvec[j])

	fi := winI.Sub(dir.Scale(winI.Dot(dir))).Scale(0.5 * length * radius1)
	fj := winJ.Sub(dir.Scale(winJ.Dot(dir))).Scale(0.5 * length * radius2)

	s.f[i] = s.f[i].Add(fi)
	s.f[j] = s.f[j].Add(fj)
}
