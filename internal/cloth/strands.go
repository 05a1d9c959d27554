package cloth

import (
	vmath "github.com/Faultbox/weft/pkg/math"
)

// angularSprings maps the (J, K) vertex pair of each angular bending
// spring to its index, so frame propagation can find the springs of a
// strand while walking its vertex chain.
func (o *Object) angularSprings() map[[2]int]int {
	m := make(map[[2]int]int)
	for i := range o.Springs {
		s := &o.Springs[i]
		if s.Type == SpringBendingHair {
			m[[2]int{s.J, s.K}] = i
		}
	}
	return m
}

// propagateFrames walks every strand from root to tip, carrying the
// root frame along by parallel transport: at each vertex the frame is
// rotated from the previous segment direction onto the next. visit is
// called with the transported frame for each angular spring found on
// the way. Degenerate segments keep the previous direction so a single
// collapsed edge cannot flip the frame.
func (o *Object) propagateFrames(pos func(i int) vmath.Vec3, visit func(s *Spring, frame vmath.Mat3)) {
	springs := o.angularSprings()

	for si := range o.Strands {
		st := &o.Strands[si]
		if len(st.Verts) < 3 {
			continue
		}

		frame := st.Rot
		if frame == (vmath.Mat3{}) {
			frame = vmath.Mat3Identity()
		}

		dirOld := pos(st.Verts[1]).Sub(pos(st.Verts[0])).Normalize()
		for n := 2; n < len(st.Verts); n++ {
			j, k := st.Verts[n-1], st.Verts[n]

			dirNew := pos(k).Sub(pos(j)).Normalize()
			if dirNew.IsZero() {
				dirNew = dirOld
			}
			if !dirOld.IsZero() {
				frame = vmath.RotationBetween(dirOld, dirNew).Mul(frame)
			}
			dirOld = dirNew

			if idx, ok := springs[[2]int{j, k}]; ok {
				visit(&o.Springs[idx], frame)
			}
		}
	}
}

// initBendingTargets records each angular spring's rest curvature in
// the local strand frame, by propagating frames over the rest pose.
// The world-space targets recovered each substep then bend the strand
// back toward this shape.
func (o *Object) initBendingTargets() {
	if !o.IsHair() {
		return
	}
	o.propagateFrames(
		func(i int) vmath.Vec3 { return o.Verts[i].X },
		func(s *Spring, frame vmath.Mat3) {
			restEdge := o.Verts[s.K].X.Sub(o.Verts[s.J].X)
			s.localTarget = frame.TransposedMulVec3(restEdge)
		},
	)
}

// updateBendingTargets refreshes the world-space bending goals from
// the current pose before spring forces are evaluated.
func (o *Object) updateBendingTargets() {
	o.propagateFrames(
		func(i int) vmath.Vec3 { return o.sol.Position(i) },
		func(s *Spring, frame vmath.Mat3) {
			s.Target = frame.MulVec3(s.localTarget)
		},
	)
}
