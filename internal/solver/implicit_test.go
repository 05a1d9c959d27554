package solver

import (
	"testing"

	"github.com/chewxy/math32"

	vmath "github.com/Faultbox/weft/pkg/math"
)

func TestSolverGravityFreeFall(t *testing.T) {
	const dt = 0.1
	s := NewSolver(1, 0)
	s.SetMotionState(0, vmath.Vec3{}, vmath.Vec3{})

	s.ClearForces()
	s.ForceGravity(0, vmath.Vec3{Z: -10})
	res := s.SolveVelocities(dt)
	if res.Status != StatusSuccess {
		t.Fatalf("SolveVelocities() status = %v, want StatusSuccess", res.Status)
	}
	s.SolvePositions(dt)
	s.ApplyResult()

	vecNear(t, "Velocity(0)", s.Velocity(0), vmath.Vec3{Z: -1}, 1e-4)
	vecNear(t, "Position(0)", s.Position(0), vmath.Vec3{Z: -0.1}, 1e-4)
}

func TestSolverMassScalesAcceleration(t *testing.T) {
	const dt = 0.1
	s := NewSolver(2, 0)
	s.SetVertexMass(0, 1)
	s.SetVertexMass(1, 4)
	s.SetMotionState(0, vmath.Vec3{}, vmath.Vec3{})
	s.SetMotionState(1, vmath.Vec3{X: 1}, vmath.Vec3{})

	s.ClearForces()
	// same force, not the same acceleration
	s.f[0] = vmath.Vec3{Z: -4}
	s.f[1] = vmath.Vec3{Z: -4}
	s.SolveVelocities(dt)
	s.ApplyResult()

	vecNear(t, "Velocity(0)", s.Velocity(0), vmath.Vec3{Z: -0.4}, 1e-4)
	vecNear(t, "Velocity(1)", s.Velocity(1), vmath.Vec3{Z: -0.1}, 1e-4)
}

func TestSolverPinnedVertexStationary(t *testing.T) {
	const dt = 0.05
	s := NewSolver(2, 1)
	s.SetMotionState(0, vmath.Vec3{}, vmath.Vec3{})
	s.SetMotionState(1, vmath.Vec3{Z: -1}, vmath.Vec3{})

	for step := 0; step < 5; step++ {
		s.ClearConstraints()
		s.AddPinConstraint(0, vmath.Vec3{})

		s.ClearForces()
		s.ForceGravity(0, vmath.Vec3{Z: -9.8})
		s.ForceGravity(1, vmath.Vec3{Z: -9.8})
		s.ForceSpringLinear(0, 1, 1, 20, 1, false, 0)

		s.SolveVelocities(dt)
		s.SolvePositions(dt)
		s.ApplyResult()
	}

	vecNear(t, "Position(0)", s.Position(0), vmath.Vec3{}, 1e-5)
	vecNear(t, "Velocity(0)", s.Velocity(0), vmath.Vec3{}, 1e-5)
	if s.Position(1).Z >= -1 {
		t.Errorf("Position(1).Z = %v, want below -1", s.Position(1).Z)
	}
}

func TestSolverContactConstraintStopsApproach(t *testing.T) {
	const dt = 0.1
	s := NewSolver(1, 0)
	s.SetMotionState(0, vmath.Vec3{}, vmath.Vec3{Z: -2})

	s.ClearConstraints()
	// cancel the approaching velocity along the contact normal
	s.AddContactConstraint(0, vmath.Vec3{Z: 1}, vmath.Vec3{Z: 2})

	s.ClearForces()
	s.SolveVelocities(dt)
	s.ApplyResult()

	vecNear(t, "Velocity(0)", s.Velocity(0), vmath.Vec3{}, 1e-4)
}

func TestSolverApplyResultIdempotent(t *testing.T) {
	const dt = 0.1
	s := NewSolver(1, 0)
	s.SetMotionState(0, vmath.Vec3{X: 1}, vmath.Vec3{Y: 1})

	s.ClearForces()
	s.ForceGravity(0, vmath.Vec3{Z: -10})
	s.SolveVelocities(dt)
	s.SolvePositions(dt)
	s.ApplyResult()

	x, v := s.MotionState(0)
	s.ApplyResult()
	x2, v2 := s.MotionState(0)

	vecNear(t, "Position(0)", x2, x, 0)
	vecNear(t, "Velocity(0)", v2, v, 0)
}

func TestSolverRestTransformRoundTrip(t *testing.T) {
	// A rotated root frame must not change the world-space view of the
	// motion state.
	rot := vmath.QuatFromAxisAngle(vmath.Vec3{X: 1, Y: 1}.Normalize(), 1.1).ToMat3()
	s := NewSolver(1, 0)
	s.SetRestTransform(0, rot)

	x := vmath.Vec3{X: 0.3, Y: -0.7, Z: 2}
	v := vmath.Vec3{X: -1, Y: 0.5, Z: 0.25}
	s.SetMotionState(0, x, v)

	vecNear(t, "Position(0)", s.Position(0), x, 1e-5)
	vecNear(t, "Velocity(0)", s.Velocity(0), v, 1e-5)
}

func TestSolverRestTransformGravity(t *testing.T) {
	// World-space gravity must come back out in world space regardless
	// of the root frame the solve runs in.
	const dt = 0.1
	rot := vmath.QuatFromAxisAngle(vmath.Vec3{Y: 1}, math32.Pi/2).ToMat3()
	s := NewSolver(1, 0)
	s.SetRestTransform(0, rot)
	s.SetMotionState(0, vmath.Vec3{}, vmath.Vec3{})

	s.ClearForces()
	s.ForceGravity(0, vmath.Vec3{Z: -10})
	s.SolveVelocities(dt)
	s.ApplyResult()

	vecNear(t, "Velocity(0)", s.Velocity(0), vmath.Vec3{Z: -1}, 1e-4)
}

func TestSolverTopologyGrowthRebuildsSystem(t *testing.T) {
	// A spring activating in a later substep grows the Jacobian
	// pattern; the system matrix must follow.
	const dt = 0.05
	s := NewSolver(3, 2)
	s.SetMotionState(0, vmath.Vec3{}, vmath.Vec3{})
	s.SetMotionState(1, vmath.Vec3{X: 1.5}, vmath.Vec3{})
	s.SetMotionState(2, vmath.Vec3{X: 3}, vmath.Vec3{})

	s.ClearForces()
	s.ForceSpringLinear(0, 1, 1, 10, 0.5, false, 0)
	if res := s.SolveVelocities(dt); res.Status != StatusSuccess {
		t.Fatalf("first solve status = %v", res.Status)
	}
	s.ApplyResult()

	s.ClearForces()
	s.ForceSpringLinear(0, 1, 1, 10, 0.5, false, 0)
	s.ForceSpringLinear(1, 2, 1, 10, 0.5, false, 0)
	if res := s.SolveVelocities(dt); res.Status != StatusSuccess {
		t.Fatalf("second solve status = %v", res.Status)
	}
	s.ApplyResult()

	// both springs stretched, outer vertices pulled inward
	if s.Velocity(0).X <= 0 {
		t.Errorf("Velocity(0).X = %v, want positive", s.Velocity(0).X)
	}
	if s.Velocity(2).X >= 0 {
		t.Errorf("Velocity(2).X = %v, want negative", s.Velocity(2).X)
	}
}
