package solver

import (
	"testing"

	vmath "github.com/Faultbox/weft/pkg/math"
)

func residualNorm(a *Matrix, dv, b Vector) float32 {
	tmp := NewVector(a.NumVerts())
	a.MulVec(tmp, dv)
	var sum float32
	for i := range tmp {
		sum += tmp[i].Sub(b[i]).LengthSquared()
	}
	return sum
}

func TestSolveFilteredIdentity(t *testing.T) {
	a := NewMatrix(2, 0)
	a.SetDiag(0, vmath.Mat3Identity())
	a.SetDiag(1, vmath.Mat3Identity())
	b := Vector{{X: 1, Y: -2, Z: 3}, {X: 0.5}}

	dv := NewVector(2)
	res := SolveFiltered(dv, a, b, NewConstraints(2), 1e-5, 100)

	if res.Status != StatusSuccess {
		t.Fatalf("Status = %v, want StatusSuccess", res.Status)
	}
	vecNear(t, "dv[0]", dv[0], b[0], 1e-4)
	vecNear(t, "dv[1]", dv[1], b[1], 1e-4)
}

func TestSolveFilteredSPD(t *testing.T) {
	// Diagonally dominant symmetric system, coupled blocks.
	a := NewMatrix(2, 1)
	a.SetDiag(0, vmath.Mat3Diag(4))
	a.SetDiag(1, vmath.Mat3Diag(4))
	a.AddBlock(1, 0, vmath.Mat3Identity())

	b := Vector{{X: 1, Y: 2, Z: -1}, {X: -3, Y: 0, Z: 2}}
	dv := NewVector(2)
	res := SolveFiltered(dv, a, b, NewConstraints(2), 1e-6, 100)

	if res.Status != StatusSuccess {
		t.Fatalf("Status = %v, want StatusSuccess", res.Status)
	}
	if rn := residualNorm(a, dv, b); rn > 1e-6 {
		t.Errorf("residual = %v, want near zero", rn)
	}
}

func TestSolveFilteredPinned(t *testing.T) {
	a := NewMatrix(2, 1)
	a.SetDiag(0, vmath.Mat3Diag(4))
	a.SetDiag(1, vmath.Mat3Diag(4))
	a.AddBlock(1, 0, vmath.Mat3Identity())

	b := Vector{{X: 1, Y: 1, Z: 1}, {X: 2}}
	con := NewConstraints(2)
	pinned := vmath.Vec3{X: 0.25, Y: -0.5}
	con.Pin(0, pinned)

	dv := NewVector(2)
	res := SolveFiltered(dv, a, b, con, 1e-6, 100)

	if res.Status != StatusSuccess {
		t.Fatalf("Status = %v, want StatusSuccess", res.Status)
	}
	// prescribed delta must survive untouched
	vecNear(t, "dv[0]", dv[0], pinned, 1e-6)

	// free vertex satisfies its row: A10*dv0 + A11*dv1 = b1
	got := dv[0].Add(dv[1].Scale(4))
	vecNear(t, "row 1", got, b[1], 1e-4)
}

func TestSolveFilteredZeroRHS(t *testing.T) {
	a := NewMatrix(1, 0)
	a.SetDiag(0, vmath.Mat3Identity())

	dv := Vector{{X: 9, Y: 9, Z: 9}}
	res := SolveFiltered(dv, a, NewVector(1), NewConstraints(1), 1e-5, 100)

	if res.Status != StatusSuccess {
		t.Fatalf("Status = %v, want StatusSuccess", res.Status)
	}
	if res.Iterations != 0 {
		t.Errorf("Iterations = %d, want 0", res.Iterations)
	}
	vecNear(t, "dv[0]", dv[0], vmath.Vec3{}, 1e-6)
}

func TestSolveFilteredIterationLimit(t *testing.T) {
	// Ill-conditioned enough that a single iteration cannot finish.
	a := NewMatrix(2, 1)
	a.SetDiag(0, vmath.Mat3Diag(1000))
	a.SetDiag(1, vmath.Mat3Diag(0.001))
	a.AddBlock(1, 0, vmath.Mat3Diag(0.0005))

	b := Vector{{X: 1, Y: 1, Z: 1}, {X: 1, Y: 1, Z: 1}}
	dv := NewVector(2)
	res := SolveFiltered(dv, a, b, NewConstraints(2), 1e-12, 1)

	if res.Status != StatusNoConvergence {
		t.Errorf("Status = %v, want StatusNoConvergence", res.Status)
	}
	if res.Iterations != 1 {
		t.Errorf("Iterations = %d, want 1", res.Iterations)
	}
}

func TestConstraintsLockDirection(t *testing.T) {
	con := NewConstraints(1)
	n := vmath.Vec3{Z: 1}
	con.LockDirection(0, n, vmath.Vec3{Z: 2})

	v := Vector{{X: 1, Y: 2, Z: 3}}
	con.filter(v)

	// component along n removed, tangential part untouched
	vecNear(t, "filter", v[0], vmath.Vec3{X: 1, Y: 2}, 1e-6)
	vecNear(t, "Z", con.Z[0], vmath.Vec3{Z: 2}, 1e-6)
}

func TestConstraintsClear(t *testing.T) {
	con := NewConstraints(1)
	con.Pin(0, vmath.Vec3{X: 1})
	con.Clear()

	v := Vector{{X: 1, Y: 2, Z: 3}}
	con.filter(v)
	vecNear(t, "filter", v[0], vmath.Vec3{X: 1, Y: 2, Z: 3}, 1e-6)
	vecNear(t, "Z", con.Z[0], vmath.Vec3{}, 1e-6)
}

func TestSolveFilteredResidualDecreases(t *testing.T) {
	// SPD spring-chain system: dominant diagonal, -1 coupling blocks
	const tolerance = 1e-4
	build := func() (*Matrix, Vector) {
		a := NewMatrix(4, 3)
		for i := 0; i < 4; i++ {
			a.SetDiag(i, vmath.Mat3Diag(3))
		}
		for i := 0; i < 3; i++ {
			a.AddBlock(i, i+1, vmath.Mat3Diag(-1))
		}
		b := Vector{{X: 1}, {Y: -2}, {Z: 0.5}, {X: -1, Y: 1}}
		return a, b
	}

	// re-run the deterministic iteration with growing budgets to
	// sample the residual after each iteration count
	errs := make([]float32, 0, 16)
	var last Result
	for iters := 0; iters < 16; iters++ {
		a, b := build()
		dv := NewVector(4)
		last = SolveFiltered(dv, a, b, NewConstraints(4), tolerance, iters)
		errs = append(errs, last.Error)
		if last.Status == StatusSuccess {
			break
		}
	}

	if last.Status != StatusSuccess {
		t.Fatalf("Status = %v after %d iterations, want StatusSuccess", last.Status, len(errs)-1)
	}
	for k := 0; k+1 < len(errs); k++ {
		if errs[k] <= tolerance {
			continue
		}
		if errs[k+1] >= errs[k] {
			t.Errorf("residual did not decrease at iteration %d: %v -> %v", k+1, errs[k], errs[k+1])
		}
	}
	if final := errs[len(errs)-1]; final > tolerance {
		t.Errorf("final residual = %v, want <= %v", final, tolerance)
	}
}
