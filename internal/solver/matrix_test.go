package solver

import (
	"testing"

	vmath "github.com/Faultbox/weft/pkg/math"
)

func vecNear(t *testing.T, name string, got, want vmath.Vec3, tol float32) {
	t.Helper()
	if got.Sub(want).Length() > tol {
		t.Errorf("%s = %v, want %v", name, got, want)
	}
}

func TestVectorDot(t *testing.T) {
	a := Vector{{X: 1}, {Y: 2}}
	b := Vector{{X: 3}, {Y: 4}}
	if got := a.Dot(b); got != 11 {
		t.Errorf("Dot() = %v, want 11", got)
	}
}

func TestVectorAddScaled(t *testing.T) {
	a := Vector{{X: 1}, {Y: 1}}
	b := Vector{{X: 2}, {Y: 2}}
	dst := NewVector(2)
	dst.AddScaled(a, b, 0.5)
	vecNear(t, "AddScaled[0]", dst[0], vmath.Vec3{X: 2}, 1e-6)
	vecNear(t, "AddScaled[1]", dst[1], vmath.Vec3{Y: 2}, 1e-6)
}

func TestMatrixMulVecDiagonal(t *testing.T) {
	m := NewMatrix(2, 0)
	m.SetDiag(0, vmath.Mat3Diag(2))
	m.SetDiag(1, vmath.Mat3Diag(3))

	src := Vector{{X: 1, Y: 1, Z: 1}, {X: 1, Y: 1, Z: 1}}
	dst := NewVector(2)
	m.MulVec(dst, src)

	vecNear(t, "MulVec[0]", dst[0], vmath.Vec3{X: 2, Y: 2, Z: 2}, 1e-6)
	vecNear(t, "MulVec[1]", dst[1], vmath.Vec3{X: 3, Y: 3, Z: 3}, 1e-6)
}

func TestMatrixMulVecSymmetric(t *testing.T) {
	// [[2I, B^T], [B, 2I]] with B stored once under the ordered pair.
	b := vmath.OuterProduct(vmath.Vec3{X: 1}, vmath.Vec3{Y: 1})
	m := NewMatrix(2, 1)
	m.SetDiag(0, vmath.Mat3Diag(2))
	m.SetDiag(1, vmath.Mat3Diag(2))
	m.AddBlock(1, 0, b)

	src := Vector{{X: 1, Y: 2, Z: 3}, {X: 4, Y: 5, Z: 6}}
	dst := NewVector(2)
	m.MulVec(dst, src)

	want0 := src[0].Scale(2).Add(b.TransposedMulVec3(src[1]))
	want1 := src[1].Scale(2).Add(b.MulVec3(src[0]))
	vecNear(t, "MulVec[0]", dst[0], want0, 1e-5)
	vecNear(t, "MulVec[1]", dst[1], want1, 1e-5)
}

func TestMatrixAddBlockSwappedIndices(t *testing.T) {
	// Adding at (i, j) and at (j, i) with the transpose must hit the
	// same storage.
	b := vmath.OuterProduct(vmath.Vec3{X: 1}, vmath.Vec3{Z: 1})

	m1 := NewMatrix(2, 1)
	m1.AddBlock(1, 0, b)
	m2 := NewMatrix(2, 1)
	m2.AddBlock(0, 1, b.Transpose())

	src := Vector{{X: 1, Y: 2, Z: 3}, {X: -1, Y: 0, Z: 2}}
	d1 := NewVector(2)
	d2 := NewVector(2)
	m1.MulVec(d1, src)
	m2.MulVec(d2, src)

	vecNear(t, "MulVec[0]", d1[0], d2[0], 1e-6)
	vecNear(t, "MulVec[1]", d1[1], d2[1], 1e-6)
}

func TestMatrixClear(t *testing.T) {
	m := NewMatrix(2, 1)
	m.AddDiag(0, vmath.Mat3Diag(5))
	m.AddBlock(1, 0, vmath.Mat3Diag(1))
	m.Clear()

	if len(m.offd) != 1 {
		t.Fatalf("Clear() dropped structure, offd len = %d, want 1", len(m.offd))
	}
	src := Vector{{X: 1, Y: 1, Z: 1}, {X: 1, Y: 1, Z: 1}}
	dst := NewVector(2)
	m.MulVec(dst, src)
	vecNear(t, "MulVec[0]", dst[0], vmath.Vec3{}, 1e-6)
	vecNear(t, "MulVec[1]", dst[1], vmath.Vec3{}, 1e-6)
}

func TestCloneStructure(t *testing.T) {
	m := NewMatrix(3, 2)
	m.AddBlock(1, 0, vmath.Mat3Diag(1))
	m.AddBlock(2, 1, vmath.Mat3Diag(1))

	c := m.CloneStructure()
	if len(c.offd) != 2 {
		t.Fatalf("CloneStructure() offd len = %d, want 2", len(c.offd))
	}
	for i := range c.offd {
		if c.offd[i].r != m.offd[i].r || c.offd[i].c != m.offd[i].c {
			t.Errorf("block %d at (%d,%d), want (%d,%d)", i, c.offd[i].r, c.offd[i].c, m.offd[i].r, m.offd[i].c)
		}
		if c.offd[i].m != (vmath.Mat3{}) {
			t.Errorf("block %d not zeroed", i)
		}
	}
}

func TestAssembleImplicit(t *testing.T) {
	const (
		mass = 2.0
		k    = 10.0
		c    = 0.5
		dt   = 0.1
	)
	dFdX := NewMatrix(1, 0)
	dFdX.SetDiag(0, vmath.Mat3Diag(-k))
	dFdV := NewMatrix(1, 0)
	dFdV.SetDiag(0, vmath.Mat3Diag(-c))

	a := dFdX.CloneStructure()
	a.AssembleImplicit([]float32{mass}, dFdV, dFdX, dt)

	// diag = (m + dt*c + dt^2*k) * I
	want := vmath.Mat3Diag(mass + dt*c + dt*dt*k)
	got := a.Diag(0)
	for i := range got {
		if diff := got[i] - want[i]; diff > 1e-5 || diff < -1e-5 {
			t.Fatalf("Diag(0) = %v, want %v", got, want)
		}
	}
}
