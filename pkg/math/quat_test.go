package math

import (
	"testing"

	"github.com/chewxy/math32"
)

func TestQuatIdentity(t *testing.T) {
	q := QuatIdentity()
	if q.X != 0 || q.Y != 0 || q.Z != 0 || q.W != 1 {
		t.Errorf("Identity quaternion should be (0,0,0,1), got (%v,%v,%v,%v)", q.X, q.Y, q.Z, q.W)
	}
}

func TestQuatNormalize(t *testing.T) {
	q := Quat{X: 1, Y: 2, Z: 3, W: 4}
	n := q.Normalize()

	length := math32.Sqrt(n.X*n.X + n.Y*n.Y + n.Z*n.Z + n.W*n.W)
	if math32.Abs(length-1.0) > 0.0001 {
		t.Errorf("Normalized quaternion length should be 1, got %v", length)
	}
}

func TestQuatFromAxisAngle(t *testing.T) {
	// 90 degrees around Y axis
	q := QuatFromAxisAngle(Vec3{X: 0, Y: 1, Z: 0}, math32.Pi/2)

	expectedW := math32.Cos(math32.Pi / 4)
	expectedY := math32.Sin(math32.Pi / 4)

	if math32.Abs(q.W-expectedW) > 0.001 {
		t.Errorf("QuatFromAxisAngle W: expected %v, got %v", expectedW, q.W)
	}
	if math32.Abs(q.Y-expectedY) > 0.001 {
		t.Errorf("QuatFromAxisAngle Y: expected %v, got %v", expectedY, q.Y)
	}
}

func TestQuatToMat3(t *testing.T) {
	// Identity quaternion should produce identity matrix
	mat3Near(t, QuatIdentity().ToMat3(), Mat3Identity(), 1e-5)

	// 90 degrees around Z maps X onto Y
	q := QuatFromAxisAngle(Vec3{Z: 1}, math32.Pi/2)
	got := q.ToMat3().MulVec3(Vec3{X: 1})
	if got.Sub(Vec3{Y: 1}).Length() > 1e-5 {
		t.Errorf("quat rotation: got %v, want (0,1,0)", got)
	}
}

func TestQuatMulInverse(t *testing.T) {
	q := QuatFromAxisAngle(Vec3{Y: 1}, 0.8)
	inv := QuatFromAxisAngle(Vec3{Y: 1}, -0.8)
	mat3Near(t, q.Mul(inv).ToMat3(), Mat3Identity(), 1e-5)
}
