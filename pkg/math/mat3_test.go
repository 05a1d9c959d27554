package math

import (
	"testing"

	"github.com/chewxy/math32"
)

func mat3Near(t *testing.T, got, want Mat3, tol float32) {
	t.Helper()
	for i := range got {
		if math32.Abs(got[i]-want[i]) > tol {
			t.Fatalf("matrix element %d = %v, want %v", i, got[i], want[i])
			return
		}
	}
}

func TestMat3Identity(t *testing.T) {
	m := Mat3Identity()
	v := Vec3{1, 2, 3}
	if got := m.MulVec3(v); got != v {
		t.Errorf("I * v = %v, want %v", got, v)
	}
}

func TestMat3MulVec3(t *testing.T) {
	// column-major: columns are (1,0,0), (0,2,0), (0,0,3)
	m := Mat3{1, 0, 0, 0, 2, 0, 0, 0, 3}
	got := m.MulVec3(Vec3{1, 1, 1})
	want := Vec3{1, 2, 3}
	if got != want {
		t.Errorf("Mat3.MulVec3() = %v, want %v", got, want)
	}
}

func TestMat3Transpose(t *testing.T) {
	m := Mat3{1, 2, 3, 4, 5, 6, 7, 8, 9}
	tt := m.Transpose().Transpose()
	if tt != m {
		t.Errorf("double transpose = %v, want %v", tt, m)
	}
}

func TestOuterProduct(t *testing.T) {
	a := Vec3{1, 2, 3}
	b := Vec3{4, 5, 6}
	m := OuterProduct(a, b)
	// (a b^T) v == a * (b . v)
	v := Vec3{1, 1, 1}
	got := m.MulVec3(v)
	want := a.Scale(b.Dot(v))
	if got.Sub(want).Length() > 1e-4 {
		t.Errorf("OuterProduct().MulVec3() = %v, want %v", got, want)
	}
}

func TestCrossMatrix(t *testing.T) {
	v := Vec3{0.3, -1.2, 2.5}
	w := Vec3{1, 2, 3}
	got := CrossMatrix(v).MulVec3(w)
	want := v.Cross(w)
	if got.Sub(want).Length() > 1e-5 {
		t.Errorf("CrossMatrix(v)*w = %v, want v x w = %v", got, want)
	}
}

func TestRotationBetween(t *testing.T) {
	a := Vec3{1, 0, 0}
	b := Vec3{0, 1, 0}
	m := RotationBetween(a, b)
	got := m.MulVec3(a)
	if got.Sub(b).Length() > 1e-5 {
		t.Errorf("RotationBetween: R*a = %v, want %v", got, b)
	}
}

func TestRotationBetweenParallel(t *testing.T) {
	a := Vec3{0, 0, 1}
	mat3Near(t, RotationBetween(a, a), Mat3Identity(), 1e-5)
}

func TestRotationBetweenAntiparallel(t *testing.T) {
	a := Vec3{0, 0, 1}
	b := Vec3{0, 0, -1}
	m := RotationBetween(a, b)
	got := m.MulVec3(a)
	if got.Sub(b).Length() > 1e-4 {
		t.Errorf("RotationBetween antiparallel: R*a = %v, want %v", got, b)
	}
}

func TestMat3Mul(t *testing.T) {
	r1 := QuatFromAxisAngle(Vec3{0, 0, 1}, math32.Pi/2).ToMat3()
	r2 := QuatFromAxisAngle(Vec3{0, 0, 1}, -math32.Pi/2).ToMat3()
	mat3Near(t, r1.Mul(r2), Mat3Identity(), 1e-5)
}

func TestMat3Inverse(t *testing.T) {
	m := Mat3{
		4, 1, 0,
		1, 3, -1,
		0, -1, 2,
	}
	mat3Near(t, m.Mul(m.Inverse()), Mat3Identity(), 1e-5)
	mat3Near(t, m.Inverse().Mul(m), Mat3Identity(), 1e-5)

	mat3Near(t, Mat3Diag(2).Inverse(), Mat3Diag(0.5), 1e-6)

	// singular input falls back to the identity
	mat3Near(t, Mat3{}.Inverse(), Mat3Identity(), 1e-6)
}
