package math

import "github.com/chewxy/math32"

// Mat3 is a 3x3 matrix in column-major order.
// Layout: [m0 m3 m6]
//
//	[m1 m4 m7]
//	[m2 m5 m8]
type Mat3 [9]float32

// Mat3Identity returns an identity matrix.
func Mat3Identity() Mat3 {
	return Mat3{
		1, 0, 0,
		0, 1, 0,
		0, 0, 1,
	}
}

// Mat3Diag returns a diagonal matrix with s on the diagonal.
func Mat3Diag(s float32) Mat3 {
	return Mat3{
		s, 0, 0,
		0, s, 0,
		0, 0, s,
	}
}

// OuterProduct returns the matrix a * b^T.
func OuterProduct(a, b Vec3) Mat3 {
	return Mat3{
		a.X * b.X, a.Y * b.X, a.Z * b.X,
		a.X * b.Y, a.Y * b.Y, a.Z * b.Y,
		a.X * b.Z, a.Y * b.Z, a.Z * b.Z,
	}
}

// CrossMatrix returns the skew-symmetric matrix M such that M*w == v x w.
func CrossMatrix(v Vec3) Mat3 {
	return Mat3{
		0, v.Z, -v.Y,
		-v.Z, 0, v.X,
		v.Y, -v.X, 0,
	}
}

// Add returns m + other.
func (m Mat3) Add(other Mat3) Mat3 {
	var r Mat3
	for i := range m {
		r[i] = m[i] + other[i]
	}
	return r
}

// Sub returns m - other.
func (m Mat3) Sub(other Mat3) Mat3 {
	var r Mat3
	for i := range m {
		r[i] = m[i] - other[i]
	}
	return r
}

// Scale returns m * s.
func (m Mat3) Scale(s float32) Mat3 {
	var r Mat3
	for i := range m {
		r[i] = m[i] * s
	}
	return r
}

// Mul multiplies this matrix by another (m * other).
func (m Mat3) Mul(other Mat3) Mat3 {
	var r Mat3
	for col := 0; col < 3; col++ {
		for row := 0; row < 3; row++ {
			r[col*3+row] =
				m[0*3+row]*other[col*3+0] +
					m[1*3+row]*other[col*3+1] +
					m[2*3+row]*other[col*3+2]
		}
	}
	return r
}

// MulVec3 multiplies the matrix by a vector.
func (m Mat3) MulVec3(v Vec3) Vec3 {
	return Vec3{
		m[0]*v.X + m[3]*v.Y + m[6]*v.Z,
		m[1]*v.X + m[4]*v.Y + m[7]*v.Z,
		m[2]*v.X + m[5]*v.Y + m[8]*v.Z,
	}
}

// Transpose returns the transposed matrix.
func (m Mat3) Transpose() Mat3 {
	return Mat3{
		m[0], m[3], m[6],
		m[1], m[4], m[7],
		m[2], m[5], m[8],
	}
}

// TransposedMulVec3 multiplies the transposed matrix by a vector (m^T * v).
func (m Mat3) TransposedMulVec3(v Vec3) Vec3 {
	return Vec3{
		m[0]*v.X + m[1]*v.Y + m[2]*v.Z,
		m[3]*v.X + m[4]*v.Y + m[5]*v.Z,
		m[6]*v.X + m[7]*v.Y + m[8]*v.Z,
	}
}

// Inverse returns the inverse matrix via the adjugate. Near-singular
// matrices return the identity.
func (m Mat3) Inverse() Mat3 {
	c0 := m[4]*m[8] - m[7]*m[5]
	c1 := m[7]*m[2] - m[1]*m[8]
	c2 := m[1]*m[5] - m[4]*m[2]
	det := m[0]*c0 + m[3]*c1 + m[6]*c2
	if math32.Abs(det) < 1e-12 {
		return Mat3Identity()
	}
	inv := 1 / det
	return Mat3{
		c0 * inv, c1 * inv, c2 * inv,
		(m[6]*m[5] - m[3]*m[8]) * inv, (m[0]*m[8] - m[6]*m[2]) * inv, (m[3]*m[2] - m[0]*m[5]) * inv,
		(m[3]*m[7] - m[6]*m[4]) * inv, (m[6]*m[1] - m[0]*m[7]) * inv, (m[0]*m[4] - m[3]*m[1]) * inv,
	}
}

// Col returns column i as a vector.
func (m Mat3) Col(i int) Vec3 {
	return Vec3{m[i*3], m[i*3+1], m[i*3+2]}
}

// RotationBetween returns the rotation matrix that takes unit vector a
// onto unit vector b. Antiparallel inputs rotate around an arbitrary
// perpendicular axis.
func RotationBetween(a, b Vec3) Mat3 {
	axis := a.Cross(b)
	sinA := axis.Length()
	cosA := a.Dot(b)

	if sinA < 1e-6 {
		if cosA > 0 {
			return Mat3Identity()
		}
		// pick any axis perpendicular to a
		axis = a.Cross(Vec3{X: 1})
		if axis.LengthSquared() < 1e-8 {
			axis = a.Cross(Vec3{Y: 1})
		}
		return QuatFromAxisAngle(axis.Normalize(), math32.Pi).ToMat3()
	}

	angle := math32.Atan2(sinA, cosA)
	return QuatFromAxisAngle(axis.Scale(1/sinA), angle).ToMat3()
}
