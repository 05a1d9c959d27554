package bvh

import (
	stdmath "math"

	"github.com/chewxy/math32"

	vmath "github.com/Faultbox/weft/pkg/math"
)

// Ray is a traversal query: origin P, unit direction D, maximum
// distance T. Time in [0, 1] selects the motion blur sample.
// LightGroup identifies the light a shadow ray belongs to when shadow
// linking is enabled; 0 matches everything.
type Ray struct {
	P    vmath.Vec3
	D    vmath.Vec3
	T    float32
	Time float32

	LightGroup uint32
}

// Hit is one ray-primitive intersection. U and V are the surface
// parameters (barycentric for triangles, arc parameter for curves).
// Prim indexes the tree the primitive lives in; for instanced hits it
// refers to the instanced sub-tree and Object carries the instance id.
type Hit struct {
	T, U, V float32
	Prim    int
	Object  int
	Type    PrimitiveType
}

const (
	offsetEpsilonF    = 1e-5
	offsetEpsilonTest = 1.0
	offsetEpsilonI    = 32
)

func offsetComponent(p, n float32) float32 {
	if math32.Abs(p) < offsetEpsilonTest {
		// near zero the mantissa step is far too small, fall back to
		// a flat epsilon
		return p + n*offsetEpsilonF
	}
	ip := stdmath.Float32bits(p)
	if (ip^stdmath.Float32bits(n))>>31 != 0 {
		ip -= offsetEpsilonI
	} else {
		ip += offsetEpsilonI
	}
	return stdmath.Float32frombits(ip)
}

// RayOffset nudges a surface point along the geometric normal by a few
// ulps, so secondary rays started from it cannot re-hit the surface
// they left. The step scales with the coordinate magnitude, which a
// fixed epsilon cannot do.
func RayOffset(p, ng vmath.Vec3) vmath.Vec3 {
	return vmath.Vec3{
		X: offsetComponent(p.X, ng.X),
		Y: offsetComponent(p.Y, ng.Y),
		Z: offsetComponent(p.Z, ng.Z),
	}
}

// intersectTriangle is the Moeller-Trumbore test against [0, tMax].
func intersectTriangle(p, d, v0, v1, v2 vmath.Vec3, tMax float32) (u, v, t float32, ok bool) {
	const eps = 1e-9

	e1 := v1.Sub(v0)
	e2 := v2.Sub(v0)

	pvec := d.Cross(e2)
	det := e1.Dot(pvec)
	if det > -eps && det < eps {
		return 0, 0, 0, false
	}
	invDet := 1 / det

	tvec := p.Sub(v0)
	u = tvec.Dot(pvec) * invDet
	if u < 0 || u > 1 {
		return 0, 0, 0, false
	}

	qvec := tvec.Cross(e1)
	v = d.Dot(qvec) * invDet
	if v < 0 || u+v > 1 {
		return 0, 0, 0, false
	}

	// hit interval is (0, tMax]: a hit exactly at the origin is the
	// surface the ray starts on, not an intersection
	t = e2.Dot(qvec) * invDet
	if t <= 0 || t > tMax {
		return 0, 0, 0, false
	}
	return u, v, t, true
}

// intersectCurve tests the ray against a capsule around the curve
// segment. The radius is widened to minWidth so sub-pixel strands stay
// hittable. u is the parameter along the segment at the hit.
func intersectCurve(p, d vmath.Vec3, c *Curve, minWidth, tMax float32) (u, t float32, ok bool) {
	radius := math32.Max(math32.Max(c.R0, c.R1), minWidth)

	axis := c.P1.Sub(c.P0)
	axisLen2 := axis.LengthSquared()
	if axisLen2 == 0 {
		return 0, 0, false
	}

	// infinite cylinder around the axis
	m := p.Sub(c.P0)
	nd := d.Dot(axis)
	mn := m.Dot(axis)

	a := axisLen2 - nd*nd
	b := axisLen2*m.Dot(d) - mn*nd
	cc := axisLen2*(m.LengthSquared()-radius*radius) - mn*mn

	if math32.Abs(a) > 1e-12 {
		disc := b*b - a*cc
		if disc >= 0 {
			t = (-b - math32.Sqrt(disc)) / a
			if t > 0 && t <= tMax {
				u = (mn + t*nd) / axisLen2
				if u >= 0 && u <= 1 {
					return u, t, true
				}
			}
		}
	}

	// cap spheres close the ends
	if u, t, ok = intersectSphereCap(p, d, c.P0, radius, 0, tMax); ok {
		return u, t, true
	}
	return intersectSphereCap(p, d, c.P1, radius, 1, tMax)
}

func intersectSphereCap(p, d, center vmath.Vec3, radius, u, tMax float32) (float32, float32, bool) {
	m := p.Sub(center)
	b := m.Dot(d)
	c := m.LengthSquared() - radius*radius
	disc := b*b - c
	if disc < 0 {
		return 0, 0, false
	}
	t := -b - math32.Sqrt(disc)
	if t <= 0 || t > tMax {
		return 0, 0, false
	}
	return u, t, true
}

// invDirection returns 1/d component-wise; zero components become
// +-Inf, which the slab test tolerates.
func invDirection(d vmath.Vec3) vmath.Vec3 {
	return vmath.Vec3{X: 1 / d.X, Y: 1 / d.Y, Z: 1 / d.Z}
}
