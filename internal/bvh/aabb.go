// Package bvh implements a bounding volume hierarchy over triangles,
// motion triangles, curve segments and instances, with nearest-hit and
// all-hit ray traversal. Trees are immutable after construction and
// traversal keeps no shared mutable state, so queries can run from any
// number of goroutines.
package bvh

import (
	"github.com/chewxy/math32"

	vmath "github.com/Faultbox/weft/pkg/math"
)

// AABB is an axis-aligned bounding box.
type AABB struct {
	Min, Max vmath.Vec3
}

// EmptyAABB returns an inverted box that unions correctly.
func EmptyAABB() AABB {
	inf := math32.Inf(1)
	return AABB{
		Min: vmath.Vec3{X: inf, Y: inf, Z: inf},
		Max: vmath.Vec3{X: -inf, Y: -inf, Z: -inf},
	}
}

// Union returns the box enclosing both inputs.
func (b AABB) Union(other AABB) AABB {
	return AABB{Min: b.Min.Min(other.Min), Max: b.Max.Max(other.Max)}
}

// Grow extends the box to contain point p.
func (b AABB) Grow(p vmath.Vec3) AABB {
	return AABB{Min: b.Min.Min(p), Max: b.Max.Max(p)}
}

// Pad extends the box by r on all sides.
func (b AABB) Pad(r float32) AABB {
	d := vmath.Vec3{X: r, Y: r, Z: r}
	return AABB{Min: b.Min.Sub(d), Max: b.Max.Add(d)}
}

// Center returns the box midpoint.
func (b AABB) Center() vmath.Vec3 {
	return b.Min.Add(b.Max).Scale(0.5)
}

// LongestAxis returns 0, 1 or 2 for the widest extent.
func (b AABB) LongestAxis() int {
	d := b.Max.Sub(b.Min)
	axis := 0
	if d.Y > d.X {
		axis = 1
	}
	if d.Z > d.Comp(axis) {
		axis = 2
	}
	return axis
}

// IntersectRay is the slab test against a ray with precomputed inverse
// direction, bounded by tMax. Zero direction components produce +-Inf
// in invD, which the min/max arithmetic handles.
func (b AABB) IntersectRay(p, invD vmath.Vec3, tMax float32) bool {
	t1 := (b.Min.X - p.X) * invD.X
	t2 := (b.Max.X - p.X) * invD.X
	tNear := math32.Min(t1, t2)
	tFar := math32.Max(t1, t2)

	t1 = (b.Min.Y - p.Y) * invD.Y
	t2 = (b.Max.Y - p.Y) * invD.Y
	tNear = math32.Max(tNear, math32.Min(t1, t2))
	tFar = math32.Min(tFar, math32.Max(t1, t2))

	t1 = (b.Min.Z - p.Z) * invD.Z
	t2 = (b.Max.Z - p.Z) * invD.Z
	tNear = math32.Max(tNear, math32.Min(t1, t2))
	tFar = math32.Min(tFar, math32.Max(t1, t2))

	return tNear <= tFar && tFar >= 0 && tNear <= tMax
}

// OverlapsSphere reports whether the box intersects a sphere.
func (b AABB) OverlapsSphere(center vmath.Vec3, radius float32) bool {
	closest := center.Max(b.Min).Min(b.Max)
	return closest.Sub(center).LengthSquared() <= radius*radius
}
