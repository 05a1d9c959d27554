package bvh

import (
	"github.com/chewxy/math32"

	vmath "github.com/Faultbox/weft/pkg/math"
)

// Visibility is a ray visibility bitmask; a primitive is considered by
// a query only when the masks share a bit.
type Visibility uint32

const (
	VisibilityCamera Visibility = 1 << iota
	VisibilityShadow
	VisibilityDiffuse
	VisibilityGlossy
	VisibilityVolume

	VisibilityNone Visibility = 0
	VisibilityAll  Visibility = ^VisibilityNone
)

// PrimitiveType tags the concrete primitive of a Hit.
type PrimitiveType int

const (
	PrimTriangle PrimitiveType = iota
	PrimMotionTriangle
	PrimCurve
	PrimInstance
)

// Primitive is anything a Tree can hold. Bounds must enclose the
// primitive over its whole time range.
type Primitive interface {
	Bounds() AABB
	Object() int
	Visibility() Visibility
	Type() PrimitiveType
}

// Triangle is a static triangle.
type Triangle struct {
	V0, V1, V2 vmath.Vec3
	Obj        int
	Vis        Visibility
	// LightSet restricts which light groups see this triangle when
	// shadow linking is enabled; zero means all.
	LightSet uint32
}

func (t *Triangle) Bounds() AABB {
	return EmptyAABB().Grow(t.V0).Grow(t.V1).Grow(t.V2)
}
func (t *Triangle) Object() int            { return t.Obj }
func (t *Triangle) Visibility() Visibility { return t.Vis }
func (t *Triangle) Type() PrimitiveType    { return PrimTriangle }

// Normal returns the geometric normal, not normalized.
func (t *Triangle) Normal() vmath.Vec3 {
	return t.V1.Sub(t.V0).Cross(t.V2.Sub(t.V0))
}

// MotionTriangle is a triangle with two time keys; vertices are
// interpolated at the ray time.
type MotionTriangle struct {
	// vertices at time 0 and time 1
	A0, A1, A2 vmath.Vec3
	B0, B1, B2 vmath.Vec3
	Obj        int
	Vis        Visibility
	LightSet   uint32
}

func (t *MotionTriangle) Bounds() AABB {
	return EmptyAABB().Grow(t.A0).Grow(t.A1).Grow(t.A2).Grow(t.B0).Grow(t.B1).Grow(t.B2)
}
func (t *MotionTriangle) Object() int            { return t.Obj }
func (t *MotionTriangle) Visibility() Visibility { return t.Vis }
func (t *MotionTriangle) Type() PrimitiveType    { return PrimMotionTriangle }

// VerticesAt returns the vertices interpolated at time in [0, 1].
func (t *MotionTriangle) VerticesAt(time float32) (v0, v1, v2 vmath.Vec3) {
	return t.A0.Lerp(t.B0, time), t.A1.Lerp(t.B1, time), t.A2.Lerp(t.B2, time)
}

// Curve is one hair curve segment with per-endpoint radii.
type Curve struct {
	P0, P1 vmath.Vec3
	R0, R1 float32
	Obj    int
	Vis    Visibility
}

func (c *Curve) Bounds() AABB {
	r := math32.Max(c.R0, c.R1)
	return EmptyAABB().Grow(c.P0).Grow(c.P1).Pad(r)
}
func (c *Curve) Object() int            { return c.Obj }
func (c *Curve) Visibility() Visibility { return c.Vis }
func (c *Curve) Type() PrimitiveType    { return PrimCurve }

// Instance places another tree under a transform. The inverse is
// precomputed by NewInstance.
type Instance struct {
	Tree     *Tree
	Obj      int
	Vis      Visibility
	xform    vmath.Mat4
	invXform vmath.Mat4
	bounds   AABB
}

// NewInstance wraps tree under the given world transform.
func NewInstance(tree *Tree, xform vmath.Mat4, object int, vis Visibility) *Instance {
	inst := &Instance{
		Tree:     tree,
		Obj:      object,
		Vis:      vis,
		xform:    xform,
		invXform: xform.Inverse(),
	}
	// world bounds from the 8 corners of the subtree's box
	sub := tree.Bounds()
	b := EmptyAABB()
	for i := 0; i < 8; i++ {
		corner := vmath.Vec3{X: sub.Min.X, Y: sub.Min.Y, Z: sub.Min.Z}
		if i&1 != 0 {
			corner.X = sub.Max.X
		}
		if i&2 != 0 {
			corner.Y = sub.Max.Y
		}
		if i&4 != 0 {
			corner.Z = sub.Max.Z
		}
		b = b.Grow(xform.TransformPoint(corner))
	}
	inst.bounds = b
	return inst
}

func (i *Instance) Bounds() AABB            { return i.bounds }
func (i *Instance) Object() int             { return i.Obj }
func (i *Instance) Visibility() Visibility  { return i.Vis }
func (i *Instance) Type() PrimitiveType     { return PrimInstance }

// ToLocal transforms a world-space ray into the instance space.
// Direction length is preserved by the transform, so hit distances
// remain valid in world space for affine transforms without scale;
// with scale, the returned factor rescales distances.
func (i *Instance) ToLocal(p, d vmath.Vec3) (lp, ld vmath.Vec3, scale float32) {
	lp = i.invXform.TransformPoint(p)
	ld = i.invXform.TransformDirection(d)
	scale = ld.Length()
	if scale > 0 {
		ld = ld.Scale(1 / scale)
	}
	return lp, ld, scale
}
