package bvh

import (
	vmath "github.com/Faultbox/weft/pkg/math"
)

// Intersect returns the nearest hit along the ray among primitives
// whose visibility shares a bit with vis. Dispatch picks the traversal
// variant from the tree's feature set, so flat triangle trees skip the
// instancing machinery entirely.
func (t *Tree) Intersect(ray Ray, vis Visibility) (Hit, bool) {
	if t.features&FeatureInstancing != 0 {
		return t.intersectInstanced(ray, vis)
	}
	return t.intersectFlat(ray, vis)
}

// intersectPrim tests one non-instance primitive, bounded by tMax.
func (t *Tree) intersectPrim(ray Ray, idx int, tMax float32) (Hit, bool) {
	switch pr := t.prims[idx].(type) {
	case *Triangle:
		u, v, ht, ok := intersectTriangle(ray.P, ray.D, pr.V0, pr.V1, pr.V2, tMax)
		if !ok {
			return Hit{}, false
		}
		return Hit{T: ht, U: u, V: v, Prim: idx, Object: pr.Obj, Type: PrimTriangle}, true

	case *MotionTriangle:
		v0, v1, v2 := pr.VerticesAt(ray.Time)
		u, v, ht, ok := intersectTriangle(ray.P, ray.D, v0, v1, v2, tMax)
		if !ok {
			return Hit{}, false
		}
		return Hit{T: ht, U: u, V: v, Prim: idx, Object: pr.Obj, Type: PrimMotionTriangle}, true

	case *Curve:
		u, ht, ok := intersectCurve(ray.P, ray.D, pr, t.HairMinWidth, tMax)
		if !ok {
			return Hit{}, false
		}
		return Hit{T: ht, U: u, Prim: idx, Object: pr.Obj, Type: PrimCurve}, true
	}
	return Hit{}, false
}

// intersectFlat is the nearest-hit loop for trees without instances.
func (t *Tree) intersectFlat(ray Ray, vis Visibility) (Hit, bool) {
	invD := invDirection(ray.D)
	tMax := ray.T

	var best Hit
	found := false

	var stack [maxTreeDepth]int
	sp := 0
	stack[sp] = 0
	sp++

	for sp > 0 {
		sp--
		n := &t.nodes[stack[sp]]
		if n.visibility&vis == 0 || !n.bounds.IntersectRay(ray.P, invD, tMax) {
			continue
		}
		if !n.isLeaf() {
			stack[sp] = n.left
			sp++
			stack[sp] = n.right
			sp++
			continue
		}
		for i := n.primStart; i < n.primStart+n.primCount; i++ {
			if t.prims[i].Visibility()&vis == 0 {
				continue
			}
			if h, ok := t.intersectPrim(ray, i, tMax); ok {
				best = h
				found = true
				tMax = h.T
			}
		}
	}
	return best, found
}

// intersectInstanced additionally descends into instance sub-trees
// with the ray transformed to instance space.
func (t *Tree) intersectInstanced(ray Ray, vis Visibility) (Hit, bool) {
	invD := invDirection(ray.D)
	tMax := ray.T

	var best Hit
	found := false

	var stack [maxTreeDepth]int
	sp := 0
	stack[sp] = 0
	sp++

	for sp > 0 {
		sp--
		n := &t.nodes[stack[sp]]
		if n.visibility&vis == 0 || !n.bounds.IntersectRay(ray.P, invD, tMax) {
			continue
		}
		if !n.isLeaf() {
			stack[sp] = n.left
			sp++
			stack[sp] = n.right
			sp++
			continue
		}
		for i := n.primStart; i < n.primStart+n.primCount; i++ {
			prim := t.prims[i]
			if prim.Visibility()&vis == 0 {
				continue
			}
			if inst, ok := prim.(*Instance); ok {
				lp, ld, scale := inst.ToLocal(ray.P, ray.D)
				if scale == 0 {
					continue
				}
				local := ray
				local.P, local.D, local.T = lp, ld, tMax*scale
				if h, ok := inst.Tree.Intersect(local, vis); ok {
					h.T /= scale
					h.Object = inst.Obj
					if h.T < tMax {
						best = h
						found = true
						tMax = h.T
					}
				}
				continue
			}
			if h, ok := t.intersectPrim(ray, i, tMax); ok {
				best = h
				found = true
				tMax = h.T
			}
		}
	}
	return best, found
}

// VisitSphere calls fn for every primitive whose bounds overlap the
// sphere; returning false stops the walk. Used for proximity queries
// such as collision contact search.
func (t *Tree) VisitSphere(c vmath.Vec3, radius float32, fn func(idx int, p Primitive) bool) {
	var stack [maxTreeDepth]int
	sp := 0
	stack[sp] = 0
	sp++

	for sp > 0 {
		sp--
		n := &t.nodes[stack[sp]]
		if !n.bounds.OverlapsSphere(c, radius) {
			continue
		}
		if !n.isLeaf() {
			stack[sp] = n.left
			sp++
			stack[sp] = n.right
			sp++
			continue
		}
		for i := n.primStart; i < n.primStart+n.primCount; i++ {
			if !t.prims[i].Bounds().OverlapsSphere(c, radius) {
				continue
			}
			if !fn(i, t.prims[i]) {
				return
			}
		}
	}
}
