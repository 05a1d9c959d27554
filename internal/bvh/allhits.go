package bvh

// hitBuffer keeps up to cap(hits) intersections sorted by ascending t.
// When full, a closer hit evicts the farthest one, so the retained set
// is always the nearest k along the ray.
type hitBuffer struct {
	hits []Hit
}

func (b *hitBuffer) insert(h Hit) {
	n := len(b.hits)
	if n == cap(b.hits) {
		if h.T >= b.hits[n-1].T {
			return
		}
		n--
		b.hits = b.hits[:n]
	}
	pos := n
	for pos > 0 && b.hits[pos-1].T > h.T {
		pos--
	}
	b.hits = append(b.hits, Hit{})
	copy(b.hits[pos+1:], b.hits[pos:])
	b.hits[pos] = h
}

// farthest returns the current cull distance: the ray bound while the
// buffer has room, the worst retained hit once it is full.
func (b *hitBuffer) farthest(rayT float32) float32 {
	if len(b.hits) < cap(b.hits) {
		return rayT
	}
	return b.hits[len(b.hits)-1].T
}

// accept decides whether a primitive participates in an all-hits
// query; shadow queries add the light-link filter on top of the
// visibility mask.
type acceptFunc func(p Primitive) bool

func (t *Tree) allHits(ray Ray, vis Visibility, accept acceptFunc, buf []Hit) []Hit {
	invD := invDirection(ray.D)
	b := hitBuffer{hits: buf}

	var stack [maxTreeDepth]int
	sp := 0
	stack[sp] = 0
	sp++

	for sp > 0 {
		sp--
		n := &t.nodes[stack[sp]]
		if n.visibility&vis == 0 || !n.bounds.IntersectRay(ray.P, invD, b.farthest(ray.T)) {
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
			if prim.Visibility()&vis == 0 || !accept(prim) {
				continue
			}
			if inst, ok := prim.(*Instance); ok {
				lp, ld, scale := inst.ToLocal(ray.P, ray.D)
				if scale == 0 {
					continue
				}
				local := ray
				local.P, local.D, local.T = lp, ld, b.farthest(ray.T)*scale
				sub := inst.Tree.allHits(local, vis, accept, make([]Hit, 0, cap(b.hits)))
				for _, h := range sub {
					h.T /= scale
					h.Object = inst.Obj
					b.insert(h)
				}
				continue
			}
			if h, ok := t.intersectPrim(ray, i, b.farthest(ray.T)); ok {
				b.insert(h)
			}
		}
	}
	return b.hits
}

// IntersectShadowAll records the intersections of a shadow ray into
// buf, nearest first, and returns the hit count. Storage is bounded by
// min(maxHits, cap(buf)); with more occluders along the ray than fit,
// the nearest ones are kept. When shadow linking is enabled,
// primitives whose light set excludes the ray's light group are
// transparent to it.
func (t *Tree) IntersectShadowAll(ray Ray, maxHits int, buf []Hit) int {
	if maxHits > cap(buf) {
		maxHits = cap(buf)
	}
	if maxHits <= 0 {
		return 0
	}
	linked := t.features&FeatureShadowLink != 0 && ray.LightGroup != 0
	accept := func(p Primitive) bool {
		if !linked {
			return true
		}
		var set uint32
		switch pr := p.(type) {
		case *Triangle:
			set = pr.LightSet
		case *MotionTriangle:
			set = pr.LightSet
		}
		return set == 0 || set&ray.LightGroup != 0
	}
	return len(t.allHits(ray, VisibilityShadow, accept, buf[:0:maxHits]))
}

// IntersectVolumeAll records the intersections with volume boundaries
// along the ray, with the same buffer contract as IntersectShadowAll.
func (t *Tree) IntersectVolumeAll(ray Ray, maxHits int, buf []Hit) int {
	if maxHits > cap(buf) {
		maxHits = cap(buf)
	}
	if maxHits <= 0 {
		return 0
	}
	accept := func(Primitive) bool { return true }
	return len(t.allHits(ray, VisibilityVolume, accept, buf[:0:maxHits]))
}

// IntersectLocalAll records intersections with a single object only,
// ignoring visibility masks. Subsurface scattering uses this to probe
// the interior of the surface the ray started on.
func (t *Tree) IntersectLocalAll(ray Ray, object, maxHits int, buf []Hit) int {
	if maxHits > cap(buf) {
		maxHits = cap(buf)
	}
	if maxHits <= 0 {
		return 0
	}
	accept := func(p Primitive) bool { return p.Object() == object }
	return len(t.allHits(ray, VisibilityAll, accept, buf[:0:maxHits]))
}
