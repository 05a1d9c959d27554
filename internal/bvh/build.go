package bvh

import (
	"fmt"
	"sort"
)

// Features selects which primitive kinds and traversal behaviors a
// tree supports. Queries dispatch to a traversal variant based on the
// flag set, so trees without instancing or motion never pay for them.
type Features uint32

const (
	// FeatureInstancing enables Instance primitives.
	FeatureInstancing Features = 1 << iota
	// FeatureHair enables Curve primitives and the minimum-width fudge.
	FeatureHair
	// FeatureMotion enables MotionTriangle primitives.
	FeatureMotion
	// FeatureShadowLink enables light-set filtering on shadow rays.
	FeatureShadowLink
)

const (
	maxLeafSize  = 4
	maxTreeDepth = 64
)

// node is one linear tree node. A leaf holds prims [primStart,
// primStart+primCount); an inner node holds child node indices.
type node struct {
	bounds     AABB
	left       int
	right      int
	primStart  int
	primCount  int
	visibility Visibility
}

func (n *node) isLeaf() bool {
	return n.primCount > 0
}

// Tree is an immutable bounding volume hierarchy in linear node
// layout.
type Tree struct {
	nodes    []node
	prims    []Primitive
	features Features

	// HairMinWidth widens curve radii up to this value, keeping
	// sub-pixel strands hittable.
	HairMinWidth float32
}

// Build constructs a tree over prims by median split on the longest
// centroid axis. The primitive slice is copied; the input remains
// untouched. Primitive kinds not covered by features are rejected.
func Build(prims []Primitive, features Features) (*Tree, error) {
	if len(prims) == 0 {
		return nil, fmt.Errorf("bvh: cannot build over zero primitives")
	}
	for i, p := range prims {
		switch p.Type() {
		case PrimInstance:
			if features&FeatureInstancing == 0 {
				return nil, fmt.Errorf("bvh: primitive %d is an instance but FeatureInstancing is off", i)
			}
		case PrimCurve:
			if features&FeatureHair == 0 {
				return nil, fmt.Errorf("bvh: primitive %d is a curve but FeatureHair is off", i)
			}
		case PrimMotionTriangle:
			if features&FeatureMotion == 0 {
				return nil, fmt.Errorf("bvh: primitive %d is a motion triangle but FeatureMotion is off", i)
			}
		}
	}

	t := &Tree{
		prims:    append([]Primitive(nil), prims...),
		features: features,
	}
	t.nodes = make([]node, 0, 2*len(prims))
	t.buildRange(0, len(t.prims), 0)
	return t, nil
}

// Features returns the flag set the tree was built with.
func (t *Tree) Features() Features {
	return t.features
}

// Bounds returns the root bounding box.
func (t *Tree) Bounds() AABB {
	return t.nodes[0].bounds
}

// NumPrims returns the primitive count.
func (t *Tree) NumPrims() int {
	return len(t.prims)
}

// Prim returns the primitive a Hit refers to.
func (t *Tree) Prim(i int) Primitive {
	return t.prims[i]
}

// buildRange builds the subtree over prims [start, end) and returns
// its node index.
func (t *Tree) buildRange(start, end, depth int) int {
	bounds := EmptyAABB()
	vis := VisibilityNone
	for _, p := range t.prims[start:end] {
		bounds = bounds.Union(p.Bounds())
		vis |= p.Visibility()
	}

	idx := len(t.nodes)
	t.nodes = append(t.nodes, node{bounds: bounds, visibility: vis})

	count := end - start
	if count <= maxLeafSize || depth >= maxTreeDepth {
		t.nodes[idx].primStart = start
		t.nodes[idx].primCount = count
		return idx
	}

	centroids := EmptyAABB()
	for _, p := range t.prims[start:end] {
		centroids = centroids.Grow(p.Bounds().Center())
	}
	axis := centroids.LongestAxis()

	sort.Slice(t.prims[start:end], func(a, b int) bool {
		pa := t.prims[start+a].Bounds().Center()
		pb := t.prims[start+b].Bounds().Center()
		return pa.Comp(axis) < pb.Comp(axis)
	})

	mid := start + count/2
	t.nodes[idx].left = t.buildRange(start, mid, depth+1)
	t.nodes[idx].right = t.buildRange(mid, end, depth+1)
	return idx
}
