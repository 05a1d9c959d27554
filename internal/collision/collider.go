// Package collision detects contacts between simulated vertices and
// collider meshes and computes the impulse response fed into the
// solver's contact constraints.
package collision

import (
	"fmt"

	"github.com/Faultbox/weft/internal/bvh"
	vmath "github.com/Faultbox/weft/pkg/math"
)

// Collider is a triangle mesh obstacle. Vertices within Epsilon of its
// surface are in contact. Moving colliders get their velocity from
// SetMotion.
type Collider struct {
	Epsilon float32

	verts []vmath.Vec3
	vels  []vmath.Vec3
	tris  [][3]int
	tree  *bvh.Tree
}

// NewCollider builds a static collider from a triangle mesh.
func NewCollider(verts []vmath.Vec3, tris [][3]int, epsilon float32) (*Collider, error) {
	if epsilon <= 0 {
		return nil, fmt.Errorf("collision: epsilon must be positive, got %v", epsilon)
	}
	if len(tris) == 0 {
		return nil, fmt.Errorf("collision: collider has no triangles")
	}
	for i, tri := range tris {
		for _, v := range tri {
			if v < 0 || v >= len(verts) {
				return nil, fmt.Errorf("collision: triangle %d references vertex %d out of range [0, %d)", i, v, len(verts))
			}
		}
	}

	c := &Collider{
		Epsilon: epsilon,
		verts:   append([]vmath.Vec3(nil), verts...),
		vels:    make([]vmath.Vec3, len(verts)),
		tris:    tris,
	}
	if err := c.rebuild(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Collider) rebuild() error {
	prims := make([]bvh.Primitive, len(c.tris))
	for i, tri := range c.tris {
		prims[i] = &bvh.Triangle{
			V0:  c.verts[tri[0]],
			V1:  c.verts[tri[1]],
			V2:  c.verts[tri[2]],
			Obj: i,
			Vis: bvh.VisibilityAll,
		}
	}
	tree, err := bvh.Build(prims, 0)
	if err != nil {
		return err
	}
	c.tree = tree
	return nil
}

// SetMotion advances the collider to new vertex positions, deriving
// per-vertex velocities over dt. The acceleration structure is rebuilt.
func (c *Collider) SetMotion(newVerts []vmath.Vec3, dt float32) error {
	if len(newVerts) != len(c.verts) {
		return fmt.Errorf("collision: vertex count changed from %d to %d", len(c.verts), len(newVerts))
	}
	if dt <= 0 {
		return fmt.Errorf("collision: dt must be positive, got %v", dt)
	}
	for i := range c.verts {
		c.vels[i] = newVerts[i].Sub(c.verts[i]).Scale(1 / dt)
		c.verts[i] = newVerts[i]
	}
	return c.rebuild()
}

// faceVelocity returns the mean velocity of a triangle's vertices.
func (c *Collider) faceVelocity(face int) vmath.Vec3 {
	tri := c.tris[face]
	v := c.vels[tri[0]].Add(c.vels[tri[1]]).Add(c.vels[tri[2]])
	return v.Scale(1.0 / 3.0)
}

// Contact is one vertex-surface proximity event.
type Contact struct {
	Vertex int
	Face   int
	// Normal points from the surface toward the vertex's side; for
	// penetrating vertices it is the face normal.
	Normal vmath.Vec3
	// Distance is the signed vertex-surface distance: negative when
	// the vertex is behind the face, magnitude below Epsilon.
	Distance float32
	// Future marks a contact detected at the vertex's predicted
	// position one step ahead rather than its current one. Distance
	// and Normal then describe the predicted configuration.
	Future bool

	epsilon     float32
	colliderVel vmath.Vec3
}

// FindPointContacts tests every point against every collider and
// returns the contacts found: at most one per point and collider, the
// nearest surface within Epsilon.
func FindPointContacts(points []vmath.Vec3, colliders []*Collider) []Contact {
	var contacts []Contact
	for _, col := range colliders {
		for vi, p := range points {
			if ct, ok := col.findContact(vi, p); ok {
				contacts = append(contacts, ct)
			}
		}
	}
	return contacts
}

// FindSweptContacts tests every point at its current position and,
// when clear there, at its predicted position one step ahead. Contacts
// found only at the predicted position are tagged Future, catching
// overlaps that would first appear after the next integration step.
func FindSweptContacts(points, velocities []vmath.Vec3, dt float32, colliders []*Collider) []Contact {
	var contacts []Contact
	for _, col := range colliders {
		for vi, p := range points {
			ct, ok := col.findContact(vi, p)
			if !ok && dt > 0 {
				ct, ok = col.findContact(vi, p.MAdd(velocities[vi], dt))
				ct.Future = true
			}
			if ok {
				contacts = append(contacts, ct)
			}
		}
	}
	return contacts
}

func (c *Collider) findContact(vi int, p vmath.Vec3) (Contact, bool) {
	bestAbs := c.Epsilon
	var best Contact
	found := false

	c.tree.VisitSphere(p, c.Epsilon, func(_ int, prim bvh.Primitive) bool {
		tri := prim.(*bvh.Triangle)
		cp := closestPointTriangle(p, tri.V0, tri.V1, tri.V2)
		delta := p.Sub(cp)
		dist := delta.Length()
		if dist >= c.Epsilon || (found && dist >= bestAbs) {
			return true
		}

		faceNormal := tri.Normal().Normalize()
		normal := faceNormal
		signedDist := dist
		switch {
		case dist <= 1e-7:
			// vertex on the surface, keep the face normal
		case delta.Dot(faceNormal) >= 0:
			normal = delta.Scale(1 / dist)
		default:
			// behind the face plane: penetrating, push out along the
			// face normal
			signedDist = -dist
		}

		best = Contact{
			Vertex:      vi,
			Face:        tri.Obj,
			Normal:      normal,
			Distance:    signedDist,
			epsilon:     c.Epsilon,
			colliderVel: c.faceVelocity(tri.Obj),
		}
		bestAbs = dist
		found = true
		return true
	})
	return best, found
}

// closestPointTriangle returns the point on triangle abc closest to p.
func closestPointTriangle(p, a, b, c vmath.Vec3) vmath.Vec3 {
	ab := b.Sub(a)
	ac := c.Sub(a)
	ap := p.Sub(a)

	d1 := ab.Dot(ap)
	d2 := ac.Dot(ap)
	if d1 <= 0 && d2 <= 0 {
		return a
	}

	bp := p.Sub(b)
	d3 := ab.Dot(bp)
	d4 := ac.Dot(bp)
	if d3 >= 0 && d4 <= d3 {
		return b
	}

	vc := d1*d4 - d3*d2
	if vc <= 0 && d1 >= 0 && d3 <= 0 {
		v := d1 / (d1 - d3)
		return a.MAdd(ab, v)
	}

	cp := p.Sub(c)
	d5 := ab.Dot(cp)
	d6 := ac.Dot(cp)
	if d6 >= 0 && d5 <= d6 {
		return c
	}

	vb := d5*d2 - d1*d6
	if vb <= 0 && d2 >= 0 && d6 <= 0 {
		w := d2 / (d2 - d6)
		return a.MAdd(ac, w)
	}

	va := d3*d6 - d5*d4
	if va <= 0 && d4-d3 >= 0 && d5-d6 >= 0 {
		w := (d4 - d3) / ((d4 - d3) + (d5 - d6))
		return b.MAdd(c.Sub(b), w)
	}

	denom := 1 / (va + vb + vc)
	v := vb * denom
	w := vc * denom
	return a.MAdd(ab, v).MAdd(ac, w)
}
