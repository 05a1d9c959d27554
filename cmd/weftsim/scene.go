package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/chewxy/math32"
	"gopkg.in/yaml.v3"

	"github.com/Faultbox/weft/internal/bvh"
	"github.com/Faultbox/weft/internal/cloth"
	"github.com/Faultbox/weft/internal/collision"
	"github.com/Faultbox/weft/internal/config"
	vmath "github.com/Faultbox/weft/pkg/math"
)

type scene struct {
	object    *cloth.Object
	effectors []cloth.Effector
	colliders []*collision.Collider
}

func buildScene(cfg *config.Config) (*scene, error) {
	var obj *cloth.Object
	var err error

	params := paramsFromConfig(cfg)
	switch cfg.Scene.Type {
	case "cloth":
		obj, err = buildClothGrid(&cfg.Scene, params)
	case "hair":
		obj, err = buildHairBundle(&cfg.Scene, params)
	default:
		return nil, fmt.Errorf("unknown scene type %q", cfg.Scene.Type)
	}
	if err != nil {
		return nil, err
	}

	s := &scene{object: obj}
	if cfg.Scene.WindStrength > 0 {
		s.effectors = append(s.effectors, &cloth.WindEffector{
			Direction: vec3(cfg.Scene.WindDirection),
			Strength:  cfg.Scene.WindStrength,
		})
	}
	if cfg.Collision.Enabled && cfg.Collision.SphereRadius > 0 {
		col, err := sphereCollider(vec3(cfg.Collision.SphereCenter), cfg.Collision.SphereRadius, cfg.Collision.Epsilon)
		if err != nil {
			return nil, err
		}
		s.colliders = append(s.colliders, col)
	}
	return s, nil
}

func vec3(a [3]float32) vmath.Vec3 {
	return vmath.Vec3{X: a[0], Y: a[1], Z: a[2]}
}

func paramsFromConfig(cfg *config.Config) cloth.Parameters {
	p := cloth.DefaultParameters()
	sim := &cfg.Simulation

	p.Gravity = vec3(sim.Gravity)
	p.Substeps = sim.Substeps
	p.StructStiffness = sim.StructStiffness
	p.MaxStruct = sim.StructStiffness
	p.ShearStiffness = sim.ShearStiffness
	p.MaxShear = sim.ShearStiffness
	p.BendStiffness = sim.BendStiffness
	p.MaxBend = sim.BendStiffness
	p.SpringDamping = sim.SpringDamping
	p.BendDamping = sim.BendDamping
	p.Drag = sim.Drag
	p.Restitution = cfg.Collision.Restitution

	p.VoxelCellSize = sim.VoxelCellSize
	p.VelocitySmooth = sim.VelocitySmooth
	p.DensityTarget = sim.DensityTarget
	p.DensityStrength = sim.DensityStrength
	return p
}

// buildClothGrid makes a horizontal cloth sheet with one pinned edge,
// structural, shear and bending springs, and triangle faces for wind.
func buildClothGrid(sc *config.SceneConfig, params cloth.Parameters) (*cloth.Object, error) {
	nx, ny := sc.GridX, sc.GridY
	if nx < 2 || ny < 2 {
		return nil, fmt.Errorf("cloth grid must be at least 2x2, got %dx%d", nx, ny)
	}
	spacing := sc.Spacing

	verts := make([]cloth.Vertex, 0, nx*ny)
	for y := 0; y < ny; y++ {
		for x := 0; x < nx; x++ {
			pos := vmath.Vec3{X: float32(x) * spacing, Y: float32(y) * spacing}
			v := cloth.Vertex{X: pos, Mass: 0.05}
			if y == 0 {
				v.Pinned = true
				v.Xold = pos
				v.Xconst = pos
			}
			verts = append(verts, v)
		}
	}
	at := func(x, y int) int { return y*nx + x }

	var springs []cloth.Spring
	edge := func(a, b int, typ cloth.SpringType) {
		rest := verts[a].X.Distance(verts[b].X)
		springs = append(springs, cloth.Spring{Type: typ, I: a, J: b, RestLen: rest})
	}
	for y := 0; y < ny; y++ {
		for x := 0; x < nx; x++ {
			if x+1 < nx {
				edge(at(x, y), at(x+1, y), cloth.SpringStructural)
			}
			if y+1 < ny {
				edge(at(x, y), at(x, y+1), cloth.SpringStructural)
			}
			if x+1 < nx && y+1 < ny {
				edge(at(x, y), at(x+1, y+1), cloth.SpringShear)
				edge(at(x+1, y), at(x, y+1), cloth.SpringShear)
			}
			if x+2 < nx {
				edge(at(x, y), at(x+2, y), cloth.SpringBending)
			}
			if y+2 < ny {
				edge(at(x, y), at(x, y+2), cloth.SpringBending)
			}
		}
	}

	var faces []cloth.Face
	for y := 0; y+1 < ny; y++ {
		for x := 0; x+1 < nx; x++ {
			faces = append(faces,
				cloth.Face{V: [3]int{at(x, y), at(x+1, y), at(x+1, y+1)}},
				cloth.Face{V: [3]int{at(x, y), at(x+1, y+1), at(x, y+1)}},
			)
		}
	}

	return cloth.NewObject(verts, springs, faces, nil, params)
}

// buildHairBundle makes a grid of strands hanging from pinned roots,
// with stretch springs per segment and angular bending along each
// strand.
func buildHairBundle(sc *config.SceneConfig, params cloth.Parameters) (*cloth.Object, error) {
	if sc.Strands < 1 || sc.Segments < 2 {
		return nil, fmt.Errorf("hair bundle needs at least 1 strand with 2 segments, got %d/%d", sc.Strands, sc.Segments)
	}
	side := int(math32.Ceil(math32.Sqrt(float32(sc.Strands))))
	segLen := sc.HairLength / float32(sc.Segments)

	var verts []cloth.Vertex
	var springs []cloth.Spring
	var strands []cloth.Strand

	for s := 0; s < sc.Strands; s++ {
		rootX := float32(s%side) * 0.02
		rootY := float32(s/side) * 0.02
		root := vmath.Vec3{X: rootX, Y: rootY}

		base := len(verts)
		chain := make([]int, 0, sc.Segments+1)
		for k := 0; k <= sc.Segments; k++ {
			pos := root.Add(vmath.Vec3{X: float32(k) * segLen})
			v := cloth.Vertex{X: pos, Mass: 0.001}
			if k == 0 {
				v.Pinned = true
				v.Xold = pos
				v.Xconst = pos
			}
			chain = append(chain, base+k)
			verts = append(verts, v)
		}
		for k := 0; k < sc.Segments; k++ {
			springs = append(springs, cloth.Spring{
				Type: cloth.SpringStructural, I: base + k, J: base + k + 1, RestLen: segLen,
			})
		}
		for k := 0; k+2 <= sc.Segments; k++ {
			springs = append(springs, cloth.Spring{
				Type: cloth.SpringBendingHair,
				I:    base + k, J: base + k + 1, K: base + k + 2,
				RestLen: segLen, Stiffness: 1,
			})
		}
		strands = append(strands, cloth.Strand{Verts: chain, Rot: vmath.Mat3Identity()})
	}

	return cloth.NewObject(verts, springs, nil, strands, params)
}

// sphereCollider builds a UV sphere collider mesh.
func sphereCollider(center vmath.Vec3, radius, epsilon float32) (*collision.Collider, error) {
	const rings, sectors = 12, 16

	var verts []vmath.Vec3
	for r := 0; r <= rings; r++ {
		phi := math32.Pi * float32(r) / rings
		for s := 0; s < sectors; s++ {
			theta := 2 * math32.Pi * float32(s) / sectors
			verts = append(verts, center.Add(vmath.Vec3{
				X: radius * math32.Sin(phi) * math32.Cos(theta),
				Y: radius * math32.Sin(phi) * math32.Sin(theta),
				Z: radius * math32.Cos(phi),
			}))
		}
	}
	var tris [][3]int
	for r := 0; r < rings; r++ {
		for s := 0; s < sectors; s++ {
			a := r*sectors + s
			b := r*sectors + (s+1)%sectors
			c := (r+1)*sectors + s
			d := (r+1)*sectors + (s+1)%sectors
			tris = append(tris, [3]int{a, b, d}, [3]int{a, d, c})
		}
	}
	return collision.NewCollider(verts, tris, epsilon)
}

// probeRays builds a traversal tree over the simulated mesh and a
// grid of rays looking down on it.
func (s *scene) probeRays() (*bvh.Tree, []bvh.Ray) {
	obj := s.object

	var prims []bvh.Primitive
	if obj.IsHair() {
		for i := range obj.Springs {
			sp := &obj.Springs[i]
			if sp.Type != cloth.SpringStructural {
				continue
			}
			prims = append(prims, &bvh.Curve{
				P0: obj.Verts[sp.I].X, P1: obj.Verts[sp.J].X,
				R0: obj.Params.HairRadius, R1: obj.Params.HairRadius,
				Vis: bvh.VisibilityCamera,
			})
		}
	} else {
		for _, f := range obj.Faces {
			prims = append(prims, &bvh.Triangle{
				V0:  obj.Verts[f.V[0]].X,
				V1:  obj.Verts[f.V[1]].X,
				V2:  obj.Verts[f.V[2]].X,
				Vis: bvh.VisibilityCamera,
			})
		}
	}
	if len(prims) == 0 {
		return nil, nil
	}

	features := bvh.Features(0)
	if obj.IsHair() {
		features |= bvh.FeatureHair
	}
	tree, err := bvh.Build(prims, features)
	if err != nil {
		return nil, nil
	}
	if obj.IsHair() {
		tree.HairMinWidth = 0.01
	}

	bounds := tree.Bounds().Pad(0.05)
	const n = 16
	var rays []bvh.Ray
	for y := 0; y < n; y++ {
		for x := 0; x < n; x++ {
			fx := bounds.Min.X + (bounds.Max.X-bounds.Min.X)*float32(x)/(n-1)
			fy := bounds.Min.Y + (bounds.Max.Y-bounds.Min.Y)*float32(y)/(n-1)
			rays = append(rays, bvh.Ray{
				P: vmath.Vec3{X: fx, Y: fy, Z: bounds.Max.Z + 1},
				D: vmath.Vec3{Z: -1},
				T: bounds.Max.Z - bounds.Min.Z + 2,
			})
		}
	}
	return tree, rays
}

// dumpPositions writes the final vertex positions as YAML.
func dumpPositions(obj *cloth.Object, path string) error {
	type dump struct {
		Positions [][3]float32 `yaml:"positions"`
	}
	d := dump{Positions: make([][3]float32, len(obj.Verts))}
	for i, v := range obj.Verts {
		d.Positions[i] = [3]float32{v.X.X, v.X.Y, v.X.Z}
	}
	data, err := yaml.Marshal(&d)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, data, 0644)
}

// dumpGrid writes the hair continuum grid fields as YAML. Non-hair
// objects have no grid and nothing is written.
func dumpGrid(obj *cloth.Object, path string) error {
	td, err := obj.GridSnapshot()
	if err != nil {
		return err
	}
	if td == nil {
		return nil
	}

	type dump struct {
		Resolution [3]int       `yaml:"resolution"`
		CellSize   float32      `yaml:"cell_size"`
		Min        [3]float32   `yaml:"min"`
		Density    []float32    `yaml:"density"`
		Velocity   [][3]float32 `yaml:"velocity"`
	}
	d := dump{
		Resolution: td.Resolution,
		CellSize:   td.CellSize,
		Min:        [3]float32{td.Min.X, td.Min.Y, td.Min.Z},
		Density:    td.Density,
		Velocity:   make([][3]float32, len(td.Velocity)),
	}
	for i, v := range td.Velocity {
		d.Velocity[i] = [3]float32{v.X, v.Y, v.Z}
	}
	data, err := yaml.Marshal(&d)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, data, 0644)
}
