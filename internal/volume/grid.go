// Package volume implements the hair continuum grid: strand segments
// are rasterized into a voxel field whose smoothed, divergence-free
// velocities feed back into the solver, giving hair volume-preserving
// bulk motion.
package volume

import (
	"github.com/chewxy/math32"

	vmath "github.com/Faultbox/weft/pkg/math"
)

type cell struct {
	density  float32
	velocity vmath.Vec3 // momentum during rasterization, velocity after Normalize
	smooth   vmath.Vec3 // velocity after divergence correction
}

// Grid is a uniform voxel grid over an axis-aligned domain.
type Grid struct {
	cellSize float32
	min      vmath.Vec3
	res      [3]int
	cells    []cell
}

// NewGrid creates a grid covering [min, max] with the given cell size.
func NewGrid(cellSize float32, min, max vmath.Vec3) *Grid {
	if cellSize <= 0 {
		cellSize = 1
	}
	ext := max.Sub(min)
	g := &Grid{cellSize: cellSize, min: min}
	for axis := 0; axis < 3; axis++ {
		n := int(math32.Ceil(ext.Comp(axis)/cellSize)) + 1
		if n < 2 {
			n = 2
		}
		g.res[axis] = n
	}
	g.cells = make([]cell, g.res[0]*g.res[1]*g.res[2])
	return g
}

// Resolution returns the cell counts per axis.
func (g *Grid) Resolution() [3]int {
	return g.res
}

func (g *Grid) index(x, y, z int) int {
	return (z*g.res[1]+y)*g.res[0] + x
}

// scatter distributes weight and momentum to the 8 cells around p.
func (g *Grid) scatter(p, vel vmath.Vec3, weight float32) {
	lx, ly, lz, fx, fy, fz, ok := g.locate(p)
	if !ok {
		return
	}
	for dz := 0; dz < 2; dz++ {
		wz := 1 - fz
		if dz == 1 {
			wz = fz
		}
		for dy := 0; dy < 2; dy++ {
			wy := 1 - fy
			if dy == 1 {
				wy = fy
			}
			for dx := 0; dx < 2; dx++ {
				wx := 1 - fx
				if dx == 1 {
					wx = fx
				}
				w := weight * wx * wy * wz
				c := &g.cells[g.index(lx+dx, ly+dy, lz+dz)]
				c.density += w
				c.velocity = c.velocity.MAdd(vel, w)
			}
		}
	}
}

// locate returns the lower cell corner of p and the trilinear
// fractions, clamped into the grid.
func (g *Grid) locate(p vmath.Vec3) (lx, ly, lz int, fx, fy, fz float32, ok bool) {
	rel := p.Sub(g.min).Scale(1 / g.cellSize)
	idx := [3]int{}
	frac := [3]float32{}
	for axis := 0; axis < 3; axis++ {
		v := rel.Comp(axis)
		if v < 0 {
			v = 0
		}
		limit := float32(g.res[axis] - 1)
		if v > limit {
			v = limit
		}
		i := int(v)
		if i > g.res[axis]-2 {
			i = g.res[axis] - 2
		}
		idx[axis] = i
		frac[axis] = v - float32(i)
	}
	return idx[0], idx[1], idx[2], frac[0], frac[1], frac[2], true
}

// AddSegment rasterizes one strand segment, sampling it densely enough
// that no cell along it is skipped.
func (g *Grid) AddSegment(x1, v1, x2, v2 vmath.Vec3) {
	length := x2.Sub(x1).Length()
	samples := int(math32.Ceil(length/g.cellSize)) + 2
	weight := 1 / float32(samples)
	for s := 0; s < samples; s++ {
		t := float32(s) / float32(samples-1)
		g.scatter(x1.Lerp(x2, t), v1.Lerp(v2, t), weight)
	}
}

// Normalize converts accumulated momentum into velocity. Call once
// after the last AddSegment.
func (g *Grid) Normalize() {
	for i := range g.cells {
		c := &g.cells[i]
		if c.density > 0 {
			c.velocity = c.velocity.Scale(1 / c.density)
		}
		c.smooth = c.velocity
	}
}

// Velocity samples the raw and corrected velocity fields at p with
// trilinear interpolation.
func (g *Grid) Velocity(p vmath.Vec3) (raw, smooth vmath.Vec3) {
	lx, ly, lz, fx, fy, fz, ok := g.locate(p)
	if !ok {
		return vmath.Vec3{}, vmath.Vec3{}
	}
	for dz := 0; dz < 2; dz++ {
		wz := 1 - fz
		if dz == 1 {
			wz = fz
		}
		for dy := 0; dy < 2; dy++ {
			wy := 1 - fy
			if dy == 1 {
				wy = fy
			}
			for dx := 0; dx < 2; dx++ {
				wx := 1 - fx
				if dx == 1 {
					wx = fx
				}
				w := wx * wy * wz
				c := &g.cells[g.index(lx+dx, ly+dy, lz+dz)]
				raw = raw.MAdd(c.velocity, w)
				smooth = smooth.MAdd(c.smooth, w)
			}
		}
	}
	return raw, smooth
}
