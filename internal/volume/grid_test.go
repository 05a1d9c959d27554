package volume

import (
	"testing"

	"github.com/chewxy/math32"

	vmath "github.com/Faultbox/weft/pkg/math"
)

func TestNewGridResolution(t *testing.T) {
	g := NewGrid(1, vmath.Vec3{}, vmath.Vec3{X: 2.5, Y: 0.1, Z: 3})
	if got, want := g.Resolution(), [3]int{4, 2, 4}; got != want {
		t.Errorf("Resolution() = %v, want %v", got, want)
	}

	// zero cell size falls back to 1
	g = NewGrid(0, vmath.Vec3{}, vmath.Vec3{X: 1, Y: 1, Z: 1})
	if got := g.Resolution(); got[0] < 2 {
		t.Errorf("Resolution()[0] = %d, want at least 2", got[0])
	}
}

func TestAddSegmentVelocity(t *testing.T) {
	g := NewGrid(1, vmath.Vec3{}, vmath.Vec3{X: 4, Y: 4, Z: 4})
	vel := vmath.Vec3{Z: 1}
	g.AddSegment(vmath.Vec3{X: 1, Y: 2, Z: 2}, vel, vmath.Vec3{X: 3, Y: 2, Z: 2}, vel)
	g.Normalize()

	raw, smooth := g.Velocity(vmath.Vec3{X: 2, Y: 2, Z: 2})
	if math32.Abs(raw.Z-1) > 1e-4 {
		t.Errorf("raw velocity on the segment = %v, want (0,0,1)", raw)
	}
	if smooth.Sub(raw).Length() > 1e-5 {
		t.Errorf("smooth = %v before divergence solve, want equal to raw %v", smooth, raw)
	}

	// far corner holds no momentum
	raw, _ = g.Velocity(vmath.Vec3{})
	if raw.Length() > 1e-5 {
		t.Errorf("velocity in empty corner = %v, want zero", raw)
	}
}

func TestVelocityEmptyGrid(t *testing.T) {
	g := NewGrid(1, vmath.Vec3{}, vmath.Vec3{X: 2, Y: 2, Z: 2})
	raw, smooth := g.Velocity(vmath.Vec3{X: 1, Y: 1, Z: 1})
	if raw.Length() != 0 || smooth.Length() != 0 {
		t.Errorf("Velocity() on empty grid = %v/%v, want zero", raw, smooth)
	}
}

// divergenceAt recomputes the central-difference divergence of the
// corrected field at an interior cell.
func divergenceAt(g *Grid, x, y, z int) float32 {
	h := g.cellSize
	return (g.cells[g.index(x+1, y, z)].smooth.X - g.cells[g.index(x-1, y, z)].smooth.X +
		g.cells[g.index(x, y+1, z)].smooth.Y - g.cells[g.index(x, y-1, z)].smooth.Y +
		g.cells[g.index(x, y, z+1)].smooth.Z - g.cells[g.index(x, y, z-1)].smooth.Z) / (2 * h)
}

func TestSolveDivergenceUniformFieldUnchanged(t *testing.T) {
	g := NewGrid(1, vmath.Vec3{}, vmath.Vec3{X: 4, Y: 4, Z: 4})
	vel := vmath.Vec3{X: 0.5, Y: -0.25, Z: 1}
	for i := range g.cells {
		g.cells[i].density = 1
		g.cells[i].velocity = vel
	}
	g.Normalize()
	g.SolveDivergence(0.1, 0, 0)

	_, smooth := g.Velocity(vmath.Vec3{X: 2, Y: 2, Z: 2})
	if smooth.Sub(vel).Length() > 1e-4 {
		t.Errorf("uniform field after solve = %v, want %v unchanged", smooth, vel)
	}
}

func TestSolveDivergenceRemovesDivergence(t *testing.T) {
	g := NewGrid(1, vmath.Vec3{}, vmath.Vec3{X: 4, Y: 4, Z: 4})
	// expanding field along X, unit divergence everywhere inside
	for z := 0; z < g.res[2]; z++ {
		for y := 0; y < g.res[1]; y++ {
			for x := 0; x < g.res[0]; x++ {
				g.cells[g.index(x, y, z)].smooth = vmath.Vec3{X: float32(x) - 2}
			}
		}
	}
	before := divergenceAt(g, 2, 2, 2)
	if math32.Abs(before-1) > 1e-4 {
		t.Fatalf("initial divergence = %v, want 1", before)
	}

	g.SolveDivergence(0.1, 0, 0)
	after := divergenceAt(g, 2, 2, 2)
	if math32.Abs(after) > 0.5 {
		t.Errorf("divergence after solve = %v, want near zero", after)
	}
	for i := range g.cells {
		s := g.cells[i].smooth
		if math32.IsNaN(s.X) || math32.IsNaN(s.Y) || math32.IsNaN(s.Z) {
			t.Fatalf("cell %d velocity is NaN after solve", i)
		}
	}
}

func TestSolveDivergenceDensityControl(t *testing.T) {
	g := NewGrid(1, vmath.Vec3{}, vmath.Vec3{X: 4, Y: 4, Z: 4})
	// overdense center with no motion: the density term must push
	// material outward
	g.cells[g.index(2, 2, 2)].density = 2
	g.Normalize()
	g.SolveDivergence(0.1, 0.5, 1)

	right := g.cells[g.index(3, 2, 2)].smooth.X
	left := g.cells[g.index(1, 2, 2)].smooth.X
	if right <= 0 {
		t.Errorf("velocity right of overdense cell = %v, want positive (outward)", right)
	}
	if left >= 0 {
		t.Errorf("velocity left of overdense cell = %v, want negative (outward)", left)
	}
}

func TestSolveDivergenceZeroDt(t *testing.T) {
	g := NewGrid(1, vmath.Vec3{}, vmath.Vec3{X: 2, Y: 2, Z: 2})
	g.SolveDivergence(0, 0, 0) // no-op, must not panic
}

func TestTextureData(t *testing.T) {
	g := NewGrid(0.5, vmath.Vec3{X: -1}, vmath.Vec3{X: 1, Y: 1, Z: 1})
	g.AddSegment(vmath.Vec3{}, vmath.Vec3{Y: 1}, vmath.Vec3{X: 0.5}, vmath.Vec3{Y: 1})
	g.Normalize()

	td := g.TextureData()
	if td.Resolution != g.Resolution() {
		t.Errorf("TextureData resolution = %v, want %v", td.Resolution, g.Resolution())
	}
	n := td.Resolution[0] * td.Resolution[1] * td.Resolution[2]
	if len(td.Density) != n || len(td.Velocity) != n {
		t.Errorf("TextureData slice lengths = %d/%d, want %d", len(td.Density), len(td.Velocity), n)
	}
	if td.CellSize != 0.5 {
		t.Errorf("TextureData cell size = %v, want 0.5", td.CellSize)
	}

	var total float32
	for _, d := range td.Density {
		total += d
	}
	if total <= 0 {
		t.Error("TextureData density sums to zero after rasterization")
	}

	// snapshot is a copy
	td.Density[0] = 99
	if g.cells[0].density == 99 {
		t.Error("mutating TextureData changed the grid")
	}
}
