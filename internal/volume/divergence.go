package volume

const pressureIterations = 30

// SolveDivergence removes divergence from the smoothed velocity field
// with a Gauss-Seidel pressure solve, biased by the density error when
// strength is positive: overdense regions are inflated toward
// targetDensity, underdense ones contracted. Must run after Normalize.
func (g *Grid) SolveDivergence(dt, targetDensity, strength float32) {
	if dt <= 0 {
		return
	}
	nx, ny, nz := g.res[0], g.res[1], g.res[2]
	h := g.cellSize

	div := make([]float32, len(g.cells))
	for z := 1; z < nz-1; z++ {
		for y := 1; y < ny-1; y++ {
			for x := 1; x < nx-1; x++ {
				i := g.index(x, y, z)
				d := (g.cells[g.index(x+1, y, z)].smooth.X-g.cells[g.index(x-1, y, z)].smooth.X +
					g.cells[g.index(x, y+1, z)].smooth.Y - g.cells[g.index(x, y-1, z)].smooth.Y +
					g.cells[g.index(x, y, z+1)].smooth.Z - g.cells[g.index(x, y, z-1)].smooth.Z) / (2 * h)

				if strength > 0 {
					// density error acts as a velocity source term
					d -= strength * (g.cells[i].density - targetDensity) / dt
				}
				div[i] = d
			}
		}
	}

	pressure := make([]float32, len(g.cells))
	for iter := 0; iter < pressureIterations; iter++ {
		for z := 1; z < nz-1; z++ {
			for y := 1; y < ny-1; y++ {
				for x := 1; x < nx-1; x++ {
					i := g.index(x, y, z)
					sum := pressure[g.index(x-1, y, z)] + pressure[g.index(x+1, y, z)] +
						pressure[g.index(x, y-1, z)] + pressure[g.index(x, y+1, z)] +
						pressure[g.index(x, y, z-1)] + pressure[g.index(x, y, z+1)]
					pressure[i] = (sum - h*h*div[i]) / 6
				}
			}
		}
	}

	for z := 1; z < nz-1; z++ {
		for y := 1; y < ny-1; y++ {
			for x := 1; x < nx-1; x++ {
				i := g.index(x, y, z)
				grad := [3]float32{
					(pressure[g.index(x+1, y, z)] - pressure[g.index(x-1, y, z)]) / (2 * h),
					(pressure[g.index(x, y+1, z)] - pressure[g.index(x, y-1, z)]) / (2 * h),
					(pressure[g.index(x, y, z+1)] - pressure[g.index(x, y, z-1)]) / (2 * h),
				}
				g.cells[i].smooth.X -= grad[0]
				g.cells[i].smooth.Y -= grad[1]
				g.cells[i].smooth.Z -= grad[2]
			}
		}
	}
}
