package volume

import (
	vmath "github.com/Faultbox/weft/pkg/math"
)

// TextureData is an immutable snapshot of the grid for visualization
// or export. Cells are laid out x-fastest.
type TextureData struct {
	Resolution [3]int
	CellSize   float32
	Min        vmath.Vec3

	Density  []float32
	Velocity []vmath.Vec3
}

// TextureData copies the current field state out of the grid.
func (g *Grid) TextureData() *TextureData {
	td := &TextureData{
		Resolution: g.res,
		CellSize:   g.cellSize,
		Min:        g.min,
		Density:    make([]float32, len(g.cells)),
		Velocity:   make([]vmath.Vec3, len(g.cells)),
	}
	for i := range g.cells {
		td.Density[i] = g.cells[i].density
		td.Velocity[i] = g.cells[i].smooth
	}
	return td
}
