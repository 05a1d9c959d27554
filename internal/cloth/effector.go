package cloth

import (
	vmath "github.com/Faultbox/weft/pkg/math"
)

// Effector is an external force field. Force is sampled once per
// vertex per substep and cached before the wind forces read it.
type Effector interface {
	Force(x, v vmath.Vec3) vmath.Vec3
}

// WindEffector is a uniform directional wind field.
type WindEffector struct {
	Direction vmath.Vec3
	Strength  float32
}

// Force returns the wind vector, independent of position.
func (w *WindEffector) Force(_, _ vmath.Vec3) vmath.Vec3 {
	return w.Direction.Normalize().Scale(w.Strength)
}

// DragEffector opposes vertex motion proportionally to velocity,
// modelling a viscous medium.
type DragEffector struct {
	Coefficient float32
}

// Force returns the drag force for the given velocity.
func (d *DragEffector) Force(_, v vmath.Vec3) vmath.Vec3 {
	return v.Scale(-d.Coefficient)
}
