package cloth

import (
	vmath "github.com/Faultbox/weft/pkg/math"
)

// Parameters are the material and stepping settings of one object.
// Spring stiffness fields are base values; each spring's Stiffness
// factor blends toward the corresponding Max value.
type Parameters struct {
	Gravity  vmath.Vec3
	Substeps int

	StructStiffness float32
	MaxStruct       float32
	ShearStiffness  float32
	MaxShear        float32
	BendStiffness   float32
	MaxBend         float32

	SpringDamping float32 // along-axis damping of stretch springs
	BendDamping   float32

	GoalSpring   float32
	GoalFriction float32

	// VelocityDamp scales velocities at every substep; 1 disables it.
	VelocityDamp float32
	// Drag is the uniform air drag coefficient.
	Drag float32

	// Restitution is the bounce factor of contact response.
	Restitution float32

	// NoCompress disables the compression response of stretch springs.
	NoCompress bool
	// MaxSewing clamps sewing spring forces; 0 leaves them unclamped.
	MaxSewing float32

	// Hair continuum grid settings. The grid step runs only when
	// VelocitySmooth or DensityStrength is positive.
	VoxelCellSize   float32
	VelocitySmooth  float32
	DensityTarget   float32
	DensityStrength float32

	// HairRadius feeds the per-segment wind force.
	HairRadius float32
}

// DefaultParameters returns settings for a moderately stiff cloth.
func DefaultParameters() Parameters {
	return Parameters{
		Gravity:  vmath.Vec3{Z: -9.81},
		Substeps: 5,

		StructStiffness: 15,
		MaxStruct:       15,
		ShearStiffness:  5,
		MaxShear:        5,
		BendStiffness:   0.5,
		MaxBend:         0.5,

		SpringDamping: 5,
		BendDamping:   0.5,

		GoalSpring:   1,
		GoalFriction: 0,

		VelocityDamp: 1,
		Drag:         0,

		VoxelCellSize: 0.1,
		HairRadius:    0.005,
	}
}

// structScaling returns the stretch stiffness of spring s normalized
// by the average rest length, so denser meshes do not stiffen.
func (p *Parameters) structScaling(s *Spring, avgSpringLen float32) float32 {
	base, max := p.StructStiffness, p.MaxStruct
	if s.Type == SpringShear {
		base, max = p.ShearStiffness, p.MaxShear
	}
	k := base + s.Stiffness*abs32(max-base)
	return k / (avgSpringLen + epsilon)
}

// bendScaling returns the bending stiffness and damping of spring s.
func (p *Parameters) bendScaling(s *Spring, avgSpringLen float32) (kb, cb float32) {
	var scaling float32
	if s.Type == SpringBendingHair {
		scaling = s.Stiffness * p.BendStiffness
	} else {
		scaling = p.BendStiffness + s.Stiffness*abs32(p.MaxBend-p.BendStiffness)
	}
	kb = scaling / (20 * (avgSpringLen + epsilon))
	cb = kb * p.BendDamping
	return kb, cb
}

const epsilon = 1.1920929e-7

func abs32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}
