// Package config handles simulation configuration loading and
// management.
package config

// Config holds all simulation settings.
type Config struct {
	Simulation SimulationConfig `yaml:"simulation"`
	Scene      SceneConfig      `yaml:"scene"`
	Collision  CollisionConfig  `yaml:"collision"`
	Output     OutputConfig     `yaml:"output"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// SimulationConfig holds solver and material settings.
type SimulationConfig struct {
	Frames    int     `yaml:"frames"`
	FrameTime float32 `yaml:"frame_time"` // seconds per frame
	Substeps  int     `yaml:"substeps"`

	Gravity [3]float32 `yaml:"gravity"`

	StructStiffness float32 `yaml:"struct_stiffness"`
	ShearStiffness  float32 `yaml:"shear_stiffness"`
	BendStiffness   float32 `yaml:"bend_stiffness"`
	SpringDamping   float32 `yaml:"spring_damping"`
	BendDamping     float32 `yaml:"bend_damping"`
	Drag            float32 `yaml:"drag"`

	// Hair continuum grid settings.
	VoxelCellSize   float32 `yaml:"voxel_cell_size"`
	VelocitySmooth  float32 `yaml:"velocity_smooth"`
	DensityTarget   float32 `yaml:"density_target"`
	DensityStrength float32 `yaml:"density_strength"`
}

// SceneConfig describes the demo scenario.
type SceneConfig struct {
	// Type is "cloth" (pinned grid) or "hair" (strand bundle).
	Type string `yaml:"type"`

	// Cloth grid dimensions.
	GridX   int     `yaml:"grid_x"`
	GridY   int     `yaml:"grid_y"`
	Spacing float32 `yaml:"spacing"`

	// Hair bundle dimensions.
	Strands    int     `yaml:"strands"`
	Segments   int     `yaml:"segments"`
	HairLength float32 `yaml:"hair_length"`

	// Wind effector; zero strength disables it.
	WindDirection [3]float32 `yaml:"wind_direction"`
	WindStrength  float32    `yaml:"wind_strength"`
}

// CollisionConfig holds contact response settings.
type CollisionConfig struct {
	Enabled     bool    `yaml:"enabled"`
	Epsilon     float32 `yaml:"epsilon"`
	Restitution float32 `yaml:"restitution"`

	// Collider sphere placed under the scene.
	SphereCenter [3]float32 `yaml:"sphere_center"`
	SphereRadius float32    `yaml:"sphere_radius"`
}

// OutputConfig holds result export settings.
type OutputConfig struct {
	// PositionsFile receives the final vertex positions as YAML;
	// empty disables the dump.
	PositionsFile string `yaml:"positions_file"`
	// GridFile receives the hair continuum grid fields as YAML;
	// empty disables the dump, non-hair scenes never write one.
	GridFile string `yaml:"grid_file"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Simulation: SimulationConfig{
			Frames:    100,
			FrameTime: 1.0 / 24.0,
			Substeps:  5,

			Gravity: [3]float32{0, 0, -9.81},

			StructStiffness: 15,
			ShearStiffness:  5,
			BendStiffness:   0.5,
			SpringDamping:   5,
			BendDamping:     0.5,
			Drag:            0.05,

			VoxelCellSize:   0.1,
			VelocitySmooth:  0,
			DensityTarget:   0,
			DensityStrength: 0,
		},
		Scene: SceneConfig{
			Type:    "cloth",
			GridX:   20,
			GridY:   20,
			Spacing: 0.05,

			Strands:    50,
			Segments:   8,
			HairLength: 0.4,

			WindDirection: [3]float32{1, 0, 0},
			WindStrength:  0,
		},
		Collision: CollisionConfig{
			Enabled:     true,
			Epsilon:     0.015,
			Restitution: 0,

			SphereCenter: [3]float32{0.5, 0.5, -0.6},
			SphereRadius: 0.3,
		},
		Output: OutputConfig{
			PositionsFile: "",
			GridFile:      "",
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}
