package config

import "flag"

var (
	flagConfig   = flag.String("config", "", "Path to config file")
	flagDebug    = flag.Bool("debug", false, "Enable debug logging")
	flagFrames   = flag.Int("frames", 0, "Number of frames to simulate")
	flagSubsteps = flag.Int("substeps", 0, "Solver substeps per frame")
	flagScene    = flag.String("scene", "", "Scene type (cloth or hair)")
	flagOutput   = flag.String("output", "", "Positions output file")
)

// ParseFlags parses command-line flags. Call this early in main().
func ParseFlags() {
	flag.Parse()
}

// ConfigPath returns the explicit config path if provided via --config flag.
func ConfigPath() string {
	return *flagConfig
}

// applyFlags applies CLI flag overrides to the config.
func applyFlags(cfg *Config) {
	if *flagDebug {
		cfg.Logging.Level = "debug"
	}
	if *flagFrames > 0 {
		cfg.Simulation.Frames = *flagFrames
	}
	if *flagSubsteps > 0 {
		cfg.Simulation.Substeps = *flagSubsteps
	}
	if *flagScene != "" {
		cfg.Scene.Type = *flagScene
	}
	if *flagOutput != "" {
		cfg.Output.PositionsFile = *flagOutput
	}
}
