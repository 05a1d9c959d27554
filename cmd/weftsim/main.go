// Package main is the entry point for the weft simulation driver.
package main

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/Faultbox/weft/internal/bvh"
	"github.com/Faultbox/weft/internal/config"
	"github.com/Faultbox/weft/internal/logger"
)

func main() {
	// Parse CLI flags first
	config.ParseFlags()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "Logger error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("=== weft simulator ===")
	logger.Sugar.Debugf("Config: %+v", cfg)

	scene, err := buildScene(cfg)
	if err != nil {
		logger.Error("failed to build scene", zap.Error(err))
		os.Exit(1)
	}

	for frame := 1; frame <= cfg.Simulation.Frames; frame++ {
		if err := scene.object.Solve(cfg.Simulation.FrameTime, scene.effectors, scene.colliders); err != nil {
			logger.Error("solve failed", zap.Int("frame", frame), zap.Error(err))
			os.Exit(1)
		}
		res := scene.object.LastResult()
		logger.Info("frame solved",
			zap.Int("frame", frame),
			zap.Float32("avg_iterations", res.AvgIterations()),
			zap.Float32("max_error", res.MaxError),
			zap.Int("non_converged", res.NonConverged),
		)
	}

	probeResult(scene)

	if cfg.Output.PositionsFile != "" {
		if err := dumpPositions(scene.object, cfg.Output.PositionsFile); err != nil {
			logger.Error("failed to write positions", zap.Error(err))
			os.Exit(1)
		}
		logger.Info("positions written", zap.String("file", cfg.Output.PositionsFile))
	}

	if cfg.Output.GridFile != "" && scene.object.IsHair() {
		if err := dumpGrid(scene.object, cfg.Output.GridFile); err != nil {
			logger.Error("failed to write grid", zap.Error(err))
			os.Exit(1)
		}
		logger.Info("grid written", zap.String("file", cfg.Output.GridFile))
	}

	logger.Info("simulation finished")
}

// probeResult raycasts the final mesh from above to report its height
// profile, exercising the traversal engine on the simulated state.
func probeResult(scene *scene) {
	tree, rays := scene.probeRays()
	if tree == nil {
		return
	}
	results, err := tree.IntersectBatch(context.Background(), rays, bvh.VisibilityCamera, 0)
	if err != nil {
		logger.Error("probe raycast failed", zap.Error(err))
		return
	}
	hits := 0
	for _, r := range results {
		if r.OK {
			hits++
		}
	}
	logger.Info("probe raycast", zap.Int("rays", len(rays)), zap.Int("hits", hits))
}
