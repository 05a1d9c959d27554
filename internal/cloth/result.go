package cloth

import (
	"github.com/Faultbox/weft/internal/solver"
)

// Result aggregates solver statistics over the substeps of one frame.
type Result struct {
	Steps int

	MinIterations int
	MaxIterations int
	MinError      float32
	MaxError      float32

	NonConverged int
	Invalid      int

	sumIterations int
	sumError      float32
}

func (r *Result) record(sr solver.Result) {
	if r.Steps == 0 {
		r.MinIterations, r.MaxIterations = sr.Iterations, sr.Iterations
		r.MinError, r.MaxError = sr.Error, sr.Error
	} else {
		if sr.Iterations < r.MinIterations {
			r.MinIterations = sr.Iterations
		}
		if sr.Iterations > r.MaxIterations {
			r.MaxIterations = sr.Iterations
		}
		if sr.Error < r.MinError {
			r.MinError = sr.Error
		}
		if sr.Error > r.MaxError {
			r.MaxError = sr.Error
		}
	}
	r.Steps++
	r.sumIterations += sr.Iterations
	r.sumError += sr.Error

	switch sr.Status {
	case solver.StatusNoConvergence:
		r.NonConverged++
	case solver.StatusInvalid:
		r.Invalid++
	}
}

// AvgIterations returns the mean CG iteration count per substep.
func (r Result) AvgIterations() float32 {
	if r.Steps == 0 {
		return 0
	}
	return float32(r.sumIterations) / float32(r.Steps)
}

// AvgError returns the mean residual error per substep.
func (r Result) AvgError() float32 {
	if r.Steps == 0 {
		return 0
	}
	return r.sumError / float32(r.Steps)
}
