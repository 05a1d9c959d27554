package cloth

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/Faultbox/weft/internal/collision"
	"github.com/Faultbox/weft/internal/logger"
	"github.com/Faultbox/weft/internal/solver"
	"github.com/Faultbox/weft/internal/volume"
	vmath "github.com/Faultbox/weft/pkg/math"
)

// pressure/velocity transfer blend between FLIP and PIC in the hair
// continuum step
const fluidFactor = 0.95

// Solve advances the object by one animation frame of frameDt seconds,
// substepping per Params.Substeps. Pinned vertices are moved along the
// Xold -> Xconst interpolation over the frame. effectors contribute
// wind forces, colliders contact response. The solver state is
// recreated transparently when the vertex count changed since the last
// call.
func (o *Object) Solve(frameDt float32, effectors []Effector, colliders []*collision.Collider) error {
	if frameDt <= 0 {
		return fmt.Errorf("cloth: frame duration must be positive, got %v", frameDt)
	}
	if err := o.ensureSolver(); err != nil {
		return err
	}

	substeps := o.Params.Substeps
	if substeps < 1 {
		substeps = 1
	}
	dt := frameDt / float32(substeps)
	o.result = Result{}

	// seed pin velocities so constrained vertices move smoothly
	// across the whole frame
	for i := range o.Verts {
		if o.Verts[i].Pinned {
			o.sol.SetVelocity(i, o.Verts[i].Xconst.Sub(o.Verts[i].Xold).Scale(1/frameDt))
		}
	}

	for step := 0; step < substeps; step++ {
		t := float32(step+1) / float32(substeps)

		var contacts []collision.Contact
		if o.IsHair() && len(colliders) > 0 {
			contacts = o.findContacts(colliders, dt)
		}
		o.setupConstraints(contacts, dt)

		if o.Params.VelocityDamp != 1 {
			for i := range o.Verts {
				o.sol.SetVelocity(i, o.sol.Velocity(i).Scale(o.Params.VelocityDamp))
			}
		}

		o.sol.ClearForces()
		o.calcForces(t, effectors)

		sr := o.sol.SolveVelocities(dt)
		o.result.record(sr)
		if sr.Status == solver.StatusInvalid {
			return fmt.Errorf("cloth: velocity solve produced non-finite values at substep %d", step)
		}

		if o.IsHair() {
			o.continuumStep(dt)
		}

		o.sol.SolvePositions(dt)

		if !o.IsHair() && len(colliders) > 0 {
			o.collisionSolveExtra(colliders, dt)
		}

		o.sol.ApplyResult()

		// snap pinned vertices onto the interpolated targets and keep
		// the previous-substep positions for collision sweeps
		for i := range o.Verts {
			if o.Verts[i].Pinned {
				o.sol.SetPosition(i, o.Verts[i].Xold.Lerp(o.Verts[i].Xconst, t))
			}
			o.Verts[i].Txold = o.sol.Position(i)
		}
	}

	for i := range o.Verts {
		o.Verts[i].X, o.Verts[i].V = o.sol.MotionState(i)
	}

	logger.Debug("cloth frame solved",
		zap.Int("substeps", substeps),
		zap.Float32("avg_iterations", o.result.AvgIterations()),
		zap.Float32("max_error", o.result.MaxError),
		zap.Int("non_converged", o.result.NonConverged),
	)
	return nil
}

// LastResult returns the solver statistics of the last Solve call.
func (o *Object) LastResult() Result {
	return o.result
}

// findContacts detects hair contacts at the committed positions and,
// swept one step ahead, at the predicted ones.
func (o *Object) findContacts(colliders []*collision.Collider, dt float32) []collision.Contact {
	points := make([]vmath.Vec3, len(o.Verts))
	vels := make([]vmath.Vec3, len(o.Verts))
	for i := range points {
		points[i] = o.sol.Position(i)
		vels[i] = o.sol.Velocity(i)
	}
	return collision.FindSweptContacts(points, vels, dt, colliders)
}

// setupConstraints pins vertices and turns this substep's contacts
// into velocity constraints. Only the first contact of each vertex is
// accepted; more would fight each other inside one linear solve.
func (o *Object) setupConstraints(contacts []collision.Contact, dt float32) {
	o.sol.ClearConstraints()
	for i := range o.Verts {
		o.Verts[i].impulse = vmath.Vec3{}
		o.Verts[i].impulseCount = 0
		if o.Verts[i].Pinned {
			o.sol.AddPinConstraint(i, vmath.Vec3{})
		}
	}

	for ci := range contacts {
		ct := &contacts[ci]
		v := ct.Vertex
		if o.Verts[v].Pinned || o.Verts[v].impulseCount > 0 {
			continue
		}
		impulse, ok := ct.ResponseImpulse(o.sol.Velocity(v), o.Params.Restitution, dt)
		if !ok {
			continue
		}
		o.sol.AddContactConstraint(v, ct.Normal, impulse)
		o.Verts[v].impulseCount++
	}
}

// calcForces assembles all forces for the substep ending at frame
// fraction t.
func (o *Object) calcForces(t float32, effectors []Effector) {
	p := &o.Params

	for i := range o.Verts {
		o.sol.ForceGravity(i, p.Gravity)
	}
	if p.Drag > 0 {
		o.sol.ForceDrag(p.Drag)
	}

	if len(effectors) > 0 {
		// effector fields are sampled once per vertex and cached;
		// face and edge wind read from the same samples
		winvec := make([]vmath.Vec3, len(o.Verts))
		for i := range winvec {
			x, v := o.sol.Position(i), o.sol.Velocity(i)
			for _, e := range effectors {
				winvec[i] = winvec[i].Add(e.Force(x, v))
			}
		}
		for _, f := range o.Faces {
			o.sol.ForceFaceWind(f.V[0], f.V[1], f.V[2], winvec)
		}
		if o.IsHair() {
			for i := range o.Springs {
				s := &o.Springs[i]
				if s.Type == SpringStructural {
					o.sol.ForceEdgeWind(s.I, s.J, p.HairRadius, p.HairRadius, winvec)
				}
			}
		}
	}

	if o.IsHair() {
		o.updateBendingTargets()
	}

	for i := range o.Springs {
		o.calcSpringForce(&o.Springs[i], t)
	}
}

func (o *Object) calcSpringForce(s *Spring, t float32) {
	p := &o.Params
	switch s.Type {
	case SpringStructural, SpringShear:
		k := p.structScaling(s, o.avgSpringLen)
		o.sol.ForceSpringLinear(s.I, s.J, s.RestLen, k, p.SpringDamping, p.NoCompress, 0)

	case SpringSewing:
		// sewing spans start out long; the clamp keeps the pull from
		// catapulting vertices through colliders
		k := p.structScaling(s, o.avgSpringLen)
		o.sol.ForceSpringLinear(s.I, s.J, s.RestLen, k, 0, p.NoCompress, p.MaxSewing)

	case SpringGoal:
		vert := &o.Verts[s.I]
		goalX := vert.Xold.Lerp(vert.Xconst, t)
		goalV := vert.Xconst.Sub(vert.Xold) // distance covered over dt==1
		k := vert.Goal * p.GoalSpring / (o.avgSpringLen + epsilon)
		o.sol.ForceSpringGoal(s.I, goalX, goalV, k, p.GoalFriction*0.01)

	case SpringBending:
		kb, cb := p.bendScaling(s, o.avgSpringLen)
		o.sol.ForceSpringBending(s.I, s.J, s.RestLen, kb, cb)

	case SpringBendingHair:
		kb, cb := p.bendScaling(s, o.avgSpringLen)
		o.sol.ForceSpringBendingAngular(s.I, s.J, s.K, s.Target, kb, cb)
	}
}

// buildContinuumGrid rasterizes the structural hair segments into a
// fresh voxel grid, sampling positions and velocities through pos and
// vel. The grid bounds wrap all vertices with two cells of padding.
func (o *Object) buildContinuumGrid(pos, vel func(int) vmath.Vec3) *volume.Grid {
	gmin, gmax := pos(0), pos(0)
	for i := 1; i < len(o.Verts); i++ {
		x := pos(i)
		gmin = gmin.Min(x)
		gmax = gmax.Max(x)
	}
	pad := 2 * o.Params.VoxelCellSize
	gmin = gmin.Sub(vmath.Vec3{X: pad, Y: pad, Z: pad})
	gmax = gmax.Add(vmath.Vec3{X: pad, Y: pad, Z: pad})

	grid := volume.NewGrid(o.Params.VoxelCellSize, gmin, gmax)
	for i := range o.Springs {
		s := &o.Springs[i]
		if s.Type != SpringStructural {
			continue
		}
		grid.AddSegment(pos(s.I), vel(s.I), pos(s.J), vel(s.J))
	}
	grid.Normalize()
	return grid
}

// GridSnapshot rasterizes the committed hair state into the continuum
// grid and returns a copy of its fields, for export alongside the
// frame's positions. Non-hair objects have no grid and return nil.
func (o *Object) GridSnapshot() (*volume.TextureData, error) {
	if !o.IsHair() {
		return nil, nil
	}
	if err := o.ensureSolver(); err != nil {
		return nil, err
	}
	grid := o.buildContinuumGrid(o.sol.Position, o.sol.Velocity)
	return grid.TextureData(), nil
}

// continuumStep smooths hair velocities through the voxel grid between
// the velocity and position solves. With both smoothing and density
// control disabled this is a no-op and no grid is built.
func (o *Object) continuumStep(dt float32) {
	p := &o.Params
	if p.VelocitySmooth <= 0 && p.DensityStrength <= 0 {
		return
	}

	grid := o.buildContinuumGrid(o.sol.Position, o.sol.NewVelocity)

	if p.DensityStrength > 0 {
		grid.SolveDivergence(dt, p.DensityTarget, p.DensityStrength)
	}

	smooth := p.VelocitySmooth
	if smooth > 1 {
		smooth = 1
	}
	for i := range o.Verts {
		if o.Verts[i].Pinned {
			continue
		}
		v := o.sol.NewVelocity(i)
		raw, corrected := grid.Velocity(o.sol.Position(i))

		flip := v.Add(corrected.Sub(raw))
		pic := corrected
		blend := flip.Scale(fluidFactor).Add(pic.Scale(1 - fluidFactor))
		o.sol.SetNewVelocity(i, v.Lerp(blend, smooth))
	}
}

// collisionSolveExtra is the post-position collision pass for cloth
// meshes: contacts found on the candidate positions feed impulses back
// into the uncommitted state before it is applied.
func (o *Object) collisionSolveExtra(colliders []*collision.Collider, dt float32) {
	points := make([]vmath.Vec3, len(o.Verts))
	for i := range points {
		points[i] = o.sol.NewPosition(i)
	}
	contacts := collision.FindPointContacts(points, colliders)
	if len(contacts) == 0 {
		return
	}

	for ci := range contacts {
		ct := &contacts[ci]
		v := ct.Vertex
		if o.Verts[v].Pinned {
			continue
		}
		impulse, ok := ct.ResponseImpulse(o.sol.NewVelocity(v), o.Params.Restitution, dt)
		if !ok {
			continue
		}
		o.Verts[v].impulse = o.Verts[v].impulse.Add(impulse)
		o.Verts[v].impulseCount++
	}

	for i := range o.Verts {
		vert := &o.Verts[i]
		if vert.impulseCount == 0 {
			continue
		}
		dv := vert.impulse.Scale(1 / float32(vert.impulseCount))
		nv := o.sol.NewVelocity(i).Add(dv)
		o.sol.SetNewVelocity(i, nv)
		o.sol.SetNewPosition(i, o.sol.NewPosition(i).MAdd(dv, dt))
	}
}
