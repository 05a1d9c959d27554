package collision

import (
	"github.com/chewxy/math32"

	vmath "github.com/Faultbox/weft/pkg/math"
)

const almostZero = 1e-8

// ResponseImpulse computes the velocity change that resolves the
// contact for a vertex moving at v, following the response model of
// Choe, Choi and Ko, "Simulating Complex Hair with Robust Collision
// Handling" (SCA 2005). It returns false for receding contacts, which
// need no correction. dt converts the penetration depth into the
// repulsion velocity. Future contacts are still approaching the
// surface: their impulse cancels the relative approach without
// restitution or repulsion, which only apply to present overlap.
func (ct *Contact) ResponseImpulse(v vmath.Vec3, restitution, dt float32) (vmath.Vec3, bool) {
	marginDistance := ct.Distance - ct.epsilon
	if marginDistance > 0 {
		return vmath.Vec3{}, false
	}

	vRel := v.Sub(ct.colliderVel)
	magRelVel := vRel.Dot(ct.Normal)

	// only moving toward the collider
	if magRelVel >= -almostZero {
		return vmath.Vec3{}, false
	}

	if ct.Future {
		return ct.Normal.Scale(-magRelVel), true
	}

	bounce := -magRelVel * restitution

	// base repulsion velocity pushing out of the margin; the clamp
	// keeps shallow contacts from overshooting
	repulse := -marginDistance / dt
	repulse = math32.Max(0, math32.Min(repulse, 4*bounce))

	var magnitude float32
	if marginDistance < -ct.epsilon {
		magnitude = math32.Max(repulse, bounce) - magRelVel
	} else {
		magnitude = repulse - magRelVel
	}
	return ct.Normal.Scale(magnitude), true
}
