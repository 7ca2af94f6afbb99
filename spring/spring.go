// Package spring implements the damped-spring integrators that drive
// every on-screen entity (label slots, track markers, floating text)
// smoothly toward noisy, intermittent targets.
package spring

import "math"

// MaxDt caps the integration step. Display callbacks can arrive after
// long gaps (backgrounded window, stalled pipeline); a huge dt would
// catapult the spring instead of easing it.
const MaxDt = 0.05

// PulseDuration is how long the reassignment pulse modulates scale.
const PulseDuration = 1.2

// Spring holds the stiffness/damping pair for one scalar channel.
type Spring struct {
	Stiffness float64
	Damping   float64
}

// Channel presets. Position uses the heavier spring; scale and opacity
// follow with slightly softer constants so they settle a touch earlier.
var (
	Position = Spring{Stiffness: 200, Damping: 28}
	Scale    = Spring{Stiffness: 176, Damping: 24}
	Opacity  = Spring{Stiffness: 176, Damping: 24}
)

// Step advances one scalar channel by dt seconds with explicit Euler:
// acceleration pulls toward the target, damping bleeds velocity.
func (sp Spring) Step(pos, vel, target, dt float64) (float64, float64) {
	if dt <= 0 {
		return pos, vel
	}
	if dt > MaxDt {
		dt = MaxDt
	}
	accel := (target-pos)*sp.Stiffness - vel*sp.Damping
	vel += accel * dt
	pos += vel * dt
	return pos, vel
}

// ClampDt converts a raw frame delta in seconds into a safe step.
func ClampDt(dt float64) float64 {
	if dt < 0 {
		return 0
	}
	if dt > MaxDt {
		return MaxDt
	}
	return dt
}

// PulseScale returns the multiplicative scale boost for a reassignment
// pulse of the given age in seconds: a decaying oscillation layered on
// top of the spring-driven scale, the visual "snap into place" cue.
func PulseScale(age float64) float64 {
	if age < 0 || age > PulseDuration {
		return 1
	}
	return 1 + math.Exp(-6.5*age)*math.Sin(14*age)*0.12
}

// RotationDeg derives a lean angle from horizontal velocity, clamped to
// +-18 degrees.
func RotationDeg(vx float64) float64 {
	return clamp(vx*0.06, -18, 18)
}

// Blur derives a motion-blur radius in pixels from speed magnitude,
// clamped to 7.
func Blur(vx, vy float64) float64 {
	return clamp(math.Hypot(vx, vy)*0.02, 0, 7)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
