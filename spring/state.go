package spring

// State is the live spring state for one animated entity. It is owned
// exclusively by the animator; created lazily on the first tick an
// entity id appears and kept until the entity is truly gone (fading is
// done through the opacity target, not by deleting state).
type State struct {
	X, Y   float64
	VX, VY float64

	Scale  float64
	VScale float64

	Opacity  float64
	VOpacity float64

	// TargetTrackID is the track this entity last followed; a change
	// triggers the pulse.
	TargetTrackID int
	// PulseStart is the animation-clock time (seconds) the current
	// pulse began, negative when no pulse has fired.
	PulseStart float64
}

// NewState seeds a state at the given position, starting invisible and
// at rest so the entity fades and springs in rather than popping.
func NewState(x, y float64) *State {
	return &State{
		X:             x,
		Y:             y,
		Scale:         0.6,
		TargetTrackID: -1,
		PulseStart:    -1,
	}
}

// Pose is the per-tick output handed to a render adapter: everything a
// DOM, canvas, or retained-mode UI needs to place the entity.
type Pose struct {
	X, Y        float64
	Scale       float64
	Opacity     float64
	RotationDeg float64
	Blur        float64
}

// Target is the desired pose for one tick, computed from domain state.
type Target struct {
	X, Y    float64
	Scale   float64
	Opacity float64
	// TrackID ties the target to a track so reassignment can pulse;
	// use -1 for entities that do not follow tracks.
	TrackID int
}

// Integrate advances the state toward t and returns the resulting pose.
// now is the animation clock in seconds; dt has already been clamped.
func (s *State) Integrate(t Target, now, dt float64) Pose {
	// Any assignment change pulses, losing the target included; the
	// transition itself is the visual event.
	if t.TrackID != s.TargetTrackID {
		s.PulseStart = now
		s.TargetTrackID = t.TrackID
	}

	s.X, s.VX = Position.Step(s.X, s.VX, t.X, dt)
	s.Y, s.VY = Position.Step(s.Y, s.VY, t.Y, dt)
	s.Scale, s.VScale = Scale.Step(s.Scale, s.VScale, t.Scale, dt)
	s.Opacity, s.VOpacity = Opacity.Step(s.Opacity, s.VOpacity, t.Opacity, dt)

	scale := s.Scale
	if s.PulseStart >= 0 {
		age := now - s.PulseStart
		if age > PulseDuration {
			s.PulseStart = -1
		} else {
			scale *= PulseScale(age)
		}
	}

	return Pose{
		X:           s.X,
		Y:           s.Y,
		Scale:       scale,
		Opacity:     clamp(s.Opacity, 0, 1),
		RotationDeg: RotationDeg(s.VX),
		Blur:        Blur(s.VX, s.VY),
	}
}
