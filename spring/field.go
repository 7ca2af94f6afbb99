package spring

import "github.com/charmbracelet/harmonica"

// Field is the lighter spring system used for track markers and
// floating text: position, size and opacity only, fixed timestep, no
// pulse. Entities are keyed by id and created on first step.
type Field struct {
	spring   harmonica.Spring
	entities map[string]*fieldState
}

type fieldState struct {
	x, y, size, opacity     float64
	vx, vy, vsize, vopacity float64
}

// NewField builds a field ticking at the given display rate. frequency
// and damping follow harmonica's angular-frequency/damping-ratio model;
// a damping ratio of 1 is the critically-damped follow used on stage.
func NewField(fps int, frequency, damping float64) *Field {
	return &Field{
		spring:   harmonica.NewSpring(harmonica.FPS(fps), frequency, damping),
		entities: make(map[string]*fieldState),
	}
}

// Step advances one entity toward its targets and returns its pose
// channels. A new id starts at the target position, invisible, so it
// fades in instead of flying across the stage.
func (f *Field) Step(id string, targetX, targetY, targetSize, targetOpacity float64) (x, y, size, opacity float64) {
	st, ok := f.entities[id]
	if !ok {
		st = &fieldState{x: targetX, y: targetY, size: targetSize * 0.6}
		f.entities[id] = st
	}
	st.x, st.vx = f.spring.Update(st.x, st.vx, targetX)
	st.y, st.vy = f.spring.Update(st.y, st.vy, targetY)
	st.size, st.vsize = f.spring.Update(st.size, st.vsize, targetSize)
	st.opacity, st.vopacity = f.spring.Update(st.opacity, st.vopacity, targetOpacity)
	return st.x, st.y, st.size, st.opacity
}

// Remove forgets an entity's spring state.
func (f *Field) Remove(id string) {
	delete(f.entities, id)
}

// Has reports whether the field is tracking the id.
func (f *Field) Has(id string) bool {
	_, ok := f.entities[id]
	return ok
}

// Len returns the number of tracked entities.
func (f *Field) Len() int { return len(f.entities) }
