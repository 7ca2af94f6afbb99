// Package stage runs the overlay animation loop: one continuous ticker
// per stage that springs label slots, track markers and floating text
// toward targets derived from the latest tracking snapshot, and hands
// the resulting poses to a render adapter.
package stage

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/haruni24/MojiNoYukue/labels"
	"github.com/haruni24/MojiNoYukue/spring"
	"github.com/haruni24/MojiNoYukue/tracking"

	"github.com/google/uuid"
)

// Kind distinguishes the three entity families an adapter renders.
type Kind int

const (
	KindLabel Kind = iota
	KindMarker
	KindText
)

// Entity identifies one animated thing plus its display payload. The
// spring math never touches the payload; adapters decide how to draw.
type Entity struct {
	ID   string
	Kind Kind
	Text string
	Hue  float64
}

// RenderAdapter receives a pose per entity per tick and applies it to
// whatever surface it manages (canvas, DOM bridge, test recorder).
type RenderAdapter interface {
	Apply(e Entity, pose spring.Pose)
	Remove(id string)
}

// Config sizes the stage and its timing.
type Config struct {
	Width        int
	Height       int
	FPS          int
	TextLifetime time.Duration
	MarkerHue    float64
}

func (c *Config) applyDefaults() {
	if c.Width <= 0 {
		c.Width = 1280
	}
	if c.Height <= 0 {
		c.Height = 720
	}
	if c.FPS <= 0 {
		c.FPS = 60
	}
	if c.TextLifetime <= 0 {
		c.TextLifetime = 9 * time.Second
	}
}

type marker struct {
	x, y, size float64
	seen       bool
}

type floatingText struct {
	text string
	hue  float64
	yN   float64
	born float64 // stage clock seconds, set on first tick
	live bool
}

// Stage owns all spring state for one overlay. Snapshots and label
// slots are read each tick; nothing else mutates the spring state.
type Stage struct {
	cfg     Config
	store   *tracking.Store
	slots   *labels.Slots
	adapter RenderAdapter

	mu      sync.Mutex
	camera  int
	pending []pendingText

	slotStates [labels.SlotCount]*spring.State
	field      *spring.Field
	markers    map[string]*marker
	texts      map[string]*floatingText

	lastAssignCamera int
	lastAssignSeq    int64
	clock            float64
	lastTick         time.Time
	started          bool
}

type pendingText struct {
	id   string
	text string
	hue  float64
	yN   float64
}

// New builds a stage over the shared snapshot store and label slots.
func New(cfg Config, store *tracking.Store, slots *labels.Slots, adapter RenderAdapter) *Stage {
	cfg.applyDefaults()
	st := &Stage{
		cfg:              cfg,
		store:            store,
		slots:            slots,
		adapter:          adapter,
		field:            spring.NewField(cfg.FPS, 6.0, 1.0),
		markers:          make(map[string]*marker),
		texts:            make(map[string]*floatingText),
		lastAssignCamera: -1,
		lastAssignSeq:    -1,
	}
	cx := float64(cfg.Width) / 2
	cy := float64(cfg.Height) / 2
	for i := range st.slotStates {
		st.slotStates[i] = spring.NewState(cx, cy)
	}
	return st
}

// SelectCamera switches which camera's snapshot drives the stage.
func (st *Stage) SelectCamera(idx int) {
	st.mu.Lock()
	st.camera = idx
	st.mu.Unlock()
}

// Camera returns the selected camera index.
func (st *Stage) Camera() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.camera
}

// SpawnText queues a floating text for the next tick and returns its
// entity id. An empty id gets a fresh uuid.
func (st *Stage) SpawnText(id, text string, hue, yN float64) string {
	if text == "" {
		return ""
	}
	if id == "" {
		id = uuid.NewString()
	}
	st.mu.Lock()
	st.pending = append(st.pending, pendingText{id: id, text: text, hue: hue, yN: yN})
	st.mu.Unlock()
	return id
}

// Run ticks the stage at the configured rate until ctx is cancelled.
// The loop is torn down synchronously; no ticking continues after Run
// returns.
func (st *Stage) Run(ctx context.Context) {
	interval := time.Second / time.Duration(st.cfg.FPS)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			st.Tick(now)
		}
	}
}

// Tick advances every entity by one frame. Exposed so tests (and
// alternative loop drivers) can step the stage deterministically.
func (st *Stage) Tick(now time.Time) {
	var dt float64
	if st.started {
		dt = spring.ClampDt(now.Sub(st.lastTick).Seconds())
	}
	st.started = true
	st.lastTick = now
	st.clock += dt

	camera := st.Camera()
	snap, haveSnap := st.store.Latest(camera)
	frameW, frameH := 640.0, 480.0
	var visible []tracking.Track
	if haveSnap {
		visible = snap.Tracks
		if snap.Width > 0 && snap.Height > 0 {
			frameW, frameH = float64(snap.Width), float64(snap.Height)
		}
	}

	// Assignment reruns only when the camera or the snapshot changed;
	// re-running on identical input is a no-op either way.
	if haveSnap && (camera != st.lastAssignCamera || snap.Seq != st.lastAssignSeq) {
		st.slots.Assign(visible, now)
		st.lastAssignCamera = camera
		st.lastAssignSeq = snap.Seq
	}

	st.tickSlots(snap, frameW, frameH, dt)
	st.tickMarkers(visible, frameW, frameH)
	st.tickTexts()
}

func (st *Stage) tickSlots(snap *tracking.Snapshot, frameW, frameH, dt float64) {
	stageW, stageH := float64(st.cfg.Width), float64(st.cfg.Height)
	for i := 0; i < labels.SlotCount; i++ {
		slot := st.slots.Get(i)
		state := st.slotStates[i]

		// An emptied or untracked slot fades out in place; the spring
		// state persists so the label never pops.
		target := spring.Target{X: state.X, Y: state.Y, Scale: 0.6, Opacity: 0, TrackID: labels.NoTrack}
		if slot.Occupied() {
			if tr := snap.FindTrack(slot.AssignedTrackID); tr != nil {
				x, y := spring.MapNormalized(tr.CenterN[0], tr.CenterN[1], frameW, frameH, stageW, stageH)
				target = spring.Target{X: x, Y: y, Scale: 1, Opacity: 1, TrackID: slot.AssignedTrackID}
			} else {
				target = spring.Target{X: state.X, Y: state.Y, Scale: 0.8, Opacity: 0.35, TrackID: labels.NoTrack}
			}
		}

		pose := state.Integrate(target, st.clock, dt)
		st.adapter.Apply(Entity{
			ID:   fmt.Sprintf("label-%d", i),
			Kind: KindLabel,
			Text: slot.Text,
			Hue:  slot.Hue,
		}, pose)
	}
}

func (st *Stage) tickMarkers(visible []tracking.Track, frameW, frameH float64) {
	stageW, stageH := float64(st.cfg.Width), float64(st.cfg.Height)
	for _, tr := range visible {
		id := fmt.Sprintf("track-%d", tr.ID)
		m, ok := st.markers[id]
		if !ok {
			m = &marker{}
			st.markers[id] = m
		}
		m.x, m.y = spring.MapNormalized(tr.CenterN[0], tr.CenterN[1], frameW, frameH, stageW, stageH)
		scale, _, _ := spring.CoverFit(frameW, frameH, stageW, stageH)
		m.size = clampF((tr.BBoxN[3]-tr.BBoxN[1])*frameH*scale*0.12, 8, 48)
		m.seen = true
	}

	for id, m := range st.markers {
		opTarget := 0.0
		if m.seen {
			opTarget = 0.9
		}
		x, y, size, op := st.field.Step(id, m.x, m.y, m.size, opTarget)
		st.adapter.Apply(Entity{ID: id, Kind: KindMarker, Hue: st.cfg.MarkerHue}, spring.Pose{
			X: x, Y: y, Scale: size, Opacity: clampF(op, 0, 1),
		})
		if !m.seen && op < 0.01 {
			st.field.Remove(id)
			delete(st.markers, id)
			st.adapter.Remove(id)
			continue
		}
		m.seen = false
	}
}

func (st *Stage) tickTexts() {
	st.mu.Lock()
	queued := st.pending
	st.pending = nil
	st.mu.Unlock()
	for _, p := range queued {
		st.texts[p.id] = &floatingText{text: p.text, hue: p.hue, yN: p.yN}
	}

	stageW, stageH := float64(st.cfg.Width), float64(st.cfg.Height)
	lifetime := st.cfg.TextLifetime.Seconds()
	for id, ft := range st.texts {
		if !ft.live {
			ft.live = true
			ft.born = st.clock
		}
		progress := (st.clock - ft.born) / lifetime
		expired := progress >= 1

		// Texts drift right to left across their lifetime.
		xT := stageW * (0.92 - 0.84*progress)
		yT := clampF(ft.yN, 0.02, 0.98) * stageH
		opT := 1.0
		if expired {
			opT = 0
		}

		x, y, size, op := st.field.Step("text:"+id, xT, yT, stageH*0.055, opT)
		st.adapter.Apply(Entity{ID: id, Kind: KindText, Text: ft.text, Hue: ft.hue}, spring.Pose{
			X: x, Y: y, Scale: size, Opacity: clampF(op, 0, 1),
		})
		if expired && op < 0.01 {
			st.field.Remove("text:" + id)
			delete(st.texts, id)
			st.adapter.Remove(id)
		}
	}
}

func clampF(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
