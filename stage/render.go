package stage

import (
	"image"
	"image/color"
	"math"
	"sort"
	"sync"

	"github.com/haruni24/MojiNoYukue/spring"

	"gocv.io/x/gocv"
)

// NullAdapter records the last pose per entity. Used by tests and as a
// sink for headless runs.
type NullAdapter struct {
	mu    sync.Mutex
	poses map[string]spring.Pose
	ents  map[string]Entity
}

// NewNullAdapter returns an empty recorder.
func NewNullAdapter() *NullAdapter {
	return &NullAdapter{
		poses: make(map[string]spring.Pose),
		ents:  make(map[string]Entity),
	}
}

// Apply implements RenderAdapter.
func (a *NullAdapter) Apply(e Entity, pose spring.Pose) {
	a.mu.Lock()
	a.poses[e.ID] = pose
	a.ents[e.ID] = e
	a.mu.Unlock()
}

// Remove implements RenderAdapter.
func (a *NullAdapter) Remove(id string) {
	a.mu.Lock()
	delete(a.poses, id)
	delete(a.ents, id)
	a.mu.Unlock()
}

// Pose returns the last applied pose for id.
func (a *NullAdapter) Pose(id string) (spring.Pose, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	p, ok := a.poses[id]
	return p, ok
}

// Entity returns the last applied entity payload for id.
func (a *NullAdapter) Entity(id string) (Entity, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	e, ok := a.ents[id]
	return e, ok
}

// Count returns how many entities currently have poses.
func (a *NullAdapter) Count() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.poses)
}

// CanvasAdapter retains the latest poses and stamps them onto the
// composited frame each render pass. The animation loop writes poses at
// its own rate; the video loop calls Draw at the frame rate, and the two
// never block each other.
type CanvasAdapter struct {
	mu    sync.Mutex
	poses map[string]spring.Pose
	ents  map[string]Entity
}

// NewCanvasAdapter returns an empty canvas adapter.
func NewCanvasAdapter() *CanvasAdapter {
	return &CanvasAdapter{
		poses: make(map[string]spring.Pose),
		ents:  make(map[string]Entity),
	}
}

// Apply implements RenderAdapter.
func (a *CanvasAdapter) Apply(e Entity, pose spring.Pose) {
	a.mu.Lock()
	a.poses[e.ID] = pose
	a.ents[e.ID] = e
	a.mu.Unlock()
}

// Remove implements RenderAdapter.
func (a *CanvasAdapter) Remove(id string) {
	a.mu.Lock()
	delete(a.poses, id)
	delete(a.ents, id)
	a.mu.Unlock()
}

// Draw stamps every retained pose onto the canvas: markers underneath,
// floating text above them, labels on top. Opacity is approximated by
// dimming the color toward black; rotation and blur are not expressible
// with Hershey text and are dropped by this adapter.
func (a *CanvasAdapter) Draw(canvas *gocv.Mat) {
	a.mu.Lock()
	ids := make([]string, 0, len(a.poses))
	for id := range a.poses {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		ki, kj := a.ents[ids[i]].Kind, a.ents[ids[j]].Kind
		if ki != kj {
			return drawOrder(ki) < drawOrder(kj)
		}
		return ids[i] < ids[j]
	})
	type drawItem struct {
		e Entity
		p spring.Pose
	}
	items := make([]drawItem, 0, len(ids))
	for _, id := range ids {
		items = append(items, drawItem{e: a.ents[id], p: a.poses[id]})
	}
	a.mu.Unlock()

	for _, it := range items {
		if it.p.Opacity <= 0.02 {
			continue
		}
		c := hueColor(it.e.Hue, it.p.Opacity)
		pt := image.Pt(int(it.p.X), int(it.p.Y))
		switch it.e.Kind {
		case KindMarker:
			radius := int(it.p.Scale)
			if radius < 2 {
				radius = 2
			}
			gocv.Circle(canvas, pt, radius, c, 2)
		case KindText:
			fontScale := it.p.Scale / 28
			if fontScale <= 0 {
				continue
			}
			gocv.PutText(canvas, it.e.Text, pt, gocv.FontHersheySimplex, fontScale, c, 2)
		case KindLabel:
			fontScale := 1.1 * it.p.Scale
			size := gocv.GetTextSize(it.e.Text, gocv.FontHersheySimplex, fontScale, 2)
			org := image.Pt(pt.X-size.X/2, pt.Y)
			gocv.PutText(canvas, it.e.Text, org, gocv.FontHersheySimplex, fontScale, c, 2)
		}
	}
}

func drawOrder(k Kind) int {
	switch k {
	case KindMarker:
		return 0
	case KindText:
		return 1
	default:
		return 2
	}
}

// hueColor converts a hue in [0,1] to a display color, dimmed by
// opacity. Saturation is kept moderate so text stays readable over both
// bright and dark backgrounds.
func hueColor(hue, opacity float64) color.RGBA {
	r, g, b := hsvToRGB(math.Mod(math.Max(hue, 0), 1), 0.55, 1)
	o := clampF(opacity, 0, 1)
	return color.RGBA{
		R: uint8(r * 255 * o),
		G: uint8(g * 255 * o),
		B: uint8(b * 255 * o),
		A: 255,
	}
}

func hsvToRGB(h, s, v float64) (r, g, b float64) {
	i := int(h * 6)
	f := h*6 - float64(i)
	p := v * (1 - s)
	q := v * (1 - f*s)
	t := v * (1 - (1-f)*s)
	switch i % 6 {
	case 0:
		return v, t, p
	case 1:
		return q, v, p
	case 2:
		return p, v, t
	case 3:
		return p, q, v
	case 4:
		return t, p, v
	default:
		return v, p, q
	}
}
