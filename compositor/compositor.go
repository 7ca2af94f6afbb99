package compositor

import (
	"errors"
	"fmt"
	"image"
	"sync/atomic"

	"github.com/haruni24/MojiNoYukue/segmentation"

	"gocv.io/x/gocv"
)

// ErrFrameNotReady is returned when the source frame has no decoded
// dimensions yet. Callers skip the frame; it is not a user-facing error.
var ErrFrameNotReady = errors.New("frame not ready")

// Config controls how the masked foreground is placed over the
// background canvas.
type Config struct {
	// ForegroundScale shrinks the person layer relative to the canvas
	// (1.0 = full frame). Zero means full frame.
	ForegroundScale float64
	// BottomAnchor pins the scaled foreground to the bottom edge instead
	// of centering it vertically.
	BottomAnchor bool
}

// Compositor blends each camera frame over a background using the
// per-pixel segmentation mask. It owns its scratch Mats; they are
// reallocated only when the frame dimensions change and are never
// shared between compositor instances.
type Compositor struct {
	cfg Config

	frameW int
	frameH int

	base   gocv.Mat // background canvas at frame size
	scaled gocv.Mat // scratch for the scaled foreground
	bg     gocv.Mat // user background source (owned clone)
	hasBg  bool
	sized  bool

	framesBlended int64
	fallbacks     int64
}

// New returns a compositor with the given placement config.
func New(cfg Config) *Compositor {
	if cfg.ForegroundScale <= 0 || cfg.ForegroundScale > 1 {
		cfg.ForegroundScale = 1
	}
	return &Compositor{
		cfg:    cfg,
		base:   gocv.NewMat(),
		scaled: gocv.NewMat(),
	}
}

// SetBackground installs a user-supplied background image. The image is
// cloned; the caller keeps ownership of img.
func (c *Compositor) SetBackground(img gocv.Mat) error {
	if img.Empty() {
		return errors.New("background image is empty")
	}
	if c.hasBg {
		c.bg.Close()
	}
	c.bg = img.Clone()
	c.hasBg = true
	c.sized = false // force canvas rebuild on next frame
	return nil
}

// ClearBackground reverts to the procedural backdrop.
func (c *Compositor) ClearBackground() {
	if c.hasBg {
		c.bg.Close()
		c.hasBg = false
	}
	c.sized = false
}

// Composite renders one frame into dst: background first, then the
// foreground with per-pixel alpha taken from mask. A nil or empty mask
// selects the passthrough path (plain frame over background), so the
// canvas is never left blank. dst is resized only when the frame
// dimensions change.
func (c *Compositor) Composite(dst *gocv.Mat, frame gocv.Mat, mask *segmentation.Mask) error {
	w, h := frame.Cols(), frame.Rows()
	if w <= 0 || h <= 0 {
		return ErrFrameNotReady
	}
	if err := c.ensureSize(w, h); err != nil {
		return err
	}
	if dst.Cols() != w || dst.Rows() != h || dst.Type() != gocv.MatTypeCV8UC3 {
		if !dst.Empty() {
			dst.Close()
		}
		*dst = gocv.NewMatWithSize(h, w, gocv.MatTypeCV8UC3)
	}
	c.base.CopyTo(dst)

	// Foreground placement.
	sw := int(float64(w)*c.cfg.ForegroundScale + 0.5)
	sh := int(float64(h)*c.cfg.ForegroundScale + 0.5)
	if sw < 1 || sh < 1 {
		sw, sh = w, h
	}
	offX := (w - sw) / 2
	offY := (h - sh) / 2
	if c.cfg.BottomAnchor {
		offY = h - sh
	}

	fg := frame
	if sw != w || sh != h {
		if c.scaled.Empty() || c.scaled.Cols() != sw || c.scaled.Rows() != sh {
			if !c.scaled.Empty() {
				c.scaled.Close()
			}
			c.scaled = gocv.NewMatWithSize(sh, sw, gocv.MatTypeCV8UC3)
		}
		gocv.Resize(frame, &c.scaled, image.Pt(sw, sh), 0, 0, gocv.InterpolationLinear)
		fg = c.scaled
	}

	dstBytes, err := dst.DataPtrUint8()
	if err != nil {
		return fmt.Errorf("canvas buffer not accessible: %v", err)
	}
	fgBytes, err := fg.DataPtrUint8()
	if err != nil {
		// Cannot run the pixel loop; paste the frame whole so the
		// canvas still shows something.
		region := dst.Region(image.Rect(offX, offY, offX+sw, offY+sh))
		fg.CopyTo(&region)
		region.Close()
		atomic.AddInt64(&c.fallbacks, 1)
		return nil
	}

	if mask.Empty() {
		copyOpaque(dstBytes, w, h, fgBytes, sw, sh, offX, offY)
		atomic.AddInt64(&c.fallbacks, 1)
		return nil
	}

	blendMasked(dstBytes, w, h, fgBytes, sw, sh, offX, offY, func(x, y int) float32 {
		return mask.SampleNearest(x, y, sw, sh)
	})
	atomic.AddInt64(&c.framesBlended, 1)
	return nil
}

// ensureSize rebuilds the background canvas when frame dimensions
// change. The canvas is reused across frames otherwise.
func (c *Compositor) ensureSize(w, h int) error {
	if c.sized && w == c.frameW && h == c.frameH {
		return nil
	}
	c.base.Close()
	c.scaled.Close()
	c.scaled = gocv.NewMat()

	if c.hasBg {
		c.base = gocv.NewMat()
		gocv.Resize(c.bg, &c.base, image.Pt(w, h), 0, 0, gocv.InterpolationLinear)
	} else {
		base, err := gocv.NewMatFromBytes(h, w, gocv.MatTypeCV8UC3, proceduralBackground(w, h))
		if err != nil {
			return fmt.Errorf("could not build procedural background: %v", err)
		}
		c.base = base
	}
	c.frameW, c.frameH = w, h
	c.sized = true
	return nil
}

// Stats reports how many frames went through the masked blend and how
// many fell back to passthrough.
func (c *Compositor) Stats() (blended, fallbacks int64) {
	return atomic.LoadInt64(&c.framesBlended), atomic.LoadInt64(&c.fallbacks)
}

// Close releases every Mat owned by the compositor.
func (c *Compositor) Close() {
	c.base.Close()
	c.scaled.Close()
	if c.hasBg {
		c.bg.Close()
		c.hasBg = false
	}
	c.sized = false
}
