package segmentation

import "math"

// Mask is a per-pixel foreground confidence map produced by a
// segmentation model. Values are conceptually in [0,1] (1 = foreground)
// but model output may contain out-of-range or non-finite entries, so
// consumers must go through Sanitize or SampleClamped.
type Mask struct {
	Width  int
	Height int
	Values []float32
}

// Empty reports whether the mask carries no usable data.
func (m *Mask) Empty() bool {
	return m == nil || m.Width <= 0 || m.Height <= 0 || len(m.Values) < m.Width*m.Height
}

// At returns the raw value at (x, y) without clamping. Out-of-bounds
// coordinates are clamped to the nearest valid pixel.
func (m *Mask) At(x, y int) float32 {
	if m.Empty() {
		return 0
	}
	if x < 0 {
		x = 0
	} else if x >= m.Width {
		x = m.Width - 1
	}
	if y < 0 {
		y = 0
	} else if y >= m.Height {
		y = m.Height - 1
	}
	return m.Values[y*m.Width+x]
}

// SampleClamped returns the mask value at (x, y) forced into [0,1].
// Non-finite values are treated as fully background.
func (m *Mask) SampleClamped(x, y int) float32 {
	return clampValue(m.At(x, y))
}

// SampleNearest resamples the mask for a pixel in a frame of different
// resolution using nearest-neighbor mapping.
func (m *Mask) SampleNearest(frameX, frameY, frameW, frameH int) float32 {
	if m.Empty() || frameW <= 0 || frameH <= 0 {
		return 0
	}
	mx := frameX * m.Width / frameW
	my := frameY * m.Height / frameH
	return clampValue(m.At(mx, my))
}

// Sanitize rewrites every value into [0,1] in place. NaN and infinities
// become 0 so they can never leak into pixel output.
func (m *Mask) Sanitize() {
	if m == nil {
		return
	}
	for i, v := range m.Values {
		m.Values[i] = clampValue(v)
	}
}

func clampValue(v float32) float32 {
	f := float64(v)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
