package compositor

import "math"

// proceduralBackground generates the fallback backdrop used when no
// background image has been uploaded: a dark stage with a soft radial
// glow slightly above center, matching the installation's projection
// look. Output is a BGR buffer of w*h*3 bytes, deterministic per size.
func proceduralBackground(w, h int) []uint8 {
	buf := make([]uint8, w*h*3)
	if w <= 0 || h <= 0 {
		return buf
	}

	cx := float64(w) / 2
	cy := float64(h) * 0.42 // glow sits above center
	maxDist := math.Hypot(cx, float64(h)-cy)

	// Deep blue-violet base with a warm glow core.
	baseB, baseG, baseR := 38.0, 18.0, 26.0
	glowB, glowG, glowR := 96.0, 72.0, 118.0

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			d := math.Hypot(float64(x)-cx, float64(y)-cy) / maxDist
			// Quadratic falloff, vignette toward the corners.
			glow := 1 - d*d
			if glow < 0 {
				glow = 0
			}
			vignette := 1 - 0.55*d*d

			i := (y*w + x) * 3
			buf[i] = uint8((baseB + glowB*glow) * vignette)
			buf[i+1] = uint8((baseG + glowG*glow) * vignette)
			buf[i+2] = uint8((baseR + glowR*glow) * vignette)
		}
	}
	return buf
}
