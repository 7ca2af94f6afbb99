package compositor

// Pixel-level compositing helpers. These operate on raw BGR byte
// buffers so the math stays independent of the OpenCV bindings; the
// Compositor wraps them with gocv Mats.

// blendMasked composites a BGR foreground buffer over a BGR destination
// buffer at (offX, offY). alphaAt supplies per-foreground-pixel alpha in
// [0,1]; foreground pixels outside the destination are skipped.
func blendMasked(dst []uint8, dstW, dstH int, fg []uint8, fgW, fgH, offX, offY int, alphaAt func(x, y int) float32) {
	if dstW <= 0 || dstH <= 0 || fgW <= 0 || fgH <= 0 {
		return
	}
	if len(dst) < dstW*dstH*3 || len(fg) < fgW*fgH*3 {
		return
	}
	for y := 0; y < fgH; y++ {
		dy := y + offY
		if dy < 0 || dy >= dstH {
			continue
		}
		for x := 0; x < fgW; x++ {
			dx := x + offX
			if dx < 0 || dx >= dstW {
				continue
			}
			a := alphaAt(x, y)
			if a <= 0 {
				continue
			}
			if a > 1 {
				a = 1
			}
			fi := (y*fgW + x) * 3
			di := (dy*dstW + dx) * 3
			if a >= 1 {
				dst[di] = fg[fi]
				dst[di+1] = fg[fi+1]
				dst[di+2] = fg[fi+2]
				continue
			}
			inv := 1 - a
			dst[di] = uint8(float32(fg[fi])*a + float32(dst[di])*inv)
			dst[di+1] = uint8(float32(fg[fi+1])*a + float32(dst[di+1])*inv)
			dst[di+2] = uint8(float32(fg[fi+2])*a + float32(dst[di+2])*inv)
		}
	}
}

// copyOpaque writes a BGR foreground buffer into the destination with no
// masking. Used by the passthrough fallback path.
func copyOpaque(dst []uint8, dstW, dstH int, fg []uint8, fgW, fgH, offX, offY int) {
	blendMasked(dst, dstW, dstH, fg, fgW, fgH, offX, offY, func(int, int) float32 { return 1 })
}
