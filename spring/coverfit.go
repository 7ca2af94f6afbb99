package spring

// CoverFit maps a source rectangle onto a destination rectangle so the
// source fills it completely while preserving aspect ratio, cropping
// the excess. Normalized source coordinates are projected into stage
// pixels via the returned scale and offsets:
//
//	stageX = srcX*scale + offsetX
func CoverFit(srcW, srcH, dstW, dstH float64) (scale, offsetX, offsetY float64) {
	if srcW <= 0 || srcH <= 0 || dstW <= 0 || dstH <= 0 {
		return 1, 0, 0
	}
	sx := dstW / srcW
	sy := dstH / srcH
	scale = sx
	if sy > sx {
		scale = sy
	}
	offsetX = (dstW - srcW*scale) / 2
	offsetY = (dstH - srcH*scale) / 2
	return scale, offsetX, offsetY
}

// MapNormalized projects a [0,1] source-space point into stage pixels
// with a cover fit of the source frame onto the stage.
func MapNormalized(nx, ny, srcW, srcH, dstW, dstH float64) (x, y float64) {
	scale, ox, oy := CoverFit(srcW, srcH, dstW, dstH)
	return nx*srcW*scale + ox, ny*srcH*scale + oy
}
