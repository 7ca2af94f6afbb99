package segmentation

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeClampsHostileValues(t *testing.T) {
	nan := float32(math.NaN())
	posInf := float32(math.Inf(1))
	negInf := float32(math.Inf(-1))
	m := &Mask{Width: 3, Height: 2, Values: []float32{nan, posInf, negInf, -0.5, 1.5, 0.3}}
	m.Sanitize()

	for i, v := range m.Values {
		assert.False(t, math.IsNaN(float64(v)), "index %d", i)
		assert.GreaterOrEqual(t, v, float32(0))
		assert.LessOrEqual(t, v, float32(1))
	}
	assert.Equal(t, float32(0.3), m.Values[5])
}

func TestSampleNearestResampling(t *testing.T) {
	// 2x2 mask sampled into a 4x4 frame: each mask cell covers a 2x2
	// block of frame pixels.
	m := &Mask{Width: 2, Height: 2, Values: []float32{0, 1, 0.5, 0.25}}

	assert.Equal(t, float32(0), m.SampleNearest(0, 0, 4, 4))
	assert.Equal(t, float32(0), m.SampleNearest(1, 1, 4, 4))
	assert.Equal(t, float32(1), m.SampleNearest(2, 0, 4, 4))
	assert.Equal(t, float32(0.5), m.SampleNearest(0, 3, 4, 4))
	assert.Equal(t, float32(0.25), m.SampleNearest(3, 3, 4, 4))
}

func TestSampleClampedNeverLeaksNaN(t *testing.T) {
	m := &Mask{Width: 1, Height: 1, Values: []float32{float32(math.NaN())}}
	assert.Equal(t, float32(0), m.SampleClamped(0, 0))
}

func TestEmptyMask(t *testing.T) {
	var nilMask *Mask
	assert.True(t, nilMask.Empty())
	assert.Equal(t, float32(0), nilMask.SampleNearest(0, 0, 10, 10))

	assert.True(t, (&Mask{Width: 0, Height: 4}).Empty())
	assert.True(t, (&Mask{Width: 4, Height: 4, Values: make([]float32, 3)}).Empty())
	assert.False(t, (&Mask{Width: 1, Height: 1, Values: []float32{1}}).Empty())
}
