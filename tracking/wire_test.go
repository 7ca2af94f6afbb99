package tracking

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTracksMessage(t *testing.T) {
	raw := []byte(`{
		"type": "tracks",
		"ts": 171.25,
		"seq": 42,
		"cameraIndex": 1,
		"source": "0",
		"frame": 900,
		"size": {"w": 1280, "h": 720},
		"targetId": 7,
		"tracks": [
			{"id": 7, "conf": 0.91,
			 "bbox": [100, 50, 300, 400],
			 "center": [200, 225],
			 "bboxN": [0.078, 0.069, 0.234, 0.556],
			 "centerN": [0.156, 0.3125],
			 "areaN": 0.076},
			{"id": 9, "conf": 0.55,
			 "bbox": [600, 100, 700, 300],
			 "center": [650, 200],
			 "bboxN": [0.469, 0.139, 0.547, 0.417],
			 "centerN": [0.508, 0.278],
			 "areaN": 0.021}
		]
	}`)

	msg, ok := Parse(raw)
	require.True(t, ok)
	snap, ok := msg.(*Snapshot)
	require.True(t, ok)

	assert.Equal(t, 1, snap.CameraIndex)
	assert.Equal(t, int64(42), snap.Seq)
	assert.Equal(t, 1280, snap.Width)
	assert.Equal(t, 720, snap.Height)
	assert.Equal(t, 7, snap.TargetID)
	require.Len(t, snap.Tracks, 2)
	assert.Equal(t, 7, snap.Tracks[0].ID)
	assert.InDelta(t, 0.91, snap.Tracks[0].Conf, 1e-9)
	assert.InDelta(t, 0.156, snap.Tracks[0].CenterN[0], 1e-9)
	assert.InDelta(t, 0.021, snap.Tracks[1].AreaN, 1e-9)
	assert.InDelta(t, 600, snap.Tracks[1].BBox[0], 1e-9)
	assert.False(t, snap.ReceivedAt.IsZero())
}

func TestParseTracksWithoutTarget(t *testing.T) {
	msg, ok := Parse([]byte(`{"type":"tracks","cameraIndex":0,"tracks":[]}`))
	require.True(t, ok)
	snap := msg.(*Snapshot)
	assert.Equal(t, -1, snap.TargetID)
	assert.Empty(t, snap.Tracks)
}

func TestParseHello(t *testing.T) {
	raw := []byte(`{"type":"hello","version":1,"ts":99.5,
		"cameras":[{"index":0,"source":"0"},{"index":1,"source":"rtsp://cam"}]}`)

	msg, ok := Parse(raw)
	require.True(t, ok)
	hello, ok := msg.(*Hello)
	require.True(t, ok)
	assert.Equal(t, 1, hello.Version)
	require.Len(t, hello.Cameras, 2)
	assert.Equal(t, Camera{Index: 1, Source: "rtsp://cam"}, hello.Cameras[1])
}

func TestParseDropsMalformedSilently(t *testing.T) {
	for _, raw := range []string{
		"",
		"not json at all",
		`{"type": "tracks"`,
		`{"type":"unknown-kind"}`,
		`[1,2,3]`,
		`{"no": "type"}`,
	} {
		msg, ok := Parse([]byte(raw))
		assert.False(t, ok, "payload %q should be dropped", raw)
		assert.Nil(t, msg)
	}
}

func TestParseShortArraysLeaveZeroes(t *testing.T) {
	raw := []byte(`{"type":"tracks","tracks":[{"id":3,"bbox":[1,2],"centerN":[0.5]}]}`)
	msg, ok := Parse(raw)
	require.True(t, ok)
	snap := msg.(*Snapshot)
	require.Len(t, snap.Tracks, 1)
	assert.Equal(t, [4]float64{1, 2, 0, 0}, snap.Tracks[0].BBox)
	assert.Equal(t, [2]float64{0.5, 0}, snap.Tracks[0].CenterN)
}
