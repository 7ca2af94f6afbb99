package tracking

import (
	"time"

	"github.com/tidwall/gjson"
)

// Wire message parsing for the tracker stream. The stream is hostile
// territory: anything malformed or of unknown type is dropped without
// an error, and the stream's own reconnection governs retry.

// Parse decodes one raw message from the tracker stream. It returns a
// *Hello or a *Snapshot, and false for anything that should be dropped.
func Parse(raw []byte) (interface{}, bool) {
	if !gjson.ValidBytes(raw) {
		return nil, false
	}
	v := gjson.ParseBytes(raw)
	switch v.Get("type").String() {
	case "hello":
		return parseHello(v), true
	case "tracks":
		return parseTracks(v), true
	default:
		return nil, false
	}
}

func parseHello(v gjson.Result) *Hello {
	h := &Hello{
		Version: int(v.Get("version").Int()),
		TS:      v.Get("ts").Float(),
	}
	v.Get("cameras").ForEach(func(_, cam gjson.Result) bool {
		h.Cameras = append(h.Cameras, Camera{
			Index:  int(cam.Get("index").Int()),
			Source: cam.Get("source").String(),
		})
		return true
	})
	return h
}

func parseTracks(v gjson.Result) *Snapshot {
	snap := &Snapshot{
		CameraIndex: int(v.Get("cameraIndex").Int()),
		Source:      v.Get("source").String(),
		Frame:       v.Get("frame").Int(),
		Width:       int(v.Get("size.w").Int()),
		Height:      int(v.Get("size.h").Int()),
		Seq:         v.Get("seq").Int(),
		TS:          v.Get("ts").Float(),
		TargetID:    -1,
		ReceivedAt:  time.Now(),
	}
	if target := v.Get("targetId"); target.Exists() {
		snap.TargetID = int(target.Int())
	}
	v.Get("tracks").ForEach(func(_, item gjson.Result) bool {
		t := Track{
			ID:    int(item.Get("id").Int()),
			Conf:  item.Get("conf").Float(),
			AreaN: item.Get("areaN").Float(),
		}
		readFloats(item.Get("bbox"), t.BBox[:])
		readFloats(item.Get("center"), t.Center[:])
		readFloats(item.Get("bboxN"), t.BBoxN[:])
		readFloats(item.Get("centerN"), t.CenterN[:])
		snap.Tracks = append(snap.Tracks, t)
		return true
	})
	return snap
}

// readFloats fills dst from a JSON array, leaving trailing entries zero
// when the array is short.
func readFloats(v gjson.Result, dst []float64) {
	i := 0
	v.ForEach(func(_, item gjson.Result) bool {
		if i >= len(dst) {
			return false
		}
		dst[i] = item.Float()
		i++
		return true
	})
}
