package tracking

import (
	"time"
)

// Track is one tracked person for the current frame. IDs are stable
// only while the person stays continuously visible; the upstream
// tracker may reuse or change ids across disappearance and re-entry,
// so nothing here assumes long-term identity.
type Track struct {
	ID      int
	Conf    float64
	BBox    [4]float64 // pixel coordinates x0,y0,x1,y1
	Center  [2]float64 // pixel coordinates
	BBoxN   [4]float64 // normalized to [0,1]
	CenterN [2]float64 // normalized to [0,1]
	AreaN   float64    // normalized bbox area
}

// Snapshot is the latest per-camera track set. Each new message
// replaces the previous snapshot wholesale; no history is kept.
type Snapshot struct {
	CameraIndex int
	Source      string
	Frame       int64
	Width       int
	Height      int
	Seq         int64
	TS          float64
	TargetID    int // tracker-side target hint, -1 when absent
	Tracks      []Track
	ReceivedAt  time.Time
}

// Camera is one entry of the tracker's camera roster.
type Camera struct {
	Index  int
	Source string
}

// Hello is the roster message sent by the tracker on connect.
type Hello struct {
	Version int
	Cameras []Camera
	TS      float64
}

// FindTrack returns the track with the given id, or nil.
func (s *Snapshot) FindTrack(id int) *Track {
	if s == nil {
		return nil
	}
	for i := range s.Tracks {
		if s.Tracks[i].ID == id {
			return &s.Tracks[i]
		}
	}
	return nil
}
