package tracking

import "sync"

// Store holds the latest snapshot per camera index plus the camera
// roster. Writes replace wholesale; readers always see the last fully
// written snapshot. Safe for one writer (the ingest goroutine) and any
// number of readers (the render and animation loops).
type Store struct {
	mu      sync.RWMutex
	snaps   map[int]*Snapshot
	cameras []Camera
	version int
}

// NewStore returns an empty snapshot store.
func NewStore() *Store {
	return &Store{snaps: make(map[int]*Snapshot)}
}

// PutSnapshot replaces the latest snapshot for the snapshot's camera.
func (s *Store) PutSnapshot(snap *Snapshot) {
	if snap == nil {
		return
	}
	s.mu.Lock()
	s.snaps[snap.CameraIndex] = snap
	s.mu.Unlock()
}

// SetRoster replaces the camera roster from a hello message.
func (s *Store) SetRoster(h *Hello) {
	if h == nil {
		return
	}
	cameras := make([]Camera, len(h.Cameras))
	copy(cameras, h.Cameras)
	s.mu.Lock()
	s.cameras = cameras
	s.version = h.Version
	s.mu.Unlock()
}

// Latest returns the most recent snapshot for the camera, if any.
func (s *Store) Latest(cameraIndex int) (*Snapshot, bool) {
	s.mu.RLock()
	snap, ok := s.snaps[cameraIndex]
	s.mu.RUnlock()
	return snap, ok
}

// Cameras returns a copy of the current roster.
func (s *Store) Cameras() []Camera {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Camera, len(s.cameras))
	copy(out, s.cameras)
	return out
}

// Version reports the protocol version announced by the tracker.
func (s *Store) Version() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}
