// Package labels maps the two user-entered text labels onto currently
// visible tracked persons, keeping assignments sticky across frames.
package labels

import (
	"sort"
	"sync"
	"time"

	"github.com/haruni24/MojiNoYukue/tracking"
)

// SlotCount is the fixed label capacity of the installation.
const SlotCount = 2

// NoTrack marks an unassigned slot.
const NoTrack = -1

// Slot is one text label and its current track assignment. A slot with
// empty text never holds an assignment.
type Slot struct {
	Text            string
	AssignedTrackID int
	Hue             float64
	UpdatedAt       time.Time
	AssignedAt      time.Time
}

// Occupied reports whether the slot carries user text.
func (s *Slot) Occupied() bool { return s.Text != "" }

// Change records one assignment transition for a slot, used to trigger
// the pulse animation.
type Change struct {
	SlotIndex int
	From      int
	To        int
}

// Slots is the fixed-capacity ordered slot array. Submissions arrive on
// the input goroutine while the animation loop reads and reassigns, so
// every method takes the lock.
type Slots struct {
	mu    sync.Mutex
	slots [SlotCount]Slot
}

// NewSlots returns empty slots.
func NewSlots() *Slots {
	s := &Slots{}
	for i := range s.slots {
		s.slots[i].AssignedTrackID = NoTrack
	}
	return s
}

// Get returns a copy of slot i.
func (s *Slots) Get(i int) Slot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.slots[i]
}

// All returns a copy of every slot in order.
func (s *Slots) All() [SlotCount]Slot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.slots
}

// Submit stores user text in a free slot, or evicts the slot whose text
// was least recently updated when both are occupied. The written slot's
// assignment is cleared; assignment is recomputed on the next Assign.
func (s *Slots) Submit(text string, hue float64, now time.Time) int {
	if text == "" {
		return -1
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := -1
	for i := range s.slots {
		if !s.slots[i].Occupied() {
			idx = i
			break
		}
	}
	if idx < 0 {
		idx = 0
		for i := 1; i < SlotCount; i++ {
			if s.slots[i].UpdatedAt.Before(s.slots[idx].UpdatedAt) {
				idx = i
			}
		}
	}
	s.slots[idx] = Slot{
		Text:            text,
		AssignedTrackID: NoTrack,
		Hue:             hue,
		UpdatedAt:       now,
	}
	return idx
}

// Clear empties slot i.
func (s *Slots) Clear(i int) {
	if i < 0 || i >= SlotCount {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.slots[i] = Slot{AssignedTrackID: NoTrack}
}

// Assign recomputes slot-to-track assignments against the currently
// visible track set. It runs whenever the selected camera changes or a
// new snapshot arrives, and is idempotent for an unchanged track set.
// Every actual id transition (including to or from unassigned) is
// reported so the animator can pulse.
func (s *Slots) Assign(visible []tracking.Track, now time.Time) []Change {
	s.mu.Lock()
	defer s.mu.Unlock()
	anyOccupied := false
	for i := range s.slots {
		if s.slots[i].Occupied() {
			anyOccupied = true
		}
	}
	if !anyOccupied {
		return nil
	}

	before := s.slots

	visibleIDs := make(map[int]bool, len(visible))
	for _, t := range visible {
		visibleIDs[t.ID] = true
	}

	// Drop assignments whose track left the frame.
	for i := range s.slots {
		sl := &s.slots[i]
		if sl.AssignedTrackID != NoTrack && !visibleIDs[sl.AssignedTrackID] {
			sl.AssignedTrackID = NoTrack
		}
	}

	if len(visible) == 1 {
		// One person on camera: they get the newest label. Ambiguity
		// resolves in favor of the latest user input.
		winner := -1
		for i := range s.slots {
			if !s.slots[i].Occupied() {
				continue
			}
			if winner < 0 || s.slots[i].UpdatedAt.After(s.slots[winner].UpdatedAt) {
				winner = i
			}
		}
		for i := range s.slots {
			if !s.slots[i].Occupied() {
				continue
			}
			if i == winner {
				s.slots[i].AssignedTrackID = visible[0].ID
			} else {
				s.slots[i].AssignedTrackID = NoTrack
			}
		}
	} else {
		used := make(map[int]bool, SlotCount)
		for i := range s.slots {
			if id := s.slots[i].AssignedTrackID; id != NoTrack {
				used[id] = true
			}
		}
		// Largest (closest) unused tracks first.
		candidates := make([]tracking.Track, 0, len(visible))
		for _, t := range visible {
			if !used[t.ID] {
				candidates = append(candidates, t)
			}
		}
		sort.SliceStable(candidates, func(a, b int) bool {
			return candidates[a].AreaN > candidates[b].AreaN
		})
		next := 0
		for i := range s.slots {
			if next >= len(candidates) {
				break
			}
			if !s.slots[i].Occupied() || s.slots[i].AssignedTrackID != NoTrack {
				continue
			}
			s.slots[i].AssignedTrackID = candidates[next].ID
			next++
		}
	}

	var changes []Change
	for i := range s.slots {
		if s.slots[i].AssignedTrackID != before[i].AssignedTrackID {
			s.slots[i].AssignedAt = now
			changes = append(changes, Change{
				SlotIndex: i,
				From:      before[i].AssignedTrackID,
				To:        s.slots[i].AssignedTrackID,
			})
		}
	}
	return changes
}
