package labels

import (
	"testing"
	"time"

	"github.com/haruni24/MojiNoYukue/tracking"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Unix(1700000000, 0)

func at(ms int64) time.Time { return base.Add(time.Duration(ms) * time.Millisecond) }

func TestSubmitFillsThenEvictsOldest(t *testing.T) {
	s := NewSlots()

	assert.Equal(t, 0, s.Submit("ことば", 0.1, at(100)))
	assert.Equal(t, 1, s.Submit("ゆくえ", 0.7, at(200)))

	// Both occupied: the least recently updated slot is overwritten.
	assert.Equal(t, 0, s.Submit("みらい", 0.3, at(300)))
	assert.Equal(t, "みらい", s.Get(0).Text)
	assert.Equal(t, "ゆくえ", s.Get(1).Text)

	// Empty submissions are rejected.
	assert.Equal(t, -1, s.Submit("", 0.5, at(400)))
}

func TestSubmitClearsPreviousAssignment(t *testing.T) {
	s := NewSlots()
	s.Submit("a", 0, at(100))
	s.Assign([]tracking.Track{{ID: 3, AreaN: 0.2}}, at(150))
	require.Equal(t, 3, s.Get(0).AssignedTrackID)

	s.Submit("b", 0, at(200)) // lands in slot 1, slot 0 untouched
	assert.Equal(t, 3, s.Get(0).AssignedTrackID)

	s.Submit("c", 0, at(300)) // evicts slot 0, dropping its assignment
	assert.Equal(t, NoTrack, s.Get(0).AssignedTrackID)
}

func TestAssignNoOpWithoutText(t *testing.T) {
	s := NewSlots()
	changes := s.Assign([]tracking.Track{{ID: 1}}, at(100))
	assert.Empty(t, changes)
	assert.Equal(t, NoTrack, s.Get(0).AssignedTrackID)
	assert.Equal(t, NoTrack, s.Get(1).AssignedTrackID)
}

func TestAssignSingleVisibleTrackPrefersNewestLabel(t *testing.T) {
	s := NewSlots()
	s.Submit("older", 0, at(100))
	s.Submit("newer", 0, at(200))

	// Give the older slot an existing assignment to prove it is cleared.
	s.Assign([]tracking.Track{{ID: 5, AreaN: 0.9}, {ID: 6, AreaN: 0.1}}, at(250))
	require.Equal(t, 5, s.Get(0).AssignedTrackID)
	require.Equal(t, 6, s.Get(1).AssignedTrackID)

	changes := s.Assign([]tracking.Track{{ID: 5, AreaN: 0.9}}, at(300))

	assert.Equal(t, NoTrack, s.Get(0).AssignedTrackID)
	assert.Equal(t, 5, s.Get(1).AssignedTrackID)
	assert.Len(t, changes, 2)
}

func TestAssignLargestAreaFirst(t *testing.T) {
	s := NewSlots()
	s.Submit("only", 0, at(100))

	s.Assign([]tracking.Track{{ID: 7, AreaN: 0.3}, {ID: 9, AreaN: 0.6}}, at(200))
	assert.Equal(t, 9, s.Get(0).AssignedTrackID)
}

func TestAssignVanishedTrackIsCleared(t *testing.T) {
	s := NewSlots()
	s.Submit("a", 0, at(100))

	s.Assign([]tracking.Track{{ID: 1, AreaN: 0.5}, {ID: 2, AreaN: 0.4}}, at(200))
	require.Equal(t, 1, s.Get(0).AssignedTrackID)

	changes := s.Assign([]tracking.Track{{ID: 2, AreaN: 0.4}, {ID: 3, AreaN: 0.1}}, at(300))
	assert.Equal(t, 2, s.Get(0).AssignedTrackID)
	require.Len(t, changes, 1)
	assert.Equal(t, Change{SlotIndex: 0, From: 1, To: 2}, changes[0])
}

func TestAssignIdempotentForUnchangedTrackSet(t *testing.T) {
	s := NewSlots()
	s.Submit("a", 0.2, at(100))
	s.Submit("b", 0.8, at(200))

	visible := []tracking.Track{{ID: 1, AreaN: 0.5}, {ID: 2, AreaN: 0.3}, {ID: 3, AreaN: 0.1}}
	s.Assign(visible, at(300))
	first := s.All()

	changes := s.Assign(visible, at(400))
	assert.Empty(t, changes, "re-running assignment must not oscillate")
	assert.Equal(t, first, s.All())
}

func TestAssignReportsNullTransitions(t *testing.T) {
	s := NewSlots()
	s.Submit("a", 0, at(100))

	changes := s.Assign([]tracking.Track{{ID: 4, AreaN: 0.2}, {ID: 5, AreaN: 0.1}}, at(200))
	require.Len(t, changes, 1)
	assert.Equal(t, NoTrack, changes[0].From)
	assert.Equal(t, 4, changes[0].To)

	changes = s.Assign(nil, at(300))
	require.Len(t, changes, 1)
	assert.Equal(t, 4, changes[0].From)
	assert.Equal(t, NoTrack, changes[0].To)
}

func TestConcurrentSubmitAndAssign(t *testing.T) {
	s := NewSlots()
	visible := []tracking.Track{{ID: 1, AreaN: 0.5}, {ID: 2, AreaN: 0.3}}

	// Submissions arrive on the stdin goroutine while the animation
	// loop reassigns and reads every tick; the race detector verifies
	// the locking holds up.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 500; i++ {
			s.Submit("word", 0.5, at(int64(i)))
		}
	}()
	for i := 0; i < 500; i++ {
		s.Assign(visible, at(int64(i)))
		for j := 0; j < SlotCount; j++ {
			slot := s.Get(j)
			if slot.Occupied() {
				assert.Equal(t, "word", slot.Text)
			}
		}
		_ = s.All()
	}
	<-done
}

func TestEmptySlotNeverAssigned(t *testing.T) {
	s := NewSlots()
	s.Submit("a", 0, at(100))

	s.Assign([]tracking.Track{{ID: 1, AreaN: 0.9}, {ID: 2, AreaN: 0.8}}, at(200))
	assert.Equal(t, NoTrack, s.Get(1).AssignedTrackID, "empty-text slot must stay unassigned")

	s.Clear(0)
	assert.Equal(t, NoTrack, s.Get(0).AssignedTrackID)
}
