package stage

import (
	"context"
	"testing"
	"time"

	"github.com/haruni24/MojiNoYukue/labels"
	"github.com/haruni24/MojiNoYukue/tracking"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStage(adapter RenderAdapter) (*Stage, *tracking.Store, *labels.Slots) {
	store := tracking.NewStore()
	slots := labels.NewSlots()
	st := New(Config{Width: 1000, Height: 500, FPS: 60, TextLifetime: 2 * time.Second}, store, slots, adapter)
	return st, store, slots
}

// step advances the stage n frames at exactly 60fps.
func step(st *Stage, start time.Time, n int) time.Time {
	now := start
	for i := 0; i < n; i++ {
		now = now.Add(time.Second / 60)
		st.Tick(now)
	}
	return now
}

func TestStageLabelFollowsAssignedTrack(t *testing.T) {
	adapter := NewNullAdapter()
	st, store, slots := newTestStage(adapter)

	start := time.Unix(1700000000, 0)
	slots.Submit("ことば", 0.4, start)
	store.PutSnapshot(&tracking.Snapshot{
		CameraIndex: 0, Seq: 1, Width: 640, Height: 480,
		Tracks: []tracking.Track{
			{ID: 7, AreaN: 0.3, CenterN: [2]float64{0.25, 0.5}},
			{ID: 9, AreaN: 0.6, CenterN: [2]float64{0.75, 0.5}},
		},
	})

	step(st, start, 300) // 5 seconds: springs settle

	// Largest-area track gets the label.
	assert.Equal(t, 9, slots.Get(0).AssignedTrackID)

	pose, ok := adapter.Pose("label-0")
	require.True(t, ok)
	// Track 9 center (0.75, 0.5) in a 640x480 frame cover-fit onto
	// 1000x500: scale max(1000/640, 500/480) = 1.5625, offsets
	// ((1000-1000)/2, (500-750)/2) = (0, -125).
	assert.InDelta(t, 750, pose.X, 2)
	assert.InDelta(t, 250, pose.Y, 2)
	assert.InDelta(t, 1, pose.Opacity, 0.02)

	ent, _ := adapter.Entity("label-0")
	assert.Equal(t, "ことば", ent.Text)
	assert.Equal(t, KindLabel, ent.Kind)
}

func TestStageEmptySlotStaysInvisible(t *testing.T) {
	adapter := NewNullAdapter()
	st, store, _ := newTestStage(adapter)
	store.PutSnapshot(&tracking.Snapshot{CameraIndex: 0, Seq: 1,
		Tracks: []tracking.Track{{ID: 1, AreaN: 0.5}}})

	step(st, time.Unix(1700000000, 0), 120)

	pose, ok := adapter.Pose("label-0")
	require.True(t, ok)
	assert.InDelta(t, 0, pose.Opacity, 0.02)
}

func TestStageMarkersAppearAndFadeOut(t *testing.T) {
	adapter := NewNullAdapter()
	st, store, _ := newTestStage(adapter)

	start := time.Unix(1700000000, 0)
	store.PutSnapshot(&tracking.Snapshot{CameraIndex: 0, Seq: 1, Width: 640, Height: 480,
		Tracks: []tracking.Track{{ID: 3, CenterN: [2]float64{0.5, 0.5}, BBoxN: [4]float64{0.4, 0.2, 0.6, 0.8}}}})
	now := step(st, start, 120)

	pose, ok := adapter.Pose("track-3")
	require.True(t, ok)
	assert.Greater(t, pose.Opacity, 0.8)

	// Track disappears: the marker fades instead of popping, then its
	// state is removed once invisible.
	store.PutSnapshot(&tracking.Snapshot{CameraIndex: 0, Seq: 2, Width: 640, Height: 480})
	step(st, now, 600)

	_, ok = adapter.Pose("track-3")
	assert.False(t, ok, "faded marker should be removed from the adapter")
}

func TestStageFloatingTextLifecycle(t *testing.T) {
	adapter := NewNullAdapter()
	st, _, _ := newTestStage(adapter)

	start := time.Unix(1700000000, 0)
	id := st.SpawnText("", "ゆくえ", 0.8, 0.3)
	require.NotEmpty(t, id)

	now := step(st, start, 30)
	pose, ok := adapter.Pose(id)
	require.True(t, ok)
	assert.Greater(t, pose.Opacity, 0.1, "text fades in")
	firstX := pose.X

	now = step(st, now, 60)
	pose, _ = adapter.Pose(id)
	assert.Less(t, pose.X, firstX, "text drifts left over its lifetime")

	// Lifetime is 2s; run well past it plus fade-out.
	step(st, now, 600)
	_, ok = adapter.Pose(id)
	assert.False(t, ok, "expired text should be removed")
}

func TestStageCameraSwitchRedrivesAssignment(t *testing.T) {
	adapter := NewNullAdapter()
	st, store, slots := newTestStage(adapter)

	start := time.Unix(1700000000, 0)
	slots.Submit("a", 0, start)
	store.PutSnapshot(&tracking.Snapshot{CameraIndex: 0, Seq: 1,
		Tracks: []tracking.Track{{ID: 1, AreaN: 0.4}, {ID: 8, AreaN: 0.1}}})
	store.PutSnapshot(&tracking.Snapshot{CameraIndex: 1, Seq: 1,
		Tracks: []tracking.Track{{ID: 2, AreaN: 0.4}, {ID: 9, AreaN: 0.1}}})

	now := step(st, start, 2)
	assert.Equal(t, 1, slots.Get(0).AssignedTrackID)

	st.SelectCamera(1)
	step(st, now, 2)
	assert.Equal(t, 2, slots.Get(0).AssignedTrackID)
}

func TestStageRunStopsOnCancel(t *testing.T) {
	adapter := NewNullAdapter()
	st, _, _ := newTestStage(adapter)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		st.Run(ctx)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("stage loop did not stop on cancellation")
	}
}
