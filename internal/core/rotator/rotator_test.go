package rotator

import (
	"context"
	"testing"
	"time"

	"slidewake/internal/core/media"
	"slidewake/internal/core/model"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRotator(t *testing.T, policy DwellPolicy) (*Rotator, *clockwork.FakeClock, <-chan Event) {
	t.Helper()
	clock := clockwork.NewFakeClock()
	rotator := New(context.Background(), policy, Options{Clock: clock})
	events := rotator.Subscribe(16)
	t.Cleanup(rotator.Close)
	return rotator, clock, events
}

func waitEvent(t *testing.T, events <-chan Event) Event {
	t.Helper()
	select {
	case event, ok := <-events:
		require.True(t, ok, "event channel closed")
		return event
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for rotator event")
	}
	return Event{}
}

func assertNoEvent(t *testing.T, events <-chan Event) {
	t.Helper()
	select {
	case event, ok := <-events:
		if ok {
			t.Fatalf("unexpected event %+v", event)
		}
	case <-time.After(50 * time.Millisecond):
	}
}

func waitArmed(t *testing.T, clock *clockwork.FakeClock) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, clock.BlockUntilContext(ctx, 1))
}

func TestEmptyPlaylistArmsNoTimer(t *testing.T) {
	rotator, clock, events := newTestRotator(t, FirstSlideDwell{})

	rotator.Mount(media.NewPlaylist(""))
	mounted := waitEvent(t, events)
	assert.Equal(t, EventMounted, mounted.Type)
	assert.Equal(t, StateEmpty, mounted.State)

	clock.Advance(time.Hour)
	assertNoEvent(t, events)

	snapshot := rotator.Snapshot()
	assert.Equal(t, StateEmpty, snapshot.State)
	assert.False(t, snapshot.TimerPending)
	assert.Empty(t, snapshot.Entry)
}

func TestSingleEntryNeverAdvances(t *testing.T) {
	rotator, clock, events := newTestRotator(t, FirstSlideDwell{})

	rotator.Mount(media.NewPlaylist("", "only.jpg"))
	mounted := waitEvent(t, events)
	assert.Equal(t, StateSingle, mounted.State)
	assert.Equal(t, "only.jpg", mounted.Entry)

	for i := 0; i < 5; i++ {
		clock.Advance(time.Minute)
	}
	assertNoEvent(t, events)

	snapshot := rotator.Snapshot()
	assert.Equal(t, 0, snapshot.Index)
	assert.False(t, snapshot.TimerPending)
}

func TestFirstSlideDwellsLonger(t *testing.T) {
	rotator, clock, events := newTestRotator(t, FirstSlideDwell{})

	rotator.Mount(media.NewPlaylist("", "a.jpg", "b.jpg"))
	mounted := waitEvent(t, events)
	assert.Equal(t, StateRotating, mounted.State)
	assert.Equal(t, 10*time.Second, mounted.Dwell)
	waitArmed(t, clock)
	assert.True(t, rotator.Snapshot().TimerPending)

	clock.Advance(10*time.Second - time.Millisecond)
	assertNoEvent(t, events)

	clock.Advance(time.Millisecond)
	advanced := waitEvent(t, events)
	assert.Equal(t, EventAdvanced, advanced.Type)
	assert.Equal(t, 0, advanced.Previous)
	assert.Equal(t, 1, advanced.Index)
	assert.Equal(t, "b.jpg", advanced.Entry)
	assert.Equal(t, 8*time.Second, advanced.Dwell)
}

func TestRotationWrapsAroundAfterFullCycle(t *testing.T) {
	policy := FirstSlideDwell{}
	rotator, clock, events := newTestRotator(t, policy)
	playlist := media.NewPlaylist("", "a.jpg", "b.jpg", "c.jpg", "d.jpg")

	rotator.Mount(playlist)
	waitEvent(t, events)

	for index := 0; index < playlist.Len(); index++ {
		waitArmed(t, clock)
		clock.Advance(policy.Dwell(index))
		advanced := waitEvent(t, events)
		assert.Equal(t, (index+1)%playlist.Len(), advanced.Index)
		assert.Same(t, playlist, advanced.Playlist)
	}

	assert.Equal(t, 34*time.Second, CycleDuration(policy, playlist.Len()))
	assert.Equal(t, 0, rotator.Snapshot().Index)
}

func TestUniformPolicy(t *testing.T) {
	rotator, clock, events := newTestRotator(t, UniformDwell{Every: 8 * time.Second})

	rotator.Mount(media.NewPlaylist("", "a.jpg", "b.jpg"))
	mounted := waitEvent(t, events)
	assert.Equal(t, 8*time.Second, mounted.Dwell)

	waitArmed(t, clock)
	clock.Advance(8 * time.Second)
	assert.Equal(t, 1, waitEvent(t, events).Index)

	waitArmed(t, clock)
	clock.Advance(8 * time.Second)
	assert.Equal(t, 0, waitEvent(t, events).Index)
}

func TestRemountWithEqualEntriesResetsTimer(t *testing.T) {
	rotator, clock, events := newTestRotator(t, FirstSlideDwell{})

	rotator.Mount(media.NewPlaylist("", "a.jpg", "b.jpg", "c.jpg"))
	waitEvent(t, events)
	waitArmed(t, clock)
	clock.Advance(10 * time.Second)
	assert.Equal(t, 1, waitEvent(t, events).Index)
	waitArmed(t, clock)

	rotator.Mount(media.NewPlaylist("", "a.jpg", "b.jpg", "c.jpg"))
	remounted := waitEvent(t, events)
	assert.Equal(t, EventMounted, remounted.Type)
	assert.Equal(t, 0, rotator.Snapshot().Index)

	waitArmed(t, clock)
	clock.Advance(8 * time.Second)
	assertNoEvent(t, events)

	clock.Advance(2 * time.Second)
	advanced := waitEvent(t, events)
	assert.Equal(t, 0, advanced.Previous)
	assert.Equal(t, 1, advanced.Index)
}

func TestMountSamePlaylistIsNoop(t *testing.T) {
	rotator, clock, events := newTestRotator(t, FirstSlideDwell{})
	playlist := media.NewPlaylist("", "a.jpg", "b.jpg")

	rotator.Mount(playlist)
	waitEvent(t, events)
	waitArmed(t, clock)
	clock.Advance(10 * time.Second)
	waitEvent(t, events)

	rotator.Mount(playlist)
	assertNoEvent(t, events)
	assert.Equal(t, 1, rotator.Snapshot().Index)
}

func TestUnmountStopsAdvancing(t *testing.T) {
	rotator, clock, events := newTestRotator(t, FirstSlideDwell{})

	rotator.Mount(media.NewPlaylist("Lobby", "a.jpg", "b.jpg"))
	waitEvent(t, events)
	waitArmed(t, clock)

	rotator.Unmount()
	unmounted := waitEvent(t, events)
	assert.Equal(t, EventUnmounted, unmounted.Type)

	clock.Advance(time.Hour)
	assertNoEvent(t, events)

	snapshot := rotator.Snapshot()
	assert.Equal(t, StateStopped, snapshot.State)
	assert.False(t, snapshot.TimerPending)
	assert.Zero(t, snapshot.Length)
	assert.Empty(t, snapshot.Title)
	assert.Empty(t, snapshot.Entry)
}

func TestCloseClosesSubscribers(t *testing.T) {
	clock := clockwork.NewFakeClock()
	rotator := New(context.Background(), nil, Options{Clock: clock})
	events := rotator.Subscribe(1)

	rotator.Close()
	_, ok := <-events
	assert.False(t, ok)

	late := rotator.Subscribe(1)
	_, ok = <-late
	assert.False(t, ok)

	rotator.Mount(media.NewPlaylist("", "a.jpg", "b.jpg"))
	assert.Equal(t, StateEmpty, rotator.Snapshot().State)
}

func TestTitledMixedPlaylistScenario(t *testing.T) {
	rotator, clock, events := newTestRotator(t, FirstSlideDwell{})

	rotator.Mount(media.NewPlaylist("Test", "a.jpg", "b.jpg", "video.mp4"))
	waitEvent(t, events)
	assert.Equal(t, "Test", rotator.Snapshot().Title)

	steps := []struct {
		dwell time.Duration
		index int
		kind  media.Kind
	}{
		{dwell: 10 * time.Second, index: 1, kind: media.KindImage},
		{dwell: 8 * time.Second, index: 2, kind: media.KindVideo},
		{dwell: 8 * time.Second, index: 0, kind: media.KindImage},
	}
	for _, step := range steps {
		waitArmed(t, clock)
		clock.Advance(step.dwell)
		event := waitEvent(t, events)
		assert.Equal(t, step.index, event.Index)
		assert.Equal(t, step.kind, media.Classify(event.Entry))
	}
}

func TestPolicyFromConfig(t *testing.T) {
	uniform := PolicyFromConfig(model.RotatorConfig{Policy: model.DwellUniform, Dwell: 5 * time.Second})
	assert.Equal(t, 5*time.Second, uniform.Dwell(0))
	assert.Equal(t, 5*time.Second, uniform.Dwell(3))

	first := PolicyFromConfig(model.RotatorConfig{Policy: "bogus"})
	assert.Equal(t, DefaultFirstDwell, first.Dwell(0))
	assert.Equal(t, DefaultDwell, first.Dwell(1))

	assert.Zero(t, CycleDuration(first, 1))
}

func TestSetPolicyAppliesToNextTimer(t *testing.T) {
	rotator, clock, events := newTestRotator(t, FirstSlideDwell{})
	rotator.Mount(media.NewPlaylist("", "a.jpg", "b.jpg"))
	waitEvent(t, events)
	waitArmed(t, clock)

	rotator.SetPolicy(UniformDwell{Every: 3 * time.Second})
	rotator.SetPolicy(nil)

	clock.Advance(10 * time.Second)
	advanced := waitEvent(t, events)
	assert.Equal(t, 3*time.Second, advanced.Dwell)

	waitArmed(t, clock)
	clock.Advance(3 * time.Second)
	assert.Equal(t, 0, waitEvent(t, events).Index)
}
