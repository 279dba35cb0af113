package gesture

import (
	"testing"
	"time"

	"github.com/ayusman/mudra/internal/detector"
)

const frameInterval = 33 * time.Millisecond

func TestConfirmer_OpenPalmHoldAndCooldown(t *testing.T) {
	c := NewConfirmer()
	th := DefaultThresholds()
	th.RequiredHoldFrames = 2

	var events []Event
	now := epoch
	// Three seconds of continuous open palm.
	for i := 0; i < 91; i++ {
		if ev, ok := c.Process(stamped(detector.OpenPalmLandmarks(), now), now, th); ok {
			events = append(events, ev)
		}
		now = now.Add(frameInterval)
	}

	if len(events) != 2 {
		t.Fatalf("got %d events, want 2 (one immediately, one after cooldown)", len(events))
	}

	first := events[0]
	if first.Kind != OpenPalm {
		t.Errorf("first event = %s, want OpenPalm", first.Kind)
	}
	if want := epoch.Add(frameInterval); !first.Time.Equal(want) {
		t.Errorf("first event at %v, want after 2nd frame at %v", first.Time, want)
	}

	gap := events[1].Time.Sub(first.Time)
	if gap < th.Cooldown() {
		t.Errorf("second event %v after first, want >= %v", gap, th.Cooldown())
	}
}

func TestConfirmer_HandLostResetsCount(t *testing.T) {
	c := NewConfirmer()
	th := DefaultThresholds()
	th.RequiredHoldFrames = 3

	now := epoch
	step := func(f *detector.LandmarkFrame) (Event, bool) {
		if f != nil {
			f = stamped(f, now)
		}
		ev, ok := c.Process(f, now, th)
		now = now.Add(frameInterval)
		return ev, ok
	}

	step(detector.OpenPalmLandmarks())
	step(detector.OpenPalmLandmarks())
	if got := c.Count(OpenPalm); got != 2 {
		t.Fatalf("count = %d, want 2", got)
	}
	if c.Trajectory().Len() == 0 {
		t.Fatal("expected trajectory to hold wrist points")
	}

	if _, ok := step(nil); ok {
		t.Fatal("hand lost must not confirm")
	}
	if got := c.Count(OpenPalm); got != 0 {
		t.Errorf("count after hand lost = %d, want 0", got)
	}
	if c.Trajectory().Len() != 0 {
		t.Errorf("trajectory len after hand lost = %d, want 0", c.Trajectory().Len())
	}

	step(detector.OpenPalmLandmarks())
	if got := c.Count(OpenPalm); got != 1 {
		t.Errorf("count after reacquire = %d, want 1", got)
	}
}

func TestConfirmer_SwitchingHypothesisRestarts(t *testing.T) {
	c := NewConfirmer()
	th := DefaultThresholds()

	now := epoch
	c.Process(stamped(detector.OpenPalmLandmarks(), now), now, th)
	now = now.Add(frameInterval)
	c.Process(stamped(detector.OpenPalmLandmarks(), now), now, th)
	now = now.Add(frameInterval)
	c.Process(stamped(detector.PinchLandmarks(), now), now, th)

	if c.Count(OpenPalm) != 0 {
		t.Errorf("open palm count = %d, want 0", c.Count(OpenPalm))
	}
	if c.Count(Pinch) != 1 {
		t.Errorf("pinch count = %d, want 1", c.Count(Pinch))
	}

	nonZero := 0
	for _, k := range Kinds {
		if c.Count(k) > 0 {
			nonZero++
		}
	}
	if nonZero != 1 {
		t.Errorf("%d counters non-zero, want exactly 1", nonZero)
	}
}

func TestConfirmer_NoHypothesisResets(t *testing.T) {
	c := NewConfirmer()
	th := DefaultThresholds()

	now := epoch
	c.Process(stamped(detector.ThumbsUpLandmarks(), now), now, th)
	now = now.Add(frameInterval)
	c.Process(stamped(detector.FistLandmarks(), now), now, th)

	if c.Count(ThumbsUp) != 0 {
		t.Errorf("count = %d, want 0 after unmatched frame", c.Count(ThumbsUp))
	}
}

func TestConfirmer_CooldownIgnoresHandLost(t *testing.T) {
	c := NewConfirmer()
	th := DefaultThresholds()
	th.RequiredHoldFrames = 1

	if _, ok := c.Process(stamped(detector.ThumbsDownLandmarks(), epoch), epoch, th); !ok {
		t.Fatal("expected immediate confirmation with one hold frame")
	}

	now := epoch.Add(100 * time.Millisecond)
	if !c.CoolingDown(now) {
		t.Fatal("expected cooldown to be active")
	}

	// Frames during cooldown are ignored entirely.
	c.Process(nil, now, th)
	if _, ok := c.Process(stamped(detector.ThumbsDownLandmarks(), now), now, th); ok {
		t.Error("event confirmed during cooldown")
	}

	after := epoch.Add(th.Cooldown())
	if c.CoolingDown(after) {
		t.Error("cooldown should end exactly at the deadline")
	}
	if ev, ok := c.Process(stamped(detector.ThumbsDownLandmarks(), after), after, th); !ok || ev.Kind != ThumbsDown {
		t.Errorf("got (%v, %v), want ThumbsDown after cooldown", ev, ok)
	}
}

func TestConfirmer_SwipeClearsTrajectory(t *testing.T) {
	c := NewConfirmer()
	th := swipeThresholds()
	th.RequiredHoldFrames = 1

	var got []Event
	for i := 0; i < 6; i++ {
		ts := epoch.Add(time.Duration(i) * 100 * time.Millisecond)
		if ev, ok := c.Process(wristFrame(0.10+float64(i)*0.05, 0.5, ts), ts, th); ok {
			got = append(got, ev)
		}
	}

	if len(got) != 1 || got[0].Kind != SwipeRight {
		t.Fatalf("events = %v, want one SwipeRight", got)
	}
	if c.Trajectory().Len() != 0 {
		t.Errorf("trajectory len = %d, want 0 after swipe", c.Trajectory().Len())
	}
}

func TestConfirmer_Reset(t *testing.T) {
	c := NewConfirmer()
	th := DefaultThresholds()
	th.RequiredHoldFrames = 1

	c.Process(stamped(detector.PinchLandmarks(), epoch), epoch, th)
	c.Reset()

	if c.CoolingDown(epoch) {
		t.Error("Reset should clear the cooldown")
	}
	if c.Trajectory().Len() != 0 {
		t.Error("Reset should clear the trajectory")
	}
	if _, ok := c.Process(stamped(detector.PinchLandmarks(), epoch), epoch, th); !ok {
		t.Error("expected confirmation right after Reset")
	}
}
