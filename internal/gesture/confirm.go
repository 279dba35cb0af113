package gesture

import (
	"time"

	"github.com/ayusman/mudra/internal/detector"
)

// Confirmer debounces per-frame hypotheses into confirmed events.
//
// A gesture is confirmed after RequiredHoldFrames consecutive frames agree on
// it. Any other hypothesis, an empty frame, or a lost hand restarts the count.
// After a confirmation nothing is classified until the cooldown expires.
//
// Not safe for concurrent use: all calls must come from one goroutine.
type Confirmer struct {
	classifier    *Classifier
	counters      [NumKinds]int
	cooldownUntil time.Time
}

// NewConfirmer creates a Confirmer with its own classifier.
func NewConfirmer() *Confirmer {
	return &Confirmer{classifier: NewClassifier()}
}

// Process handles one frame. A nil frame means the detector saw no hand.
// The second return value is true when an event was confirmed.
func (c *Confirmer) Process(f *detector.LandmarkFrame, now time.Time, t Thresholds) (Event, bool) {
	if now.Before(c.cooldownUntil) {
		return Event{}, false
	}

	if f == nil {
		c.resetCounters()
		c.classifier.trajectory.Clear()
		return Event{}, false
	}

	k, ok := c.classifier.Classify(f, t)
	if !ok {
		c.resetCounters()
		return Event{}, false
	}

	for i := range c.counters {
		if Kind(i) != k {
			c.counters[i] = 0
		}
	}
	c.counters[k]++

	if c.counters[k] < t.RequiredHoldFrames {
		return Event{}, false
	}

	c.resetCounters()
	c.cooldownUntil = now.Add(t.Cooldown())
	if k.IsSwipe() {
		c.classifier.trajectory.Clear()
	}
	return Event{Kind: k, Time: now}, true
}

// Count returns the current hold count for k.
func (c *Confirmer) Count(k Kind) int {
	if !k.Valid() {
		return 0
	}
	return c.counters[k]
}

// CoolingDown reports whether now falls inside the post-event cooldown.
func (c *Confirmer) CoolingDown(now time.Time) bool {
	return now.Before(c.cooldownUntil)
}

// Trajectory exposes the classifier's wrist history.
func (c *Confirmer) Trajectory() *Trajectory {
	return c.classifier.trajectory
}

// Reset clears counters, cooldown and trajectory. Used when capture stops or
// the pipeline switches mode.
func (c *Confirmer) Reset() {
	c.resetCounters()
	c.cooldownUntil = time.Time{}
	c.classifier.trajectory.Clear()
}

func (c *Confirmer) resetCounters() {
	for i := range c.counters {
		c.counters[i] = 0
	}
}
