package gesture

import (
	"github.com/ayusman/mudra/internal/detector"
)

// palmMotionSamples is how many recent wrist points the open palm test inspects
// to tell a held palm from one that is mid-swipe.
const palmMotionSamples = 3

var (
	nonThumbTips = [4]detector.Joint{detector.IndexTip, detector.MiddleTip, detector.RingTip, detector.PinkyTip}
	nonThumbMCPs = [4]detector.Joint{detector.IndexMCP, detector.MiddleMCP, detector.RingMCP, detector.PinkyMCP}
	otherTips    = [3]detector.Joint{detector.MiddleTip, detector.RingTip, detector.PinkyTip}
)

// Classifier produces at most one gesture hypothesis per frame.
//
// Tests run in a fixed order and stop at the first match:
// swipe, open palm, pinch, thumbs. A moving open hand looks like a palm on
// every single frame, so the trajectory test has to go first.
//
// The only state is the wrist trajectory, which Classify extends as a side
// effect. Not safe for concurrent use.
type Classifier struct {
	trajectory *Trajectory
}

// NewClassifier creates a classifier with an empty trajectory.
func NewClassifier() *Classifier {
	return &Classifier{trajectory: NewTrajectory()}
}

// Trajectory exposes the wrist history.
func (c *Classifier) Trajectory() *Trajectory {
	return c.trajectory
}

// Classify evaluates one frame against t. The frame timestamp is the clock.
func (c *Classifier) Classify(f *detector.LandmarkFrame, t Thresholds) (Kind, bool) {
	if f == nil {
		return 0, false
	}

	if k, ok := c.swipe(f, t); ok {
		return k, true
	}
	if c.openPalm(f, t) {
		return OpenPalm, true
	}
	if pinch(f, t) {
		return Pinch, true
	}
	return thumbs(f, t)
}

func (c *Classifier) swipe(f *detector.LandmarkFrame, t Thresholds) (Kind, bool) {
	if !f.Confident(t.ConfidenceThreshold, detector.Wrist) {
		return 0, false
	}

	wrist := f.Points[detector.Wrist]
	c.trajectory.Add(TrajectoryPoint{X: wrist.X, Y: wrist.Y, Time: f.Timestamp}, t.SwipeWindow())

	if c.trajectory.Len() < t.SwipeMinFrames {
		return 0, false
	}

	first, _ := c.trajectory.First()
	last, _ := c.trajectory.Last()

	dy := last.Y - first.Y
	if dy < 0 {
		dy = -dy
	}
	if dy > t.SwipeVerticalTolerance {
		return 0, false
	}

	dx := last.X - first.X
	switch {
	case dx > t.SwipeDistanceThreshold:
		return SwipeRight, true
	case dx < -t.SwipeDistanceThreshold:
		return SwipeLeft, true
	}
	return 0, false
}

func (c *Classifier) openPalm(f *detector.LandmarkFrame, t Thresholds) bool {
	if !f.Confident(t.ConfidenceThreshold, detector.Wrist) ||
		!f.Confident(t.ConfidenceThreshold, detector.Fingertips[:]...) {
		return false
	}

	if c.trajectory.RecentHorizontalSpan(palmMotionSamples) > t.PalmHorizontalMovementThreshold {
		return false
	}

	wrist := f.Points[detector.Wrist]
	for _, tip := range detector.Fingertips {
		if f.Points[tip].Y <= wrist.Y+t.PalmFingerExtensionOffset {
			return false
		}
	}

	p := f.Points
	return detector.Distance(p[detector.IndexTip], p[detector.MiddleTip]) > t.PalmFingerSpreadMinIndex &&
		detector.Distance(p[detector.MiddleTip], p[detector.RingTip]) > t.PalmFingerSpreadMinMiddle
}

func pinch(f *detector.LandmarkFrame, t Thresholds) bool {
	if !f.Confident(t.ConfidenceThreshold, detector.ThumbTip, detector.IndexTip) {
		return false
	}
	if !f.HasJoints(detector.ThumbIP, detector.IndexDIP, detector.Wrist) {
		return false
	}

	p := f.Points
	if detector.Distance(p[detector.ThumbTip], p[detector.IndexTip]) >= t.PinchDistance {
		return false
	}
	if detector.Distance(p[detector.ThumbTip], p[detector.ThumbIP]) <= t.PinchFingerExtensionMin ||
		detector.Distance(p[detector.IndexTip], p[detector.IndexDIP]) <= t.PinchFingerExtensionMin {
		return false
	}

	limit := p[detector.Wrist].Y + t.PinchOtherFingersOffset
	for _, tip := range otherTips {
		if l, ok := f.Joint(tip); ok && l.Y < limit {
			return true
		}
	}
	return false
}

func thumbs(f *detector.LandmarkFrame, t Thresholds) (Kind, bool) {
	if !f.Confident(t.ConfidenceThreshold, detector.ThumbTip) {
		return 0, false
	}
	if !f.HasJoints(detector.ThumbIP) || !f.HasJoints(nonThumbTips[:]...) || !f.HasJoints(nonThumbMCPs[:]...) {
		return 0, false
	}

	p := f.Points
	for i, tip := range nonThumbTips {
		if p[tip].Y >= p[nonThumbMCPs[i]].Y {
			return 0, false
		}
	}

	if detector.Distance(p[detector.ThumbTip], p[detector.ThumbIP]) <= t.ThumbExtensionDistance {
		return 0, false
	}

	delta := p[detector.ThumbTip].Y - AverageMCPY(f)
	switch {
	case delta > t.ThumbVerticalDelta:
		return ThumbsUp, true
	case delta < -t.ThumbVerticalDelta:
		return ThumbsDown, true
	}
	return 0, false
}

// AverageMCPY is the mean height of the four non-thumb knuckles.
func AverageMCPY(f *detector.LandmarkFrame) float64 {
	var sum float64
	for _, j := range nonThumbMCPs {
		sum += f.Points[j].Y
	}
	return sum / float64(len(nonThumbMCPs))
}
