package calibration

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/gesture"
)

// MinSamplesPerGesture is the smallest session that contributes to derivation.
// Smaller sessions leave the gesture's sub-thresholds at their defaults.
const MinSamplesPerGesture = 5

// Derivation factors.
const (
	palmOffsetSigma    = 0.5
	palmSpreadFactor   = 0.7
	thumbDeltaSigma    = 0.3
	thumbExtFactor     = 0.8
	swipeDistFactor    = 0.7
	swipeWindowFactor  = 1.5
	swipeVertFactor    = 1.2
	pinchDistSigma     = 0.5
	pinchExtFactor     = 0.8
	confidenceFactor   = 0.9
	swipeTripletStride = 3
	swipeTripletSpan   = 2
)

// Sessions maps each calibrated gesture to its session. Missing entries are
// treated as empty sessions.
type Sessions map[gesture.Kind]*Session

// Engine derives thresholds from calibration sessions. It holds no mutable
// state and is safe for concurrent use.
type Engine struct {
	base gesture.Thresholds
}

// NewEngine creates an engine that starts every derivation from base.
func NewEngine(base gesture.Thresholds) *Engine {
	return &Engine{base: base}
}

// ComputeThresholds derives a profile from sessions. Only gestures with at
// least MinSamplesPerGesture samples overwrite their sub-thresholds; cooldown
// and hold frames always keep the base values. Every derived value is clamped
// into range. The result is validated and an *InvalidThresholdsError is
// returned if it fails.
func (e *Engine) ComputeThresholds(sessions Sessions) (gesture.Thresholds, error) {
	b := gesture.NewBuilder(e.base)

	if samples := eligible(sessions, gesture.OpenPalm); len(samples) > 0 {
		b.Palm(palmThresholds(samples))
	}
	if samples := eligible(sessions, gesture.ThumbsUp, gesture.ThumbsDown); len(samples) > 0 {
		if ext, delta, ok := thumbThresholds(samples); ok {
			b.Thumbs(ext, delta)
		}
	}
	if groups := eligibleGroups(sessions, gesture.SwipeLeft, gesture.SwipeRight); len(groups) > 0 {
		if dist, window, vert, ok := swipeThresholds(groups); ok {
			b.Swipe(dist, window, vert)
		}
	}
	if samples := eligible(sessions, gesture.Pinch); len(samples) > 0 {
		if dist, ext, ok := pinchThresholds(samples); ok {
			b.Pinch(dist, ext)
		}
	}

	if confs := allConfidences(sessions); len(confs) > 0 {
		b.Confidence(confidenceFactor * floats.Min(confs))
	}

	t, err := b.Build()
	if err != nil {
		return gesture.Thresholds{}, &InvalidThresholdsError{Err: err}
	}
	return t, nil
}

// Shortfalls lists, in calibration order, every gesture whose session is too
// small to contribute to derivation.
func Shortfalls(sessions Sessions) []*InsufficientSamplesError {
	var out []*InsufficientSamplesError
	for _, k := range gesture.Kinds {
		n := 0
		if s := sessions[k]; s != nil {
			n = s.Len()
		}
		if n < MinSamplesPerGesture {
			out = append(out, &InsufficientSamplesError{Gesture: k, Collected: n, Required: MinSamplesPerGesture})
		}
	}
	return out
}

// eligibleGroups returns the samples of each listed session that meets the
// minimum, in the order given.
func eligibleGroups(sessions Sessions, kinds ...gesture.Kind) [][]Sample {
	var groups [][]Sample
	for _, k := range kinds {
		s := sessions[k]
		if s == nil || s.Len() < MinSamplesPerGesture {
			continue
		}
		groups = append(groups, s.samples)
	}
	return groups
}

// eligible pools the samples of every listed session that meets the minimum.
func eligible(sessions Sessions, kinds ...gesture.Kind) []Sample {
	var out []Sample
	for _, g := range eligibleGroups(sessions, kinds...) {
		out = append(out, g...)
	}
	return out
}

func allConfidences(sessions Sessions) []float64 {
	var out []float64
	for _, k := range gesture.Kinds {
		s := sessions[k]
		if s == nil {
			continue
		}
		for _, sample := range s.samples {
			out = append(out, sample.Confidence)
		}
	}
	return out
}

func palmThresholds(samples []Sample) (offset, spreadIndex, spreadMiddle float64) {
	ext := make([]float64, 0, len(samples))
	idx := make([]float64, 0, len(samples))
	mid := make([]float64, 0, len(samples))

	for i := range samples {
		p := &samples[i].Frame.Points
		wrist := p[detector.Wrist]

		lowest := math.Inf(1)
		for _, tip := range detector.Fingertips {
			lowest = min(lowest, p[tip].Y-wrist.Y)
		}
		ext = append(ext, lowest)
		idx = append(idx, detector.Distance(p[detector.IndexTip], p[detector.MiddleTip]))
		mid = append(mid, detector.Distance(p[detector.MiddleTip], p[detector.RingTip]))
	}

	mean, std := stat.PopMeanStdDev(ext, nil)
	return mean - palmOffsetSigma*std,
		palmSpreadFactor * stat.Mean(idx, nil),
		palmSpreadFactor * stat.Mean(mid, nil)
}

func thumbThresholds(samples []Sample) (extension, verticalDelta float64, ok bool) {
	var ext, delta []float64
	for i := range samples {
		f := &samples[i].Frame
		if !f.HasJoints(detector.ThumbTip, detector.ThumbIP, detector.IndexMCP, detector.MiddleMCP, detector.RingMCP, detector.PinkyMCP) {
			continue
		}
		tip := f.Points[detector.ThumbTip]
		ext = append(ext, detector.Distance(tip, f.Points[detector.ThumbIP]))
		delta = append(delta, math.Abs(tip.Y-gesture.AverageMCPY(f)))
	}
	if len(ext) == 0 {
		return 0, 0, false
	}

	mean, std := stat.PopMeanStdDev(delta, nil)
	return thumbExtFactor * stat.Mean(ext, nil), mean - thumbDeltaSigma*std, true
}

// swipeThresholds walks each session in timestamp order, pairing sample i
// with sample i+2 for i = 0, 3, 6, and so on.
func swipeThresholds(groups [][]Sample) (distance, window, verticalTolerance float64, ok bool) {
	var horiz, vert, dur []float64
	for _, g := range groups {
		sorted := make([]Sample, len(g))
		copy(sorted, g)
		sort.SliceStable(sorted, func(i, j int) bool {
			return sorted[i].Timestamp.Before(sorted[j].Timestamp)
		})

		for i := 0; i+swipeTripletSpan < len(sorted); i += swipeTripletStride {
			start := sorted[i].Frame.Points[detector.Wrist]
			end := sorted[i+swipeTripletSpan].Frame.Points[detector.Wrist]
			horiz = append(horiz, math.Abs(end.X-start.X))
			vert = append(vert, math.Abs(end.Y-start.Y))
			dur = append(dur, sorted[i+swipeTripletSpan].Timestamp.Sub(sorted[i].Timestamp).Seconds())
		}
	}
	if len(horiz) == 0 {
		return 0, 0, 0, false
	}

	return swipeDistFactor * stat.Mean(horiz, nil),
		swipeWindowFactor * stat.Mean(dur, nil),
		swipeVertFactor * floats.Max(vert),
		true
}

func pinchThresholds(samples []Sample) (distance, extensionMin float64, ok bool) {
	var gap, thumbExt, indexExt []float64
	for i := range samples {
		f := &samples[i].Frame
		if !f.HasJoints(detector.ThumbTip, detector.ThumbIP, detector.IndexTip, detector.IndexDIP) {
			continue
		}
		p := &f.Points
		gap = append(gap, detector.Distance(p[detector.ThumbTip], p[detector.IndexTip]))
		thumbExt = append(thumbExt, detector.Distance(p[detector.ThumbTip], p[detector.ThumbIP]))
		indexExt = append(indexExt, detector.Distance(p[detector.IndexTip], p[detector.IndexDIP]))
	}
	if len(gap) == 0 {
		return 0, 0, false
	}

	mean, std := stat.PopMeanStdDev(gap, nil)
	return mean + pinchDistSigma*std,
		pinchExtFactor * min(stat.Mean(thumbExt, nil), stat.Mean(indexExt, nil)),
		true
}
