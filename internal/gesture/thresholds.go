package gesture

import (
	"fmt"
	"math"
	"time"
)

// Range is an inclusive numeric interval.
type Range struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Contains reports whether v lies inside the range.
func (r Range) Contains(v float64) bool {
	return !math.IsNaN(v) && v >= r.Min && v <= r.Max
}

// Clamp limits v to the range. NaN clamps to Min.
func (r Range) Clamp(v float64) float64 {
	if math.IsNaN(v) || v < r.Min {
		return r.Min
	}
	if v > r.Max {
		return r.Max
	}
	return v
}

// Valid parameter ranges.
var (
	RangeGestureCooldown        = Range{0.5, 5.0}
	RangeConfidenceThreshold    = Range{0.3, 0.95}
	RangeRequiredHoldFrames     = Range{1, 10}
	RangeSwipeDistanceThreshold = Range{0.05, 0.5}
	RangeSwipeTimeWindow        = Range{0.2, 2.0}
	RangeSwipeVerticalTolerance = Range{0.02, 0.3}
	RangeSwipeMinFrames         = Range{3, 20}
	RangePalmExtensionOffset    = Range{0.02, 0.3}
	RangePalmSpreadMinIndex     = Range{0.005, 0.15}
	RangePalmSpreadMinMiddle    = Range{0.005, 0.15}
	RangePalmHorizontalMovement = Range{0.01, 0.2}
	RangeThumbExtensionDistance = Range{0.01, 0.2}
	RangeThumbVerticalDelta     = Range{0.02, 0.3}
	RangePinchDistance          = Range{0.01, 0.15}
	RangePinchExtensionMin      = Range{0.01, 0.15}
	RangePinchOtherFingers      = Range{0.0, 0.3}
)

// Thresholds is the set of numeric decision parameters used by the classifier
// and the confirmer. It is a plain value: copies are independent, and the
// active set is replaced wholesale rather than edited.
//
// Durations are expressed in seconds so the persisted form stays numeric.
type Thresholds struct {
	GestureCooldown     float64 `json:"gesture_cooldown"`
	ConfidenceThreshold float64 `json:"confidence_threshold"`
	RequiredHoldFrames  int     `json:"required_hold_frames"`

	SwipeDistanceThreshold float64 `json:"swipe_distance_threshold"`
	SwipeTimeWindow        float64 `json:"swipe_time_window"`
	SwipeVerticalTolerance float64 `json:"swipe_vertical_tolerance"`
	SwipeMinFrames         int     `json:"swipe_min_frames"`

	PalmFingerExtensionOffset       float64 `json:"palm_finger_extension_offset"`
	PalmFingerSpreadMinIndex        float64 `json:"palm_finger_spread_min_index"`
	PalmFingerSpreadMinMiddle       float64 `json:"palm_finger_spread_min_middle"`
	PalmHorizontalMovementThreshold float64 `json:"palm_horizontal_movement_threshold"`

	ThumbExtensionDistance float64 `json:"thumb_extension_distance"`
	ThumbVerticalDelta     float64 `json:"thumb_vertical_delta"`

	PinchDistance           float64 `json:"pinch_distance"`
	PinchFingerExtensionMin float64 `json:"pinch_finger_extension_min"`
	PinchOtherFingersOffset float64 `json:"pinch_other_fingers_offset"`
}

// DefaultThresholds returns the factory profile.
func DefaultThresholds() Thresholds {
	return Thresholds{
		GestureCooldown:     2.0,
		ConfidenceThreshold: 0.7,
		RequiredHoldFrames:  3,

		SwipeDistanceThreshold: 0.20,
		SwipeTimeWindow:        0.7,
		SwipeVerticalTolerance: 0.10,
		SwipeMinFrames:         6,

		PalmFingerExtensionOffset:       0.10,
		PalmFingerSpreadMinIndex:        0.03,
		PalmFingerSpreadMinMiddle:       0.03,
		PalmHorizontalMovementThreshold: 0.05,

		ThumbExtensionDistance: 0.05,
		ThumbVerticalDelta:     0.08,

		PinchDistance:           0.05,
		PinchFingerExtensionMin: 0.03,
		PinchOtherFingersOffset: 0.10,
	}
}

// Cooldown returns GestureCooldown as a duration.
func (t Thresholds) Cooldown() time.Duration {
	return seconds(t.GestureCooldown)
}

// SwipeWindow returns SwipeTimeWindow as a duration.
func (t Thresholds) SwipeWindow() time.Duration {
	return seconds(t.SwipeTimeWindow)
}

func seconds(s float64) time.Duration {
	return time.Duration(math.Round(s * float64(time.Second)))
}

// RangeError reports a parameter outside its valid range.
type RangeError struct {
	Param string
	Value float64
	Range Range
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("%s = %g outside [%g, %g]", e.Param, e.Value, e.Range.Min, e.Range.Max)
}

type param struct {
	name  string
	rng   Range
	value func(Thresholds) float64
}

var params = []param{
	{"gesture_cooldown", RangeGestureCooldown, func(t Thresholds) float64 { return t.GestureCooldown }},
	{"confidence_threshold", RangeConfidenceThreshold, func(t Thresholds) float64 { return t.ConfidenceThreshold }},
	{"required_hold_frames", RangeRequiredHoldFrames, func(t Thresholds) float64 { return float64(t.RequiredHoldFrames) }},
	{"swipe_distance_threshold", RangeSwipeDistanceThreshold, func(t Thresholds) float64 { return t.SwipeDistanceThreshold }},
	{"swipe_time_window", RangeSwipeTimeWindow, func(t Thresholds) float64 { return t.SwipeTimeWindow }},
	{"swipe_vertical_tolerance", RangeSwipeVerticalTolerance, func(t Thresholds) float64 { return t.SwipeVerticalTolerance }},
	{"swipe_min_frames", RangeSwipeMinFrames, func(t Thresholds) float64 { return float64(t.SwipeMinFrames) }},
	{"palm_finger_extension_offset", RangePalmExtensionOffset, func(t Thresholds) float64 { return t.PalmFingerExtensionOffset }},
	{"palm_finger_spread_min_index", RangePalmSpreadMinIndex, func(t Thresholds) float64 { return t.PalmFingerSpreadMinIndex }},
	{"palm_finger_spread_min_middle", RangePalmSpreadMinMiddle, func(t Thresholds) float64 { return t.PalmFingerSpreadMinMiddle }},
	{"palm_horizontal_movement_threshold", RangePalmHorizontalMovement, func(t Thresholds) float64 { return t.PalmHorizontalMovementThreshold }},
	{"thumb_extension_distance", RangeThumbExtensionDistance, func(t Thresholds) float64 { return t.ThumbExtensionDistance }},
	{"thumb_vertical_delta", RangeThumbVerticalDelta, func(t Thresholds) float64 { return t.ThumbVerticalDelta }},
	{"pinch_distance", RangePinchDistance, func(t Thresholds) float64 { return t.PinchDistance }},
	{"pinch_finger_extension_min", RangePinchExtensionMin, func(t Thresholds) float64 { return t.PinchFingerExtensionMin }},
	{"pinch_other_fingers_offset", RangePinchOtherFingers, func(t Thresholds) float64 { return t.PinchOtherFingersOffset }},
}

// Validate returns a *RangeError for the first parameter outside its range.
func (t Thresholds) Validate() error {
	for _, p := range params {
		if v := p.value(t); !p.rng.Contains(v) {
			return &RangeError{Param: p.name, Value: v, Range: p.rng}
		}
	}
	return nil
}

// Builder derives a new Thresholds from a base value. Every setter clamps its
// input to the parameter's range; the base passed to NewBuilder is never touched.
type Builder struct {
	t Thresholds
}

// NewBuilder starts a builder from a copy of base.
func NewBuilder(base Thresholds) *Builder {
	return &Builder{t: base}
}

// Confidence sets the global confidence threshold.
func (b *Builder) Confidence(v float64) *Builder {
	b.t.ConfidenceThreshold = RangeConfidenceThreshold.Clamp(v)
	return b
}

// Palm sets the open palm sub-thresholds.
func (b *Builder) Palm(extensionOffset, spreadIndex, spreadMiddle float64) *Builder {
	b.t.PalmFingerExtensionOffset = RangePalmExtensionOffset.Clamp(extensionOffset)
	b.t.PalmFingerSpreadMinIndex = RangePalmSpreadMinIndex.Clamp(spreadIndex)
	b.t.PalmFingerSpreadMinMiddle = RangePalmSpreadMinMiddle.Clamp(spreadMiddle)
	return b
}

// Thumbs sets the thumbs up/down sub-thresholds.
func (b *Builder) Thumbs(extension, verticalDelta float64) *Builder {
	b.t.ThumbExtensionDistance = RangeThumbExtensionDistance.Clamp(extension)
	b.t.ThumbVerticalDelta = RangeThumbVerticalDelta.Clamp(verticalDelta)
	return b
}

// Swipe sets the swipe sub-thresholds.
func (b *Builder) Swipe(distance, window, verticalTolerance float64) *Builder {
	b.t.SwipeDistanceThreshold = RangeSwipeDistanceThreshold.Clamp(distance)
	b.t.SwipeTimeWindow = RangeSwipeTimeWindow.Clamp(window)
	b.t.SwipeVerticalTolerance = RangeSwipeVerticalTolerance.Clamp(verticalTolerance)
	return b
}

// Pinch sets the pinch sub-thresholds.
func (b *Builder) Pinch(distance, extensionMin float64) *Builder {
	b.t.PinchDistance = RangePinchDistance.Clamp(distance)
	b.t.PinchFingerExtensionMin = RangePinchExtensionMin.Clamp(extensionMin)
	return b
}

// Build validates and returns the result.
func (b *Builder) Build() (Thresholds, error) {
	t := b.t
	if err := t.Validate(); err != nil {
		return Thresholds{}, err
	}
	return t, nil
}
