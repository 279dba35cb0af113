// Package detector provides hand detection interfaces and types for gesture recognition.
package detector

import (
	"math"
	"time"
)

// Joint identifies a hand landmark. Values follow the MediaPipe index convention.
// See: https://developers.google.com/mediapipe/solutions/vision/hand_landmarker
type Joint int

const (
	Wrist Joint = iota
	ThumbCMC
	ThumbMCP
	ThumbIP
	ThumbTip
	IndexMCP
	IndexPIP
	IndexDIP
	IndexTip
	MiddleMCP
	MiddlePIP
	MiddleDIP
	MiddleTip
	RingMCP
	RingPIP
	RingDIP
	RingTip
	PinkyMCP
	PinkyPIP
	PinkyDIP
	PinkyTip
	NumJoints
)

var jointNames = [NumJoints]string{
	"wrist",
	"thumb_cmc", "thumb_mcp", "thumb_ip", "thumb_tip",
	"index_mcp", "index_pip", "index_dip", "index_tip",
	"middle_mcp", "middle_pip", "middle_dip", "middle_tip",
	"ring_mcp", "ring_pip", "ring_dip", "ring_tip",
	"pinky_mcp", "pinky_pip", "pinky_dip", "pinky_tip",
}

// String returns the snake_case name of the joint.
func (j Joint) String() string {
	if j < 0 || j >= NumJoints {
		return "unknown"
	}
	return jointNames[j]
}

// Fingertips lists the five fingertip joints, thumb first.
var Fingertips = [5]Joint{ThumbTip, IndexTip, MiddleTip, RingTip, PinkyTip}

// MinimumJoints is the joint set every calibration sample must carry.
var MinimumJoints = [6]Joint{Wrist, ThumbTip, IndexTip, MiddleTip, RingTip, PinkyTip}

// Landmark is one joint position in normalized image space with its confidence.
// A zero confidence means the detector did not report the joint.
type Landmark struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Confidence float64 `json:"confidence"`
}

// Distance returns the 2-D Euclidean distance between two landmarks.
func Distance(a, b Landmark) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

// LandmarkFrame is one observation of a single hand.
//
// Coordinates are normalized to [0,1] with the origin at the bottom-left corner,
// so Y grows upward: an extended finger has a larger Y than the wrist.
type LandmarkFrame struct {
	Points     [NumJoints]Landmark `json:"points"`
	Handedness string              `json:"handedness"` // "Left" or "Right"
	Confidence float64             `json:"confidence"`
	Timestamp  time.Time           `json:"timestamp"`
}

// Joint returns the landmark for j and whether the detector reported it.
func (f *LandmarkFrame) Joint(j Joint) (Landmark, bool) {
	if f == nil || j < 0 || j >= NumJoints {
		return Landmark{}, false
	}
	p := f.Points[j]
	return p, p.Confidence > 0
}

// Confident reports whether every listed joint is present with a confidence
// strictly above threshold.
func (f *LandmarkFrame) Confident(threshold float64, joints ...Joint) bool {
	for _, j := range joints {
		p, ok := f.Joint(j)
		if !ok || p.Confidence <= threshold {
			return false
		}
	}
	return true
}

// HasJoints reports whether every listed joint is present.
func (f *LandmarkFrame) HasJoints(joints ...Joint) bool {
	for _, j := range joints {
		if _, ok := f.Joint(j); !ok {
			return false
		}
	}
	return true
}

// Set stores a landmark for j and returns the frame for chaining.
func (f *LandmarkFrame) Set(j Joint, x, y, confidence float64) *LandmarkFrame {
	f.Points[j] = Landmark{X: x, Y: y, Confidence: confidence}
	return f
}
