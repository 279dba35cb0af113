package detector

import (
	"sync"
	"time"

	"gocv.io/x/gocv"
)

// presetConfidence is the per-joint and overall confidence of the preset poses.
const presetConfidence = 0.95

// MockDetector is a test implementation of the Detector interface.
// It allows tests to control the detection results.
type MockDetector struct {
	mu    sync.Mutex
	frame *LandmarkFrame
	err   error
	calls int
}

// NewMockDetector creates a new MockDetector instance.
func NewMockDetector() *MockDetector {
	return &MockDetector{}
}

// SetFrame sets the frame returned by Detect. Nil simulates an empty scene.
func (m *MockDetector) SetFrame(f *LandmarkFrame) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.frame = f
}

// SetError sets the error that will be returned by Detect.
func (m *MockDetector) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Calls returns how many times Detect has been invoked.
func (m *MockDetector) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Detect returns a copy of the configured frame stamped with the current time.
func (m *MockDetector) Detect(frame *gocv.Mat) (*LandmarkFrame, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	if m.frame == nil {
		return nil, nil
	}
	out := *m.frame
	out.Timestamp = time.Now()
	return &out, nil
}

// Close is a no-op for the mock detector.
func (m *MockDetector) Close() error {
	return nil
}

func newPreset() *LandmarkFrame {
	return &LandmarkFrame{
		Handedness: "Right",
		Confidence: presetConfidence,
	}
}

// setCurledFingers places the four non-thumb fingers folded into the palm,
// fingertips below their knuckles.
func setCurledFingers(f *LandmarkFrame) {
	c := presetConfidence
	f.Set(IndexMCP, 0.44, 0.40, c).Set(IndexPIP, 0.44, 0.36, c).Set(IndexDIP, 0.45, 0.31, c).Set(IndexTip, 0.45, 0.28, c)
	f.Set(MiddleMCP, 0.50, 0.41, c).Set(MiddlePIP, 0.50, 0.37, c).Set(MiddleDIP, 0.51, 0.31, c).Set(MiddleTip, 0.51, 0.28, c)
	f.Set(RingMCP, 0.56, 0.40, c).Set(RingPIP, 0.56, 0.36, c).Set(RingDIP, 0.56, 0.31, c).Set(RingTip, 0.56, 0.28, c)
	f.Set(PinkyMCP, 0.61, 0.38, c).Set(PinkyPIP, 0.61, 0.34, c).Set(PinkyDIP, 0.61, 0.30, c).Set(PinkyTip, 0.61, 0.27, c)
}

// OpenPalmLandmarks returns a frame with all five fingers extended and spread.
func OpenPalmLandmarks() *LandmarkFrame {
	f := newPreset()
	c := presetConfidence

	f.Set(Wrist, 0.50, 0.20, c)
	f.Set(ThumbCMC, 0.44, 0.24, c).Set(ThumbMCP, 0.37, 0.30, c).Set(ThumbIP, 0.31, 0.35, c).Set(ThumbTip, 0.27, 0.40, c)
	f.Set(IndexMCP, 0.44, 0.40, c).Set(IndexPIP, 0.43, 0.50, c).Set(IndexDIP, 0.42, 0.58, c).Set(IndexTip, 0.42, 0.65, c)
	f.Set(MiddleMCP, 0.50, 0.41, c).Set(MiddlePIP, 0.50, 0.53, c).Set(MiddleDIP, 0.50, 0.63, c).Set(MiddleTip, 0.50, 0.72, c)
	f.Set(RingMCP, 0.56, 0.40, c).Set(RingPIP, 0.57, 0.50, c).Set(RingDIP, 0.58, 0.58, c).Set(RingTip, 0.58, 0.65, c)
	f.Set(PinkyMCP, 0.61, 0.37, c).Set(PinkyPIP, 0.63, 0.45, c).Set(PinkyDIP, 0.65, 0.50, c).Set(PinkyTip, 0.66, 0.55, c)

	return f
}

// ThumbsUpLandmarks returns a frame with a fist and the thumb pointing up.
func ThumbsUpLandmarks() *LandmarkFrame {
	f := newPreset()
	c := presetConfidence

	f.Set(Wrist, 0.50, 0.20, c)
	f.Set(ThumbCMC, 0.45, 0.27, c).Set(ThumbMCP, 0.43, 0.40, c).Set(ThumbIP, 0.43, 0.52, c).Set(ThumbTip, 0.42, 0.62, c)
	setCurledFingers(f)

	return f
}

// ThumbsDownLandmarks returns a frame with a fist and the thumb pointing down.
func ThumbsDownLandmarks() *LandmarkFrame {
	f := newPreset()
	c := presetConfidence

	f.Set(Wrist, 0.50, 0.50, c)
	f.Set(ThumbCMC, 0.51, 0.45, c).Set(ThumbMCP, 0.52, 0.38, c).Set(ThumbIP, 0.52, 0.30, c).Set(ThumbTip, 0.52, 0.20, c)
	f.Set(IndexMCP, 0.55, 0.45, c).Set(IndexPIP, 0.60, 0.44, c).Set(IndexDIP, 0.59, 0.41, c).Set(IndexTip, 0.57, 0.40, c)
	f.Set(MiddleMCP, 0.57, 0.44, c).Set(MiddlePIP, 0.62, 0.43, c).Set(MiddleDIP, 0.61, 0.40, c).Set(MiddleTip, 0.59, 0.39, c)
	f.Set(RingMCP, 0.58, 0.43, c).Set(RingPIP, 0.63, 0.42, c).Set(RingDIP, 0.62, 0.39, c).Set(RingTip, 0.60, 0.38, c)
	f.Set(PinkyMCP, 0.58, 0.42, c).Set(PinkyPIP, 0.62, 0.41, c).Set(PinkyDIP, 0.61, 0.38, c).Set(PinkyTip, 0.60, 0.37, c)

	return f
}

// PinchLandmarks returns a frame with thumb and index tips touching and the
// remaining fingers folded.
func PinchLandmarks() *LandmarkFrame {
	f := newPreset()
	c := presetConfidence

	f.Set(Wrist, 0.50, 0.20, c)
	f.Set(ThumbCMC, 0.45, 0.27, c).Set(ThumbMCP, 0.41, 0.38, c).Set(ThumbIP, 0.40, 0.48, c).Set(ThumbTip, 0.45, 0.55, c)
	f.Set(IndexMCP, 0.46, 0.42, c).Set(IndexPIP, 0.48, 0.55, c).Set(IndexDIP, 0.49, 0.62, c).Set(IndexTip, 0.47, 0.57, c)
	f.Set(MiddleMCP, 0.50, 0.41, c).Set(MiddlePIP, 0.51, 0.37, c).Set(MiddleDIP, 0.52, 0.31, c).Set(MiddleTip, 0.52, 0.28, c)
	f.Set(RingMCP, 0.56, 0.40, c).Set(RingPIP, 0.56, 0.36, c).Set(RingDIP, 0.56, 0.31, c).Set(RingTip, 0.56, 0.28, c)
	f.Set(PinkyMCP, 0.61, 0.38, c).Set(PinkyPIP, 0.61, 0.34, c).Set(PinkyDIP, 0.61, 0.30, c).Set(PinkyTip, 0.61, 0.27, c)

	return f
}

// FistLandmarks returns a closed fist with the thumb tucked, which matches no gesture.
func FistLandmarks() *LandmarkFrame {
	f := newPreset()
	c := presetConfidence

	f.Set(Wrist, 0.50, 0.20, c)
	f.Set(ThumbCMC, 0.45, 0.25, c).Set(ThumbMCP, 0.42, 0.30, c).Set(ThumbIP, 0.44, 0.33, c).Set(ThumbTip, 0.47, 0.33, c)
	setCurledFingers(f)

	return f
}

// Translate returns a copy of f shifted by (dx, dy).
func Translate(f *LandmarkFrame, dx, dy float64) *LandmarkFrame {
	out := *f
	for i := range out.Points {
		if out.Points[i].Confidence > 0 {
			out.Points[i].X += dx
			out.Points[i].Y += dy
		}
	}
	return &out
}
