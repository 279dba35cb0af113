// Package calibration collects guided gesture samples and derives per-user
// thresholds from them.
package calibration

import (
	"time"

	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/gesture"
)

// Session defaults.
const (
	DefaultRequiredSamples = 10
	DefaultMinConfidence   = 0.5
)

// Sample is one accepted observation of a gesture during calibration.
type Sample struct {
	Gesture    gesture.Kind           `json:"gesture"`
	Timestamp  time.Time              `json:"timestamp"`
	Frame      detector.LandmarkFrame `json:"frame"`
	Confidence float64                `json:"confidence"`
}

// NewSample snapshots a frame as a sample of k. Timestamp and confidence come
// from the frame.
func NewSample(k gesture.Kind, f *detector.LandmarkFrame) Sample {
	return Sample{
		Gesture:    k,
		Timestamp:  f.Timestamp,
		Frame:      *f,
		Confidence: f.Confidence,
	}
}

// Session accumulates samples for one gesture in acceptance order.
// Not safe for concurrent use.
type Session struct {
	Gesture       gesture.Kind
	Required      int
	MinConfidence float64

	samples []Sample
}

// NewSession creates a session with the default sample count and confidence gate.
func NewSession(k gesture.Kind) *Session {
	return &Session{
		Gesture:       k,
		Required:      DefaultRequiredSamples,
		MinConfidence: DefaultMinConfidence,
	}
}

// AddSample appends s if it belongs to this session, passes the confidence
// gate, carries the wrist and five fingertips, and the session is not full.
// A rejected sample leaves the session unchanged.
func (s *Session) AddSample(sample Sample) error {
	switch {
	case sample.Gesture != s.Gesture:
		return ErrWrongGesture
	case sample.Confidence < s.MinConfidence:
		return ErrLowConfidence
	case !sample.Frame.HasJoints(detector.MinimumJoints[:]...):
		return ErrMissingJoints
	case len(s.samples) >= s.Required:
		return ErrSessionFull
	}
	s.samples = append(s.samples, sample)
	return nil
}

// RemoveLastSample drops the most recent sample.
func (s *Session) RemoveLastSample() (Sample, bool) {
	if len(s.samples) == 0 {
		return Sample{}, false
	}
	last := s.samples[len(s.samples)-1]
	s.samples = s.samples[:len(s.samples)-1]
	return last, true
}

// Reset drops every sample.
func (s *Session) Reset() {
	s.samples = nil
}

// Len returns the number of accepted samples.
func (s *Session) Len() int {
	return len(s.samples)
}

// IsComplete reports whether the required number of samples has been reached.
func (s *Session) IsComplete() bool {
	return len(s.samples) >= s.Required
}

// Progress returns the completed fraction, capped at 1.
func (s *Session) Progress() float64 {
	if s.Required <= 0 {
		return 1
	}
	return min(1.0, float64(len(s.samples))/float64(s.Required))
}

// Samples returns a copy of the accepted samples.
func (s *Session) Samples() []Sample {
	out := make([]Sample, len(s.samples))
	copy(out, s.samples)
	return out
}

// clone returns an independent copy, used to hand a snapshot to the engine.
func (s *Session) clone() *Session {
	c := *s
	c.samples = s.Samples()
	return &c
}
