package calibration

import (
	"errors"
	"fmt"

	"github.com/ayusman/mudra/internal/gesture"
)

// Sample rejection reasons returned by Session.AddSample.
var (
	ErrWrongGesture  = errors.New("sample gesture does not match session")
	ErrLowConfidence = errors.New("sample confidence below minimum")
	ErrMissingJoints = errors.New("sample is missing required joints")
	ErrSessionFull   = errors.New("session already has the required samples")
)

// Coordinator errors.
var (
	ErrInvalidState  = errors.New("operation not allowed in current calibration state")
	ErrNotCollecting = errors.New("calibration is not collecting samples")
	ErrNoProfile     = errors.New("no computed profile to save")
	ErrEmptyName     = errors.New("profile name is required")
	ErrNoSamples     = errors.New("no samples to remove")
)

// InsufficientSamplesError reports a gesture that kept its default
// sub-thresholds because too few samples were collected. It is informational:
// calibration still completes.
type InsufficientSamplesError struct {
	Gesture   gesture.Kind `json:"gesture"`
	Collected int          `json:"collected"`
	Required  int          `json:"required"`
}

func (e *InsufficientSamplesError) Error() string {
	return fmt.Sprintf("insufficient samples for %s: collected %d, need %d", e.Gesture, e.Collected, e.Required)
}

// InvalidThresholdsError reports a computed profile that failed validation.
type InvalidThresholdsError struct {
	Err error
}

func (e *InvalidThresholdsError) Error() string {
	return fmt.Sprintf("computed thresholds invalid: %v", e.Err)
}

func (e *InvalidThresholdsError) Unwrap() error {
	return e.Err
}

// SaveFailedError reports that the profile store rejected the computed
// profile. The profile is kept so the save can be retried.
type SaveFailedError struct {
	Err error
}

func (e *SaveFailedError) Error() string {
	return fmt.Sprintf("save profile: %v", e.Err)
}

func (e *SaveFailedError) Unwrap() error {
	return e.Err
}
