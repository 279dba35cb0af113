package tray

import (
	"testing"

	"github.com/ayusman/mudra/internal/calibration"
	"github.com/ayusman/mudra/internal/gesture"
)

func TestCalibrationTitle(t *testing.T) {
	pinch := gesture.Pinch
	progress := []calibration.GestureProgress{
		{Gesture: gesture.OpenPalm, Collected: 10, Required: 10},
		{Gesture: gesture.Pinch, Collected: 3, Required: 10},
	}

	tests := []struct {
		name string
		st   calibration.Status
		want string
	}{
		{"idle", calibration.Status{}, "Calibration: idle"},
		{"welcome", calibration.Status{State: calibration.StateWelcome}, "Calibration: welcome"},
		{"transition", calibration.Status{State: calibration.StateTransition, Gesture: &pinch}, "Get ready: pinch"},
		{"calibrating", calibration.Status{State: calibration.StateCalibrating, Gesture: &pinch, Progress: progress}, "Calibrating pinch: 3/10"},
		{"processing", calibration.Status{State: calibration.StateProcessing}, "Calibration: processing"},
		{"review", calibration.Status{State: calibration.StateReview}, "Calibration: ready to save"},
		{"review after failure", calibration.Status{State: calibration.StateReview, Error: "disk full"}, "Calibration: save failed"},
		{"completed", calibration.Status{State: calibration.StateCompleted, ProfileName: "desk"}, `Calibration: saved "desk"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := calibrationTitle(tt.st); got != tt.want {
				t.Errorf("calibrationTitle() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTray_Observers(t *testing.T) {
	tr := New()

	if !tr.IsEnabled() {
		t.Error("tray should start enabled")
	}
	tr.RecognitionChanged(false)
	if tr.IsEnabled() {
		t.Error("RecognitionChanged(false) should disable")
	}

	tr.GestureDetected(gesture.Event{Kind: gesture.SwipeLeft})
	tr.mu.RLock()
	last := tr.last
	tr.mu.RUnlock()
	if last != "swipe_left" {
		t.Errorf("last = %q, want swipe_left", last)
	}

	tr.CalibrationProgress(gesture.ThumbsUp, 4, 10)
	if got := tr.CalibrationLine(); got != "Calibrating thumbs_up: 4/10" {
		t.Errorf("CalibrationLine() = %q", got)
	}
}

func TestTray_ToggleWithoutCallback(t *testing.T) {
	tr := New()
	tr.handleToggle()
	if tr.IsEnabled() {
		t.Error("toggle without callback should flip the state locally")
	}
}

func TestTray_ToggleCallback(t *testing.T) {
	tr := New()
	var got []bool
	tr.OnToggle(func(enabled bool) { got = append(got, enabled) })

	tr.handleToggle()
	if len(got) != 1 || got[0] {
		t.Errorf("callback calls = %v, want [false]", got)
	}
	// State follows the app's report, not the click.
	if !tr.IsEnabled() {
		t.Error("state should change only through RecognitionChanged")
	}
}
