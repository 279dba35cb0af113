// Package tray provides the menu bar interface for mudra.
package tray

import (
	"fmt"
	"sync"

	"github.com/getlantern/systray"

	"github.com/ayusman/mudra/internal/calibration"
	"github.com/ayusman/mudra/internal/gesture"
)

// Tray represents the menu bar application. It observes recognition and
// calibration so its menu reflects changes made from the settings UI.
type Tray struct {
	onToggle   func(enabled bool)
	onSettings func()
	onQuit     func()
	enabled    bool
	last       string
	status     string
	mu         sync.RWMutex

	// Menu items stored for later updates
	menuToggle      *systray.MenuItem
	menuLastGesture *systray.MenuItem
	menuCalibration *systray.MenuItem
}

// New creates a new Tray instance with enabled state set to true by default.
func New() *Tray {
	return &Tray{
		enabled: true,
		status:  calibrationTitle(calibration.Status{}),
	}
}

// OnToggle sets the callback function to be called when the enabled state is toggled.
func (t *Tray) OnToggle(fn func(enabled bool)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onToggle = fn
}

// OnSettings sets the callback function to be called when the settings menu item is clicked.
func (t *Tray) OnSettings(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onSettings = fn
}

// OnQuit sets the callback function to be called when the quit menu item is clicked.
func (t *Tray) OnQuit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onQuit = fn
}

// Run starts the system tray application.
// This function blocks until systray.Quit() is called.
func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

// Quit closes the tray and makes Run return.
func (t *Tray) Quit() {
	systray.Quit()
}

func (t *Tray) onReady() {
	systray.SetTitle("Mudra")
	systray.SetTooltip("Mudra Gesture Control")

	t.mu.Lock()
	t.menuToggle = systray.AddMenuItem(toggleTitle(t.enabled), "Toggle gesture recognition")
	systray.AddSeparator()

	t.menuLastGesture = systray.AddMenuItem(lastGestureTitle(t.last), "Last detected gesture")
	t.menuLastGesture.Disable()
	t.menuCalibration = systray.AddMenuItem(t.status, "Calibration progress")
	t.menuCalibration.Disable()
	systray.AddSeparator()
	t.mu.Unlock()

	menuSettings := systray.AddMenuItem("Open Settings...", "Open settings in browser")
	systray.AddSeparator()

	menuQuit := systray.AddMenuItem("Quit", "Quit Mudra")

	go func() {
		for {
			select {
			case <-t.menuToggle.ClickedCh:
				t.handleToggle()
			case <-menuSettings.ClickedCh:
				t.handleSettings()
			case <-menuQuit.ClickedCh:
				t.handleQuit()
				return
			}
		}
	}()
}

func (t *Tray) onExit() {}

func (t *Tray) handleToggle() {
	t.mu.Lock()
	enabled := !t.enabled
	callback := t.onToggle
	t.mu.Unlock()

	// The callback reports back through RecognitionChanged.
	if callback != nil {
		callback(enabled)
	} else {
		t.RecognitionChanged(enabled)
	}
}

func (t *Tray) handleSettings() {
	t.mu.RLock()
	callback := t.onSettings
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
}

func (t *Tray) handleQuit() {
	t.mu.RLock()
	callback := t.onQuit
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}

	systray.Quit()
}

// SetLastGesture updates the last gesture display in the menu.
func (t *Tray) SetLastGesture(name string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.last = name
	if t.menuLastGesture != nil {
		t.menuLastGesture.SetTitle(lastGestureTitle(name))
	}
}

// IsEnabled returns the current enabled state.
func (t *Tray) IsEnabled() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.enabled
}

// CalibrationLine returns the text of the calibration status item.
func (t *Tray) CalibrationLine() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.status
}

func (t *Tray) setStatus(s string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.status = s
	if t.menuCalibration != nil {
		t.menuCalibration.SetTitle(s)
	}
}

func (t *Tray) GestureDetected(ev gesture.Event) {
	t.SetLastGesture(ev.Kind.String())
}

func (t *Tray) RecognitionChanged(enabled bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.enabled = enabled
	if t.menuToggle != nil {
		t.menuToggle.SetTitle(toggleTitle(enabled))
	}
}

func (t *Tray) CalibrationStateChanged(st calibration.Status) {
	t.setStatus(calibrationTitle(st))
}

func (t *Tray) CalibrationProgress(k gesture.Kind, collected, required int) {
	t.setStatus(fmt.Sprintf("Calibrating %s: %d/%d", k, collected, required))
}

func toggleTitle(enabled bool) string {
	if enabled {
		return "● Enabled"
	}
	return "○ Disabled"
}

func lastGestureTitle(name string) string {
	if name == "" {
		return "Last: none"
	}
	return "Last: " + name
}

func calibrationTitle(st calibration.Status) string {
	switch st.State {
	case calibration.StateNotStarted:
		return "Calibration: idle"
	case calibration.StateTransition:
		if st.Gesture != nil {
			return "Get ready: " + st.Gesture.String()
		}
	case calibration.StateCalibrating:
		if st.Gesture != nil {
			for _, p := range st.Progress {
				if p.Gesture == *st.Gesture {
					return fmt.Sprintf("Calibrating %s: %d/%d", p.Gesture, p.Collected, p.Required)
				}
			}
			return "Calibrating " + st.Gesture.String()
		}
	case calibration.StateReview:
		if st.Error != "" {
			return "Calibration: save failed"
		}
		return "Calibration: ready to save"
	case calibration.StateCompleted:
		return fmt.Sprintf("Calibration: saved %q", st.ProfileName)
	}
	return "Calibration: " + st.State.String()
}
