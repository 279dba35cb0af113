package calibration

import (
	"context"
	"fmt"
	"log"
	"slices"
	"sync"
	"time"

	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/gesture"
)

// State is a step of the guided calibration workflow.
type State int

const (
	StateNotStarted State = iota
	StateWelcome
	StateTransition
	StateCalibrating
	StateProcessing
	StateReview
	StateCompleted
)

var stateNames = [...]string{
	StateNotStarted:  "not_started",
	StateWelcome:     "welcome",
	StateTransition:  "transition",
	StateCalibrating: "calibrating",
	StateProcessing:  "processing",
	StateReview:      "review",
	StateCompleted:   "completed",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("State(%d)", int(s))
	}
	return stateNames[s]
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *State) UnmarshalText(b []byte) error {
	for i, name := range stateNames {
		if name == string(b) {
			*s = State(i)
			return nil
		}
	}
	return fmt.Errorf("unknown calibration state %q", b)
}

// ModeSwitch toggles frame routing between recognition and sample collection.
// Implementations must not block.
type ModeSwitch interface {
	SetCalibrationMode(enabled bool, target gesture.Kind)
}

// ProfileSaver persists a calibrated profile, makes it active, and returns its id.
type ProfileSaver interface {
	SaveCalibratedProfile(ctx context.Context, name string, t gesture.Thresholds, samples []Sample) (string, error)
}

// Observer receives workflow notifications in order. Callbacks run while the
// coordinator is serializing operations, so they may read Status but must not
// call other Coordinator methods synchronously.
type Observer interface {
	CalibrationStateChanged(Status)
	CalibrationProgress(k gesture.Kind, collected, required int)
}

// GestureProgress is the collection state of one gesture.
type GestureProgress struct {
	Gesture   gesture.Kind `json:"gesture"`
	Collected int          `json:"collected"`
	Required  int          `json:"required"`
	Skipped   bool         `json:"skipped,omitempty"`
}

// Status is a point-in-time snapshot of the coordinator.
type Status struct {
	State       State                       `json:"state"`
	ProfileName string                      `json:"profile_name,omitempty"`
	Gesture     *gesture.Kind               `json:"gesture,omitempty"`
	Progress    []GestureProgress           `json:"progress"`
	Thresholds  *gesture.Thresholds         `json:"thresholds,omitempty"`
	Shortfalls  []*InsufficientSamplesError `json:"shortfalls,omitempty"`
	ProfileID   string                      `json:"profile_id,omitempty"`
	Error       string                      `json:"error,omitempty"`
}

// Config holds workflow tuning.
type Config struct {
	RequiredSamples int
	MinConfidence   float64
	// AdvanceDelay is the pause after a gesture completes before the next one
	// starts. Zero advances immediately.
	AdvanceDelay time.Duration
	// TransitionPause lets the user prepare before each gesture. Zero skips
	// the Transition state.
	TransitionPause time.Duration
}

// DefaultConfig returns the standard workflow timing.
func DefaultConfig() Config {
	return Config{
		RequiredSamples: DefaultRequiredSamples,
		MinConfidence:   DefaultMinConfidence,
		AdvanceDelay:    time.Second,
		TransitionPause: 2 * time.Second,
	}
}

// Coordinator sequences sample collection across the six gestures, runs the
// engine, and hands the result to the profile store.
type Coordinator struct {
	// opMu serializes operations and observer delivery. It is always taken
	// before mu.
	opMu sync.Mutex
	mu   sync.Mutex

	cfg       Config
	engine    *Engine
	saver     ProfileSaver
	mode      ModeSwitch
	observers []Observer

	state      State
	name       string
	index      int
	sessions   [gesture.NumKinds]*Session
	skipped    [gesture.NumKinds]bool
	computed   *gesture.Thresholds
	shortfalls []*InsufficientSamplesError
	lastErr    error
	profileID  string

	// gen invalidates scheduled advances and in-flight engine runs.
	gen   uint64
	timer *time.Timer
}

// NewCoordinator creates an idle coordinator. mode may be nil.
func NewCoordinator(cfg Config, engine *Engine, saver ProfileSaver, mode ModeSwitch) *Coordinator {
	if cfg.RequiredSamples <= 0 {
		cfg.RequiredSamples = DefaultRequiredSamples
	}
	c := &Coordinator{
		cfg:    cfg,
		engine: engine,
		saver:  saver,
		mode:   mode,
	}
	c.resetSessionsLocked()
	return c
}

// AddObserver registers o for future notifications.
func (c *Coordinator) AddObserver(o Observer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.observers = append(c.observers, o)
}

// Status returns a snapshot of the workflow.
func (c *Coordinator) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.statusLocked()
}

// State returns the current workflow state.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Start opens a new calibration for a profile called name.
func (c *Coordinator) Start(name string) error {
	if name == "" {
		return ErrEmptyName
	}
	return c.do(func(n *notes) error {
		if c.state != StateNotStarted && c.state != StateCompleted {
			return invalidState("start", c.state)
		}
		c.clearLocked()
		c.name = name
		c.state = StateWelcome
		c.stateChangedLocked(n)
		return nil
	})
}

// Begin leaves the welcome step and starts with the first gesture.
func (c *Coordinator) Begin() error {
	return c.do(func(n *notes) error {
		if c.state != StateWelcome {
			return invalidState("begin", c.state)
		}
		c.invalidateLocked()
		c.enterGestureLocked(n, 0)
		return nil
	})
}

// AddSample offers a frame as a sample of the gesture being collected.
func (c *Coordinator) AddSample(f *detector.LandmarkFrame) (Sample, error) {
	var sample Sample
	err := c.do(func(n *notes) error {
		if c.state != StateCalibrating {
			return ErrNotCollecting
		}
		if f == nil {
			return ErrMissingJoints
		}

		k := gesture.Kinds[c.index]
		s := c.sessions[k]
		if s.IsComplete() {
			return ErrSessionFull
		}
		sample = NewSample(k, f)
		if err := s.AddSample(sample); err != nil {
			return err
		}

		c.progressLocked(n, k)
		if s.IsComplete() {
			c.scheduleLocked(n, c.cfg.AdvanceDelay, c.advanceLocked)
		}
		return nil
	})
	return sample, err
}

// RemoveLastSample drops the most recent sample of the current gesture.
func (c *Coordinator) RemoveLastSample() (Sample, error) {
	var sample Sample
	err := c.do(func(n *notes) error {
		if c.state != StateCalibrating {
			return invalidState("undo", c.state)
		}
		k := gesture.Kinds[c.index]
		removed, ok := c.sessions[k].RemoveLastSample()
		if !ok {
			return ErrNoSamples
		}
		sample = removed
		// A completed session may have an advance pending.
		c.invalidateLocked()
		c.progressLocked(n, k)
		return nil
	})
	return sample, err
}

// Skip moves past the current gesture. Its samples are discarded so it keeps
// the default sub-thresholds.
func (c *Coordinator) Skip() error {
	return c.do(func(n *notes) error {
		if c.state != StateCalibrating && c.state != StateTransition {
			return invalidState("skip", c.state)
		}
		c.invalidateLocked()
		k := gesture.Kinds[c.index]
		c.sessions[k].Reset()
		c.skipped[k] = true
		c.advanceLocked(n)
		return nil
	})
}

// Recalibrate discards the samples of k and collects it again. Gestures after
// k that are already complete or skipped are not revisited.
func (c *Coordinator) Recalibrate(k gesture.Kind) error {
	if !k.Valid() {
		return fmt.Errorf("recalibrate: unknown gesture %d", int(k))
	}
	return c.do(func(n *notes) error {
		switch c.state {
		case StateTransition, StateCalibrating, StateProcessing, StateReview:
		default:
			return invalidState("recalibrate", c.state)
		}
		c.invalidateLocked()
		c.computed = nil
		c.shortfalls = nil
		c.lastErr = nil
		c.sessions[k].Reset()
		c.skipped[k] = false
		c.enterGestureLocked(n, slices.Index(gesture.Kinds[:], k))
		return nil
	})
}

// Save persists the computed profile. On store failure the profile is kept
// and a *SaveFailedError is returned so the save can be retried.
func (c *Coordinator) Save(ctx context.Context) (string, error) {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	c.mu.Lock()
	if c.state != StateReview {
		st := c.state
		c.mu.Unlock()
		return "", invalidState("save", st)
	}
	if c.computed == nil {
		err := c.lastErr
		c.mu.Unlock()
		if err == nil {
			err = ErrNoProfile
		}
		return "", err
	}
	th := *c.computed
	name := c.name
	samples := c.samplesLocked()
	c.mu.Unlock()

	var err error
	id := ""
	if verr := th.Validate(); verr != nil {
		err = &InvalidThresholdsError{Err: verr}
	} else if id, err = c.saver.SaveCalibratedProfile(ctx, name, th, samples); err != nil {
		err = &SaveFailedError{Err: err}
	}

	var n notes
	c.mu.Lock()
	if err != nil {
		c.lastErr = err
	} else {
		c.lastErr = nil
		c.profileID = id
		c.state = StateCompleted
	}
	c.stateChangedLocked(&n)
	c.mu.Unlock()
	n.deliver()

	if err != nil {
		log.Printf("Calibration save failed for %q: %v", name, err)
		return "", err
	}
	log.Printf("Calibrated profile %q saved as %s", name, id)
	return id, nil
}

// Cancel abandons the workflow from any state and restores recognition.
func (c *Coordinator) Cancel() {
	c.do(func(n *notes) error {
		wasIdle := c.state == StateNotStarted
		c.clearLocked()
		c.setModeLocked(n, false, 0)
		if !wasIdle {
			c.stateChangedLocked(n)
		}
		return nil
	})
}

func invalidState(op string, s State) error {
	return fmt.Errorf("%w: cannot %s while %s", ErrInvalidState, op, s)
}

// notes collects observer callbacks to run after mu is released.
type notes []func()

func (n *notes) add(f func()) {
	*n = append(*n, f)
}

func (n notes) deliver() {
	for _, f := range n {
		f()
	}
}

func (c *Coordinator) do(fn func(n *notes) error) error {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	var n notes
	c.mu.Lock()
	err := fn(&n)
	c.mu.Unlock()
	n.deliver()
	return err
}

func (c *Coordinator) enterGestureLocked(n *notes, idx int) {
	for idx < len(gesture.Kinds) && c.resolvedLocked(gesture.Kinds[idx]) {
		idx++
	}
	if idx >= len(gesture.Kinds) {
		c.startProcessingLocked(n)
		return
	}

	c.index = idx
	k := gesture.Kinds[idx]
	c.setModeLocked(n, true, k)

	if c.cfg.TransitionPause > 0 {
		c.state = StateTransition
		c.stateChangedLocked(n)
		c.scheduleLocked(n, c.cfg.TransitionPause, func(n *notes) {
			c.state = StateCalibrating
			c.stateChangedLocked(n)
		})
		return
	}
	c.state = StateCalibrating
	c.stateChangedLocked(n)
}

func (c *Coordinator) advanceLocked(n *notes) {
	c.enterGestureLocked(n, c.index+1)
}

func (c *Coordinator) resolvedLocked(k gesture.Kind) bool {
	return c.skipped[k] || c.sessions[k].IsComplete()
}

func (c *Coordinator) startProcessingLocked(n *notes) {
	c.state = StateProcessing
	c.computed = nil
	c.shortfalls = nil
	c.lastErr = nil
	c.setModeLocked(n, false, 0)
	c.stateChangedLocked(n)

	snapshot := make(Sessions, len(c.sessions))
	for k, s := range c.sessions {
		snapshot[gesture.Kind(k)] = s.clone()
	}
	gen := c.gen
	engine := c.engine

	go func() {
		t, err := engine.ComputeThresholds(snapshot)
		c.do(func(n *notes) error {
			if c.gen != gen || c.state != StateProcessing {
				return nil
			}
			c.shortfalls = Shortfalls(snapshot)
			if err != nil {
				log.Printf("Calibration produced invalid thresholds: %v", err)
				c.lastErr = err
			} else {
				c.computed = &t
			}
			for _, sf := range c.shortfalls {
				log.Printf("Calibration: %v, keeping defaults", sf)
			}
			c.state = StateReview
			c.stateChangedLocked(n)
			return nil
		})
	}()
}

// scheduleLocked runs step after d unless the workflow moves on first.
func (c *Coordinator) scheduleLocked(n *notes, d time.Duration, step func(n *notes)) {
	c.stopTimerLocked()
	if d <= 0 {
		step(n)
		return
	}
	gen := c.gen
	c.timer = time.AfterFunc(d, func() {
		c.do(func(n *notes) error {
			if c.gen != gen {
				return nil
			}
			c.timer = nil
			step(n)
			return nil
		})
	})
}

func (c *Coordinator) stopTimerLocked() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

func (c *Coordinator) invalidateLocked() {
	c.gen++
	c.stopTimerLocked()
}

func (c *Coordinator) clearLocked() {
	c.invalidateLocked()
	c.resetSessionsLocked()
	c.state = StateNotStarted
	c.name = ""
	c.index = 0
	c.computed = nil
	c.shortfalls = nil
	c.lastErr = nil
	c.profileID = ""
}

func (c *Coordinator) resetSessionsLocked() {
	for _, k := range gesture.Kinds {
		s := NewSession(k)
		s.Required = c.cfg.RequiredSamples
		if c.cfg.MinConfidence > 0 {
			s.MinConfidence = c.cfg.MinConfidence
		}
		c.sessions[k] = s
		c.skipped[k] = false
	}
}

func (c *Coordinator) samplesLocked() []Sample {
	var out []Sample
	for _, k := range gesture.Kinds {
		out = append(out, c.sessions[k].samples...)
	}
	return out
}

func (c *Coordinator) statusLocked() Status {
	st := Status{
		State:       c.state,
		ProfileName: c.name,
		Shortfalls:  slices.Clone(c.shortfalls),
		ProfileID:   c.profileID,
	}
	if c.state == StateTransition || c.state == StateCalibrating {
		k := gesture.Kinds[c.index]
		st.Gesture = &k
	}
	for _, k := range gesture.Kinds {
		s := c.sessions[k]
		st.Progress = append(st.Progress, GestureProgress{
			Gesture:   k,
			Collected: s.Len(),
			Required:  s.Required,
			Skipped:   c.skipped[k],
		})
	}
	if c.computed != nil {
		t := *c.computed
		st.Thresholds = &t
	}
	if c.lastErr != nil {
		st.Error = c.lastErr.Error()
	}
	return st
}

func (c *Coordinator) stateChangedLocked(n *notes) {
	st := c.statusLocked()
	obs := slices.Clone(c.observers)
	n.add(func() {
		for _, o := range obs {
			o.CalibrationStateChanged(st)
		}
	})
}

func (c *Coordinator) progressLocked(n *notes, k gesture.Kind) {
	s := c.sessions[k]
	collected, required := s.Len(), s.Required
	obs := slices.Clone(c.observers)
	n.add(func() {
		for _, o := range obs {
			o.CalibrationProgress(k, collected, required)
		}
	})
}

func (c *Coordinator) setModeLocked(n *notes, enabled bool, k gesture.Kind) {
	if c.mode == nil {
		return
	}
	m := c.mode
	n.add(func() { m.SetCalibrationMode(enabled, k) })
}
