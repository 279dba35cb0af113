// Package app wires capture, detection, gesture recognition, calibration and
// plugin dispatch into the running mudra service.
package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ayusman/mudra/internal/calibration"
	"github.com/ayusman/mudra/internal/capture"
	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/plugin"
	"github.com/ayusman/mudra/internal/store"
)

// eventBuffer is how many confirmed events may wait for the dispatcher.
const eventBuffer = 16

// Config holds the collaborators and tuning of an App.
type Config struct {
	Store     *store.Store
	Plugins   *plugin.Manager
	Executor  *plugin.Executor
	Camera    capture.Camera    // nil disables the capture loop; frames come from Submit
	Detector  detector.Detector // required when Camera is set

	Calibration calibration.Config
	// SampleInterval is the minimum spacing between frames offered to the
	// calibration coordinator.
	SampleInterval time.Duration

	// Now is the clock for frames without a timestamp. Defaults to time.Now.
	Now func() time.Time
}

// Observer is told about recognition activity. Callbacks run on the
// dispatcher goroutine or the caller of SetEnabled and must not block.
type Observer interface {
	GestureDetected(gesture.Event)
	RecognitionChanged(enabled bool)
}

// Mode is the frame routing currently applied by the worker.
type Mode struct {
	Calibrating bool         `json:"calibrating"`
	Target      gesture.Kind `json:"target"`
}

type frameMsg struct {
	frame *detector.LandmarkFrame
	at    time.Time
}

// App routes landmark frames either to the gesture recognizer or to the
// calibration coordinator, and dispatches confirmed gestures to plugins.
type App struct {
	cfg         Config
	now         func() time.Time
	coordinator *calibration.Coordinator

	thresholds atomic.Pointer[gesture.Thresholds]
	profile    atomic.Pointer[store.Profile]
	enabled    atomic.Bool
	dropped    atomic.Uint64

	frames  chan frameMsg
	events  chan gesture.Event
	nudge   chan struct{}
	pending atomic.Pointer[Mode]
	applied atomic.Pointer[Mode]

	obsMu     sync.RWMutex
	observers []Observer

	// Worker-owned state.
	confirmer  *gesture.Confirmer
	mode       Mode
	active     bool
	lastSample time.Time

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New creates a stopped App with default thresholds and recognition enabled.
func New(cfg Config) *App {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Executor == nil {
		cfg.Executor = plugin.NewExecutor(plugin.DefaultTimeout)
	}

	a := &App{
		cfg:       cfg,
		now:       cfg.Now,
		frames:    make(chan frameMsg, 1),
		events:    make(chan gesture.Event, eventBuffer),
		nudge:     make(chan struct{}, 1),
		confirmer: gesture.NewConfirmer(),
	}
	defaults := gesture.DefaultThresholds()
	a.thresholds.Store(&defaults)
	a.applied.Store(&Mode{})
	a.enabled.Store(true)

	engine := calibration.NewEngine(gesture.DefaultThresholds())
	a.coordinator = calibration.NewCoordinator(cfg.Calibration, engine, a, a)
	return a
}

// Calibration returns the calibration coordinator driven by this App.
func (a *App) Calibration() *calibration.Coordinator {
	return a.coordinator
}

// AddObserver registers o for gesture and recognition notifications.
func (a *App) AddObserver(o Observer) {
	a.obsMu.Lock()
	defer a.obsMu.Unlock()
	a.observers = append(a.observers, o)
}

func (a *App) eachObserver(fn func(Observer)) {
	a.obsMu.RLock()
	defer a.obsMu.RUnlock()
	for _, o := range a.observers {
		fn(o)
	}
}

// SetEnabled turns gesture recognition on or off. Calibration is unaffected.
func (a *App) SetEnabled(enabled bool) {
	if a.enabled.Swap(enabled) == enabled {
		return
	}
	log.Printf("Gesture recognition enabled=%v", enabled)
	a.eachObserver(func(o Observer) { o.RecognitionChanged(enabled) })
}

// IsEnabled returns whether gesture recognition is on.
func (a *App) IsEnabled() bool {
	return a.enabled.Load()
}

// Thresholds returns the thresholds currently used for recognition.
func (a *App) Thresholds() gesture.Thresholds {
	return *a.thresholds.Load()
}

// ActiveProfile returns the profile whose thresholds are in use, or nil
// before one is loaded.
func (a *App) ActiveProfile() *store.Profile {
	return a.profile.Load()
}

// Mode returns the routing most recently applied by the worker.
func (a *App) Mode() Mode {
	return *a.applied.Load()
}

// Dropped returns how many frames were discarded because the worker was busy.
func (a *App) Dropped() uint64 {
	return a.dropped.Load()
}

func (a *App) useProfile(p *store.Profile) {
	t := p.Thresholds
	a.thresholds.Store(&t)
	a.profile.Store(p)
}

// LoadActiveProfile makes sure the default profile exists and applies the
// active one.
func (a *App) LoadActiveProfile() (*store.Profile, error) {
	if a.cfg.Store == nil {
		return nil, errors.New("no profile store configured")
	}
	if _, err := a.cfg.Store.Profiles().EnsureDefault(); err != nil {
		return nil, fmt.Errorf("ensure default profile: %w", err)
	}
	p, err := a.cfg.Store.Profiles().Active()
	if err != nil {
		return nil, fmt.Errorf("load active profile: %w", err)
	}
	a.useProfile(p)
	log.Printf("Using profile %q", p.Name)
	return p, nil
}

// ActivateProfile records id as the active profile and swaps in its thresholds.
func (a *App) ActivateProfile(id string) (*store.Profile, error) {
	if a.cfg.Store == nil {
		return nil, errors.New("no profile store configured")
	}
	if err := a.cfg.Store.Profiles().SetActive(id); err != nil {
		return nil, err
	}
	p, err := a.cfg.Store.Profiles().GetByID(id)
	if err != nil {
		return nil, err
	}
	a.useProfile(p)
	log.Printf("Switched to profile %q", p.Name)
	return p, nil
}

// ProfileChanged reloads the active thresholds if p is the active profile.
func (a *App) ProfileChanged(p *store.Profile) {
	if cur := a.profile.Load(); cur != nil && cur.ID == p.ID {
		a.useProfile(p)
	}
}

// ProfileDeleted falls back to the store's active profile if id was in use.
func (a *App) ProfileDeleted(id string) {
	cur := a.profile.Load()
	if cur == nil || cur.ID != id || a.cfg.Store == nil {
		return
	}
	p, err := a.cfg.Store.Profiles().Active()
	if err != nil {
		log.Printf("Reload profile after delete: %v", err)
		return
	}
	a.useProfile(p)
	log.Printf("Active profile deleted, using %q", p.Name)
}

// Start launches the worker and dispatcher, and the capture loop when a
// camera is configured. Starting a running App is a no-op.
func (a *App) Start() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.running {
		return nil
	}

	if a.cfg.Camera != nil {
		if a.cfg.Detector == nil {
			return errors.New("camera configured without a detector")
		}
		if err := a.cfg.Camera.Open(); err != nil {
			return err
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel
	a.running = true

	a.wg.Add(2)
	go a.runWorker(ctx)
	go a.runDispatcher(ctx)
	if a.cfg.Camera != nil {
		a.wg.Add(1)
		go a.runCapture(ctx)
	}

	log.Println("Detection pipeline started")
	return nil
}

// Stop halts every goroutine and clears hold counters, cooldown and
// trajectory before returning. Queued frames and events are discarded.
func (a *App) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.running {
		return
	}
	a.cancel()
	a.wg.Wait()
	a.running = false

	a.confirmer.Reset()
	a.active = false
	a.lastSample = time.Time{}
	drain(a.frames)
	drain(a.events)

	if a.cfg.Camera != nil {
		if err := a.cfg.Camera.Close(); err != nil {
			log.Printf("Error closing camera: %v", err)
		}
	}

	log.Println("Detection pipeline stopped")
}

// Close stops the App and releases the detector.
func (a *App) Close() error {
	a.Stop()
	a.coordinator.Cancel()
	if a.cfg.Detector != nil {
		return a.cfg.Detector.Close()
	}
	return nil
}

// Running reports whether the pipeline is started.
func (a *App) Running() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.running
}

func drain[T any](ch chan T) {
	for {
		select {
		case <-ch:
		default:
			return
		}
	}
}
