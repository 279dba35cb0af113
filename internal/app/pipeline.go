package app

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/ayusman/mudra/internal/calibration"
	"github.com/ayusman/mudra/internal/capture"
	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/gesture"
)

// Submit hands a detector result to the worker without blocking. A nil frame
// means no hand was seen. If the worker has not taken the previous frame yet,
// f is dropped and false is returned.
func (a *App) Submit(f *detector.LandmarkFrame) bool {
	at := a.now()
	if f != nil {
		if f.Timestamp.IsZero() {
			f.Timestamp = at
		}
		at = f.Timestamp
	}

	select {
	case a.frames <- frameMsg{frame: f, at: at}:
		return true
	default:
		a.dropped.Add(1)
		return false
	}
}

// SetCalibrationMode queues a routing change for the worker. It never blocks,
// so the calibration coordinator may call it while holding its locks.
func (a *App) SetCalibrationMode(enabled bool, target gesture.Kind) {
	a.pending.Store(&Mode{Calibrating: enabled, Target: target})
	select {
	case a.nudge <- struct{}{}:
	default:
	}
}

// runWorker owns the confirmer and the routing mode. Every frame is handled
// to completion before the next is taken.
func (a *App) runWorker(ctx context.Context) {
	defer a.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-a.nudge:
			a.applyMode()
		case msg := <-a.frames:
			a.applyMode()
			a.process(ctx, msg)
		}
	}
}

func (a *App) applyMode() {
	m := a.pending.Swap(nil)
	if m == nil || *m == a.mode {
		return
	}
	a.mode = *m
	a.confirmer.Reset()
	a.lastSample = time.Time{}
	a.applied.Store(m)
	if m.Calibrating {
		log.Printf("Frame routing: calibration (%s)", m.Target)
	} else {
		log.Println("Frame routing: recognition")
	}
}

func (a *App) process(ctx context.Context, msg frameMsg) {
	if a.mode.Calibrating {
		a.offerSample(msg)
		return
	}

	if !a.enabled.Load() {
		if a.active {
			a.confirmer.Reset()
			a.active = false
		}
		return
	}
	a.active = true

	ev, ok := a.confirmer.Process(msg.frame, msg.at, *a.thresholds.Load())
	if !ok {
		return
	}
	log.Printf("Gesture confirmed: %s", ev.Kind)

	select {
	case a.events <- ev:
	case <-ctx.Done():
	default:
		log.Printf("Dispatcher busy, dropping %s", ev.Kind)
	}
}

// offerSample forwards at most one frame per SampleInterval to the
// coordinator. Rejected frames do not consume the interval.
func (a *App) offerSample(msg frameMsg) {
	if msg.frame == nil {
		return
	}
	if !a.lastSample.IsZero() && msg.at.Sub(a.lastSample) < a.cfg.SampleInterval {
		return
	}

	_, err := a.coordinator.AddSample(msg.frame)
	switch {
	case err == nil:
		a.lastSample = msg.at
	case errors.Is(err, calibration.ErrNotCollecting),
		errors.Is(err, calibration.ErrLowConfidence),
		errors.Is(err, calibration.ErrMissingJoints),
		errors.Is(err, calibration.ErrSessionFull):
	default:
		log.Printf("Calibration sample rejected: %v", err)
	}
}

// runCapture reads the camera at its frame rate, runs the detector and
// submits the result. Read and detection failures skip the frame.
func (a *App) runCapture(ctx context.Context) {
	defer a.wg.Done()

	cam := a.cfg.Camera
	ticker := time.NewTicker(time.Second / time.Duration(cam.FPS()))
	defer ticker.Stop()

	var lastErr string
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		mat, err := cam.ReadFrame()
		if err != nil {
			if errors.Is(err, capture.ErrCameraNotOpen) {
				return
			}
			if err.Error() != lastErr {
				log.Printf("Error reading frame: %v", err)
				lastErr = err.Error()
			}
			continue
		}

		f, err := a.cfg.Detector.Detect(mat)
		mat.Close()
		if err != nil {
			if err.Error() != lastErr {
				log.Printf("Error detecting hand: %v", err)
				lastErr = err.Error()
			}
			continue
		}
		lastErr = ""
		a.Submit(f)
	}
}
