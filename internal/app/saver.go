package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/ayusman/mudra/internal/calibration"
	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/store"
)

// SaveCalibratedProfile stores a calibration result with its samples, makes
// it the active profile and starts recognizing with it.
func (a *App) SaveCalibratedProfile(ctx context.Context, name string, t gesture.Thresholds, samples []calibration.Sample) (string, error) {
	if a.cfg.Store == nil {
		return "", errors.New("no profile store configured")
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	data := make([]store.SampleData, 0, len(samples))
	for _, s := range samples {
		raw, err := json.Marshal(s)
		if err != nil {
			return "", fmt.Errorf("encode %s sample: %w", s.Gesture, err)
		}
		data = append(data, store.SampleData{Gesture: s.Gesture, Data: raw})
	}

	p := &store.Profile{Name: name, Thresholds: t}
	if err := a.cfg.Store.SaveCalibrated(p, data); err != nil {
		return "", err
	}

	a.useProfile(p)
	log.Printf("Saved calibrated profile %q with %d samples", p.Name, len(data))
	return p.ID, nil
}
