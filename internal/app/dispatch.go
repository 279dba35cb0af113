package app

import (
	"context"
	"errors"
	"log"

	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/plugin"
)

// runDispatcher notifies observers of confirmed gestures and runs the bound
// plugin action for each, one at a time in confirmation order.
func (a *App) runDispatcher(ctx context.Context) {
	defer a.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-a.events:
			a.eachObserver(func(o Observer) { o.GestureDetected(ev) })
			if err := a.dispatch(ctx, ev); err != nil {
				log.Printf("Action for %s failed: %v", ev.Kind, err)
			}
		}
	}
}

// dispatch executes the plugin action bound to ev's gesture. Unbound and
// disabled gestures are ignored.
func (a *App) dispatch(ctx context.Context, ev gesture.Event) error {
	if a.cfg.Store == nil || a.cfg.Plugins == nil {
		return nil
	}

	b, err := a.cfg.Store.Bindings().GetByGesture(ev.Kind)
	if err != nil {
		return err
	}
	if b == nil || !b.Enabled {
		return nil
	}

	p, err := a.cfg.Plugins.Resolve(b.PluginName, b.ActionName)
	if err != nil {
		return err
	}

	resp, err := a.cfg.Executor.Execute(ctx, p, &plugin.Request{
		Action:  b.ActionName,
		Gesture: ev.Kind,
		Time:    ev.Time,
		Config:  b.Config,
	})
	if err != nil {
		return err
	}
	if !resp.Success {
		return errors.New(resp.Error)
	}

	log.Printf("Executed %s/%s for %s", b.PluginName, b.ActionName, ev.Kind)
	return nil
}
