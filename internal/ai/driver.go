// Package ai resolves behavior scripts into concrete actions, once per
// living non-player actor per turn.
package ai

import (
	"log/slog"

	"github.com/scottsen/veinborn/internal/script"
	"github.com/scottsen/veinborn/pkg/action"
	"github.com/scottsen/veinborn/pkg/event"
	"github.com/scottsen/veinborn/pkg/world"
)

// Behavior binds a behavior id to its script and flat configuration table,
// as loaded from a behavior pack.
type Behavior struct {
	Script string
	Config map[string]any
}

// Driver turns behavior decisions into executed actions. Every living
// actor attempts exactly one action per turn: a faulty or rejected
// decision degrades to a wander/idle fallback for that actor only, never
// to a skipped turn and never to an aborted tick.
type Driver struct {
	bridge    *script.Bridge
	registry  *action.Registry
	behaviors map[string]Behavior
	logger    *slog.Logger
}

// New creates a driver over the given script bridge, action registry and
// behavior table.
func New(bridge *script.Bridge, registry *action.Registry, behaviors map[string]Behavior, logger *slog.Logger) *Driver {
	return &Driver{
		bridge:    bridge,
		registry:  registry,
		behaviors: behaviors,
		logger:    logger,
	}
}

// Act runs one actor's turn: resolve its behavior, obtain a decision,
// validate and execute the resulting action. The returned error is
// reserved for engine invariant violations; everything a script can do
// wrong is absorbed here into the fallback path.
func (d *Driver) Act(f *world.Facade, actorID int64) (event.Outcome, error) {
	w := f.World()
	actor, ok := w.Entity(actorID)
	if !ok || !actor.Alive {
		// Died earlier in this tick; its turn is simply gone.
		return event.Outcome{}, nil
	}

	desc, faulted := d.decide(f, actorID)
	out, err := d.registry.Perform(f, actorID, desc)
	if err != nil {
		return event.Outcome{}, err
	}
	if out.Success {
		return out, nil
	}

	// Rejected decision: keep the reason, act out the fallback instead of
	// skipping the actor.
	reasons := out.Messages
	if !faulted {
		d.logger.Debug("decision rejected, using fallback",
			"actor_id", actorID, "kind", desc.Kind, "reason", reasons)
	}
	out, err = d.fallback(f, actorID)
	if err != nil {
		return event.Outcome{}, err
	}
	out.Messages = append(reasons, out.Messages...)
	return out, nil
}

// decide resolves the actor's behavior script and invokes it. It reports
// whether a script fault occurred (already logged, exactly once).
func (d *Driver) decide(f *world.Facade, actorID int64) (action.Descriptor, bool) {
	w := f.World()
	actor, _ := w.Entity(actorID)

	name := actor.Behavior()
	beh, ok := d.behaviors[name]
	if name == "" || !ok {
		d.logger.Warn("no behavior for actor, falling back",
			"actor_id", actorID, "behavior", name)
		return action.NewDescriptor(action.KindWander), false
	}

	desc, err := d.bridge.Decide(f.ScopedTo(actorID), beh.Script, actor.Clone(), beh.Config)
	if err != nil {
		d.logger.Warn("script fault, using fallback action",
			"actor_id", actorID, "behavior", name, "error", err)
		return action.NewDescriptor(action.KindWander), true
	}
	return desc, false
}

// fallback performs wander, degrading to idle (which cannot fail) if the
// actor has no cell to wander from.
func (d *Driver) fallback(f *world.Facade, actorID int64) (event.Outcome, error) {
	out, err := d.registry.Perform(f, actorID, action.NewDescriptor(action.KindWander))
	if err != nil || out.Success {
		return out, err
	}
	return d.registry.Perform(f, actorID, action.NewDescriptor(action.KindIdle))
}
