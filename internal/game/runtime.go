// Package game assembles the engine for a session: registry, behaviors
// and script bridge wired over a world restored from (or created for) a
// session.
package game

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/scottsen/veinborn/internal/ai"
	"github.com/scottsen/veinborn/internal/engine"
	"github.com/scottsen/veinborn/internal/script"
	"github.com/scottsen/veinborn/internal/storage"
	"github.com/scottsen/veinborn/pkg/action"
	"github.com/scottsen/veinborn/pkg/entity"
	"github.com/scottsen/veinborn/pkg/event"
	"github.com/scottsen/veinborn/pkg/world"
)

// Runtime is the per-process, session-independent machinery: the script
// bridge with its compile cache, and the logger. Engines are cheap and
// built per request over a restored world.
type Runtime struct {
	bridge *script.Bridge
	logger *slog.Logger
}

// NewRuntime wires a runtime over a script bridge.
func NewRuntime(bridge *script.Bridge, logger *slog.Logger) *Runtime {
	return &Runtime{bridge: bridge, logger: logger}
}

// Bridge exposes the script bridge (the validator uses it directly).
func (r *Runtime) Bridge() *script.Bridge { return r.bridge }

// BuildEngine wires an engine for a world using the given behavior pack:
// built-in actions plus the pack's scripted action kinds, and the pack's
// behavior table for the AI driver.
func (r *Runtime) BuildEngine(pack *storage.BehaviorPack, w *world.World) (*engine.Engine, error) {
	registry := action.NewRegistry()

	// Sorted so a duplicate-kind error is reported deterministically.
	kinds := make([]string, 0, len(pack.Actions))
	for kind := range pack.Actions {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)
	for _, kind := range kinds {
		ref := pack.Actions[kind]
		if err := registry.Register(action.NewScripted(kind, r.bridge.Backend(ref.Script))); err != nil {
			return nil, fmt.Errorf("pack %s: %w", pack.Name, err)
		}
	}

	behaviors := make(map[string]ai.Behavior, len(pack.Behaviors))
	for id, ref := range pack.Behaviors {
		behaviors[id] = ai.Behavior{Script: ref.Script, Config: ref.Config}
	}

	driver := ai.New(r.bridge, registry, behaviors, r.logger)
	return engine.New(w, registry, driver, r.logger), nil
}

// NewWorld creates a world and spawns the given entities into it in order,
// recording one spawn event each. The spawner is the only way entities
// come into being outside of snapshot restore.
func NewWorld(cfg world.Config, entities []entity.Entity) (*world.World, error) {
	w := world.New(cfg)
	for i := range entities {
		e := entities[i].Clone()
		id, err := w.Spawn(e)
		if err != nil {
			return nil, err
		}
		w.RecordEvents([]event.Event{event.Spawn(id)})
	}
	if w.Player() == nil {
		return nil, fmt.Errorf("world has no player entity")
	}
	return w, nil
}
