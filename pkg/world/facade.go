package world

import (
	"errors"

	"github.com/scottsen/veinborn/pkg/entity"
	"github.com/scottsen/veinborn/pkg/event"
)

// ErrReadOnly is returned by mutating facade calls during a validate phase.
// The script bridge converts it into a validation failure, so side-effect
// freedom of validate is enforced mechanically rather than by script-author
// discipline.
var ErrReadOnly = errors.New("facade is read-only during validate")

// ErrOutOfScope is returned when a decision script tries to mutate an
// entity other than its own. Decision-time writes exist only so scripts can
// keep per-entity memory (cooldown stamps and the like) in their own stat
// map; global mutation is reserved for action execution.
var ErrOutOfScope = errors.New("decision scripts may only modify their own entity")

// Observer receives an internal event for every mutating facade call.
type Observer func(event.Event)

// Facade is the only interface exposed to behavior and action scripts, and
// the mutation surface built-in actions use. It is a closed set of narrow
// query and mutate operations: no raw memory, files, processes or network
// are reachable through it.
//
// Query operations degrade gracefully: a missing or dead target yields an
// absent value or empty result, never an error, so "no target" is a normal
// case for script logic.
type Facade struct {
	w        *World
	readOnly bool
	scope    int64 // when non-zero, mutations are limited to this entity
	observer Observer
}

// NewFacade wraps a world in its capability facade.
func NewFacade(w *World) *Facade {
	return &Facade{w: w}
}

// WithObserver returns a facade that reports every mutation to obs.
func (f *Facade) WithObserver(obs Observer) *Facade {
	c := *f
	c.observer = obs
	return &c
}

// ReadOnly returns a view of the same world whose mutating operations fail
// with ErrReadOnly. Validate phases run against this view.
func (f *Facade) ReadOnly() *Facade {
	c := *f
	c.readOnly = true
	return &c
}

// ScopedTo returns a view whose mutations are limited to the given entity.
// Decision scripts run against this view.
func (f *Facade) ScopedTo(id int64) *Facade {
	c := *f
	c.scope = id
	return &c
}

// Player returns a snapshot of the player entity, or nil if none exists.
func (f *Facade) Player() *entity.Entity {
	if p := f.w.Player(); p != nil {
		return p.Clone()
	}
	return nil
}

// Entity returns a snapshot of the entity with the given ID, or nil when
// absent. Absence is not an error.
func (f *Facade) Entity(id int64) *entity.Entity {
	if e, ok := f.w.Entity(id); ok {
		return e.Clone()
	}
	return nil
}

// EntitiesWithin returns snapshots of living entities within radius of a
// cell, ascending by ID.
func (f *Facade) EntitiesWithin(pos entity.Position, radius int) []*entity.Entity {
	live := f.w.EntitiesWithin(pos, radius)
	out := make([]*entity.Entity, len(live))
	for i, e := range live {
		out[i] = e.Clone()
	}
	return out
}

// ModifyStat adjusts a named numeric stat by delta. HP changes route
// through the clamped damage/heal paths. Modifying a missing or dead
// entity is a no-op so scripts degrade gracefully; read-only views refuse.
func (f *Facade) ModifyStat(id int64, key string, delta float64) error {
	if f.readOnly {
		return ErrReadOnly
	}
	if f.scope != 0 && id != f.scope {
		return ErrOutOfScope
	}
	e, ok := f.w.Entity(id)
	if !ok || !e.Alive {
		return nil
	}
	switch key {
	case entity.StatHP:
		if delta < 0 {
			e.TakeDamage(-delta)
		} else {
			e.Heal(delta)
		}
	default:
		e.Set(key, e.Number(key, 0)+delta)
	}
	f.observe(event.Event{
		Type:     event.TypeStatChange,
		TargetID: id,
		Amount:   delta,
		Payload:  map[string]any{"stat": key},
	})
	return nil
}

// SetStat writes a non-numeric or absolute stat value. Same degradation
// rules as ModifyStat.
func (f *Facade) SetStat(id int64, key string, value any) error {
	if f.readOnly {
		return ErrReadOnly
	}
	if f.scope != 0 && id != f.scope {
		return ErrOutOfScope
	}
	e, ok := f.w.Entity(id)
	if !ok || !e.Alive {
		return nil
	}
	e.Set(key, value)
	f.observe(event.Event{
		Type:     event.TypeStatChange,
		TargetID: id,
		Payload:  map[string]any{"stat": key, "value": value},
	})
	return nil
}

// Log appends a message to the world's message log.
func (f *Facade) Log(msg string) error {
	if f.readOnly {
		return ErrReadOnly
	}
	f.w.AppendLog(msg)
	return nil
}

// Distance returns the grid distance between two entities; ok is false
// when either side is missing, dead or unplaced.
func (f *Facade) Distance(a, b int64) (int, bool) {
	return f.w.Distance(a, b)
}

// Adjacent reports whether two entities occupy neighboring cells.
func (f *Facade) Adjacent(a, b int64) bool {
	return f.w.Adjacent(a, b)
}

// Turn returns the current turn counter.
func (f *Facade) Turn() int { return f.w.Turn() }

// Random returns a deterministic draw in [0, n) from the world's seeded
// source. Scripts must use this instead of their own randomness so replays
// stay byte-identical. Read-only views peek without advancing the
// generator, since the random state is part of the world's snapshot.
func (f *Facade) Random(n int) int {
	if f.readOnly {
		return f.w.PeekRandom(n)
	}
	return f.w.Random(n)
}

// World exposes the underlying store to built-in actions. Scripts never
// see this; the bridge binds only the methods above.
func (f *Facade) World() *World {
	if f.readOnly || f.scope != 0 {
		return nil
	}
	return f.w
}

func (f *Facade) observe(ev event.Event) {
	if f.observer != nil {
		f.observer(ev)
	}
}
