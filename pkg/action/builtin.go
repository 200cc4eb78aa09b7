package action

import (
	"fmt"

	"github.com/scottsen/veinborn/pkg/entity"
	"github.com/scottsen/veinborn/pkg/event"
	"github.com/scottsen/veinborn/pkg/world"
)

func builtins() []Action {
	return []Action{
		attackAction{},
		moveTowardsAction{},
		fleeFromAction{},
		wanderAction{},
		idleAction{},
		firestormAction{},
	}
}

// attackAction is a melee strike against an adjacent living target.
type attackAction struct{}

func (attackAction) Kind() string { return KindAttack }

func (attackAction) Validate(f *world.Facade, actorID int64, d Descriptor) (bool, string) {
	actor := f.Entity(actorID)
	if actor == nil || !actor.Alive {
		return false, "attacker is gone"
	}
	target := f.Entity(d.TargetID)
	if target == nil || !target.Alive {
		return false, "there is nothing to attack"
	}
	if !f.Adjacent(actorID, d.TargetID) {
		return false, fmt.Sprintf("%s is out of reach", target.Name)
	}
	return true, ""
}

func (attackAction) Execute(f *world.Facade, actorID int64, d Descriptor) (event.Outcome, error) {
	w := f.World()
	actor, _ := w.Entity(actorID)
	target, ok := w.Entity(d.TargetID)
	if actor == nil || !ok {
		return event.Outcome{}, fmt.Errorf("attack: entity vanished between validate and execute")
	}
	dmg := actor.Number(entity.StatAttack, 1)
	died := target.TakeDamage(dmg)

	out := event.Outcome{Success: true, TookTurn: true}
	out.AddMessage(fmt.Sprintf("%s hits %s for %.0f damage.", actor.Name, target.Name, dmg))
	out.AddEvent(event.Damage(actorID, target.ID, dmg))
	if died {
		out.AddMessage(fmt.Sprintf("%s dies.", target.Name))
		out.AddEvent(event.Death(target.ID))
	}
	return out, nil
}

// moveTowardsAction takes one step toward a target entity or cell.
type moveTowardsAction struct{}

func (moveTowardsAction) Kind() string { return KindMoveTowards }

func (m moveTowardsAction) Validate(f *world.Facade, actorID int64, d Descriptor) (bool, string) {
	actor := f.Entity(actorID)
	if actor == nil || !actor.Alive || actor.Pos == nil {
		return false, "mover is gone"
	}
	if _, ok := destinationOf(f, d); !ok {
		return false, "nowhere to move towards"
	}
	return true, ""
}

func (m moveTowardsAction) Execute(f *world.Facade, actorID int64, d Descriptor) (event.Outcome, error) {
	w := f.World()
	actor, _ := w.Entity(actorID)
	if actor == nil || actor.Pos == nil {
		return event.Outcome{}, fmt.Errorf("move_towards: actor vanished between validate and execute")
	}
	dest, _ := destinationOf(f, d)

	out := event.Outcome{Success: true, TookTurn: true}
	if next, ok := stepFrom(w, *actor.Pos, sign(dest.X-actor.Pos.X), sign(dest.Y-actor.Pos.Y)); ok {
		actor.Pos = &next
		out.AddEvent(event.Move(actorID, next.X, next.Y))
	} else {
		out.AddMessage(fmt.Sprintf("%s is blocked.", actor.Name))
	}
	return out, nil
}

// fleeFromAction takes one step away from a threat.
type fleeFromAction struct{}

func (fleeFromAction) Kind() string { return KindFleeFrom }

func (fleeFromAction) Validate(f *world.Facade, actorID int64, d Descriptor) (bool, string) {
	actor := f.Entity(actorID)
	if actor == nil || !actor.Alive || actor.Pos == nil {
		return false, "runner is gone"
	}
	threat := f.Entity(d.TargetID)
	if threat == nil || !threat.Alive || threat.Pos == nil {
		return false, "nothing to flee from"
	}
	return true, ""
}

func (fleeFromAction) Execute(f *world.Facade, actorID int64, d Descriptor) (event.Outcome, error) {
	w := f.World()
	actor, _ := w.Entity(actorID)
	threat, ok := w.Entity(d.TargetID)
	if actor == nil || actor.Pos == nil || !ok || threat.Pos == nil {
		return event.Outcome{}, fmt.Errorf("flee_from: entity vanished between validate and execute")
	}

	out := event.Outcome{Success: true, TookTurn: true}
	if next, ok := stepFrom(w, *actor.Pos, sign(actor.Pos.X-threat.Pos.X), sign(actor.Pos.Y-threat.Pos.Y)); ok {
		actor.Pos = &next
		out.AddEvent(event.Move(actorID, next.X, next.Y))
	} else {
		out.AddMessage(fmt.Sprintf("%s is cornered.", actor.Name))
	}
	return out, nil
}

// wanderAction steps to a random free neighboring cell, or stays put.
// It never fails, which makes it the standard fallback.
type wanderAction struct{}

func (wanderAction) Kind() string { return KindWander }

func (wanderAction) Validate(f *world.Facade, actorID int64, d Descriptor) (bool, string) {
	actor := f.Entity(actorID)
	if actor == nil || !actor.Alive || actor.Pos == nil {
		return false, "wanderer is gone"
	}
	return true, ""
}

func (wanderAction) Execute(f *world.Facade, actorID int64, d Descriptor) (event.Outcome, error) {
	w := f.World()
	actor, _ := w.Entity(actorID)
	if actor == nil || actor.Pos == nil {
		return event.Outcome{}, fmt.Errorf("wander: actor vanished between validate and execute")
	}

	var free []entity.Position
	for _, n := range neighborOffsets {
		p := entity.Position{X: actor.Pos.X + n.X, Y: actor.Pos.Y + n.Y}
		if w.InBounds(p) && !w.Blocked(p) {
			free = append(free, p)
		}
	}
	out := event.Outcome{Success: true, TookTurn: true}
	if len(free) > 0 {
		next := free[w.Random(len(free))]
		actor.Pos = &next
		out.AddEvent(event.Move(actorID, next.X, next.Y))
	}
	return out, nil
}

// idleAction does nothing and consumes the turn.
type idleAction struct{}

func (idleAction) Kind() string { return KindIdle }

func (idleAction) Validate(f *world.Facade, actorID int64, d Descriptor) (bool, string) {
	return true, ""
}

func (idleAction) Execute(f *world.Facade, actorID int64, d Descriptor) (event.Outcome, error) {
	return event.Outcome{Success: true, TookTurn: true}, nil
}

// firestormAction is the built-in area spell: it costs mana, targets a cell
// within range, and damages every eligible entity inside the blast radius.
// Targets are hit in ascending entity ID order so identical inputs always
// yield identical event sequences.
type firestormAction struct{}

const (
	firestormCost   = 10
	firestormRange  = 5
	firestormRadius = 2
	firestormDamage = 8
)

func (firestormAction) Kind() string { return "firestorm" }

func (firestormAction) Validate(f *world.Facade, actorID int64, d Descriptor) (bool, string) {
	actor := f.Entity(actorID)
	if actor == nil || !actor.Alive || actor.Pos == nil {
		return false, "caster is gone"
	}
	if d.X == nil || d.Y == nil {
		return false, "firestorm needs a target cell"
	}
	cost := d.Number("cost", firestormCost)
	if actor.Number(entity.StatMana, 0) < cost {
		return false, fmt.Sprintf("not enough mana for firestorm (need %.0f)", cost)
	}
	reach := int(d.Number("range", firestormRange))
	dest := entity.Position{X: *d.X, Y: *d.Y}
	if dist := chebyshevDist(*actor.Pos, dest); dist > reach {
		return false, fmt.Sprintf("target cell is out of range (%d > %d)", dist, reach)
	}
	return true, ""
}

func (firestormAction) Execute(f *world.Facade, actorID int64, d Descriptor) (event.Outcome, error) {
	w := f.World()
	actor, _ := w.Entity(actorID)
	if actor == nil || actor.Pos == nil {
		return event.Outcome{}, fmt.Errorf("firestorm: caster vanished between validate and execute")
	}
	cost := d.Number("cost", firestormCost)
	radius := int(d.Number("radius", firestormRadius))
	dmg := d.Number("damage", firestormDamage)
	dest := entity.Position{X: *d.X, Y: *d.Y}

	if err := f.ModifyStat(actorID, entity.StatMana, -cost); err != nil {
		return event.Outcome{}, fmt.Errorf("firestorm: %w", err)
	}

	out := event.Outcome{Success: true, TookTurn: true}
	out.AddMessage(fmt.Sprintf("%s unleashes a firestorm.", actor.Name))
	out.AddEvent(event.SpellCast(actorID, "firestorm"))

	// EntitiesWithin returns ascending IDs; one damage event per target.
	for _, target := range w.EntitiesWithin(dest, radius) {
		if target.ID == actorID || !eligibleSpellTarget(target) {
			continue
		}
		died := target.TakeDamage(dmg)
		out.AddEvent(event.Damage(actorID, target.ID, dmg))
		if died {
			out.AddMessage(fmt.Sprintf("%s is consumed by the flames.", target.Name))
			out.AddEvent(event.Death(target.ID))
		}
	}
	return out, nil
}

func eligibleSpellTarget(e *entity.Entity) bool {
	switch e.Type {
	case entity.TypePlayer, entity.TypeMonster, entity.TypeNPC:
		return true
	}
	return false
}

// neighborOffsets is the fixed 8-neighborhood order used everywhere a step
// is chosen, so candidate ordering never depends on map iteration.
var neighborOffsets = []entity.Position{
	{X: 0, Y: -1}, {X: 1, Y: -1}, {X: 1, Y: 0}, {X: 1, Y: 1},
	{X: 0, Y: 1}, {X: -1, Y: 1}, {X: -1, Y: 0}, {X: -1, Y: -1},
}

// destinationOf resolves a descriptor's destination: an explicit cell wins,
// otherwise the target entity's position.
func destinationOf(f *world.Facade, d Descriptor) (entity.Position, bool) {
	if d.X != nil && d.Y != nil {
		return entity.Position{X: *d.X, Y: *d.Y}, true
	}
	if t := f.Entity(d.TargetID); t != nil && t.Alive && t.Pos != nil {
		return *t.Pos, true
	}
	return entity.Position{}, false
}

// stepFrom tries the preferred diagonal step, then each axis alone.
func stepFrom(w *world.World, from entity.Position, dx, dy int) (entity.Position, bool) {
	candidates := []entity.Position{
		{X: from.X + dx, Y: from.Y + dy},
		{X: from.X + dx, Y: from.Y},
		{X: from.X, Y: from.Y + dy},
	}
	for _, p := range candidates {
		if p == from {
			continue
		}
		if w.InBounds(p) && !w.Blocked(p) {
			return p, true
		}
	}
	return from, false
}

func sign(n int) int {
	switch {
	case n > 0:
		return 1
	case n < 0:
		return -1
	default:
		return 0
	}
}

func chebyshevDist(a, b entity.Position) int {
	dx := a.X - b.X
	if dx < 0 {
		dx = -dx
	}
	dy := a.Y - b.Y
	if dy < 0 {
		dy = -dy
	}
	if dx > dy {
		return dx
	}
	return dy
}
