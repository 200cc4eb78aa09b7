package event

// Type identifies the kind of event emitted by an action or turn-boundary
// effect. Events are plain data so they serialize verbatim into session
// snapshots and replay logs.
type Type string

const (
	TypeDamage     Type = "damage"
	TypeDeath      Type = "death"
	TypeSpawn      Type = "spawn"
	TypeMove       Type = "move"
	TypeHeal       Type = "heal"
	TypeSpellCast  Type = "spell_cast"
	TypeStatChange Type = "stat_change"
)

// Event is a tagged record with a structured payload. ActorID is the entity
// that caused the event, TargetID the entity it happened to; either may be
// zero when not applicable.
type Event struct {
	Type     Type           `json:"type"`
	ActorID  int64          `json:"actor_id,omitempty"`
	TargetID int64          `json:"target_id,omitempty"`
	Amount   float64        `json:"amount,omitempty"`
	Payload  map[string]any `json:"payload,omitempty"`
}

// Damage builds a damage event.
func Damage(actorID, targetID int64, amount float64) Event {
	return Event{Type: TypeDamage, ActorID: actorID, TargetID: targetID, Amount: amount}
}

// Death builds a death event for the given entity.
func Death(targetID int64) Event {
	return Event{Type: TypeDeath, TargetID: targetID}
}

// Heal builds a heal event.
func Heal(actorID, targetID int64, amount float64) Event {
	return Event{Type: TypeHeal, ActorID: actorID, TargetID: targetID, Amount: amount}
}

// Move builds a move event recording the destination cell.
func Move(actorID int64, x, y int) Event {
	return Event{
		Type:    TypeMove,
		ActorID: actorID,
		Payload: map[string]any{"x": float64(x), "y": float64(y)},
	}
}

// SpellCast builds a spell_cast event.
func SpellCast(actorID int64, name string) Event {
	return Event{
		Type:    TypeSpellCast,
		ActorID: actorID,
		Payload: map[string]any{"spell": name},
	}
}

// Spawn builds a spawn event for a newly placed entity.
func Spawn(targetID int64) Event {
	return Event{Type: TypeSpawn, TargetID: targetID}
}
