package entity

// Type is the closed set of entity categories in the simulation.
type Type string

const (
	TypePlayer       Type = "player"
	TypeMonster      Type = "monster"
	TypeItem         Type = "item"
	TypeResourceNode Type = "resource_node"
	TypeStructure    Type = "structure"
	TypeNPC          Type = "npc"
)

// Well-known stat keys. The stat map is open-ended; these are the keys the
// engine itself reads.
const (
	StatHP       = "hp"
	StatMaxHP    = "max_hp"
	StatAttack   = "attack"
	StatMana     = "mana"
	StatRegen    = "regen"
	StatPoison   = "poison"
	StatBehavior = "behavior"
)

// Position is a cell on the dungeon grid.
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Entity is any object in the world: the player, monsters, items, resource
// nodes, structures and NPCs. Entities are owned exclusively by the world
// store; cross-references are by ID, never by pointer.
//
// Stats is an open-ended map of plain values (numbers as float64, booleans,
// strings). Behavior scripts keep whatever per-entity memory they need in
// here, so a serialized entity is a complete record of its state.
type Entity struct {
	ID    int64          `json:"id"`
	Name  string         `json:"name"`
	Type  Type           `json:"type"`
	Pos   *Position      `json:"pos,omitempty"` // nil means held / in inventory
	Stats map[string]any `json:"stats,omitempty"`
	Alive bool           `json:"alive"`
}

// New creates an entity of the given type with an empty stat map.
// The ID is assigned by the world store at spawn time.
func New(name string, typ Type) *Entity {
	return &Entity{
		Name:  name,
		Type:  typ,
		Stats: make(map[string]any),
		Alive: true,
	}
}

// Number returns a numeric stat, or def when the key is absent or not a
// number.
func (e *Entity) Number(key string, def float64) float64 {
	switch v := e.Stats[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	default:
		return def
	}
}

// Text returns a string stat, or "" when absent.
func (e *Entity) Text(key string) string {
	if v, ok := e.Stats[key].(string); ok {
		return v
	}
	return ""
}

// Flag returns a boolean stat, or false when absent.
func (e *Entity) Flag(key string) bool {
	if v, ok := e.Stats[key].(bool); ok {
		return v
	}
	return false
}

// Set writes a stat value. Numeric values are normalized to float64 so the
// stat map round-trips through JSON and the script boundary unchanged.
func (e *Entity) Set(key string, value any) {
	if e.Stats == nil {
		e.Stats = make(map[string]any)
	}
	if n, ok := value.(int); ok {
		value = float64(n)
	}
	e.Stats[key] = value
}

// HP returns current hit points.
func (e *Entity) HP() float64 { return e.Number(StatHP, 0) }

// MaxHP returns maximum hit points.
func (e *Entity) MaxHP() float64 { return e.Number(StatMaxHP, 0) }

// TakeDamage reduces HP by n, clamped at 0. It reports whether the entity
// died from this hit: true exactly once, on the hit that empties HP.
func (e *Entity) TakeDamage(n float64) bool {
	if n <= 0 || !e.Alive {
		return false
	}
	hp := e.HP() - n
	if hp < 0 {
		hp = 0
	}
	e.Set(StatHP, hp)
	if hp == 0 {
		e.Alive = false
		return true
	}
	return false
}

// Heal increases HP by n, clamped at max_hp. Dead entities stay dead.
func (e *Entity) Heal(n float64) {
	if n <= 0 || !e.Alive {
		return
	}
	hp := e.HP() + n
	if max := e.MaxHP(); hp > max {
		hp = max
	}
	e.Set(StatHP, hp)
}

// Behavior returns the behavior id driving this entity's decisions, or ""
// for entities without one (items, the player).
func (e *Entity) Behavior() string { return e.Text(StatBehavior) }

// Clone returns a deep copy. Snapshots handed to scripts are clones, so a
// script can never alias live state.
func (e *Entity) Clone() *Entity {
	c := *e
	if e.Pos != nil {
		p := *e.Pos
		c.Pos = &p
	}
	if e.Stats != nil {
		c.Stats = make(map[string]any, len(e.Stats))
		for k, v := range e.Stats {
			c.Stats[k] = v
		}
	}
	return &c
}
