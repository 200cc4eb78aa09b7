package world

import (
	"fmt"
	"sort"

	"github.com/scottsen/veinborn/pkg/entity"
	"github.com/scottsen/veinborn/pkg/event"
)

// Config describes a world's fixed parameters. Seed drives every random
// draw the engine makes; two worlds with the same config and the same
// action stream stay byte-identical.
type Config struct {
	Width  int   `json:"width"`
	Height int   `json:"height"`
	Seed   int64 `json:"seed"`
}

// World is the canonical mutable state of one game: all entities, the turn
// counter, the seeded random source and the run's event log. It is the sole
// owner of its entities; everything outside refers to them by ID.
//
// The world is not safe for concurrent use. The engine is single-threaded
// by design: only one action executes at any instant.
type World struct {
	cfg      Config
	entities map[int64]*entity.Entity
	nextID   int64
	turn     int
	rngState uint64
	log      []string
	events   []event.Event
	gameOver bool
}

// New creates an empty world with the given config.
func New(cfg Config) *World {
	return &World{
		cfg:      cfg,
		entities: make(map[int64]*entity.Entity),
		nextID:   1,
		rngState: uint64(cfg.Seed),
	}
}

// Config returns the world's fixed parameters.
func (w *World) Config() Config { return w.cfg }

// Spawn places an entity into the world and assigns it the next ID in the
// spawn sequence. IDs are monotonic so ascending-ID iteration doubles as
// spawn order. Entities arriving with a non-zero ID (snapshot restore) keep
// it; a duplicate is a state invariant violation.
func (w *World) Spawn(e *entity.Entity) (int64, error) {
	if e == nil {
		return 0, fmt.Errorf("spawn: nil entity")
	}
	if e.ID == 0 {
		e.ID = w.nextID
	}
	if _, exists := w.entities[e.ID]; exists {
		return 0, fmt.Errorf("spawn: duplicate entity id %d", e.ID)
	}
	if e.ID >= w.nextID {
		w.nextID = e.ID + 1
	}
	w.entities[e.ID] = e
	return e.ID, nil
}

// Entity returns the entity with the given ID. A missing ID is not an
// error; the second return value reports presence.
func (w *World) Entity(id int64) (*entity.Entity, bool) {
	e, ok := w.entities[id]
	return e, ok
}

// Player returns the player entity, or nil if none exists.
func (w *World) Player() *entity.Entity {
	for _, id := range w.IDs() {
		if e := w.entities[id]; e.Type == entity.TypePlayer {
			return e
		}
	}
	return nil
}

// Remove deletes an entity from the store.
func (w *World) Remove(id int64) {
	delete(w.entities, id)
}

// IDs returns all entity IDs in ascending order.
func (w *World) IDs() []int64 {
	ids := make([]int64, 0, len(w.entities))
	for id := range w.entities {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// LivingIDs returns the IDs of all living entities in ascending order.
func (w *World) LivingIDs() []int64 {
	var ids []int64
	for _, id := range w.IDs() {
		if w.entities[id].Alive {
			ids = append(ids, id)
		}
	}
	return ids
}

// EntitiesWithin returns living, placed entities within the given Chebyshev
// radius of a cell, in ascending ID order. Dead and held entities never
// appear in range queries.
func (w *World) EntitiesWithin(pos entity.Position, radius int) []*entity.Entity {
	var out []*entity.Entity
	for _, id := range w.IDs() {
		e := w.entities[id]
		if !e.Alive || e.Pos == nil {
			continue
		}
		if chebyshev(*e.Pos, pos) <= radius {
			out = append(out, e)
		}
	}
	return out
}

// Distance returns the grid (Chebyshev) distance between two entities.
// Missing, dead or unplaced entities yield ok=false.
func (w *World) Distance(a, b int64) (int, bool) {
	ea, okA := w.entities[a]
	eb, okB := w.entities[b]
	if !okA || !okB || !ea.Alive || !eb.Alive || ea.Pos == nil || eb.Pos == nil {
		return 0, false
	}
	return chebyshev(*ea.Pos, *eb.Pos), true
}

// Adjacent reports whether two entities occupy neighboring cells.
func (w *World) Adjacent(a, b int64) bool {
	d, ok := w.Distance(a, b)
	return ok && d == 1
}

// InBounds reports whether a cell lies inside the dungeon rectangle.
func (w *World) InBounds(p entity.Position) bool {
	return p.X >= 0 && p.Y >= 0 && p.X < w.cfg.Width && p.Y < w.cfg.Height
}

// Blocked reports whether a cell is occupied by a living entity that blocks
// movement.
func (w *World) Blocked(p entity.Position) bool {
	for _, id := range w.IDs() {
		e := w.entities[id]
		if !e.Alive || e.Pos == nil || *e.Pos != p {
			continue
		}
		switch e.Type {
		case entity.TypePlayer, entity.TypeMonster, entity.TypeNPC, entity.TypeStructure:
			return true
		}
	}
	return false
}

// Turn returns the current turn counter.
func (w *World) Turn() int { return w.turn }

// AdvanceTurn increments the turn counter by exactly one.
func (w *World) AdvanceTurn() { w.turn++ }

// Random returns a deterministic draw in [0, n) from the world's seeded
// source. The generator is a splitmix64 whose single word of state rides
// along in snapshots, so a restored world continues the exact sequence.
func (w *World) Random(n int) int {
	if n <= 0 {
		return 0
	}
	w.rngState += splitmixGamma
	return int(splitmix(w.rngState) % uint64(n))
}

// PeekRandom returns the value the next Random call would produce without
// advancing the generator. Validate phases draw through this, so a
// rejected action leaves the random state exactly as it found it.
func (w *World) PeekRandom(n int) int {
	if n <= 0 {
		return 0
	}
	return int(splitmix(w.rngState+splitmixGamma) % uint64(n))
}

const splitmixGamma = 0x9E3779B97F4A7C15

func splitmix(z uint64) uint64 {
	z ^= z >> 30
	z *= 0xBF58476D1CE4E9B5
	z ^= z >> 27
	z *= 0x94D049BB133111EB
	z ^= z >> 31
	return z
}

// AppendLog appends a message to the world's message log.
func (w *World) AppendLog(msg string) {
	w.log = append(w.log, msg)
}

// Messages returns the message log in order.
func (w *World) Messages() []string { return w.log }

// RecordEvents appends outcome events to the run's event log in order.
func (w *World) RecordEvents(evs []event.Event) {
	w.events = append(w.events, evs...)
}

// EventLog returns the full run's event log in emission order.
func (w *World) EventLog() []event.Event { return w.events }

// SetGameOver marks the game as finished. Already-applied actions are never
// rolled back; the flag only prevents further actor turns.
func (w *World) SetGameOver() { w.gameOver = true }

// GameOver reports whether the game has ended.
func (w *World) GameOver() bool { return w.gameOver }

// CheckInvariants verifies the store's structural invariants: HP within
// [0, max_hp] and positions in bounds for placed entities. A violation
// indicates a bug in a built-in action and must surface, not be absorbed.
func (w *World) CheckInvariants() error {
	for _, id := range w.IDs() {
		e := w.entities[id]
		if hp := e.HP(); hp < 0 || (e.MaxHP() > 0 && hp > e.MaxHP()) {
			return fmt.Errorf("invariant violation: entity %d hp %.1f outside [0, %.1f]", id, hp, e.MaxHP())
		}
		if e.Pos != nil && !w.InBounds(*e.Pos) {
			return fmt.Errorf("invariant violation: entity %d at %d,%d out of bounds", id, e.Pos.X, e.Pos.Y)
		}
	}
	return nil
}

func chebyshev(a, b entity.Position) int {
	dx := abs(a.X - b.X)
	dy := abs(a.Y - b.Y)
	if dx > dy {
		return dx
	}
	return dy
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
