// Package engine sequences turns: player action first, then every other
// living actor, then turn-boundary effects, exactly once each per tick.
package engine

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/scottsen/veinborn/internal/ai"
	"github.com/scottsen/veinborn/pkg/action"
	"github.com/scottsen/veinborn/pkg/entity"
	"github.com/scottsen/veinborn/pkg/event"
	"github.com/scottsen/veinborn/pkg/world"
)

// TurnResult is what one tick produced: the player's own outcome plus the
// ordered events and messages of the whole turn.
type TurnResult struct {
	Player   event.Outcome `json:"player"`
	Events   []event.Event `json:"events,omitempty"`
	Messages []string      `json:"messages,omitempty"`
	Turn     int           `json:"turn"`
	GameOver bool          `json:"game_over"`
}

// Engine owns one game's turn loop. It is single-threaded and
// non-overlapping: a tick runs to completion before the next begins, and
// only one action executes at any instant.
type Engine struct {
	world    *world.World
	facade   *world.Facade
	registry *action.Registry
	driver   *ai.Driver
	logger   *slog.Logger
}

// New wires an engine over a world. Facade mutations are observed into the
// debug log.
func New(w *world.World, registry *action.Registry, driver *ai.Driver, logger *slog.Logger) *Engine {
	facade := world.NewFacade(w).WithObserver(func(ev event.Event) {
		logger.Debug("state mutation", "type", string(ev.Type),
			"target_id", ev.TargetID, "amount", ev.Amount)
	})
	return &Engine{
		world:    w,
		facade:   facade,
		registry: registry,
		driver:   driver,
		logger:   logger,
	}
}

// World returns the engine's world.
func (e *Engine) World() *world.World { return e.world }

// Tick runs one full turn. The player's action is validated and executed
// first; only if it consumed the turn do the remaining living actors act,
// in ascending ID order, followed by boundary effects and the turn counter
// increment. A game-over raised mid-tick short-circuits the remaining
// actors but never rolls back applied actions.
//
// The returned error means a broken engine invariant, not a gameplay
// failure; callers must surface it.
func (e *Engine) Tick(playerDesc action.Descriptor) (TurnResult, error) {
	if e.world.GameOver() {
		return TurnResult{
			Player:   event.Failure("the game is over"),
			Turn:     e.world.Turn(),
			GameOver: true,
		}, nil
	}
	player := e.world.Player()
	if player == nil {
		return TurnResult{}, fmt.Errorf("tick: world has no player")
	}

	logStart := len(e.world.Messages())
	eventStart := len(e.world.EventLog())

	out, err := e.registry.Perform(e.facade, player.ID, playerDesc)
	if err != nil {
		return TurnResult{}, err
	}
	e.world.RecordEvents(out.Events)
	res := TurnResult{Player: out}

	if out.TookTurn {
		for _, id := range e.world.LivingIDs() {
			if e.world.GameOver() {
				break
			}
			if id == player.ID || !isActor(e.world, id) {
				continue
			}
			actorOut, err := e.driver.Act(e.facade, id)
			if err != nil {
				return TurnResult{}, err
			}
			e.world.RecordEvents(actorOut.Events)
			res.Messages = append(res.Messages, actorOut.Messages...)
		}

		boundary := e.boundaryEffects()
		e.world.RecordEvents(boundary)
		e.world.AdvanceTurn()
	}

	if p := e.world.Player(); p == nil || !p.Alive {
		e.world.SetGameOver()
	}
	if err := e.world.CheckInvariants(); err != nil {
		return TurnResult{}, err
	}

	res.Messages = append(res.Messages, e.world.Messages()[logStart:]...)
	res.Events = e.world.EventLog()[eventStart:]
	res.Turn = e.world.Turn()
	res.GameOver = e.world.GameOver()
	return res, nil
}

// isActor reports whether an entity takes turns. Items, resource nodes and
// structures exist in the world but never act.
func isActor(w *world.World, id int64) bool {
	e, ok := w.Entity(id)
	if !ok {
		return false
	}
	switch e.Type {
	case entity.TypePlayer, entity.TypeMonster, entity.TypeNPC:
		return true
	}
	return false
}

// boundaryEffects applies end-of-turn bookkeeping exactly once: passive
// regeneration, poison ticks, and pruning of expired cooldown stamps.
// Iteration is in ascending ID order so the emitted events are stable.
func (e *Engine) boundaryEffects() []event.Event {
	var evs []event.Event
	for _, id := range e.world.LivingIDs() {
		ent, _ := e.world.Entity(id)

		if regen := ent.Number(entity.StatRegen, 0); regen > 0 && ent.HP() < ent.MaxHP() {
			ent.Heal(regen)
			evs = append(evs, event.Heal(0, id, regen))
		}

		if poison := ent.Number(entity.StatPoison, 0); poison > 0 {
			died := ent.TakeDamage(poison)
			evs = append(evs, event.Damage(0, id, poison))
			ent.Set(entity.StatPoison, poison-1)
			if died {
				evs = append(evs, event.Death(id))
			}
		}

		// Cooldowns are turn stamps the scripts compare against; expired
		// ones are just clutter in the stat map.
		for key := range ent.Stats {
			if strings.HasPrefix(key, "cooldown_") && ent.Number(key, 0) < float64(e.world.Turn()) {
				delete(ent.Stats, key)
			}
		}
	}
	return evs
}
