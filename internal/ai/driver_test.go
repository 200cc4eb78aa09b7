package ai

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/scottsen/veinborn/internal/script"
	"github.com/scottsen/veinborn/pkg/action"
	"github.com/scottsen/veinborn/pkg/entity"
	"github.com/scottsen/veinborn/pkg/world"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeScript(t *testing.T, src string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "behavior.lua")
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatalf("write script: %v", err)
	}
	return path
}

func testWorld(t *testing.T) (*world.World, *world.Facade, *entity.Entity) {
	t.Helper()
	w := world.New(world.Config{Width: 16, Height: 16, Seed: 7})
	player := entity.New("Adventurer", entity.TypePlayer)
	player.Pos = &entity.Position{X: 2, Y: 2}
	player.Set(entity.StatHP, 20)
	player.Set(entity.StatMaxHP, 20)
	if _, err := w.Spawn(player); err != nil {
		t.Fatalf("Spawn failed: %v", err)
	}

	mob := entity.New("Goblin", entity.TypeMonster)
	mob.Pos = &entity.Position{X: 8, Y: 8}
	mob.Set(entity.StatHP, 6)
	mob.Set(entity.StatMaxHP, 6)
	mob.Set(entity.StatBehavior, "goblin")
	if _, err := w.Spawn(mob); err != nil {
		t.Fatalf("Spawn failed: %v", err)
	}
	return w, world.NewFacade(w), mob
}

func newDriver(behaviors map[string]Behavior) *Driver {
	bridge := script.NewBridge(0, discard())
	return New(bridge, action.NewRegistry(), behaviors, discard())
}

func TestActFollowsScriptDecision(t *testing.T) {
	path := writeScript(t, `
function decide(actor, config)
  return { action = "move_towards", target_id = 1 }
end
`)

	_, f, mob := testWorld(t)
	d := newDriver(map[string]Behavior{"goblin": {Script: path}})

	out, err := d.Act(f, mob.ID)
	if err != nil {
		t.Fatalf("Act failed: %v", err)
	}
	if !out.Success || !out.TookTurn {
		t.Fatalf("outcome = %+v", out)
	}
	if mob.Pos.X != 7 || mob.Pos.Y != 7 {
		t.Errorf("mob moved to %d,%d, want 7,7", mob.Pos.X, mob.Pos.Y)
	}
}

func TestActFallsBackOnScriptFault(t *testing.T) {
	path := writeScript(t, `
function decide(actor, config)
  error("deliberate crash")
end
`)

	_, f, mob := testWorld(t)
	d := newDriver(map[string]Behavior{"goblin": {Script: path}})

	out, err := d.Act(f, mob.ID)
	if err != nil {
		t.Fatalf("a faulting script must not abort the turn: %v", err)
	}
	if !out.Success || !out.TookTurn {
		t.Errorf("fallback outcome = %+v, want a consumed turn", out)
	}
}

func TestActFallsBackOnMissingBehavior(t *testing.T) {
	_, f, mob := testWorld(t)
	d := newDriver(map[string]Behavior{})

	out, err := d.Act(f, mob.ID)
	if err != nil {
		t.Fatalf("Act failed: %v", err)
	}
	if !out.Success || !out.TookTurn {
		t.Errorf("fallback outcome = %+v, want a consumed turn", out)
	}
}

func TestActFallsBackOnRejectedDecision(t *testing.T) {
	// Attack a target on the far side of the map: validation rejects it,
	// the actor wanders instead, and the rejection reason survives.
	path := writeScript(t, `
function decide(actor, config)
  return { action = "attack", target_id = 1 }
end
`)

	_, f, mob := testWorld(t)
	d := newDriver(map[string]Behavior{"goblin": {Script: path}})

	out, err := d.Act(f, mob.ID)
	if err != nil {
		t.Fatalf("Act failed: %v", err)
	}
	if !out.Success || !out.TookTurn {
		t.Errorf("fallback outcome = %+v", out)
	}
	if len(out.Messages) == 0 {
		t.Error("rejection reason should survive into the fallback outcome")
	}
}

func TestActSkipsDeadActor(t *testing.T) {
	_, f, mob := testWorld(t)
	mob.TakeDamage(999)

	d := newDriver(map[string]Behavior{})
	out, err := d.Act(f, mob.ID)
	if err != nil {
		t.Fatalf("Act failed: %v", err)
	}
	if out.Success || out.TookTurn || len(out.Events) != 0 {
		t.Errorf("dead actor outcome = %+v, want empty", out)
	}
}

func TestActSkipsMissingActor(t *testing.T) {
	_, f, _ := testWorld(t)
	d := newDriver(map[string]Behavior{})

	out, err := d.Act(f, 99)
	if err != nil {
		t.Fatalf("Act failed: %v", err)
	}
	if out.Success || out.TookTurn {
		t.Errorf("missing actor outcome = %+v, want empty", out)
	}
}
