package game

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/scottsen/veinborn/internal/script"
	"github.com/scottsen/veinborn/internal/storage"
	"github.com/scottsen/veinborn/pkg/action"
	"github.com/scottsen/veinborn/pkg/entity"
	"github.com/scottsen/veinborn/pkg/event"
	"github.com/scottsen/veinborn/pkg/world"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testEntities() []entity.Entity {
	player := entity.New("Adventurer", entity.TypePlayer)
	player.Pos = &entity.Position{X: 2, Y: 2}
	player.Set(entity.StatHP, 20)
	player.Set(entity.StatMaxHP, 20)

	goblin := entity.New("Goblin", entity.TypeMonster)
	goblin.Pos = &entity.Position{X: 8, Y: 8}
	goblin.Set(entity.StatHP, 6)
	goblin.Set(entity.StatMaxHP, 6)

	return []entity.Entity{*player, *goblin}
}

func TestNewWorldSpawnsInOrder(t *testing.T) {
	w, err := NewWorld(world.Config{Width: 16, Height: 16, Seed: 7}, testEntities())
	if err != nil {
		t.Fatalf("NewWorld failed: %v", err)
	}

	if p := w.Player(); p == nil || p.ID != 1 {
		t.Fatalf("player should get the first ID, got %+v", p)
	}
	if g, ok := w.Entity(2); !ok || g.Name != "Goblin" {
		t.Errorf("goblin should get ID 2")
	}

	spawns := 0
	for _, ev := range w.EventLog() {
		if ev.Type == event.TypeSpawn {
			spawns++
		}
	}
	if spawns != 2 {
		t.Errorf("spawn events = %d, want one per entity", spawns)
	}
}

func TestNewWorldRequiresPlayer(t *testing.T) {
	goblin := entity.New("Goblin", entity.TypeMonster)
	goblin.Pos = &entity.Position{X: 8, Y: 8}
	goblin.Set(entity.StatHP, 6)

	if _, err := NewWorld(world.Config{Width: 16, Height: 16, Seed: 7}, []entity.Entity{*goblin}); err == nil {
		t.Fatal("a world without a player must be rejected")
	}
}

func TestBuildEngine(t *testing.T) {
	dir := t.TempDir()
	behaviorPath := filepath.Join(dir, "goblin.lua")
	actionPath := filepath.Join(dir, "dart.lua")
	for _, p := range []string{behaviorPath, actionPath} {
		if err := os.WriteFile(p, []byte("-- placeholder\n"), 0o644); err != nil {
			t.Fatalf("write script: %v", err)
		}
	}

	pack := &storage.BehaviorPack{
		Name: "crypt",
		Behaviors: map[string]storage.ScriptRef{
			"goblin": {Script: behaviorPath},
		},
		Actions: map[string]storage.ScriptRef{
			"poison_dart": {Script: actionPath},
		},
	}

	w, err := NewWorld(world.Config{Width: 16, Height: 16, Seed: 7}, testEntities())
	if err != nil {
		t.Fatalf("NewWorld failed: %v", err)
	}

	runtime := NewRuntime(script.NewBridge(0, discard()), discard())
	eng, err := runtime.BuildEngine(pack, w)
	if err != nil {
		t.Fatalf("BuildEngine failed: %v", err)
	}
	if eng == nil {
		t.Fatal("BuildEngine returned nil engine")
	}

	// The built engine can run a turn.
	res, err := eng.Tick(action.NewDescriptor(action.KindIdle))
	if err != nil {
		t.Fatalf("Tick failed: %v", err)
	}
	if res.Turn != 1 {
		t.Errorf("turn = %d, want 1", res.Turn)
	}
}

func TestBuildEngineRejectsBuiltinCollision(t *testing.T) {
	path := filepath.Join(t.TempDir(), "attack.lua")
	if err := os.WriteFile(path, []byte("-- placeholder\n"), 0o644); err != nil {
		t.Fatalf("write script: %v", err)
	}

	// A pack action may not shadow a built-in kind.
	pack := &storage.BehaviorPack{
		Name: "crypt",
		Actions: map[string]storage.ScriptRef{
			"attack": {Script: path},
		},
	}

	w, err := NewWorld(world.Config{Width: 16, Height: 16, Seed: 7}, testEntities())
	if err != nil {
		t.Fatalf("NewWorld failed: %v", err)
	}

	runtime := NewRuntime(script.NewBridge(0, discard()), discard())
	if _, err := runtime.BuildEngine(pack, w); err == nil {
		t.Fatal("registering a pack action over a built-in kind must fail")
	}
}
