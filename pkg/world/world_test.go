package world

import (
	"testing"

	"github.com/scottsen/veinborn/pkg/entity"
)

func testWorld() *World {
	return New(Config{Width: 16, Height: 16, Seed: 42})
}

func place(t *testing.T, w *World, name string, typ entity.Type, x, y int) *entity.Entity {
	t.Helper()
	e := entity.New(name, typ)
	e.Pos = &entity.Position{X: x, Y: y}
	e.Set(entity.StatHP, 10)
	e.Set(entity.StatMaxHP, 10)
	if _, err := w.Spawn(e); err != nil {
		t.Fatalf("Spawn(%s) failed: %v", name, err)
	}
	return e
}

func TestSpawnAssignsMonotonicIDs(t *testing.T) {
	w := testWorld()
	a := place(t, w, "A", entity.TypePlayer, 0, 0)
	b := place(t, w, "B", entity.TypeMonster, 1, 1)
	c := place(t, w, "C", entity.TypeMonster, 2, 2)

	if a.ID != 1 || b.ID != 2 || c.ID != 3 {
		t.Errorf("spawn IDs = %d, %d, %d, want 1, 2, 3", a.ID, b.ID, c.ID)
	}
}

func TestSpawnRejectsDuplicateID(t *testing.T) {
	w := testWorld()
	place(t, w, "A", entity.TypePlayer, 0, 0)

	dup := entity.New("B", entity.TypeMonster)
	dup.ID = 1
	if _, err := w.Spawn(dup); err == nil {
		t.Fatal("Spawn with duplicate ID should fail")
	}
}

func TestSpawnKeepsRestoredIDs(t *testing.T) {
	w := testWorld()
	e := entity.New("Restored", entity.TypeMonster)
	e.ID = 7
	if _, err := w.Spawn(e); err != nil {
		t.Fatalf("Spawn failed: %v", err)
	}

	next := place(t, w, "Fresh", entity.TypeMonster, 0, 0)
	if next.ID != 8 {
		t.Errorf("next spawn ID = %d, want 8", next.ID)
	}
}

func TestEntityLookup(t *testing.T) {
	w := testWorld()
	place(t, w, "A", entity.TypePlayer, 0, 0)

	if _, ok := w.Entity(1); !ok {
		t.Error("Entity(1) should be present")
	}
	if _, ok := w.Entity(99); ok {
		t.Error("Entity(99) should be absent")
	}
}

func TestEntitiesWithin(t *testing.T) {
	w := testWorld()
	place(t, w, "Center", entity.TypePlayer, 8, 8)
	place(t, w, "Near", entity.TypeMonster, 9, 9)
	place(t, w, "Edge", entity.TypeMonster, 8, 11)
	place(t, w, "Far", entity.TypeMonster, 1, 1)
	dead := place(t, w, "Dead", entity.TypeMonster, 8, 9)
	dead.TakeDamage(999)
	held := entity.New("Held", entity.TypeItem)
	if _, err := w.Spawn(held); err != nil {
		t.Fatalf("Spawn failed: %v", err)
	}

	got := w.EntitiesWithin(entity.Position{X: 8, Y: 8}, 3)
	if len(got) != 3 {
		t.Fatalf("EntitiesWithin returned %d entities, want 3", len(got))
	}
	// Ascending ID order.
	for i := 1; i < len(got); i++ {
		if got[i].ID <= got[i-1].ID {
			t.Errorf("results out of order: %d before %d", got[i-1].ID, got[i].ID)
		}
	}
	for _, e := range got {
		if e.Name == "Dead" || e.Name == "Held" || e.Name == "Far" {
			t.Errorf("unexpected entity in range: %s", e.Name)
		}
	}
}

func TestDistanceAndAdjacent(t *testing.T) {
	w := testWorld()
	a := place(t, w, "A", entity.TypePlayer, 2, 2)
	b := place(t, w, "B", entity.TypeMonster, 5, 3)
	diag := place(t, w, "Diag", entity.TypeMonster, 3, 3)

	if d, ok := w.Distance(a.ID, b.ID); !ok || d != 3 {
		t.Errorf("Distance = %d, %v, want 3, true", d, ok)
	}
	if !w.Adjacent(a.ID, diag.ID) {
		t.Error("diagonal neighbors should be adjacent")
	}
	if w.Adjacent(a.ID, b.ID) {
		t.Error("distant entities should not be adjacent")
	}

	b.TakeDamage(999)
	if _, ok := w.Distance(a.ID, b.ID); ok {
		t.Error("Distance to a dead entity should report ok=false")
	}
	if _, ok := w.Distance(a.ID, 99); ok {
		t.Error("Distance to a missing entity should report ok=false")
	}
}

func TestBlocked(t *testing.T) {
	w := testWorld()
	place(t, w, "A", entity.TypePlayer, 2, 2)
	item := entity.New("Potion", entity.TypeItem)
	item.Pos = &entity.Position{X: 3, Y: 3}
	if _, err := w.Spawn(item); err != nil {
		t.Fatalf("Spawn failed: %v", err)
	}

	if !w.Blocked(entity.Position{X: 2, Y: 2}) {
		t.Error("player cell should block")
	}
	if w.Blocked(entity.Position{X: 3, Y: 3}) {
		t.Error("item cell should not block")
	}
	if w.Blocked(entity.Position{X: 5, Y: 5}) {
		t.Error("empty cell should not block")
	}
}

func TestRandomIsDeterministic(t *testing.T) {
	a := New(Config{Width: 8, Height: 8, Seed: 1234})
	b := New(Config{Width: 8, Height: 8, Seed: 1234})

	for i := 0; i < 100; i++ {
		va, vb := a.Random(10), b.Random(10)
		if va != vb {
			t.Fatalf("draw %d diverged: %d vs %d", i, va, vb)
		}
		if va < 0 || va >= 10 {
			t.Fatalf("draw %d out of range: %d", i, va)
		}
	}
}

func TestRandomZeroN(t *testing.T) {
	w := testWorld()
	if got := w.Random(0); got != 0 {
		t.Errorf("Random(0) = %d, want 0", got)
	}
}

func TestCheckInvariants(t *testing.T) {
	w := testWorld()
	e := place(t, w, "A", entity.TypePlayer, 2, 2)

	if err := w.CheckInvariants(); err != nil {
		t.Fatalf("healthy world should pass: %v", err)
	}

	e.Set(entity.StatHP, 99.0)
	if err := w.CheckInvariants(); err == nil {
		t.Error("hp above max should violate invariants")
	}
	e.Set(entity.StatHP, 10.0)

	e.Pos = &entity.Position{X: -1, Y: 0}
	if err := w.CheckInvariants(); err == nil {
		t.Error("out-of-bounds position should violate invariants")
	}
}
