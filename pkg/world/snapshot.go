package world

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/scottsen/veinborn/pkg/entity"
	"github.com/scottsen/veinborn/pkg/event"
)

// Snapshot is the serializable form of a world. Entity stat maps are
// carried verbatim as plain data, so a snapshot is a complete and
// deterministic record of the run: restoring it and replaying the same
// action stream reproduces the same event log.
type Snapshot struct {
	Config   Config          `json:"config"`
	Turn     int             `json:"turn"`
	NextID   int64           `json:"next_id"`
	RNGState uint64          `json:"rng_state"`
	GameOver bool            `json:"game_over"`
	Entities []entity.Entity `json:"entities"`
	Log      []string        `json:"log,omitempty"`
	Events   []event.Event   `json:"events,omitempty"`
}

// Snapshot captures the world's full state. Entities are emitted in
// ascending ID order so the encoding is canonical.
func (w *World) Snapshot() Snapshot {
	s := Snapshot{
		Config:   w.cfg,
		Turn:     w.turn,
		NextID:   w.nextID,
		RNGState: w.rngState,
		GameOver: w.gameOver,
		Log:      w.log,
		Events:   w.events,
	}
	for _, id := range w.IDs() {
		s.Entities = append(s.Entities, *w.entities[id].Clone())
	}
	return s
}

// Restore rebuilds a world from a snapshot, including the random source's
// exact state, so the restored world continues the original sequence.
func Restore(s Snapshot) (*World, error) {
	w := New(s.Config)
	w.turn = s.Turn
	w.gameOver = s.GameOver
	w.log = s.Log
	w.events = s.Events
	for i := range s.Entities {
		e := s.Entities[i].Clone()
		if _, err := w.Spawn(e); err != nil {
			return nil, fmt.Errorf("restore: %w", err)
		}
	}
	if s.NextID > w.nextID {
		w.nextID = s.NextID
	}
	w.rngState = s.RNGState
	return w, nil
}

// Digest returns a stable hash of the world's observable state and event
// log. Two runs with the same seed and scripts must produce equal digests
// after every turn; the fuzz harness compares these across runs.
func (w *World) Digest() string {
	data, err := json.Marshal(w.Snapshot())
	if err != nil {
		// Snapshot contains only plain data; a marshal failure is a bug.
		panic(fmt.Sprintf("world digest: %v", err))
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
