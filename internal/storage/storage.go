// Package storage persists game sessions and loads behavior packs.
// Sessions live in Redis; behavior packs (script manifests and their Lua
// sources) are static data on the filesystem, mirroring the split between
// live and authored content.
package storage

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/scottsen/veinborn/pkg/world"
)

// Session is one running game: its identity, which behavior pack it was
// started with, and the full world snapshot. The snapshot carries entity
// stat maps verbatim, so a saved session is a complete replay-capable
// record.
type Session struct {
	ID        uuid.UUID      `json:"id"`
	Pack      string         `json:"pack"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	World     world.Snapshot `json:"world"`
}

// Storage is the persistence interface for sessions and behavior packs.
// Load operations return nil (not an error) for missing records.
type Storage interface {
	Ping(ctx context.Context) error
	Close() error

	SaveSession(ctx context.Context, s *Session) error
	LoadSession(ctx context.Context, id uuid.UUID) (*Session, error)
	DeleteSession(ctx context.Context, id uuid.UUID) error

	LoadPack(ctx context.Context, name string) (*BehaviorPack, error)
	ListPacks(ctx context.Context) ([]string, error)
}
