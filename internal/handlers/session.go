package handlers

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/scottsen/veinborn/internal/game"
	"github.com/scottsen/veinborn/internal/logger"
	"github.com/scottsen/veinborn/internal/storage"
	"github.com/scottsen/veinborn/pkg/action"
	"github.com/scottsen/veinborn/pkg/entity"
	"github.com/scottsen/veinborn/pkg/world"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

// CreateSessionRequest starts a new game. Entities are placed by the
// caller (the spawner collaborator); the engine only insists on a player.
type CreateSessionRequest struct {
	Pack     string          `json:"pack"`
	Seed     int64           `json:"seed"`
	Width    int             `json:"width,omitempty"`
	Height   int             `json:"height,omitempty"`
	Entities []entity.Entity `json:"entities,omitempty"`
}

// ActionRequest submits the player's action for one turn.
type ActionRequest struct {
	Action action.Descriptor `json:"action"`
}

// SessionHandler serves game sessions.
//
// Routes:
// POST /v1/session              - Create a new session
// GET /v1/session/{id}          - Read a session
// DELETE /v1/session/{id}       - Delete a session
// POST /v1/session/{id}/action  - Submit the player action for one turn
type SessionHandler struct {
	storage storage.Storage
	runtime *game.Runtime
	logger  *slog.Logger
}

func NewSessionHandler(storage storage.Storage, runtime *game.Runtime, logger *slog.Logger) *SessionHandler {
	return &SessionHandler{
		storage: storage,
		runtime: runtime,
		logger:  logger,
	}
}

func (h *SessionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	path := strings.TrimPrefix(r.URL.Path, "/v1/session")
	path = strings.Trim(path, "/")

	if path == "" {
		if r.Method != http.MethodPost {
			writeError(w, h.logger, http.StatusMethodNotAllowed, "Method not allowed. POST creates a session.")
			return
		}
		h.handleCreate(w, r)
		return
	}

	parts := strings.Split(path, "/")
	id, err := uuid.Parse(parts[0])
	if err != nil {
		h.logger.Warn("Invalid session ID", "id", parts[0], "error", err)
		writeError(w, h.logger, http.StatusBadRequest, "Invalid session ID format")
		return
	}

	switch {
	case len(parts) == 1 && r.Method == http.MethodGet:
		h.handleRead(w, r, id)
	case len(parts) == 1 && r.Method == http.MethodDelete:
		h.handleDelete(w, r, id)
	case len(parts) == 2 && parts[1] == "action" && r.Method == http.MethodPost:
		h.handleAction(w, r, id)
	default:
		writeError(w, h.logger, http.StatusMethodNotAllowed, "Method not allowed for this session route")
	}
}

func (h *SessionHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "Invalid request body. Expected JSON with 'pack' and 'seed' fields.")
		return
	}
	if req.Pack == "" {
		writeError(w, h.logger, http.StatusBadRequest, "Field 'pack' is required")
		return
	}

	pack, err := h.storage.LoadPack(r.Context(), req.Pack)
	if err != nil || pack == nil {
		h.logger.Warn("Behavior pack not found", "pack", req.Pack, "error", err)
		writeError(w, h.logger, http.StatusNotFound, fmt.Sprintf("Behavior pack not found: %s", req.Pack))
		return
	}

	cfg := world.Config{Width: req.Width, Height: req.Height, Seed: req.Seed}
	if cfg.Width <= 0 {
		cfg.Width = 32
	}
	if cfg.Height <= 0 {
		cfg.Height = 32
	}
	entities := req.Entities
	if len(entities) == 0 {
		entities = defaultEntities()
	}

	gw, err := game.NewWorld(cfg, entities)
	if err != nil {
		writeError(w, h.logger, http.StatusBadRequest, fmt.Sprintf("Invalid world: %v", err))
		return
	}

	session := &storage.Session{
		ID:        uuid.New(),
		Pack:      pack.Name,
		CreatedAt: time.Now(),
		World:     gw.Snapshot(),
	}
	if err := h.storage.SaveSession(r.Context(), session); err != nil {
		logger.WithError(h.logger, err).Error("Failed to save session", "session_id", session.ID)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to save session")
		return
	}

	h.logger.Info("Session created", "session_id", session.ID, "pack", session.Pack, "seed", req.Seed)
	w.WriteHeader(http.StatusCreated)
	writeJSON(w, h.logger, session)
}

func (h *SessionHandler) handleRead(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	session, err := h.storage.LoadSession(r.Context(), id)
	if err != nil {
		logger.WithError(h.logger, err).Error("Failed to load session", "session_id", id)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to load session")
		return
	}
	if session == nil {
		writeError(w, h.logger, http.StatusNotFound, "Session not found")
		return
	}
	writeJSON(w, h.logger, session)
}

func (h *SessionHandler) handleDelete(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	if err := h.storage.DeleteSession(r.Context(), id); err != nil {
		logger.WithError(h.logger, err).Error("Failed to delete session", "session_id", id)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to delete session")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *SessionHandler) handleAction(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	log := logger.WithSessionID(h.logger, id.String())

	var req ActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, log, http.StatusBadRequest, "Invalid request body. Expected JSON with 'action' field.")
		return
	}
	if req.Action.Kind == "" {
		writeError(w, log, http.StatusBadRequest, "Action kind is required")
		return
	}

	session, err := h.storage.LoadSession(r.Context(), id)
	if err != nil {
		logger.WithError(log, err).Error("Failed to load session")
		writeError(w, log, http.StatusInternalServerError, "Failed to load session")
		return
	}
	if session == nil {
		writeError(w, log, http.StatusNotFound, "Session not found")
		return
	}

	pack, err := h.storage.LoadPack(r.Context(), session.Pack)
	if err != nil || pack == nil {
		log.Error("Behavior pack missing for session", "pack", session.Pack, "error", err)
		writeError(w, log, http.StatusInternalServerError, "Behavior pack missing for session")
		return
	}

	gw, err := world.Restore(session.World)
	if err != nil {
		logger.WithError(log, err).Error("Failed to restore world")
		writeError(w, log, http.StatusInternalServerError, "Failed to restore world")
		return
	}
	eng, err := h.runtime.BuildEngine(pack, gw)
	if err != nil {
		logger.WithError(log, err).Error("Failed to build engine")
		writeError(w, log, http.StatusInternalServerError, "Failed to build engine")
		return
	}

	result, err := eng.Tick(req.Action)
	if err != nil {
		// Invariant violations surface loudly; they must never be
		// mistaken for gameplay failures.
		logger.WithError(log, err).Error("Engine invariant violation")
		writeError(w, log, http.StatusInternalServerError, fmt.Sprintf("Engine error: %v", err))
		return
	}

	session.World = gw.Snapshot()
	if err := h.storage.SaveSession(r.Context(), session); err != nil {
		logger.WithError(log, err).Error("Failed to save session")
		writeError(w, log, http.StatusInternalServerError, "Failed to save session")
		return
	}

	writeJSON(w, log, result)
}

// defaultEntities is the starter layout used when the caller provides
// none. Behavior ids match the packs shipped under data/packs.
func defaultEntities() []entity.Entity {
	player := entity.New("Adventurer", entity.TypePlayer)
	player.Pos = &entity.Position{X: 2, Y: 2}
	player.Set(entity.StatHP, 20)
	player.Set(entity.StatMaxHP, 20)
	player.Set(entity.StatAttack, 3)
	player.Set(entity.StatMana, 10)

	goblin := entity.New("Goblin", entity.TypeMonster)
	goblin.Pos = &entity.Position{X: 10, Y: 6}
	goblin.Set(entity.StatHP, 6)
	goblin.Set(entity.StatMaxHP, 6)
	goblin.Set(entity.StatAttack, 2)
	goblin.Set(entity.StatBehavior, "goblin")

	archer := entity.New("Skeleton Archer", entity.TypeMonster)
	archer.Pos = &entity.Position{X: 14, Y: 12}
	archer.Set(entity.StatHP, 5)
	archer.Set(entity.StatMaxHP, 5)
	archer.Set(entity.StatAttack, 1)
	archer.Set(entity.StatBehavior, "skeleton_archer")

	slime := entity.New("Slime", entity.TypeMonster)
	slime.Pos = &entity.Position{X: 6, Y: 14}
	slime.Set(entity.StatHP, 8)
	slime.Set(entity.StatMaxHP, 8)
	slime.Set(entity.StatAttack, 1)
	slime.Set(entity.StatRegen, 1)
	slime.Set(entity.StatBehavior, "slime")

	return []entity.Entity{*player, *goblin, *archer, *slime}
}

func writeJSON(w http.ResponseWriter, logger *slog.Logger, v any) {
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, logger *slog.Logger, status int, msg string) {
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(ErrorResponse{Error: msg}); err != nil {
		logger.Error("Failed to encode error response", "error", err)
	}
}
