package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scottsen/veinborn/internal/engine"
	"github.com/scottsen/veinborn/internal/game"
	"github.com/scottsen/veinborn/internal/script"
	"github.com/scottsen/veinborn/internal/storage"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelError, // Reduce noise in tests
	}))
}

// setupSessionHandler wires a handler over mock storage carrying one
// behavior pack. The goblin behavior is backed by a real script so the
// action route exercises the full scripted path.
func setupSessionHandler(t *testing.T) (*SessionHandler, *storage.MockStorage) {
	t.Helper()

	scriptPath := filepath.Join(t.TempDir(), "goblin.lua")
	src := `
function decide(actor, config)
  local player = world.player()
  if player == nil then
    return { action = "idle" }
  end
  if world.adjacent(actor.id, player.id) then
    return { action = "attack", target_id = player.id }
  end
  return { action = "move_towards", target_id = player.id }
end
`
	require.NoError(t, os.WriteFile(scriptPath, []byte(src), 0o644))

	mockStorage := storage.NewMockStorage()
	mockStorage.AddPack("crypt_of_embers", &storage.BehaviorPack{
		Name: "crypt_of_embers",
		Behaviors: map[string]storage.ScriptRef{
			"goblin": {Script: scriptPath},
		},
	})

	logger := testLogger()
	runtime := game.NewRuntime(script.NewBridge(0, logger), logger)
	return NewSessionHandler(mockStorage, runtime, logger), mockStorage
}

func createTestSession(t *testing.T, handler *SessionHandler) *storage.Session {
	t.Helper()

	reqBody := `{"pack":"crypt_of_embers","seed":7}`
	req := httptest.NewRequest(http.MethodPost, "/v1/session", strings.NewReader(reqBody))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)
	require.Equal(t, http.StatusCreated, rr.Code, "response body: %s", rr.Body.String())

	var session storage.Session
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&session))
	return &session
}

func TestSessionHandler_Create(t *testing.T) {
	handler, mockStorage := setupSessionHandler(t)

	session := createTestSession(t, handler)
	assert.NotEqual(t, uuid.Nil, session.ID)
	assert.Equal(t, "crypt_of_embers", session.Pack)
	assert.False(t, session.World.GameOver)
	assert.NotEmpty(t, session.World.Entities, "default entities should be spawned")

	// The first entity is the player.
	assert.Equal(t, "Adventurer", session.World.Entities[0].Name)

	saved, err := mockStorage.LoadSession(context.Background(), session.ID)
	require.NoError(t, err)
	require.NotNil(t, saved, "session should be persisted")
}

func TestSessionHandler_CreateErrors(t *testing.T) {
	handler, _ := setupSessionHandler(t)

	tests := []struct {
		name           string
		method         string
		body           string
		expectedStatus int
	}{
		{
			name:           "missing pack field",
			method:         http.MethodPost,
			body:           `{"seed":7}`,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "unknown pack",
			method:         http.MethodPost,
			body:           `{"pack":"no_such_pack","seed":7}`,
			expectedStatus: http.StatusNotFound,
		},
		{
			name:           "invalid JSON",
			method:         http.MethodPost,
			body:           `{invalid json}`,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "method not allowed",
			method:         http.MethodGet,
			body:           "",
			expectedStatus: http.StatusMethodNotAllowed,
		},
		{
			name:           "world without player",
			method:         http.MethodPost,
			body:           `{"pack":"crypt_of_embers","seed":7,"entities":[{"name":"Goblin","type":"monster","pos":{"x":1,"y":1},"stats":{"hp":6,"max_hp":6}}]}`,
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/v1/session", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			rr := httptest.NewRecorder()

			handler.ServeHTTP(rr, req)
			assert.Equal(t, tt.expectedStatus, rr.Code, "response body: %s", rr.Body.String())

			var errResp ErrorResponse
			require.NoError(t, json.NewDecoder(rr.Body).Decode(&errResp))
			assert.NotEmpty(t, errResp.Error)
		})
	}
}

func TestSessionHandler_Read(t *testing.T) {
	handler, _ := setupSessionHandler(t)
	session := createTestSession(t, handler)

	req := httptest.NewRequest(http.MethodGet, "/v1/session/"+session.ID.String(), nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var loaded storage.Session
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&loaded))
	assert.Equal(t, session.ID, loaded.ID)
	assert.Equal(t, session.Pack, loaded.Pack)
}

func TestSessionHandler_ReadNotFound(t *testing.T) {
	handler, _ := setupSessionHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/session/"+uuid.New().String(), nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestSessionHandler_InvalidID(t *testing.T) {
	handler, _ := setupSessionHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/session/not-a-uuid", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestSessionHandler_Delete(t *testing.T) {
	handler, mockStorage := setupSessionHandler(t)
	session := createTestSession(t, handler)

	req := httptest.NewRequest(http.MethodDelete, "/v1/session/"+session.ID.String(), nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusNoContent, rr.Code)

	saved, err := mockStorage.LoadSession(context.Background(), session.ID)
	require.NoError(t, err)
	assert.Nil(t, saved, "session should be gone after delete")
}

func TestSessionHandler_Action(t *testing.T) {
	handler, mockStorage := setupSessionHandler(t)
	session := createTestSession(t, handler)

	reqBody := `{"action":{"action":"idle"}}`
	req := httptest.NewRequest(http.MethodPost, "/v1/session/"+session.ID.String()+"/action", strings.NewReader(reqBody))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code, "response body: %s", rr.Body.String())

	var result engine.TurnResult
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&result))
	assert.True(t, result.Player.Success)
	assert.True(t, result.Player.TookTurn)
	assert.Equal(t, 1, result.Turn)
	assert.False(t, result.GameOver)

	// The advanced world is persisted, so the next action continues from
	// turn 1.
	saved, err := mockStorage.LoadSession(context.Background(), session.ID)
	require.NoError(t, err)
	require.NotNil(t, saved)
	assert.Equal(t, 1, saved.World.Turn)
}

func TestSessionHandler_ActionSequence(t *testing.T) {
	handler, _ := setupSessionHandler(t)
	session := createTestSession(t, handler)

	for turn := 1; turn <= 3; turn++ {
		reqBody := `{"action":{"action":"idle"}}`
		req := httptest.NewRequest(http.MethodPost, "/v1/session/"+session.ID.String()+"/action", strings.NewReader(reqBody))
		req.Header.Set("Content-Type", "application/json")
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)

		require.Equal(t, http.StatusOK, rr.Code, "turn %d: %s", turn, rr.Body.String())
		var result engine.TurnResult
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&result))
		assert.Equal(t, turn, result.Turn)
	}
}

func TestSessionHandler_ActionErrors(t *testing.T) {
	handler, _ := setupSessionHandler(t)
	session := createTestSession(t, handler)

	tests := []struct {
		name           string
		target         string
		body           string
		expectedStatus int
	}{
		{
			name:           "missing action kind",
			target:         "/v1/session/" + session.ID.String() + "/action",
			body:           `{"action":{}}`,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "invalid JSON",
			target:         "/v1/session/" + session.ID.String() + "/action",
			body:           `{invalid}`,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "unknown session",
			target:         "/v1/session/" + uuid.New().String() + "/action",
			body:           `{"action":{"action":"idle"}}`,
			expectedStatus: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, tt.target, strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			assert.Equal(t, tt.expectedStatus, rr.Code, "response body: %s", rr.Body.String())
		})
	}
}

// brokenSessionStorage wraps the mock store with a session load that
// always errors.
type brokenSessionStorage struct {
	*storage.MockStorage
}

func (b *brokenSessionStorage) LoadSession(ctx context.Context, id uuid.UUID) (*storage.Session, error) {
	return nil, errors.New("redis: connection lost")
}

func TestSessionHandler_StorageFailureLogsError(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))

	broken := &brokenSessionStorage{storage.NewMockStorage()}
	runtime := game.NewRuntime(script.NewBridge(0, logger), logger)
	handler := NewSessionHandler(broken, runtime, logger)

	req := httptest.NewRequest(http.MethodGet, "/v1/session/"+uuid.New().String(), nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusInternalServerError, rr.Code)

	var errResp ErrorResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&errResp))
	assert.Equal(t, "Failed to load session", errResp.Error)

	// The storage error lands in the log record, not in the response.
	assert.Contains(t, buf.String(), "error=")
	assert.Contains(t, buf.String(), "redis: connection lost")
}

func TestSessionHandler_RejectedActionDoesNotAdvance(t *testing.T) {
	handler, mockStorage := setupSessionHandler(t)
	session := createTestSession(t, handler)

	// Attack a target far out of reach. The rejection comes back as a
	// failed outcome, not an HTTP error, and the turn does not move.
	reqBody := `{"action":{"action":"attack","target_id":3}}`
	req := httptest.NewRequest(http.MethodPost, "/v1/session/"+session.ID.String()+"/action", strings.NewReader(reqBody))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code, "response body: %s", rr.Body.String())
	var result engine.TurnResult
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&result))
	assert.False(t, result.Player.Success)
	assert.False(t, result.Player.TookTurn)
	assert.NotEmpty(t, result.Player.Messages, "rejection carries a reason")
	assert.Equal(t, 0, result.Turn)

	saved, err := mockStorage.LoadSession(context.Background(), session.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, saved.World.Turn)
}
