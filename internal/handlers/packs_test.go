package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"testing"

	"github.com/scottsen/veinborn/internal/storage"
)

func TestPacksHandler_ServeHTTP(t *testing.T) {
	mockStorage := storage.NewMockStorage()
	mockStorage.AddPack("crypt_of_embers", &storage.BehaviorPack{Name: "crypt_of_embers"})
	mockStorage.AddPack("sunken_halls", &storage.BehaviorPack{Name: "sunken_halls"})

	handler := NewPacksHandler(mockStorage, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/v1/packs", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rr.Code)
	}

	var names []string
	if err := json.NewDecoder(rr.Body).Decode(&names); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	sort.Strings(names)
	if len(names) != 2 || names[0] != "crypt_of_embers" || names[1] != "sunken_halls" {
		t.Errorf("Expected both packs, got %v", names)
	}
}

func TestPacksHandler_Empty(t *testing.T) {
	handler := NewPacksHandler(storage.NewMockStorage(), testLogger())

	req := httptest.NewRequest(http.MethodGet, "/v1/packs", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rr.Code)
	}
	var names []string
	if err := json.NewDecoder(rr.Body).Decode(&names); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if names == nil || len(names) != 0 {
		t.Errorf("Expected empty non-nil list, got %v", names)
	}
}

func TestPacksHandler_MethodNotAllowed(t *testing.T) {
	handler := NewPacksHandler(storage.NewMockStorage(), testLogger())

	req := httptest.NewRequest(http.MethodPost, "/v1/packs", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("Expected status 405, got %d", rr.Code)
	}
}
