package handlers

import (
	"log/slog"
	"net/http"

	"github.com/scottsen/veinborn/internal/storage"
)

// PacksHandler lists available behavior packs.
//
// GET /v1/packs
type PacksHandler struct {
	storage storage.Storage
	logger  *slog.Logger
}

func NewPacksHandler(storage storage.Storage, logger *slog.Logger) *PacksHandler {
	return &PacksHandler{storage: storage, logger: logger}
}

func (h *PacksHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method != http.MethodGet {
		writeError(w, h.logger, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	names, err := h.storage.ListPacks(r.Context())
	if err != nil {
		h.logger.Error("Failed to list behavior packs", "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to list behavior packs")
		return
	}
	if names == nil {
		names = []string{}
	}
	writeJSON(w, h.logger, names)
}
