// Package prefs — персистентные UI-настройки: клиент читает всё при
// старте и пишет по ключу на каждое изменение.
package prefs

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/gorilla/mux"

	"spool/internal/models"
	"spool/internal/repo"
)

const maxPrefBytes = 16 << 10

type Handler struct {
	store *repo.PrefStore
}

func NewHandler(store *repo.PrefStore) *Handler { return &Handler{store: store} }

// GET /api/prefs
func (h *Handler) All(w http.ResponseWriter, r *http.Request) {
	prefs, err := h.store.All(r.Context())
	if err != nil {
		models.WriteProblem(w, http.StatusInternalServerError, "Internal Server Error", err.Error(), nil)
		return
	}
	models.WriteJSON(w, http.StatusOK, prefs)
}

// PUT /api/prefs/{key} — тело запроса = JSON-значение целиком.
func (h *Handler) Put(w http.ResponseWriter, r *http.Request) {
	key := mux.Vars(r)["key"]
	body, err := io.ReadAll(io.LimitReader(r.Body, maxPrefBytes+1))
	if err != nil {
		models.WriteProblem(w, http.StatusBadRequest, "Bad Request", err.Error(), nil)
		return
	}
	if len(body) > maxPrefBytes {
		models.WriteProblem(w, http.StatusRequestEntityTooLarge, "Value Too Large", "pref value exceeds limit", nil)
		return
	}
	if !json.Valid(body) {
		models.WriteProblem(w, http.StatusBadRequest, "Bad Request", "value must be valid JSON", nil)
		return
	}
	if err := h.store.Put(r.Context(), key, body); err != nil {
		models.WriteProblem(w, http.StatusInternalServerError, "Internal Server Error", err.Error(), nil)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func RegisterRoutes(api *mux.Router, h *Handler) {
	s := api.PathPrefix("/prefs").Subrouter()
	s.HandleFunc("", h.All).Methods(http.MethodGet)
	s.HandleFunc("/{key}", h.Put).Methods(http.MethodPut)
}
