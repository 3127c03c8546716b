package fleet

import (
	"net/http"

	"github.com/gorilla/mux"
)

// RegisterRoutes вешает маршруты флота на api-сабраутер.
func RegisterRoutes(api *mux.Router, h *Handler) {
	sub := api.PathPrefix("/printers").Subrouter()
	sub.HandleFunc("/status", h.Status).Methods(http.MethodGet)
	sub.HandleFunc("/camera-snapshot", h.CameraSnapshot).Methods(http.MethodGet)
	sub.HandleFunc("", h.List).Methods(http.MethodGet)
	sub.HandleFunc("", h.Register).Methods(http.MethodPost)
	sub.HandleFunc("/{serial}", h.Delete).Methods(http.MethodDelete)
}
