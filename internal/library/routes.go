package library

import (
	"net/http"

	"github.com/gorilla/mux"
)

// RegisterRoutes вешает маршруты библиотеки на api-сабраутер.
func RegisterRoutes(api *mux.Router, h *Handler) {
	s := api.PathPrefix("/library").Subrouter()
	s.HandleFunc("", h.List).Methods(http.MethodGet)
	s.HandleFunc("/upload", h.Upload).Methods(http.MethodPost)
	s.HandleFunc("/duplicates", h.Duplicates).Methods(http.MethodGet)
	s.HandleFunc("/bulk-delete", h.BulkDelete).Methods(http.MethodPost)
	s.HandleFunc("/scan", h.Scan).Methods(http.MethodPost)
	s.HandleFunc("/export", h.Export).Methods(http.MethodGet)
	s.HandleFunc("/geometry/{id:[0-9]+}", h.Geometry).Methods(http.MethodGet)
	s.HandleFunc("/download/{id:[0-9]+}", h.Download).Methods(http.MethodGet, http.MethodHead)
	s.HandleFunc("/{id:[0-9]+}", h.Patch).Methods(http.MethodPatch)
	s.HandleFunc("/{id:[0-9]+}", h.Delete).Methods(http.MethodDelete)
	s.HandleFunc("/{id:[0-9]+}/tags", h.PutTags).Methods(http.MethodPut)
	s.HandleFunc("/{id:[0-9]+}/auto-tag", h.AutoTag).Methods(http.MethodPost)
}
