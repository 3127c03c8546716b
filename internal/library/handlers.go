package library

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"spool/internal/models"
	"spool/internal/repo"
	"spool/internal/tarball"
)

type Handler struct {
	svc        *Service
	normalizer Normalizer
}

func NewHandler(svc *Service, normalizer Normalizer) *Handler {
	return &Handler{svc: svc, normalizer: normalizer}
}

func pathID(r *http.Request) (uint, error) {
	id, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 32)
	return uint(id), err
}

func writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, repo.ErrNotFound):
		models.WriteProblem(w, http.StatusNotFound, "Not Found", "no such library file", nil)
	case errors.Is(err, repo.ErrNoDB):
		models.WriteProblem(w, http.StatusServiceUnavailable, "No Database", err.Error(), nil)
	default:
		models.WriteProblem(w, http.StatusInternalServerError, "Internal Server Error", err.Error(), nil)
	}
}

// GET /api/library
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	files, err := h.svc.List(r.Context())
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if files == nil {
		files = []models.LibraryFile{}
	}
	models.WriteJSON(w, http.StatusOK, files)
}

// POST /api/library/upload (multipart, поле file)
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	file, hdr, err := r.FormFile("file")
	if err != nil {
		models.WriteProblem(w, http.StatusBadRequest, "Bad Request", "multipart field 'file' required", nil)
		return
	}
	defer file.Close()

	f, err := h.svc.Upload(r.Context(), hdr.Filename, file)
	if err != nil {
		switch {
		case errors.Is(err, ErrUnsupportedType):
			models.WriteProblem(w, http.StatusUnsupportedMediaType, "Unsupported File Type", err.Error(), nil)
		case errors.Is(err, ErrTooLarge):
			models.WriteProblem(w, http.StatusRequestEntityTooLarge, "File Too Large", err.Error(), nil)
		default:
			writeStoreError(w, err)
		}
		return
	}
	models.WriteJSON(w, http.StatusCreated, f)
}

type patchRequest struct {
	Description *string  `json:"description"`
	Tags        []string `json:"tags"`
}

// PATCH /api/library/{id}
func (h *Handler) Patch(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		models.WriteProblem(w, http.StatusBadRequest, "Bad Request", "bad id", nil)
		return
	}
	var req patchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		models.WriteProblem(w, http.StatusBadRequest, "Bad Request", err.Error(), nil)
		return
	}
	f, err := h.svc.PatchMetadata(r.Context(), id, req.Description, req.Tags)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	models.WriteJSON(w, http.StatusOK, f)
}

type tagsRequest struct {
	Tags []string `json:"tags"`
}

// PUT /api/library/{id}/tags
func (h *Handler) PutTags(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		models.WriteProblem(w, http.StatusBadRequest, "Bad Request", "bad id", nil)
		return
	}
	var req tagsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		models.WriteProblem(w, http.StatusBadRequest, "Bad Request", err.Error(), nil)
		return
	}
	f, err := h.svc.ReplaceTags(r.Context(), id, req.Tags)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	models.WriteJSON(w, http.StatusOK, f)
}

// POST /api/library/{id}/auto-tag
func (h *Handler) AutoTag(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		models.WriteProblem(w, http.StatusBadRequest, "Bad Request", "bad id", nil)
		return
	}
	f, err := h.svc.AutoTag(r.Context(), id)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	models.WriteJSON(w, http.StatusOK, map[string]any{
		"description": f.Description,
		"tags":        f.TagList(),
	})
}

// DELETE /api/library/{id}
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		models.WriteProblem(w, http.StatusBadRequest, "Bad Request", "bad id", nil)
		return
	}
	if err := h.svc.Delete(r.Context(), id); err != nil {
		writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type bulkDeleteRequest struct {
	IDs []uint `json:"ids"`
}

// POST /api/library/bulk-delete
func (h *Handler) BulkDelete(w http.ResponseWriter, r *http.Request) {
	var req bulkDeleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		models.WriteProblem(w, http.StatusBadRequest, "Bad Request", err.Error(), nil)
		return
	}
	models.WriteJSON(w, http.StatusOK, h.svc.BulkDelete(r.Context(), req.IDs))
}

// POST /api/library/scan
func (h *Handler) Scan(w http.ResponseWriter, r *http.Request) {
	added, err := h.svc.Scan(r.Context())
	if err != nil {
		writeStoreError(w, err)
		return
	}
	models.WriteJSON(w, http.StatusOK, map[string]int{"added": added})
}

// duplicateGroup — группа в ответе API вместе с подсказкой keep/delete.
// Подсказка не исполняется сервером: удаление требует явного запроса.
type duplicateGroup struct {
	Group
	KeepID           uint   `json:"keep_id"`
	DeleteSuggestion []uint `json:"delete_suggested_ids"`
}

// GET /api/library/duplicates?groupBy=hash|name|size
func (h *Handler) Duplicates(w http.ResponseWriter, r *http.Request) {
	mode, err := ParseMode(r.URL.Query().Get("groupBy"))
	if err != nil {
		models.WriteProblem(w, http.StatusBadRequest, "Bad Request", err.Error(), nil)
		return
	}
	files, err := h.svc.List(r.Context())
	if err != nil {
		writeStoreError(w, err)
		return
	}

	groups := GroupDuplicates(files, mode, h.normalizer)
	out := make([]duplicateGroup, 0, len(groups))
	for _, g := range groups {
		dg := duplicateGroup{Group: g, KeepID: g.Members[0].ID}
		for _, f := range SelectForDeletion(g) {
			dg.DeleteSuggestion = append(dg.DeleteSuggestion, f.ID)
		}
		out = append(out, dg)
	}
	models.WriteJSON(w, http.StatusOK, map[string]any{"duplicates": out})
}

// GET /api/library/geometry/{id}
// Fast path вьювера: для stl отдаём binary mesh как octet-stream; compound
// форматы (3mf) отдаются со своим content-type — клиент уходит в фолбэк.
func (h *Handler) Geometry(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		models.WriteProblem(w, http.StatusBadRequest, "Bad Request", "bad id", nil)
		return
	}
	f, err := h.svc.Get(r.Context(), id)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	switch f.FileType {
	case models.FileTypeSTL:
		w.Header().Set("Content-Type", "application/octet-stream")
	case models.FileTypeThree:
		w.Header().Set("Content-Type", "model/3mf")
	default:
		models.WriteProblem(w, http.StatusNotFound, "Not Found", "no geometry for file type", nil)
		return
	}
	http.ServeFile(w, r, f.StoragePath)
}

// GET|HEAD /api/library/download/{id}
// HEAD — metadata probe: клиент читает content-length до скачивания.
func (h *Handler) Download(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		models.WriteProblem(w, http.StatusBadRequest, "Bad Request", "bad id", nil)
		return
	}
	f, err := h.svc.Get(r.Context(), id)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", f.OriginalName))
	http.ServeFile(w, r, f.StoragePath)
}

// GET /api/library/export?ids=1,2,3
// Детерминированный tar.gz выбранных файлов.
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	var ids []uint
	for _, part := range strings.Split(r.URL.Query().Get("ids"), ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseUint(part, 10, 32)
		if err != nil {
			models.WriteProblem(w, http.StatusBadRequest, "Bad Request", "bad ids list", nil)
			return
		}
		ids = append(ids, uint(id))
	}
	if len(ids) == 0 {
		models.WriteProblem(w, http.StatusBadRequest, "Bad Request", "ids query param required", nil)
		return
	}

	var entries []tarball.Entry
	for _, id := range ids {
		f, err := h.svc.Get(r.Context(), id)
		if err != nil {
			writeStoreError(w, err)
			return
		}
		data, err := os.ReadFile(f.StoragePath)
		if err != nil {
			models.WriteProblem(w, http.StatusInternalServerError, "Internal Server Error", err.Error(), nil)
			return
		}
		// уникализируем имя через id: original_name может повторяться
		entries = append(entries, tarball.Entry{
			Name: fmt.Sprintf("%d_%s", f.ID, f.OriginalName),
			Data: data,
		})
	}

	archive, sum, err := tarball.Build(entries)
	if err != nil {
		models.WriteProblem(w, http.StatusInternalServerError, "Internal Server Error", err.Error(), nil)
		return
	}
	w.Header().Set("Content-Type", "application/gzip")
	w.Header().Set("Content-Disposition", `attachment; filename="library-export.tar.gz"`)
	w.Header().Set("X-Checksum-Sha256", sum)
	_, _ = w.Write(archive)
}
