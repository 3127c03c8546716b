package fleet

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"spool/internal/models"
	"spool/internal/repo"
)

type Handler struct {
	ds     *repo.DeviceStore
	poller *Poller
	camera *CameraCache
}

func NewHandler(ds *repo.DeviceStore, poller *Poller, camera *CameraCache) *Handler {
	return &Handler{ds: ds, poller: poller, camera: camera}
}

// GET /api/printers/status
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	models.WriteJSON(w, http.StatusOK, map[string]any{
		"devices":   h.poller.Snapshot(),
		"last_poll": h.poller.LastPoll(),
	})
}

// GET /api/printers/camera-snapshot?device=<serial>&t=<counter>
// Параметр t — cache-busting от клиента, сервером игнорируется.
func (h *Handler) CameraSnapshot(w http.ResponseWriter, r *http.Request) {
	serial := r.URL.Query().Get("device")
	if serial == "" {
		models.WriteProblem(w, http.StatusBadRequest, "Bad Request", "device query param required", nil)
		return
	}
	frame, ok := h.camera.Frame(serial)
	if !ok {
		models.WriteProblem(w, http.StatusServiceUnavailable, "Camera Unavailable",
			"no recent frame for device", map[string]any{"device": serial})
		return
	}
	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(frame)
}

type registerRequest struct {
	Serial         string  `json:"id"`
	Name           string  `json:"name"`
	Model          string  `json:"model"`
	Host           string  `json:"host"`
	NozzleDiameter float64 `json:"nozzle_diameter"`
	AccessCode     string  `json:"access_code"`
}

// POST /api/printers
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		models.WriteProblem(w, http.StatusBadRequest, "Bad Request", err.Error(), nil)
		return
	}
	dev, isNew, err := h.ds.Register(r.Context(), repo.RegisterDeviceInput{
		Serial:         req.Serial,
		Name:           req.Name,
		Model:          req.Model,
		Host:           req.Host,
		NozzleDiameter: req.NozzleDiameter,
		AccessCode:     req.AccessCode,
	})
	if err != nil {
		switch {
		case errors.Is(err, repo.ErrBadSerial):
			models.WriteProblem(w, http.StatusBadRequest, "Bad Request", err.Error(), nil)
		case errors.Is(err, repo.ErrNoDB):
			models.WriteProblem(w, http.StatusServiceUnavailable, "No Database", err.Error(), nil)
		default:
			models.WriteProblem(w, http.StatusInternalServerError, "Internal Server Error", err.Error(), nil)
		}
		return
	}
	status := http.StatusOK
	if isNew {
		status = http.StatusCreated
	}
	models.WriteJSON(w, status, dev)
}

// GET /api/printers
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	devs, err := h.ds.List(r.Context())
	if err != nil {
		models.WriteProblem(w, http.StatusInternalServerError, "Internal Server Error", err.Error(), nil)
		return
	}
	if devs == nil {
		devs = []models.Device{}
	}
	models.WriteJSON(w, http.StatusOK, devs)
}

// DELETE /api/printers/{serial}
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	serial := mux.Vars(r)["serial"]
	if err := h.ds.Delete(r.Context(), serial); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			models.WriteProblem(w, http.StatusNotFound, "Not Found", "no such device", nil)
			return
		}
		models.WriteProblem(w, http.StatusInternalServerError, "Internal Server Error", err.Error(), nil)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
