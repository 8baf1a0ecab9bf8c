package registry

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"calcfleet/internal/models"
	"calcfleet/internal/repo"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

// POST /api/devices/register
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		models.WriteProblem(w, http.StatusBadRequest, "Bad Request", "invalid json body", nil)
		return
	}
	if req.MAC == "" || req.ChipID == "" {
		models.WriteProblem(w, http.StatusBadRequest, "Bad Request", "mac and chipId required", nil)
		return
	}
	d, err := h.svc.Upsert(r.Context(), UpsertInput{
		MAC:       req.MAC,
		ChipID:    req.ChipID,
		Model:     req.Model,
		Firmware:  req.Firmware,
		Name:      req.Name,
		FirstSeen: req.FirstSeen.TimePtr(),
		Telemetry: telemetryJSON(req.RSSI, req.Uptime, time.Now().UTC()),
	})
	if err != nil {
		writeSvcError(w, err)
		return
	}
	models.WriteJSON(w, http.StatusOK, map[string]any{
		"ok":       true,
		"deviceId": d.MAC,
		"device":   d,
	})
}

// POST /api/devices/ping
func (h *Handler) Ping(w http.ResponseWriter, r *http.Request) {
	var req pingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		models.WriteProblem(w, http.StatusBadRequest, "Bad Request", "invalid json body", nil)
		return
	}
	d, err := h.svc.Ping(r.Context(), req.MAC, req.Firmware,
		telemetryJSON(req.RSSI, req.Uptime, time.Now().UTC()))
	if err != nil {
		writeSvcError(w, err)
		return
	}
	models.WriteJSON(w, http.StatusOK, map[string]any{
		"ok":       true,
		"deviceId": d.MAC,
		"device":   d,
	})
}

// GET /api/devices
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	devices, err := h.svc.List(r.Context())
	if err != nil {
		writeSvcError(w, err)
		return
	}
	models.WriteJSON(w, http.StatusOK, map[string]any{
		"ok":      true,
		"count":   len(devices),
		"devices": devices,
	})
}

// PUT /api/devices/{id}/update-flags
func (h *Handler) UpdateFlags(w http.ResponseWriter, r *http.Request) {
	var req updateFlagsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		models.WriteProblem(w, http.StatusBadRequest, "Bad Request", "invalid json body", nil)
		return
	}
	d, err := h.svc.SetUpdateFlags(r.Context(), mux.Vars(r)["id"], UpdateFlags{
		UpdateAvailable: req.UpdateAvailable,
		TargetFirmware:  req.TargetFirmware,
	})
	if err != nil {
		writeSvcError(w, err)
		return
	}
	models.WriteJSON(w, http.StatusOK, map[string]any{"ok": true, "device": d})
}

// GET /api/devices/{mac}/owner
func (h *Handler) Owner(w http.ResponseWriter, r *http.Request) {
	mac := mux.Vars(r)["mac"]
	owner, err := h.svc.Owner(r.Context(), mac)
	if err != nil {
		writeSvcError(w, err)
		return
	}
	resp := map[string]any{"ok": true, "mac": mac, "username": nil}
	if owner != "" {
		resp["username"] = owner
	}
	models.WriteJSON(w, http.StatusOK, resp)
}

func writeSvcError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, repo.ErrBadInput):
		models.WriteProblem(w, http.StatusBadRequest, "Bad Request", "bad_input", nil)
	case errors.Is(err, ErrNotRegistered):
		models.WriteProblem(w, http.StatusNotFound, "Not Found", "not_registered", nil)
	case errors.Is(err, ErrNotFound), errors.Is(err, repo.ErrNotFound):
		models.WriteProblem(w, http.StatusNotFound, "Not Found", "not_found", nil)
	default:
		models.WriteProblem(w, http.StatusInternalServerError, "Internal Server Error", "storage_failure", nil)
	}
}
