package firmware

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"calcfleet/internal/models"
)

// DownloadRecorder получает отметку "устройство скачало версию".
type DownloadRecorder interface {
	RecordDownload(ctx context.Context, mac, version string)
}

type Handler struct {
	store    *Store
	recorder DownloadRecorder // nil — без учёта скачиваний
}

func NewHandler(store *Store, recorder DownloadRecorder) *Handler {
	return &Handler{store: store, recorder: recorder}
}

// POST /api/ota/firmware/upload  body: {version, data(base64), description?}
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Version     string `json:"version"`
		Data        string `json:"data"`
		Description string `json:"description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		models.WriteProblem(w, http.StatusBadRequest, "Bad Request", "invalid json body", nil)
		return
	}
	data, err := base64.StdEncoding.DecodeString(req.Data)
	if err != nil {
		models.WriteProblem(w, http.StatusBadRequest, "Bad Request", "data must be base64", nil)
		return
	}
	art, err := h.store.Publish(req.Version, data, req.Description)
	if err != nil {
		writeFwError(w, err)
		return
	}
	models.WriteJSON(w, http.StatusCreated, map[string]any{
		"ok":      true,
		"version": art.Version,
		"size":    art.Size,
		"sha256":  art.SHA256,
	})
}

// GET|HEAD /api/ota/firmware/{version}
// Опубликованные байты неизменяемы — можно отдавать долгоживущий кэш и
// валидатор, производный от дайджеста.
func (h *Handler) Download(w http.ResponseWriter, r *http.Request) {
	version := mux.Vars(r)["version"]
	data, art, err := h.store.Fetch(r.Context(), version)
	if err != nil {
		writeFwError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.bin"`, art.Version))
	w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	if art.SHA256 != "" {
		w.Header().Set("ETag", `"sha256:`+art.SHA256+`"`)
		w.Header().Set("X-Firmware-SHA256", art.SHA256)
	}
	if r.Method == http.MethodHead {
		w.WriteHeader(http.StatusOK)
		return
	}
	if mac := r.URL.Query().Get("device"); mac != "" && h.recorder != nil {
		h.recorder.RecordDownload(r.Context(), mac, art.Version)
	}
	_, _ = w.Write(data)
}

// GET /api/ota/firmware/list
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	manifest := h.store.List()
	models.WriteJSON(w, http.StatusOK, map[string]any{
		"ok":       true,
		"count":    len(manifest),
		"firmware": manifest,
	})
}

// GET /api/ota/firmware/latest
func (h *Handler) Latest(w http.ResponseWriter, r *http.Request) {
	art := h.store.Latest()
	if art == nil {
		models.WriteProblem(w, http.StatusNotFound, "Not Found", "no firmware published", nil)
		return
	}
	models.WriteJSON(w, http.StatusOK, map[string]any{"ok": true, "firmware": art})
}

// DELETE /api/ota/firmware/{version}
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Delete(mux.Vars(r)["version"]); err != nil {
		writeFwError(w, err)
		return
	}
	models.WriteJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// POST /api/ota/firmware/clear-all
func (h *Handler) ClearAll(w http.ResponseWriter, r *http.Request) {
	if err := h.store.ClearAll(); err != nil {
		models.WriteProblem(w, http.StatusInternalServerError, "Internal Server Error", "clear failed", nil)
		return
	}
	models.WriteJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func writeFwError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrBadVersion):
		models.WriteProblem(w, http.StatusBadRequest, "Bad Request", "bad_version", nil)
	case errors.Is(err, ErrNotFound):
		models.WriteProblem(w, http.StatusNotFound, "Not Found", "not_found", nil)
	case errors.Is(err, ErrUpstreamUnavailable):
		models.WriteProblem(w, http.StatusBadGateway, "Bad Gateway", "upstream_unavailable", nil)
	default:
		models.WriteProblem(w, http.StatusInternalServerError, "Internal Server Error", "firmware_failure", nil)
	}
}
