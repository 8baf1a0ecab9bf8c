package pairing

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"calcfleet/internal/models"
	"calcfleet/internal/repo"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

// GET|POST /api/pair/start?mac=...
// Устройство запрашивает постоянный код; ответ — plain text, чтобы
// прошивке не нужен был JSON-парсер.
func (h *Handler) Start(w http.ResponseWriter, r *http.Request) {
	mac := r.URL.Query().Get("mac")
	if mac == "" && r.Method == http.MethodPost {
		var body struct {
			MAC string `json:"mac"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		mac = body.MAC
	}
	code, err := h.svc.Issue(r.Context(), mac)
	if err != nil {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		if errors.Is(err, repo.ErrBadInput) {
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprintln(w, "bad mac")
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprintln(w, "server error")
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(code))
}

// GET /api/pair/resolve?code=...
func (h *Handler) Resolve(w http.ResponseWriter, r *http.Request) {
	mac, claimed, err := h.svc.Resolve(r.Context(), r.URL.Query().Get("code"))
	if err != nil {
		writePairError(w, err)
		return
	}
	models.WriteJSON(w, http.StatusOK, map[string]any{
		"ok":      true,
		"mac":     mac,
		"claimed": claimed,
	})
}

// POST /api/pair/claim  body: {code} — легаси-поток браузера.
func (h *Handler) ClaimWeb(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Code string `json:"code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Code) < 4 {
		models.WriteJSON(w, http.StatusBadRequest, map[string]any{"ok": false, "error": "invalid"})
		return
	}
	mac, token, err := h.svc.ClaimWeb(r.Context(), req.Code)
	if err != nil {
		models.WriteJSON(w, http.StatusBadRequest, map[string]any{"ok": false, "error": "invalid"})
		return
	}
	models.WriteJSON(w, http.StatusOK, map[string]any{"ok": true, "mac": mac, "webToken": token})
}

// POST /api/pair/reset/{mac} — админ: ротация кода + сброс состояния.
func (h *Handler) Reset(w http.ResponseWriter, r *http.Request) {
	mac := repo.NormalizeMAC(mux.Vars(r)["mac"])
	code, err := h.svc.Rotate(r.Context(), mac)
	if err != nil {
		writePairError(w, err)
		return
	}
	models.WriteJSON(w, http.StatusOK, map[string]any{"ok": true, "mac": mac, "code": code})
}

func writePairError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, repo.ErrBadInput):
		models.WriteJSON(w, http.StatusBadRequest, map[string]any{"ok": false, "error": "bad_mac"})
	case errors.Is(err, repo.ErrNotFound):
		models.WriteJSON(w, http.StatusNotFound, map[string]any{"ok": false, "error": "not_found"})
	case errors.Is(err, ErrAlreadyClaimed):
		models.WriteJSON(w, http.StatusConflict, map[string]any{"ok": false, "error": "already_claimed"})
	default:
		models.WriteJSON(w, http.StatusInternalServerError, map[string]any{"ok": false, "error": "server_error"})
	}
}
