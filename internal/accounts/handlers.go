package accounts

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"calcfleet/internal/models"
	"calcfleet/internal/pairing"
	"calcfleet/internal/repo"
)

type Handler struct {
	svc *Service
	g   *repo.Gateway
}

func NewHandler(svc *Service, g *repo.Gateway) *Handler { return &Handler{svc: svc, g: g} }

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	PairCode string `json:"pairCode,omitempty"`
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		models.WriteProblem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body", nil)
		return
	}
	token, err := h.svc.Register(r.Context(), req.Username, req.Password, req.PairCode)
	if err != nil {
		h.writeErr(w, err)
		return
	}
	models.WriteJSON(w, http.StatusOK, map[string]any{"ok": true, "token": token})
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		models.WriteProblem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body", nil)
		return
	}
	token, err := h.svc.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		h.writeErr(w, err)
		return
	}
	models.WriteJSON(w, http.StatusOK, map[string]any{"ok": true, "token": token})
}

func (h *Handler) Whoami(w http.ResponseWriter, r *http.Request) {
	auth := r.Header.Get("Authorization")
	if !strings.HasPrefix(auth, "Bearer ") {
		models.WriteProblem(w, http.StatusUnauthorized, "Unauthorized", "bearer token required", nil)
		return
	}
	username, macs, err := h.svc.VerifyToken(strings.TrimPrefix(auth, "Bearer "))
	if err != nil {
		models.WriteProblem(w, http.StatusUnauthorized, "Unauthorized", "invalid token", nil)
		return
	}
	models.WriteJSON(w, http.StatusOK, map[string]any{"username": username, "devices": macs})
}

// ResetPassword сбрасывает пароль владельца устройства на временный.
func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	mac := repo.NormalizeMAC(mux.Vars(r)["mac"])
	owner, err := h.g.DeviceOwner(r.Context(), mac)
	if err != nil {
		h.writeErr(w, err)
		return
	}
	if owner == "" {
		models.WriteProblem(w, http.StatusNotFound, "Not Found", "device has no owner", nil)
		return
	}
	temp, err := h.svc.ResetPassword(r.Context(), owner)
	if err != nil {
		h.writeErr(w, err)
		return
	}
	models.WriteJSON(w, http.StatusOK, map[string]any{"ok": true, "username": owner, "password": temp})
}

func (h *Handler) writeErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrBadUsername):
		models.WriteProblem(w, http.StatusBadRequest, "Bad Request", "username and password required", nil)
	case errors.Is(err, ErrBadCredentials):
		models.WriteProblem(w, http.StatusUnauthorized, "Unauthorized", "bad credentials", nil)
	case errors.Is(err, pairing.ErrAlreadyClaimed):
		models.WriteProblem(w, http.StatusConflict, "Conflict", "device already claimed", nil)
	case errors.Is(err, repo.ErrNotFound):
		models.WriteProblem(w, http.StatusNotFound, "Not Found", "not found", nil)
	default:
		models.WriteProblem(w, http.StatusInternalServerError, "Internal Server Error", "account storage failed", nil)
	}
}
