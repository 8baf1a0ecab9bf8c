package notes

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

// AccountVerifier проверяет токен аккаунта и отдаёт список его устройств.
type AccountVerifier interface {
	VerifyToken(token string) (username string, macs []string, err error)
}

type Handler struct {
	svc    *Service
	pair   *pairing.Service
	web    *pairing.TokenTable
	verify AccountVerifier
	admin  []string
}

func NewHandler(svc *Service, pair *pairing.Service, web *pairing.TokenTable, verify AccountVerifier, adminTokens []string) *Handler {
	return &Handler{svc: svc, pair: pair, web: web, verify: verify, admin: adminTokens}
}

// authorized — доступ к заметкам по любому из предъявленных секретов:
// сервис-токен, пин сопряжения, веб-токен либо Bearer-токен владельца.
// Без настроенных сервис-токенов доступ открыт (dev-режим).
func (h *Handler) authorized(r *http.Request, mac string) bool {
	if len(h.admin) == 0 {
		return true
	}
	if tok := r.Header.Get("X-Service-Token"); tok != "" {
		for _, t := range h.admin {
			if tok == t {
				return true
			}
		}
	}
	if code := r.Header.Get("X-Pair-Code"); code != "" {
		if m, _, err := h.pair.Resolve(r.Context(), code); err == nil && m == mac {
			return true
		}
	}
	if tok := r.Header.Get("X-Web-Token"); tok != "" {
		if h.web.Lookup(tok) == mac {
			return true
		}
	}
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") && h.verify != nil {
		if _, macs, err := h.verify.VerifyToken(strings.TrimPrefix(auth, "Bearer ")); err == nil {
			for _, m := range macs {
				if m == mac {
					return true
				}
			}
		}
	}
	return false
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	mac := repo.NormalizeMAC(mux.Vars(r)["mac"])
	if !h.authorized(r, mac) {
		models.WriteProblem(w, http.StatusUnauthorized, "Unauthorized", "credential required", nil)
		return
	}
	text, err := h.svc.Get(r.Context(), mac)
	if err != nil {
		h.writeErr(w, err)
		return
	}
	if text == "" {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(text))
}

func (h *Handler) Set(w http.ResponseWriter, r *http.Request) {
	mac := repo.NormalizeMAC(mux.Vars(r)["mac"])
	if !h.authorized(r, mac) {
		models.WriteProblem(w, http.StatusUnauthorized, "Unauthorized", "credential required", nil)
		return
	}
	var req struct {
		Text   string `json:"text"`
		Append bool   `json:"append"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		models.WriteProblem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body", nil)
		return
	}
	text, err := h.svc.Set(r.Context(), mac, req.Text, req.Append)
	if err != nil {
		h.writeErr(w, err)
		return
	}
	models.WriteJSON(w, http.StatusOK, map[string]any{"ok": true, "length": len(text)})
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	mac := repo.NormalizeMAC(mux.Vars(r)["mac"])
	if !h.authorized(r, mac) {
		models.WriteProblem(w, http.StatusUnauthorized, "Unauthorized", "credential required", nil)
		return
	}
	if err := h.svc.Delete(r.Context(), mac); err != nil {
		h.writeErr(w, err)
		return
	}
	models.WriteJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (h *Handler) writeErr(w http.ResponseWriter, err error) {
	if errors.Is(err, repo.ErrBadInput) {
		models.WriteProblem(w, http.StatusBadRequest, "Bad Request", "bad mac", nil)
		return
	}
	models.WriteProblem(w, http.StatusInternalServerError, "Internal Server Error", "notes storage failed", nil)
}
