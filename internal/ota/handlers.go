package ota

import (
	"net/http"

	"github.com/gorilla/mux"

	"calcfleet/internal/models"
)

type Handler struct {
	coord *Coordinator
}

func NewHandler(coord *Coordinator) *Handler { return &Handler{coord: coord} }

// GET /api/ota/check-update/{deviceId}?currentVersion=...
func (h *Handler) CheckUpdate(w http.ResponseWriter, r *http.Request) {
	check, err := h.coord.CheckUpdate(r.Context(),
		mux.Vars(r)["deviceId"], r.URL.Query().Get("currentVersion"))
	if err != nil {
		models.WriteProblem(w, http.StatusInternalServerError, "Internal Server Error", "check failed", nil)
		return
	}
	models.WriteJSON(w, http.StatusOK, check)
}

// RegisterRoutes — проверка обновления за (опциональным) сервис-токеном.
func RegisterRoutes(r *mux.Router, h *Handler, deviceAuth mux.MiddlewareFunc) {
	dev := r.PathPrefix("/api/ota").Subrouter()
	dev.Use(deviceAuth)
	dev.HandleFunc("/check-update/{deviceId}", h.CheckUpdate).Methods(http.MethodGet)
}
