package registry

import (
	"net/http"

	"github.com/gorilla/mux"
)

// RegisterRoutes вешает маршруты реестра. deviceAuth — опциональный
// сервис-токен для прошивок, adminAuth — обязательный для админских ручек
// (оба деградируют до «открыто», если токены не сконфигурированы).
func RegisterRoutes(r *mux.Router, h *Handler, deviceAuth, adminAuth mux.MiddlewareFunc) {
	dev := r.PathPrefix("/api/devices").Subrouter()
	dev.Use(deviceAuth)
	dev.HandleFunc("/register", h.Register).Methods(http.MethodPost)
	dev.HandleFunc("/register-public", h.Register).Methods(http.MethodPost) // алиас для старых прошивок
	dev.HandleFunc("/ping", h.Ping).Methods(http.MethodPost)

	adm := r.PathPrefix("/api/devices").Subrouter()
	adm.Use(adminAuth)
	adm.HandleFunc("", h.List).Methods(http.MethodGet)
	adm.HandleFunc("/{id}/update-flags", h.UpdateFlags).Methods(http.MethodPut)
	adm.HandleFunc("/{mac}/owner", h.Owner).Methods(http.MethodGet)
}
