package accounts

import (
	"net/http"

	"github.com/gorilla/mux"

	"calcfleet/internal/middleware"
)

func RegisterRoutes(r *mux.Router, h *Handler, adminAuth mux.MiddlewareFunc) {
	pub := r.PathPrefix("/api/auth").Subrouter()
	pub.Use(middleware.CORS)
	pub.HandleFunc("/register", h.Register).Methods(http.MethodPost, http.MethodOptions)
	pub.HandleFunc("/login", h.Login).Methods(http.MethodPost, http.MethodOptions)
	pub.HandleFunc("/whoami", h.Whoami).Methods(http.MethodGet, http.MethodOptions)

	adm := r.PathPrefix("/api/devices").Subrouter()
	adm.Use(adminAuth)
	adm.HandleFunc("/{mac}/reset-password", h.ResetPassword).Methods(http.MethodPost)
}
