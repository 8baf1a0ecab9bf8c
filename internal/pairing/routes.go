package pairing

import (
	"net/http"

	"github.com/gorilla/mux"

	"calcfleet/internal/middleware"
)

// RegisterRoutes вешает маршруты пэйринга. Точки start/resolve/claim
// открыты (устройство ещё анонимно, браузер — чужой origin), reset — за
// админским токеном.
func RegisterRoutes(r *mux.Router, h *Handler, adminAuth mux.MiddlewareFunc) {
	pub := r.PathPrefix("/api/pair").Subrouter()
	pub.Use(middleware.CORS)
	pub.HandleFunc("/start", h.Start).Methods(http.MethodGet, http.MethodPost, http.MethodOptions)
	pub.HandleFunc("/resolve", h.Resolve).Methods(http.MethodGet, http.MethodOptions)
	pub.HandleFunc("/claim", h.ClaimWeb).Methods(http.MethodPost, http.MethodOptions)

	adm := r.PathPrefix("/api/pair").Subrouter()
	adm.Use(adminAuth)
	adm.HandleFunc("/reset/{mac}", h.Reset).Methods(http.MethodPost)
}
