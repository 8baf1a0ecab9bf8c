package notes

import (
	"net/http"

	"github.com/gorilla/mux"

	"calcfleet/internal/middleware"
)

// RegisterRoutes вешает CRUD заметок; авторизация внутри хендлеров,
// так как допустимы разные виды секретов.
func RegisterRoutes(r *mux.Router, h *Handler) {
	n := r.PathPrefix("/api/notes").Subrouter()
	n.Use(middleware.CORS)
	n.HandleFunc("/{mac}", h.Get).Methods(http.MethodGet, http.MethodOptions)
	n.HandleFunc("/{mac}", h.Set).Methods(http.MethodPost, http.MethodOptions)
	n.HandleFunc("/{mac}", h.Delete).Methods(http.MethodDelete, http.MethodOptions)
}
