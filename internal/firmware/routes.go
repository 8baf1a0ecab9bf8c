package firmware

import (
	"net/http"

	"github.com/gorilla/mux"
)

// RegisterRoutes вешает маршруты артефактов. Литеральные пути — до
// "/{version}", иначе «list» прочитается как версия.
func RegisterRoutes(r *mux.Router, h *Handler, deviceAuth, adminAuth mux.MiddlewareFunc) {
	adm := r.PathPrefix("/api/ota/firmware").Subrouter()
	adm.Use(adminAuth)
	adm.HandleFunc("/upload", h.Upload).Methods(http.MethodPost)
	adm.HandleFunc("/clear-all", h.ClearAll).Methods(http.MethodPost)
	adm.HandleFunc("/{version}", h.Delete).Methods(http.MethodDelete)

	dev := r.PathPrefix("/api/ota/firmware").Subrouter()
	dev.Use(deviceAuth)
	dev.HandleFunc("/list", h.List).Methods(http.MethodGet)
	dev.HandleFunc("/latest", h.Latest).Methods(http.MethodGet)
	dev.HandleFunc("/{version}", h.Download).Methods(http.MethodGet, http.MethodHead)
}
