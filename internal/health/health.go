package health

import (
	"net/http"

	"github.com/gorilla/mux"

	"calcfleet/internal/models"
	"calcfleet/internal/repo"
)

// RegisterRoutes — базовый liveness.
func RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/healthz", liveness).Methods(http.MethodGet)
}

// RegisterRoutesWithGateway — liveness + readiness. Файловое хранилище
// работает всегда, поэтому readyz отвечает 200 и без БД, но показывает
// состояние соединения.
func RegisterRoutesWithGateway(r *mux.Router, g *repo.Gateway) {
	RegisterRoutes(r)
	r.HandleFunc("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		state := "disabled"
		if g.Configured() {
			// пробуем ленивое подключение, чтобы readyz отражал реальность
			if g.DB() != nil {
				state = "ready"
			} else {
				state = "disconnected"
			}
		}
		models.WriteJSON(w, http.StatusOK, map[string]string{
			"status":   "ok",
			"database": state,
		})
	}).Methods(http.MethodGet)
}

func liveness(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok\n"))
}
