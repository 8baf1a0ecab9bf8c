package middleware

import (
	"net/http"

	"github.com/gorilla/mux"
)

// ServiceToken проверяет заголовок X-Service-Token по списку допустимых
// значений. Пустой список — проверка выключена (локальный/dev-режим,
// открытый доступ).
func ServiceToken(valid []string) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(valid) == 0 {
				next.ServeHTTP(w, r)
				return
			}
			tok := r.Header.Get("X-Service-Token")
			if tok == "" {
				tok = r.URL.Query().Get("token")
			}
			for _, v := range valid {
				if v != "" && tok == v {
					next.ServeHTTP(w, r)
					return
				}
			}
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"ok":false,"error":"unauthorized"}`))
		})
	}
}
