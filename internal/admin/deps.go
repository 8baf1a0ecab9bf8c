package admin

import (
	"github.com/gorilla/mux"

	"calcfleet/config"
	"calcfleet/internal/accounts"
	"calcfleet/internal/firmware"
	"calcfleet/internal/pairing"
	"calcfleet/internal/registry"
	"calcfleet/internal/repo"
)

type Dependencies struct {
	G    *repo.Gateway
	REG  *registry.Service
	PAIR *pairing.Service
	FW   *firmware.Store
	ACC  *accounts.Service
	CFG  *config.Config
}

func Attach(r *mux.Router, d Dependencies, adminAuth mux.MiddlewareFunc) {
	h := &Handler{d: d, t: parseTemplates()}
	sub := r.PathPrefix("/admin").Subrouter()
	sub.Use(adminAuth)

	// pages
	sub.HandleFunc("", h.redirect("/admin/devices")).Methods("GET")
	sub.HandleFunc("/", h.redirect("/admin/devices")).Methods("GET")
	sub.HandleFunc("/devices", h.DevicesList).Methods("GET")
	sub.HandleFunc("/devices/{mac}", h.DeviceDetail).Methods("GET")
	sub.HandleFunc("/firmware", h.FirmwarePage).Methods("GET")

	// api (JSON or redirect back)
	sub.HandleFunc("/api/devices/{mac}/update-flags", h.APIUpdateFlags).Methods("POST")
	sub.HandleFunc("/api/devices/{mac}/pair/reset", h.APIPairReset).Methods("POST")
	sub.HandleFunc("/api/firmware/upload", h.APIFirmwareUpload).Methods("POST")
	sub.HandleFunc("/api/firmware/{version}/delete", h.APIFirmwareDelete).Methods("POST")

	// static (very small)
	sub.HandleFunc("/static/style.css", serveCSS).Methods("GET")
	sub.HandleFunc("/static/app.js", serveJS).Methods("GET")
}
