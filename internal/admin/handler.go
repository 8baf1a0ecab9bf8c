package admin

import (
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"calcfleet/internal/registry"
	"calcfleet/internal/repo"
)

type Handler struct {
	d Dependencies
	t pageTemplates // наборы layout+страница, по одному на страницу
}

func (h *Handler) redirect(path string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, path, http.StatusFound)
	}
}

func (h *Handler) render(w http.ResponseWriter, page string, data any) {
	t, ok := h.t[page]
	if !ok {
		http.Error(w, "template not found: "+page, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := t.ExecuteTemplate(w, "layout", data); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// ---------- Pages ----------

func (h *Handler) DevicesList(w http.ResponseWriter, r *http.Request) {
	rows, err := h.d.REG.List(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if s := strings.TrimSpace(r.URL.Query().Get("q")); s != "" {
		needle := strings.ToLower(s)
		filtered := rows[:0]
		for _, d := range rows {
			if strings.Contains(d.MAC, needle) ||
				strings.Contains(strings.ToLower(d.Name), needle) ||
				strings.Contains(strings.ToLower(d.Owner), needle) {
				filtered = append(filtered, d)
			}
		}
		rows = filtered
	}
	h.render(w, "devices_list.tmpl", map[string]any{
		"Title": "Devices",
		"Rows":  rows,
		"Query": r.URL.Query().Get("q"),
		"DB":    h.d.G.State() == repo.Ready,
	})
}

func (h *Handler) DeviceDetail(w http.ResponseWriter, r *http.Request) {
	mac := mux.Vars(r)["mac"]
	dev, err := h.d.REG.Get(r.Context(), mac)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	code, _ := h.d.PAIR.Issue(r.Context(), dev.MAC)
	notes, _ := h.d.G.Notes(r.Context(), dev.MAC)

	var telemetry string
	if len(dev.Telemetry) > 0 {
		telemetry = string(dev.Telemetry)
	}

	h.render(w, "device_detail.tmpl", map[string]any{
		"Title":     "Device " + dev.MAC,
		"Dev":       dev,
		"PairCode":  code,
		"Notes":     notes,
		"Telemetry": telemetry,
		"Versions":  h.d.FW.List(),
	})
}

func (h *Handler) FirmwarePage(w http.ResponseWriter, r *http.Request) {
	var latest string
	if a := h.d.FW.Latest(); a != nil {
		latest = a.Version
	}
	h.render(w, "firmware.tmpl", map[string]any{
		"Title":  "Firmware",
		"Rows":   h.d.FW.List(),
		"Latest": latest,
	})
}

// ---------- API ----------

func (h *Handler) APIUpdateFlags(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", 400)
		return
	}
	mac := mux.Vars(r)["mac"]
	avail := r.FormValue("updateAvailable") == "on" || r.FormValue("updateAvailable") == "true"
	target := strings.TrimSpace(r.FormValue("targetFirmware"))
	if _, err := h.d.REG.SetUpdateFlags(r.Context(), mac, registry.UpdateFlags{
		UpdateAvailable: &avail,
		TargetFirmware:  &target,
	}); err != nil {
		http.Error(w, err.Error(), 500)
		return
	}
	http.Redirect(w, r, "/admin/devices/"+mac, http.StatusFound)
}

func (h *Handler) APIPairReset(w http.ResponseWriter, r *http.Request) {
	mac := mux.Vars(r)["mac"]
	code, err := h.d.PAIR.Rotate(r.Context(), mac)
	if err != nil {
		http.Error(w, err.Error(), 500)
		return
	}
	writeJSON(w, map[string]any{"ok": true, "pairCode": code})
}

func (h *Handler) APIFirmwareUpload(w http.ResponseWriter, r *http.Request) {
	version := ""
	description := ""
	var data []byte

	ct := r.Header.Get("Content-Type")
	if strings.HasPrefix(ct, "multipart/form-data") {
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			http.Error(w, "bad form", 400)
			return
		}
		version = r.FormValue("version")
		description = r.FormValue("description")
		f, _, err := r.FormFile("file")
		if err != nil {
			http.Error(w, "file required", 400)
			return
		}
		defer f.Close()
		data, err = io.ReadAll(f)
		if err != nil {
			http.Error(w, "read failed", 500)
			return
		}
	} else {
		var req struct {
			Version     string `json:"version"`
			Data        string `json:"data"`
			Description string `json:"description"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad body", 400)
			return
		}
		raw, err := base64.StdEncoding.DecodeString(req.Data)
		if err != nil {
			http.Error(w, "bad base64", 400)
			return
		}
		version, description, data = req.Version, req.Description, raw
	}

	art, err := h.d.FW.Publish(version, data, description)
	if err != nil {
		http.Error(w, err.Error(), 400)
		return
	}
	if strings.HasPrefix(ct, "multipart/form-data") {
		http.Redirect(w, r, "/admin/firmware", http.StatusFound)
		return
	}
	writeJSON(w, map[string]any{"ok": true, "version": art.Version, "sha256": art.SHA256})
}

func (h *Handler) APIFirmwareDelete(w http.ResponseWriter, r *http.Request) {
	_ = h.d.FW.Delete(mux.Vars(r)["version"])
	http.Redirect(w, r, "/admin/firmware", http.StatusFound)
}

// ---------- utils ----------

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
