package registry

import (
	"encoding/json"
	"time"
)

// FlexTime принимает RFC3339-строку или unix-миллисекунды — прошивки
// шлют и то и другое.
type FlexTime time.Time

func (u *FlexTime) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil && s != "" {
		t, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return err
		}
		*u = FlexTime(t)
		return nil
	}
	var ms int64
	if err := json.Unmarshal(b, &ms); err == nil && ms > 0 {
		*u = FlexTime(time.UnixMilli(ms).UTC())
		return nil
	}
	*u = FlexTime{}
	return nil
}

func (u *FlexTime) TimePtr() *time.Time {
	if u == nil {
		return nil
	}
	t := time.Time(*u)
	if t.IsZero() {
		return nil
	}
	return &t
}

type registerRequest struct {
	MAC       string    `json:"mac"`
	ChipID    string    `json:"chipId"`
	Model     string    `json:"model"`
	Firmware  string    `json:"firmware"`
	Name      string    `json:"name"`
	Uptime    *int64    `json:"uptime"`
	RSSI      *float64  `json:"rssi"`
	FirstSeen *FlexTime `json:"firstSeen"`
}

type pingRequest struct {
	MAC      string   `json:"mac"`
	Firmware string   `json:"firmware"`
	RSSI     *float64 `json:"rssi"`
	Uptime   *int64   `json:"uptime"`
}

type updateFlagsRequest struct {
	UpdateAvailable *bool   `json:"updateAvailable"`
	TargetFirmware  *string `json:"targetFirmware"`
}

// telemetryJSON собирает сырые метрики пинга в JSON-колонку.
func telemetryJSON(rssi *float64, uptime *int64, at time.Time) []byte {
	if rssi == nil && uptime == nil {
		return nil
	}
	m := map[string]any{"reportedAt": at.Format(time.RFC3339)}
	if rssi != nil {
		m["rssi"] = *rssi
	}
	if uptime != nil {
		m["uptime"] = *uptime
	}
	b, _ := json.Marshal(m)
	return b
}
