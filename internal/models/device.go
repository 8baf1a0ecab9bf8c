package models

import (
	"time"

	"gorm.io/datatypes"
)

const (
	DeviceStatusOnline  = "online"
	DeviceStatusOffline = "offline"

	UpdateStatusUpdated    = "updated"
	UpdateStatusNotUpdated = "not_updated"

	DefaultModel = "ESP32"
)

// Device — запись об устройстве. Ключ — нормализованный MAC
// (hex в нижнем регистре, без разделителей); после создания не меняется.
type Device struct {
	MAC       string    `gorm:"primaryKey;size:64" json:"mac"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	ChipID   string `gorm:"size:64"  json:"chipId"`
	Model    string `gorm:"size:255" json:"model"`
	Firmware string `gorm:"size:64"  json:"firmware"`
	Name     string `gorm:"size:255" json:"name"`
	Status   string `gorm:"size:64"  json:"status"`

	FirstSeen *time.Time `json:"firstSeen"`
	LastSeen  *time.Time `json:"lastSeen"`

	// Состояние OTA-обновления
	UpdateAvailable  bool       `json:"updateAvailable"`
	TargetFirmware   string     `gorm:"size:64" json:"targetFirmware,omitempty"`
	LastUpdateStatus string     `gorm:"size:64" json:"lastUpdateStatus,omitempty"`
	LastDownloaded   string     `gorm:"size:64" json:"lastDownloaded,omitempty"`
	LastDownloadedAt *time.Time `json:"lastDownloadedAt,omitempty"`

	// Код пэйринга (одна активная привязка на устройство) и владелец
	// Код пуст, пока пэйринг не выдавался, поэтому индекс не уникальный.
	PairCode string `gorm:"index;size:16" json:"-"`
	Owner    string `gorm:"index;size:255" json:"owner,omitempty"`

	// Последняя телеметрия пинга (rssi, uptime и т.п.) как есть
	Telemetry datatypes.JSON `json:"telemetry,omitempty"`
}

// UpdateState — производное подсостояние OTA для устройства.
func (d *Device) UpdateState() string {
	switch {
	case d.TargetFirmware == "":
		return "idle"
	case d.Firmware == d.TargetFirmware:
		return "applied"
	default:
		return "pending"
	}
}
