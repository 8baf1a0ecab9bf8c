package repo

import (
	"strings"
	"time"

	"gorm.io/datatypes"

	"calcfleet/internal/models"
)

// DeviceUpdate — частичное обновление записи устройства. Пустое строковое
// поле / nil означает "не трогать" (coalesce-семантика).
type DeviceUpdate struct {
	ChipID    string
	Model     string
	Firmware  string
	Name      string
	Status    string
	FirstSeen *time.Time
	Telemetry datatypes.JSON
}

// NormalizeMAC приводит аппаратный адрес к каноническому ключу:
// hex в нижнем регистре без разделителей.
func NormalizeMAC(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		switch {
		case r >= '0' && r <= '9', r >= 'a' && r <= 'z':
			b.WriteRune(r)
		case r >= 'A' && r <= 'Z':
			b.WriteRune(r + ('a' - 'A'))
		}
	}
	return b.String()
}

// MergeDevice применяет частичное обновление к существующей записи.
// Чистая функция: обе реализации бэкенда обязаны использовать её,
// чтобы поведение не зависело от того, кто обслужил вызов.
func MergeDevice(existing models.Device, up DeviceUpdate, now time.Time) models.Device {
	d := existing
	if up.ChipID != "" {
		d.ChipID = up.ChipID
	}
	if up.Model != "" {
		d.Model = up.Model
	}
	if up.Firmware != "" {
		d.Firmware = up.Firmware
	}
	if up.Name != "" {
		d.Name = up.Name
	}
	if up.Status != "" {
		d.Status = up.Status
	}
	if d.FirstSeen == nil {
		if up.FirstSeen != nil {
			d.FirstSeen = up.FirstSeen
		} else {
			t := now
			d.FirstSeen = &t
		}
	}
	if len(up.Telemetry) > 0 {
		d.Telemetry = up.Telemetry
	}
	t := now
	d.LastSeen = &t
	d.UpdatedAt = now
	return d
}

// NewDevice — запись с дефолтами для первого upsert по ключу.
func NewDevice(mac string, now time.Time) models.Device {
	name := mac
	if len(mac) > 5 {
		name = mac[len(mac)-5:]
	}
	return models.Device{
		MAC:       mac,
		Model:     models.DefaultModel,
		Name:      "calc-" + name,
		Status:    models.DeviceStatusOnline,
		CreatedAt: now,
	}
}
