package registry

import (
	"context"
	"errors"
	"time"

	"calcfleet/internal/logs"
	"calcfleet/internal/models"
	"calcfleet/internal/repo"
)

var (
	ErrNotRegistered = errors.New("device not registered")
	ErrNotFound      = errors.New("device not found")
)

// StaleAfter — порог, после которого устройство считается offline.
const StaleAfter = 5 * time.Minute

// Service — реестр устройств: identity, liveness и состояние обновления.
type Service struct {
	g *repo.Gateway
}

func New(g *repo.Gateway) *Service { return &Service{g: g} }

type UpsertInput struct {
	MAC       string
	ChipID    string
	Model     string
	Firmware  string
	Name      string
	FirstSeen *time.Time
	Telemetry []byte // сырой JSON с rssi/uptime и т.п.
}

// Upsert вливает присланные поля в запись (coalesce: отсутствующее поле
// сохраняет прежнее значение), обновляет last-seen и возвращает результат.
func (s *Service) Upsert(ctx context.Context, in UpsertInput) (*models.Device, error) {
	mac := repo.NormalizeMAC(in.MAC)
	if mac == "" {
		return nil, repo.ErrBadInput
	}
	d, err := s.g.UpsertDevice(ctx, mac, repo.DeviceUpdate{
		ChipID:    in.ChipID,
		Model:     in.Model,
		Firmware:  in.Firmware,
		Name:      in.Name,
		Status:    models.DeviceStatusOnline,
		FirstSeen: in.FirstSeen,
		Telemetry: in.Telemetry,
	})
	if err != nil {
		return nil, err
	}
	// Детекция applied на upsert: цель достигнута — флаг снимается.
	if d.TargetFirmware != "" && d.Firmware == d.TargetFirmware && recomputeUpdateState(d) {
		if err := s.g.PutDevice(ctx, d); err != nil {
			logs.Logger.Warnf("registry: persist update state %s: %v", mac, err)
		}
	}
	return d, nil
}

// Ping — лёгкое обновление liveness; устройство обязано быть
// зарегистрировано (иначе ErrNotRegistered).
func (s *Service) Ping(ctx context.Context, mac, firmware string, telemetry []byte) (*models.Device, error) {
	mac = repo.NormalizeMAC(mac)
	if mac == "" {
		return nil, repo.ErrBadInput
	}
	d, err := s.g.GetDevice(ctx, mac)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrNotRegistered
	}
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	d.LastSeen = &now
	d.Status = models.DeviceStatusOnline
	if firmware != "" {
		d.Firmware = firmware
	}
	if len(telemetry) > 0 {
		d.Telemetry = telemetry
	}
	recomputeUpdateState(d)
	if err := s.g.PutDevice(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

type UpdateFlags struct {
	UpdateAvailable *bool
	TargetFirmware  *string
}

// SetUpdateFlags — административный вход в подсостояние pending.
// Повторная установка тех же флагов идемпотентна.
func (s *Service) SetUpdateFlags(ctx context.Context, mac string, f UpdateFlags) (*models.Device, error) {
	mac = repo.NormalizeMAC(mac)
	if mac == "" {
		return nil, repo.ErrBadInput
	}
	d, err := s.g.GetDevice(ctx, mac)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if f.UpdateAvailable != nil {
		d.UpdateAvailable = *f.UpdateAvailable
	}
	if f.TargetFirmware != nil {
		d.TargetFirmware = *f.TargetFirmware
	}
	recomputeUpdateState(d)
	if err := s.g.PutDevice(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

// RecordDownload отмечает, какую версию устройство скачало последней.
// Незнакомый ключ молча игнорируется: скачивать можно и до регистрации.
func (s *Service) RecordDownload(ctx context.Context, mac, version string) {
	mac = repo.NormalizeMAC(mac)
	if mac == "" || version == "" {
		return
	}
	d, err := s.g.GetDevice(ctx, mac)
	if err != nil {
		return
	}
	now := time.Now().UTC()
	d.LastDownloaded = version
	d.LastDownloadedAt = &now
	if err := s.g.PutDevice(ctx, d); err != nil {
		logs.Logger.Warnf("registry: record download %s: %v", mac, err)
	}
}

// Get возвращает запись по ключу.
func (s *Service) Get(ctx context.Context, mac string) (*models.Device, error) {
	mac = repo.NormalizeMAC(mac)
	if mac == "" {
		return nil, repo.ErrBadInput
	}
	d, err := s.g.GetDevice(ctx, mac)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrNotFound
	}
	return d, err
}

// Owner — аккаунт-владелец устройства ("" — не заявлено).
func (s *Service) Owner(ctx context.Context, mac string) (string, error) {
	mac = repo.NormalizeMAC(mac)
	if mac == "" {
		return "", repo.ErrBadInput
	}
	return s.g.DeviceOwner(ctx, mac)
}

// List возвращает все записи; статус связи выводится на чтении: запись
// старше StaleAfter помечается offline, и этот производный статус тут же
// сохраняется (ленивое погашение вместо фонового обхода).
func (s *Service) List(ctx context.Context) ([]models.Device, error) {
	devices, err := s.g.ListDevices(ctx)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	for i := range devices {
		d := &devices[i]
		if d.Status == models.DeviceStatusOffline {
			continue
		}
		if d.LastSeen == nil || now.Sub(*d.LastSeen) > StaleAfter {
			d.Status = models.DeviceStatusOffline
			if err := s.g.PutDevice(ctx, d); err != nil {
				logs.Logger.Warnf("registry: persist offline %s: %v", d.MAC, err)
			}
		}
	}
	return devices, nil
}

// recomputeUpdateState — детекция applied: цель достигнута, флаг снимается.
// Возвращает true, если запись изменилась.
func recomputeUpdateState(d *models.Device) bool {
	now := time.Now().UTC()
	if d.TargetFirmware != "" && d.Firmware == d.TargetFirmware {
		changed := d.UpdateAvailable || d.LastUpdateStatus != models.UpdateStatusUpdated
		d.UpdateAvailable = false
		d.LastUpdateStatus = models.UpdateStatusUpdated
		if changed {
			d.UpdatedAt = now
		}
		return changed
	}
	prev := d.LastUpdateStatus
	if d.UpdateAvailable {
		d.LastUpdateStatus = models.UpdateStatusNotUpdated
	} else {
		d.LastUpdateStatus = models.UpdateStatusUpdated
	}
	return prev != d.LastUpdateStatus
}
