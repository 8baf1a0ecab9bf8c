package ota

import (
	"context"
	"errors"
	"net/url"
	"strings"

	"calcfleet/internal/firmware"
	"calcfleet/internal/models"
	"calcfleet/internal/registry"
	"calcfleet/internal/repo"
)

// Coordinator решает, предлагать ли устройству обновление. Главный
// принцип: никогда не обещать артефакт, который нельзя отдать прямо
// сейчас — перед ответом «да» артефакт проверяется на достижимость.
type Coordinator struct {
	reg        *registry.Service
	fw         *firmware.Store
	publicBase string
}

func New(reg *registry.Service, fw *firmware.Store, publicBase string) *Coordinator {
	return &Coordinator{
		reg:        reg,
		fw:         fw,
		publicBase: strings.TrimRight(strings.TrimSpace(publicBase), "/"),
	}
}

// CheckUpdate — ответ на "надо ли мне обновляться". Порядок:
//  1. персональная цель устройства (pending);
//  2. общефлотовая политика — свежайшая запись манифеста,
//     только если она подтверждённо доступна локально;
//  3. иначе — обновления нет.
func (c *Coordinator) CheckUpdate(ctx context.Context, deviceKey, currentVersion string) (*models.UpdateCheck, error) {
	current := firmware.SanitizeVersion(currentVersion)

	mac := repo.NormalizeMAC(deviceKey)

	d, err := c.reg.Get(ctx, deviceKey)
	if err != nil && !errors.Is(err, registry.ErrNotFound) {
		return nil, err
	}

	if d != nil && d.TargetFirmware != "" {
		target := firmware.SanitizeVersion(d.TargetFirmware)
		if target == current {
			// Устройство уже сходится к цели — не дёргаем его повторно.
			return &models.UpdateCheck{UpdateAvailable: false, Reason: "already_on_target"}, nil
		}
		if !d.UpdateAvailable {
			return &models.UpdateCheck{UpdateAvailable: false, Reason: "no_update_flag"}, nil
		}
		if !c.fw.Available(ctx, target) {
			return &models.UpdateCheck{UpdateAvailable: false, Reason: "artifact_unavailable"}, nil
		}
		return c.offer(target, mac), nil
	}

	// Нет персональной цели — pull-раскатка последней публикации.
	latest := c.fw.Latest()
	if latest == nil || latest.Version == current {
		return &models.UpdateCheck{UpdateAvailable: false}, nil
	}
	if !c.fw.Available(ctx, latest.Version) {
		return &models.UpdateCheck{UpdateAvailable: false, Reason: "artifact_unavailable"}, nil
	}
	return c.offer(latest.Version, mac), nil
}

func (c *Coordinator) offer(version, mac string) *models.UpdateCheck {
	return &models.UpdateCheck{
		UpdateAvailable: true,
		Version:         version,
		DownloadURL:     c.downloadURL(version, mac),
		SHA256:          c.fw.Digest(version),
	}
}

// downloadURL строит абсолютную ссылку от публичного адреса сервиса;
// без него — относительный путь (устройство ходит на тот же хост).
// Ключ устройства уезжает query-параметром, чтобы скачивание попало
// в last-downloaded устройства.
func (c *Coordinator) downloadURL(version, mac string) string {
	path := "/api/ota/firmware/" + url.PathEscape(version)
	if mac != "" {
		path += "?device=" + url.QueryEscape(mac)
	}
	if c.publicBase == "" {
		return path
	}
	return c.publicBase + path
}
