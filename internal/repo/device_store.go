package repo

import (
	"context"
	"errors"
	"sort"
	"time"

	"gorm.io/gorm"

	"calcfleet/internal/logs"
	"calcfleet/internal/models"
)

// UpsertDevice вливает частичное обновление в запись по ключу mac
// (первый вызов создаёт запись с дефолтами) и возвращает результат.
// Merge-семантика одинакова для обоих бэкендов — см. MergeDevice.
func (g *Gateway) UpsertDevice(ctx context.Context, mac string, up DeviceUpdate) (*models.Device, error) {
	if mac == "" {
		return nil, ErrBadInput
	}
	now := time.Now().UTC()

	if dbh := g.DB(); dbh != nil {
		var out models.Device
		err := dbh.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			existing, err := g.findDeviceTx(tx, mac)
			if err != nil {
				return err
			}
			if existing == nil {
				d := NewDevice(mac, now)
				existing = &d
			}
			out = MergeDevice(*existing, up, now)
			return tx.Save(&out).Error
		})
		if err != nil {
			return nil, err
		}
		return &out, nil
	}

	existing, ok := g.files.device(mac)
	if !ok {
		d := NewDevice(mac, now)
		existing = &d
	}
	merged := MergeDevice(*existing, up, now)
	if err := g.files.putDevice(&merged); err != nil {
		return nil, err
	}
	return &merged, nil
}

// GetDevice читает запись; промах в БД добирается из файлового хранилища
// и при находке дозаписывается в БД (backfill-on-miss).
func (g *Gateway) GetDevice(ctx context.Context, mac string) (*models.Device, error) {
	if mac == "" {
		return nil, ErrBadInput
	}
	if dbh := g.DB(); dbh != nil {
		var d models.Device
		err := dbh.WithContext(ctx).Where("mac = ?", mac).First(&d).Error
		if err == nil {
			return &d, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		if fd, ok := g.files.device(mac); ok {
			if err := dbh.WithContext(ctx).Save(fd).Error; err != nil {
				logs.Logger.Warnf("gateway: device backfill %s: %v", mac, err)
			}
			return fd, nil
		}
		return nil, ErrNotFound
	}
	d, ok := g.files.device(mac)
	if !ok {
		return nil, ErrNotFound
	}
	return d, nil
}

// PutDevice сохраняет запись целиком (используется registry для ленивого
// погашения статуса и флагов обновления).
func (g *Gateway) PutDevice(ctx context.Context, d *models.Device) error {
	d.UpdatedAt = time.Now().UTC()
	if dbh := g.DB(); dbh != nil {
		return dbh.WithContext(ctx).Save(d).Error
	}
	return g.files.putDevice(d)
}

// ListDevices возвращает все записи, самые свежие первыми.
func (g *Gateway) ListDevices(ctx context.Context) ([]models.Device, error) {
	if dbh := g.DB(); dbh != nil {
		var out []models.Device
		err := dbh.WithContext(ctx).
			Order("last_seen desc").Limit(1000).Find(&out).Error
		return out, err
	}
	out := g.files.listDevices()
	sort.Slice(out, func(i, j int) bool {
		return lastSeenNano(out[i]) > lastSeenNano(out[j])
	})
	return out, nil
}

// findDeviceTx — чтение в рамках транзакции с файловым backfill.
func (g *Gateway) findDeviceTx(tx *gorm.DB, mac string) (*models.Device, error) {
	var d models.Device
	err := tx.Where("mac = ?", mac).First(&d).Error
	if err == nil {
		return &d, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if fd, ok := g.files.device(mac); ok {
		return fd, nil
	}
	return nil, nil
}

func lastSeenNano(d models.Device) int64 {
	if d.LastSeen == nil {
		return 0
	}
	return d.LastSeen.UnixNano()
}
