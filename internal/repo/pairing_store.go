package repo

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"calcfleet/internal/logs"
	"calcfleet/internal/models"
)

// PairCode возвращает активный код устройства. На промахе в БД пробует
// легаси-файл pair-pins.json: найденное значение мигрирует в БД, а
// запись в файле удаляется.
func (g *Gateway) PairCode(ctx context.Context, mac string) (string, error) {
	if mac == "" {
		return "", ErrBadInput
	}
	if dbh := g.DB(); dbh != nil {
		var d models.Device
		err := dbh.WithContext(ctx).Select("mac", "pair_code").Where("mac = ?", mac).First(&d).Error
		if err == nil && d.PairCode != "" {
			return d.PairCode, nil
		}
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return "", err
		}
		if code := g.files.pairCode(mac); code != "" {
			if err := g.bindPairCode(ctx, dbh, mac, code); err != nil {
				return "", err
			}
			g.files.deletePairCode(mac)
			return code, nil
		}
		return "", ErrNotFound
	}
	if code := g.files.pairCode(mac); code != "" {
		return code, nil
	}
	return "", ErrNotFound
}

// SetPairCode привязывает код к устройству, замещая предыдущий атомарно
// (одна колонка / одна запись на mac). Легаси-файл чистится, чтобы
// отозванный код нельзя было «воскресить» миграцией при чтении.
func (g *Gateway) SetPairCode(ctx context.Context, mac, code string) error {
	if mac == "" || code == "" {
		return ErrBadInput
	}
	code = strings.ToUpper(code)
	if dbh := g.DB(); dbh != nil {
		if err := g.bindPairCode(ctx, dbh, mac, code); err != nil {
			return err
		}
		g.files.deletePairCode(mac)
		return nil
	}
	return g.files.setPairCode(mac, code)
}

// ResolvePairCode находит устройство по коду (без учёта регистра).
func (g *Gateway) ResolvePairCode(ctx context.Context, code string) (string, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return "", ErrBadInput
	}
	if dbh := g.DB(); dbh != nil {
		var d models.Device
		err := dbh.WithContext(ctx).Select("mac", "pair_code").
			Where("upper(pair_code) = ?", code).First(&d).Error
		if err == nil {
			return d.MAC, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return "", err
		}
		// Миграция из легаси-файла, затем повторная привязка в БД.
		if mac, ok := g.files.resolvePairCode(code); ok {
			if err := g.bindPairCode(ctx, dbh, mac, code); err != nil {
				return "", err
			}
			g.files.deletePairCode(mac)
			return mac, nil
		}
		return "", ErrNotFound
	}
	if mac, ok := g.files.resolvePairCode(code); ok {
		return mac, nil
	}
	return "", ErrNotFound
}

// bindPairCode — upsert строки устройства с новым кодом.
func (g *Gateway) bindPairCode(ctx context.Context, dbh *gorm.DB, mac, code string) error {
	return dbh.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := g.findDeviceTx(tx, mac)
		if err != nil {
			return err
		}
		if existing == nil {
			d := NewDevice(mac, time.Now().UTC())
			existing = &d
		}
		existing.PairCode = code
		existing.UpdatedAt = time.Now().UTC()
		return tx.Save(existing).Error
	})
}

// DeviceOwner возвращает аккаунт-владельца ("" — устройство не заявлено).
func (g *Gateway) DeviceOwner(ctx context.Context, mac string) (string, error) {
	if mac == "" {
		return "", ErrBadInput
	}
	if dbh := g.DB(); dbh != nil {
		var d models.Device
		err := dbh.WithContext(ctx).Select("mac", "owner").Where("mac = ?", mac).First(&d).Error
		if err == nil && d.Owner != "" {
			return d.Owner, nil
		}
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return "", err
		}
		if owner := g.files.owner(mac); owner != "" {
			if err := g.setOwnerDB(ctx, dbh, mac, owner); err != nil {
				logs.Logger.Warnf("gateway: owner backfill %s: %v", mac, err)
			}
			return owner, nil
		}
		return "", nil
	}
	return g.files.owner(mac), nil
}

// SetDeviceOwner привязывает (или сбрасывает при username=="") владельца.
func (g *Gateway) SetDeviceOwner(ctx context.Context, mac, username string) error {
	if mac == "" {
		return ErrBadInput
	}
	if dbh := g.DB(); dbh != nil {
		return g.setOwnerDB(ctx, dbh, mac, username)
	}
	return g.files.setOwner(mac, username)
}

func (g *Gateway) setOwnerDB(ctx context.Context, dbh *gorm.DB, mac, username string) error {
	return dbh.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := g.findDeviceTx(tx, mac)
		if err != nil {
			return err
		}
		if existing == nil {
			d := NewDevice(mac, time.Now().UTC())
			existing = &d
		}
		existing.Owner = username
		existing.UpdatedAt = time.Now().UTC()
		return tx.Save(existing).Error
	})
}

// AccountDevices — все устройства, принадлежащие аккаунту.
func (g *Gateway) AccountDevices(ctx context.Context, username string) ([]string, error) {
	if username == "" {
		return nil, ErrBadInput
	}
	if dbh := g.DB(); dbh != nil {
		var macs []string
		err := dbh.WithContext(ctx).Model(&models.Device{}).
			Where("owner = ?", username).Order("mac").Pluck("mac", &macs).Error
		return macs, err
	}
	return g.files.ownedBy(username), nil
}
