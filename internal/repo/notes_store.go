package repo

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"calcfleet/internal/models"
)

// Notes возвращает текст заметок устройства ("" — пусто). Промах в БД
// добирается из notes/<mac>.txt; при находке текст мигрирует в БД и
// легаси-файл удаляется.
func (g *Gateway) Notes(ctx context.Context, mac string) (string, error) {
	if mac == "" {
		return "", ErrBadInput
	}
	if dbh := g.DB(); dbh != nil {
		var n models.Note
		err := dbh.WithContext(ctx).Where("mac = ?", mac).First(&n).Error
		if err == nil {
			return n.Text, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return "", err
		}
		if text := g.files.notes(mac); text != "" {
			if err := g.saveNoteDB(ctx, dbh, mac, text); err != nil {
				return "", err
			}
			g.files.deleteNotes(mac)
			return text, nil
		}
		return "", nil
	}
	return g.files.notes(mac), nil
}

// SetNotes пишет заметки. appendMode=true — атомарное дописывание с
// переводом строки между старым и новым текстом.
func (g *Gateway) SetNotes(ctx context.Context, mac, text string, appendMode bool) error {
	if mac == "" {
		return ErrBadInput
	}
	if dbh := g.DB(); dbh != nil {
		return dbh.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			var n models.Note
			err := tx.Where("mac = ?", mac).First(&n).Error
			switch {
			case errors.Is(err, gorm.ErrRecordNotFound):
				n = models.Note{MAC: mac}
			case err != nil:
				return err
			}
			if appendMode && n.Text != "" {
				n.Text = n.Text + "\n" + text
			} else {
				n.Text = text
			}
			n.UpdatedAt = time.Now().UTC()
			return tx.Save(&n).Error
		})
	}
	return g.files.writeNotes(mac, text, appendMode)
}

// DeleteNotes стирает заметки в обоих бэкендах (сброс пэйринга должен
// вернуть устройство в состояние первичной настройки).
func (g *Gateway) DeleteNotes(ctx context.Context, mac string) error {
	if mac == "" {
		return ErrBadInput
	}
	g.files.deleteNotes(mac)
	if dbh := g.DB(); dbh != nil {
		return dbh.WithContext(ctx).Where("mac = ?", mac).Delete(&models.Note{}).Error
	}
	return nil
}

func (g *Gateway) saveNoteDB(ctx context.Context, dbh *gorm.DB, mac, text string) error {
	return dbh.WithContext(ctx).Save(&models.Note{
		MAC:       mac,
		Text:      text,
		UpdatedAt: time.Now().UTC(),
	}).Error
}
