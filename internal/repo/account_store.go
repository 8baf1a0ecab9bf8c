package repo

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"calcfleet/internal/logs"
	"calcfleet/internal/models"
)

// Account читает аккаунт по имени; промах в БД добирается из файла.
func (g *Gateway) Account(ctx context.Context, username string) (*models.Account, error) {
	if username == "" {
		return nil, ErrBadInput
	}
	if dbh := g.DB(); dbh != nil {
		var a models.Account
		err := dbh.WithContext(ctx).Where("username = ?", username).First(&a).Error
		if err == nil {
			return &a, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		if fa, ok := g.files.account(username); ok {
			if err := dbh.WithContext(ctx).Save(fa).Error; err != nil {
				logs.Logger.Warnf("gateway: account backfill %s: %v", username, err)
			}
			return fa, nil
		}
		return nil, ErrNotFound
	}
	a, ok := g.files.account(username)
	if !ok {
		return nil, ErrNotFound
	}
	return a, nil
}

// SaveAccount создаёт или обновляет аккаунт.
func (g *Gateway) SaveAccount(ctx context.Context, a *models.Account) error {
	if a == nil || a.Username == "" {
		return ErrBadInput
	}
	now := time.Now().UTC()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	a.UpdatedAt = now
	if dbh := g.DB(); dbh != nil {
		return dbh.WithContext(ctx).Save(a).Error
	}
	return g.files.putAccount(a)
}
