package models

import (
	"time"
)

// Account — владелец устройств. Пароль храним только как хэш (argon2id).
type Account struct {
	Username     string    `gorm:"primaryKey;size:255" json:"username"`
	PasswordHash string    `gorm:"size:255" json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Note — свободный текст, привязанный к устройству.
type Note struct {
	MAC       string    `gorm:"primaryKey;size:64" json:"mac"`
	Text      string    `gorm:"type:text" json:"text"`
	UpdatedAt time.Time `json:"updated_at"`
}
