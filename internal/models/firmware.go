package models

import "time"

// FirmwareArtifact — метаданные опубликованной прошивки (запись манифеста).
// Байты лежат в файловом кэше рядом с манифестом; версия — ключ.
type FirmwareArtifact struct {
	Version     string    `json:"version"`
	Size        int64     `json:"size"`
	SHA256      string    `json:"sha256,omitempty"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// UpdateCheck — ответ устройству на вопрос "надо ли обновляться".
type UpdateCheck struct {
	UpdateAvailable bool   `json:"updateAvailable"`
	Version         string `json:"version,omitempty"`
	DownloadURL     string `json:"downloadUrl,omitempty"`
	SHA256          string `json:"sha256,omitempty"`
	Reason          string `json:"reason,omitempty"`
}
