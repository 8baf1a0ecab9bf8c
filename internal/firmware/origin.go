package firmware

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	fetchTimeout = 20 * time.Second
	probeTimeout = 5 * time.Second

	// отсечка на размер артефакта с источника
	maxArtifactSize = 16 << 20
)

// Origin — удалённый источник прошивок. Все обращения ограничены
// таймаутом и отменяемы; таймаут пробы значит «недоступен».
type Origin struct {
	base   string
	token  string
	client *http.Client
}

// NewOrigin возвращает nil при пустом базовом адресе (режим «только
// локальный кэш»).
func NewOrigin(base, token string) *Origin {
	base = strings.TrimRight(strings.TrimSpace(base), "/")
	if base == "" {
		return nil
	}
	return &Origin{base: base, token: token, client: &http.Client{}}
}

func (o *Origin) artifactURL(version string) string {
	return o.base + "/api/devices/firmware/" + url.PathEscape(version)
}

// Fetch скачивает байты артефакта (ограничение fetchTimeout).
func (o *Origin) Fetch(ctx context.Context, version string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.artifactURL(version), nil)
	if err != nil {
		return nil, err
	}
	o.authorize(req)
	resp, err := o.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrNotFound
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("%w: origin status %d", ErrUpstreamUnavailable, resp.StatusCode)
	}
	// Читаем на байт больше лимита: ровно лимит — ок, больше — отказ.
	// Молчаливое усечение отдало бы устройству битую прошивку с «честным»
	// дайджестом усечённых байт.
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxArtifactSize+1))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}
	if len(data) > maxArtifactSize {
		return nil, fmt.Errorf("%w: artifact exceeds %d bytes", ErrUpstreamUnavailable, maxArtifactSize)
	}
	if len(data) == 0 {
		return nil, ErrNotFound
	}
	return data, nil
}

// Probe — лёгкая проверка существования (HEAD, ограничение probeTimeout).
func (o *Origin) Probe(ctx context.Context, version string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, o.artifactURL(version), nil)
	if err != nil {
		return false, err
	}
	o.authorize(req)
	resp, err := o.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK, nil
}

func (o *Origin) authorize(req *http.Request) {
	if o.token != "" {
		req.Header.Set("X-Service-Token", o.token)
	}
}
