package pairing

import (
	"context"
	"crypto/rand"
	"errors"

	"calcfleet/internal/logs"
	"calcfleet/internal/repo"
)

var ErrAlreadyClaimed = errors.New("device already claimed")

// Алфавит без визуально путающихся символов (0/O, 1/I/L).
const codeAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"
const codeLength = 6

// Service выдаёт, резолвит и ротирует коды пэйринга и привязывает
// устройство к аккаунту-владельцу.
type Service struct {
	g      *repo.Gateway
	tokens *TokenTable
}

func New(g *repo.Gateway, tokens *TokenTable) *Service {
	return &Service{g: g, tokens: tokens}
}

// Issue возвращает действующий код устройства, создавая его при первом
// обращении (read-or-create: ненадёжное устройство может дёргать ручку
// сколько угодно, дубликатов привязки не будет).
func (s *Service) Issue(ctx context.Context, mac string) (string, error) {
	mac = repo.NormalizeMAC(mac)
	if mac == "" {
		return "", repo.ErrBadInput
	}
	code, err := s.g.PairCode(ctx, mac)
	if err == nil {
		return code, nil
	}
	if !errors.Is(err, repo.ErrNotFound) {
		return "", err
	}
	code = genCode(codeLength)
	if err := s.g.SetPairCode(ctx, mac, code); err != nil {
		return "", err
	}
	return code, nil
}

// Resolve находит устройство по коду (регистр не важен) и сообщает,
// заявлено ли оно владельцем.
func (s *Service) Resolve(ctx context.Context, code string) (mac string, claimed bool, err error) {
	mac, err = s.g.ResolvePairCode(ctx, code)
	if err != nil {
		return "", false, err
	}
	owner, err := s.g.DeviceOwner(ctx, mac)
	if err != nil {
		return "", false, err
	}
	return mac, owner != "", nil
}

// Rotate заменяет код, делая старый неразрешимым, отзывает выданные
// web-токены устройства и стирает его заметки: сброс пэйринга возвращает
// калькулятор к экрану первичной настройки.
func (s *Service) Rotate(ctx context.Context, mac string) (string, error) {
	mac = repo.NormalizeMAC(mac)
	if mac == "" {
		return "", repo.ErrBadInput
	}
	code := genCode(codeLength)
	if err := s.g.SetPairCode(ctx, mac, code); err != nil {
		return "", err
	}
	s.tokens.RevokeDevice(mac)
	if err := s.g.DeleteNotes(ctx, mac); err != nil {
		logs.Logger.Warnf("pairing: clear notes on rotate %s: %v", mac, err)
	}
	return code, nil
}

// Claim привязывает аккаунт как владельца устройства, найденного по коду.
// Переход одноразовый: повторная заявка на чужое устройство — конфликт.
func (s *Service) Claim(ctx context.Context, code, account string) (string, error) {
	if account == "" {
		return "", repo.ErrBadInput
	}
	mac, err := s.g.ResolvePairCode(ctx, code)
	if err != nil {
		return "", err
	}
	owner, err := s.g.DeviceOwner(ctx, mac)
	if err != nil {
		return "", err
	}
	if owner != "" && owner != account {
		return "", ErrAlreadyClaimed
	}
	if owner == account {
		return mac, nil
	}
	if err := s.g.SetDeviceOwner(ctx, mac, account); err != nil {
		return "", err
	}
	return mac, nil
}

// ClaimWeb — легаси-поток браузера: код меняется на одноразовый web-токен,
// привязанный к устройству (без владения).
func (s *Service) ClaimWeb(ctx context.Context, code string) (mac, token string, err error) {
	mac, err = s.g.ResolvePairCode(ctx, code)
	if err != nil {
		return "", "", err
	}
	return mac, s.tokens.Issue(mac), nil
}

func genCode(n int) string {
	buf := make([]byte, n)
	_, _ = rand.Read(buf)
	out := make([]byte, n)
	for i, b := range buf {
		out[i] = codeAlphabet[int(b)%len(codeAlphabet)]
	}
	return string(out)
}
