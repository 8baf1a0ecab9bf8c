package notes

import (
	"context"
	"unicode/utf8"

	"calcfleet/internal/repo"
)

// maxNoteBytes — хвостовой лимит на текст заметок устройства.
const maxNoteBytes = 16000

type Service struct {
	g *repo.Gateway
}

func New(g *repo.Gateway) *Service { return &Service{g: g} }

func (s *Service) Get(ctx context.Context, mac string) (string, error) {
	mac = repo.NormalizeMAC(mac)
	if mac == "" {
		return "", repo.ErrBadInput
	}
	return s.g.Notes(ctx, mac)
}

// Set перезаписывает либо дописывает заметки; при переполнении
// остаётся хвост последних maxNoteBytes байт.
func (s *Service) Set(ctx context.Context, mac, text string, appendMode bool) (string, error) {
	mac = repo.NormalizeMAC(mac)
	if mac == "" {
		return "", repo.ErrBadInput
	}
	next := text
	if appendMode {
		prev, err := s.g.Notes(ctx, mac)
		if err != nil {
			return "", err
		}
		if prev != "" {
			next = prev + "\n" + text
		}
	}
	next = capTail(next, maxNoteBytes)
	if err := s.g.SetNotes(ctx, mac, next, false); err != nil {
		return "", err
	}
	return next, nil
}

func (s *Service) Delete(ctx context.Context, mac string) error {
	mac = repo.NormalizeMAC(mac)
	if mac == "" {
		return repo.ErrBadInput
	}
	return s.g.DeleteNotes(ctx, mac)
}

// capTail режет текст до последних n байт, не раня многобайтовые руны:
// сдвигается вперёд до ближайшей границы руны.
func capTail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	s = s[len(s)-n:]
	for len(s) > 0 && !utf8.RuneStart(s[0]) {
		s = s[1:]
	}
	return s
}
