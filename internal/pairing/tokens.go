package pairing

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// TokenTable — одноразовые web-токены легаси-потока (token -> mac).
// Живёт в памяти процесса, без вытеснения кроме TTL; GC ленивый,
// по ходу обращений.
type TokenTable struct {
	mu     sync.Mutex
	tokens map[string]tokenEntry
	ttl    time.Duration
}

type tokenEntry struct {
	mac      string
	issuedAt time.Time
}

func NewTokenTable(ttl time.Duration) *TokenTable {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &TokenTable{tokens: make(map[string]tokenEntry), ttl: ttl}
}

func (t *TokenTable) Issue(mac string) string {
	tok := strings.ReplaceAll(uuid.NewString()+uuid.NewString(), "-", "")
	t.mu.Lock()
	defer t.mu.Unlock()
	t.gc()
	t.tokens[tok] = tokenEntry{mac: mac, issuedAt: time.Now()}
	return tok
}

// Lookup возвращает mac токена ("" — неизвестен или истёк).
func (t *TokenTable) Lookup(tok string) string {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.gc()
	return t.tokens[tok].mac
}

// RevokeDevice отзывает все токены устройства (ротация кода).
func (t *TokenTable) RevokeDevice(mac string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for tok, e := range t.tokens {
		if e.mac == mac {
			delete(t.tokens, tok)
		}
	}
}

// gc вычищает истёкшие токены; вызывать под мьютексом.
func (t *TokenTable) gc() {
	cut := time.Now().Add(-t.ttl)
	for tok, e := range t.tokens {
		if e.issuedAt.Before(cut) {
			delete(t.tokens, tok)
		}
	}
}
