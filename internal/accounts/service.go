package accounts

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"calcfleet/internal/models"
	"calcfleet/internal/pairing"
	"calcfleet/internal/repo"
)

var (
	ErrBadCredentials = errors.New("accounts: bad credentials")
	ErrBadUsername    = errors.New("accounts: bad username")
)

type Service struct {
	g      *repo.Gateway
	pair   *pairing.Service
	secret []byte
}

func New(g *repo.Gateway, pair *pairing.Service, sessionSecret string) *Service {
	return &Service{g: g, pair: pair, secret: []byte(sessionSecret)}
}

// Register создаёт аккаунт (либо логинит существующий) и, если передан
// пин сопряжения, привязывает устройство к аккаунту.
func (s *Service) Register(ctx context.Context, username, password, pairCode string) (token string, err error) {
	username = normalizeUsername(username)
	if username == "" || password == "" {
		return "", ErrBadUsername
	}
	acc, err := s.g.Account(ctx, username)
	switch {
	case err == nil:
		if !VerifyPassword(acc.PasswordHash, password) {
			return "", ErrBadCredentials
		}
	case errors.Is(err, repo.ErrNotFound):
		now := time.Now().UTC()
		acc = &models.Account{Username: username, PasswordHash: HashPassword(password), CreatedAt: now, UpdatedAt: now}
		if err := s.g.SaveAccount(ctx, acc); err != nil {
			return "", err
		}
	default:
		return "", err
	}
	if pairCode != "" {
		if _, err := s.pair.Claim(ctx, pairCode, username); err != nil {
			return "", err
		}
	}
	return s.issue(ctx, username)
}

func (s *Service) Login(ctx context.Context, username, password string) (string, error) {
	username = normalizeUsername(username)
	acc, err := s.g.Account(ctx, username)
	if errors.Is(err, repo.ErrNotFound) {
		return "", ErrBadCredentials
	}
	if err != nil {
		return "", err
	}
	if !VerifyPassword(acc.PasswordHash, password) {
		return "", ErrBadCredentials
	}
	return s.issue(ctx, username)
}

// VerifyToken отдаёт имя аккаунта и его устройства по Bearer-токену.
func (s *Service) VerifyToken(token string) (string, []string, error) {
	claims, err := parseToken(s.secret, token)
	if err != nil {
		return "", nil, err
	}
	return claims.Username, claims.Macs, nil
}

// ResetPassword выставляет временный пароль и возвращает его открытым
// текстом; вызывается только из админских ручек.
func (s *Service) ResetPassword(ctx context.Context, username string) (string, error) {
	username = normalizeUsername(username)
	acc, err := s.g.Account(ctx, username)
	if err != nil {
		return "", err
	}
	var raw [8]byte
	_, _ = rand.Read(raw[:])
	temp := hex.EncodeToString(raw[:])
	acc.PasswordHash = HashPassword(temp)
	acc.UpdatedAt = time.Now().UTC()
	if err := s.g.SaveAccount(ctx, acc); err != nil {
		return "", err
	}
	return temp, nil
}

func (s *Service) issue(ctx context.Context, username string) (string, error) {
	macs, err := s.g.AccountDevices(ctx, username)
	if err != nil {
		return "", err
	}
	return signToken(s.secret, username, macs)
}

func normalizeUsername(u string) string {
	return strings.ToLower(strings.TrimSpace(u))
}
