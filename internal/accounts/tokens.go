package accounts

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims — сессия аккаунта: имя плюс MAC-адреса его устройств,
// чтобы проверка доступа к устройству не ходила в базу.
type Claims struct {
	Username string   `json:"username"`
	Macs     []string `json:"macs,omitempty"`
	jwt.RegisteredClaims
}

const sessionTTL = 7 * 24 * time.Hour

func signToken(secret []byte, username string, macs []string) (string, error) {
	claims := &Claims{
		Username: username,
		Macs:     macs,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(sessionTTL)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

func parseToken(secret []byte, tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(*jwt.Token) (interface{}, error) {
		return secret, nil
	})
	if err != nil {
		return nil, err
	}
	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}
	return nil, jwt.ErrInvalidKey
}
