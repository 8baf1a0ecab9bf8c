package accounts

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"strings"

	"golang.org/x/crypto/argon2"
)

// Параметры argon2id: одна итерация по 64 МиБ достаточна для
// редких операций логина.
const (
	argonTime    = 1
	argonMemory  = 64 * 1024
	argonThreads = 1
	argonKeyLen  = 32
	saltLen      = 16
)

// HashPassword возвращает строку "salt:hash" в hex.
func HashPassword(password string) string {
	var salt [saltLen]byte
	_, _ = rand.Read(salt[:])
	key := argon2.IDKey([]byte(password), salt[:], argonTime, argonMemory, argonThreads, argonKeyLen)
	return hex.EncodeToString(salt[:]) + ":" + hex.EncodeToString(key)
}

func VerifyPassword(encoded, candidate string) bool {
	salt, key, ok := strings.Cut(encoded, ":")
	if !ok {
		return false
	}
	rawSalt, err := hex.DecodeString(salt)
	if err != nil {
		return false
	}
	rawKey, err := hex.DecodeString(key)
	if err != nil {
		return false
	}
	h := argon2.IDKey([]byte(candidate), rawSalt, argonTime, argonMemory, argonThreads, argonKeyLen)
	return subtle.ConstantTimeCompare(h, rawKey) == 1
}
