package security

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// TokenHasher — детерминированный keyed-дайджест сырых refresh-токенов.
// В БД хранится только результат Hash: по нему токен ищется, но исходное
// значение из него не восстановить.
type TokenHasher struct {
	pepper []byte
}

func NewTokenHasher(pepper string) *TokenHasher {
	return &TokenHasher{pepper: []byte(pepper)}
}

func (h *TokenHasher) Hash(rawToken string) string {
	mac := hmac.New(sha256.New, h.pepper)
	mac.Write([]byte(rawToken))
	return hex.EncodeToString(mac.Sum(nil))
}
