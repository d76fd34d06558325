package security

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"time"

	"DriveKeeper/internal/apperrors"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// AccessClaims — полезная нагрузка access-токена: пользователь (sub)
// и сессия (sid).
type AccessClaims struct {
	jwt.RegisteredClaims
	SessionID string `json:"sid"`
}

// TokenManager выпускает и проверяет access-токены (HS256, короткий TTL)
// и генерирует сырые refresh-токены (непрозрачные, случайные).
type TokenManager struct {
	secret    []byte
	accessTTL time.Duration
}

func NewTokenManager(secret string, accessTTL time.Duration) *TokenManager {
	return &TokenManager{secret: []byte(secret), accessTTL: accessTTL}
}

// NewAccessToken выпускает подписанный токен с коротким сроком жизни.
func (m *TokenManager) NewAccessToken(userID, sessionID uuid.UUID) (string, error) {
	now := time.Now()
	claims := AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.accessTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        uuid.New().String(),
		},
		SessionID: sessionID.String(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
}

// ParseAccessToken проверяет подпись и срок. Истёкший токен отличается от
// невалидного: для первого можно пробовать refresh, второй — сразу отказ.
func (m *TokenManager) ParseAccessToken(raw string) (uuid.UUID, uuid.UUID, error) {
	claims := &AccessClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return m.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return uuid.Nil, uuid.Nil, apperrors.TokenExpired("access token expired")
		}
		return uuid.Nil, uuid.Nil, apperrors.TokenInvalid("invalid access token")
	}
	if !token.Valid {
		return uuid.Nil, uuid.Nil, apperrors.TokenInvalid("invalid access token")
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, uuid.Nil, apperrors.TokenInvalid("invalid access token subject")
	}
	sessionID, err := uuid.Parse(claims.SessionID)
	if err != nil {
		return uuid.Nil, uuid.Nil, apperrors.TokenInvalid("invalid access token session")
	}
	return userID, sessionID, nil
}

// NewRefreshToken генерирует непрозрачный refresh-токен: 32 случайных байта
// в base64url. Вся информация о его валидности живёт на сервере.
func (m *TokenManager) NewRefreshToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
