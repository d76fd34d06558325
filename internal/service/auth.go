package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"DriveKeeper/internal/apperrors"
	"DriveKeeper/internal/model"
	"DriveKeeper/internal/repo"
	"DriveKeeper/internal/security"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// TokenPair — пара токенов, выдаваемая клиенту. Сырой refresh-токен
// отдаётся ровно один раз: дальше существует только его хеш.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// AuthService — регистрация, логин, ротация refresh-токенов и
// авто-аутентификация. Держит только процессные зависимости;
// единственный объект со временем жизни запроса — транзакция UoW.
type AuthService struct {
	uow         repo.UnitOfWork
	hasher      security.PasswordHasher
	tokens      *security.TokenManager
	tokenHasher *security.TokenHasher
	logbook     *LogbookService
	refreshTTL  time.Duration
	logger      *zap.SugaredLogger
}

func NewAuthService(
	uow repo.UnitOfWork,
	hasher security.PasswordHasher,
	tokens *security.TokenManager,
	tokenHasher *security.TokenHasher,
	logbook *LogbookService,
	refreshTTL time.Duration,
	logger *zap.SugaredLogger,
) *AuthService {
	return &AuthService{
		uow:         uow,
		hasher:      hasher,
		tokens:      tokens,
		tokenHasher: tokenHasher,
		logbook:     logbook,
		refreshTTL:  refreshTTL,
		logger:      logger,
	}
}

// NormalizeEmail приводит email к канонической форме до любых сравнений.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register создаёт пользователя. Дубликат email ловится по уникальному
// ограничению; аудит сбоя пишется в отдельной транзакции, потому что
// первая уже прервана нарушением ограничения.
func (s *AuthService) Register(ctx context.Context, email, displayName, password string, client ClientInfo) (*model.User, error) {
	emailNorm := NormalizeEmail(email)

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, err
	}

	user := &model.User{
		ID:           uuid.New(),
		Email:        emailNorm,
		DisplayName:  displayName,
		PasswordHash: hash,
	}

	tx, err := s.uow.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	createErr := tx.Users.Create(ctx, user)
	if createErr == nil {
		if err := s.logbook.Record(ctx, tx, client, LogRecord{
			Op:     model.OpUserRegister,
			UserID: &user.ID,
			Details: map[string]any{
				"email":        emailNorm,
				"display_name": displayName,
				"success":      true,
			},
		}); err != nil {
			return nil, err
		}
		if err := tx.Commit(); err != nil {
			return nil, err
		}
		return user, nil
	}

	if !errors.Is(createErr, repo.ErrDuplicate) {
		return nil, createErr
	}
	tx.Rollback()

	s.logger.Warnw("register: duplicate email", "email", emailNorm)
	if err := s.auditInNewTx(ctx, client, LogRecord{
		Op: model.OpUserRegister,
		Details: map[string]any{
			"email":        emailNorm,
			"display_name": displayName,
			"success":      false,
			"error":        "user already exists",
		},
	}); err != nil {
		return nil, err
	}
	return nil, apperrors.AlreadyExists("user with email " + emailNorm + " already exists")
}

// Login проверяет учётные данные, заводит сессию и выдаёт пару токенов.
// Неизвестный email и неверный пароль различаются статусом (404/401) —
// поведение исходной системы, зафиксированное сознательно.
func (s *AuthService) Login(ctx context.Context, email, password string, client ClientInfo) (*model.User, *TokenPair, error) {
	emailNorm := NormalizeEmail(email)

	tx, err := s.uow.Begin(ctx)
	if err != nil {
		return nil, nil, err
	}
	defer tx.Rollback()

	user, err := tx.Users.GetByEmail(ctx, emailNorm)
	if err != nil {
		return nil, nil, err
	}
	if user == nil {
		if err := s.logbook.Record(ctx, tx, client, LogRecord{
			Op:      model.OpLogin,
			Details: map[string]any{"email": emailNorm, "success": false, "error": "user not found"},
		}); err != nil {
			return nil, nil, err
		}
		if err := tx.Commit(); err != nil {
			return nil, nil, err
		}
		return nil, nil, apperrors.NotFound("user with email " + emailNorm + " not found")
	}

	ok, err := s.hasher.Verify(password, user.PasswordHash)
	if err != nil {
		return nil, nil, err
	}
	if !ok {
		if err := s.logbook.Record(ctx, tx, client, LogRecord{
			Op:      model.OpLogin,
			UserID:  &user.ID,
			Details: map[string]any{"email": emailNorm, "success": false, "error": "invalid credentials"},
		}); err != nil {
			return nil, nil, err
		}
		if err := tx.Commit(); err != nil {
			return nil, nil, err
		}
		return nil, nil, apperrors.InvalidCredentials()
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, err
	}

	rawRefresh, err := s.tokens.NewRefreshToken()
	if err != nil {
		return nil, nil, err
	}

	// сессия, refresh-токен и аудит успеха — одна транзакция
	tx2, err := s.uow.Begin(ctx)
	if err != nil {
		return nil, nil, err
	}
	defer tx2.Rollback()

	session := &model.Session{
		ID:        uuid.New(),
		UserID:    user.ID,
		IP:        client.IP,
		UserAgent: client.UserAgent,
	}
	if err := tx2.Sessions.Create(ctx, session); err != nil {
		return nil, nil, err
	}

	refresh := &model.RefreshToken{
		ID:        uuid.New(),
		UserID:    user.ID,
		SessionID: session.ID,
		TokenHash: s.tokenHasher.Hash(rawRefresh),
		ExpiresAt: time.Now().Add(s.refreshTTL),
	}
	if err := tx2.RefreshTokens.Create(ctx, refresh); err != nil {
		return nil, nil, err
	}

	if err := s.logbook.Record(ctx, tx2, client, LogRecord{
		Op:        model.OpLogin,
		UserID:    &user.ID,
		SessionID: &session.ID,
		Details:   map[string]any{"email": emailNorm, "success": true},
	}); err != nil {
		return nil, nil, err
	}
	if err := tx2.Commit(); err != nil {
		return nil, nil, err
	}

	access, err := s.tokens.NewAccessToken(user.ID, session.ID)
	if err != nil {
		return nil, nil, err
	}
	return user, &TokenPair{AccessToken: access, RefreshToken: rawRefresh}, nil
}

// Refresh потребляет предъявленный refresh-токен и выдаёт новую пару.
func (s *AuthService) Refresh(ctx context.Context, rawToken string, client ClientInfo) (uuid.UUID, *TokenPair, error) {
	return s.rotate(ctx, rawToken, client, model.OpRefreshToken)
}

// rotate — машина состояний refresh-токена. Порядок проверок важен:
// отозванность ДО срока действия — повторное предъявление отозванного
// токена означает утечку и отзывает все токены пользователя.
func (s *AuthService) rotate(ctx context.Context, rawToken string, client ClientInfo, op model.OpType) (uuid.UUID, *TokenPair, error) {
	if rawToken == "" {
		return uuid.Nil, nil, apperrors.RefreshMissing()
	}

	tokenHash := s.tokenHasher.Hash(rawToken)
	now := time.Now()

	tx, err := s.uow.Begin(ctx)
	if err != nil {
		return uuid.Nil, nil, err
	}
	defer tx.Rollback()

	token, err := tx.RefreshTokens.GetByHash(ctx, tokenHash)
	if err != nil {
		return uuid.Nil, nil, err
	}
	if token == nil {
		if err := s.logbook.Record(ctx, tx, client, LogRecord{
			Op:      op,
			Details: map[string]any{"success": false, "error": "unknown refresh token"},
		}); err != nil {
			return uuid.Nil, nil, err
		}
		if err := tx.Commit(); err != nil {
			return uuid.Nil, nil, err
		}
		return uuid.Nil, nil, apperrors.TokenInvalid("unknown refresh token")
	}

	if token.IsRevoked() {
		revoked, err := tx.RefreshTokens.RevokeAllForUser(ctx, token.UserID, now)
		if err != nil {
			return uuid.Nil, nil, err
		}
		s.logger.Warnw("refresh token replay detected, revoking all user tokens",
			"user_id", token.UserID, "session_id", token.SessionID, "revoked", revoked)
		if err := s.logbook.Record(ctx, tx, client, LogRecord{
			Op:        op,
			UserID:    &token.UserID,
			SessionID: &token.SessionID,
			Details: map[string]any{
				"success":       false,
				"error":         "replay detected",
				"revoked_count": revoked,
			},
		}); err != nil {
			return uuid.Nil, nil, err
		}
		if err := tx.Commit(); err != nil {
			return uuid.Nil, nil, err
		}
		return uuid.Nil, nil, apperrors.RefreshRevoked()
	}

	if token.IsExpired(now) {
		if err := s.logbook.Record(ctx, tx, client, LogRecord{
			Op:        op,
			UserID:    &token.UserID,
			SessionID: &token.SessionID,
			Details:   map[string]any{"success": false, "error": "token expired"},
		}); err != nil {
			return uuid.Nil, nil, err
		}
		if err := tx.Commit(); err != nil {
			return uuid.Nil, nil, err
		}
		return uuid.Nil, nil, apperrors.TokenExpired("refresh token expired")
	}

	// ротация: новый токен и отзыв старого фиксируются вместе
	newRaw, err := s.tokens.NewRefreshToken()
	if err != nil {
		return uuid.Nil, nil, err
	}
	newToken := &model.RefreshToken{
		ID:        uuid.New(),
		UserID:    token.UserID,
		SessionID: token.SessionID,
		TokenHash: s.tokenHasher.Hash(newRaw),
		ExpiresAt: now.Add(s.refreshTTL),
	}
	if err := tx.RefreshTokens.Create(ctx, newToken); err != nil {
		return uuid.Nil, nil, err
	}
	if err := tx.RefreshTokens.Revoke(ctx, token.ID, now, &newToken.ID); err != nil {
		return uuid.Nil, nil, err
	}

	if err := s.logbook.Record(ctx, tx, client, LogRecord{
		Op:        op,
		UserID:    &token.UserID,
		SessionID: &token.SessionID,
		Details:   map[string]any{"success": true, "rotated_from": token.ID.String()},
	}); err != nil {
		return uuid.Nil, nil, err
	}
	if err := tx.Commit(); err != nil {
		return uuid.Nil, nil, err
	}

	access, err := s.tokens.NewAccessToken(token.UserID, token.SessionID)
	if err != nil {
		return uuid.Nil, nil, err
	}
	return token.UserID, &TokenPair{AccessToken: access, RefreshToken: newRaw}, nil
}

// AutoAuthenticate: сначала дешёвая проверка подписи access-токена без
// обращения к БД; только истёкший токен даёт право на refresh. Любой
// другой дефект токена — немедленный отказ без ротации.
func (s *AuthService) AutoAuthenticate(ctx context.Context, accessToken, refreshToken string, client ClientInfo) (uuid.UUID, *TokenPair, error) {
	if accessToken == "" {
		if refreshToken == "" {
			return uuid.Nil, nil, apperrors.RefreshMissing()
		}
		return s.rotate(ctx, refreshToken, client, model.OpAutoAuth)
	}

	userID, _, err := s.tokens.ParseAccessToken(accessToken)
	if err == nil {
		return userID, nil, nil
	}
	if apperrors.KindOf(err) == apperrors.KindTokenExpired {
		if refreshToken == "" {
			return uuid.Nil, nil, apperrors.RefreshMissing()
		}
		return s.rotate(ctx, refreshToken, client, model.OpAutoAuth)
	}
	return uuid.Nil, nil, err
}

// Logout завершает сессию и отзывает её активные токены.
func (s *AuthService) Logout(ctx context.Context, userID, sessionID uuid.UUID, client ClientInfo) error {
	now := time.Now()

	tx, err := s.uow.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.RefreshTokens.RevokeAllForSession(ctx, sessionID, now); err != nil {
		return err
	}
	if err := tx.Sessions.End(ctx, sessionID, now); err != nil {
		return err
	}
	if err := s.logbook.Record(ctx, tx, client, LogRecord{
		Op:        model.OpLogout,
		UserID:    &userID,
		SessionID: &sessionID,
		Details:   map[string]any{"success": true},
	}); err != nil {
		return err
	}
	return tx.Commit()
}

// auditInNewTx пишет запись аудита в свежей короткой транзакции —
// для сбоев, после которых исходная транзакция уже непригодна.
func (s *AuthService) auditInNewTx(ctx context.Context, client ClientInfo, rec LogRecord) error {
	tx, err := s.uow.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := s.logbook.Record(ctx, tx, client, rec); err != nil {
		return err
	}
	return tx.Commit()
}
