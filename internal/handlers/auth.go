package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"DriveKeeper/internal/config"
	"DriveKeeper/internal/middleware"
	"DriveKeeper/internal/service"

	"go.uber.org/zap"
)

// AuthHandler обрабатывает регистрацию, вход, ротацию токенов и выход.
type AuthHandler struct {
	AuthService *service.AuthService
	Logger      *zap.SugaredLogger
	Config      *config.Config
}

// NewAuthHandler создаёт хендлер аутентификации
func NewAuthHandler(authService *service.AuthService, logger *zap.SugaredLogger, cfg *config.Config) *AuthHandler {
	return &AuthHandler{AuthService: authService, Logger: logger, Config: cfg}
}

type RegisterRequest struct {
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	Password    string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// setRefreshCookie кладёт refresh-токен в httponly-cookie: скриптам
// страницы он недоступен, браузер предъявляет его сам.
func (h *AuthHandler) setRefreshCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.Config.RefreshCookieName,
		Value:    token,
		Path:     "/api/auth",
		MaxAge:   h.Config.RefreshTokenTTLDays * 24 * 3600,
		HttpOnly: true,
		Secure:   h.Config.EnableHTTPS,
		SameSite: http.SameSiteStrictMode,
	})
}

func (h *AuthHandler) clearRefreshCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.Config.RefreshCookieName,
		Value:    "",
		Path:     "/api/auth",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.Config.EnableHTTPS,
		SameSite: http.SameSiteStrictMode,
	})
}

func (h *AuthHandler) refreshFromCookie(r *http.Request) string {
	c, err := r.Cookie(h.Config.RefreshCookieName)
	if err != nil {
		return ""
	}
	return c.Value
}

// Register регистрация нового пользователя
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Logger.Warnw("Register: invalid request body", "error", err)
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	if req.Email == "" || req.Password == "" {
		http.Error(w, "email and password are required", http.StatusBadRequest)
		return
	}

	user, err := h.AuthService.Register(r.Context(), req.Email, req.DisplayName, req.Password, clientInfo(r))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"id":           user.ID,
		"email":        user.Email,
		"display_name": user.DisplayName,
	})
}

// Login вход: access-токен в теле, refresh-токен в httponly-cookie
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Logger.Warnw("Login: invalid request body", "error", err)
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}

	_, pair, err := h.AuthService.Login(r.Context(), req.Email, req.Password, clientInfo(r))
	if err != nil {
		writeError(w, err)
		return
	}

	h.setRefreshCookie(w, pair.RefreshToken)
	writeJSON(w, http.StatusOK, TokenResponse{AccessToken: pair.AccessToken, TokenType: "bearer"})
}

// Refresh ротация: старый refresh-токен из cookie гасится, новая пара в ответе
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	raw := h.refreshFromCookie(r)

	_, pair, err := h.AuthService.Refresh(r.Context(), raw, clientInfo(r))
	if err != nil {
		h.clearRefreshCookie(w)
		writeError(w, err)
		return
	}

	h.setRefreshCookie(w, pair.RefreshToken)
	writeJSON(w, http.StatusOK, TokenResponse{AccessToken: pair.AccessToken, TokenType: "bearer"})
}

// AutoAuth тихий вход: валидный access-токен подтверждается без БД,
// истёкший обменивается через refresh-токен из cookie
func (h *AuthHandler) AutoAuth(w http.ResponseWriter, r *http.Request) {
	var accessToken string
	if header := r.Header.Get("Authorization"); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			accessToken = parts[1]
		}
	}

	userID, pair, err := h.AuthService.AutoAuthenticate(r.Context(), accessToken, h.refreshFromCookie(r), clientInfo(r))
	if err != nil {
		writeError(w, err)
		return
	}

	resp := map[string]any{"user_id": userID}
	if pair != nil {
		h.setRefreshCookie(w, pair.RefreshToken)
		resp["access_token"] = pair.AccessToken
		resp["token_type"] = "bearer"
	}
	writeJSON(w, http.StatusOK, resp)
}

// Logout завершает сессию текущего токена и чистит refresh-cookie
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	sessionID, ok := middleware.GetSessionIDFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	if err := h.AuthService.Logout(r.Context(), userID, sessionID, clientInfo(r)); err != nil {
		writeError(w, err)
		return
	}

	h.clearRefreshCookie(w)
	writeJSON(w, http.StatusOK, map[string]string{"result": "logged out"})
}
