package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"DriveKeeper/internal/security"

	"github.com/google/uuid"
)

// Тест: валидный bearer-токен кладёт user_id и session_id в контекст
func TestWithAuth_ValidToken(t *testing.T) {
	tm := security.NewTokenManager("test-secret", 15*time.Minute)
	userID := uuid.New()
	sessionID := uuid.New()

	token, err := tm.NewAccessToken(userID, sessionID)
	if err != nil {
		t.Fatalf("failed to issue token: %v", err)
	}

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser, ok := GetUserIDFromContext(r.Context())
		if !ok || gotUser != userID {
			t.Fatalf("user id missing or wrong in context")
		}
		gotSession, ok := GetSessionIDFromContext(r.Context())
		if !ok || gotSession != sessionID {
			t.Fatalf("session id missing or wrong in context")
		}
		w.WriteHeader(http.StatusOK)
	})

	h := WithAuth(tm)(next)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 with valid token, got %d", rr.Code)
	}
}

// Тест: без заголовка Authorization запрос отклоняется до хендлера
func TestWithAuth_MissingHeader(t *testing.T) {
	tm := security.NewTokenManager("test-secret", 15*time.Minute)

	h := WithAuth(tm)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("handler must not be reached without token")
	}))

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
}

// Тест: токен под другим секретом — 401
func TestWithAuth_WrongSecret(t *testing.T) {
	issuer := security.NewTokenManager("secret-A", 15*time.Minute)
	verifier := security.NewTokenManager("secret-B", 15*time.Minute)

	token, err := issuer.NewAccessToken(uuid.New(), uuid.New())
	if err != nil {
		t.Fatalf("failed to issue token: %v", err)
	}

	h := WithAuth(verifier)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("handler must not be reached with foreign token")
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
}

// Тест: истёкший токен — 401
func TestWithAuth_ExpiredToken(t *testing.T) {
	tm := security.NewTokenManager("test-secret", -time.Minute)

	token, err := tm.NewAccessToken(uuid.New(), uuid.New())
	if err != nil {
		t.Fatalf("failed to issue token: %v", err)
	}

	h := WithAuth(tm)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("handler must not be reached with expired token")
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
}

// Тест: заголовок без схемы Bearer — 401
func TestWithAuth_MalformedHeader(t *testing.T) {
	tm := security.NewTokenManager("test-secret", 15*time.Minute)

	h := WithAuth(tm)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("handler must not be reached")
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Basic dXNlcjpwdw==")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
}
