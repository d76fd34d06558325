package apperrors

import (
	"errors"
	"net/http"
)

// Kind — класс бизнес-ошибки. Используется сервисами, хендлеры
// превращают его в HTTP-статус.
type Kind int

const (
	KindUnknown Kind = iota
	KindNotFound
	KindAlreadyExists
	KindAccessDenied
	KindInvalidCredentials
	KindInvalidParent
	KindTooLarge
	KindTokenExpired
	KindTokenInvalid
	KindRefreshMissing
	KindRefreshRevoked
)

// Error — типизированная ошибка уровня use-case.
type Error struct {
	Kind   Kind
	Detail string
}

func (e *Error) Error() string { return e.Detail }

func NotFound(detail string) error      { return &Error{Kind: KindNotFound, Detail: detail} }
func AlreadyExists(detail string) error { return &Error{Kind: KindAlreadyExists, Detail: detail} }
func AccessDenied(detail string) error  { return &Error{Kind: KindAccessDenied, Detail: detail} }
func InvalidCredentials() error {
	return &Error{Kind: KindInvalidCredentials, Detail: "invalid email or password"}
}
func InvalidParent(detail string) error { return &Error{Kind: KindInvalidParent, Detail: detail} }
func TooLarge(detail string) error      { return &Error{Kind: KindTooLarge, Detail: detail} }
func TokenExpired(detail string) error  { return &Error{Kind: KindTokenExpired, Detail: detail} }
func TokenInvalid(detail string) error  { return &Error{Kind: KindTokenInvalid, Detail: detail} }
func RefreshMissing() error {
	return &Error{Kind: KindRefreshMissing, Detail: "refresh token required"}
}
func RefreshRevoked() error {
	return &Error{Kind: KindRefreshRevoked, Detail: "refresh token has been revoked"}
}

// KindOf возвращает класс ошибки или KindUnknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// HTTPStatus — отображение класса ошибки на транспортный статус.
// Неизвестные ошибки считаются внутренними.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindNotFound, KindInvalidParent:
		return http.StatusNotFound
	case KindAlreadyExists:
		return http.StatusConflict
	case KindAccessDenied:
		return http.StatusForbidden
	case KindInvalidCredentials, KindTokenExpired, KindTokenInvalid, KindRefreshMissing, KindRefreshRevoked:
		return http.StatusUnauthorized
	case KindTooLarge:
		return http.StatusRequestEntityTooLarge
	default:
		return http.StatusInternalServerError
	}
}
