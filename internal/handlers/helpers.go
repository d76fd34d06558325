package handlers

import (
	"encoding/json"
	"net"
	"net/http"
	"strings"

	"DriveKeeper/internal/apperrors"
	"DriveKeeper/internal/service"
)

// clientInfo собирает транспортный контекст запроса для аудита.
func clientInfo(r *http.Request) service.ClientInfo {
	ip := r.Header.Get("X-Forwarded-For")
	if ip != "" {
		// первый адрес в цепочке — клиент
		if idx := strings.IndexByte(ip, ','); idx > 0 {
			ip = ip[:idx]
		}
		ip = strings.TrimSpace(ip)
	} else {
		host, _, err := net.SplitHostPort(r.RemoteAddr)
		if err == nil {
			ip = host
		} else {
			ip = r.RemoteAddr
		}
	}
	return service.ClientInfo{IP: ip, UserAgent: r.UserAgent()}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError переводит ошибку сервиса в HTTP-статус и JSON-тело.
func writeError(w http.ResponseWriter, err error) {
	status := apperrors.HTTPStatus(err)
	detail := err.Error()
	if status == http.StatusInternalServerError {
		// внутренности не утекают клиенту
		detail = "internal error"
	}
	writeJSON(w, status, map[string]string{"error": detail})
}
