// Утилитарные функции общего назначения
package utils

import (
	"net"
	"net/http"
	"strings"
)

func Ptr[T any](v T) *T {
	return &v
}

// ClientIP возвращает адрес клиента.
// X-Forwarded-For учитывается только если trustProxy=true.
func ClientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if xf := r.Header.Get("X-Forwarded-For"); xf != "" {
			parts := strings.Split(xf, ",")
			return strings.TrimSpace(parts[0])
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil {
		return host
	}
	return r.RemoteAddr
}
