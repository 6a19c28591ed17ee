// Package middleware содержит HTTP middleware сервера.
package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	serr "github.com/IvanChernomyrdin/go-jwks-server/internal/shared/errors"
)

// ctxKey используется как тип ключа для хранения значений в context.Context.
// Отдельный тип предотвращает коллизии ключей между пакетами.
type ctxKey string

const (
	subjectKey ctxKey = "sub"
	kidKey     ctxKey = "kid"
)

// TokenVerifier проверяет подпись и claims токена.
// Реализуется crypto.TokenIssuer: ключ ищется по kid из заголовка.
type TokenVerifier interface {
	Verify(token string) (*jwt.RegisteredClaims, string, error)
}

// JWTVerifier инкапсулирует проверку RS256 токенов, выданных этим сервером.
//
// Используется в HTTP middleware для:
//   - проверки подписи ключом из keystore (в том числе уже просроченным ключом);
//   - проверки exp и issuer;
//   - извлечения sub и kid.
type JWTVerifier struct {
	Tokens TokenVerifier
	Issuer string // ожидаемый issuer (опционально)
}

// NewJWTVerifier создаёт новый JWTVerifier.
func NewJWTVerifier(tokens TokenVerifier, issuer string) *JWTVerifier {
	return &JWTVerifier{Tokens: tokens, Issuer: issuer}
}

// SubjectFromContext извлекает sub проверенного токена из контекста.
func SubjectFromContext(ctx context.Context) (string, bool) {
	s, ok := ctx.Value(subjectKey).(string)
	return s, ok
}

// KIDFromContext извлекает kid, которым был подписан токен.
func KIDFromContext(ctx context.Context) (string, bool) {
	s, ok := ctx.Value(kidKey).(string)
	return s, ok
}

// AuthMiddleware возвращает HTTP middleware для проверки Bearer токенов.
//
// Middleware:
//   - ожидает заголовок Authorization: Bearer <token>
//   - валидирует подпись и claims токена
//   - сохраняет sub и kid в context.Context
//
// В случае ошибки возвращает HTTP 401 Unauthorized.
func (v *JWTVerifier) AuthMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenStr := ExtractBearer(r.Header.Get("Authorization"))
			if tokenStr == "" {
				http.Error(w, "missing bearer token", http.StatusUnauthorized)
				return
			}

			claims, kid, err := v.Tokens.Verify(tokenStr)
			if err != nil {
				if errors.Is(err, jwt.ErrTokenExpired) {
					http.Error(w, "token expired", http.StatusUnauthorized)
					return
				}
				http.Error(w, serr.ErrUnauthorized.Error(), http.StatusUnauthorized)
				return
			}

			if v.Issuer != "" && claims.Issuer != v.Issuer {
				http.Error(w, "invalid token issuer", http.StatusUnauthorized)
				return
			}

			sub := strings.TrimSpace(claims.Subject)
			if sub == "" {
				http.Error(w, "invalid token subject", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), subjectKey, sub)
			ctx = context.WithValue(ctx, kidKey, kid)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ExtractBearer извлекает JWT из заголовка Authorization.
//
// Ожидаемый формат:
//
//	Authorization: Bearer <token>
//
// Возвращает пустую строку, если формат некорректен.
func ExtractBearer(h string) string {
	h = strings.TrimSpace(h)
	if h == "" {
		return ""
	}
	parts := strings.SplitN(h, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
