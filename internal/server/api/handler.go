// Package api реализует HTTP-слой JWKS сервера.
//
// Пакет отвечает за:
//   - обработку входящих запросов и формирование ответов (JSON, текст, статусы);
//   - маппинг доменных ошибок (service/repository) в HTTP-коды и сообщения;
//   - определение адреса клиента для лимитера и журнала выдачи.
//
// Маршруты регистрируются в пакете internal/server/net/http.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/IvanChernomyrdin/go-jwks-server/internal/server/middleware"
	"github.com/IvanChernomyrdin/go-jwks-server/internal/server/service"
	"github.com/IvanChernomyrdin/go-jwks-server/internal/shared/logger"
)

// Заголовки и типы содержимого ответов.
const (
	ContentType     string = "Content-Type"
	JsonContentType string = "application/json"
	TextContentType string = "text/plain; charset=utf-8"
	CacheControl    string = "Cache-Control"
)

// Handler агрегирует зависимости HTTP-слоя и предоставляет методы-хендлеры.
//
// Handler содержит:
//   - Svc: сервисный слой (бизнес-логика);
//   - Log: логгер для записи событий и ошибок;
//   - Verifier: проверка Bearer токенов для защищённых маршрутов;
//   - TrustProxy: брать ли адрес клиента из X-Forwarded-For.
type Handler struct {
	Svc        *service.Services
	Log        *logger.HTTPLogger
	Verifier   *middleware.JWTVerifier
	TrustProxy bool
}

// NewHandler создаёт экземпляр Handler с переданными зависимостями.
func NewHandler(svc *service.Services, log *logger.HTTPLogger, verifier *middleware.JWTVerifier, trustProxy bool) *Handler {
	return &Handler{
		Svc:        svc,
		Log:        log,
		Verifier:   verifier,
		TrustProxy: trustProxy,
	}
}

// WriteText пишет тело ответа как есть, без перевода строки в конце.
//
// Клиенты сравнивают тексты 429/500/400 побайтно, поэтому http.Error здесь не подходит.
func WriteText(w http.ResponseWriter, status int, msg string) {
	w.Header().Set(ContentType, TextContentType)
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(msg))
}

// WriteJSON кодирует v в JSON и пишет с нужным статусом.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set(ContentType, JsonContentType)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
