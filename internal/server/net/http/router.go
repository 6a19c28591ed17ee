// Package http реализует маршрутизацию HTTP-слоя JWKS сервера.
//
// Пакет отвечает за:
//   - регистрацию HTTP-маршрутов и настройку роутера (chi);
//   - логирование выполнения HTTP-запросов;
//   - ответ 404 и на неизвестный путь, и на неподдерживаемый метод.
package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/IvanChernomyrdin/go-jwks-server/internal/server/api"
	"github.com/IvanChernomyrdin/go-jwks-server/internal/server/middleware"
)

// JWKSPath - путь публикации ключей.
const JWKSPath = "/.well-known/jwks.json"

// Options - необязательные части роутера.
type Options struct {
	MaxBodyBytes int64
	// MetricsPath пустой - /metrics не регистрируется
	MetricsPath string
}

// NewRouter создаёт и настраивает HTTP-роутер сервера.
//
// Роутер использует chi.Router и регистрирует:
//   - GET/HEAD /.well-known/jwks.json;
//   - POST /auth и POST /register;
//   - GET /me под проверкой Bearer токена;
//   - /metrics, если включены метрики.
func NewRouter(h *api.Handler, opts Options) http.Handler {
	r := chi.NewRouter()
	// логирование всех запросов
	r.Use(middleware.LoggerMiddleware(h.Log))
	r.Use(middleware.MaxBodyMiddleware(opts.MaxBodyBytes))

	// chi по умолчанию отвечает 405, клиенты ждут 404
	notFound := func(w http.ResponseWriter, _ *http.Request) {
		api.WriteText(w, http.StatusNotFound, "Not Found")
	}
	r.NotFound(notFound)
	r.MethodNotAllowed(notFound)

	r.Get(JWKSPath, h.JWKS)
	r.Head(JWKSPath, h.JWKS)

	r.Post("/auth", h.Auth)
	r.Post("/register", h.Register)

	// защищённые пути
	r.Group(func(r chi.Router) {
		r.Use(h.Verifier.AuthMiddleware())
		r.Get("/me", h.Me)
	})

	if opts.MetricsPath != "" && h.Svc.Metrics != nil {
		r.Method(http.MethodGet, opts.MetricsPath, h.Svc.Metrics.Handler())
	}

	return r
}
