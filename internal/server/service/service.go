// Package service содержит бизнес-логику JWKS сервера.
// Это прослойка между HTTP-обработчиками (api) и хранилищами (keystore, repository).
package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/IvanChernomyrdin/go-jwks-server/internal/server/config"
	"github.com/IvanChernomyrdin/go-jwks-server/internal/server/crypto"
	"github.com/IvanChernomyrdin/go-jwks-server/internal/server/keystore"
	"github.com/IvanChernomyrdin/go-jwks-server/internal/server/metrics"
	"github.com/IvanChernomyrdin/go-jwks-server/internal/server/models"
	"github.com/IvanChernomyrdin/go-jwks-server/internal/server/ratelimit"
	"github.com/IvanChernomyrdin/go-jwks-server/internal/shared/logger"
)

//go:generate mockgen -source=service.go -destination=mocks/mock_repos.go -package=mocks

// Repositories - набор интерфейсов, которые сервисный слой ожидает от слоя repository.
type Repositories struct {
	Users    UsersRepo
	AuthLogs AuthLogsRepo
	Keys     KeysRepo
}

// UsersRepo - репозиторий пользователей (регистрация и проверка логина).
type UsersRepo interface {
	Create(ctx context.Context, username, email, passwordHash string) (uuid.UUID, error)
	GetByUsername(ctx context.Context, username string) (models.User, error)
	TouchLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error
}

// AuthLogsRepo - журнал выдачи токенов.
type AuthLogsRepo interface {
	Create(ctx context.Context, entry models.AuthLog) error
}

// KeysRepo - хранилище зашифрованных ключей подписи.
type KeysRepo interface {
	Save(ctx context.Context, k models.StoredKey) error
	List(ctx context.Context) ([]models.StoredKey, error)
}

// Limiter - пропускной фильтр перед выдачей токенов.
type Limiter interface {
	Admit(scope string) ratelimit.Decision
}

// Issuer - подпись токенов.
type Issuer interface {
	Issue(subject string, expired bool) (crypto.IssuedToken, error)
}

// Services - агрегатор всех сервисов приложения.
//
// Состояние лимитера и ключей принадлежит Services и передаётся в сервисы
// через конструкторы, глобальных переменных нет.
type Services struct {
	Auth  *AuthService
	Users *UsersService
	JWKS  *JWKSService
	Keys  *KeysService

	Store   *keystore.Store
	Issuer  *crypto.TokenIssuer
	Limiter *ratelimit.Limiter
	Metrics *metrics.Metrics
}

// NewServices собирает все сервисы приложения.
//
// store и sealer создаются снаружи: store нужен тестам с быстрым генератором ключей,
// sealer зависит от секрета из окружения.
func NewServices(repos Repositories, store *keystore.Store, sealer *crypto.KeySealer, cfg *config.Config, log *logger.HTTPLogger) *Services {
	m := metrics.New()

	var limiter *ratelimit.Limiter
	if cfg.Security.RateLimit.Enabled {
		limiter = ratelimit.New(cfg.Security.RateLimit.Limit, cfg.Security.RateLimit.Window, nil)
	}

	issuer := crypto.NewTokenIssuer(store, crypto.JWTConfig{
		Issuer:        cfg.Auth.Issuer,
		TTL:           cfg.Auth.TokenTTL,
		ExpiredOffset: cfg.Auth.ExpiredOffset,
	}, nil)

	hasher := crypto.Argon2Hasher{Params: crypto.Argon2Params{
		Time:      cfg.Password.Argon2.Time,
		MemoryKiB: cfg.Password.Argon2.MemoryKiB,
		Threads:   cfg.Password.Argon2.Threads,
		KeyLen:    cfg.Password.Argon2.KeyLen,
		SaltLen:   cfg.Password.Argon2.SaltLen,
	}}

	users := NewUsersService(repos.Users, hasher, m)
	jwks := NewJWKSService(store, cfg.JWKS.CacheTTL, m)
	// после ротации JWKS должен сразу отражать новый набор ключей
	store.OnChange(func(keystore.SigningKey) { jwks.Invalidate() })

	var lim Limiter
	if limiter != nil {
		lim = limiter
	}

	return &Services{
		Auth:    NewAuthService(lim, issuer, users, repos.AuthLogs, cfg, m),
		Users:   users,
		JWKS:    jwks,
		Keys:    NewKeysService(store, repos.Keys, sealer, cfg.Auth.Keys.RotateEvery, m, log),
		Store:   store,
		Issuer:  issuer,
		Limiter: limiter,
		Metrics: m,
	}
}
