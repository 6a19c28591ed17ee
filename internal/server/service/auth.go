package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/IvanChernomyrdin/go-jwks-server/internal/server/config"
	"github.com/IvanChernomyrdin/go-jwks-server/internal/server/crypto"
	"github.com/IvanChernomyrdin/go-jwks-server/internal/server/metrics"
	"github.com/IvanChernomyrdin/go-jwks-server/internal/server/models"
	"github.com/IvanChernomyrdin/go-jwks-server/internal/server/ratelimit"
	serr "github.com/IvanChernomyrdin/go-jwks-server/internal/shared/errors"
)

// AuthService реализует выдачу токенов.
//
// Порядок: лимитер → (опционально) проверка логина → подпись → запись в журнал.
// Ошибки не ретраятся: ошибка хранилища сразу уходит вызывающему.
type AuthService struct {
	limiter Limiter
	issuer  Issuer
	users   *UsersService
	logs    AuthLogsRepo
	metrics *metrics.Metrics

	scopeByIP      bool
	defaultSubject string
	now            func() time.Time
}

// IssueRequest - параметры одного запроса POST /auth.
type IssueRequest struct {
	IP       string
	Username string
	Password string
	Expired  bool
}

// NewAuthService создаёт AuthService. limiter может быть nil - тогда лимит выключен.
func NewAuthService(limiter Limiter, issuer Issuer, users *UsersService, logs AuthLogsRepo, cfg *config.Config, m *metrics.Metrics) *AuthService {
	return &AuthService{
		limiter:        limiter,
		issuer:         issuer,
		users:          users,
		logs:           logs,
		metrics:        m,
		scopeByIP:      cfg.Security.RateLimit.Key == "ip",
		defaultSubject: cfg.Auth.DefaultSubject,
		now:            time.Now,
	}
}

// Issue выдаёт токен.
//
// Ошибки:
//   - ErrRateLimited - лимит исчерпан, токен не подписывается
//   - ErrInvalidCredentials - передан username, но пароль не подошёл
//   - ErrSigning / ErrNoActiveKey - проблема с ключом
//   - ErrStorage - не удалось записать журнал; токен не возвращается
func (s *AuthService) Issue(ctx context.Context, req IssueRequest) (crypto.IssuedToken, error) {
	if s.limiter != nil {
		scope := ratelimit.GlobalScope
		if s.scopeByIP && req.IP != "" {
			scope = req.IP
		}
		if s.limiter.Admit(scope) == ratelimit.Denied {
			s.metrics.RateLimited.Inc()
			return crypto.IssuedToken{}, serr.ErrRateLimited
		}
	}

	subject := s.defaultSubject
	var userID *uuid.UUID

	if username := strings.TrimSpace(req.Username); username != "" {
		user, err := s.users.Authenticate(ctx, username, req.Password)
		if err != nil {
			return crypto.IssuedToken{}, err
		}
		subject = user.Username
		userID = &user.ID
	}

	tok, err := s.issuer.Issue(subject, req.Expired)
	if err != nil {
		return crypto.IssuedToken{}, err
	}

	err = s.logs.Create(ctx, models.AuthLog{
		RequestIP:        req.IP,
		RequestTimestamp: s.now().UTC(),
		UserID:           userID,
	})
	if err != nil {
		return crypto.IssuedToken{}, err
	}

	kind := "valid"
	if req.Expired {
		kind = "expired"
	}
	s.metrics.TokensIssued.WithLabelValues(kind).Inc()

	return tok, nil
}
