package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/IvanChernomyrdin/go-jwks-server/internal/server/crypto"
	"github.com/IvanChernomyrdin/go-jwks-server/internal/server/metrics"
	"github.com/IvanChernomyrdin/go-jwks-server/internal/server/models"
	serr "github.com/IvanChernomyrdin/go-jwks-server/internal/shared/errors"
)

// UsersService - регистрация пользователей и проверка их паролей.
type UsersService struct {
	users   UsersRepo
	hasher  crypto.PasswordHasher
	metrics *metrics.Metrics
	now     func() time.Time
}

// Registration - результат регистрации. Password в открытом виде
// возвращается только здесь и больше нигде не хранится.
type Registration struct {
	Username string
	Email    string
	Password string
}

func NewUsersService(users UsersRepo, hasher crypto.PasswordHasher, m *metrics.Metrics) *UsersService {
	return &UsersService{users: users, hasher: hasher, metrics: m, now: time.Now}
}

// Register регистрирует пользователя с паролем, сгенерированным сервером.
//
// Ошибки:
//   - ErrValidation если username или email пустые (ничего не сохраняется)
//   - ErrAlreadyExists если username/email заняты
//   - ErrStorage если запись в БД не прошла
func (s *UsersService) Register(ctx context.Context, username, email string) (Registration, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)
	if username == "" || email == "" {
		s.metrics.Registrations.WithLabelValues("invalid").Inc()
		return Registration{}, serr.ErrValidation
	}

	password, err := crypto.NewCredential()
	if err != nil {
		s.metrics.Registrations.WithLabelValues("error").Inc()
		return Registration{}, fmt.Errorf("%v: %w", err, serr.ErrInternal)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		s.metrics.Registrations.WithLabelValues("error").Inc()
		return Registration{}, fmt.Errorf("%v: %w", err, serr.ErrInternal)
	}

	if _, err := s.users.Create(ctx, username, email, hash); err != nil {
		if errors.Is(err, serr.ErrAlreadyExists) {
			s.metrics.Registrations.WithLabelValues("conflict").Inc()
		} else {
			s.metrics.Registrations.WithLabelValues("error").Inc()
		}
		return Registration{}, err
	}

	s.metrics.Registrations.WithLabelValues("ok").Inc()
	return Registration{Username: username, Email: email, Password: password}, nil
}

// Authenticate проверяет пароль пользователя и отмечает время входа.
//
// Не раскрывает, существует ли username: и «нет пользователя», и «не тот пароль»
// дают ErrInvalidCredentials.
func (s *UsersService) Authenticate(ctx context.Context, username, password string) (models.User, error) {
	if strings.TrimSpace(password) == "" {
		return models.User{}, serr.ErrInvalidCredentials
	}

	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, serr.ErrNotFound) {
			return models.User{}, serr.ErrInvalidCredentials
		}
		return models.User{}, err
	}

	ok, err := s.hasher.Verify(password, user.PasswordHash)
	if err != nil {
		return models.User{}, fmt.Errorf("%v: %w", err, serr.ErrInternal)
	}
	if !ok {
		return models.User{}, serr.ErrInvalidCredentials
	}

	if err := s.users.TouchLastLogin(ctx, user.ID, s.now().UTC()); err != nil {
		return models.User{}, err
	}
	return user, nil
}
