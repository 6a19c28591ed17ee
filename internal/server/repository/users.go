// Package repository содержит реализации слоя доступа к данным (Repository layer).
//
// Репозитории инкапсулируют работу с БД и не содержат бизнес-логики.
// Все ошибки приводятся к доменным ошибкам из internal/shared/errors.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgconn"

	"github.com/IvanChernomyrdin/go-jwks-server/internal/server/models"
	serr "github.com/IvanChernomyrdin/go-jwks-server/internal/shared/errors"
)

// pgUniqueViolation - код ошибки PostgreSQL unique_violation.
const pgUniqueViolation = "23505"

type UsersRepository struct {
	db *sql.DB
}

func NewUsersRepository(db *sql.DB) *UsersRepository {
	return &UsersRepository{db: db}
}

// Create сохраняет пользователя одной вставкой: либо запись есть целиком, либо её нет.
//
// Ошибки:
//   - ErrAlreadyExists если username или email заняты
//   - ErrStorage при других ошибках БД
func (r *UsersRepository) Create(ctx context.Context, username, email, passwordHash string) (uuid.UUID, error) {
	var id uuid.UUID

	err := r.db.QueryRowContext(ctx,
		`INSERT INTO users (username, email, password_hash)
		 VALUES ($1,$2,$3)
		 RETURNING id`,
		username, email, passwordHash,
	).Scan(&id)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return uuid.Nil, serr.ErrAlreadyExists
		}
		return uuid.Nil, fmt.Errorf("insert user: %v: %w", err, serr.ErrStorage)
	}

	return id, nil
}

// GetByUsername возвращает пользователя по username.
func (r *UsersRepository) GetByUsername(ctx context.Context, username string) (models.User, error) {
	var (
		u         models.User
		lastLogin sql.NullTime
	)

	err := r.db.QueryRowContext(ctx,
		`SELECT id, username, email, password_hash, created_at, last_login
		   FROM users
		  WHERE username=$1`,
		username,
	).Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.CreatedAt, &lastLogin)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.User{}, serr.ErrNotFound
		}
		return models.User{}, fmt.Errorf("select user: %v: %w", err, serr.ErrStorage)
	}
	if lastLogin.Valid {
		t := lastLogin.Time
		u.LastLogin = &t
	}

	return u, nil
}

// TouchLastLogin обновляет время последнего входа.
func (r *UsersRepository) TouchLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET last_login=$2 WHERE id=$1`,
		id, at,
	)
	if err != nil {
		return fmt.Errorf("update last_login: %v: %w", err, serr.ErrStorage)
	}
	return nil
}
