package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/IvanChernomyrdin/go-jwks-server/internal/server/models"
	serr "github.com/IvanChernomyrdin/go-jwks-server/internal/shared/errors"
)

// AuthLogsRepository пишет журнал выдачи токенов.
type AuthLogsRepository struct {
	db *sql.DB
}

func NewAuthLogsRepository(db *sql.DB) *AuthLogsRepository {
	return &AuthLogsRepository{db: db}
}

// Create добавляет запись о выдаче токена.
// user_id пишется как NULL, если токен выписан без логина.
func (r *AuthLogsRepository) Create(ctx context.Context, entry models.AuthLog) error {
	var userID any
	if entry.UserID != nil {
		userID = *entry.UserID
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO auth_logs (request_ip, request_timestamp, user_id)
		 VALUES ($1,$2,$3)`,
		entry.RequestIP, entry.RequestTimestamp, userID,
	)
	if err != nil {
		return fmt.Errorf("insert auth log: %v: %w", err, serr.ErrStorage)
	}
	return nil
}
