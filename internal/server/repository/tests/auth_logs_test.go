package tests

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/IvanChernomyrdin/go-jwks-server/internal/server/models"
	"github.com/IvanChernomyrdin/go-jwks-server/internal/server/repository"
	serr "github.com/IvanChernomyrdin/go-jwks-server/internal/shared/errors"
)

// токен без логина: user_id = NULL
func TestAuthLogsRepository_Create_Anonymous(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer db.Close()

	repo := repository.NewAuthLogsRepository(db)
	at := time.Now().UTC()

	mock.ExpectExec(`INSERT INTO auth_logs`).
		WithArgs("10.0.0.1", at, nil).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := repo.Create(context.Background(), models.AuthLog{RequestIP: "10.0.0.1", RequestTimestamp: at})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAuthLogsRepository_Create_WithUser(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer db.Close()

	repo := repository.NewAuthLogsRepository(db)
	at := time.Now().UTC()
	id := uuid.New()

	mock.ExpectExec(`INSERT INTO auth_logs`).
		WithArgs("10.0.0.1", at, id).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := repo.Create(context.Background(), models.AuthLog{RequestIP: "10.0.0.1", RequestTimestamp: at, UserID: &id})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAuthLogsRepository_Create_StorageError(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer db.Close()

	repo := repository.NewAuthLogsRepository(db)

	mock.ExpectExec(`INSERT INTO auth_logs`).
		WillReturnError(sql.ErrConnDone)

	err := repo.Create(context.Background(), models.AuthLog{RequestIP: "10.0.0.1", RequestTimestamp: time.Now()})
	require.ErrorIs(t, err, serr.ErrStorage)
}
