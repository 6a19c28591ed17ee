package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/IvanChernomyrdin/go-jwks-server/internal/server/models"
	serr "github.com/IvanChernomyrdin/go-jwks-server/internal/shared/errors"
)

// KeysRepository хранит ключи подписи (приватная часть зашифрована).
//
// Ключи из таблицы не удаляются: ротация только меняет status.
type KeysRepository struct {
	db *sql.DB
}

func NewKeysRepository(db *sql.DB) *KeysRepository {
	return &KeysRepository{db: db}
}

// Save вставляет ключ или обновляет статус и срок уже сохранённого.
// Зашифрованный материал существующего ключа не перезаписывается.
func (r *KeysRepository) Save(ctx context.Context, k models.StoredKey) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO keys (kid, algorithm, status, private_enc, created_at, expires_at)
		 VALUES ($1,$2,$3,$4,$5,$6)
		 ON CONFLICT (kid) DO UPDATE
		    SET status = EXCLUDED.status,
		        expires_at = EXCLUDED.expires_at`,
		k.KID, k.Algorithm, k.Status, k.PrivateEnc, k.CreatedAt, k.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("save key %s: %v: %w", k.KID, err, serr.ErrStorage)
	}
	return nil
}

// List возвращает все сохранённые ключи, новые первыми.
func (r *KeysRepository) List(ctx context.Context) ([]models.StoredKey, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT kid, algorithm, status, private_enc, created_at, expires_at
		   FROM keys
		  ORDER BY created_at DESC, kid`,
	)
	if err != nil {
		return nil, fmt.Errorf("list keys: %v: %w", err, serr.ErrStorage)
	}
	defer rows.Close()

	var out []models.StoredKey
	for rows.Next() {
		var k models.StoredKey
		if err := rows.Scan(&k.KID, &k.Algorithm, &k.Status, &k.PrivateEnc, &k.CreatedAt, &k.ExpiresAt); err != nil {
			return nil, fmt.Errorf("scan key: %v: %w", err, serr.ErrStorage)
		}
		out = append(out, k)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate keys: %v: %w", err, serr.ErrStorage)
	}
	return out, nil
}
