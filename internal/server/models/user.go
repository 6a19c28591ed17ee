// Серверные модели, которые хранятся в БД
package models

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID           uuid.UUID
	Username     string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
	LastLogin    *time.Time
}

// AuthLog - запись о выдаче токена.
// UserID пустой, если токен выписан без логина.
type AuthLog struct {
	RequestIP        string
	RequestTimestamp time.Time
	UserID           *uuid.UUID
}

// StoredKey - ключ подписи в том виде, в каком он лежит в БД.
// PrivateEnc зашифрован crypto.KeySealer.
type StoredKey struct {
	KID        string
	Algorithm  string
	Status     string
	PrivateEnc []byte
	CreatedAt  time.Time
	ExpiresAt  time.Time
}
