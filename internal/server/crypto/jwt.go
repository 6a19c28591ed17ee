// Package crypto содержит криптографические примитивы,
// используемые сервером JWKS.
//
// В частности, пакет отвечает за:
//   - подпись JWT ключами из keystore (RS256, kid в заголовке);
//   - проверку ранее выданных токенов по kid;
//   - рендер публичных ключей в JWKS;
//   - хэширование паролей и шифрование приватных ключей перед записью в БД.
package crypto

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/IvanChernomyrdin/go-jwks-server/internal/server/keystore"
	serr "github.com/IvanChernomyrdin/go-jwks-server/internal/shared/errors"
)

// KeySource - то, что TokenIssuer ожидает от хранилища ключей.
type KeySource interface {
	ActiveKey() (keystore.SigningKey, error)
	ExpiredKey() (keystore.SigningKey, error)
	KeyByID(kid string) (keystore.SigningKey, error)
}

// JWTConfig описывает параметры выдачи токенов.
type JWTConfig struct {
	// Issuer - значение поля iss. Пустое значение не пишется в токен.
	Issuer string
	// TTL - срок жизни валидного токена.
	TTL time.Duration
	// ExpiredOffset - насколько exp просроченного токена раньше текущего времени.
	ExpiredOffset time.Duration
}

// IssuedToken - подписанный токен и его метаданные.
type IssuedToken struct {
	Token     string
	KID       string
	Subject   string
	IssuedAt  time.Time
	ExpiresAt time.Time
	Expired   bool
}

// TokenIssuer подписывает JWT активным или просроченным ключом.
type TokenIssuer struct {
	keys KeySource
	cfg  JWTConfig
	now  func() time.Time
}

// MinTokenTTL - минимальный срок жизни валидного токена.
const MinTokenTTL = time.Second

// NewTokenIssuer создаёт TokenIssuer. now может быть nil - тогда time.Now.
func NewTokenIssuer(keys KeySource, cfg JWTConfig, now func() time.Time) *TokenIssuer {
	if cfg.TTL <= 0 {
		cfg.TTL = time.Hour
	}
	// exp хранится в целых секундах: с TTL меньше секунды
	// "валидный" токен мог бы получить exp <= now
	if cfg.TTL < MinTokenTTL {
		cfg.TTL = MinTokenTTL
	}
	if cfg.ExpiredOffset <= 0 {
		cfg.ExpiredOffset = time.Hour
	}
	if now == nil {
		now = time.Now
	}
	return &TokenIssuer{keys: keys, cfg: cfg, now: now}
}

// Issue создаёт и подписывает токен для subject.
//
// expired=false - активный ключ, exp = now + TTL.
// expired=true - просроченный ключ, exp = now - ExpiredOffset.
//
// Если приватная часть ключа непригодна, возвращается ErrSigning;
// другим ключом подписать не пытаемся: поменялся бы ключ проверки.
func (i *TokenIssuer) Issue(subject string, expired bool) (IssuedToken, error) {
	var (
		key keystore.SigningKey
		err error
	)
	if expired {
		key, err = i.keys.ExpiredKey()
	} else {
		key, err = i.keys.ActiveKey()
	}
	if err != nil {
		return IssuedToken{}, err
	}
	if key.Private == nil || key.Private.N == nil {
		return IssuedToken{}, fmt.Errorf("key %s: missing private material: %w", key.KID, serr.ErrSigning)
	}

	now := i.now()
	exp := now.Add(i.cfg.TTL)
	if expired {
		exp = now.Add(-i.cfg.ExpiredOffset)
	}

	claims := jwt.RegisteredClaims{
		Issuer:    i.cfg.Issuer,
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	}

	t := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	t.Header["kid"] = key.KID

	signed, err := t.SignedString(key.Private)
	if err != nil {
		return IssuedToken{}, fmt.Errorf("sign with key %s: %v: %w", key.KID, err, serr.ErrSigning)
	}

	return IssuedToken{
		Token:     signed,
		KID:       key.KID,
		Subject:   subject,
		IssuedAt:  claims.IssuedAt.Time,
		ExpiresAt: claims.ExpiresAt.Time,
		Expired:   expired,
	}, nil
}

// Verify проверяет подпись токена ключом из заголовка kid и срок действия.
//
// Ключ ищется среди всех ключей, включая просроченные: токен,
// подписанный до ротации, остаётся проверяемым, пока не истёк его exp.
func (i *TokenIssuer) Verify(token string) (*jwt.RegisteredClaims, string, error) {
	claims := &jwt.RegisteredClaims{}
	var kid string

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithTimeFunc(i.now),
		jwt.WithExpirationRequired(),
	)
	_, err := parser.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		k, _ := t.Header["kid"].(string)
		if k == "" {
			return nil, errors.New("missing kid")
		}
		key, err := i.keys.KeyByID(k)
		if err != nil {
			return nil, err
		}
		kid = k
		return key.Public, nil
	})
	if err != nil {
		return nil, kid, fmt.Errorf("%w: %w", serr.ErrUnauthorized, err)
	}
	return claims, kid, nil
}
