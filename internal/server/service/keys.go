package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/IvanChernomyrdin/go-jwks-server/internal/server/crypto"
	"github.com/IvanChernomyrdin/go-jwks-server/internal/server/keystore"
	"github.com/IvanChernomyrdin/go-jwks-server/internal/server/metrics"
	"github.com/IvanChernomyrdin/go-jwks-server/internal/server/models"
	"github.com/IvanChernomyrdin/go-jwks-server/internal/shared/logger"
)

// KeysService связывает in-memory keystore с таблицей keys:
// загружает ключи на старте, сохраняет новые и ротирует по таймеру.
type KeysService struct {
	store   *keystore.Store
	repo    KeysRepo
	sealer  *crypto.KeySealer
	metrics *metrics.Metrics
	log     *logger.HTTPLogger

	rotateEvery time.Duration

	mu     sync.Mutex
	sealed map[string][]byte // kid -> зашифрованный ключ, чтобы не шифровать повторно
}

func NewKeysService(store *keystore.Store, repo KeysRepo, sealer *crypto.KeySealer, rotateEvery time.Duration, m *metrics.Metrics, log *logger.HTTPLogger) *KeysService {
	return &KeysService{
		store:       store,
		repo:        repo,
		sealer:      sealer,
		metrics:     m,
		log:         log,
		rotateEvery: rotateEvery,
		sealed:      make(map[string][]byte),
	}
}

// Bootstrap загружает сохранённые ключи, создаёт недостающие
// (активный и просроченный) и сохраняет результат.
//
// После Bootstrap выдача токенов не создаёт ключей сама.
func (s *KeysService) Bootstrap(ctx context.Context) error {
	stored, err := s.repo.List(ctx)
	if err != nil {
		return err
	}

	for _, sk := range stored {
		priv, err := s.sealer.Open(sk.PrivateEnc)
		if err != nil {
			return fmt.Errorf("open key %s: %w", sk.KID, err)
		}
		err = s.store.Add(keystore.SigningKey{
			KID:       sk.KID,
			Algorithm: sk.Algorithm,
			Private:   priv,
			Public:    &priv.PublicKey,
			Status:    keystore.Status(sk.Status),
			CreatedAt: sk.CreatedAt,
			ExpiresAt: sk.ExpiresAt,
		})
		if err != nil {
			return err
		}
		s.mu.Lock()
		s.sealed[sk.KID] = sk.PrivateEnc
		s.mu.Unlock()
	}

	// после неудачной записи статусов в БД может остаться несколько активных:
	// оставляем активным самый свежий
	if active, err := s.store.ActiveKey(); err == nil {
		if err := s.store.Promote(active); err != nil {
			return err
		}
	}

	if err := s.store.Bootstrap(); err != nil {
		return err
	}
	return s.Persist(ctx)
}

// Persist сохраняет все ключи keystore: новые вставляются, у старых обновляется статус.
func (s *KeysService) Persist(ctx context.Context) error {
	for _, k := range s.store.Keys() {
		if err := s.save(ctx, k); err != nil {
			return err
		}
	}
	return nil
}

func (s *KeysService) save(ctx context.Context, k keystore.SigningKey) error {
	enc, err := s.sealedFor(k)
	if err != nil {
		return err
	}
	return s.repo.Save(ctx, models.StoredKey{
		KID:        k.KID,
		Algorithm:  k.Algorithm,
		Status:     string(k.Status),
		PrivateEnc: enc,
		CreatedAt:  k.CreatedAt,
		ExpiresAt:  k.ExpiresAt,
	})
}

// Rotate выпускает новый активный ключ и сохраняет изменения.
//
// Новый ключ сначала записывается в БД и только потом начинает подписывать:
// если запись не удалась, хранилище не меняется и работает прежний ключ.
func (s *KeysService) Rotate(ctx context.Context) (keystore.SigningKey, error) {
	k, err := s.store.Generate()
	if err != nil {
		return keystore.SigningKey{}, err
	}
	if err := s.save(ctx, k); err != nil {
		return keystore.SigningKey{}, err
	}

	if err := s.store.Promote(k); err != nil {
		return keystore.SigningKey{}, err
	}
	s.metrics.KeyRotations.Inc()

	// осталось сохранить статус expired у прежних ключей; при ошибке
	// это повторит следующая ротация или Persist на старте
	if err := s.Persist(ctx); err != nil {
		s.log.Sugar().Errorf("persist demoted keys after rotation to %s: %v", k.KID, err)
	}
	return k, nil
}

// Run ротирует ключи каждые rotateEvery до отмены ctx.
// Ошибка ротации логируется и не останавливает сервер: старый ключ продолжает работать.
func (s *KeysService) Run(ctx context.Context) error {
	if s.rotateEvery <= 0 {
		<-ctx.Done()
		return nil
	}

	t := time.NewTicker(s.rotateEvery)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			k, err := s.Rotate(ctx)
			if err != nil {
				s.log.Sugar().Errorf("key rotation failed: %v", err)
				continue
			}
			s.log.Sugar().Infof("signing key rotated, new kid=%s", k.KID)
		}
	}
}

func (s *KeysService) sealedFor(k keystore.SigningKey) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if enc, ok := s.sealed[k.KID]; ok {
		return enc, nil
	}
	enc, err := s.sealer.Seal(k.Private)
	if err != nil {
		return nil, fmt.Errorf("seal key %s: %w", k.KID, err)
	}
	s.sealed[k.KID] = enc
	return enc, nil
}
