// Package keystore хранит пары ключей подписи RS256 и их статусы.
//
// Ключ бывает активным (им подписываются валидные токены, он публикуется в JWKS)
// или просроченным (им подписываются заведомо просроченные токены, в JWKS его нет).
// Ни один ключ не удаляется за время жизни процесса: ротация только меняет статус,
// поэтому ранее выданные токены всегда можно проверить по kid.
package keystore

import (
	"crypto/rand"
	"crypto/rsa"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	serr "github.com/IvanChernomyrdin/go-jwks-server/internal/shared/errors"
)

// AlgRS256 - единственный поддерживаемый алгоритм подписи.
const AlgRS256 = "RS256"

// Status - статус ключа в жизненном цикле.
type Status string

const (
	StatusActive  Status = "active"
	StatusExpired Status = "expired"
)

// SigningKey - пара ключей с метаданными.
type SigningKey struct {
	KID       string
	Algorithm string
	Private   *rsa.PrivateKey
	Public    *rsa.PublicKey
	Status    Status
	CreatedAt time.Time
	ExpiresAt time.Time
}

// PublicKey - публичная часть ключа для JWKS.
type PublicKey struct {
	KID       string
	Algorithm string
	Key       *rsa.PublicKey
}

// Generator создаёт приватный RSA ключ заданной длины.
type Generator func(bits int) (*rsa.PrivateKey, error)

// Option настраивает Store.
type Option func(*Store)

// WithClock подменяет источник времени (для тестов).
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithGenerator подменяет генератор ключей (для тестов, RSA-2048 долгий).
func WithGenerator(g Generator) Option {
	return func(s *Store) { s.gen = g }
}

// WithBits задаёт длину RSA ключа.
func WithBits(bits int) Option {
	return func(s *Store) { s.bits = bits }
}

// WithKeyTTL задаёт срок жизни активного ключа (поле ExpiresAt).
func WithKeyTTL(ttl time.Duration) Option {
	return func(s *Store) { s.keyTTL = ttl }
}

// Store - потокобезопасное in-memory хранилище ключей.
//
// Чтения берут RLock, ротация и добавление - Lock,
// поэтому ActiveKey никогда не видит «половину» ротации.
type Store struct {
	mu   sync.RWMutex
	keys map[string]SigningKey

	now    func() time.Time
	gen    Generator
	bits   int
	keyTTL time.Duration

	lmu       sync.Mutex
	listeners []func(SigningKey)
}

// New создаёт пустое хранилище. Перед выдачей токенов нужно вызвать
// Bootstrap (или добавить ключи через Add).
func New(opts ...Option) *Store {
	s := &Store{
		keys:   make(map[string]SigningKey),
		now:    time.Now,
		gen:    func(bits int) (*rsa.PrivateKey, error) { return rsa.GenerateKey(rand.Reader, bits) },
		bits:   2048,
		keyTTL: 24 * time.Hour,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// OnChange регистрирует обработчик, который вызывается после появления
// нового ключа или смены статуса существующего.
func (s *Store) OnChange(fn func(SigningKey)) {
	s.lmu.Lock()
	s.listeners = append(s.listeners, fn)
	s.lmu.Unlock()
}

func (s *Store) notify(keys ...SigningKey) {
	s.lmu.Lock()
	ls := append([]func(SigningKey){}, s.listeners...)
	s.lmu.Unlock()

	for _, k := range keys {
		for _, fn := range ls {
			fn(k)
		}
	}
}

// Bootstrap гарантирует наличие одного активного и одного просроченного ключа.
// Вызывается на старте, чтобы выдача не создавала ключи во время запросов.
func (s *Store) Bootstrap() error {
	if _, err := s.ActiveKey(); err != nil {
		if _, err := s.Rotate(); err != nil {
			return err
		}
	}
	_, err := s.ExpiredKey()
	return err
}

// ActiveKey возвращает самый свежий активный ключ.
func (s *Store) ActiveKey() (SigningKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	k, ok := s.newest(StatusActive)
	if !ok {
		return SigningKey{}, serr.ErrNoActiveKey
	}
	return k, nil
}

// ExpiredKey возвращает самый свежий просроченный ключ.
// Если такого ещё нет - создаёт ключ с датами в прошлом.
func (s *Store) ExpiredKey() (SigningKey, error) {
	s.mu.RLock()
	k, ok := s.newest(StatusExpired)
	s.mu.RUnlock()
	if ok {
		return k, nil
	}

	// генерируем вне блокировки: RSA дорогой
	fresh, err := s.generate(StatusExpired)
	if err != nil {
		return SigningKey{}, err
	}

	s.mu.Lock()
	// пока генерировали, ключ мог появиться в другой горутине
	if k, ok := s.newest(StatusExpired); ok {
		s.mu.Unlock()
		return k, nil
	}
	s.keys[fresh.KID] = fresh
	s.mu.Unlock()

	s.notify(fresh)
	return fresh, nil
}

// KeyByID ищет ключ любого статуса по kid.
func (s *Store) KeyByID(kid string) (SigningKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	k, ok := s.keys[kid]
	if !ok {
		return SigningKey{}, serr.ErrKeyNotFound
	}
	return k, nil
}

// AllPublicKeys возвращает публичные части только активных ключей.
// Просроченные ключи не публикуются: иначе верификатор доверял бы токенам,
// которые сервер уже не считает валидными.
//
// Порядок детерминирован: новые ключи первыми, при равенстве - по kid.
func (s *Store) AllPublicKeys() []PublicKey {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]PublicKey, 0, len(s.keys))
	for _, k := range s.sorted() {
		if k.Status != StatusActive || k.Public == nil {
			continue
		}
		out = append(out, PublicKey{KID: k.KID, Algorithm: k.Algorithm, Key: k.Public})
	}
	return out
}

// Keys возвращает снимок всех ключей (для сохранения в БД).
func (s *Store) Keys() []SigningKey {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sorted()
}

// Add кладёт уже существующий ключ (например, загруженный из БД).
func (s *Store) Add(k SigningKey) error {
	if k.KID == "" {
		return fmt.Errorf("add key: %w", serr.ErrInvalidInput)
	}
	if k.Status != StatusActive && k.Status != StatusExpired {
		return fmt.Errorf("add key %s: unknown status %q: %w", k.KID, k.Status, serr.ErrInvalidInput)
	}
	if k.Algorithm == "" {
		k.Algorithm = AlgRS256
	}
	if k.Public == nil && k.Private != nil {
		k.Public = &k.Private.PublicKey
	}

	s.mu.Lock()
	s.keys[k.KID] = k
	s.mu.Unlock()

	s.notify(k)
	return nil
}

// Rotate создаёт новый активный ключ, а все прежние активные помечает просроченными.
func (s *Store) Rotate() (SigningKey, error) {
	fresh, err := s.Generate()
	if err != nil {
		return SigningKey{}, err
	}
	if err := s.Promote(fresh); err != nil {
		return SigningKey{}, err
	}
	return fresh, nil
}

// Generate создаёт активный ключ, но не кладёт его в хранилище.
// Так ключ можно сначала сохранить в БД, а потом включить через Promote.
func (s *Store) Generate() (SigningKey, error) {
	return s.generate(StatusActive)
}

// Promote делает k текущим активным ключом, прежние активные становятся просроченными.
func (s *Store) Promote(k SigningKey) error {
	if k.KID == "" || k.Private == nil {
		return fmt.Errorf("promote key: %w", serr.ErrInvalidInput)
	}
	k.Status = StatusActive
	if k.Algorithm == "" {
		k.Algorithm = AlgRS256
	}
	if k.Public == nil {
		k.Public = &k.Private.PublicKey
	}

	now := s.now()
	changed := []SigningKey{k}

	s.mu.Lock()
	for kid, old := range s.keys {
		if old.Status != StatusActive || kid == k.KID {
			continue
		}
		old.Status = StatusExpired
		if old.ExpiresAt.After(now) {
			old.ExpiresAt = now
		}
		s.keys[kid] = old
		changed = append(changed, old)
	}
	s.keys[k.KID] = k
	s.mu.Unlock()

	s.notify(changed...)
	return nil
}

func (s *Store) generate(status Status) (SigningKey, error) {
	priv, err := s.gen(s.bits)
	if err != nil {
		return SigningKey{}, fmt.Errorf("generate rsa key: %w", err)
	}

	now := s.now()
	k := SigningKey{
		KID:       uuid.NewString(),
		Algorithm: AlgRS256,
		Private:   priv,
		Public:    &priv.PublicKey,
		Status:    status,
		CreatedAt: now,
		ExpiresAt: now.Add(s.keyTTL),
	}
	if status == StatusExpired {
		k.CreatedAt = now.Add(-2 * time.Hour)
		k.ExpiresAt = now.Add(-time.Hour)
	}
	return k, nil
}

// newest вызывается под блокировкой.
func (s *Store) newest(st Status) (SigningKey, bool) {
	var (
		best  SigningKey
		found bool
	)
	for _, k := range s.keys {
		if k.Status != st {
			continue
		}
		if !found || k.CreatedAt.After(best.CreatedAt) ||
			(k.CreatedAt.Equal(best.CreatedAt) && k.KID > best.KID) {
			best = k
			found = true
		}
	}
	return best, found
}

// sorted вызывается под блокировкой.
func (s *Store) sorted() []SigningKey {
	out := make([]SigningKey, 0, len(s.keys))
	for _, k := range s.keys {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].KID < out[j].KID
	})
	return out
}
