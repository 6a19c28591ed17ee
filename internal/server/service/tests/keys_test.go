package tests

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	crypt "github.com/IvanChernomyrdin/go-jwks-server/internal/server/crypto"
	"github.com/IvanChernomyrdin/go-jwks-server/internal/server/keystore"
	"github.com/IvanChernomyrdin/go-jwks-server/internal/server/metrics"
	"github.com/IvanChernomyrdin/go-jwks-server/internal/server/models"
	"github.com/IvanChernomyrdin/go-jwks-server/internal/server/service"
	"github.com/IvanChernomyrdin/go-jwks-server/internal/server/service/mocks"
	serr "github.com/IvanChernomyrdin/go-jwks-server/internal/shared/errors"
	"github.com/IvanChernomyrdin/go-jwks-server/internal/shared/logger"
)

// memKeys запоминает последнюю версию каждого сохранённого ключа.
type memKeys struct {
	mu    sync.Mutex
	saved map[string]models.StoredKey
	saves int
}

func (m *memKeys) save(_ context.Context, k models.StoredKey) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saved == nil {
		m.saved = map[string]models.StoredKey{}
	}
	m.saved[k.KID] = k
	m.saves++
	return nil
}

func newKeysService(t *testing.T, rotateEvery time.Duration) (*service.KeysService, *keystore.Store, *mocks.MockKeysRepo, *crypt.KeySealer, *metrics.Metrics) {
	t.Helper()
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockKeysRepo(ctrl)
	sealer, err := crypt.NewKeySealer("not-my-key")
	require.NoError(t, err)
	store := keystore.New(keystore.WithBits(1024))
	m := metrics.New()
	return service.NewKeysService(store, repo, sealer, rotateEvery, m, logger.NewHTTPLogger()), store, repo, sealer, m
}

// Пустая БД: создаются активный и просроченный ключи и сохраняются зашифрованными
func TestKeysService_Bootstrap_Fresh(t *testing.T) {
	svc, store, repo, sealer, _ := newKeysService(t, 0)
	mem := &memKeys{}

	repo.EXPECT().List(gomock.Any()).Return(nil, nil)
	repo.EXPECT().Save(gomock.Any(), gomock.Any()).DoAndReturn(mem.save).Times(2)

	require.NoError(t, svc.Bootstrap(context.Background()))

	active, err := store.ActiveKey()
	require.NoError(t, err)
	_, err = store.ExpiredKey()
	require.NoError(t, err)
	require.Len(t, store.Keys(), 2)

	saved := mem.saved[active.KID]
	require.Equal(t, "active", saved.Status)
	require.Equal(t, keystore.AlgRS256, saved.Algorithm)

	priv, err := sealer.Open(saved.PrivateEnc)
	require.NoError(t, err)
	require.True(t, active.Private.Equal(priv))
}

// Ключи из БД поднимаются как есть, новые не создаются, blob не перешифровывается
func TestKeysService_Bootstrap_LoadsStored(t *testing.T) {
	svc, store, repo, sealer, _ := newKeysService(t, 0)

	donor := keystore.New(keystore.WithBits(1024))
	require.NoError(t, donor.Bootstrap())

	var stored []models.StoredKey
	for _, k := range donor.Keys() {
		enc, err := sealer.Seal(k.Private)
		require.NoError(t, err)
		stored = append(stored, models.StoredKey{
			KID: k.KID, Algorithm: k.Algorithm, Status: string(k.Status),
			PrivateEnc: enc, CreatedAt: k.CreatedAt, ExpiresAt: k.ExpiresAt,
		})
	}
	byKID := map[string][]byte{}
	for _, s := range stored {
		byKID[s.KID] = s.PrivateEnc
	}

	repo.EXPECT().List(gomock.Any()).Return(stored, nil)
	repo.EXPECT().Save(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, k models.StoredKey) error {
			require.Equal(t, byKID[k.KID], k.PrivateEnc)
			return nil
		}).Times(2)

	require.NoError(t, svc.Bootstrap(context.Background()))
	require.Len(t, store.Keys(), 2)

	wantActive, _ := donor.ActiveKey()
	gotActive, err := store.ActiveKey()
	require.NoError(t, err)
	require.Equal(t, wantActive.KID, gotActive.KID)
}

func TestKeysService_Bootstrap_WrongSecret(t *testing.T) {
	svc, _, repo, _, _ := newKeysService(t, 0)

	other, _ := crypt.NewKeySealer("another-key")
	donor := keystore.New(keystore.WithBits(1024))
	k, err := donor.Rotate()
	require.NoError(t, err)
	enc, err := other.Seal(k.Private)
	require.NoError(t, err)

	repo.EXPECT().List(gomock.Any()).Return([]models.StoredKey{{
		KID: k.KID, Algorithm: "RS256", Status: "active", PrivateEnc: enc,
	}}, nil)

	err = svc.Bootstrap(context.Background())
	require.ErrorIs(t, err, crypt.ErrAuthFailed)
}

func TestKeysService_Bootstrap_ListFailure(t *testing.T) {
	svc, _, repo, _, _ := newKeysService(t, 0)
	repo.EXPECT().List(gomock.Any()).Return(nil, serr.ErrStorage)

	require.ErrorIs(t, svc.Bootstrap(context.Background()), serr.ErrStorage)
}

// Ротация: новый активный ключ, старый сохранён со статусом expired
func TestKeysService_Rotate(t *testing.T) {
	svc, store, repo, _, m := newKeysService(t, 0)
	mem := &memKeys{}

	repo.EXPECT().List(gomock.Any()).Return(nil, nil)
	repo.EXPECT().Save(gomock.Any(), gomock.Any()).DoAndReturn(mem.save).AnyTimes()

	require.NoError(t, svc.Bootstrap(context.Background()))
	old, _ := store.ActiveKey()

	fresh, err := svc.Rotate(context.Background())
	require.NoError(t, err)
	require.NotEqual(t, old.KID, fresh.KID)

	require.Equal(t, "expired", mem.saved[old.KID].Status)
	require.Equal(t, "active", mem.saved[fresh.KID].Status)
	require.Len(t, mem.saved, 3)
	require.Equal(t, 1.0, counterValue(t, m.Registry(), "jwks_key_rotations_total", ""))
}

func TestKeysService_Run_RotatesOnTicker(t *testing.T) {
	svc, store, repo, _, _ := newKeysService(t, 20*time.Millisecond)
	mem := &memKeys{}

	repo.EXPECT().List(gomock.Any()).Return(nil, nil)
	repo.EXPECT().Save(gomock.Any(), gomock.Any()).DoAndReturn(mem.save).AnyTimes()
	require.NoError(t, svc.Bootstrap(context.Background()))
	first, _ := store.ActiveKey()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx) }()

	require.Eventually(t, func() bool {
		k, err := store.ActiveKey()
		return err == nil && k.KID != first.KID
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
}

func TestKeysService_Run_DisabledWaitsForCancel(t *testing.T) {
	svc, _, _, _, _ := newKeysService(t, 0)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return")
	}
}

// Новый ключ не начинает подписывать, пока не сохранён в БД
func TestKeysService_Rotate_SaveFailureKeepsOldKey(t *testing.T) {
	svc, store, repo, _, m := newKeysService(t, 0)
	mem := &memKeys{}

	repo.EXPECT().List(gomock.Any()).Return(nil, nil)
	repo.EXPECT().Save(gomock.Any(), gomock.Any()).DoAndReturn(mem.save).Times(2)
	require.NoError(t, svc.Bootstrap(context.Background()))
	old, _ := store.ActiveKey()

	repo.EXPECT().Save(gomock.Any(), gomock.Any()).Return(serr.ErrStorage)

	_, err := svc.Rotate(context.Background())
	require.ErrorIs(t, err, serr.ErrStorage)

	active, err := store.ActiveKey()
	require.NoError(t, err)
	require.Equal(t, old.KID, active.KID)
	require.Len(t, store.Keys(), 2)
	require.Equal(t, 0.0, counterValue(t, m.Registry(), "jwks_key_rotations_total", ""))
}

// Новый ключ записан, не удалось обновить статус старого: ротация всё равно состоялась
func TestKeysService_Rotate_DemotionPersistFailure(t *testing.T) {
	svc, store, repo, _, _ := newKeysService(t, 0)
	mem := &memKeys{}

	repo.EXPECT().List(gomock.Any()).Return(nil, nil)
	repo.EXPECT().Save(gomock.Any(), gomock.Any()).DoAndReturn(mem.save).Times(2)
	require.NoError(t, svc.Bootstrap(context.Background()))
	old, _ := store.ActiveKey()

	gomock.InOrder(
		repo.EXPECT().Save(gomock.Any(), gomock.Any()).
			DoAndReturn(func(ctx context.Context, k models.StoredKey) error {
				require.Equal(t, "active", k.Status)
				require.NotEqual(t, old.KID, k.KID)
				return mem.save(ctx, k)
			}),
		repo.EXPECT().Save(gomock.Any(), gomock.Any()).Return(serr.ErrStorage),
	)

	fresh, err := svc.Rotate(context.Background())
	require.NoError(t, err)
	require.Contains(t, mem.saved, fresh.KID)

	active, _ := store.ActiveKey()
	require.Equal(t, fresh.KID, active.KID)
}

// В БД остались два активных ключа: после загрузки активен только самый свежий
func TestKeysService_Bootstrap_DemotesStaleActive(t *testing.T) {
	svc, store, repo, sealer, _ := newKeysService(t, 0)
	mem := &memKeys{}

	now := time.Now()
	var stored []models.StoredKey
	for i, created := range []time.Time{now.Add(-2 * time.Hour), now.Add(-time.Minute)} {
		k, err := rsa.GenerateKey(rand.Reader, 1024)
		require.NoError(t, err)
		enc, err := sealer.Seal(k)
		require.NoError(t, err)
		stored = append(stored, models.StoredKey{
			KID: fmt.Sprintf("kid-%d", i), Algorithm: "RS256", Status: "active",
			PrivateEnc: enc, CreatedAt: created, ExpiresAt: now.Add(time.Hour),
		})
	}

	repo.EXPECT().List(gomock.Any()).Return(stored, nil)
	repo.EXPECT().Save(gomock.Any(), gomock.Any()).DoAndReturn(mem.save).AnyTimes()

	require.NoError(t, svc.Bootstrap(context.Background()))

	active, err := store.ActiveKey()
	require.NoError(t, err)
	require.Equal(t, "kid-1", active.KID)

	pub := store.AllPublicKeys()
	require.Len(t, pub, 1)
	require.Equal(t, "kid-1", pub[0].KID)
	require.Equal(t, "expired", mem.saved["kid-0"].Status)
}
