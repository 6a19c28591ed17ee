package tests

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/IvanChernomyrdin/go-jwks-server/internal/server/keystore"
	"github.com/IvanChernomyrdin/go-jwks-server/internal/server/metrics"
	"github.com/IvanChernomyrdin/go-jwks-server/internal/server/service"
	"github.com/IvanChernomyrdin/go-jwks-server/internal/shared/models"
)

func kids(t *testing.T, doc []byte) []string {
	t.Helper()
	var set models.JWKS
	require.NoError(t, json.Unmarshal(doc, &set))
	out := make([]string, 0, len(set.Keys))
	for _, k := range set.Keys {
		out = append(out, k.Kid)
	}
	return out
}

func TestJWKSService_EmptyStore(t *testing.T) {
	svc := service.NewJWKSService(keystore.New(), time.Minute, metrics.New())

	doc, err := svc.Publish()
	require.NoError(t, err)
	require.JSONEq(t, `{"keys":[]}`, string(doc))
}

// Между ротациями ответ побайтно одинаковый
func TestJWKSService_StableBetweenRotations(t *testing.T) {
	store := keystore.New(keystore.WithBits(1024))
	require.NoError(t, store.Bootstrap())
	m := metrics.New()
	svc := service.NewJWKSService(store, time.Minute, m)

	a, err := svc.Publish()
	require.NoError(t, err)
	b, err := svc.Publish()
	require.NoError(t, err)
	require.Equal(t, a, b)

	active, _ := store.ActiveKey()
	require.Equal(t, []string{active.KID}, kids(t, a))
	require.Equal(t, 2.0, counterValue(t, m.Registry(), "jwks_documents_served_total", ""))
}

// После ротации (через OnChange) документ сразу показывает новый ключ
func TestJWKSService_InvalidatedOnRotation(t *testing.T) {
	store := keystore.New(keystore.WithBits(1024))
	require.NoError(t, store.Bootstrap())
	svc := service.NewJWKSService(store, time.Hour, metrics.New())
	store.OnChange(func(keystore.SigningKey) { svc.Invalidate() })

	before, err := svc.Publish()
	require.NoError(t, err)

	fresh, err := store.Rotate()
	require.NoError(t, err)

	after, err := svc.Publish()
	require.NoError(t, err)
	require.Equal(t, []string{fresh.KID}, kids(t, after))
	require.NotEqual(t, before, after)
}

// Без инвалидации кэш держит старый документ до истечения TTL
func TestJWKSService_CacheTTL(t *testing.T) {
	store := keystore.New(keystore.WithBits(1024))
	require.NoError(t, store.Bootstrap())
	svc := service.NewJWKSService(store, 50*time.Millisecond, metrics.New())

	before, err := svc.Publish()
	require.NoError(t, err)

	_, err = store.Rotate()
	require.NoError(t, err)

	cached, err := svc.Publish()
	require.NoError(t, err)
	require.Equal(t, before, cached)

	time.Sleep(80 * time.Millisecond)
	after, err := svc.Publish()
	require.NoError(t, err)
	require.NotEqual(t, before, after)
}

// rotatingSource на первом вызове отдаёт старый набор ключей,
// а ротация (Invalidate) завершается, пока документ ещё собирается.
type rotatingSource struct {
	svc        *service.JWKSService
	old, fresh []keystore.PublicKey
	calls      int
}

func (r *rotatingSource) AllPublicKeys() []keystore.PublicKey {
	r.calls++
	if r.calls == 1 {
		r.svc.Invalidate()
		return r.old
	}
	return r.fresh
}

// Документ, собранный до ротации, не должен отдаваться после неё
func TestJWKSService_StaleBuildNotServedAfterInvalidate(t *testing.T) {
	store := keystore.New(keystore.WithBits(1024))
	require.NoError(t, store.Bootstrap())
	old := store.AllPublicKeys()
	_, err := store.Rotate()
	require.NoError(t, err)
	fresh := store.AllPublicKeys()

	src := &rotatingSource{old: old, fresh: fresh}
	svc := service.NewJWKSService(src, time.Hour, metrics.New())
	src.svc = svc

	first, err := svc.Publish()
	require.NoError(t, err)
	require.Equal(t, []string{old[0].KID}, kids(t, first))

	second, err := svc.Publish()
	require.NoError(t, err)
	require.Equal(t, []string{fresh[0].KID}, kids(t, second))
	require.Equal(t, 2, src.calls)

	third, err := svc.Publish()
	require.NoError(t, err)
	require.Equal(t, second, third)
	require.Equal(t, 2, src.calls)
}
