package service

import (
	"strconv"
	"sync/atomic"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/IvanChernomyrdin/go-jwks-server/internal/server/crypto"
	"github.com/IvanChernomyrdin/go-jwks-server/internal/server/keystore"
	"github.com/IvanChernomyrdin/go-jwks-server/internal/server/metrics"
)

const jwksCacheKeyPrefix = "jwks:"

// PublicKeySource - источник публикуемых ключей (только активные).
type PublicKeySource interface {
	AllPublicKeys() []keystore.PublicKey
}

// JWKSService отдаёт JWKS документ.
//
// Документ кэшируется на короткий TTL и сбрасывается при изменении ключей,
// так что между ротациями ответы побайтно одинаковые.
type JWKSService struct {
	keys    PublicKeySource
	cache   *gocache.Cache
	metrics *metrics.Metrics

	// gen растёт при каждом Invalidate и входит в ключ кэша: документ,
	// собранный до ротации, лежит под старым ключом и больше не читается
	gen atomic.Uint64
}

func NewJWKSService(keys PublicKeySource, ttl time.Duration, m *metrics.Metrics) *JWKSService {
	if ttl <= 0 {
		ttl = 15 * time.Second
	}
	return &JWKSService{
		keys:    keys,
		cache:   gocache.New(ttl, 2*ttl),
		metrics: m,
	}
}

// Publish возвращает JSON {"keys":[...]} с публичными частями активных ключей.
func (s *JWKSService) Publish() ([]byte, error) {
	s.metrics.JWKSRequests.Inc()

	key := jwksCacheKeyPrefix + strconv.FormatUint(s.gen.Load(), 10)
	if v, ok := s.cache.Get(key); ok {
		return v.([]byte), nil
	}

	doc, err := crypto.BuildJWKS(s.keys.AllPublicKeys())
	if err != nil {
		return nil, err
	}
	s.cache.SetDefault(key, doc)
	return doc, nil
}

// Invalidate сбрасывает кэш документа.
func (s *JWKSService) Invalidate() {
	s.gen.Add(1)
	s.cache.Flush()
}
