package crypto

import (
	"encoding/json"
	"fmt"

	jose "github.com/go-jose/go-jose/v4"

	"github.com/IvanChernomyrdin/go-jwks-server/internal/server/keystore"
)

// BuildJWKS рендерит публичные ключи в JSON документ {"keys":[...]}.
//
// Для каждого ключа пишутся kty=RSA, kid, use=sig, alg, n, e.
// Пустой список ключей рендерится как [] (не null).
func BuildJWKS(keys []keystore.PublicKey) ([]byte, error) {
	set := jose.JSONWebKeySet{Keys: make([]jose.JSONWebKey, 0, len(keys))}

	for _, k := range keys {
		if k.Key == nil {
			continue
		}
		set.Keys = append(set.Keys, jose.JSONWebKey{
			Key:       k.Key,
			KeyID:     k.KID,
			Algorithm: k.Algorithm,
			Use:       "sig",
		})
	}

	b, err := json.Marshal(set)
	if err != nil {
		return nil, fmt.Errorf("marshal jwks: %w", err)
	}
	return b, nil
}
