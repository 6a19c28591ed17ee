package tests

import (
	"crypto/rsa"
	"encoding/json"
	"testing"

	jose "github.com/go-jose/go-jose/v4"
	"github.com/stretchr/testify/require"

	crypt "github.com/IvanChernomyrdin/go-jwks-server/internal/server/crypto"
	"github.com/IvanChernomyrdin/go-jwks-server/internal/server/keystore"
	"github.com/IvanChernomyrdin/go-jwks-server/internal/shared/models"
)

func TestBuildJWKS_Empty(t *testing.T) {
	doc, err := crypt.BuildJWKS(nil)
	require.NoError(t, err)
	require.JSONEq(t, `{"keys":[]}`, string(doc))
}

func TestBuildJWKS_RendersRSAKeys(t *testing.T) {
	store := keystore.New(keystore.WithBits(1024))
	require.NoError(t, store.Bootstrap())

	doc, err := crypt.BuildJWKS(store.AllPublicKeys())
	require.NoError(t, err)

	var set models.JWKS
	require.NoError(t, json.Unmarshal(doc, &set))
	require.Len(t, set.Keys, 1)

	active, err := store.ActiveKey()
	require.NoError(t, err)

	k := set.Keys[0]
	require.Equal(t, "RSA", k.Kty)
	require.Equal(t, active.KID, k.Kid)
	require.Equal(t, "sig", k.Use)
	require.Equal(t, "RS256", k.Alg)
	require.NotEmpty(t, k.N)
	require.Equal(t, "AQAB", k.E)

	// документ читается обратно как набор публичных ключей
	var back jose.JSONWebKeySet
	require.NoError(t, json.Unmarshal(doc, &back))
	pub, ok := back.Keys[0].Key.(*rsa.PublicKey)
	require.True(t, ok)
	require.Equal(t, 0, pub.N.Cmp(active.Public.N))
}

func TestBuildJWKS_NoPrivateMaterial(t *testing.T) {
	store := keystore.New(keystore.WithBits(1024))
	require.NoError(t, store.Bootstrap())

	doc, err := crypt.BuildJWKS(store.AllPublicKeys())
	require.NoError(t, err)

	var raw map[string][]map[string]any
	require.NoError(t, json.Unmarshal(doc, &raw))
	for _, k := range raw["keys"] {
		for _, field := range []string{"d", "p", "q", "dp", "dq", "qi"} {
			_, has := k[field]
			require.False(t, has, "private field %s leaked", field)
		}
	}
}

func TestBuildJWKS_SkipsNilKeys(t *testing.T) {
	doc, err := crypt.BuildJWKS([]keystore.PublicKey{{KID: "x"}})
	require.NoError(t, err)
	require.JSONEq(t, `{"keys":[]}`, string(doc))
}
