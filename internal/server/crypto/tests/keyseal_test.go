package tests

import (
	"crypto/rand"
	"crypto/rsa"
	"testing"

	"github.com/stretchr/testify/require"

	crypt "github.com/IvanChernomyrdin/go-jwks-server/internal/server/crypto"
)

func testKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	k, err := rsa.GenerateKey(rand.Reader, 1024)
	require.NoError(t, err)
	return k
}

func TestKeySealer_RoundTrip(t *testing.T) {
	s, err := crypt.NewKeySealer("not-my-key")
	require.NoError(t, err)

	key := testKey(t)
	blob, err := s.Seal(key)
	require.NoError(t, err)
	require.Equal(t, "jk1", string(blob[:3]))

	got, err := s.Open(blob)
	require.NoError(t, err)
	require.True(t, key.Equal(got))
}

func TestKeySealer_DifferentBlobsForSameKey(t *testing.T) {
	s, _ := crypt.NewKeySealer("not-my-key")
	key := testKey(t)

	a, err := s.Seal(key)
	require.NoError(t, err)
	b, err := s.Seal(key)
	require.NoError(t, err)
	require.NotEqual(t, a, b)
}

func TestKeySealer_WrongSecret(t *testing.T) {
	s1, _ := crypt.NewKeySealer("secret-1")
	s2, _ := crypt.NewKeySealer("secret-2")

	blob, err := s1.Seal(testKey(t))
	require.NoError(t, err)

	_, err = s2.Open(blob)
	require.ErrorIs(t, err, crypt.ErrAuthFailed)
}

func TestKeySealer_Tampered(t *testing.T) {
	s, _ := crypt.NewKeySealer("not-my-key")
	blob, err := s.Seal(testKey(t))
	require.NoError(t, err)

	blob[len(blob)-1] ^= 0xff
	_, err = s.Open(blob)
	require.ErrorIs(t, err, crypt.ErrAuthFailed)
}

func TestKeySealer_InvalidFormat(t *testing.T) {
	s, _ := crypt.NewKeySealer("not-my-key")

	_, err := s.Open([]byte("short"))
	require.ErrorIs(t, err, crypt.ErrInvalidFormat)

	_, err = s.Open(append([]byte("xx1"), make([]byte, 64)...))
	require.ErrorIs(t, err, crypt.ErrInvalidFormat)
}

func TestKeySealer_EmptySecret(t *testing.T) {
	_, err := crypt.NewKeySealer("")
	require.Error(t, err)

	s, _ := crypt.NewKeySealer("x")
	_, err = s.Seal(nil)
	require.Error(t, err)
}
