// Шифрование приватных ключей перед записью в БД
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"errors"
	"fmt"

	"golang.org/x/crypto/argon2"
)

var (
	// ErrInvalidFormat - blob не начинается с сигнатуры или слишком короткий.
	ErrInvalidFormat = errors.New("invalid sealed key format")
	// ErrAuthFailed - неверный ключ шифрования или данные повреждены.
	ErrAuthFailed = errors.New("decryption failed (wrong key or corrupted data)")
)

const (
	// sealMagic - сигнатура формата: "jk1" + salt(16) + nonce(12) + ciphertext.
	sealMagic   = "jk1"
	sealSaltLen = 16
	sealNonce   = 12
	sealKeyLen  = 32
)

// KeySealer шифрует приватные RSA ключи AES-256-GCM.
// Ключ AES выводится через argon2id из секрета и случайной соли на каждый blob.
type KeySealer struct {
	secret []byte
}

// NewKeySealer создаёт KeySealer. Пустой секрет недопустим.
func NewKeySealer(secret string) (*KeySealer, error) {
	if secret == "" {
		return nil, errors.New("empty encryption key")
	}
	return &KeySealer{secret: []byte(secret)}, nil
}

func (s *KeySealer) derive(salt []byte) []byte {
	return argon2.IDKey(s.secret, salt, 1, 32*1024, 2, sealKeyLen)
}

// Seal сериализует ключ в PKCS#1 DER и шифрует его.
func (s *KeySealer) Seal(key *rsa.PrivateKey) ([]byte, error) {
	if key == nil {
		return nil, errors.New("nil private key")
	}
	plain := x509.MarshalPKCS1PrivateKey(key)

	salt := make([]byte, sealSaltLen)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("rand salt: %w", err)
	}
	gcm, err := newGCM(s.derive(salt))
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, sealNonce)
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("rand nonce: %w", err)
	}

	ciphertext := gcm.Seal(nil, nonce, plain, []byte(sealMagic))

	out := make([]byte, 0, len(sealMagic)+len(salt)+len(nonce)+len(ciphertext))
	out = append(out, sealMagic...)
	out = append(out, salt...)
	out = append(out, nonce...)
	out = append(out, ciphertext...)
	return out, nil
}

// Open расшифровывает blob, созданный Seal, и разбирает ключ.
func (s *KeySealer) Open(blob []byte) (*rsa.PrivateKey, error) {
	head := len(sealMagic) + sealSaltLen + sealNonce
	if len(blob) <= head || string(blob[:len(sealMagic)]) != sealMagic {
		return nil, ErrInvalidFormat
	}
	salt := blob[len(sealMagic) : len(sealMagic)+sealSaltLen]
	nonce := blob[len(sealMagic)+sealSaltLen : head]

	gcm, err := newGCM(s.derive(salt))
	if err != nil {
		return nil, err
	}
	plain, err := gcm.Open(nil, nonce, blob[head:], []byte(sealMagic))
	if err != nil {
		return nil, ErrAuthFailed
	}

	key, err := x509.ParsePKCS1PrivateKey(plain)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	return key, nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("aes: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("gcm: %w", err)
	}
	return gcm, nil
}
