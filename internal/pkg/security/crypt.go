package security

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/queryhub/QueryHub/internal/pkg/env"
)

// secretPrefix marks values sealed by EncryptSecret so stored rows are
// self-describing and pre-encryption rows can still be read.
const secretPrefix = "enc:v1:"

var ErrNoEncryptionKey = errors.New("TOKEN_ENCRYPTION_KEY is not set")

func encryptionCipher() (cipher.AEAD, error) {
	raw := env.GetEnv("TOKEN_ENCRYPTION_KEY", "")
	if raw == "" {
		return nil, ErrNoEncryptionKey
	}
	key := sha256.Sum256([]byte(raw))
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// EncryptSecret seals a secret with AES-GCM for storage at rest. Empty
// input stays empty so optional token fields do not turn into ciphertext.
func EncryptSecret(plain string) (string, error) {
	if plain == "" {
		return "", nil
	}
	gcm, err := encryptionCipher()
	if err != nil {
		return "", err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}
	sealed := gcm.Seal(nonce, nonce, []byte(plain), nil)
	return secretPrefix + base64.StdEncoding.EncodeToString(sealed), nil
}

// DecryptSecret opens a value produced by EncryptSecret. Values without the
// version prefix predate encryption and are returned unchanged.
func DecryptSecret(stored string) (string, error) {
	if !strings.HasPrefix(stored, secretPrefix) {
		return stored, nil
	}
	gcm, err := encryptionCipher()
	if err != nil {
		return "", err
	}
	sealed, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(stored, secretPrefix))
	if err != nil {
		return "", fmt.Errorf("decode sealed secret: %w", err)
	}
	if len(sealed) < gcm.NonceSize() {
		return "", errors.New("sealed secret too short")
	}
	plain, err := gcm.Open(nil, sealed[:gcm.NonceSize()], sealed[gcm.NonceSize():], nil)
	if err != nil {
		return "", fmt.Errorf("open sealed secret: %w", err)
	}
	return string(plain), nil
}
