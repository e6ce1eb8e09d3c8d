package security

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/queryhub/QueryHub/internal/pkg/cache"
)

const (
	mfaCodeKeyPrefix = "mfa:code:"
	MFACodeTTL       = 10 * time.Minute
)

var ErrMFACodeMismatch = errors.New("mfa code invalid or expired")

// IssueMFACode generates a 6-digit one-time code for a user and stores it in
// Redis with a short TTL. Issuing a new code replaces any pending one.
func IssueMFACode(userID uint) (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	code := fmt.Sprintf("%06d", n.Int64())

	key := fmt.Sprintf("%s%d", mfaCodeKeyPrefix, userID)
	if err := cache.Set(key, code, MFACodeTTL); err != nil {
		return "", err
	}
	return code, nil
}

// VerifyMFACode checks a submitted code against the pending one and consumes
// it on success. A second verification with the same code fails.
func VerifyMFACode(userID uint, code string) error {
	key := fmt.Sprintf("%s%d", mfaCodeKeyPrefix, userID)
	stored, err := cache.Get(key)
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrMFACodeMismatch
		}
		return err
	}
	if stored == "" || stored != code {
		return ErrMFACodeMismatch
	}
	return cache.Delete(key)
}
