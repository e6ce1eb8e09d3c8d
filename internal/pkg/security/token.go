package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/queryhub/QueryHub/internal/pkg/env"
)

const TokenValidity = 24 * time.Hour

var ErrInvalidToken = errors.New("invalid token")

// AccessClaims carries the authenticated identity inside a bearer token.
type AccessClaims struct {
	jwt.RegisteredClaims
	UserID uint   `json:"uid"`
	Email  string `json:"email"`
	Role   string `json:"role"`
}

func signingSecret() []byte {
	return []byte(env.GetEnv("JWT_SECRET", ""))
}

// GenerateAccessToken issues a signed HS256 bearer token for a user.
func GenerateAccessToken(userID uint, email, role string) (string, error) {
	secret := signingSecret()
	if len(secret) == 0 {
		return "", errors.New("JWT_SECRET is not set")
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(TokenValidity)),
		},
		UserID: userID,
		Email:  email,
		Role:   role,
	})

	return token.SignedString(secret)
}

// ParseAccessToken verifies a bearer token and returns its claims.
func ParseAccessToken(tokenString string) (*AccessClaims, error) {
	claims := &AccessClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		secret := signingSecret()
		if len(secret) == 0 {
			return nil, errors.New("JWT_SECRET is not set")
		}
		return secret, nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}

	return claims, nil
}
