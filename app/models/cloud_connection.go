package models

import (
	"time"

	"github.com/queryhub/QueryHub/internal/pkg/security"
)

// Cloud storage provider constants. Provider names follow the goth provider
// registry so the OAuth callback can be matched directly.
const (
	CloudProviderGoogle    = "google"
	CloudProviderDropbox   = "dropbox"
	CloudProviderMicrosoft = "microsoftonline"
)

// CloudConnection stores an external cloud storage identity linked to a user,
// including the OAuth token material needed to list and fetch files.
type CloudConnection struct {
	ID             uint       `gorm:"primaryKey" json:"id"`
	UserID         uint       `gorm:"index" json:"user_id"`
	Provider       string     `gorm:"index:provider_uid,unique;type:varchar(50)" json:"provider"`
	ProviderUserID string     `gorm:"index:provider_uid,unique;type:varchar(191)" json:"provider_user_id"`
	Email          string     `gorm:"type:varchar(200);default:''" json:"email"`
	AccessToken    string     `gorm:"type:text" json:"-"`
	RefreshToken   string     `gorm:"type:text" json:"-"`
	ExpiresAt      *time.Time `gorm:"type:timestamp;default:null" json:"expires_at,omitempty"`
	CreatedAt      time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// SetTokens encrypts the OAuth token material before storage. Tokens are
// never written as plaintext columns.
func (c *CloudConnection) SetTokens(access, refresh string) error {
	enc, err := security.EncryptSecret(access)
	if err != nil {
		return err
	}
	c.AccessToken = enc

	enc, err = security.EncryptSecret(refresh)
	if err != nil {
		return err
	}
	c.RefreshToken = enc
	return nil
}

// PlainAccessToken decrypts the stored access token for use against the
// provider API.
func (c *CloudConnection) PlainAccessToken() (string, error) {
	return security.DecryptSecret(c.AccessToken)
}

// PlainRefreshToken decrypts the stored refresh token.
func (c *CloudConnection) PlainRefreshToken() (string, error) {
	return security.DecryptSecret(c.RefreshToken)
}

// TokenExpired reports whether the stored access token is past its expiry.
func (c *CloudConnection) TokenExpired() bool {
	return c.ExpiresAt != nil && time.Now().After(*c.ExpiresAt)
}
