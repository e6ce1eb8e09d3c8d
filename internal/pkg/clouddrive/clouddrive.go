// Package clouddrive lists and downloads files from linked cloud storage
// accounts. Each provider is a thin client over its documented HTTP API;
// token acquisition and refresh live in the OAuth layer, the clients here
// only consume an access token.
package clouddrive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/queryhub/QueryHub/app/models"
)

// ErrUnknownProvider is returned for provider names outside the supported set.
var ErrUnknownProvider = errors.New("clouddrive: unknown provider")

// MaxFileBytes caps downloaded file sizes. Larger files are rejected during
// ingestion rather than truncated.
const MaxFileBytes = 5 * 1024 * 1024

// File is one listable entry in a provider's drive.
type File struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	MimeType string `json:"mime_type,omitempty"`
	Size     int64  `json:"size,omitempty"`
}

// Drive lists and fetches files using a caller-supplied access token.
type Drive interface {
	ListFiles(ctx context.Context, accessToken string) ([]File, error)
	DownloadFile(ctx context.Context, accessToken, fileID string) ([]byte, error)
}

// ForProvider returns the drive client for a stored connection's provider.
func ForProvider(provider string) (Drive, error) {
	switch provider {
	case models.CloudProviderGoogle:
		return NewGoogleDrive(), nil
	case models.CloudProviderDropbox:
		return NewDropbox(), nil
	case models.CloudProviderMicrosoft:
		return NewGraphDrive(), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, provider)
	}
}

func newHTTPClient() *http.Client {
	return &http.Client{Timeout: 30 * time.Second}
}

// readBounded reads at most MaxFileBytes and fails on larger bodies.
func readBounded(body io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(body, MaxFileBytes+1))
	if err != nil {
		return nil, err
	}
	if len(data) > MaxFileBytes {
		return nil, fmt.Errorf("file exceeds %d byte limit", MaxFileBytes)
	}
	return data, nil
}

func upstreamError(provider string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
	return fmt.Errorf("%s API error (%d): %s", provider, resp.StatusCode, string(body))
}
