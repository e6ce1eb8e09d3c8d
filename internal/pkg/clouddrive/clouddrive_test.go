package clouddrive

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/queryhub/QueryHub/app/models"
)

func TestForProvider(t *testing.T) {
	for _, provider := range []string{
		models.CloudProviderGoogle,
		models.CloudProviderDropbox,
		models.CloudProviderMicrosoft,
	} {
		drive, err := ForProvider(provider)
		assert.NoError(t, err, provider)
		assert.NotNil(t, drive, provider)
	}

	_, err := ForProvider("box")
	assert.ErrorIs(t, err, ErrUnknownProvider)
}

func TestGoogleDriveListFiles(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer token-1", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"files": [
			{"id": "f1", "name": "notes.txt", "mimeType": "text/plain", "size": "42"},
			{"id": "f2", "name": "doc", "mimeType": "application/vnd.google-apps.document"}
		]}`))
	}))
	defer server.Close()

	drive := &GoogleDrive{baseURL: server.URL, client: server.Client()}

	files, err := drive.ListFiles(context.Background(), "token-1")
	assert.NoError(t, err)
	assert.Len(t, files, 2)
	assert.Equal(t, "f1", files[0].ID)
	assert.Equal(t, int64(42), files[0].Size)
}

func TestDropboxListSkipsFolders(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"entries": [
			{".tag": "folder", "id": "d1", "name": "stuff"},
			{".tag": "file", "id": "id:abc", "name": "readme.md", "size": 10}
		]}`))
	}))
	defer server.Close()

	drive := &Dropbox{apiURL: server.URL, contentURL: server.URL, client: server.Client()}

	files, err := drive.ListFiles(context.Background(), "token-1")
	assert.NoError(t, err)
	assert.Len(t, files, 1)
	assert.Equal(t, "id:abc", files[0].ID)
}

func TestDropboxDownload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.Header.Get("Dropbox-API-Arg"), "id:abc")
		_, _ = w.Write([]byte("file body"))
	}))
	defer server.Close()

	drive := &Dropbox{apiURL: server.URL, contentURL: server.URL, client: server.Client()}

	data, err := drive.DownloadFile(context.Background(), "token-1", "id:abc")
	assert.NoError(t, err)
	assert.Equal(t, "file body", string(data))
}

func TestGraphListSkipsFolders(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"value": [
			{"id": "i1", "name": "folder"},
			{"id": "i2", "name": "plan.txt", "size": 7, "file": {"mimeType": "text/plain"}}
		]}`))
	}))
	defer server.Close()

	drive := &GraphDrive{baseURL: server.URL, client: server.Client()}

	files, err := drive.ListFiles(context.Background(), "token-1")
	assert.NoError(t, err)
	assert.Len(t, files, 1)
	assert.Equal(t, "i2", files[0].ID)
}

func TestUpstreamErrorIncludesStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error": "expired_access_token"}`))
	}))
	defer server.Close()

	drive := &Dropbox{apiURL: server.URL, contentURL: server.URL, client: server.Client()}

	_, err := drive.ListFiles(context.Background(), "stale")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "401")
	assert.Contains(t, err.Error(), "expired_access_token")
}

func TestReadBoundedRejectsOversize(t *testing.T) {
	big := strings.NewReader(strings.Repeat("a", MaxFileBytes+1))
	_, err := readBounded(big)
	assert.Error(t, err)
}
