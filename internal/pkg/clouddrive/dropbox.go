package clouddrive

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

const (
	dropboxAPIBaseURL     = "https://api.dropboxapi.com/2"
	dropboxContentBaseURL = "https://content.dropboxapi.com/2"
)

// Dropbox reads files through the Dropbox v2 API. Listing walks the root
// folder non-recursively; downloads address files by path or id.
type Dropbox struct {
	apiURL     string
	contentURL string
	client     *http.Client
}

func NewDropbox() *Dropbox {
	return &Dropbox{apiURL: dropboxAPIBaseURL, contentURL: dropboxContentBaseURL, client: newHTTPClient()}
}

type dropboxListResponse struct {
	Entries []struct {
		Tag  string `json:".tag"`
		ID   string `json:"id"`
		Name string `json:"name"`
		Size int64  `json:"size"`
	} `json:"entries"`
}

func (d *Dropbox) ListFiles(ctx context.Context, accessToken string) ([]File, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.apiURL+"/files/list_folder",
		strings.NewReader(`{"path": "", "recursive": false, "limit": 100}`))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("dropbox list failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, upstreamError("dropbox", resp)
	}

	var list dropboxListResponse
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		return nil, fmt.Errorf("decode file list: %w", err)
	}

	files := make([]File, 0, len(list.Entries))
	for _, entry := range list.Entries {
		if entry.Tag != "file" {
			continue
		}
		files = append(files, File{ID: entry.ID, Name: entry.Name, Size: entry.Size})
	}
	return files, nil
}

func (d *Dropbox) DownloadFile(ctx context.Context, accessToken, fileID string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.contentURL+"/files/download", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	arg, err := json.Marshal(map[string]string{"path": fileID})
	if err != nil {
		return nil, err
	}
	req.Header.Set("Dropbox-API-Arg", string(arg))

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("dropbox download failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, upstreamError("dropbox", resp)
	}
	return readBounded(resp.Body)
}
