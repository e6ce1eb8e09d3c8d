package clouddrive

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
)

const googleDriveBaseURL = "https://www.googleapis.com/drive/v3"

// GoogleDrive reads files through the Drive v3 REST API. Listing is limited
// to plain text and Google Docs files; Docs are exported as text/plain.
type GoogleDrive struct {
	baseURL string
	client  *http.Client
}

func NewGoogleDrive() *GoogleDrive {
	return &GoogleDrive{baseURL: googleDriveBaseURL, client: newHTTPClient()}
}

type googleFileList struct {
	Files []struct {
		ID       string `json:"id"`
		Name     string `json:"name"`
		MimeType string `json:"mimeType"`
		Size     int64  `json:"size,string,omitempty"`
	} `json:"files"`
}

func (g *GoogleDrive) ListFiles(ctx context.Context, accessToken string) ([]File, error) {
	query := url.Values{}
	query.Set("q", "mimeType='text/plain' or mimeType='application/vnd.google-apps.document'")
	query.Set("fields", "files(id,name,mimeType,size)")
	query.Set("pageSize", "100")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"/files?"+query.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("google drive list failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, upstreamError("google drive", resp)
	}

	var list googleFileList
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		return nil, fmt.Errorf("decode file list: %w", err)
	}

	files := make([]File, 0, len(list.Files))
	for _, f := range list.Files {
		files = append(files, File{ID: f.ID, Name: f.Name, MimeType: f.MimeType, Size: f.Size})
	}
	return files, nil
}

func (g *GoogleDrive) DownloadFile(ctx context.Context, accessToken, fileID string) ([]byte, error) {
	// Native Google Docs need the export endpoint; plain files use alt=media.
	endpoint := g.baseURL + "/files/" + url.PathEscape(fileID) + "?alt=media"

	data, status, err := g.fetch(ctx, accessToken, endpoint)
	if err != nil {
		return nil, err
	}
	if status == http.StatusForbidden || status == http.StatusBadRequest {
		exportURL := g.baseURL + "/files/" + url.PathEscape(fileID) + "/export?mimeType=text%2Fplain"
		data, status, err = g.fetch(ctx, accessToken, exportURL)
		if err != nil {
			return nil, err
		}
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("google drive download failed with status %d", status)
	}
	return data, nil
}

func (g *GoogleDrive) fetch(ctx context.Context, accessToken, endpoint string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("google drive fetch failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, resp.StatusCode, nil
	}
	data, err := readBounded(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, err
	}
	return data, resp.StatusCode, nil
}
