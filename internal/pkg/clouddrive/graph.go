package clouddrive

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
)

const graphBaseURL = "https://graph.microsoft.com/v1.0"

// GraphDrive reads OneDrive files through the Microsoft Graph API.
type GraphDrive struct {
	baseURL string
	client  *http.Client
}

func NewGraphDrive() *GraphDrive {
	return &GraphDrive{baseURL: graphBaseURL, client: newHTTPClient()}
}

type graphChildrenResponse struct {
	Value []struct {
		ID   string `json:"id"`
		Name string `json:"name"`
		Size int64  `json:"size"`
		File *struct {
			MimeType string `json:"mimeType"`
		} `json:"file"`
	} `json:"value"`
}

func (g *GraphDrive) ListFiles(ctx context.Context, accessToken string) ([]File, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"/me/drive/root/children?$top=100", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("graph list failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, upstreamError("microsoft graph", resp)
	}

	var list graphChildrenResponse
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		return nil, fmt.Errorf("decode file list: %w", err)
	}

	files := make([]File, 0, len(list.Value))
	for _, item := range list.Value {
		// Folders carry no file facet.
		if item.File == nil {
			continue
		}
		files = append(files, File{ID: item.ID, Name: item.Name, MimeType: item.File.MimeType, Size: item.Size})
	}
	return files, nil
}

func (g *GraphDrive) DownloadFile(ctx context.Context, accessToken, fileID string) ([]byte, error) {
	endpoint := g.baseURL + "/me/drive/items/" + url.PathEscape(fileID) + "/content"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("graph download failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, upstreamError("microsoft graph", resp)
	}
	return readBounded(resp.Body)
}
