package poller

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"nutrivision/models"
)

// Fetcher returns the most recent record, or nil when the server has none yet.
type Fetcher interface {
	Latest(ctx context.Context) (*models.UploadRecord, error)
}

// HTTPFetcher reads GET /api/latest-analysis from a running server.
type HTTPFetcher struct {
	BaseURL string // e.g. http://localhost:3000
	Client  *http.Client
}

type latestResponse struct {
	Success bool                 `json:"success"`
	Data    *models.UploadRecord `json:"data"`
	Error   string               `json:"error"`
}

// Latest fetches the current record. A cache-busting t=<unix-ms> parameter is
// appended to every request.
func (f HTTPFetcher) Latest(ctx context.Context) (*models.UploadRecord, error) {
	u, err := url.Parse(strings.TrimRight(f.BaseURL, "/") + "/api/latest-analysis")
	if err != nil {
		return nil, fmt.Errorf("bad base url: %w", err)
	}
	q := u.Query()
	q.Set("t", strconv.FormatInt(time.Now().UnixMilli(), 10))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	client := f.Client
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch latest: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("fetch latest: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	var out latestResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode latest: %w", err)
	}
	if !out.Success || out.Data == nil {
		return nil, nil
	}
	return out.Data, nil
}
