package integration

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// maxDocumentBytes bounds how much of a fetched document body is read.
// Anything larger gets cut; downstream prompt assembly trims further by
// token budget anyway.
const maxDocumentBytes = 256 * 1024

// Fetcher provides HTTP access to document hosts (GitHub raw content, wiki
// pages) for downloading reference material.
type Fetcher struct {
	httpClient *http.Client
	token      string
}

// NewFetcher creates an HTTP fetcher for document downloads.
// token may be empty (public sources only, lower rate limits).
func NewFetcher(token string) *Fetcher {
	return &Fetcher{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		token:      token,
	}
}

// Download fetches raw content from a URL.
// GitHub blob URLs are converted to raw.githubusercontent.com URLs first.
func (f *Fetcher) Download(ctx context.Context, rawURL string) (string, error) {
	downloadURL := ConvertToRawURL(rawURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, downloadURL, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	if f.token != "" {
		req.Header.Set("Authorization", "Bearer "+f.token)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch document from %s: %w", downloadURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("document host returned HTTP %d for %s", resp.StatusCode, downloadURL)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentBytes))
	if err != nil {
		return "", fmt.Errorf("read response body: %w", err)
	}

	return string(body), nil
}
