// Package search wraps the Serper.dev web-search API.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const defaultBaseURL = "https://google.serper.dev"

// Client queries Serper for organic search results.
type Client struct {
	APIKey  string
	BaseURL string
	HTTPC   *http.Client
}

func NewClient(apiKey string) *Client {
	return &Client{
		APIKey:  apiKey,
		BaseURL: defaultBaseURL,
		HTTPC:   &http.Client{Timeout: 20 * time.Second},
	}
}

// Search returns the top-count organic result URLs for the query, in rank order.
func (c *Client) Search(ctx context.Context, query string, count int) ([]string, error) {
	if count <= 0 {
		count = 2
	}
	base := c.BaseURL
	if base == "" {
		base = defaultBaseURL
	}
	body, _ := json.Marshal(map[string]any{"q": query, "num": count})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, base+"/search", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-API-KEY", c.APIKey)
	req.Header.Set("Content-Type", "application/json")

	httpc := c.HTTPC
	if httpc == nil {
		httpc = http.DefaultClient
	}
	resp, err := httpc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("serper search failed: %s", resp.Status)
	}

	var out struct {
		Organic []struct {
			Link string `json:"link"`
		} `json:"organic"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("serper: bad response: %w", err)
	}
	urls := make([]string, 0, len(out.Organic))
	for _, entry := range out.Organic {
		if entry.Link != "" {
			urls = append(urls, entry.Link)
		}
	}
	if len(urls) > count {
		urls = urls[:count]
	}
	return urls, nil
}
