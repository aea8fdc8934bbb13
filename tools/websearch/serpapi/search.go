package serpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

const baseURL = "https://serpapi.com/search"

type Search struct {
	ApiKey     string
	baseURL    string
	httpClient *http.Client
}

func NewSearch(apiKey string, timeout time.Duration) Search {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return Search{ApiKey: apiKey, baseURL: baseURL, httpClient: &http.Client{Timeout: timeout}}
}

// Search performs one Google search through SerpAPI and returns the
// decoded payload as-is. Country and language are pinned to us/en so
// results stay consistent across callers.
func (s Search) Search(ctx context.Context, query string, num int, location string) (map[string]interface{}, error) {
	// https://serpapi.com/search-api docs
	if s.ApiKey == "" {
		return nil, fmt.Errorf("serpapi: api key not set")
	}
	params := url.Values{}
	params.Set("engine", "google")
	params.Set("q", query)
	params.Set("api_key", s.ApiKey)
	params.Set("num", strconv.Itoa(num))
	params.Set("google_domain", "google.com")
	params.Set("gl", "us")
	params.Set("hl", "en")
	if location != "" {
		params.Set("location", location)
	}

	req, err := http.NewRequestWithContext(ctx, "GET", s.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("serpapi: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("serpapi: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("serpapi: status %d", resp.StatusCode)
	}

	var raw map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("serpapi: decode response: %w", err)
	}
	// SerpAPI reports quota and parameter problems inside a 200 body.
	if msg, ok := raw["error"]; ok {
		return nil, fmt.Errorf("serpapi: %v", msg)
	}
	return raw, nil
}
