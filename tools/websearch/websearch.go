package websearch

import (
	"context"
	"time"

	"github.com/stackai/search-relay/tools/websearch/serpapi"
)

// Searcher issues one search request and returns the provider's raw
// field bundle. Callers treat any error as "provider unavailable" and
// fall back to the mock source.
type Searcher interface {
	Search(ctx context.Context, query string, num int, location string) (map[string]interface{}, error)
}

type Provider string

const (
	SerpAPIProvider Provider = "serpapi"
)

var ErrUnsupportedProvider = &Error{"unsupported provider"}

type Error struct{ Msg string }

func (e *Error) Error() string { return e.Msg }

func NewSearcher(provider Provider, apiKey string, timeout time.Duration) (Searcher, error) {
	switch provider {
	case SerpAPIProvider:
		return serpapi.NewSearch(apiKey, timeout), nil
	default:
		return nil, ErrUnsupportedProvider
	}
}
