package resolver

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/solivaga/ytfetch/internal/httpclient"
)

const apiSearchBaseURL = "https://www.googleapis.com/youtube/v3/search"

// apiSearchRetries bounds the transport-level retry budget for the
// authenticated path. No other component retries.
const apiSearchRetries = 5

type apiSearchResponse struct {
	Items []struct {
		ID struct {
			VideoID string `json:"videoId"`
		} `json:"id"`
	} `json:"items"`
}

// APISearch resolves queries through the YouTube Data API v3 using a
// developer key. It asks for exactly one high-definition video result
// and never propagates remote failures as errors: quota, authorization
// and timeout problems all surface as a Failed result.
type APISearch struct {
	Key        string
	HTTPClient *http.Client
	BaseURL    string // overridable for tests
}

// NewAPISearch returns an authenticated searcher with transient-failure
// retry built into its transport.
func NewAPISearch(key string) *APISearch {
	return &APISearch{
		Key:        key,
		HTTPClient: httpclient.NewRetrying(httpclient.DefaultTimeout, apiSearchRetries),
		BaseURL:    apiSearchBaseURL,
	}
}

// Resolve returns the canonical playback URL of the single best match
// for query, NotFound when the API returns no items, or Failed when the
// call itself did not succeed.
func (s *APISearch) Resolve(ctx context.Context, query string) Result {
	slog.Info("resolving video via search API", slog.String("query", query))

	params := url.Values{}
	params.Set("part", "id")
	params.Set("maxResults", "1")
	params.Set("q", query)
	params.Set("type", "video")
	params.Set("videoDefinition", "high")
	params.Set("videoDuration", "any")
	params.Set("key", s.Key)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.BaseURL+"?"+params.Encode(), nil)
	if err != nil {
		return Failed(err)
	}

	resp, err := s.client().Do(req)
	if err != nil {
		slog.Warn("search API request failed", slog.String("query", query), slog.Any("err", err))
		return Failed(fmt.Errorf("search API: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		slog.Warn("search API returned error status",
			slog.String("query", query), slog.Int("status", resp.StatusCode))
		return Failed(fmt.Errorf("search API: HTTP %d: %s", resp.StatusCode, snippet))
	}

	var decoded apiSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return Failed(fmt.Errorf("decode search API response: %w", err))
	}

	if len(decoded.Items) == 0 || decoded.Items[0].ID.VideoID == "" {
		slog.Info("no video found", slog.String("query", query))
		return NotFound()
	}

	id := decoded.Items[0].ID.VideoID
	slog.Info("resolved video", slog.String("query", query), slog.String("id", id))
	return Found(ShortURLForID(id))
}

func (s *APISearch) client() *http.Client {
	if s.HTTPClient != nil {
		return s.HTTPClient
	}
	return httpclient.NewRetrying(httpclient.DefaultTimeout, apiSearchRetries)
}
