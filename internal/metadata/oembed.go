// Package metadata retrieves lightweight embed metadata for a video
// through the public oembed endpoint. No credential is required and
// nothing is cached; every call hits the network.
package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/solivaga/ytfetch/internal/httpclient"
	"github.com/solivaga/ytfetch/internal/jsonwalk"
	"github.com/solivaga/ytfetch/internal/resolver"
)

const oembedBaseURL = "https://www.youtube.com/oembed"

// Record is the decoded oembed response, passed through verbatim.
// Field names are platform-defined; typed accessors cover the common ones.
type Record map[string]any

// Title returns the video title, or "".
func (r Record) Title() string {
	return jsonwalk.GetString(r["title"])
}

// AuthorName returns the channel name, or "".
func (r Record) AuthorName() string {
	return jsonwalk.GetString(r["author_name"])
}

// ThumbnailURL returns the thumbnail URL, or "".
func (r Record) ThumbnailURL() string {
	return jsonwalk.GetString(r["thumbnail_url"])
}

// Fetcher retrieves metadata records.
type Fetcher struct {
	HTTPClient *http.Client
	BaseURL    string // overridable for tests
}

// NewFetcher returns a Fetcher with the shared HTTP client.
func NewFetcher() *Fetcher {
	return &Fetcher{
		HTTPClient: httpclient.New(httpclient.DefaultTimeout),
		BaseURL:    oembedBaseURL,
	}
}

// Fetch returns the metadata record for a video ID. Any network or
// decode failure is logged and yields an empty record, never an error.
func (f *Fetcher) Fetch(ctx context.Context, videoID string) Record {
	slog.Info("fetching video metadata", slog.String("id", videoID))

	record, err := f.fetch(ctx, videoID)
	if err != nil {
		slog.Warn("metadata fetch failed", slog.String("id", videoID), slog.Any("err", err))
		return Record{}
	}
	return record
}

func (f *Fetcher) fetch(ctx context.Context, videoID string) (Record, error) {
	base := f.BaseURL
	if base == "" {
		base = oembedBaseURL
	}
	params := url.Values{}
	params.Set("format", "json")
	params.Set("url", resolver.WatchURLForID(videoID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}

	client := f.HTTPClient
	if client == nil {
		client = httpclient.New(httpclient.DefaultTimeout)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, snippet)
	}

	var record Record
	if err := json.NewDecoder(resp.Body).Decode(&record); err != nil {
		return nil, fmt.Errorf("decode oembed response: %w", err)
	}
	return record, nil
}
