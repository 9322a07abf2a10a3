package resolver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/solivaga/ytfetch/internal/httpclient"
	"github.com/solivaga/ytfetch/internal/jsonwalk"
)

const scrapeSearchURL = "https://www.youtube.com/youtubei/v1/search"

// Fixed WEB client context sent with every unauthenticated search.
// YouTube rejects requests without a plausible client descriptor.
const (
	scrapeClientVersion = "2.20241107.01.00"
	scrapeOriginalURL   = "https://www.youtube.com/results"
)

type scrapeClient struct {
	Hl            string `json:"hl"`
	Gl            string `json:"gl"`
	ClientName    string `json:"clientName"`
	ClientVersion string `json:"clientVersion"`
	OriginalURL   string `json:"originalUrl"`
	Platform      string `json:"platform"`
}

type scrapeContext struct {
	Client scrapeClient `json:"client"`
}

type scrapeRequest struct {
	Context scrapeContext `json:"context"`
	Query   string        `json:"query"`
}

// ScrapeSearch resolves queries by mimicking a browser against the
// internal search endpoint. It needs no credential and yields a ranked
// candidate list, at the cost of depending on the scraped envelope
// shape staying stable.
type ScrapeSearch struct {
	HTTPClient *http.Client
	Endpoint   string // overridable for tests
}

// NewScrapeSearch returns an unauthenticated searcher.
func NewScrapeSearch() *ScrapeSearch {
	return &ScrapeSearch{
		HTTPClient: httpclient.New(httpclient.DefaultTimeout),
		Endpoint:   scrapeSearchURL,
	}
}

// URLs returns the canonical playback URLs of every result item in
// ranking order. Network failures and unrecognized envelopes are
// logged and yield no results, never an error.
func (s *ScrapeSearch) URLs(ctx context.Context, query string) []string {
	slog.Info("resolving video URLs via page-scrape search", slog.String("query", query))

	envelope, err := s.search(ctx, query)
	if err != nil {
		slog.Warn("page-scrape search failed", slog.String("query", query), slog.Any("err", err))
		return nil
	}

	items := resultItems(envelope)
	if items == nil {
		slog.Warn("unrecognized search envelope shape", slog.String("query", query))
		return nil
	}

	urls := make([]string, 0, len(items))
	for _, item := range items {
		if id, ok := jsonwalk.FindString(item, "videoId"); ok {
			urls = append(urls, ShortURLForID(id))
		}
	}
	slog.Info("page-scrape search finished",
		slog.String("query", query), slog.Int("candidates", len(urls)))
	return urls
}

// Resolve adapts the ranked list to the single-result Searcher contract
// by taking the top candidate.
func (s *ScrapeSearch) Resolve(ctx context.Context, query string) Result {
	urls := s.URLs(ctx, query)
	if len(urls) == 0 {
		return NotFound()
	}
	return Found(urls[0])
}

func (s *ScrapeSearch) search(ctx context.Context, query string) (map[string]any, error) {
	payload, err := json.Marshal(scrapeRequest{
		Context: scrapeContext{
			Client: scrapeClient{
				Hl:            "en-IN",
				Gl:            "IN",
				ClientName:    "WEB",
				ClientVersion: scrapeClientVersion,
				OriginalURL:   scrapeOriginalURL,
				Platform:      "DESKTOP",
			},
		},
		Query: query,
	})
	if err != nil {
		return nil, err
	}

	endpoint := s.Endpoint
	if endpoint == "" {
		endpoint = scrapeSearchURL
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint+"?prettyPrint=false", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "*/*")

	client := s.HTTPClient
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

	var envelope map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("decode search envelope: %w", err)
	}
	return envelope, nil
}

// resultItems descends the expected envelope: two-column layout →
// primary contents → section list → first section's item list. A nil
// return means the envelope did not have this shape.
func resultItems(envelope map[string]any) []any {
	sections := jsonwalk.AsSlice(jsonwalk.GetPath(envelope,
		"contents", "twoColumnSearchResultsRenderer", "primaryContents", "sectionListRenderer", "contents"))
	if len(sections) == 0 {
		return nil
	}
	first := jsonwalk.AsMap(sections[0])
	if first == nil {
		return nil
	}
	return jsonwalk.AsSlice(jsonwalk.GetPath(first, "itemSectionRenderer", "contents"))
}
