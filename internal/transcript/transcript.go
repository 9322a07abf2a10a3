// Package transcript retrieves the English caption track for a video
// and flattens it to plain text.
//
// Captions being administratively disabled is a common, expected state
// and is modeled as a normal outcome, not an error: the Transcript
// result carries a Disabled flag and renders a human-readable sentinel.
package transcript

import (
	"bytes"
	"context"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"html"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/solivaga/ytfetch/internal/httpclient"
)

const (
	playerURL = "https://www.youtube.com/youtubei/v1/player"

	// ANDROID client context; the /player endpoint serves caption track
	// listings to it without a session.
	androidVersion   = "20.10.38"
	androidUserAgent = "com.google.android.youtube/" + androidVersion + " (Linux; U; Android 11) gzip"
)

// Transcript is the flattened caption text for one video, or the
// disabled marker when the platform forbids captions for it.
type Transcript struct {
	VideoID  string
	Text     string
	Disabled bool
}

// String renders the transcript text, or the disabled sentinel.
func (t Transcript) String() string {
	if t.Disabled {
		return "Transcripts are disabled for video ID " + t.VideoID
	}
	return t.Text
}

type playerRequest struct {
	VideoID        string        `json:"videoId"`
	Context        playerContext `json:"context"`
	RacyCheckOk    bool          `json:"racyCheckOk"`
	ContentCheckOk bool          `json:"contentCheckOk"`
}

type playerContext struct {
	Client playerClient `json:"client"`
}

type playerClient struct {
	ClientName        string `json:"clientName"`
	ClientVersion     string `json:"clientVersion"`
	AndroidSdkVersion int    `json:"androidSdkVersion"`
	Hl                string `json:"hl"`
	Gl                string `json:"gl"`
}

type playerResponse struct {
	Captions *struct {
		PlayerCaptionsTracklistRenderer struct {
			CaptionTracks []captionTrack `json:"captionTracks"`
		} `json:"playerCaptionsTracklistRenderer"`
	} `json:"captions"`
	PlayabilityStatus *struct {
		Status string `json:"status"`
		Reason string `json:"reason"`
	} `json:"playabilityStatus"`
}

type captionTrack struct {
	BaseURL      string `json:"baseUrl"`
	LanguageCode string `json:"languageCode"`
	Kind         string `json:"kind"` // "asr" = auto-generated
}

type timedText struct {
	Lines []timedLine `xml:"text"`
}

type timedLine struct {
	Text string `xml:",chardata"`
}

// Fetcher retrieves and flattens caption tracks.
type Fetcher struct {
	HTTPClient *http.Client
	PlayerURL  string // overridable for tests
}

// NewFetcher returns a Fetcher with the shared HTTP client.
func NewFetcher() *Fetcher {
	return &Fetcher{
		HTTPClient: httpclient.New(httpclient.DefaultTimeout),
		PlayerURL:  playerURL,
	}
}

// FetchEnglish returns the flattened English transcript for a video.
// Disabled captions yield a Transcript with Disabled set and a nil
// error; transport and parse failures are returned as errors.
func (f *Fetcher) FetchEnglish(ctx context.Context, videoID string) (Transcript, error) {
	slog.Info("fetching English transcript", slog.String("id", videoID))

	tracks, err := f.captionTracks(ctx, videoID)
	if err != nil {
		return Transcript{}, err
	}
	if len(tracks) == 0 {
		slog.Info("transcripts disabled", slog.String("id", videoID))
		return Transcript{VideoID: videoID, Disabled: true}, nil
	}

	track, ok := pickEnglishTrack(tracks)
	if !ok {
		return Transcript{}, fmt.Errorf("no English caption track for video ID %s", videoID)
	}

	text, err := f.fetchTimedText(ctx, track.BaseURL)
	if err != nil {
		return Transcript{}, err
	}
	return Transcript{VideoID: videoID, Text: text}, nil
}

// captionTracks lists the caption tracks the player response advertises.
// An empty list means captions are disabled for the video.
func (f *Fetcher) captionTracks(ctx context.Context, videoID string) ([]captionTrack, error) {
	payload, err := json.Marshal(playerRequest{
		VideoID: videoID,
		Context: playerContext{
			Client: playerClient{
				ClientName:        "ANDROID",
				ClientVersion:     androidVersion,
				AndroidSdkVersion: 30,
				Hl:                "en",
				Gl:                "US",
			},
		},
		RacyCheckOk:    true,
		ContentCheckOk: true,
	})
	if err != nil {
		return nil, err
	}

	endpoint := f.PlayerURL
	if endpoint == "" {
		endpoint = playerURL
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint+"?prettyPrint=false", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", androidUserAgent)

	resp, err := f.client().Do(req)
	if err != nil {
		return nil, fmt.Errorf("player request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return nil, fmt.Errorf("player request: HTTP %d: %s", resp.StatusCode, snippet)
	}

	var decoded playerResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode player response: %w", err)
	}

	if decoded.PlayabilityStatus != nil && decoded.PlayabilityStatus.Status != "" && decoded.PlayabilityStatus.Status != "OK" {
		return nil, fmt.Errorf("video not playable: %s", playabilityDetail(decoded))
	}
	if decoded.Captions == nil {
		return nil, nil
	}
	return decoded.Captions.PlayerCaptionsTracklistRenderer.CaptionTracks, nil
}

func playabilityDetail(resp playerResponse) string {
	if resp.PlayabilityStatus.Reason != "" {
		return resp.PlayabilityStatus.Reason
	}
	return resp.PlayabilityStatus.Status
}

// pickEnglishTrack prefers a manual English track over an auto-generated one.
func pickEnglishTrack(tracks []captionTrack) (captionTrack, bool) {
	for _, t := range tracks {
		if strings.HasPrefix(t.LanguageCode, "en") && t.Kind != "asr" {
			return t, true
		}
	}
	for _, t := range tracks {
		if strings.HasPrefix(t.LanguageCode, "en") {
			return t, true
		}
	}
	return captionTrack{}, false
}

// fetchTimedText fetches a timedtext XML caption URL and flattens the
// timed segments into continuous plain text.
func (f *Fetcher) fetchTimedText(ctx context.Context, baseURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL, nil)
	if err != nil {
		return "", err
	}

	resp, err := f.client().Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch timedtext: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch timedtext: HTTP %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 2*1024*1024))
	if err != nil {
		return "", err
	}
	return flattenTimedText(body)
}

func flattenTimedText(body []byte) (string, error) {
	var tt timedText
	if err := xml.Unmarshal(body, &tt); err != nil {
		return "", fmt.Errorf("parse timedtext XML: %w", err)
	}
	if len(tt.Lines) == 0 {
		return "", errors.New("empty caption track")
	}

	var sb strings.Builder
	for _, line := range tt.Lines {
		text := strings.TrimSpace(html.UnescapeString(line.Text))
		if text == "" {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(text)
	}
	return sb.String(), nil
}

func (f *Fetcher) client() *http.Client {
	if f.HTTPClient != nil {
		return f.HTTPClient
	}
	return httpclient.New(httpclient.DefaultTimeout)
}
