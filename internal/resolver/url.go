package resolver

import (
	"errors"
	"fmt"
	"regexp"
)

// ErrMalformedReference indicates a URL in which no known YouTube shape
// carrying an 11-character video ID could be recognized. There is no
// fallback for this condition; callers must treat the input as unusable.
var ErrMalformedReference = errors.New("no video ID found in URL")

// videoIDPattern recognizes the canonical, shortened, embed, live and
// shorts URL shapes, on youtube.com, youtube-nocookie.com and youtu.be,
// and captures the 11-character video ID token.
var videoIDPattern = regexp.MustCompile(`(?:youtube(?:-nocookie)?\.com/(?:[^/]+/.+/|(?:v|e(?:mbed)?)/|shorts/|live/|.*[?&]v=)|youtu\.be/)([0-9A-Za-z_-]{11})`)

// ExtractVideoID extracts the video ID from a YouTube URL.
func ExtractVideoID(raw string) (string, error) {
	m := videoIDPattern.FindStringSubmatch(raw)
	if len(m) < 2 {
		return "", fmt.Errorf("%w: %q", ErrMalformedReference, raw)
	}
	return m[1], nil
}

// ShortURLForID returns the canonical youtu.be playback URL for a video ID.
// Every search path resolves to this form.
func ShortURLForID(id string) string {
	if id == "" {
		return ""
	}
	return "https://youtu.be/" + id
}

// WatchURLForID returns the full watch URL for a video ID.
func WatchURLForID(id string) string {
	if id == "" {
		return ""
	}
	return "https://www.youtube.com/watch?v=" + id
}
