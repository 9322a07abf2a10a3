package downloader

import (
	"errors"
	"strings"

	"github.com/kkdai/youtube/v2"
)

var errNoUsableFormat = errors.New("no usable format in stream manifest")

// pickFormat chooses the stream the native engine will pull.
//
// Audio mode takes the highest-bitrate audio-only stream. Video mode
// walks three tiers: progressive mp4 first, then any progressive
// stream, then whatever the manifest offers at the highest resolution.
func pickFormat(video *youtube.Video, mode Mode) (*youtube.Format, error) {
	if mode == ModeAudio {
		return pickAudioFormat(video)
	}
	return pickVideoFormat(video)
}

func pickAudioFormat(video *youtube.Video) (*youtube.Format, error) {
	var best *youtube.Format
	for i := range video.Formats {
		f := &video.Formats[i]
		if f.AudioChannels == 0 || f.Width != 0 || f.Height != 0 {
			continue
		}
		if best == nil || bitrateFor(f) > bitrateFor(best) {
			best = f
		}
	}
	if best == nil {
		return nil, errNoUsableFormat
	}
	return best, nil
}

func pickVideoFormat(video *youtube.Video) (*youtube.Format, error) {
	var mp4, progressive, any *youtube.Format
	for i := range video.Formats {
		f := &video.Formats[i]
		if f.Width == 0 || f.Height == 0 {
			continue
		}
		if any == nil || betterVideoFormat(f, any) {
			any = f
		}
		if f.AudioChannels == 0 {
			continue
		}
		if progressive == nil || betterVideoFormat(f, progressive) {
			progressive = f
		}
		if mimeToExt(f.MimeType) == "mp4" && (mp4 == nil || betterVideoFormat(f, mp4)) {
			mp4 = f
		}
	}
	switch {
	case mp4 != nil:
		return mp4, nil
	case progressive != nil:
		return progressive, nil
	case any != nil:
		return any, nil
	}
	return nil, errNoUsableFormat
}

func betterVideoFormat(candidate, current *youtube.Format) bool {
	if candidate.Height != current.Height {
		return candidate.Height > current.Height
	}
	return bitrateFor(candidate) > bitrateFor(current)
}

func bitrateFor(f *youtube.Format) int {
	if f.AverageBitrate > 0 {
		return f.AverageBitrate
	}
	return f.Bitrate
}

// mimeToExt maps a stream MIME type to a container extension. Unknown
// types fall back to mp4, which ffmpeg still reads fine.
func mimeToExt(mimeType string) string {
	base := mimeType
	if i := strings.Index(base, ";"); i >= 0 {
		base = base[:i]
	}
	switch strings.TrimSpace(base) {
	case "video/mp4", "audio/mp4", "audio/m4a":
		return "mp4"
	case "video/webm", "audio/webm":
		return "webm"
	case "video/3gpp":
		return "3gp"
	default:
		return "mp4"
	}
}
