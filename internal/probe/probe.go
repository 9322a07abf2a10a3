// Package probe validates local media files with ffmpeg: a null-muxer
// decode pass for corruption checking and an ffprobe metadata read for
// playback duration.
package probe

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	ffmpeg "github.com/u2takey/ffmpeg-go"
)

var (
	// ErrDurationMissing indicates the probed metadata carries no
	// duration field at all.
	ErrDurationMissing = errors.New("no duration in stream metadata")
	// ErrDurationInvalid indicates a duration field that is not a number.
	ErrDurationInvalid = errors.New("duration is not a number")
)

// IsCorrupted reports whether a media file fails a full decode pass.
// Any processing error from the engine is read as corruption. This is
// a heuristic: damage outside the decoded path can go unnoticed.
func IsCorrupted(path string) bool {
	slog.Info("checking file integrity", slog.String("path", path))

	err := ffmpeg.Input(path).
		Output("null", ffmpeg.KwArgs{"f": "null"}).
		Silent(true).
		OverWriteOutput().
		Run()
	if err != nil {
		slog.Warn("integrity check failed", slog.String("path", path), slog.Any("err", err))
		return true
	}
	return false
}

// probeInfo is the subset of ffprobe JSON output the duration probe reads.
type probeInfo struct {
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
	Streams []struct {
		CodecType string `json:"codec_type"`
		Duration  string `json:"duration"`
	} `json:"streams"`
}

// Duration returns the playback duration of a video file in seconds.
// A missing duration field is ErrDurationMissing; a present but
// unparsable one is ErrDurationInvalid. Both are hard failures.
func Duration(path string) (float64, error) {
	slog.Info("probing video duration", slog.String("path", path))

	raw, err := ffmpeg.Probe(path)
	if err != nil {
		return 0, fmt.Errorf("probing %s: %w", path, err)
	}
	return parseDuration(raw)
}

func parseDuration(raw string) (float64, error) {
	var info probeInfo
	if err := json.Unmarshal([]byte(raw), &info); err != nil {
		return 0, fmt.Errorf("decode probe output: %w", err)
	}

	field := info.Format.Duration
	if field == "" {
		for _, stream := range info.Streams {
			if stream.CodecType == "video" && stream.Duration != "" {
				field = stream.Duration
				break
			}
		}
	}
	if field == "" {
		return 0, ErrDurationMissing
	}

	seconds, err := strconv.ParseFloat(field, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrDurationInvalid, field)
	}
	return seconds, nil
}
