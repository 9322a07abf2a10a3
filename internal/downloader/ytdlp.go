package downloader

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/lrstanley/go-ytdlp"
)

const (
	audioFormatSelector = "bestaudio/best"
	videoFormatSelector = "bestvideo[ext=mp4]+bestaudio[ext=m4a]/best[ext=mp4]/best"

	socketTimeoutSeconds = 30
)

// YtdlpEngine shells out to yt-dlp. It is the default engine because
// yt-dlp tracks upstream player changes far faster than any library.
type YtdlpEngine struct{}

func NewYtdlpEngine() *YtdlpEngine { return &YtdlpEngine{} }

func (e *YtdlpEngine) Name() string { return "yt-dlp" }

// Available reports whether the yt-dlp binary can be found on PATH.
func (e *YtdlpEngine) Available() bool {
	_, err := exec.LookPath("yt-dlp")
	return err == nil
}

func (e *YtdlpEngine) Fetch(ctx context.Context, url, stagingDir, name string, mode Mode) (string, error) {
	cmd := ytdlp.New().
		NoPlaylist().
		AbortOnError().
		AbortOnUnavailableFragments().
		SocketTimeout(socketTimeoutSeconds).
		Output(filepath.Join(stagingDir, name+".%(ext)s"))

	switch mode {
	case ModeAudio:
		cmd = cmd.Format(audioFormatSelector).
			ExtractAudio().
			AudioFormat("mp3").
			AudioQuality("0")
	default:
		cmd = cmd.Format(videoFormatSelector).
			MergeOutputFormat("mp4")
	}

	slog.Info("invoking yt-dlp", "url", url, "mode", mode.String(), "name", name)
	if _, err := cmd.Run(ctx, url); err != nil {
		return "", fmt.Errorf("yt-dlp: %w", err)
	}

	return findStagedArtifact(stagingDir, name, mode)
}

// Container extensions a finished yt-dlp run can legitimately leave
// behind. Anything else under the same name (.part, .ytdl, stale
// fragments) must never be promoted.
var stagedContainers = map[string]bool{
	".mp3":  true,
	".mp4":  true,
	".m4a":  true,
	".webm": true,
	".mkv":  true,
	".opus": true,
	".ogg":  true,
	".3gp":  true,
}

// findStagedArtifact locates the file the engine wrote. The preferred
// container for the mode wins; otherwise the first match with a known
// finished-container extension does.
func findStagedArtifact(stagingDir, name string, mode Mode) (string, error) {
	preferred := filepath.Join(stagingDir, name+"."+mode.Ext())
	if _, err := os.Stat(preferred); err == nil {
		return preferred, nil
	}

	matches, err := filepath.Glob(filepath.Join(stagingDir, name+".*"))
	if err != nil {
		return "", fmt.Errorf("scanning staging dir: %w", err)
	}
	for _, match := range matches {
		if stagedContainers[strings.ToLower(filepath.Ext(match))] {
			return match, nil
		}
	}
	return "", fmt.Errorf("yt-dlp produced no output for %q", name)
}
